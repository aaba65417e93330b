package cache

import "sort"

// GeneIndex provides O(log n + k) overlap queries using a sorted-slice approach.
// Genes are loaded once and never modified after build.
type GeneIndex struct {
	intervals []interval
	maxEnd    []int64 // maxEnd[i] = max(End) for intervals[:i+1]
}

type interval struct {
	start int64
	end   int64
	gene  *Gene
}

// BuildGeneIndex creates an interval index from a slice of genes.
func BuildGeneIndex(genes []*Gene) *GeneIndex {
	if len(genes) == 0 {
		return &GeneIndex{}
	}

	intervals := make([]interval, len(genes))
	for i, g := range genes {
		intervals[i] = interval{start: g.Start, end: g.End, gene: g}
	}

	sort.Slice(intervals, func(i, j int) bool {
		return intervals[i].start < intervals[j].start
	})

	// Build prefix-max array: maxEnd[i] = max(end) for intervals[:i+1]
	maxEnd := make([]int64, len(intervals))
	maxEnd[0] = intervals[0].end
	for i := 1; i < len(intervals); i++ {
		maxEnd[i] = intervals[i].end
		if maxEnd[i-1] > maxEnd[i] {
			maxEnd[i] = maxEnd[i-1]
		}
	}

	return &GeneIndex{intervals: intervals, maxEnd: maxEnd}
}

// FindOverlaps returns all genes whose [Start, End] range intersects [start, end].
func (t *GeneIndex) FindOverlaps(start, end int64) []*Gene {
	if len(t.intervals) == 0 {
		return nil
	}

	var result []*Gene

	// hi is the first index with start > end; candidates are [0, hi).
	hi := sort.Search(len(t.intervals), func(i int) bool {
		return t.intervals[i].start > end
	})

	for i := hi - 1; i >= 0; i-- {
		// Prune: maxEnd[i] is the max end for intervals[:i+1].
		// If maxEnd[i] < start, no interval from 0..i can reach start.
		if t.maxEnd[i] < start {
			break
		}
		if t.intervals[i].end >= start {
			result = append(result, t.intervals[i].gene)
		}
	}

	return result
}
