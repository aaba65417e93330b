package event

// classifyInternal reports a CO event when both transcripts carry unique exons
// and the bounding interval of all unique exons is flanked by shared exons on
// both sides. Individual unique exons are not checked for internality.
func classifyInternal(g *Gene, a, b *transcript) (*Record, bool) {
	shared := Intersect(a.exons, b.exons)
	if len(shared) == 0 {
		return nil, false
	}

	uniqueA := Difference(a.exons, b.exons)
	uniqueB := Difference(b.exons, a.exons)
	if len(uniqueA) == 0 || len(uniqueB) == 0 {
		return nil, false
	}

	minPos, maxPos := span(uniqueA, uniqueB)

	var pre, post []Exon
	for _, e := range shared {
		switch {
		case e.End < minPos:
			pre = append(pre, e)
		case e.Start > maxPos:
			post = append(post, e)
		}
	}
	if len(pre) == 0 || len(post) == 0 {
		return nil, false
	}

	r := g.newRecord(Internal)
	assign(r, a, b, uniqueA, uniqueB)
	r.Upstream = nearestBefore(pre)
	r.Downstream = nearestAfter(post)
	return r, true
}

// span returns the smallest start and largest end over the given exon lists.
func span(lists ...[]Exon) (minPos, maxPos int64) {
	first := true
	for _, exons := range lists {
		for _, e := range exons {
			if first || e.Start < minPos {
				minPos = e.Start
			}
			if first || e.End > maxPos {
				maxPos = e.End
			}
			first = false
		}
	}
	return minPos, maxPos
}

// nearestBefore returns the exon with the largest end. Ties keep the first
// exon in position order.
func nearestBefore(exons []Exon) Exon {
	best := exons[0]
	for _, e := range exons[1:] {
		if e.End > best.End {
			best = e
		}
	}
	return best
}

// nearestAfter returns the exon with the smallest start. Ties keep the first
// exon in position order.
func nearestAfter(exons []Exon) Exon {
	best := exons[0]
	for _, e := range exons[1:] {
		if e.Start < best.Start {
			best = e
		}
	}
	return best
}
