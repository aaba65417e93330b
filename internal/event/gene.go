package event

import (
	"fmt"
	"sort"
)

// Gene is the classifier's view of one gene: its transcripts as collections
// of exon identities ("chrom:start-end"). It is treated as read-only.
type Gene struct {
	ID          string
	Name        string
	Chrom       string
	Strand      Strand
	HasIntrons  bool                // gene has at least one recorded intron
	Transcripts map[string][]string // transcript ID -> exon identities
}

// transcript is a parsed transcript with position-ordered, distinct exons.
type transcript struct {
	id    string
	exons []Exon
}

// parseTranscripts parses every transcript of g and returns them ordered by
// transcript ID, which fixes the pair enumeration order.
func (g *Gene) parseTranscripts() ([]*transcript, error) {
	ids := make([]string, 0, len(g.Transcripts))
	for id := range g.Transcripts {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]*transcript, 0, len(ids))
	for _, id := range ids {
		exons, err := ParseExons(g.Transcripts[id])
		if err != nil {
			return nil, fmt.Errorf("gene %s transcript %s: %w", g.ID, id, err)
		}
		out = append(out, &transcript{id: id, exons: ByPosition(exons)})
	}
	return out, nil
}

// newRecord starts a record carrying the gene-level fields.
func (g *Gene) newRecord(t Type) *Record {
	return &Record{
		Type:     t,
		Strand:   g.Strand,
		GeneID:   g.ID,
		GeneName: g.Name,
	}
}

// forEachPair calls fn for every unordered pair (a, b) with a before b in
// transcript ID order.
func forEachPair(ts []*transcript, fn func(a, b *transcript)) {
	for i := range ts {
		for j := i + 1; j < len(ts); j++ {
			fn(ts[i], ts[j])
		}
	}
}
