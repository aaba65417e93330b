// Package cache provides gene model loading functionality.
package cache

// Gene represents a genomic region with associated transcripts.
type Gene struct {
	ID          string        // Gene identifier (e.g., ENSG00000133703)
	Name        string        // Gene symbol (e.g., KRAS)
	Chrom       string        // Chromosome, as named in the annotation
	Start       int64         // Gene start position (1-based)
	End         int64         // Gene end position (1-based, inclusive)
	Strand      int8          // +1 (forward) or -1 (reverse)
	Biotype     string        // Gene biotype (e.g., protein_coding)
	Transcripts []*Transcript // Associated transcripts, ordered by ID
}

// IsReverseStrand returns true if the gene is on the reverse strand.
func (g *Gene) IsReverseStrand() bool {
	return g.Strand == -1
}

// HasIntrons returns true if any transcript has at least two exons.
func (g *Gene) HasIntrons() bool {
	for _, t := range g.Transcripts {
		if t.IntronCount() > 0 {
			return true
		}
	}
	return false
}

// addTranscript attaches t and widens the gene bounds to cover it.
func (g *Gene) addTranscript(t *Transcript) {
	if len(g.Transcripts) == 0 && g.Start == 0 && g.End == 0 {
		g.Start, g.End = t.Start, t.End
	}
	if t.Start < g.Start {
		g.Start = t.Start
	}
	if t.End > g.End {
		g.End = t.End
	}
	g.Transcripts = append(g.Transcripts, t)
}
