// Package cache provides gene model loading functionality.
package cache

// Transcript represents a specific gene isoform.
type Transcript struct {
	ID       string // Transcript ID (e.g., ENST00000311936)
	GeneID   string // Parent gene ID
	GeneName string // Parent gene symbol
	Chrom    string // Chromosome
	Start    int64  // Transcript start (1-based)
	End      int64  // Transcript end (1-based, inclusive)
	Strand   int8   // +1 or -1
	Biotype  string // Transcript biotype
	Exons    []Exon // Exons sorted by genomic start
}

// Exon represents a single exon within a transcript.
type Exon struct {
	Start int64 // Genomic start (1-based)
	End   int64 // Genomic end (1-based, inclusive)
}

// IntronCount returns the number of introns implied by the exon structure.
func (t *Transcript) IntronCount() int {
	if len(t.Exons) < 2 {
		return 0
	}
	return len(t.Exons) - 1
}
