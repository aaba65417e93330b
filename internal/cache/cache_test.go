package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache() *Cache {
	c := New()
	c.AddGene(&Gene{ID: "G2", Chrom: "chr1", Start: 500, End: 900})
	c.AddGene(&Gene{ID: "G1", Chrom: "chr1", Start: 100, End: 400,
		Transcripts: []*Transcript{{ID: "T1", Exons: []Exon{{Start: 100, End: 150}, {Start: 300, End: 400}}}}})
	c.AddGene(&Gene{ID: "G3", Chrom: "chr10", Start: 100, End: 200})
	return c
}

func TestCache_Genes_Ordered(t *testing.T) {
	c := newTestCache()

	var ids []string
	for _, g := range c.Genes() {
		ids = append(ids, g.ID)
	}
	assert.Equal(t, []string{"G1", "G2", "G3"}, ids)
	assert.Equal(t, 1, c.TranscriptCount())
}

func TestCache_FindGenesByChrom(t *testing.T) {
	c := newTestCache()

	assert.Len(t, c.FindGenesByChrom("chr1"), 2)
	assert.Empty(t, c.FindGenesByChrom("1"), "exact annotation name required")
	assert.Equal(t, []string{"chr1", "chr10"}, c.Chromosomes())
}

func TestCache_FindGenes(t *testing.T) {
	c := newTestCache()

	genes := c.FindGenes("1", 350, 600)
	require.Len(t, genes, 2, "chromosome names match with or without chr prefix")
	assert.Equal(t, "G1", genes[0].ID)
	assert.Equal(t, "G2", genes[1].ID)

	assert.Empty(t, c.FindGenes("chr1", 950, 1000))
	assert.Empty(t, c.FindGenes("chrY", 1, 1000))

	// Index is rebuilt after a gene is added
	c.AddGene(&Gene{ID: "G4", Chrom: "chr1", Start: 950, End: 990})
	assert.Len(t, c.FindGenes("chr1", 950, 1000), 1)
}

func TestTranscript_Exons(t *testing.T) {
	tr := &Transcript{Start: 100, End: 400, Exons: []Exon{{Start: 100, End: 150}, {Start: 200, End: 250}, {Start: 300, End: 400}}}
	assert.Equal(t, 2, tr.IntronCount())

	single := &Transcript{Exons: []Exon{{Start: 1, End: 10}}}
	assert.Equal(t, 0, single.IntronCount())
}

func TestGene_Bounds(t *testing.T) {
	g := &Gene{ID: "G", Strand: 1}
	g.addTranscript(&Transcript{ID: "A", Start: 200, End: 300})
	g.addTranscript(&Transcript{ID: "B", Start: 100, End: 250})

	assert.Equal(t, int64(100), g.Start)
	assert.Equal(t, int64(300), g.End)
	assert.False(t, g.IsReverseStrand())
	assert.False(t, g.HasIntrons())

	g.addTranscript(&Transcript{ID: "C", Start: 150, End: 400, Exons: []Exon{{Start: 150, End: 200}, {Start: 350, End: 400}}})
	assert.Equal(t, int64(400), g.End)
	assert.True(t, g.HasIntrons())
}
