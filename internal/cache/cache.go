// Package cache provides gene model loading functionality.
package cache

import (
	"sort"
)

// Cache holds the gene model loaded from an annotation file.
type Cache struct {
	// genes stores genes indexed by chromosome
	genes map[string][]*Gene
	// indexes caches per-chromosome interval indexes, built on first query
	indexes map[string]*GeneIndex
}

// New creates a new empty cache.
func New() *Cache {
	return &Cache{
		genes:   make(map[string][]*Gene),
		indexes: make(map[string]*GeneIndex),
	}
}

// AddGene adds a gene to the cache.
func (c *Cache) AddGene(g *Gene) {
	c.genes[g.Chrom] = append(c.genes[g.Chrom], g)
	delete(c.indexes, g.Chrom)
}

// TranscriptCount returns the total number of transcripts in the cache.
func (c *Cache) TranscriptCount() int {
	count := 0
	for _, genes := range c.genes {
		for _, g := range genes {
			count += len(g.Transcripts)
		}
	}
	return count
}

// Chromosomes returns a sorted list of chromosomes in the cache.
func (c *Cache) Chromosomes() []string {
	chroms := make([]string, 0, len(c.genes))
	for chrom := range c.genes {
		chroms = append(chroms, chrom)
	}
	sort.Strings(chroms)
	return chroms
}

// FindGenesByChrom returns all genes for a chromosome.
func (c *Cache) FindGenesByChrom(chrom string) []*Gene {
	return c.genes[chrom]
}

// Genes returns every gene ordered by chromosome, then gene ID.
func (c *Cache) Genes() []*Gene {
	var out []*Gene
	for _, chrom := range c.Chromosomes() {
		genes := make([]*Gene, len(c.genes[chrom]))
		copy(genes, c.genes[chrom])
		sort.Slice(genes, func(i, j int) bool { return genes[i].ID < genes[j].ID })
		out = append(out, genes...)
	}
	return out
}

// FindGenes returns the genes on chrom overlapping [start, end], ordered by gene ID.
// The chromosome may be given with or without a "chr" prefix.
func (c *Cache) FindGenes(chrom string, start, end int64) []*Gene {
	name, ok := c.resolveChrom(chrom)
	if !ok {
		return nil
	}
	idx, ok := c.indexes[name]
	if !ok {
		idx = BuildGeneIndex(c.genes[name])
		c.indexes[name] = idx
	}
	genes := idx.FindOverlaps(start, end)
	sort.Slice(genes, func(i, j int) bool { return genes[i].ID < genes[j].ID })
	return genes
}

// resolveChrom maps a user-supplied chromosome name onto the name used in the cache.
func (c *Cache) resolveChrom(chrom string) (string, bool) {
	if _, ok := c.genes[chrom]; ok {
		return chrom, true
	}
	want := NormalizeChrom(chrom)
	for name := range c.genes {
		if NormalizeChrom(name) == want {
			return name, true
		}
	}
	return "", false
}
