package duckdb

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/inodb/vibe-splice/internal/cache"
)

// GeneModelCache manages a gob-serialized gene model on disk. Files are
// named after the GTF they were parsed from:
//
//	{dir}/{gtf}.genes.gob       (serialized genes by chromosome)
//	{dir}/{gtf}.genes.gob.meta  (source path, fingerprint and load options)
type GeneModelCache struct {
	dir  string
	base string
	src  string // absolute GTF path
}

// NewGeneModelCache creates a cache for the given GTF. An empty dir places
// the cache next to the GTF.
func NewGeneModelCache(dir, gtfPath string) *GeneModelCache {
	if dir == "" {
		dir = filepath.Dir(gtfPath)
	}
	src, err := filepath.Abs(gtfPath)
	if err != nil {
		src = filepath.Clean(gtfPath)
	}
	return &GeneModelCache{dir: dir, base: filepath.Base(gtfPath), src: src}
}

func (gc *GeneModelCache) gobPath() string {
	return filepath.Join(gc.dir, gc.base+".genes.gob")
}

func (gc *GeneModelCache) metaPath() string {
	return gc.gobPath() + ".meta"
}

// Valid checks whether the cached genes were built from the same GTF path
// and fingerprint with the same load options (chromosome and biotype filters).
func (gc *GeneModelCache) Valid(gtf FileFingerprint, options string) bool {
	meta, err := readMetaFile(gc.metaPath())
	if err != nil {
		return false
	}

	if meta["gtf_path"] != gc.src {
		return false
	}
	for _, e := range gtf.metaEntries("gtf") {
		if meta[e[0]] != e[1] {
			return false
		}
	}
	if meta["options"] != options {
		return false
	}

	if _, err := os.Stat(gc.gobPath()); err != nil {
		return false
	}
	return true
}

// Load reads serialized genes from disk into the cache.
func (gc *GeneModelCache) Load(c *cache.Cache) error {
	f, err := os.Open(gc.gobPath())
	if err != nil {
		return fmt.Errorf("open gene model cache: %w", err)
	}
	defer f.Close()

	var data map[string][]*cache.Gene
	if err := gob.NewDecoder(f).Decode(&data); err != nil {
		return fmt.Errorf("decode gene model cache: %w", err)
	}

	for _, genes := range data {
		for _, g := range genes {
			c.AddGene(g)
		}
	}
	return nil
}

// Write serializes all genes from the cache to disk.
func (gc *GeneModelCache) Write(c *cache.Cache, gtf FileFingerprint, options string) error {
	if err := os.MkdirAll(gc.dir, 0755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}

	data := make(map[string][]*cache.Gene)
	for _, chrom := range c.Chromosomes() {
		data[chrom] = c.FindGenesByChrom(chrom)
	}

	f, err := os.Create(gc.gobPath())
	if err != nil {
		return fmt.Errorf("create gene model cache: %w", err)
	}

	if err := gob.NewEncoder(f).Encode(data); err != nil {
		f.Close()
		os.Remove(gc.gobPath())
		return fmt.Errorf("encode gene model cache: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close gene model cache: %w", err)
	}

	entries := [][2]string{{"gtf_path", gc.src}}
	entries = append(entries, gtf.metaEntries("gtf")...)
	entries = append(entries,
		[2]string{"options", options},
		[2]string{"created_at", time.Now().UTC().Format(time.RFC3339)},
	)
	return writeMetaFile(gc.metaPath(), entries)
}

// Clear removes the cached gene model files. Missing files are not an error.
func (gc *GeneModelCache) Clear() {
	os.Remove(gc.gobPath())
	os.Remove(gc.metaPath())
}
