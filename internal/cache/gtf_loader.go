// Package cache provides gene model loading functionality.
package cache

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/ulikunitz/xz"
)

// GTFLoader loads genes, transcripts and exons from GENCODE/Ensembl GTF files.
type GTFLoader struct {
	path     string
	biotypes map[string]bool
}

// NewGTFLoader creates a new GTF loader.
func NewGTFLoader(path string) *GTFLoader {
	return &GTFLoader{path: path}
}

// SetBiotypes restricts loading to transcripts with one of the given
// transcript biotypes. An empty list loads every transcript.
func (l *GTFLoader) SetBiotypes(biotypes []string) {
	if len(biotypes) == 0 {
		l.biotypes = nil
		return
	}
	l.biotypes = make(map[string]bool, len(biotypes))
	for _, b := range biotypes {
		l.biotypes[b] = true
	}
}

// Load loads all genes from the GTF file into the cache.
func (l *GTFLoader) Load(c *Cache) error {
	return l.loadGTF(c, "")
}

// LoadChromosome loads genes for a specific chromosome.
func (l *GTFLoader) LoadChromosome(c *Cache, chrom string) error {
	return l.loadGTF(c, chrom)
}

// loadGTF parses the GTF file and populates the cache.
// If filterChrom is non-empty, only loads that chromosome.
func (l *GTFLoader) loadGTF(c *Cache, filterChrom string) error {
	f, err := OpenFile(l.path)
	if err != nil {
		return fmt.Errorf("open GTF file: %w", err)
	}
	defer f.Close()

	genes, err := l.parseGTF(f, filterChrom)
	if err != nil {
		return err
	}

	for _, g := range genes {
		c.AddGene(g)
	}

	return nil
}

// OpenFile opens an annotation file, transparently decompressing it
// according to its suffix: .gz (gzip) or .xz.
func OpenFile(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".gz"):
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("open gzip reader: %w", err)
		}
		return &decompressedFile{Reader: gz, closers: []io.Closer{gz, f}}, nil
	case strings.HasSuffix(lower, ".xz"):
		xr, err := xz.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("open xz reader: %w", err)
		}
		return &decompressedFile{Reader: xr, closers: []io.Closer{f}}, nil
	}
	return f, nil
}

// decompressedFile closes the decompressor and the underlying file together.
type decompressedFile struct {
	io.Reader
	closers []io.Closer
}

func (d *decompressedFile) Close() error {
	var firstErr error
	for _, c := range d.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// gtfFeature represents a parsed GTF line.
type gtfFeature struct {
	chrom       string
	source      string
	featureType string
	start       int64
	end         int64
	strand      string
	attributes  map[string]string
}

// parseGTF parses GTF content and returns genes sorted by ID.
func (l *GTFLoader) parseGTF(reader io.Reader, filterChrom string) ([]*Gene, error) {
	scanner := bufio.NewScanner(reader)
	// Increase buffer size for long lines
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	// Keys are chrom + "\t" + ID: pseudoautosomal copies share IDs across chrX/chrY
	// in some releases and must not merge.
	genes := make(map[string]*Gene)
	transcripts := make(map[string]*Transcript)
	exonsByTranscript := make(map[string][]Exon)

	for scanner.Scan() {
		line := scanner.Text()

		// Skip comments and empty lines
		if strings.HasPrefix(line, "#") || line == "" {
			continue
		}

		feat, err := l.parseLine(line)
		if err != nil {
			continue // Skip malformed lines
		}

		// Filter by chromosome if specified
		if filterChrom != "" && NormalizeChrom(feat.chrom) != NormalizeChrom(filterChrom) {
			continue
		}

		geneID := stripVersion(feat.attributes["gene_id"])
		if geneID == "" {
			continue
		}

		geneKey := featureKey(feat.chrom, geneID)
		g, ok := genes[geneKey]
		if !ok {
			g = &Gene{
				ID:     geneID,
				Chrom:  feat.chrom,
				Strand: parseStrand(feat.strand),
			}
			genes[geneKey] = g
		}
		if name := feat.attributes["gene_name"]; name != "" && g.Name == "" {
			g.Name = name
		}

		if feat.featureType == "gene" {
			g.Start, g.End = feat.start, feat.end
			g.Biotype = feat.attributes["gene_type"]
			if g.Biotype == "" {
				g.Biotype = feat.attributes["gene_biotype"]
			}
			continue
		}

		transcriptID := stripVersion(feat.attributes["transcript_id"])
		if transcriptID == "" {
			continue
		}

		txKey := featureKey(feat.chrom, transcriptID)
		t, ok := transcripts[txKey]
		if !ok {
			t = &Transcript{
				ID:       transcriptID,
				GeneID:   geneID,
				GeneName: feat.attributes["gene_name"],
				Chrom:    feat.chrom,
				Start:    feat.start,
				End:      feat.end,
				Strand:   parseStrand(feat.strand),
			}
			transcripts[txKey] = t
		}
		if t.Biotype == "" {
			t.Biotype = transcriptBiotype(feat.attributes)
		}

		switch feat.featureType {
		case "transcript":
			t.Start, t.End = feat.start, feat.end
		case "exon":
			exonsByTranscript[txKey] = append(exonsByTranscript[txKey], Exon{
				Start: feat.start,
				End:   feat.end,
			})
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan GTF: %w", err)
	}

	// Assemble genes from transcripts that have exons
	for key, t := range transcripts {
		exons := exonsByTranscript[key]
		if len(exons) == 0 {
			continue
		}
		if l.biotypes != nil && !l.biotypes[t.Biotype] {
			continue
		}

		// Sort exons by genomic position
		sort.Slice(exons, func(i, j int) bool {
			return exons[i].Start < exons[j].Start
		})
		t.Exons = exons
		if t.Start == 0 || exons[0].Start < t.Start {
			t.Start = exons[0].Start
		}
		if last := exons[len(exons)-1]; last.End > t.End {
			t.End = last.End
		}

		genes[featureKey(t.Chrom, t.GeneID)].addTranscript(t)
	}

	result := make([]*Gene, 0, len(genes))
	for _, g := range genes {
		if len(g.Transcripts) == 0 {
			continue
		}
		sort.Slice(g.Transcripts, func(i, j int) bool {
			return g.Transcripts[i].ID < g.Transcripts[j].ID
		})
		result = append(result, g)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].ID != result[j].ID {
			return result[i].ID < result[j].ID
		}
		return result[i].Chrom < result[j].Chrom
	})

	return result, nil
}

// parseLine parses a single GTF line.
func (l *GTFLoader) parseLine(line string) (*gtfFeature, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < 9 {
		return nil, fmt.Errorf("invalid GTF line: expected 9 fields, got %d", len(fields))
	}

	start, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse start: %w", err)
	}

	end, err := strconv.ParseInt(fields[4], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse end: %w", err)
	}

	feat := &gtfFeature{
		chrom:       fields[0],
		source:      fields[1],
		featureType: fields[2],
		start:       start,
		end:         end,
		strand:      fields[6],
		attributes:  parseAttributes(fields[8]),
	}

	return feat, nil
}

// parseAttributes parses GTF attribute column.
// Format: key "value"; key "value"; ...
// Repeated keys (e.g. tag) are joined with ",".
func parseAttributes(attrStr string) map[string]string {
	attrs := make(map[string]string)

	// Split by semicolon
	parts := strings.Split(attrStr, ";")
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		// Find the first space to separate key from value
		idx := strings.Index(part, " ")
		if idx == -1 {
			continue
		}

		key := part[:idx]
		value := strings.Trim(strings.TrimSpace(part[idx+1:]), "\"")

		if prev, ok := attrs[key]; ok {
			attrs[key] = prev + "," + value
			continue
		}
		attrs[key] = value
	}

	return attrs
}

// transcriptBiotype returns the transcript biotype in GENCODE or Ensembl naming.
func transcriptBiotype(attrs map[string]string) string {
	if b := attrs["transcript_type"]; b != "" {
		return b
	}
	return attrs["transcript_biotype"]
}

// parseStrand converts strand string to int8.
func parseStrand(s string) int8 {
	if s == "-" {
		return -1
	}
	return 1
}

// featureKey identifies a gene or transcript within one chromosome.
func featureKey(chrom, id string) string {
	return chrom + "\t" + id
}

// stripVersion removes a numeric version from an Ensembl ID, keeping any
// suffix after it. e.g. "ENST00000456328.2" -> "ENST00000456328",
// "ENSG00000002586.20_PAR_Y" -> "ENSG00000002586_PAR_Y".
func stripVersion(id string) string {
	dot := strings.LastIndex(id, ".")
	if dot == -1 {
		return id
	}
	end := dot + 1
	for end < len(id) && id[end] >= '0' && id[end] <= '9' {
		end++
	}
	if end == dot+1 || (end < len(id) && id[end] != '_') {
		return id
	}
	return id[:dot] + id[end:]
}

// NormalizeChrom normalizes chromosome names by removing the "chr" prefix.
// Used only for matching user input; loaded genes keep the annotation's names.
func NormalizeChrom(chrom string) string {
	if strings.HasPrefix(chrom, "chr") {
		return chrom[3:]
	}
	return chrom
}
