package event

import (
	"fmt"
	"io"
	"sort"

	"github.com/goccy/go-json"

	"github.com/inodb/vibe-splice/internal/cache"
)

// jsonGene mirrors one entry of a gene dictionary dump.
type jsonGene struct {
	Chrom           string              `json:"chr"`
	Strand          string              `json:"strand"`
	GeneName        string              `json:"gene_name"`
	TranscriptExons map[string][]string `json:"transcript_exon_dic"`
}

// ReadGeneModel decodes a JSON gene dictionary keyed by gene ID. A gene has
// the intron marker iff its "intron_list" key is present, whatever its value.
// Exon identities are kept verbatim; they are parsed during classification.
// Genes are returned sorted by ID.
func ReadGeneModel(r io.Reader) ([]*Gene, error) {
	var raw map[string]map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode gene model: %w", err)
	}

	ids := make([]string, 0, len(raw))
	for id := range raw {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	genes := make([]*Gene, 0, len(ids))
	for _, id := range ids {
		fields := raw[id]
		_, hasIntrons := fields["intron_list"]
		delete(fields, "intron_list")

		var jg jsonGene
		if err := remarshal(fields, &jg); err != nil {
			return nil, fmt.Errorf("decode gene %s: %w", id, err)
		}
		strand, err := ParseStrand(jg.Strand)
		if err != nil {
			return nil, fmt.Errorf("gene %s: %w", id, err)
		}
		transcripts := jg.TranscriptExons
		if transcripts == nil {
			transcripts = make(map[string][]string)
		}
		genes = append(genes, &Gene{
			ID:          id,
			Name:        jg.GeneName,
			Chrom:       jg.Chrom,
			Strand:      strand,
			HasIntrons:  hasIntrons,
			Transcripts: transcripts,
		})
	}
	return genes, nil
}

// remarshal decodes the fields of one gene entry into v.
func remarshal(fields map[string]json.RawMessage, v any) error {
	data, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// FromCache converts a gene loaded from an annotation file into the
// classifier's input form.
func FromCache(g *cache.Gene) *Gene {
	strand := Plus
	if g.IsReverseStrand() {
		strand = Minus
	}
	transcripts := make(map[string][]string, len(g.Transcripts))
	for _, t := range g.Transcripts {
		keys := make([]string, len(t.Exons))
		for i, e := range t.Exons {
			keys[i] = Exon{Chrom: g.Chrom, Start: e.Start, End: e.End}.String()
		}
		transcripts[t.ID] = keys
	}
	return &Gene{
		ID:          g.ID,
		Name:        g.Name,
		Chrom:       g.Chrom,
		Strand:      strand,
		HasIntrons:  g.HasIntrons(),
		Transcripts: transcripts,
	}
}

// FromCacheAll converts genes in order.
func FromCacheAll(genes []*cache.Gene) []*Gene {
	out := make([]*Gene, len(genes))
	for i, g := range genes {
		out[i] = FromCache(g)
	}
	return out
}
