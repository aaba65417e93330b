package event

import (
	"encoding/hex"
	"strings"

	"github.com/zeebo/blake3"
)

// ExonDelimiter separates exon identities within one event table field.
const ExonDelimiter = ";"

// Type is a complex splicing event category.
type Type string

// Event types produced by the classifiers.
const (
	Internal Type = "CO" // internal complex event
	First    Type = "CF" // complex alternative first exon
	Last     Type = "CL" // complex alternative last exon
)

// Types lists the event types in output order.
var Types = []Type{Internal, Last, First}

// Record is one classified event for a transcript pair.
//
// Upstream is set for CO and CL events, Downstream for CO and CF events;
// the unused anchor is the zero Exon.
type Record struct {
	Type               Type
	Included           []Exon
	Excluded           []Exon
	Upstream           Exon
	Downstream         Exon
	Strand             Strand
	GeneID             string
	GeneName           string
	IncludedTranscript string
	ExcludedTranscript string
}

// Columns returns the table header for an event type.
func Columns(t Type) []string {
	cols := []string{"event_id", "included_exons", "excluded_exons"}
	switch t {
	case Internal:
		cols = append(cols, "pre_exon", "post_exon")
	case First:
		cols = append(cols, "post_exon")
	case Last:
		cols = append(cols, "pre_exon")
	}
	return append(cols, "strand", "gene_id", "gene_name", "included_transcript", "excluded_transcript")
}

// Fields renders the record as a table row matching Columns(r.Type).
func (r *Record) Fields() []string {
	body := r.body()
	return append([]string{r.idOf(body)}, body...)
}

// ID returns a stable identifier for the event: a truncated BLAKE3 digest of
// its type and rendered fields.
func (r *Record) ID() string {
	return r.idOf(r.body())
}

func (r *Record) idOf(body []string) string {
	sum := blake3.Sum256([]byte(string(r.Type) + "\t" + strings.Join(body, "\t")))
	return string(r.Type) + "_" + hex.EncodeToString(sum[:8])
}

// body renders every column except event_id.
func (r *Record) body() []string {
	row := []string{JoinExons(r.Included), JoinExons(r.Excluded)}
	switch r.Type {
	case Internal:
		row = append(row, r.Upstream.String(), r.Downstream.String())
	case First:
		row = append(row, r.Downstream.String())
	case Last:
		row = append(row, r.Upstream.String())
	}
	return append(row,
		r.Strand.String(),
		r.GeneID,
		r.GeneName,
		r.IncludedTranscript,
		r.ExcludedTranscript,
	)
}

// assign applies the included/excluded rule shared by all classifiers: the
// transcript with strictly more unique exons is included, and on a tie the
// second transcript of the pair (b) is included.
func assign(r *Record, a, b *transcript, uniqueA, uniqueB []Exon) {
	if len(uniqueA) > len(uniqueB) {
		r.Included, r.Excluded = uniqueA, uniqueB
		r.IncludedTranscript, r.ExcludedTranscript = a.id, b.id
		return
	}
	r.Included, r.Excluded = uniqueB, uniqueA
	r.IncludedTranscript, r.ExcludedTranscript = b.id, a.id
}
