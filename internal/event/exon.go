// Package event classifies complex alternative-splicing events between
// transcript pairs of the same gene.
package event

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ErrInvalidExon is returned when an exon identity cannot be parsed.
// It indicates a broken gene model rather than a skippable transcript pair.
var ErrInvalidExon = errors.New("invalid exon identity")

// Strand is the genomic strand of a gene.
type Strand int8

const (
	Plus  Strand = 1
	Minus Strand = -1
)

// ParseStrand converts "+" or "-" to a Strand.
func ParseStrand(s string) (Strand, error) {
	switch s {
	case "+":
		return Plus, nil
	case "-":
		return Minus, nil
	}
	return 0, fmt.Errorf("invalid strand %q", s)
}

// String returns "+" or "-".
func (s Strand) String() string {
	if s == Minus {
		return "-"
	}
	return "+"
}

// Exon is a transcribed genomic interval. Two exons are the same exon iff
// chromosome, start and end all match, so Exon is safe to use as a map key.
type Exon struct {
	Chrom string
	Start int64 // 1-based
	End   int64 // 1-based, inclusive
}

// ParseExon parses an exon identity of the form "chrom:start-end".
func ParseExon(key string) (Exon, error) {
	idx := strings.LastIndex(key, ":")
	if idx <= 0 {
		return Exon{}, fmt.Errorf("%w: %q: missing chromosome", ErrInvalidExon, key)
	}
	startStr, endStr, ok := strings.Cut(key[idx+1:], "-")
	if !ok {
		return Exon{}, fmt.Errorf("%w: %q: missing coordinate range", ErrInvalidExon, key)
	}
	start, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil {
		return Exon{}, fmt.Errorf("%w: %q: parse start: %v", ErrInvalidExon, key, err)
	}
	end, err := strconv.ParseInt(endStr, 10, 64)
	if err != nil {
		return Exon{}, fmt.Errorf("%w: %q: parse end: %v", ErrInvalidExon, key, err)
	}
	if start < 1 || start > end {
		return Exon{}, fmt.Errorf("%w: %q: bad bounds %d-%d", ErrInvalidExon, key, start, end)
	}
	return Exon{Chrom: key[:idx], Start: start, End: end}, nil
}

// ParseExons parses a list of exon identities. Duplicate identities collapse.
func ParseExons(keys []string) ([]Exon, error) {
	seen := make(map[Exon]bool, len(keys))
	exons := make([]Exon, 0, len(keys))
	for _, k := range keys {
		e, err := ParseExon(k)
		if err != nil {
			return nil, err
		}
		if seen[e] {
			continue
		}
		seen[e] = true
		exons = append(exons, e)
	}
	return exons, nil
}

// ParseExonList parses exon identities joined with ExonDelimiter.
// An empty string yields no exons.
func ParseExonList(s string) ([]Exon, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ExonDelimiter)
	exons := make([]Exon, len(parts))
	for i, p := range parts {
		e, err := ParseExon(p)
		if err != nil {
			return nil, err
		}
		exons[i] = e
	}
	return exons, nil
}

// IsZero reports whether e is the zero Exon, used for an absent anchor.
func (e Exon) IsZero() bool {
	return e == Exon{}
}

// String returns the exon identity "chrom:start-end".
func (e Exon) String() string {
	return e.Chrom + ":" + strconv.FormatInt(e.Start, 10) + "-" + strconv.FormatInt(e.End, 10)
}

// Bounds returns the exon's start and end coordinates.
func (e Exon) Bounds() (start, end int64) {
	return e.Start, e.End
}

// ByPosition returns a copy of exons sorted by ascending start.
func ByPosition(exons []Exon) []Exon {
	out := make([]Exon, len(exons))
	copy(out, exons)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].End < out[j].End
	})
	return out
}

// ByTranscriptionOrder returns a copy of exons ordered 5' to 3':
// ascending start on the plus strand, descending start on the minus strand.
func ByTranscriptionOrder(exons []Exon, strand Strand) []Exon {
	out := ByPosition(exons)
	if strand == Minus {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out
}

// exonSet is a membership set over exon identity.
type exonSet map[Exon]struct{}

func newExonSet(exons []Exon) exonSet {
	s := make(exonSet, len(exons))
	for _, e := range exons {
		s[e] = struct{}{}
	}
	return s
}

func (s exonSet) has(e Exon) bool {
	_, ok := s[e]
	return ok
}

// Intersect returns the exons present in both a and b, ordered by position.
func Intersect(a, b []Exon) []Exon {
	inB := newExonSet(b)
	var out []Exon
	for _, e := range a {
		if inB.has(e) {
			out = append(out, e)
		}
	}
	return ByPosition(out)
}

// Difference returns the exons of a that are not in b, ordered by position.
func Difference(a, b []Exon) []Exon {
	inB := newExonSet(b)
	var out []Exon
	for _, e := range a {
		if !inB.has(e) {
			out = append(out, e)
		}
	}
	return ByPosition(out)
}

// JoinExons joins exon identities with the event table delimiter.
func JoinExons(exons []Exon) string {
	parts := make([]string, len(exons))
	for i, e := range exons {
		parts[i] = e.String()
	}
	return strings.Join(parts, ExonDelimiter)
}
