package event

import (
	"errors"
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testGene(strand Strand, transcripts map[string][]string) *Gene {
	return &Gene{
		ID:          "ENSG00000000001",
		Name:        "GENE1",
		Chrom:       "1",
		Strand:      strand,
		HasIntrons:  true,
		Transcripts: transcripts,
	}
}

func classify(t *testing.T, g *Gene) *Result {
	t.Helper()
	res, err := ClassifyGene(g)
	require.NoError(t, err)
	return res
}

func TestClassifyGene_OneSidedDivergence(t *testing.T) {
	g := testGene(Plus, map[string][]string{
		"T1": {"1:1-100", "1:201-300", "1:401-500", "1:601-700"},
		"T2": {"1:1-100", "1:601-700"},
	})
	res := classify(t, g)
	assert.Empty(t, res.Internal, "T2 has no unique exons")
	assert.Zero(t, res.Len())
}

func TestClassifyGene_InternalTie(t *testing.T) {
	g := testGene(Plus, map[string][]string{
		"T1": {"1:1-100", "1:201-300", "1:601-700"},
		"T2": {"1:1-100", "1:401-500", "1:601-700"},
	})
	res := classify(t, g)
	require.Len(t, res.Internal, 1)
	assert.Empty(t, res.First)
	assert.Empty(t, res.Last)

	r := res.Internal[0]
	assert.Equal(t, Internal, r.Type)
	assert.Equal(t, "T2", r.IncludedTranscript, "ties go to the second transcript")
	assert.Equal(t, "T1", r.ExcludedTranscript)
	assert.Equal(t, []string{"1:401-500"}, keys(r.Included))
	assert.Equal(t, []string{"1:201-300"}, keys(r.Excluded))
	assert.Equal(t, "1:1-100", r.Upstream.String())
	assert.Equal(t, "1:601-700", r.Downstream.String())
	assert.Equal(t, Plus, r.Strand)
	assert.Equal(t, "ENSG00000000001", r.GeneID)
	assert.Equal(t, "GENE1", r.GeneName)
}

func TestClassifyGene_FirstExon(t *testing.T) {
	g := testGene(Plus, map[string][]string{
		"T1": {"1:1-50", "1:201-300", "1:401-500"},
		"T2": {"1:1-80", "1:201-300", "1:401-500"},
	})
	res := classify(t, g)
	assert.Empty(t, res.Internal, "divergence touches the 5' terminus")
	assert.Empty(t, res.Last)
	require.Len(t, res.First, 1)

	r := res.First[0]
	assert.Equal(t, First, r.Type)
	assert.Equal(t, "1:201-300", r.Downstream.String())
	assert.Equal(t, Exon{}, r.Upstream)
	assert.Equal(t, "T2", r.IncludedTranscript)
	assert.Equal(t, []string{"1:1-80"}, keys(r.Included))
	assert.Equal(t, []string{"1:1-50"}, keys(r.Excluded))
}

func TestClassifyGene_LastExonMinusStrand(t *testing.T) {
	g := testGene(Minus, map[string][]string{
		"T1": {"1:401-500", "1:201-300", "1:1-50"},
		"T2": {"1:401-500", "1:201-300", "1:1-80"},
	})
	res := classify(t, g)
	assert.Empty(t, res.Internal)
	assert.Empty(t, res.First, "5' exons are shared")
	require.Len(t, res.Last, 1)

	r := res.Last[0]
	assert.Equal(t, Last, r.Type)
	assert.Equal(t, "1:201-300", r.Upstream.String())
	assert.Equal(t, Exon{}, r.Downstream, "no downstream anchor at the 3' terminus")
	assert.Equal(t, "T2", r.IncludedTranscript)
	assert.Equal(t, []string{"1:1-80"}, keys(r.Included))
	assert.Equal(t, []string{"1:1-50"}, keys(r.Excluded))
	assert.Equal(t, Minus, r.Strand)

	fields := r.Fields()
	assert.Len(t, fields, len(Columns(Last)))
	assert.Equal(t, []string{"1:1-80", "1:1-50", "1:201-300", "-"}, fields[1:5])
}

func TestClassifyGene_InternalLargerSideIncluded(t *testing.T) {
	g := testGene(Plus, map[string][]string{
		"T1": {"1:1-100", "1:201-250", "1:301-350", "1:601-700"},
		"T2": {"1:1-100", "1:401-500", "1:601-700"},
	})
	res := classify(t, g)
	require.Len(t, res.Internal, 1)

	r := res.Internal[0]
	assert.Equal(t, "T1", r.IncludedTranscript)
	assert.Equal(t, []string{"1:201-250", "1:301-350"}, keys(r.Included))
	assert.Equal(t, []string{"1:401-500"}, keys(r.Excluded))
}

func TestClassifyGene_InternalTightestAnchors(t *testing.T) {
	g := testGene(Plus, map[string][]string{
		"T1": {"1:1-100", "1:151-180", "1:201-300", "1:601-700", "1:801-900"},
		"T2": {"1:1-100", "1:151-180", "1:401-500", "1:601-700", "1:801-900"},
	})
	res := classify(t, g)
	require.Len(t, res.Internal, 1)
	assert.Equal(t, "1:151-180", res.Internal[0].Upstream.String())
	assert.Equal(t, "1:601-700", res.Internal[0].Downstream.String())
}

func TestClassifyGene_InternalUsesBoundingInterval(t *testing.T) {
	// The shared exon 401-500 sits between unique exons; only the bounding
	// interval of all unique exons needs flanking shared exons.
	g := testGene(Plus, map[string][]string{
		"T1": {"1:1-100", "1:201-300", "1:401-500", "1:601-700", "1:901-1000"},
		"T2": {"1:1-100", "1:401-500", "1:701-800", "1:901-1000"},
	})
	res := classify(t, g)
	require.Len(t, res.Internal, 1)

	r := res.Internal[0]
	assert.Equal(t, "T1", r.IncludedTranscript)
	assert.Equal(t, []string{"1:201-300", "1:601-700"}, keys(r.Included))
	assert.Equal(t, []string{"1:701-800"}, keys(r.Excluded))
	assert.Equal(t, "1:1-100", r.Upstream.String())
	assert.Equal(t, "1:901-1000", r.Downstream.String())
}

func TestClassifyGene_InternalSkips(t *testing.T) {
	tests := []struct {
		name        string
		transcripts map[string][]string
	}{
		{
			name: "no shared exons",
			transcripts: map[string][]string{
				"T1": {"1:1-100", "1:201-300"},
				"T2": {"1:401-500", "1:601-700"},
			},
		},
		{
			name: "identical exon sets",
			transcripts: map[string][]string{
				"T1": {"1:1-100", "1:201-300", "1:401-500"},
				"T2": {"1:401-500", "1:1-100", "1:201-300"},
			},
		},
		{
			name: "no downstream flank",
			transcripts: map[string][]string{
				"T1": {"1:1-100", "1:201-300", "1:601-700"},
				"T2": {"1:1-100", "1:401-500"},
			},
		},
		{
			name: "no upstream flank",
			transcripts: map[string][]string{
				"T1": {"1:1-50", "1:201-300", "1:601-700"},
				"T2": {"1:1-80", "1:201-300", "1:601-700"},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := classify(t, testGene(Plus, tt.transcripts))
			assert.Empty(t, res.Internal)
		})
	}
}

func TestClassifyGene_FirstMinusStrand(t *testing.T) {
	g := testGene(Minus, map[string][]string{
		"T1": {"1:901-1000", "1:501-600", "1:301-400"},
		"T2": {"1:801-850", "1:701-750", "1:501-600", "1:301-400"},
	})
	res := classify(t, g)
	assert.Empty(t, res.Internal)
	assert.Empty(t, res.Last)
	require.Len(t, res.First, 1)

	r := res.First[0]
	assert.Equal(t, "T2", r.IncludedTranscript)
	assert.Equal(t, []string{"1:801-850", "1:701-750"}, keys(r.Included), "transcription order")
	assert.Equal(t, []string{"1:901-1000"}, keys(r.Excluded))
	assert.Equal(t, "1:501-600", r.Downstream.String())
}

func TestClassifyGene_FirstSkips(t *testing.T) {
	tests := []struct {
		name        string
		transcripts map[string][]string
	}{
		{
			name: "empty transcript",
			transcripts: map[string][]string{
				"T1": {},
				"T2": {"1:1-100", "1:201-300"},
			},
		},
		{
			name: "same first exon",
			transcripts: map[string][]string{
				"T1": {"1:1-100", "1:201-300", "1:401-500"},
				"T2": {"1:1-100", "1:251-300", "1:401-500"},
			},
		},
		{
			name: "one transcript starts at the shared exon",
			transcripts: map[string][]string{
				"T1": {"1:201-300", "1:401-500"},
				"T2": {"1:1-100", "1:201-300", "1:401-500"},
			},
		},
		{
			name: "no shared exons",
			transcripts: map[string][]string{
				"T1": {"1:1-100", "1:201-300"},
				"T2": {"1:51-120", "1:251-300"},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := classify(t, testGene(Plus, tt.transcripts))
			assert.Empty(t, res.First)
		})
	}
}

func TestClassifyGene_LastPlusStrand(t *testing.T) {
	g := testGene(Plus, map[string][]string{
		"T1": {"1:1-100", "1:201-300", "1:401-500", "1:701-800"},
		"T2": {"1:1-100", "1:301-350", "1:401-500", "1:601-650", "1:901-950"},
	})
	res := classify(t, g)
	assert.Empty(t, res.Internal, "divergence reaches the 3' terminus")
	assert.Empty(t, res.First)
	require.Len(t, res.Last, 1)

	r := res.Last[0]
	assert.Equal(t, "1:401-500", r.Upstream.String())
	assert.Equal(t, "T2", r.IncludedTranscript)
	assert.Equal(t, []string{"1:601-650", "1:901-950"}, keys(r.Included))
	assert.Equal(t, []string{"1:701-800"}, keys(r.Excluded))
}

func TestClassifyGene_LastSkips(t *testing.T) {
	tests := []struct {
		name        string
		transcripts map[string][]string
	}{
		{
			name: "same last exon",
			transcripts: map[string][]string{
				"T1": {"1:1-100", "1:201-300", "1:401-500"},
				"T2": {"1:1-100", "1:251-300", "1:401-500"},
			},
		},
		{
			name: "one transcript ends at the shared exon",
			transcripts: map[string][]string{
				"T1": {"1:1-100", "1:201-300"},
				"T2": {"1:1-100", "1:201-300", "1:401-500"},
			},
		},
		{
			name: "empty transcript",
			transcripts: map[string][]string{
				"T1": {"1:1-100", "1:201-300"},
				"T2": nil,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := classify(t, testGene(Plus, tt.transcripts))
			assert.Empty(t, res.Last)
		})
	}
}

func TestClassifyGene_TieBreakFollowsSortedIDs(t *testing.T) {
	// Map order is irrelevant: TX_A sorts first, so TX_B wins the tie.
	g := testGene(Plus, map[string][]string{
		"TX_B": {"1:1-100", "1:201-300", "1:601-700"},
		"TX_A": {"1:1-100", "1:401-500", "1:601-700"},
	})
	for range 10 {
		res := classify(t, g)
		require.Len(t, res.Internal, 1)
		assert.Equal(t, "TX_B", res.Internal[0].IncludedTranscript)
		assert.Equal(t, []string{"1:201-300"}, keys(res.Internal[0].Included))
	}
}

func TestClassifyGene_NoIntrons(t *testing.T) {
	g := testGene(Plus, map[string][]string{
		"T1": {"1:1-100", "1:201-300", "1:601-700"},
		"T2": {"1:1-100", "1:401-500", "1:601-700"},
	})
	g.HasIntrons = false

	res := classify(t, g)
	assert.Zero(t, res.Len())
}

func TestClassifyGene_MalformedExon(t *testing.T) {
	g := testGene(Plus, map[string][]string{
		"T1": {"1:1-100", "1:201-300"},
		"T2": {"1:1-100", "1:four-500"},
	})
	_, err := ClassifyGene(g)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidExon))
	assert.Contains(t, err.Error(), "T2")
}

// manyTranscriptGene builds a gene with overlapping alternative structures.
func manyTranscriptGene(strand Strand) *Gene {
	return testGene(strand, map[string][]string{
		"T01": {"1:1-100", "1:201-300", "1:601-700", "1:901-1000"},
		"T02": {"1:1-100", "1:401-500", "1:601-700", "1:901-1000"},
		"T03": {"1:1-100", "1:351-380", "1:451-480", "1:601-700", "1:1101-1200"},
		"T04": {"1:51-100", "1:151-170", "1:601-700", "1:901-1000"},
		"T05": {"1:21-60", "1:201-300", "1:601-700", "1:1201-1300", "1:1401-1500"},
		"T06": {"1:1-100", "1:601-700"},
		"T07": {"1:1-100", "1:201-300", "1:401-500", "1:601-700", "1:1101-1200"},
	})
}

func TestClassifyGene_Properties(t *testing.T) {
	for _, strand := range []Strand{Plus, Minus} {
		t.Run(strand.String(), func(t *testing.T) {
			res := classify(t, manyTranscriptGene(strand))
			require.NotZero(t, res.Len())

			for _, typ := range Types {
				for _, r := range res.Records(typ) {
					require.NotEmpty(t, r.Included)
					require.NotEmpty(t, r.Excluded)
					assert.GreaterOrEqual(t, len(r.Included), len(r.Excluded))
					if len(r.Included) == len(r.Excluded) {
						assert.Greater(t, r.IncludedTranscript, r.ExcludedTranscript,
							"ties must include the later transcript")
					}
				}
			}

			for _, r := range res.Internal {
				minPos, maxPos := span(r.Included, r.Excluded)
				assert.Less(t, r.Upstream.End, minPos)
				assert.Greater(t, r.Downstream.Start, maxPos)
			}
		})
	}
}

func TestClassifyGene_Deterministic(t *testing.T) {
	render := func() []string {
		res := classify(t, manyTranscriptGene(Minus))
		var rows []string
		for _, typ := range Types {
			for _, r := range res.Records(typ) {
				rows = append(rows, fmt.Sprint(r.Fields()))
			}
		}
		return rows
	}
	first := render()
	for range 5 {
		assert.Equal(t, first, render())
	}
}

func TestRecord_FieldsAndID(t *testing.T) {
	g := testGene(Plus, map[string][]string{
		"T1": {"1:1-100", "1:201-300", "1:601-700"},
		"T2": {"1:1-100", "1:401-500", "1:601-700"},
	})
	r := classify(t, g).Internal[0]

	fields := r.Fields()
	require.Len(t, fields, len(Columns(Internal)))
	assert.Equal(t, r.ID(), fields[0])
	assert.Regexp(t, `^CO_[0-9a-f]{16}$`, r.ID())
	assert.Equal(t, []string{
		"1:401-500", "1:201-300", "1:1-100", "1:601-700",
		"+", "ENSG00000000001", "GENE1", "T2", "T1",
	}, fields[1:])

	other := *r
	other.GeneName = "OTHER"
	assert.NotEqual(t, r.ID(), other.ID())
}

func TestColumns(t *testing.T) {
	assert.Equal(t, []string{
		"event_id", "included_exons", "excluded_exons", "pre_exon", "post_exon",
		"strand", "gene_id", "gene_name", "included_transcript", "excluded_transcript",
	}, Columns(Internal))
	assert.Contains(t, Columns(First), "post_exon")
	assert.NotContains(t, Columns(First), "pre_exon")
	assert.Contains(t, Columns(Last), "pre_exon")
	assert.NotContains(t, Columns(Last), "post_exon")
}

// recordingWriter collects records for assertions.
type recordingWriter struct {
	records []*Record
	flushed bool
	failAt  int
}

func (w *recordingWriter) Write(r *Record) error {
	if w.failAt > 0 && len(w.records)+1 == w.failAt {
		return fmt.Errorf("disk full")
	}
	w.records = append(w.records, r)
	return nil
}

func (w *recordingWriter) Flush() error {
	w.flushed = true
	return nil
}

func makeGenes(n int) []*Gene {
	genes := make([]*Gene, n)
	for i := range n {
		g := testGene(Plus, map[string][]string{
			"T1": {"1:1-100", "1:201-300", "1:601-700"},
			"T2": {"1:1-100", "1:401-500", "1:601-700"},
		})
		g.ID = fmt.Sprintf("ENSG%011d", i)
		genes[i] = g
	}
	return genes
}

func TestClassifier_ClassifyAll_Ordered(t *testing.T) {
	genes := makeGenes(100)
	c := NewClassifier()
	c.SetWorkers(8)
	c.SetLogger(zap.NewNop())

	w := &recordingWriter{}
	stats, err := c.ClassifyAll(genes, w)
	require.NoError(t, err)
	assert.True(t, w.flushed)

	assert.Equal(t, 100, stats.Genes)
	assert.Equal(t, 100, stats.Classified)
	assert.Equal(t, 100, stats.Events[Internal])
	require.Len(t, w.records, 100)

	ids := make([]string, len(w.records))
	for i, r := range w.records {
		ids[i] = r.GeneID
	}
	assert.True(t, sort.StringsAreSorted(ids), "records follow gene input order")
}

func TestClassifier_ClassifyAll_SkipsMalformedGene(t *testing.T) {
	genes := makeGenes(3)
	genes[1].Transcripts["T3"] = []string{"1:1-100", "garbage"}
	genes[2].HasIntrons = false

	c := NewClassifier()
	c.SetWorkers(2)

	w := &recordingWriter{}
	stats, err := c.ClassifyAll(genes, w)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Genes)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 1, stats.Classified)
	require.Len(t, w.records, 1)
	assert.Equal(t, genes[0].ID, w.records[0].GeneID)
}

func TestClassifier_ClassifyAll_WriteError(t *testing.T) {
	c := NewClassifier()
	c.SetWorkers(0)

	w := &recordingWriter{failAt: 3}
	_, err := c.ClassifyAll(makeGenes(20), w)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.False(t, w.flushed)
}
