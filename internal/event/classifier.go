package event

import (
	"errors"
	"fmt"
	"runtime"

	"go.uber.org/zap"
)

// Result holds the events found in one gene, one list per event type, each
// in transcript pair enumeration order.
type Result struct {
	Gene     *Gene
	Internal []*Record
	First    []*Record
	Last     []*Record
}

// Records returns the records of the given type.
func (r *Result) Records(t Type) []*Record {
	switch t {
	case Internal:
		return r.Internal
	case First:
		return r.First
	case Last:
		return r.Last
	}
	return nil
}

// Len returns the total number of events in the result.
func (r *Result) Len() int {
	return len(r.Internal) + len(r.First) + len(r.Last)
}

// ClassifyGene runs the CO, CF and CL classifiers over every transcript pair
// of g. Genes without introns yield an empty result. Pairs that do not
// qualify are skipped silently; only a malformed exon identity is an error.
func ClassifyGene(g *Gene) (*Result, error) {
	res := &Result{Gene: g}
	if !g.HasIntrons {
		return res, nil
	}

	ts, err := g.parseTranscripts()
	if err != nil {
		return nil, err
	}

	forEachPair(ts, func(a, b *transcript) {
		if r, ok := classifyInternal(g, a, b); ok {
			res.Internal = append(res.Internal, r)
		}
		if r, ok := classifyFirst(g, a, b); ok {
			res.First = append(res.First, r)
		}
		if r, ok := classifyLast(g, a, b); ok {
			res.Last = append(res.Last, r)
		}
	})
	return res, nil
}

// RecordWriter receives classified events.
type RecordWriter interface {
	Write(r *Record) error
	Flush() error
}

// Stats summarizes a classification run.
type Stats struct {
	Genes      int // genes seen
	Classified int // genes with introns that were classified
	Failed     int // genes dropped because of a malformed exon identity
	Events     map[Type]int
}

// Classifier classifies genes in parallel while keeping output order stable.
type Classifier struct {
	workers int
	logger  *zap.Logger
}

// NewClassifier creates a classifier using one worker per CPU.
func NewClassifier() *Classifier {
	return &Classifier{
		workers: runtime.NumCPU(),
		logger:  zap.NewNop(),
	}
}

// SetWorkers sets the number of worker goroutines. Values below 1 mean one
// worker per CPU.
func (c *Classifier) SetWorkers(n int) {
	if n < 1 {
		n = runtime.NumCPU()
	}
	c.workers = n
}

// SetLogger sets the logger for warning and info messages.
func (c *Classifier) SetLogger(l *zap.Logger) {
	c.logger = l
}

// ClassifyAll classifies genes and writes their events to w in gene order.
// Genes with a malformed exon identity are logged and skipped.
func (c *Classifier) ClassifyAll(genes []*Gene, w RecordWriter) (*Stats, error) {
	stats := &Stats{Events: make(map[Type]int)}

	err := inOrder(c.classifyConcurrently(genes), func(o outcome) error {
		g := o.res.Gene
		stats.Genes++
		if o.err != nil {
			if !errors.Is(o.err, ErrInvalidExon) {
				return fmt.Errorf("classify gene %s: %w", g.ID, o.err)
			}
			stats.Failed++
			c.logger.Warn("skipping gene with malformed exon",
				zap.String("gene_id", g.ID),
				zap.String("gene_name", g.Name),
				zap.Error(o.err))
			return nil
		}
		if g.HasIntrons {
			stats.Classified++
		}
		for _, t := range Types {
			for _, rec := range o.res.Records(t) {
				if err := w.Write(rec); err != nil {
					return fmt.Errorf("write event: %w", err)
				}
				stats.Events[t]++
			}
		}
		return nil
	})
	if err != nil {
		return stats, err
	}

	c.logger.Info("classification complete",
		zap.Int("genes", stats.Genes),
		zap.Int("classified", stats.Classified),
		zap.Int("failed", stats.Failed),
		zap.Int("CO", stats.Events[Internal]),
		zap.Int("CL", stats.Events[Last]),
		zap.Int("CF", stats.Events[First]))

	return stats, w.Flush()
}
