package event

import (
	"sync"
)

// outcome is the classification of one gene, tagged with the gene's index
// in the input slice. res is never nil; on error it carries only the gene.
type outcome struct {
	seq int
	res *Result
	err error
}

// classifyConcurrently fans genes out to c.workers goroutines. Outcomes
// arrive in completion order; inOrder restores input order.
func (c *Classifier) classifyConcurrently(genes []*Gene) <-chan outcome {
	workers := max(1, min(c.workers, len(genes)))
	next := make(chan int, workers)
	out := make(chan outcome, 2*workers)

	go func() {
		defer close(next)
		for i := range genes {
			next <- i
		}
	}()

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range next {
				res, err := ClassifyGene(genes[i])
				if err != nil {
					res = &Result{Gene: genes[i]}
				}
				out <- outcome{seq: i, res: res, err: err}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

// inOrder calls fn for each outcome in input order, holding back early
// arrivals until their predecessors are done. When fn fails the channel is
// drained so that workers can exit.
func inOrder(outcomes <-chan outcome, fn func(outcome) error) error {
	held := make(map[int]outcome)
	want := 0

	for o := range outcomes {
		held[o.seq] = o
		for {
			ready, ok := held[want]
			if !ok {
				break
			}
			delete(held, want)
			want++
			if err := fn(ready); err != nil {
				for range outcomes {
				}
				return err
			}
		}
	}
	return nil
}
