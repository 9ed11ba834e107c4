package search

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/oisee/algopt/pkg/inst"
)

// WorkerPool evaluates batches of candidates in parallel. Each worker owns
// a Checker, so workers share nothing but the read-only Oracle.
type WorkerPool struct {
	NumWorkers int
	checkers   []*Checker
	checked    atomic.Int64
	found      atomic.Int64
}

// NewWorkerPool creates a pool with the given number of workers.
func NewWorkerPool(o *Oracle, numWorkers int) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	wp := &WorkerPool{NumWorkers: numWorkers}
	for i := 0; i < numWorkers; i++ {
		wp.checkers = append(wp.checkers, o.NewChecker())
	}
	return wp
}

// Stats returns search statistics.
func (wp *WorkerPool) Stats() (checked, found int64) {
	return wp.checked.Load(), wp.found.Load()
}

// RunBatch checks every program of batch and stores verdict i in out[i].
// Verdicts land at the index of their candidate, so the caller can merge
// them in enumeration order whatever order the workers finish in.
func (wp *WorkerPool) RunBatch(batch []inst.Program, out []Verdict) {
	if wp.NumWorkers == 1 || len(batch) == 1 {
		for i := range batch {
			out[i] = wp.check(wp.checkers[0], batch[i])
		}
		return
	}

	ch := make(chan int, len(batch))
	for i := range batch {
		ch <- i
	}
	close(ch)

	var wg sync.WaitGroup
	for w := 0; w < wp.NumWorkers; w++ {
		wg.Add(1)
		go func(c *Checker) {
			defer wg.Done()
			for i := range ch {
				out[i] = wp.check(c, batch[i])
			}
		}(wp.checkers[w])
	}
	wg.Wait()
}

func (wp *WorkerPool) check(c *Checker, p inst.Program) Verdict {
	v := c.Check(p)
	wp.checked.Add(1)
	if v.Equivalent {
		wp.found.Add(1)
	}
	return v
}
