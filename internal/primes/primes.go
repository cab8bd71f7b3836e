// Package primes scans [2, max] for prime numbers with a pool of
// goroutines. Three strategies split the same work differently: range
// hands each worker a contiguous chunk and reports primes as they are
// found, batch collects per-worker results and consolidates them at
// the end, queue feeds candidates one by one through a shared channel.
package primes

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Strategy selects how work is divided between workers.
type Strategy string

const (
	StrategyRange Strategy = "range" // contiguous chunks, primes reported as found
	StrategyBatch Strategy = "batch" // contiguous chunks, results consolidated at the end
	StrategyQueue Strategy = "queue" // candidates streamed over a shared channel
)

// Strategies lists the accepted strategy names, for CLI selectors.
func Strategies() []string {
	return []string{string(StrategyRange), string(StrategyBatch), string(StrategyQueue)}
}

// queueDepth bounds the candidate channel so the producer cannot run
// arbitrarily far ahead of the workers.
const queueDepth = 256

// Options configures a scan.
type Options struct {
	Max     int64 // highest candidate, inclusive
	Workers int
	Log     *zap.Logger // receives one entry per prime for range/queue; nil silences them
}

// Result reports what a scan found.
type Result struct {
	Strategy  Strategy
	Max       int64
	Workers   int
	Total     int
	PerWorker []int     // primes found by each worker
	Batches   [][]int64 // per-worker primes, in scan order; batch strategy only
	Elapsed   time.Duration
}

// IsPrime reports whether n is prime. Trial division over 6k±1
// candidates, good enough for the ranges this tool scans.
func IsPrime(n int64) bool {
	if n <= 1 {
		return false
	}
	if n <= 3 {
		return true
	}
	if n%2 == 0 || n%3 == 0 {
		return false
	}
	for i := int64(5); i*i <= n; i += 6 {
		if n%i == 0 || n%(i+2) == 0 {
			return false
		}
	}
	return true
}

// span is a contiguous inclusive range of candidates.
type span struct {
	lo, hi int64
}

// splitRange divides [2, max] into up to workers contiguous spans. The
// last span absorbs the remainder; when max < workers a single span
// covers everything.
func splitRange(max int64, workers int) []span {
	chunk := max / int64(workers)
	if chunk == 0 {
		return []span{{2, max}}
	}
	spans := make([]span, 0, workers)
	for i := 0; i < workers; i++ {
		lo := int64(i)*chunk + 1
		hi := int64(i+1) * chunk
		if i == 0 {
			lo = 2
		}
		if i == workers-1 {
			hi = max
		}
		spans = append(spans, span{lo, hi})
	}
	return spans
}

// Run executes a scan and blocks until every worker has finished.
func Run(strategy Strategy, opts Options) (*Result, error) {
	if opts.Workers < 1 {
		return nil, fmt.Errorf("workers must be at least 1, got %d", opts.Workers)
	}
	if opts.Max < 2 {
		return nil, fmt.Errorf("max must be at least 2, got %d", opts.Max)
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}

	res := &Result{Strategy: strategy, Max: opts.Max, Workers: opts.Workers}
	start := time.Now()
	switch strategy {
	case StrategyRange:
		runRange(opts, res)
	case StrategyBatch:
		runBatch(opts, res)
	case StrategyQueue:
		runQueue(opts, res)
	default:
		return nil, fmt.Errorf("unknown strategy %q", strategy)
	}
	res.Elapsed = time.Since(start)

	for _, n := range res.PerWorker {
		res.Total += n
	}
	return res, nil
}

// runRange scans contiguous chunks, one goroutine each, reporting
// primes the moment they are found.
func runRange(opts Options, res *Result) {
	spans := splitRange(opts.Max, opts.Workers)
	res.PerWorker = make([]int, len(spans))

	var wg sync.WaitGroup
	for i, sp := range spans {
		wg.Add(1)
		go func(id int, sp span) {
			defer wg.Done()
			found := 0
			for v := sp.lo; v <= sp.hi; v++ {
				if IsPrime(v) {
					found++
					opts.Log.Info("found prime", zap.Int("worker", id), zap.Int64("prime", v))
				}
			}
			res.PerWorker[id] = found
		}(i, sp)
	}
	wg.Wait()
}

// runBatch scans the same chunks but stays silent until every worker
// is done; callers print the consolidated Batches afterwards.
func runBatch(opts Options, res *Result) {
	spans := splitRange(opts.Max, opts.Workers)
	res.PerWorker = make([]int, len(spans))
	res.Batches = make([][]int64, len(spans))

	var wg sync.WaitGroup
	for i, sp := range spans {
		wg.Add(1)
		go func(id int, sp span) {
			defer wg.Done()
			var batch []int64
			for v := sp.lo; v <= sp.hi; v++ {
				if IsPrime(v) {
					batch = append(batch, v)
				}
			}
			res.Batches[id] = batch
			res.PerWorker[id] = len(batch)
		}(i, sp)
	}
	wg.Wait()
}

// runQueue streams every candidate through one channel; whichever
// worker is free picks up the next number. Closing the channel is the
// end-of-work signal.
func runQueue(opts Options, res *Result) {
	res.PerWorker = make([]int, opts.Workers)
	tasks := make(chan int64, queueDepth)

	var wg sync.WaitGroup
	for i := 0; i < opts.Workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			found := 0
			for v := range tasks {
				if IsPrime(v) {
					found++
					opts.Log.Info("found prime", zap.Int("worker", id), zap.Int64("prime", v))
				}
			}
			res.PerWorker[id] = found
		}(i)
	}

	for v := int64(2); v <= opts.Max; v++ {
		tasks <- v
	}
	close(tasks)
	wg.Wait()
}
