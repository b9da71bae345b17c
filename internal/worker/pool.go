// Package worker runs document reviews on a bounded pool of goroutines.
package worker

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Job represents a unit of work to be executed
type Job interface {
	Execute(ctx context.Context) Result
}

// Result represents the result of a job execution
type Result interface {
	GetError() error
}

// SkippedResult stands in for a job that never ran because the pool was
// cancelled or the rate limiter gave up.
type SkippedResult struct {
	Err error
}

// GetError returns why the job was skipped
func (r *SkippedResult) GetError() error {
	return r.Err
}

type indexedJob struct {
	idx int
	job Job
}

type indexedResult struct {
	idx    int
	result Result
}

// Pool manages a pool of workers that execute jobs concurrently. Results are
// drained as they arrive, so Submit never blocks on unread results, and Wait
// returns them in submission order.
type Pool struct {
	workers  int
	limiter  *rate.Limiter
	jobQueue chan indexedJob
	results  chan indexedResult

	mu        sync.Mutex
	submitted int
	collected []Result

	wg            sync.WaitGroup
	collectorDone chan struct{}
	ctx           context.Context
	cancelFunc    context.CancelFunc
	closeOnce     sync.Once
	resultsOnce   sync.Once
}

// Option configures a Pool
type Option func(*Pool)

// WithRate caps how many jobs start per second; zero or less means unlimited.
func WithRate(perSecond float64) Option {
	return func(p *Pool) {
		if perSecond > 0 {
			p.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// NewPool creates a new worker pool with the specified number of workers.
// Jobs see a context derived from ctx.
func NewPool(ctx context.Context, workers int, opts ...Option) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, cancel := context.WithCancel(ctx)

	p := &Pool{
		workers:       workers,
		jobQueue:      make(chan indexedJob, workers*2),
		results:       make(chan indexedResult, workers*2),
		collectorDone: make(chan struct{}),
		ctx:           ctx,
		cancelFunc:    cancel,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start starts the workers and the result collector
func (p *Pool) Start() {
	go p.collect()
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for ij := range p.jobQueue {
		p.results <- indexedResult{idx: ij.idx, result: p.run(ij.job)}
	}
}

// run executes one job unless the pool is cancelled first
func (p *Pool) run(job Job) Result {
	if err := p.ctx.Err(); err != nil {
		return &SkippedResult{Err: err}
	}
	if p.limiter != nil {
		if err := p.limiter.Wait(p.ctx); err != nil {
			return &SkippedResult{Err: err}
		}
	}
	return job.Execute(p.ctx)
}

func (p *Pool) collect() {
	defer close(p.collectorDone)
	for r := range p.results {
		p.mu.Lock()
		for len(p.collected) <= r.idx {
			p.collected = append(p.collected, nil)
		}
		p.collected[r.idx] = r.result
		p.mu.Unlock()
	}
}

// Submit queues a job. It must not be called after Wait or Shutdown.
func (p *Pool) Submit(job Job) {
	p.mu.Lock()
	idx := p.submitted
	p.submitted++
	p.mu.Unlock()

	select {
	case p.jobQueue <- indexedJob{idx: idx, job: job}:
	case <-p.ctx.Done():
		// slot is filled with a SkippedResult by Wait
	}
}

// Wait waits for all submitted jobs and returns one result per Submit call,
// in submission order.
func (p *Pool) Wait() []Result {
	p.closeQueue()
	p.wg.Wait()
	p.closeResults()
	<-p.collectorDone

	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Result, p.submitted)
	copy(out, p.collected)
	for i, r := range out {
		if r == nil {
			err := p.ctx.Err()
			if err == nil {
				err = context.Canceled
			}
			out[i] = &SkippedResult{Err: err}
		}
	}
	p.cancelFunc()
	return out
}

// Shutdown cancels pending jobs and waits for running ones to return
func (p *Pool) Shutdown() {
	p.cancelFunc()
	p.closeQueue()
	p.wg.Wait()
	p.closeResults()
	<-p.collectorDone
}

func (p *Pool) closeQueue() {
	p.closeOnce.Do(func() {
		close(p.jobQueue)
	})
}

func (p *Pool) closeResults() {
	p.resultsOnce.Do(func() {
		close(p.results)
	})
}
