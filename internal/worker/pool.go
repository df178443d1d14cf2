// Package worker runs evaluation cases in parallel and throttles outbound requests.
package worker

import (
	"context"
	"sync"
)

// Job represents a unit of work to be executed
type Job interface {
	Execute(ctx context.Context) Result
}

// Result represents the result of a job execution
type Result interface {
	GetError() error
}

// Pool runs jobs on a fixed number of workers.
// Cancellation is checked between jobs only: a job that has started runs to
// completion with a context that is never cancelled by the pool.
type Pool struct {
	workers    int
	jobQueue   chan Job
	results    chan Result
	wg         sync.WaitGroup
	ctx        context.Context
	cancelFunc context.CancelFunc
	closeOnce  sync.Once
	skipCount  int
	skipMu     sync.Mutex
}

// NewPool creates a pool whose lifetime is bounded by parent
func NewPool(parent context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(parent)

	return &Pool{
		workers:    workers,
		jobQueue:   make(chan Job, workers*2),
		results:    make(chan Result, workers*2),
		ctx:        ctx,
		cancelFunc: cancel,
	}
}

// Start starts the worker goroutines
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for job := range p.jobQueue {
		if p.ctx.Err() != nil {
			p.skip()
			continue
		}
		// Started jobs are not interrupted
		result := job.Execute(context.WithoutCancel(p.ctx))
		p.results <- result
	}
}

func (p *Pool) skip() {
	p.skipMu.Lock()
	p.skipCount++
	p.skipMu.Unlock()
}

// Submit queues a job; it returns false once the pool has been cancelled
func (p *Pool) Submit(job Job) bool {
	if p.ctx.Err() != nil {
		return false
	}
	select {
	case <-p.ctx.Done():
		return false
	case p.jobQueue <- job:
		return true
	}
}

// Results streams results as jobs finish. The channel closes after Close
// once every queued job has been executed or skipped.
func (p *Pool) Results() <-chan Result {
	return p.results
}

// Close stops accepting jobs and closes Results when the workers drain
func (p *Pool) Close() {
	close(p.jobQueue)
	go func() {
		p.wg.Wait()
		p.closeResults()
	}()
}

// Feed submits jobs in order from a background goroutine and closes the
// pool afterwards. Jobs left unsubmitted after cancellation count as skipped.
func (p *Pool) Feed(jobs []Job) {
	go func() {
		for i, job := range jobs {
			if !p.Submit(job) {
				p.skipMu.Lock()
				p.skipCount += len(jobs) - i
				p.skipMu.Unlock()
				break
			}
		}
		p.Close()
	}()
}

// Skipped returns how many jobs were dropped after cancellation.
// It is final once Results has been closed.
func (p *Pool) Skipped() int {
	p.skipMu.Lock()
	defer p.skipMu.Unlock()
	return p.skipCount
}

func (p *Pool) closeResults() {
	p.closeOnce.Do(func() {
		p.cancelFunc()
		close(p.results)
	})
}
