// Package workerpool runs a queue of jobs across a fixed number of
// goroutines. Used for shard-parallel IO and data-parallel training replicas.
package workerpool

import (
	"sync"

	"github.com/sentiml/sentiml/errors"
)

// Job is a unit of work submitted to the pool.
type Job func() error

// Pool runs submitted jobs on a fixed number of worker goroutines.
type Pool struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []Job
	stopped bool
	errs    errors.Errors
	wg      sync.WaitGroup
}

// New creates a pool with n workers.
func New(n int) *Pool {
	p := &Pool{}
	p.cond = sync.NewCond(&p.mu)
	for i := 0; i < n; i++ {
		go p.worker()
	}
	return p
}

// Add submits jobs to the pool.
func (p *Pool) Add(jobs []Job) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}
	p.queue = append(p.queue, jobs...)
	p.wg.Add(len(jobs))
	p.cond.Broadcast()
}

// Stop discards any jobs that have not yet started. Jobs already running are
// allowed to finish.
func (p *Pool) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped = true
	p.wg.Add(-len(p.queue))
	p.queue = nil
	p.cond.Broadcast()
}

// Wait blocks until all submitted jobs have completed (or were discarded by
// Stop) and returns the combined error of any failed jobs.
func (p *Pool) Wait() error {
	p.wg.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.errs == nil {
		return nil
	}
	return p.errs
}

func (p *Pool) worker() {
	for {
		p.mu.Lock()
		for len(p.queue) == 0 {
			if p.stopped {
				p.mu.Unlock()
				return
			}
			p.cond.Wait()
		}
		job := p.queue[0]
		p.queue = p.queue[1:]
		p.mu.Unlock()

		err := job()

		p.mu.Lock()
		if err != nil {
			p.errs = errors.Append(p.errs, err)
		}
		p.mu.Unlock()
		p.wg.Done()
	}
}
