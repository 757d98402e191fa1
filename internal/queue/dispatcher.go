package queue

import (
	"context"
	"errors"
	"sync"
)

// ErrStopped indicates the dispatcher no longer accepts jobs.
var ErrStopped = errors.New("dispatcher stopped")

// Job carries one document's processing inputs. Data must be an owned copy;
// callers may not reuse the slice after Submit.
type Job struct {
	DocumentID string
	FileName   string
	Data       []byte
}

// ProcessFunc executes one job to completion.
type ProcessFunc func(ctx context.Context, job Job)

// Dispatcher runs jobs on a bounded pool of workers, decoupled from the
// request lifecycle of the caller.
type Dispatcher struct {
	jobs    chan Job
	process ProcessFunc

	mu      sync.Mutex
	stopped bool
	wg      sync.WaitGroup
}

// NewDispatcher builds a dispatcher with the given worker count and starts
// the workers. Workers run each job with a background context; a job is
// never cancelled once accepted.
func NewDispatcher(workers int, process ProcessFunc) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	d := &Dispatcher{
		jobs:    make(chan Job, workers*16),
		process: process,
	}
	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go d.worker()
	}
	return d
}

// Submit enqueues a job. It blocks while the buffer is saturated and
// returns ErrStopped after Shutdown.
func (d *Dispatcher) Submit(job Job) error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return ErrStopped
	}
	// Holding the lock across the send keeps Shutdown's close safe.
	defer d.mu.Unlock()
	d.jobs <- job
	return nil
}

// Shutdown stops accepting jobs and waits for queued and in-flight jobs
// to drain, or for ctx to expire.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if !d.stopped {
		d.stopped = true
		close(d.jobs)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for job := range d.jobs {
		d.process(context.Background(), job)
	}
}
