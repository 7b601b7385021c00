// Package respool implements the pool registry and dispatcher backbone of
// the resource manager: a named set of bounded worker pools
// fronted by a priority queue for major compactions, each
// pool wrapped in a tracing decorator that propagates a trace context
// captured at submission time to the worker.
package respool

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/willmurnane/tabletrm/pkg/rmtrace"
)

// Pool is a bounded, named worker pool. Submitted tasks run on their own
// goroutine once a semaphore slot is free; the pool's queue discipline
// decides which pending task gets the next slot.
type Pool struct {
	spec   Spec
	queue  taskQueue
	sem    *resizableSemaphore
	tracer rmtrace.Telemetry

	closed bool
	mu     sync.Mutex // guards closed
	wg     sync.WaitGroup
}

func newPool(spec Spec, tracer rmtrace.Telemetry) *Pool {
	var q taskQueue
	if spec.Discipline == Priority {
		q = newPriorityQueue()
	} else {
		q = newFIFOQueue()
	}

	p := &Pool{
		spec:   spec,
		queue:  q,
		sem:    newResizableSemaphore(spec.Max),
		tracer: tracer,
	}
	p.wg.Add(1)
	go p.dispatchLoop()
	return p
}

// Name returns the pool's registered name.
func (p *Pool) Name() string { return p.spec.Name }

// Spec returns the specification the pool was registered with. Max may be
// stale relative to MaxWorkers if a resize has occurred since.
func (p *Pool) Spec() Spec { return p.spec }

// MaxWorkers returns the pool's current live concurrency limit.
func (p *Pool) MaxWorkers() int { return p.sem.Capacity() }

// QueueLen returns the number of tasks waiting for a worker slot.
func (p *Pool) QueueLen() int { return p.queue.len() }

// SetMaxWorkers changes the pool's concurrency limit immediately.
func (p *Pool) SetMaxWorkers(max int) { p.sem.SetCapacity(max) }

// Submit enqueues task for execution, honoring the pool's queue discipline.
// rank only matters for a Priority pool; FIFO pools ignore it. The context
// passed to task carries the span opened at submission time, not at the
// time the worker actually runs.
func (p *Pool) Submit(task func(context.Context), rank int) error {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return ErrPoolClosed
	}

	ctx, span := p.tracer.StartSpan(context.Background(), "respool.submit."+p.spec.Name,
		attribute.String(rmtrace.AttrPool, p.spec.Name))

	p.queue.push(taskEntry{
		run: func() {
			defer span.End()
			task(ctx)
		},
		rank: rank,
	})
	return nil
}

func (p *Pool) dispatchLoop() {
	defer p.wg.Done()
	for {
		entry, ok := p.queue.pop()
		if !ok {
			return
		}
		p.sem.Acquire()
		p.wg.Add(1)
		go func(e taskEntry) {
			defer p.wg.Done()
			defer p.sem.Release()
			e.run()
		}(entry)
	}
}

// Shutdown stops the pool from accepting new work and unblocks its
// dispatcher loop; in-flight and already-queued tasks still run to
// completion. Call AwaitTermination to wait for that draining to finish.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.queue.close()
}

// AwaitTermination blocks until every dispatched task (and the dispatcher
// loop itself) has finished, or timeout elapses, returning which happened.
func (p *Pool) AwaitTermination(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
