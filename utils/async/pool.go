package async

import (
	"context"
	"errors"
	"log"
	"sync"
)

// ErrPoolFull is returned by Submit when the task queue is at capacity.
var ErrPoolFull = errors.New("worker pool queue is full")

// ErrPoolClosed is returned by Submit after Close.
var ErrPoolClosed = errors.New("worker pool is closed")

type task func()

// Pool runs submitted tasks on a fixed number of workers fed by a bounded queue.
type Pool struct {
	tasks  chan task
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool

	// OnReject, if set, is called whenever a submission is refused.
	OnReject func(err error)
}

// NewPool starts workers goroutines sharing a queue of queueSize pending tasks.
func NewPool(workers, queueSize int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	p := &Pool{tasks: make(chan task, queueSize)}
	p.wg.Add(workers)
	for id := 0; id < workers; id++ {
		go p.worker(id)
	}
	return p
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	for t := range p.tasks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("[Pool] worker %d recovered from panic: %v", id, r)
				}
			}()
			t()
		}()
	}
}

// Pending returns the number of queued tasks not yet picked up by a worker.
func (p *Pool) Pending() int {
	return len(p.tasks)
}

// Close stops accepting tasks and waits for queued ones to finish.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Pool) enqueue(t task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case p.tasks <- t:
		return nil
	default:
		return ErrPoolFull
	}
}

// Submit queues fn on the pool and returns its future immediately. Submit never blocks:
// when the queue is full or the pool is closed the returned future has already failed.
// fn is skipped if ctx is done by the time a worker picks it up.
func Submit[T any](ctx context.Context, p *Pool, fn func(ctx context.Context) (T, error)) *Future[T] {
	f, complete := NewFuture[T]()
	err := p.enqueue(func() {
		if err := ctx.Err(); err != nil {
			var zero T
			complete(zero, err)
			return
		}
		run(func() (T, error) { return fn(ctx) }, complete)
	})
	if err != nil {
		if p.OnReject != nil {
			p.OnReject(err)
		}
		var zero T
		complete(zero, err)
	}
	return f
}
