package task

import (
	"context"
	"sync"
)

// Queue is a serial UI-style loop: workers Post, the owning goroutine runs
// the posted functions in order.
type Queue struct {
	mu      sync.Mutex
	pending []func()
	signal  chan struct{}
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{signal: make(chan struct{}, 1)}
}

// Post enqueues fn. It never blocks and satisfies Dispatcher.
func (q *Queue) Post(fn func()) {
	q.mu.Lock()
	q.pending = append(q.pending, fn)
	q.mu.Unlock()
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// Drain runs everything currently queued and returns how many ran.
func (q *Queue) Drain() int {
	q.mu.Lock()
	batch := q.pending
	q.pending = nil
	q.mu.Unlock()
	for _, fn := range batch {
		fn()
	}
	return len(batch)
}

// Next blocks until at least one function is queued, then drains.
func (q *Queue) Next(ctx context.Context) error {
	for {
		if q.Drain() > 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-q.signal:
		}
	}
}

// Run drains the queue until ctx is done.
func (q *Queue) Run(ctx context.Context) error {
	for {
		if err := q.Next(ctx); err != nil {
			return err
		}
	}
}
