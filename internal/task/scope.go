// Package task runs network work off the UI goroutine and delivers results
// back to it, dropping completions that arrive after the owning screen has
// been disposed.
package task

import (
	"context"
	"errors"
	"sync"
)

// ErrDisposed is returned by callers that refuse new work on a disposed scope.
var ErrDisposed = errors.New("task scope disposed")

// Dispatcher posts fn for execution on the UI goroutine. It must not block.
type Dispatcher func(fn func())

// Inline runs fn on the calling goroutine. Useful where no UI loop exists.
func Inline(fn func()) { fn() }

// Scope owns the lifetime of the tasks started for one screen.
type Scope struct {
	ctx      context.Context
	cancel   context.CancelFunc
	dispatch Dispatcher

	mu       sync.Mutex
	disposed bool
	wg       sync.WaitGroup
}

// NewScope creates a scope derived from parent. A nil dispatcher runs
// completions inline on the worker goroutine.
func NewScope(parent context.Context, dispatch Dispatcher) *Scope {
	if parent == nil {
		parent = context.Background()
	}
	if dispatch == nil {
		dispatch = Inline
	}
	ctx, cancel := context.WithCancel(parent)
	return &Scope{ctx: ctx, cancel: cancel, dispatch: dispatch}
}

// Context is cancelled when the scope is disposed.
func (s *Scope) Context() context.Context { return s.ctx }

// Go runs work on a new goroutine and posts done(err) through the
// dispatcher. done is skipped when the scope was disposed before delivery.
// Go reports false, starting nothing, once the scope is disposed.
func (s *Scope) Go(work func(ctx context.Context) error, done func(err error)) bool {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return false
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		err := work(s.ctx)
		s.dispatch(func() {
			if s.Disposed() || done == nil {
				return
			}
			done(err)
		})
	}()
	return true
}

// Dispose cancels in-flight work. Completions not yet delivered are dropped.
func (s *Scope) Dispose() {
	s.mu.Lock()
	s.disposed = true
	s.mu.Unlock()
	s.cancel()
}

// Disposed reports whether Dispose has been called.
func (s *Scope) Disposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}

// Wait blocks until every started worker goroutine has returned.
func (s *Scope) Wait() { s.wg.Wait() }
