package task

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestScopeDeliversCompletionThroughQueue(t *testing.T) {
	q := NewQueue()
	s := NewScope(context.Background(), q.Post)
	boom := errors.New("boom")

	var got error
	delivered := false
	if !s.Go(func(context.Context) error { return boom }, func(err error) {
		got = err
		delivered = true
	}) {
		t.Fatalf("expected task to start")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := q.Next(ctx); err != nil {
		t.Fatalf("next: %v", err)
	}
	if !delivered || !errors.Is(got, boom) {
		t.Fatalf("expected completion with boom, got delivered=%v err=%v", delivered, got)
	}
	s.Wait()
}

func TestScopeDropsCompletionAfterDispose(t *testing.T) {
	q := NewQueue()
	s := NewScope(context.Background(), q.Post)
	started := make(chan struct{})

	called := false
	s.Go(func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}, func(error) { called = true })

	<-started
	s.Dispose()
	s.Wait()
	if n := q.Drain(); n != 1 {
		t.Fatalf("expected one posted completion, got %d", n)
	}
	if called {
		t.Fatalf("completion ran on a disposed scope")
	}
	if s.Go(func(context.Context) error { return nil }, nil) {
		t.Fatalf("expected Go to refuse after dispose")
	}
	if !s.Disposed() || s.Context().Err() == nil {
		t.Fatalf("expected cancelled context after dispose")
	}
}

func TestInlineDispatcher(t *testing.T) {
	s := NewScope(context.Background(), nil)
	done := make(chan error, 1)
	s.Go(func(context.Context) error { return nil }, func(err error) { done <- err })
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("completion not delivered")
	}
	s.Wait()
}

func TestQueueRunStopsOnCancel(t *testing.T) {
	q := NewQueue()
	ctx, cancel := context.WithCancel(context.Background())
	ran := make(chan struct{})
	q.Post(func() { close(ran); cancel() })
	if err := q.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	<-ran
}
