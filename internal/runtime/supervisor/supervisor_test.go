package supervisor

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestSetErrKeepsFirstError(t *testing.T) {
	t.Parallel()
	s := New(context.Background())

	first := fmt.Errorf("router: %w", errors.New("boom"))
	s.setErr(first)
	// A later error of a different concrete type must be ignored, not
	// crash the store.
	s.setErr(fmt.Errorf("panic in worker: %v", "oops"))

	if got := s.Err(); !errors.Is(got, first) {
		t.Fatalf("Err = %v, want %v", got, first)
	}
}

func TestMixedFailuresDoNotPanic(t *testing.T) {
	t.Parallel()
	s := New(context.Background(), WithCancelOnError(true))

	s.Go("failing", func(context.Context) error {
		return errors.New("worker broke")
	})
	s.Go0("panicking", func(ctx context.Context) {
		<-ctx.Done() // let the error land first
		panic("worker panicked")
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Wait(ctx); err == nil {
		t.Fatal("Wait must surface the first failure")
	}
	if s.Err() == nil {
		t.Fatal("Err must be recorded")
	}
}

func TestGoErrorCancelsContext(t *testing.T) {
	t.Parallel()
	s := New(context.Background(), WithCancelOnError(true))

	s.Go("failing", func(context.Context) error {
		return errors.New("fatal")
	})

	select {
	case <-s.Context().Done():
	case <-time.After(5 * time.Second):
		t.Fatal("context not cancelled after goroutine error")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Wait(ctx); err == nil {
		t.Fatal("Wait must return the recorded error")
	}
}

func TestContextCanceledIsNotAnError(t *testing.T) {
	t.Parallel()
	s := New(context.Background())

	s.Go("polite", func(ctx context.Context) error {
		return context.Canceled
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Wait(ctx); err != nil {
		t.Fatalf("Wait = %v, want nil for context.Canceled", err)
	}
}
