package workerpool

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSubmit_ReturnsResult(t *testing.T) {
	p := NewPool(2)
	defer p.Close()

	got, err := Submit(context.Background(), p, func() (int, error) {
		return 42, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 42 {
		t.Errorf("got %d, want 42", got)
	}
}

func TestSubmit_PropagatesError(t *testing.T) {
	p := NewPool(1)
	defer p.Close()

	wantErr := errors.New("boom")
	_, err := Submit(context.Background(), p, func() (int, error) {
		return 0, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("got %v, want %v", err, wantErr)
	}
}

func TestSubmit_RecoversPanic(t *testing.T) {
	p := NewPool(1)
	defer p.Close()

	_, err := Submit(context.Background(), p, func() (int, error) {
		panic("kaboom")
	})
	if err == nil {
		t.Fatalf("expected panic to surface as an error")
	}
}

func TestSubmit_ContextCanceled(t *testing.T) {
	p := NewPool(1)
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Submit(ctx, p, func() (int, error) {
		time.Sleep(10 * time.Millisecond)
		return 1, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}

func TestSubmit_ConcurrentJobs(t *testing.T) {
	p := NewPool(4)
	defer p.Close()

	n := 50
	results := make(chan int, n)
	for i := 0; i < n; i++ {
		i := i
		go func() {
			v, err := Submit(context.Background(), p, func() (int, error) {
				return i * i, nil
			})
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			results <- v
		}()
	}
	for i := 0; i < n; i++ {
		<-results
	}
}
