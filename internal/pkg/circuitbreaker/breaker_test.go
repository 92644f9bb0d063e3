package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

func fail(context.Context) error { return errBoom }
func ok(context.Context) error   { return nil }

func TestBreakerTripsAfterThreshold(t *testing.T) {
	b := NewBreaker(2, time.Minute, 1)
	ctx := context.Background()

	_ = b.Do(ctx, fail)
	if b.State() != Closed {
		t.Fatal("one failure must not trip the breaker")
	}
	_ = b.Do(ctx, fail)
	if b.State() != Open {
		t.Fatal("threshold failures must trip the breaker")
	}
	if err := b.Do(ctx, ok); !errors.Is(err, ErrOpen) {
		t.Fatalf("open breaker must reject, got %v", err)
	}
}

func TestBreakerRecoversThroughHalfOpen(t *testing.T) {
	b := NewBreaker(1, time.Millisecond, 1)
	ctx := context.Background()

	_ = b.Do(ctx, fail)
	if b.State() != Open {
		t.Fatal("expected open")
	}

	time.Sleep(5 * time.Millisecond)
	if err := b.Do(ctx, ok); err != nil {
		t.Fatalf("half-open probe failed: %v", err)
	}
	if b.State() != Closed {
		t.Fatal("successful probe must close the breaker")
	}
}

func TestBreakerReopensOnHalfOpenFailure(t *testing.T) {
	b := NewBreaker(1, time.Millisecond, 1)
	ctx := context.Background()

	_ = b.Do(ctx, fail)
	time.Sleep(5 * time.Millisecond)
	_ = b.Do(ctx, fail)
	if b.State() != Open {
		t.Fatal("failed probe must reopen the breaker")
	}
}
