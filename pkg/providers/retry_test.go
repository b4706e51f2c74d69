package providers

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDoWithRetrySucceedsAfterTransient(t *testing.T) {
	fastRetries(t)

	calls := 0
	res, err := DoWithRetry(t.Context(), func(ctx context.Context) (Result, error) {
		calls++
		if calls < 3 {
			return Result{}, &CallError{Reason: ReasonRateLimit, Wrapped: errors.New("slow down")}
		}
		return Result{Text: "ok"}, nil
	})
	if err != nil {
		t.Fatalf("DoWithRetry() error = %v", err)
	}
	if res.Text != "ok" {
		t.Errorf("Text = %q, want ok", res.Text)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDoWithRetryStopsOnNonRetriable(t *testing.T) {
	fastRetries(t)

	calls := 0
	_, err := DoWithRetry(t.Context(), func(ctx context.Context) (Result, error) {
		calls++
		return Result{}, &CallError{Reason: ReasonAuth, Wrapped: errors.New("bad key")}
	})

	var callErr *CallError
	if !errors.As(err, &callErr) || callErr.Reason != ReasonAuth {
		t.Fatalf("DoWithRetry() error = %v, want auth CallError", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDoWithRetryStopsOnPlainError(t *testing.T) {
	fastRetries(t)

	plain := errors.New("not a call error")
	calls := 0
	_, err := DoWithRetry(t.Context(), func(ctx context.Context) (Result, error) {
		calls++
		return Result{}, plain
	})
	if !errors.Is(err, plain) {
		t.Fatalf("DoWithRetry() error = %v, want the plain error", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDoWithRetryExhaustsAttempts(t *testing.T) {
	fastRetries(t)

	calls := 0
	_, err := DoWithRetry(t.Context(), func(ctx context.Context) (Result, error) {
		calls++
		return Result{}, &CallError{Reason: ReasonTimeout, Wrapped: errors.New("still slow")}
	})

	var callErr *CallError
	if !errors.As(err, &callErr) || callErr.Reason != ReasonTimeout {
		t.Fatalf("DoWithRetry() error = %v, want timeout CallError", err)
	}
	if calls != maxSendAttempts {
		t.Errorf("calls = %d, want %d", calls, maxSendAttempts)
	}
}

func TestDoWithRetryStopsWhenCanceledDuringAttempt(t *testing.T) {
	fastRetries(t)

	ctx, cancel := context.WithCancel(t.Context())
	calls := 0
	_, err := DoWithRetry(ctx, func(ctx context.Context) (Result, error) {
		calls++
		cancel()
		return Result{}, &CallError{Reason: ReasonTimeout, Wrapped: errors.New("slow")}
	})

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("DoWithRetry() error = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 after cancellation", calls)
	}
}

func TestDoWithRetryStopsWhenCanceledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	calls := 0

	done := make(chan struct{})
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
		close(done)
	}()

	start := time.Now()
	_, err := DoWithRetry(ctx, func(ctx context.Context) (Result, error) {
		calls++
		if calls == 1 {
			return Result{}, &CallError{Reason: ReasonRateLimit, Wrapped: errors.New("wait")}
		}
		return Result{Text: "should not get here"}, nil
	})
	<-done

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("DoWithRetry() error = %v, want context.Canceled", err)
	}
	if elapsed := time.Since(start); elapsed > 400*time.Millisecond {
		t.Errorf("backoff ignored cancellation, took %v", elapsed)
	}
}

func TestBackoffDelayBounds(t *testing.T) {
	for attempt := 1; attempt <= 6; attempt++ {
		base := retryBaseDelay << (attempt - 1)
		if base > retryMaxDelay {
			base = retryMaxDelay
		}
		half := base / 2

		d := backoffDelay(attempt)
		if d < base || d >= base+half {
			t.Errorf("backoffDelay(%d) = %v, want in [%v, %v)", attempt, d, base, base+half)
		}
	}
}
