package providers

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// maxSendAttempts caps one logical Send at three network attempts.
const maxSendAttempts = 3

// Backoff parameters are variables so tests can shorten them.
var (
	retryBaseDelay = 500 * time.Millisecond
	retryMaxDelay  = 4 * time.Second
)

// DoWithRetry runs op up to maxSendAttempts times. Only errors that
// classify as retriable trigger another attempt; everything else
// returns immediately. Between attempts it sleeps an exponentially
// growing delay with jitter; a canceled context cuts the sleep short
// and surfaces the context error.
func DoWithRetry(ctx context.Context, op func(ctx context.Context) (Result, error)) (Result, error) {
	var lastErr error
	for attempt := 1; attempt <= maxSendAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return Result{}, ctx.Err()
			case <-time.After(backoffDelay(attempt - 1)):
			}
		}

		res, err := op(ctx)
		if err == nil {
			return res, nil
		}
		lastErr = err

		var callErr *CallError
		if !errors.As(err, &callErr) || !callErr.IsRetriable() {
			return Result{}, err
		}
	}
	return Result{}, lastErr
}

// backoffDelay doubles the base delay per completed attempt, caps it at
// retryMaxDelay, and adds up to 50% jitter.
func backoffDelay(attempt int) time.Duration {
	delay := retryBaseDelay << (attempt - 1)
	if delay > retryMaxDelay {
		delay = retryMaxDelay
	}
	if half := int64(delay) / 2; half > 0 {
		delay += time.Duration(rand.Int63n(half))
	}
	return delay
}
