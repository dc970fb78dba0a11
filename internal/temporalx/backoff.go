package temporalx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Backoff is an exponential retry schedule. A zero MaxWait means one attempt.
type Backoff struct {
	Base    time.Duration
	Max     time.Duration
	MaxWait time.Duration
}

// Delay doubles Base per attempt, capped at Max.
func (b Backoff) Delay(attempt int) time.Duration {
	sleep := b.Base
	if sleep <= 0 {
		sleep = 250 * time.Millisecond
	}
	for i := 1; i < attempt; i++ {
		sleep *= 2
		if b.Max > 0 && sleep >= b.Max {
			return b.Max
		}
	}
	if b.Max > 0 && sleep > b.Max {
		return b.Max
	}
	return sleep
}

// Retry runs op until it succeeds, returns a non-retryable error, ctx ends
// or MaxWait has passed. onRetry, when set, sees every error that will be
// retried.
func (b Backoff) Retry(ctx context.Context, op func(attempt int) (retryable bool, err error), onRetry func(attempt int, err error)) error {
	deadline := time.Now().Add(b.MaxWait)
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		retryable, err := op(attempt)
		if err == nil {
			return nil
		}
		if !retryable || b.MaxWait <= 0 || time.Now().After(deadline) {
			return err
		}
		if onRetry != nil {
			onRetry(attempt, err)
		}
		t := time.NewTimer(b.Delay(attempt))
		select {
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("%w (last error: %v)", ctx.Err(), err)
		case <-t.C:
		}
	}
}

// IsRetryableRPC reports whether a frontend error is worth another attempt.
func IsRetryableRPC(err error) bool {
	if err == nil {
		return false
	}
	s, ok := status.FromError(err)
	if !ok {
		return errors.Is(err, context.DeadlineExceeded)
	}
	switch s.Code() {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted:
		return true
	default:
		return false
	}
}
