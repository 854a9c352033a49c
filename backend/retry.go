package backend

import (
	"context"
	"errors"
	"time"
)

const (
	defaultMaxAttempts = 3
	defaultBackoffBase = time.Second
)

// RetryPolicy bounds how many delivery attempts a send gets and how long to
// wait between them. Attempt i (0-indexed) is followed by a delay of
// BackoffBase * 2^i when it fails with a transient error.
type RetryPolicy struct {
	MaxAttempts int
	BackoffBase time.Duration
}

func (p RetryPolicy) normalize() RetryPolicy {
	out := p
	if out.MaxAttempts < 1 {
		out.MaxAttempts = defaultMaxAttempts
	}
	if out.BackoffBase <= 0 {
		out.BackoffBase = defaultBackoffBase
	}
	return out
}

func (p RetryPolicy) backoffForAttempt(attempt int) time.Duration {
	delay := p.BackoffBase
	for i := 0; i < attempt; i++ {
		delay *= 2
	}
	return delay
}

// Do runs fn up to MaxAttempts times, sleeping between attempts with
// exponential backoff. It stops early on success, on a permanent error, or
// when ctx is done. It never panics and never returns an error directly;
// the caller reads the Outcome.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) Outcome {
	p = p.normalize()

	var lastErr error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return Outcome{Success: true, Attempts: attempt + 1}
		}
		lastErr = err

		if !isTransient(err) {
			return Outcome{Success: false, Attempts: attempt + 1, Err: err}
		}

		select {
		case <-time.After(p.backoffForAttempt(attempt)):
		case <-ctx.Done():
			return Outcome{Success: false, Attempts: attempt + 1, Err: ctx.Err()}
		}
	}
	return Outcome{Success: false, Attempts: p.MaxAttempts, Err: lastErr}
}

// isTransient classifies an error for retry purposes: HTTP 5xx and 429 are
// transient, other HTTP statuses are permanent, and anything else is assumed
// to be a network-level failure worth retrying.
func isTransient(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Retryable()
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}
