// Package backend defines the transport contract shared by the OTLP and
// ClickHouse senders, along with the retry and compression layers they
// compose.
package backend

import (
	"context"
	"fmt"
	"net/http"

	"github.com/namastexlabs/automagik-telemetry-go/event"
)

// Transport delivers a batch to a telemetry sink. Implementations handle
// serialization, compression, and retries internally; Send never panics and
// never returns an error to the pipeline — failures are reported through the
// Outcome and the batch is discarded by the caller either way.
type Transport interface {
	Send(ctx context.Context, batch *event.Batch) Outcome
}

// Outcome reports the result of a delivery attempt sequence. It is consumed
// only by internal logging, never surfaced to the application.
type Outcome struct {
	Success  bool
	Attempts int
	Err      error
}

// StatusError is an HTTP response with a non-success status. It decides
// whether the retry layer tries again: 5xx and 429 are transient, other 4xx
// are permanent.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.Status)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Status, e.Body)
}

// Retryable reports whether the status is worth another attempt.
func (e *StatusError) Retryable() bool {
	return e.Status >= 500 || e.Status == http.StatusTooManyRequests
}
