// Package store defines a local, inspectable record of tracked events.
// It exists for development and debugging — a way to see what the SDK
// would ship without standing up a collector. It is not a delivery queue:
// writes are best-effort and nothing is ever replayed from it.
package store

import (
	"context"
	"time"

	"github.com/namastexlabs/automagik-telemetry-go/event"
)

// Record is the flattened form of a stored event.
type Record struct {
	ID         string            `json:"id"`
	SessionID  string            `json:"sessionId"`
	Kind       event.Kind        `json:"kind"`
	Name       string            `json:"name"`
	TraceID    string            `json:"traceId,omitempty"`
	Body       string            `json:"body,omitempty"`
	Severity   int               `json:"severity,omitempty"`
	Value      float64           `json:"value,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// ListQuery bounds a listing.
type ListQuery struct {
	Kind   event.Kind
	Limit  int
	Offset int
}

// Summary aggregates stored events per signal.
type Summary struct {
	Spans   int64 `json:"spans"`
	Metrics int64 `json:"metrics"`
	Logs    int64 `json:"logs"`
	Errors  int64 `json:"errors"`
}

// Store persists tracked events locally.
type Store interface {
	SaveEvent(ctx context.Context, res event.Resource, ev event.Event) error
	ListEvents(ctx context.Context, query ListQuery) ([]Record, error)
	Summarize(ctx context.Context) (Summary, error)
	Close() error
}

// Flatten converts an event into its stored record form.
func Flatten(res event.Resource, ev event.Event) Record {
	rec := Record{
		SessionID: res.SessionID,
		Kind:      ev.Kind(),
		Timestamp: ev.Time().UTC(),
	}
	switch e := ev.(type) {
	case event.Span:
		rec.Name = e.Name
		rec.TraceID = e.TraceID
		rec.Attributes = textAttrs(e.Attributes)
	case event.MetricPoint:
		rec.Name = e.Name
		rec.Value = e.Value
		rec.Attributes = textAttrs(e.Attributes)
	case event.LogRecord:
		rec.Name = e.Severity.Text()
		rec.Body = e.Body
		rec.Severity = int(e.Severity)
		rec.TraceID = e.TraceID
		rec.Attributes = textAttrs(e.Attributes)
	}
	return rec
}

func textAttrs(attrs event.Attrs) map[string]string {
	if len(attrs) == 0 {
		return nil
	}
	out := make(map[string]string, len(attrs))
	for k, v := range attrs {
		out[k] = v.Text()
	}
	return out
}
