// Package event defines the immutable value types that move through the
// telemetry pipeline: spans, metric points, and log records, plus the scalar
// attribute union and the shared resource context.
package event

import "time"

// Kind identifies the signal type of an event.
type Kind string

const (
	KindSpan   Kind = "span"
	KindMetric Kind = "metric"
	KindLog    Kind = "log"
)

// Event is the tagged union of Span, MetricPoint, and LogRecord. Events are
// constructed once, enqueued, and never mutated afterwards.
type Event interface {
	Kind() Kind
	Time() time.Time
}

// SpanStatus mirrors the OTLP status codes.
type SpanStatus int

const (
	StatusUnset SpanStatus = 0
	StatusOK    SpanStatus = 1
	StatusError SpanStatus = 2
)

// Span is a single traced operation.
type Span struct {
	TraceID    string
	SpanID     string
	Name       string
	StartTime  time.Time
	EndTime    time.Time
	Status     SpanStatus
	Attributes Attrs
}

func (Span) Kind() Kind        { return KindSpan }
func (s Span) Time() time.Time { return s.StartTime }

// Duration returns the span's elapsed time, never negative.
func (s Span) Duration() time.Duration {
	if s.EndTime.Before(s.StartTime) {
		return 0
	}
	return s.EndTime.Sub(s.StartTime)
}

// MetricKind selects the OTLP payload shape for a metric point.
type MetricKind string

const (
	Counter   MetricKind = "counter"
	Gauge     MetricKind = "gauge"
	Histogram MetricKind = "histogram"
)

// MetricPoint is a single numeric measurement.
type MetricPoint struct {
	Name       string
	Value      float64
	MetricKind MetricKind
	Timestamp  time.Time
	Attributes Attrs
}

func (MetricPoint) Kind() Kind        { return KindMetric }
func (m MetricPoint) Time() time.Time { return m.Timestamp }

// LogRecord is a single log entry.
type LogRecord struct {
	Body       string
	Severity   Severity
	Timestamp  time.Time
	TraceID    string
	Attributes Attrs
}

func (LogRecord) Kind() Kind        { return KindLog }
func (l LogRecord) Time() time.Time { return l.Timestamp }

// Batch is an ordered group of events delivered in one transport call,
// together with the resource context they were produced under. A batch is
// owned exclusively by the flush that created it.
type Batch struct {
	Resource Resource
	Events   []Event
}

// Partition splits the batch by signal type, preserving enqueue order
// within each partition.
func (b *Batch) Partition() (spans []Span, metrics []MetricPoint, logs []LogRecord) {
	for _, ev := range b.Events {
		switch e := ev.(type) {
		case Span:
			spans = append(spans, e)
		case MetricPoint:
			metrics = append(metrics, e)
		case LogRecord:
			logs = append(logs, e)
		}
	}
	return spans, metrics, logs
}

// Len returns the number of events in the batch.
func (b *Batch) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Events)
}
