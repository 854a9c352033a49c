// Package otelbridge mirrors tracked events onto an OpenTelemetry
// TracerProvider, so applications that already run an OTel pipeline see
// the same spans, metrics, and logs the SDK ships to its own backend.
package otelbridge

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/namastexlabs/automagik-telemetry-go/event"
)

const instrumentationName = "github.com/namastexlabs/automagik-telemetry-go"

// Bridge re-emits events as OTel spans.
type Bridge struct {
	tracer trace.Tracer
}

// New creates a bridge on the given TracerProvider.
// A nil provider yields a no-op bridge.
func New(tp trace.TracerProvider) *Bridge {
	if tp == nil {
		tp = noop.NewTracerProvider()
	}
	return &Bridge{
		tracer: tp.Tracer(instrumentationName),
	}
}

// Mirror converts an event into an OTel span. Metric points and log
// records become point-in-time spans carrying their payload as
// attributes, which keeps the bridge usable with trace-only pipelines.
func (b *Bridge) Mirror(ev event.Event) {
	if b == nil || b.tracer == nil {
		return
	}

	switch e := ev.(type) {
	case event.Span:
		_, span := b.tracer.Start(context.Background(), e.Name, trace.WithTimestamp(e.StartTime))
		attrs := []attribute.KeyValue{
			attribute.String("telemetry.trace_id", e.TraceID),
			attribute.String("telemetry.span_id", e.SpanID),
		}
		attrs = append(attrs, eventAttributes(e.Attributes)...)
		span.SetAttributes(attrs...)
		switch e.Status {
		case event.StatusError:
			span.SetStatus(codes.Error, "")
		case event.StatusOK:
			span.SetStatus(codes.Ok, "")
		}
		end := e.EndTime
		if end.Before(e.StartTime) {
			end = e.StartTime
		}
		span.End(trace.WithTimestamp(end))

	case event.MetricPoint:
		_, span := b.tracer.Start(context.Background(), "metric."+e.Name, trace.WithTimestamp(e.Timestamp))
		attrs := []attribute.KeyValue{
			attribute.Float64("metric.value", e.Value),
			attribute.String("metric.kind", string(e.MetricKind)),
		}
		attrs = append(attrs, eventAttributes(e.Attributes)...)
		span.SetAttributes(attrs...)
		span.End(trace.WithTimestamp(e.Timestamp))

	case event.LogRecord:
		_, span := b.tracer.Start(context.Background(), "log."+e.Severity.Text(), trace.WithTimestamp(e.Timestamp))
		attrs := []attribute.KeyValue{
			attribute.String("log.body", e.Body),
			attribute.Int("log.severity", int(e.Severity)),
		}
		attrs = append(attrs, eventAttributes(e.Attributes)...)
		span.SetAttributes(attrs...)
		if e.Severity >= event.SeverityError {
			span.SetStatus(codes.Error, e.Body)
		}
		span.End(trace.WithTimestamp(e.Timestamp))
	}
}

func eventAttributes(attrs event.Attrs) []attribute.KeyValue {
	if len(attrs) == 0 {
		return nil
	}
	out := make([]attribute.KeyValue, 0, len(attrs))
	for k, v := range attrs {
		out = append(out, attribute.String(k, v.Text()))
	}
	return out
}
