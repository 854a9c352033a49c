package otelbridge

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/namastexlabs/automagik-telemetry-go/event"
)

func TestBridgeMirrorsSpans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer tp.Shutdown(context.Background())

	bridge := New(tp)

	start := time.Now().Add(-time.Second)
	end := time.Now()
	bridge.Mirror(event.Span{
		TraceID:   "abc",
		SpanID:    "def",
		Name:      "feature.used",
		StartTime: start,
		EndTime:   end,
		Status:    event.StatusOK,
		Attributes: event.Attrs{
			"feature": event.StringValue("search"),
		},
	})

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}

	span := spans[0]
	if span.Name != "feature.used" {
		t.Errorf("expected span name 'feature.used', got %q", span.Name)
	}
	if span.Status.Code != codes.Ok {
		t.Errorf("expected ok status, got %v", span.Status.Code)
	}
	if got := span.EndTime.Sub(span.StartTime); got < 900*time.Millisecond {
		t.Errorf("expected ~1s span duration, got %v", got)
	}

	attrMap := attrToMap(span.Attributes)
	if attrMap["telemetry.trace_id"] != "abc" {
		t.Errorf("missing or wrong telemetry.trace_id: %v", attrMap)
	}
	if attrMap["feature"] != "search" {
		t.Errorf("missing or wrong feature attribute: %v", attrMap)
	}
}

func TestBridgeMirrorsMetricsAndLogs(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer tp.Shutdown(context.Background())

	bridge := New(tp)
	now := time.Now()

	bridge.Mirror(event.MetricPoint{Name: "latency_ms", Value: 42.5, MetricKind: event.Gauge, Timestamp: now})
	bridge.Mirror(event.LogRecord{Body: "boom", Severity: event.SeverityError, Timestamp: now})

	spans := exporter.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}

	metric := spans[0]
	if metric.Name != "metric.latency_ms" {
		t.Errorf("expected metric span name, got %q", metric.Name)
	}
	if attrToMap(metric.Attributes)["metric.value"] != "42.5" {
		t.Errorf("missing metric value: %v", metric.Attributes)
	}

	logSpan := spans[1]
	if logSpan.Name != "log.ERROR" {
		t.Errorf("expected log span name 'log.ERROR', got %q", logSpan.Name)
	}
	if logSpan.Status.Code != codes.Error {
		t.Errorf("expected error status for error log, got %v", logSpan.Status.Code)
	}
}

func TestNilTracerProvider(t *testing.T) {
	bridge := New(nil)
	bridge.Mirror(event.Span{Name: "noop", StartTime: time.Now(), EndTime: time.Now()})
}

func attrToMap(attrs []attribute.KeyValue) map[string]string {
	m := make(map[string]string, len(attrs))
	for _, a := range attrs {
		m[string(a.Key)] = a.Value.Emit()
	}
	return m
}
