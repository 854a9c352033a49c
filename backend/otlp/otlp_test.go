package otlp

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/namastexlabs/automagik-telemetry-go/backend"
	"github.com/namastexlabs/automagik-telemetry-go/event"
)

type capture struct {
	mu       sync.Mutex
	requests []capturedRequest
}

type capturedRequest struct {
	path     string
	encoding string
	body     []byte
}

func (c *capture) handler(status int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var reader io.Reader = r.Body
		encoding := r.Header.Get("Content-Encoding")
		if encoding == "gzip" {
			zr, err := gzip.NewReader(r.Body)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			defer zr.Close()
			reader = zr
		}
		body, _ := io.ReadAll(reader)
		c.mu.Lock()
		c.requests = append(c.requests, capturedRequest{path: r.URL.Path, encoding: encoding, body: body})
		c.mu.Unlock()
		w.WriteHeader(status)
	}
}

func (c *capture) byPath(path string) *capturedRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.requests {
		if c.requests[i].path == path {
			return &c.requests[i]
		}
	}
	return nil
}

func testResource() event.Resource {
	return event.Resource{
		ProjectName:    "omni",
		Version:        "1.2.3",
		Organization:   "namastex",
		OS:             "linux",
		RuntimeName:    "go",
		RuntimeVersion: "1.24",
		SessionID:      "sess-1",
		UserIDHash:     "abcdef0123456789",
	}
}

func TestSendPartitionsBySignal(t *testing.T) {
	cap := &capture{}
	srv := httptest.NewServer(cap.handler(http.StatusOK))
	defer srv.Close()

	tr, err := New(srv.URL+"/v1/traces", WithCompressor(backend.NewCompressor(false, 0)))
	if err != nil {
		t.Fatal(err)
	}

	now := time.Now()
	batch := &event.Batch{
		Resource: testResource(),
		Events: []event.Event{
			event.Span{TraceID: event.NewTraceID(), SpanID: event.NewSpanID(), Name: "automagik.feature.used", StartTime: now, EndTime: now, Status: event.StatusOK},
			event.MetricPoint{Name: "automagik.performance.latency", Value: 12.5, MetricKind: event.Histogram, Timestamp: now},
			event.LogRecord{Body: "started", Severity: event.SeverityInfo, Timestamp: now},
		},
	}

	out := tr.Send(context.Background(), batch)
	if !out.Success {
		t.Fatalf("send failed: %+v", out)
	}
	if len(cap.requests) != 3 {
		t.Fatalf("expected 3 posts (one per signal), got %d", len(cap.requests))
	}
	for _, path := range []string{"/v1/traces", "/v1/metrics", "/v1/logs"} {
		if cap.byPath(path) == nil {
			t.Errorf("no request hit %s", path)
		}
	}
}

func TestSendSkipsEmptyPartitions(t *testing.T) {
	cap := &capture{}
	srv := httptest.NewServer(cap.handler(http.StatusOK))
	defer srv.Close()

	tr, err := New(srv.URL + "/v1/traces")
	if err != nil {
		t.Fatal(err)
	}
	now := time.Now()
	batch := &event.Batch{Resource: testResource(), Events: []event.Event{
		event.Span{TraceID: "t", SpanID: "s", Name: "x", StartTime: now, EndTime: now},
	}}
	if out := tr.Send(context.Background(), batch); !out.Success {
		t.Fatalf("send failed: %+v", out)
	}
	if len(cap.requests) != 1 {
		t.Fatalf("expected 1 post, got %d", len(cap.requests))
	}
}

func TestTracePayloadShape(t *testing.T) {
	cap := &capture{}
	srv := httptest.NewServer(cap.handler(http.StatusOK))
	defer srv.Close()

	tr, err := New(srv.URL+"/v1/traces", WithCompressor(backend.NewCompressor(false, 0)))
	if err != nil {
		t.Fatal(err)
	}

	start := time.Unix(1700000000, 0)
	batch := &event.Batch{Resource: testResource(), Events: []event.Event{
		event.Span{
			TraceID:   "0123456789abcdef0123456789abcdef",
			SpanID:    "0123456789abcdef",
			Name:      "automagik.cli.command",
			StartTime: start,
			EndTime:   start.Add(time.Second),
			Status:    event.StatusOK,
			Attributes: event.Attrs{
				"command": event.StringValue("sync"),
				"count":   event.IntValue(4),
				"ratio":   event.FloatValue(0.25),
				"dry_run": event.BoolValue(true),
			},
		},
	}}
	tr.Send(context.Background(), batch)

	req := cap.byPath("/v1/traces")
	if req == nil {
		t.Fatal("no trace request")
	}

	var payload map[string]any
	if err := json.Unmarshal(req.body, &payload); err != nil {
		t.Fatal(err)
	}
	rs := payload["resourceSpans"].([]any)[0].(map[string]any)

	resAttrs := rs["resource"].(map[string]any)["attributes"].([]any)
	foundService := false
	for _, kv := range resAttrs {
		m := kv.(map[string]any)
		if m["key"] == "service.name" {
			foundService = true
			if v := m["value"].(map[string]any)["stringValue"]; v != "omni" {
				t.Errorf("service.name = %v", v)
			}
		}
	}
	if !foundService {
		t.Error("resource missing service.name")
	}

	span := rs["scopeSpans"].([]any)[0].(map[string]any)["spans"].([]any)[0].(map[string]any)
	if span["traceId"] != "0123456789abcdef0123456789abcdef" {
		t.Errorf("traceId = %v", span["traceId"])
	}
	if span["startTimeUnixNano"] != "1700000000000000000" {
		t.Errorf("startTimeUnixNano = %v, want string nanos", span["startTimeUnixNano"])
	}
	if span["status"].(map[string]any)["code"] != "STATUS_CODE_OK" {
		t.Errorf("status = %v", span["status"])
	}

	wantTyped := map[string]string{
		"command": "stringValue",
		"count":   "intValue",
		"ratio":   "doubleValue",
		"dry_run": "boolValue",
	}
	for _, kv := range span["attributes"].([]any) {
		m := kv.(map[string]any)
		key := m["key"].(string)
		wantField, ok := wantTyped[key]
		if !ok {
			continue
		}
		if _, ok := m["value"].(map[string]any)[wantField]; !ok {
			t.Errorf("attribute %q missing %s: %v", key, wantField, m["value"])
		}
		delete(wantTyped, key)
	}
	if len(wantTyped) != 0 {
		t.Errorf("attributes missing from payload: %v", wantTyped)
	}
}

func TestMetricPayloadShapes(t *testing.T) {
	tests := []struct {
		kind event.MetricKind
		key  string
	}{
		{event.Counter, "sum"},
		{event.Gauge, "gauge"},
		{event.Histogram, "histogram"},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			payload := buildMetricPayload(testResource(), []event.MetricPoint{{
				Name: "m", Value: 7, MetricKind: tt.kind, Timestamp: time.Now(),
			}})
			raw, err := json.Marshal(payload)
			if err != nil {
				t.Fatal(err)
			}
			var decoded map[string]any
			if err := json.Unmarshal(raw, &decoded); err != nil {
				t.Fatal(err)
			}
			metric := decoded["resourceMetrics"].([]any)[0].(map[string]any)["scopeMetrics"].([]any)[0].(map[string]any)["metrics"].([]any)[0].(map[string]any)
			if _, ok := metric[tt.key]; !ok {
				t.Errorf("metric kind %s should produce %q shape: %v", tt.kind, tt.key, metric)
			}
			for _, other := range []string{"sum", "gauge", "histogram"} {
				if other != tt.key {
					if _, ok := metric[other]; ok {
						t.Errorf("unexpected %q shape present", other)
					}
				}
			}
		})
	}
}

func TestCompressedSend(t *testing.T) {
	cap := &capture{}
	srv := httptest.NewServer(cap.handler(http.StatusOK))
	defer srv.Close()

	tr, err := New(srv.URL+"/v1/traces", WithCompressor(backend.NewCompressor(true, 64)))
	if err != nil {
		t.Fatal(err)
	}
	now := time.Now()
	batch := &event.Batch{Resource: testResource(), Events: []event.Event{
		event.Span{TraceID: "t", SpanID: "s", Name: strings.Repeat("x", 200), StartTime: now, EndTime: now},
	}}
	if out := tr.Send(context.Background(), batch); !out.Success {
		t.Fatalf("send failed: %+v", out)
	}
	req := cap.byPath("/v1/traces")
	if req.encoding != "gzip" {
		t.Errorf("Content-Encoding = %q, want gzip", req.encoding)
	}
	var payload map[string]any
	if err := json.Unmarshal(req.body, &payload); err != nil {
		t.Errorf("decompressed body is not valid JSON: %v", err)
	}
}

func TestSendRetriesServerErrors(t *testing.T) {
	var calls int
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	tr, err := New(srv.URL+"/v1/traces",
		WithRetryPolicy(backend.RetryPolicy{MaxAttempts: 3, BackoffBase: time.Millisecond}))
	if err != nil {
		t.Fatal(err)
	}
	now := time.Now()
	out := tr.Send(context.Background(), &event.Batch{Resource: testResource(), Events: []event.Event{
		event.Span{TraceID: "t", SpanID: "s", Name: "x", StartTime: now, EndTime: now},
	}})
	if out.Success {
		t.Error("expected failure")
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestSendDoesNotRetryClientErrors(t *testing.T) {
	var calls int
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	tr, err := New(srv.URL+"/v1/traces",
		WithRetryPolicy(backend.RetryPolicy{MaxAttempts: 3, BackoffBase: time.Millisecond}))
	if err != nil {
		t.Fatal(err)
	}
	now := time.Now()
	out := tr.Send(context.Background(), &event.Batch{Resource: testResource(), Events: []event.Event{
		event.Span{TraceID: "t", SpanID: "s", Name: "x", StartTime: now, EndTime: now},
	}})
	if out.Success {
		t.Error("expected failure")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (no retry on 4xx)", calls)
	}
}

func TestDeriveEndpoint(t *testing.T) {
	tests := []struct {
		base   string
		signal string
		want   string
	}{
		{"https://telemetry.namastex.ai/v1/traces", metricsPath, "https://telemetry.namastex.ai/v1/metrics"},
		{"https://telemetry.namastex.ai/v1/traces", logsPath, "https://telemetry.namastex.ai/v1/logs"},
		{"http://localhost:4318", metricsPath, "http://localhost:4318/v1/metrics"},
		{"http://localhost:4318/", logsPath, "http://localhost:4318/v1/logs"},
	}
	for _, tt := range tests {
		if got := deriveEndpoint(tt.base, tt.signal); got != tt.want {
			t.Errorf("deriveEndpoint(%q, %q) = %q, want %q", tt.base, tt.signal, got, tt.want)
		}
	}
}

func TestNewRejectsBadEndpoints(t *testing.T) {
	for _, endpoint := range []string{"ftp://host/v1/traces", "not a url at all\x7f", "https://"} {
		if _, err := New(endpoint); err == nil {
			t.Errorf("New(%q) should fail", endpoint)
		}
	}
}
