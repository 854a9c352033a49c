package clickhouse

import (
	"time"

	"github.com/namastexlabs/automagik-telemetry-go/event"
)

// Flat row types matching the ClickHouse table schemas. Traces, metrics, and
// logs live in sibling tables; nested attributes flatten into a
// Map(String, String) column in all three.

type traceRow struct {
	TraceID        string            `json:"trace_id"`
	SpanID         string            `json:"span_id"`
	ParentSpanID   string            `json:"parent_span_id"`
	Timestamp      string            `json:"timestamp"`
	TimestampNs    int64             `json:"timestamp_ns"`
	DurationMs     int64             `json:"duration_ms"`
	ServiceName    string            `json:"service_name"`
	SpanName       string            `json:"span_name"`
	SpanKind       string            `json:"span_kind"`
	StatusCode     string            `json:"status_code"`
	StatusMessage  string            `json:"status_message"`
	ProjectName    string            `json:"project_name"`
	ProjectVersion string            `json:"project_version"`
	Environment    string            `json:"environment"`
	Hostname       string            `json:"hostname"`
	Attributes     map[string]string `json:"attributes"`
	UserID         string            `json:"user_id"`
	SessionID      string            `json:"session_id"`
	OSType         string            `json:"os_type"`
	OSVersion      string            `json:"os_version"`
	RuntimeName    string            `json:"runtime_name"`
	RuntimeVersion string            `json:"runtime_version"`
}

type metricRow struct {
	Timestamp      string            `json:"timestamp"`
	TimestampNs    int64             `json:"timestamp_ns"`
	MetricName     string            `json:"metric_name"`
	MetricValue    float64           `json:"metric_value"`
	MetricKind     string            `json:"metric_kind"`
	ServiceName    string            `json:"service_name"`
	ProjectName    string            `json:"project_name"`
	ProjectVersion string            `json:"project_version"`
	Attributes     map[string]string `json:"attributes"`
	UserID         string            `json:"user_id"`
	SessionID      string            `json:"session_id"`
}

type logRow struct {
	Timestamp      string            `json:"timestamp"`
	TimestampNs    int64             `json:"timestamp_ns"`
	Body           string            `json:"body"`
	SeverityNumber int               `json:"severity_number"`
	SeverityText   string            `json:"severity_text"`
	TraceID        string            `json:"trace_id"`
	ServiceName    string            `json:"service_name"`
	ProjectName    string            `json:"project_name"`
	ProjectVersion string            `json:"project_version"`
	Attributes     map[string]string `json:"attributes"`
	UserID         string            `json:"user_id"`
	SessionID      string            `json:"session_id"`
}

// chTime renders a timestamp in ClickHouse's DateTime text format, UTC.
func chTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05")
}

func flattenAttrs(attrs event.Attrs) map[string]string {
	out := make(map[string]string, len(attrs))
	for k, v := range attrs {
		out[k] = v.Text()
	}
	return out
}

func statusCodeText(s event.SpanStatus) string {
	switch s {
	case event.StatusError:
		return "ERROR"
	default:
		return "OK"
	}
}

func toTraceRow(res event.Resource, s event.Span) traceRow {
	return traceRow{
		TraceID:        s.TraceID,
		SpanID:         s.SpanID,
		Timestamp:      chTime(s.StartTime),
		TimestampNs:    s.StartTime.UnixNano(),
		DurationMs:     s.Duration().Milliseconds(),
		ServiceName:    res.ProjectName,
		SpanName:       s.Name,
		SpanKind:       "INTERNAL",
		StatusCode:     statusCodeText(s.Status),
		ProjectName:    res.ProjectName,
		ProjectVersion: res.Version,
		Environment:    "production",
		Attributes:     flattenAttrs(s.Attributes),
		UserID:         res.UserIDHash,
		SessionID:      res.SessionID,
		OSType:         res.OS,
		OSVersion:      res.OSVersion,
		RuntimeName:    res.RuntimeName,
		RuntimeVersion: res.RuntimeVersion,
	}
}

func toMetricRow(res event.Resource, m event.MetricPoint) metricRow {
	return metricRow{
		Timestamp:      chTime(m.Timestamp),
		TimestampNs:    m.Timestamp.UnixNano(),
		MetricName:     m.Name,
		MetricValue:    m.Value,
		MetricKind:     string(m.MetricKind),
		ServiceName:    res.ProjectName,
		ProjectName:    res.ProjectName,
		ProjectVersion: res.Version,
		Attributes:     flattenAttrs(m.Attributes),
		UserID:         res.UserIDHash,
		SessionID:      res.SessionID,
	}
}

func toLogRow(res event.Resource, l event.LogRecord) logRow {
	return logRow{
		Timestamp:      chTime(l.Timestamp),
		TimestampNs:    l.Timestamp.UnixNano(),
		Body:           l.Body,
		SeverityNumber: int(l.Severity),
		SeverityText:   l.Severity.Text(),
		TraceID:        l.TraceID,
		ServiceName:    res.ProjectName,
		ProjectName:    res.ProjectName,
		ProjectVersion: res.Version,
		Attributes:     flattenAttrs(l.Attributes),
		UserID:         res.UserIDHash,
		SessionID:      res.SessionID,
	}
}
