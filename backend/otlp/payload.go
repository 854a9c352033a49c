package otlp

import (
	"sort"
	"strconv"
	"time"

	"github.com/namastexlabs/automagik-telemetry-go/event"
)

// OTLP/JSON envelope types. Field shapes follow the OTLP 1.x JSON mapping:
// 64-bit integers (timestamps, counts) serialize as decimal strings, typed
// attribute values use the oneof-style {stringValue|intValue|...} form.

type keyValue struct {
	Key   string   `json:"key"`
	Value anyValue `json:"value"`
}

type anyValue struct {
	StringValue *string  `json:"stringValue,omitempty"`
	IntValue    *string  `json:"intValue,omitempty"`
	DoubleValue *float64 `json:"doubleValue,omitempty"`
	BoolValue   *bool    `json:"boolValue,omitempty"`
}

type otlpResource struct {
	Attributes []keyValue `json:"attributes"`
}

type scope struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type tracePayload struct {
	ResourceSpans []resourceSpans `json:"resourceSpans"`
}

type resourceSpans struct {
	Resource   otlpResource `json:"resource"`
	ScopeSpans []scopeSpans `json:"scopeSpans"`
}

type scopeSpans struct {
	Scope scope      `json:"scope"`
	Spans []otlpSpan `json:"spans"`
}

type otlpSpan struct {
	TraceID           string     `json:"traceId"`
	SpanID            string     `json:"spanId"`
	Name              string     `json:"name"`
	Kind              string     `json:"kind"`
	StartTimeUnixNano string     `json:"startTimeUnixNano"`
	EndTimeUnixNano   string     `json:"endTimeUnixNano"`
	Attributes        []keyValue `json:"attributes"`
	Status            spanStatus `json:"status"`
}

type spanStatus struct {
	Code string `json:"code"`
}

type metricPayload struct {
	ResourceMetrics []resourceMetrics `json:"resourceMetrics"`
}

type resourceMetrics struct {
	Resource     otlpResource   `json:"resource"`
	ScopeMetrics []scopeMetrics `json:"scopeMetrics"`
}

type scopeMetrics struct {
	Scope   scope        `json:"scope"`
	Metrics []otlpMetric `json:"metrics"`
}

type otlpMetric struct {
	Name      string           `json:"name"`
	Sum       *sumMetric       `json:"sum,omitempty"`
	Gauge     *gaugeMetric     `json:"gauge,omitempty"`
	Histogram *histogramMetric `json:"histogram,omitempty"`
}

// aggregationTemporality 2 is AGGREGATION_TEMPORALITY_CUMULATIVE.
const temporalityCumulative = 2

type sumMetric struct {
	DataPoints             []numberDataPoint `json:"dataPoints"`
	AggregationTemporality int               `json:"aggregationTemporality"`
	IsMonotonic            bool              `json:"isMonotonic"`
}

type gaugeMetric struct {
	DataPoints []numberDataPoint `json:"dataPoints"`
}

type histogramMetric struct {
	DataPoints             []histogramDataPoint `json:"dataPoints"`
	AggregationTemporality int                  `json:"aggregationTemporality"`
}

type numberDataPoint struct {
	TimeUnixNano string     `json:"timeUnixNano"`
	AsDouble     float64    `json:"asDouble"`
	Attributes   []keyValue `json:"attributes,omitempty"`
}

type histogramDataPoint struct {
	TimeUnixNano string     `json:"timeUnixNano"`
	Count        string     `json:"count"`
	Sum          float64    `json:"sum"`
	Attributes   []keyValue `json:"attributes,omitempty"`
}

type logPayload struct {
	ResourceLogs []resourceLogs `json:"resourceLogs"`
}

type resourceLogs struct {
	Resource  otlpResource `json:"resource"`
	ScopeLogs []scopeLogs  `json:"scopeLogs"`
}

type scopeLogs struct {
	Scope      scope           `json:"scope"`
	LogRecords []otlpLogRecord `json:"logRecords"`
}

type otlpLogRecord struct {
	TimeUnixNano   string     `json:"timeUnixNano"`
	SeverityNumber int        `json:"severityNumber"`
	SeverityText   string     `json:"severityText"`
	Body           anyValue   `json:"body"`
	Attributes     []keyValue `json:"attributes,omitempty"`
	TraceID        string     `json:"traceId,omitempty"`
}

func stringAnyValue(s string) anyValue { return anyValue{StringValue: &s} }

func toAnyValue(v event.Value) anyValue {
	switch v.Kind() {
	case event.KindInt:
		s := strconv.FormatInt(v.Int(), 10)
		return anyValue{IntValue: &s}
	case event.KindFloat:
		f := v.Float()
		return anyValue{DoubleValue: &f}
	case event.KindBool:
		b := v.Bool()
		return anyValue{BoolValue: &b}
	default:
		s := v.Str()
		return anyValue{StringValue: &s}
	}
}

// toKeyValues converts an attribute map into sorted OTLP key/value pairs.
// Sorting keeps payloads deterministic for a given event.
func toKeyValues(attrs event.Attrs) []keyValue {
	if len(attrs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]keyValue, 0, len(keys))
	for _, k := range keys {
		out = append(out, keyValue{Key: k, Value: toAnyValue(attrs[k])})
	}
	return out
}

func resourceAttributes(res event.Resource) []keyValue {
	container := res.IsContainer
	kvs := []keyValue{
		{Key: "service.name", Value: stringAnyValue(res.ProjectName)},
		{Key: "service.version", Value: stringAnyValue(res.Version)},
		{Key: "service.organization", Value: stringAnyValue(res.Organization)},
		{Key: "project.name", Value: stringAnyValue(res.ProjectName)},
		{Key: "project.version", Value: stringAnyValue(res.Version)},
		{Key: "os.type", Value: stringAnyValue(res.OS)},
		{Key: "os.version", Value: stringAnyValue(res.OSVersion)},
		{Key: "host.arch", Value: stringAnyValue(res.Architecture)},
		{Key: "process.runtime.name", Value: stringAnyValue(res.RuntimeName)},
		{Key: "process.runtime.version", Value: stringAnyValue(res.RuntimeVersion)},
		{Key: "session.id", Value: stringAnyValue(res.SessionID)},
		{Key: "user.id", Value: stringAnyValue(res.UserIDHash)},
		{Key: "telemetry.sdk.name", Value: stringAnyValue(event.SDKName)},
		{Key: "telemetry.sdk.version", Value: stringAnyValue(event.SDKVersion)},
		{Key: "container.detected", Value: anyValue{BoolValue: &container}},
	}
	return kvs
}

func scopeFor(res event.Resource) scope {
	return scope{Name: res.ProjectName + ".telemetry", Version: res.Version}
}

func unixNano(t time.Time) string {
	return strconv.FormatInt(t.UnixNano(), 10)
}

func statusCodeString(s event.SpanStatus) string {
	switch s {
	case event.StatusOK:
		return "STATUS_CODE_OK"
	case event.StatusError:
		return "STATUS_CODE_ERROR"
	}
	return "STATUS_CODE_UNSET"
}

func buildTracePayload(res event.Resource, spans []event.Span) tracePayload {
	out := make([]otlpSpan, 0, len(spans))
	for _, s := range spans {
		out = append(out, otlpSpan{
			TraceID:           s.TraceID,
			SpanID:            s.SpanID,
			Name:              s.Name,
			Kind:              "SPAN_KIND_INTERNAL",
			StartTimeUnixNano: unixNano(s.StartTime),
			EndTimeUnixNano:   unixNano(s.EndTime),
			Attributes:        toKeyValues(s.Attributes),
			Status:            spanStatus{Code: statusCodeString(s.Status)},
		})
	}
	return tracePayload{ResourceSpans: []resourceSpans{{
		Resource:   otlpResource{Attributes: resourceAttributes(res)},
		ScopeSpans: []scopeSpans{{Scope: scopeFor(res), Spans: out}},
	}}}
}

func buildMetricPayload(res event.Resource, points []event.MetricPoint) metricPayload {
	out := make([]otlpMetric, 0, len(points))
	for _, p := range points {
		m := otlpMetric{Name: p.Name}
		switch p.MetricKind {
		case event.Counter:
			m.Sum = &sumMetric{
				DataPoints: []numberDataPoint{{
					TimeUnixNano: unixNano(p.Timestamp),
					AsDouble:     p.Value,
					Attributes:   toKeyValues(p.Attributes),
				}},
				AggregationTemporality: temporalityCumulative,
				IsMonotonic:            true,
			}
		case event.Histogram:
			m.Histogram = &histogramMetric{
				DataPoints: []histogramDataPoint{{
					TimeUnixNano: unixNano(p.Timestamp),
					Count:        "1",
					Sum:          p.Value,
					Attributes:   toKeyValues(p.Attributes),
				}},
				AggregationTemporality: temporalityCumulative,
			}
		default:
			m.Gauge = &gaugeMetric{
				DataPoints: []numberDataPoint{{
					TimeUnixNano: unixNano(p.Timestamp),
					AsDouble:     p.Value,
					Attributes:   toKeyValues(p.Attributes),
				}},
			}
		}
		out = append(out, m)
	}
	return metricPayload{ResourceMetrics: []resourceMetrics{{
		Resource:     otlpResource{Attributes: resourceAttributes(res)},
		ScopeMetrics: []scopeMetrics{{Scope: scopeFor(res), Metrics: out}},
	}}}
}

func buildLogPayload(res event.Resource, records []event.LogRecord) logPayload {
	out := make([]otlpLogRecord, 0, len(records))
	for _, r := range records {
		out = append(out, otlpLogRecord{
			TimeUnixNano:   unixNano(r.Timestamp),
			SeverityNumber: int(r.Severity),
			SeverityText:   r.Severity.Text(),
			Body:           stringAnyValue(r.Body),
			Attributes:     toKeyValues(r.Attributes),
			TraceID:        r.TraceID,
		})
	}
	return logPayload{ResourceLogs: []resourceLogs{{
		Resource:  otlpResource{Attributes: resourceAttributes(res)},
		ScopeLogs: []scopeLogs{{Scope: scopeFor(res), LogRecords: out}},
	}}}
}
