// Package otlp sends telemetry batches to an OpenTelemetry collector as
// OTLP/JSON over HTTP. Each signal type (traces, metrics, logs) has its own
// envelope and endpoint; a batch becomes at most one POST per signal.
package otlp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/namastexlabs/automagik-telemetry-go/backend"
	"github.com/namastexlabs/automagik-telemetry-go/event"
)

const (
	tracesPath  = "/v1/traces"
	metricsPath = "/v1/metrics"
	logsPath    = "/v1/logs"

	defaultTimeout = 5 * time.Second
)

// Transport delivers batches to OTLP/HTTP endpoints.
type Transport struct {
	tracesURL  string
	metricsURL string
	logsURL    string
	httpClient *http.Client
	compressor backend.Compressor
	retry      backend.RetryPolicy
	logger     *zap.Logger
}

type Option func(*Transport)

// WithMetricsEndpoint overrides the metrics URL derived from the traces
// endpoint.
func WithMetricsEndpoint(endpoint string) Option {
	return func(t *Transport) {
		if endpoint != "" {
			t.metricsURL = endpoint
		}
	}
}

// WithLogsEndpoint overrides the logs URL derived from the traces endpoint.
func WithLogsEndpoint(endpoint string) Option {
	return func(t *Transport) {
		if endpoint != "" {
			t.logsURL = endpoint
		}
	}
}

func WithHTTPClient(c *http.Client) Option {
	return func(t *Transport) {
		if c != nil {
			t.httpClient = c
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(t *Transport) {
		if d > 0 {
			t.httpClient.Timeout = d
		}
	}
}

func WithCompressor(c backend.Compressor) Option {
	return func(t *Transport) { t.compressor = c }
}

func WithRetryPolicy(p backend.RetryPolicy) Option {
	return func(t *Transport) { t.retry = p }
}

func WithLogger(l *zap.Logger) Option {
	return func(t *Transport) {
		if l != nil {
			t.logger = l
		}
	}
}

// New builds an OTLP transport for the given traces endpoint. Metrics and
// logs endpoints derive from it by path substitution unless overridden.
func New(endpoint string, opts ...Option) (*Transport, error) {
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid OTLP endpoint %q: %w", endpoint, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("OTLP endpoint %q must use http or https", endpoint)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("OTLP endpoint %q has no host", endpoint)
	}

	t := &Transport{
		tracesURL:  endpoint,
		metricsURL: deriveEndpoint(endpoint, metricsPath),
		logsURL:    deriveEndpoint(endpoint, logsPath),
		httpClient: &http.Client{Timeout: defaultTimeout},
		compressor: backend.NewCompressor(true, 0),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// deriveEndpoint swaps the traces path segment for the target signal's path,
// or appends it when the base endpoint carries no signal path.
func deriveEndpoint(base, signalPath string) string {
	if strings.Contains(base, tracesPath) {
		return strings.Replace(base, tracesPath, signalPath, 1)
	}
	return strings.TrimRight(base, "/") + signalPath
}

// Send posts every non-empty signal partition of the batch. The outcome
// aggregates across partitions: success requires every POST to succeed,
// attempts sum over all of them, and the error is the last failure seen.
func (t *Transport) Send(ctx context.Context, batch *event.Batch) backend.Outcome {
	spans, metrics, logs := batch.Partition()

	total := backend.Outcome{Success: true}
	merge := func(o backend.Outcome) {
		total.Attempts += o.Attempts
		if !o.Success {
			total.Success = false
			total.Err = o.Err
		}
	}

	if len(spans) > 0 {
		merge(t.post(ctx, t.tracesURL, "traces", buildTracePayload(batch.Resource, spans)))
	}
	if len(metrics) > 0 {
		merge(t.post(ctx, t.metricsURL, "metrics", buildMetricPayload(batch.Resource, metrics)))
	}
	if len(logs) > 0 {
		merge(t.post(ctx, t.logsURL, "logs", buildLogPayload(batch.Resource, logs)))
	}
	return total
}

func (t *Transport) post(ctx context.Context, endpoint, signal string, payload any) backend.Outcome {
	raw, err := json.Marshal(payload)
	if err != nil {
		return backend.Outcome{Success: false, Attempts: 1, Err: fmt.Errorf("encode %s payload: %w", signal, err)}
	}
	body, encoding := t.compressor.MaybeCompress(raw)

	outcome := t.retry.Do(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create %s request: %w", signal, err)
		}
		req.Header.Set("Content-Type", "application/json")
		if encoding != "" {
			req.Header.Set("Content-Encoding", encoding)
		}

		resp, err := t.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("%s request failed: %w", signal, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return &backend.StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
		}
		return nil
	})

	if outcome.Success {
		t.logger.Debug("otlp send ok",
			zap.String("signal", signal),
			zap.Int("attempts", outcome.Attempts),
			zap.Int("bytes", len(body)),
			zap.Bool("compressed", encoding != ""))
	} else {
		t.logger.Debug("otlp send failed",
			zap.String("signal", signal),
			zap.Int("attempts", outcome.Attempts),
			zap.Error(outcome.Err))
	}
	return outcome
}
