// Package telemetry is the public face of the Automagik telemetry SDK: a
// privacy-first, opt-in client that batches spans, metrics, and log records
// in memory and ships them to an OTLP collector or straight into ClickHouse.
//
// The Track methods never block on the network, never panic, and never
// return errors; a disabled client is a total no-op. Only Flush and
// Shutdown may block the caller, and only up to the configured timeout.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/namastexlabs/automagik-telemetry-go/backend"
	"github.com/namastexlabs/automagik-telemetry-go/backend/clickhouse"
	"github.com/namastexlabs/automagik-telemetry-go/backend/otlp"
	"github.com/namastexlabs/automagik-telemetry-go/config"
	"github.com/namastexlabs/automagik-telemetry-go/event"
	"github.com/namastexlabs/automagik-telemetry-go/otelbridge"
	"github.com/namastexlabs/automagik-telemetry-go/privacy"
	"github.com/namastexlabs/automagik-telemetry-go/store"
)

const maxErrorMessageLen = 500

// Client is a telemetry pipeline instance. Construct one per process with
// New and share it; all methods are safe for concurrent use.
type Client struct {
	cfg       config.Resolved
	resource  event.Resource
	transport backend.Transport
	sched     *scheduler
	logger    *zap.Logger
	store     store.Store
	bridge    *otelbridge.Bridge
}

// New resolves and validates the configuration, builds the selected
// transport, and starts the background flush scheduler. Configuration
// problems are the only errors this SDK ever returns.
func New(cfg config.Config, opts ...Option) (*Client, error) {
	resolved, err := config.Resolve(cfg)
	if err != nil {
		return nil, err
	}

	c := &Client{
		cfg:    resolved,
		logger: zap.NewNop(),
	}
	if resolved.Verbose {
		if l, err := zap.NewDevelopment(); err == nil {
			c.logger = l
		}
	}

	c.resource = event.NewResource(
		resolved.ProjectName,
		resolved.Version,
		resolved.Organization,
		config.UserIDHash(),
	)

	for _, opt := range opts {
		opt(c)
	}

	if c.transport == nil {
		c.transport, err = buildTransport(resolved, c.logger)
		if err != nil {
			return nil, err
		}
	}

	c.sched = newScheduler(
		c.transport,
		c.resource,
		resolved.BatchSize,
		resolved.FlushInterval,
		resolved.Timeout,
		c.logger,
	)

	c.logger.Debug("telemetry client ready",
		zap.String("project", resolved.ProjectName),
		zap.String("backend", string(resolved.Backend)),
		zap.Bool("enabled", resolved.Enabled))
	return c, nil
}

func buildTransport(cfg config.Resolved, logger *zap.Logger) (backend.Transport, error) {
	compressor := backend.NewCompressor(cfg.CompressionEnabled, cfg.CompressionThreshold)
	retry := backend.RetryPolicy{MaxAttempts: cfg.MaxRetries, BackoffBase: cfg.RetryBackoffBase}

	switch cfg.Backend {
	case config.BackendClickHouse:
		return clickhouse.New(cfg.ClickHouse.Endpoint,
			clickhouse.WithDatabase(cfg.ClickHouse.Database),
			clickhouse.WithTables(cfg.ClickHouse.Table, cfg.ClickHouse.MetricsTable, cfg.ClickHouse.LogsTable),
			clickhouse.WithCredentials(cfg.ClickHouse.Username, cfg.ClickHouse.Password),
			clickhouse.WithTimeout(cfg.Timeout),
			clickhouse.WithCompressor(compressor),
			clickhouse.WithRetryPolicy(retry),
			clickhouse.WithLogger(logger))
	default:
		return otlp.New(cfg.Endpoint,
			otlp.WithMetricsEndpoint(cfg.MetricsEndpoint),
			otlp.WithLogsEndpoint(cfg.LogsEndpoint),
			otlp.WithTimeout(cfg.Timeout),
			otlp.WithCompressor(compressor),
			otlp.WithRetryPolicy(retry),
			otlp.WithLogger(logger))
	}
}

// Enabled reports whether the client will record anything at all.
func (c *Client) Enabled() bool {
	return c != nil && c.cfg.Enabled
}

// TrackEvent records a named event as a point-in-time span. Attributes are
// sanitized for PII before the event enters the queue.
func (c *Client) TrackEvent(name string, attrs map[string]any) {
	if !c.Enabled() {
		return
	}
	c.safely("track_event", func() {
		now := time.Now().UTC()
		c.record(event.Span{
			TraceID:    event.NewTraceID(),
			SpanID:     event.NewSpanID(),
			Name:       name,
			StartTime:  now,
			EndTime:    now,
			Status:     event.StatusOK,
			Attributes: privacy.Sanitize(event.AttrsOf(attrs)),
		})
	})
}

// TrackSpan records a completed operation with explicit timing.
func (c *Client) TrackSpan(name string, start, end time.Time, status event.SpanStatus, attrs map[string]any) {
	if !c.Enabled() {
		return
	}
	c.safely("track_span", func() {
		c.record(event.Span{
			TraceID:    event.NewTraceID(),
			SpanID:     event.NewSpanID(),
			Name:       name,
			StartTime:  start,
			EndTime:    end,
			Status:     status,
			Attributes: privacy.Sanitize(event.AttrsOf(attrs)),
		})
	})
}

// TrackMetric records a numeric measurement.
func (c *Client) TrackMetric(name string, value float64, kind event.MetricKind, attrs map[string]any) {
	if !c.Enabled() {
		return
	}
	c.safely("track_metric", func() {
		switch kind {
		case event.Counter, event.Gauge, event.Histogram:
		default:
			kind = event.Gauge
		}
		c.record(event.MetricPoint{
			Name:       name,
			Value:      value,
			MetricKind: kind,
			Timestamp:  time.Now().UTC(),
			Attributes: privacy.Sanitize(event.AttrsOf(attrs)),
		})
	})
}

// TrackLog records a log entry. Severities outside the OTLP 1..24 range are
// clamped to INFO.
func (c *Client) TrackLog(body string, severity event.Severity, attrs map[string]any) {
	if !c.Enabled() {
		return
	}
	c.safely("track_log", func() {
		if !severity.Valid() {
			severity = event.SeverityInfo
		}
		c.record(event.LogRecord{
			Body:       body,
			Severity:   severity,
			Timestamp:  time.Now().UTC(),
			Attributes: privacy.Sanitize(event.AttrsOf(attrs)),
		})
	})
}

// TrackError records an error with its type name and truncated message,
// plus any caller-supplied context.
func (c *Client) TrackError(err error, attrs map[string]any) {
	if !c.Enabled() || err == nil {
		return
	}
	c.safely("track_error", func() {
		// Caller context goes through sanitization; the SDK's own error
		// fields are attached afterwards so the "message" denylist term
		// does not swallow error_message.
		data := privacy.Sanitize(event.AttrsOf(attrs))
		if data == nil {
			data = event.Attrs{}
		}
		data["error_type"] = event.StringValue(fmt.Sprintf("%T", err))
		msg := err.Error()
		if len(msg) > maxErrorMessageLen {
			msg = msg[:maxErrorMessageLen]
		}
		data["error_message"] = event.StringValue(msg)

		now := time.Now().UTC()
		c.record(event.Span{
			TraceID:    event.NewTraceID(),
			SpanID:     event.NewSpanID(),
			Name:       EventErrorOccurred,
			StartTime:  now,
			EndTime:    now,
			Status:     event.StatusError,
			Attributes: data,
		})
	})
}

// Flush sends everything currently queued and blocks until delivery
// completes or the configured timeout passes.
func (c *Client) Flush(ctx context.Context) {
	if !c.Enabled() {
		return
	}
	c.safely("flush", func() {
		ctx, cancel := c.bound(ctx)
		defer cancel()
		c.sched.flush(ctx)
	})
}

// Shutdown stops the background scheduler after one final best-effort
// flush. Events tracked after Shutdown are silently dropped.
func (c *Client) Shutdown(ctx context.Context) {
	if c == nil || c.sched == nil {
		return
	}
	c.safely("shutdown", func() {
		ctx, cancel := c.bound(ctx)
		defer cancel()
		c.sched.shutdown(ctx)
		if c.store != nil {
			_ = c.store.Close()
		}
	})
}

// Status reports a snapshot of the client's configuration for diagnostics
// and opt-in UX. It contains no PII beyond the user ID hash.
type Status struct {
	Enabled     bool
	Verbose     bool
	Backend     config.Backend
	Endpoint    string
	ProjectName string
	Version     string
	SessionID   string
	UserIDHash  string
	Pending     int
}

func (c *Client) Status() Status {
	if c == nil {
		return Status{}
	}
	endpoint := c.cfg.Endpoint
	if c.cfg.Backend == config.BackendClickHouse {
		endpoint = c.cfg.ClickHouse.Endpoint
	}
	return Status{
		Enabled:     c.cfg.Enabled,
		Verbose:     c.cfg.Verbose,
		Backend:     c.cfg.Backend,
		Endpoint:    endpoint,
		ProjectName: c.cfg.ProjectName,
		Version:     c.cfg.Version,
		SessionID:   c.resource.SessionID,
		UserIDHash:  c.resource.UserIDHash,
		Pending:     c.sched.pending(),
	}
}

// record hands a sanitized event to the scheduler and mirrors it to the
// optional local store and OTel bridge.
func (c *Client) record(ev event.Event) {
	c.sched.enqueue(ev)
	if c.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		if err := c.store.SaveEvent(ctx, c.resource, ev); err != nil {
			c.logger.Debug("local store write failed", zap.Error(err))
		}
		cancel()
	}
	if c.bridge != nil {
		c.bridge.Mirror(ev)
	}
}

// safely runs fn and swallows any panic; runtime failures inside the SDK
// must never reach the host application.
func (c *Client) safely(op string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Debug("telemetry recovered", zap.String("op", op), zap.Any("panic", r))
		}
	}()
	fn()
}

// bound applies the configured timeout when the caller's context carries no
// deadline of its own.
func (c *Client) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.cfg.Timeout)
}
