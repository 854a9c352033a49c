// Package clickhouse writes telemetry batches straight into ClickHouse over
// its HTTP interface, bypassing any collector. Events flatten into rows and
// ship as JSONEachRow INSERT statements, one per signal table.
package clickhouse

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

const defaultTimeout = 5 * time.Second

// Transport inserts batches into per-signal ClickHouse tables.
type Transport struct {
	endpoint     string
	database     string
	tracesTable  string
	metricsTable string
	logsTable    string
	username     string
	password     string
	httpClient   *http.Client
	compressor   backend.Compressor
	retry        backend.RetryPolicy
	logger       *zap.Logger
}

type Option func(*Transport)

func WithDatabase(db string) Option {
	return func(t *Transport) {
		if db != "" {
			t.database = db
		}
	}
}

// WithTables sets the traces, metrics, and logs table names. Empty names
// keep the defaults.
func WithTables(traces, metrics, logs string) Option {
	return func(t *Transport) {
		if traces != "" {
			t.tracesTable = traces
		}
		if metrics != "" {
			t.metricsTable = metrics
		}
		if logs != "" {
			t.logsTable = logs
		}
	}
}

func WithCredentials(username, password string) Option {
	return func(t *Transport) {
		t.username = username
		t.password = password
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

// New builds a ClickHouse transport for the given HTTP endpoint
// (e.g. http://localhost:8123).
func New(endpoint string, opts ...Option) (*Transport, error) {
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid ClickHouse endpoint %q: %w", endpoint, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("ClickHouse endpoint %q must use http or https", endpoint)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("ClickHouse endpoint %q has no host", endpoint)
	}

	t := &Transport{
		endpoint:     strings.TrimRight(endpoint, "/"),
		database:     "telemetry",
		tracesTable:  "traces",
		metricsTable: "metrics",
		logsTable:    "logs",
		username:     "default",
		httpClient:   &http.Client{Timeout: defaultTimeout},
		compressor:   backend.NewCompressor(true, 0),
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Send flattens the batch into per-signal rows and inserts each non-empty
// row set into its table. Rows that fail to encode are skipped individually;
// the rest of the batch still ships.
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
		rows := make([]any, 0, len(spans))
		for _, s := range spans {
			rows = append(rows, toTraceRow(batch.Resource, s))
		}
		merge(t.insert(ctx, t.tracesTable, rows))
	}
	if len(metrics) > 0 {
		rows := make([]any, 0, len(metrics))
		for _, m := range metrics {
			rows = append(rows, toMetricRow(batch.Resource, m))
		}
		merge(t.insert(ctx, t.metricsTable, rows))
	}
	if len(logs) > 0 {
		rows := make([]any, 0, len(logs))
		for _, l := range logs {
			rows = append(rows, toLogRow(batch.Resource, l))
		}
		merge(t.insert(ctx, t.logsTable, rows))
	}
	return total
}

func (t *Transport) insert(ctx context.Context, table string, rows []any) backend.Outcome {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	encoded := 0
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			t.logger.Debug("clickhouse row dropped", zap.String("table", table), zap.Error(err))
			continue
		}
		encoded++
	}
	if encoded == 0 {
		return backend.Outcome{Success: true}
	}

	body, encoding := t.compressor.MaybeCompress(buf.Bytes())
	insertURL := t.endpoint + "/?query=" + url.QueryEscape(
		fmt.Sprintf("INSERT INTO %s.%s FORMAT JSONEachRow", t.database, table))

	outcome := t.retry.Do(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, insertURL, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create insert request: %w", err)
		}
		req.Header.Set("Content-Type", "application/x-ndjson")
		if encoding != "" {
			req.Header.Set("Content-Encoding", encoding)
		}
		if t.username != "" {
			req.SetBasicAuth(t.username, t.password)
		}

		resp, err := t.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("clickhouse insert failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return &backend.StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
		}
		return nil
	})

	if outcome.Success {
		t.logger.Debug("clickhouse insert ok",
			zap.String("table", table),
			zap.Int("rows", encoded),
			zap.Int("attempts", outcome.Attempts))
	} else {
		t.logger.Debug("clickhouse insert failed",
			zap.String("table", table),
			zap.Int("rows", encoded),
			zap.Int("attempts", outcome.Attempts),
			zap.Error(outcome.Err))
	}
	return outcome
}
