package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/namastexlabs/automagik-telemetry-go/event"
	"github.com/namastexlabs/automagik-telemetry-go/store"
)

//go:embed schema.sql
var schemaSQL string

const defaultLimit = 200

// Store keeps a local copy of tracked events in a SQLite database.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database at path and applies the schema.
func New(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite store path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable wal: %w", err)
	}
	if _, err := db.ExecContext(context.Background(), schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) SaveEvent(ctx context.Context, res event.Resource, ev event.Event) error {
	if s == nil || s.db == nil {
		return nil
	}
	rec := store.Flatten(res, ev)
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	attrs, err := json.Marshal(rec.Attributes)
	if err != nil {
		return fmt.Errorf("failed to encode attributes: %w", err)
	}
	const q = `
INSERT INTO telemetry_events (
  event_id, session_id, kind, name, trace_id, body, severity, value, attributes, timestamp
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`
	_, err = s.db.ExecContext(
		ctx,
		q,
		rec.ID,
		rec.SessionID,
		string(rec.Kind),
		rec.Name,
		rec.TraceID,
		rec.Body,
		rec.Severity,
		rec.Value,
		string(attrs),
		rec.Timestamp.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to save event: %w", err)
	}
	return nil
}

func (s *Store) ListEvents(ctx context.Context, query store.ListQuery) ([]store.Record, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	limit := query.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	offset := query.Offset
	if offset < 0 {
		offset = 0
	}

	where := ""
	args := []any{}
	if query.Kind != "" {
		where = "WHERE kind = ?"
		args = append(args, string(query.Kind))
	}
	q := fmt.Sprintf(`
SELECT event_id, session_id, kind, name, trace_id, body, severity, value, attributes, timestamp
FROM telemetry_events
%s
ORDER BY timestamp ASC
LIMIT ? OFFSET ?;
`, where)
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	out := make([]store.Record, 0, limit)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}
	return out, nil
}

func scanRecord(scanner interface{ Scan(dest ...any) error }) (store.Record, error) {
	var (
		rec   store.Record
		kind  string
		attrs string
		tsRaw string
	)
	if err := scanner.Scan(
		&rec.ID,
		&rec.SessionID,
		&kind,
		&rec.Name,
		&rec.TraceID,
		&rec.Body,
		&rec.Severity,
		&rec.Value,
		&attrs,
		&tsRaw,
	); err != nil {
		return store.Record{}, fmt.Errorf("failed to scan event: %w", err)
	}
	rec.Kind = event.Kind(kind)
	if tsRaw != "" {
		ts, err := time.Parse(time.RFC3339Nano, tsRaw)
		if err == nil {
			rec.Timestamp = ts
		}
	}
	if attrs != "" && attrs != "null" {
		_ = json.Unmarshal([]byte(attrs), &rec.Attributes)
	}
	return rec, nil
}

func (s *Store) Summarize(ctx context.Context) (store.Summary, error) {
	if s == nil || s.db == nil {
		return store.Summary{}, nil
	}
	summary := store.Summary{}
	counter := func(kind event.Kind) (int64, error) {
		var n int64
		err := s.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM telemetry_events WHERE kind = ?", string(kind)).Scan(&n)
		return n, err
	}

	var err error
	if summary.Spans, err = counter(event.KindSpan); err != nil {
		return store.Summary{}, fmt.Errorf("summary spans: %w", err)
	}
	if summary.Metrics, err = counter(event.KindMetric); err != nil {
		return store.Summary{}, fmt.Errorf("summary metrics: %w", err)
	}
	if summary.Logs, err = counter(event.KindLog); err != nil {
		return store.Summary{}, fmt.Errorf("summary logs: %w", err)
	}
	err = s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM telemetry_events WHERE kind = ? AND severity >= ?",
		string(event.KindLog), int(event.SeverityError)).Scan(&summary.Errors)
	if err != nil {
		return store.Summary{}, fmt.Errorf("summary errors: %w", err)
	}

	return summary, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

var _ store.Store = (*Store)(nil)
