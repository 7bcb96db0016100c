package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

// Event is one recorded pipeline action: an upload, a review decision, an
// approval, a rejection, a deletion.
type Event struct {
	ID        string
	Timestamp time.Time
	Action    string // e.g. "batch_uploaded", "batch_approved", "item_edited"
	ActorID   string
	BatchID   string
	Metadata  any // marshalled to JSON on insert
}

// Sink records pipeline events. Recording must never fail a business
// operation, so implementations log and swallow their own errors.
type Sink interface {
	Record(ctx context.Context, e Event)
	Close() error
}

// NopSink discards every event. Used in tests and when auditing is disabled.
type NopSink struct{}

func (NopSink) Record(context.Context, Event) {}
func (NopSink) Close() error                  { return nil }

// SQLiteSink writes events to a local SQLite file, kept separate from the
// main database so the trail survives relational migrations.
type SQLiteSink struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open creates (or reuses) the audit database at path and ensures the schema.
func Open(path string, logger *slog.Logger) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS audit_events (
		id        TEXT PRIMARY KEY,
		timestamp INTEGER NOT NULL,
		action    TEXT NOT NULL,
		actor_id  TEXT NOT NULL DEFAULT '',
		batch_id  TEXT NOT NULL DEFAULT '',
		metadata  TEXT NOT NULL DEFAULT ''
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create audit schema: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLiteSink{db: db, logger: logger}, nil
}

func (s *SQLiteSink) Record(ctx context.Context, e Event) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	var metadata string
	if e.Metadata != nil {
		if b, err := json.Marshal(e.Metadata); err == nil {
			metadata = string(b)
		}
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO audit_events
		(id, timestamp, action, actor_id, batch_id, metadata)
		VALUES (?,?,?,?,?,?)`,
		e.ID, e.Timestamp.Unix(), e.Action, e.ActorID, e.BatchID, metadata)
	if err != nil {
		s.logger.Error("audit insert failed", "action", e.Action, "error", err)
	}
}

// Recent returns the newest events, for the admin surface.
func (s *SQLiteSink) Recent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, timestamp, action, actor_id, batch_id, metadata
		FROM audit_events ORDER BY timestamp DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		var ts int64
		var metadata string
		if err := rows.Scan(&e.ID, &ts, &e.Action, &e.ActorID, &e.BatchID, &metadata); err != nil {
			return nil, err
		}
		e.Timestamp = time.Unix(ts, 0).UTC()
		if metadata != "" {
			e.Metadata = json.RawMessage(metadata)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteSink) Close() error {
	return s.db.Close()
}
