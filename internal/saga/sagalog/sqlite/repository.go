// Package sqlite provides a SQLite-backed sagalog.Repository.
//
// WAL mode keeps the saga goroutine's appends from blocking status reads.
// The pure-Go modernc.org/sqlite driver avoids CGO.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jcmexdev/order-fulfillment/internal/saga/sagalog"

	_ "modernc.org/sqlite"
)

var _ sagalog.Repository = (*Repository)(nil)

// Append-only: one immutable row per transition. The latest row per saga_id
// is that saga's current state.
const schema = `
CREATE TABLE IF NOT EXISTS saga_logs (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    saga_id     TEXT NOT NULL,
    state       TEXT NOT NULL,
    detail      TEXT NOT NULL DEFAULT '',
    trace_id    TEXT NOT NULL DEFAULT '',
    span_id     TEXT NOT NULL DEFAULT '',
    created_at  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_saga_logs_saga_id  ON saga_logs(saga_id, created_at);
CREATE INDEX IF NOT EXISTS idx_saga_logs_trace_id ON saga_logs(trace_id);
`

type Repository struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
func Open(path string) (*Repository, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

// Append inserts a new log row. Safe for concurrent use.
func (r *Repository) Append(ctx context.Context, e *sagalog.Entry) error {
	const q = `
		INSERT INTO saga_logs (saga_id, state, detail, trace_id, span_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, q,
		e.SagaID, e.State, e.Detail, e.TraceID, e.SpanID,
		e.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("sqlite: append saga log for %q: %w", e.SagaID, err)
	}
	return nil
}

// Latest returns the most recent entry for a saga id. Backs the status
// endpoint and crash-recovery inspection.
func (r *Repository) Latest(ctx context.Context, sagaID string) (*sagalog.Entry, error) {
	const q = `
		SELECT saga_id, state, detail, trace_id, span_id, created_at
		FROM   saga_logs
		WHERE  saga_id = ?
		ORDER  BY id DESC
		LIMIT  1`

	var entry sagalog.Entry
	var createdAt string
	err := r.db.QueryRowContext(ctx, q, sagaID).Scan(
		&entry.SagaID, &entry.State, &entry.Detail,
		&entry.TraceID, &entry.SpanID, &createdAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("sqlite: saga %q not found", sagaID)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: latest for %q: %w", sagaID, err)
	}

	entry.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("sqlite: parse created_at %q: %w", createdAt, err)
	}
	return &entry, nil
}
