// Package sqlite provides a SQLite-backed order.Store.
//
// The pure-Go modernc.org/sqlite driver keeps the build CGO-free. WAL mode
// is enabled so the saga's writer goroutine and the HTTP read path never
// block each other.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jcmexdev/order-fulfillment/internal/order"

	_ "modernc.org/sqlite"
)

var _ order.Store = (*Store)(nil)

// Orders are append-only: a row is inserted once on commit and never
// updated. Lines live in a child table, positioned to preserve the
// submitted line order.
const schema = `
CREATE TABLE IF NOT EXISTS orders (
    order_id    TEXT PRIMARY KEY,
    created_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS order_lines (
    order_id    TEXT    NOT NULL REFERENCES orders(order_id),
    position    INTEGER NOT NULL,
    item_id     TEXT    NOT NULL,
    quantity    INTEGER NOT NULL,
    PRIMARY KEY (order_id, position)
);
`

type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}

	// SQLite performs best with a single writer connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Put(ctx context.Context, o order.Order) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", order.ErrUnavailable, err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO orders (order_id, created_at) VALUES (?, ?)`,
		o.ID, o.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: %s", order.ErrAlreadyExists, o.ID)
		}
		return fmt.Errorf("%w: insert order %s: %v", order.ErrUnavailable, o.ID, err)
	}

	for i, line := range o.Lines {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO order_lines (order_id, position, item_id, quantity) VALUES (?, ?, ?, ?)`,
			o.ID, i, line.ItemID, line.Quantity,
		)
		if err != nil {
			return fmt.Errorf("%w: insert line %d of %s: %v", order.ErrUnavailable, i, o.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit %s: %v", order.ErrUnavailable, o.ID, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (order.Order, error) {
	var createdAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT created_at FROM orders WHERE order_id = ?`, id,
	).Scan(&createdAt)
	if err == sql.ErrNoRows {
		return order.Order{}, fmt.Errorf("%w: %s", order.ErrNotFound, id)
	}
	if err != nil {
		return order.Order{}, fmt.Errorf("%w: get %s: %v", order.ErrUnavailable, id, err)
	}

	o := order.Order{ID: id}
	o.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return order.Order{}, fmt.Errorf("sqlite: parse created_at %q: %w", createdAt, err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT item_id, quantity FROM order_lines WHERE order_id = ? ORDER BY position`, id,
	)
	if err != nil {
		return order.Order{}, fmt.Errorf("%w: lines of %s: %v", order.ErrUnavailable, id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var line order.Line
		if err := rows.Scan(&line.ItemID, &line.Quantity); err != nil {
			return order.Order{}, fmt.Errorf("%w: scan line of %s: %v", order.ErrUnavailable, id, err)
		}
		o.Lines = append(o.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return order.Order{}, fmt.Errorf("%w: iterate lines of %s: %v", order.ErrUnavailable, id, err)
	}
	return o, nil
}
