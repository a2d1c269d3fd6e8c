// Package inventory defines the inventory store port the fulfillment saga
// operates against: a key-value record store keyed by item id, holding the
// current stock level, with atomic arithmetic updates.
package inventory

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when no record exists for an item id.
	ErrNotFound = errors.New("inventory: item not found")

	// ErrInsufficientStock is returned by DecrementIfAvailable when current
	// stock is lower than the requested quantity. The record is untouched.
	ErrInsufficientStock = errors.New("inventory: insufficient stock")

	// ErrUnavailable wraps transient store failures (connection refused,
	// timeouts). The failed single-item operation is safe to retry.
	ErrUnavailable = errors.New("inventory: store unavailable")
)

// Item is one inventory record.
type Item struct {
	ID    string
	Stock int64
}

// Store is the port for the inventory record store.
//
// Implementations must serialize concurrent updates on the same item id:
// the saga performs no locking of its own and leans entirely on the store's
// atomic arithmetic primitives for per-id correctness.
type Store interface {
	// Get reads the current record for an item id. Pure read.
	Get(ctx context.Context, itemID string) (Item, error)

	// Put creates or replaces the record for an item id.
	Put(ctx context.Context, item Item) error

	// DecrementBy atomically subtracts quantity from the item's stock and
	// returns the new value. This is a compare-free arithmetic update: the
	// result may go negative. Racing callers that each passed a stale
	// availability check can over-commit stock through this primitive.
	DecrementBy(ctx context.Context, itemID string, quantity int64) (int64, error)

	// DecrementIfAvailable subtracts quantity only when stock >= quantity,
	// as a single atomic check-and-subtract. Returns ErrInsufficientStock
	// (without mutating) otherwise. This closes the check/reserve race that
	// DecrementBy leaves open.
	DecrementIfAvailable(ctx context.Context, itemID string, quantity int64) (int64, error)

	// IncrementBy atomically adds quantity back to the item's stock.
	// Used by reconciliation to release reservations that should not stick.
	IncrementBy(ctx context.Context, itemID string, quantity int64) (int64, error)
}
