// Package order defines the append-only order record store the saga's
// recorder branch writes to.
package order

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when no order exists for an id.
	ErrNotFound = errors.New("order: not found")

	// ErrAlreadyExists is returned by Put when the id is already taken.
	// Orders are written exactly once and never updated in place.
	ErrAlreadyExists = errors.New("order: already exists")

	// ErrUnavailable wraps transient store failures.
	ErrUnavailable = errors.New("order: store unavailable")
)

// Line is one requested {item, quantity} pair. Immutable once constructed.
type Line struct {
	ItemID   string
	Quantity int64
}

// Order is the accepted record of one committed saga run. The lines carry
// the original requested quantities, not post-reservation stock levels.
type Order struct {
	ID        string
	Lines     []Line
	CreatedAt time.Time
}

// NewID returns a fresh globally unique order identifier. Uniqueness is the
// caller's responsibility per the store contract; a v4 UUID makes collision
// probability negligible.
func NewID() string {
	return uuid.NewString()
}

// Store is the port for the order record store.
//
// Put provides no idempotency: two calls with identical lines and distinct
// ids create two distinct orders. Callers must not retry blindly.
type Store interface {
	// Put appends a new order record. The id is supplied by the caller.
	Put(ctx context.Context, o Order) error

	// Get reads a single order by id.
	Get(ctx context.Context, id string) (Order, error)
}
