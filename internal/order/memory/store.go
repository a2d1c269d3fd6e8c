// Package memory provides an in-memory order.Store for tests and for
// running the service without a database file.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/jcmexdev/order-fulfillment/internal/order"
)

var _ order.Store = (*Store)(nil)

type Store struct {
	mu     sync.RWMutex
	orders map[string]order.Order
}

func NewStore() *Store {
	return &Store{orders: make(map[string]order.Order)}
}

func (s *Store) Put(ctx context.Context, o order.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[o.ID]; ok {
		return fmt.Errorf("%w: %s", order.ErrAlreadyExists, o.ID)
	}
	// Copy the lines so later caller mutations cannot reach stored state.
	stored := o
	stored.Lines = append([]order.Line(nil), o.Lines...)
	s.orders[o.ID] = stored
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return order.Order{}, fmt.Errorf("%w: %s", order.ErrNotFound, id)
	}
	o.Lines = append([]order.Line(nil), o.Lines...)
	return o, nil
}

// Len reports how many orders have been recorded. Test helper.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.orders)
}
