// Package memory provides a mutex-guarded in-memory inventory.Store for
// tests and for running the service without a Redis instance.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/jcmexdev/order-fulfillment/internal/inventory"
)

var _ inventory.Store = (*Store)(nil)

// Store keeps every record in a map. The single mutex serializes all
// updates, which trivially satisfies the per-id atomicity contract.
type Store struct {
	mu    sync.Mutex
	items map[string]int64
}

func NewStore() *Store {
	return &Store{items: make(map[string]int64)}
}

func (s *Store) Get(ctx context.Context, itemID string) (inventory.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stock, ok := s.items[itemID]
	if !ok {
		return inventory.Item{}, fmt.Errorf("%w: %s", inventory.ErrNotFound, itemID)
	}
	return inventory.Item{ID: itemID, Stock: stock}, nil
}

func (s *Store) Put(ctx context.Context, item inventory.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[item.ID] = item.Stock
	return nil
}

func (s *Store) DecrementBy(ctx context.Context, itemID string, quantity int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stock, ok := s.items[itemID]
	if !ok {
		return 0, fmt.Errorf("%w: %s", inventory.ErrNotFound, itemID)
	}
	// Compare-free by contract: negative results are stored as-is.
	stock -= quantity
	s.items[itemID] = stock
	return stock, nil
}

func (s *Store) DecrementIfAvailable(ctx context.Context, itemID string, quantity int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stock, ok := s.items[itemID]
	if !ok {
		return 0, fmt.Errorf("%w: %s", inventory.ErrNotFound, itemID)
	}
	if stock < quantity {
		return stock, fmt.Errorf("%w: %s has %d, requested %d",
			inventory.ErrInsufficientStock, itemID, stock, quantity)
	}
	stock -= quantity
	s.items[itemID] = stock
	return stock, nil
}

func (s *Store) IncrementBy(ctx context.Context, itemID string, quantity int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stock, ok := s.items[itemID]
	if !ok {
		return 0, fmt.Errorf("%w: %s", inventory.ErrNotFound, itemID)
	}
	stock += quantity
	s.items[itemID] = stock
	return stock, nil
}
