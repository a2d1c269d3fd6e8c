package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/order-fulfillment/internal/inventory"
)

func TestGetUnknownItemReturnsNotFound(t *testing.T) {
	s := NewStore()
	_, err := s.Get(context.Background(), "ghost")
	require.ErrorIs(t, err, inventory.ErrNotFound)
}

func TestPutThenGet(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Put(context.Background(), inventory.Item{ID: "sku-1", Stock: 7}))

	item, err := s.Get(context.Background(), "sku-1")
	require.NoError(t, err)
	require.EqualValues(t, 7, item.Stock)
}

func TestDecrementByAllowsNegativeStock(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Put(context.Background(), inventory.Item{ID: "sku-1", Stock: 2}))

	newStock, err := s.DecrementBy(context.Background(), "sku-1", 5)
	require.NoError(t, err)
	require.EqualValues(t, -3, newStock)

	item, err := s.Get(context.Background(), "sku-1")
	require.NoError(t, err)
	require.EqualValues(t, -3, item.Stock)
}

func TestDecrementIfAvailableRejectsWithoutMutating(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Put(context.Background(), inventory.Item{ID: "sku-1", Stock: 2}))

	_, err := s.DecrementIfAvailable(context.Background(), "sku-1", 5)
	require.ErrorIs(t, err, inventory.ErrInsufficientStock)

	item, err := s.Get(context.Background(), "sku-1")
	require.NoError(t, err)
	require.EqualValues(t, 2, item.Stock)

	newStock, err := s.DecrementIfAvailable(context.Background(), "sku-1", 2)
	require.NoError(t, err)
	require.EqualValues(t, 0, newStock)
}

func TestDecrementsOnMissingItemReturnNotFound(t *testing.T) {
	s := NewStore()
	_, err := s.DecrementBy(context.Background(), "ghost", 1)
	require.ErrorIs(t, err, inventory.ErrNotFound)

	_, err = s.DecrementIfAvailable(context.Background(), "ghost", 1)
	require.ErrorIs(t, err, inventory.ErrNotFound)

	_, err = s.IncrementBy(context.Background(), "ghost", 1)
	require.ErrorIs(t, err, inventory.ErrNotFound)
}

func TestConcurrentConditionalDecrementsSerialize(t *testing.T) {
	const attempts = 100
	const stock = 50

	s := NewStore()
	require.NoError(t, s.Put(context.Background(), inventory.Item{ID: "sku-1", Stock: stock}))

	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = s.DecrementIfAvailable(context.Background(), "sku-1", 1)
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			require.ErrorIs(t, err, inventory.ErrInsufficientStock)
		}
	}
	require.Equal(t, stock, succeeded)

	item, err := s.Get(context.Background(), "sku-1")
	require.NoError(t, err)
	require.EqualValues(t, 0, item.Stock)
}

func TestIncrementByRestoresStock(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Put(context.Background(), inventory.Item{ID: "sku-1", Stock: 1}))

	_, err := s.DecrementBy(context.Background(), "sku-1", 1)
	require.NoError(t, err)

	newStock, err := s.IncrementBy(context.Background(), "sku-1", 1)
	require.NoError(t, err)
	require.EqualValues(t, 1, newStock)
}
