package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/order-fulfillment/internal/order"
)

func TestPutThenGetRoundTrips(t *testing.T) {
	s := NewStore()
	o := order.Order{
		ID:        order.NewID(),
		Lines:     []order.Line{{ItemID: "sku-1", Quantity: 2}},
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, s.Put(context.Background(), o))

	got, err := s.Get(context.Background(), o.ID)
	require.NoError(t, err)
	require.Equal(t, o.Lines, got.Lines)
}

func TestPutRejectsDuplicateID(t *testing.T) {
	s := NewStore()
	o := order.Order{ID: "ord-1", Lines: []order.Line{{ItemID: "sku-1", Quantity: 1}}}
	require.NoError(t, s.Put(context.Background(), o))

	err := s.Put(context.Background(), o)
	require.ErrorIs(t, err, order.ErrAlreadyExists)
	require.Equal(t, 1, s.Len())
}

func TestGetUnknownOrderReturnsNotFound(t *testing.T) {
	s := NewStore()
	_, err := s.Get(context.Background(), "ghost")
	require.ErrorIs(t, err, order.ErrNotFound)
}
