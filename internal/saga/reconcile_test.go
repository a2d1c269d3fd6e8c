package saga

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/order-fulfillment/internal/inventory"
	"github.com/jcmexdev/order-fulfillment/internal/order"
	ordermemory "github.com/jcmexdev/order-fulfillment/internal/order/memory"
)

func TestReconcileReleasesWhenOrderNotRecorded(t *testing.T) {
	inv := seededInventory(t, map[string]int64{"sku-1": 5, "sku-2": 5})
	orders := &failingOrderStore{err: order.ErrUnavailable}
	orch := NewOrchestrator(inv, orders)

	req := Request{Lines: []order.Line{
		{ItemID: "sku-1", Quantity: 2},
		{ItemID: "sku-2", Quantity: 1},
	}}
	out, err := orch.Run(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, StatePartiallyFailed, out.State)
	require.EqualValues(t, 3, stockOf(t, inv, "sku-1"))
	require.EqualValues(t, 4, stockOf(t, inv, "sku-2"))

	rec := NewReconciler(inv)
	require.NoError(t, rec.Reconcile(context.Background(), req, out))

	// Both reservations released: no order exists to consume them.
	require.EqualValues(t, 5, stockOf(t, inv, "sku-1"))
	require.EqualValues(t, 5, stockOf(t, inv, "sku-2"))
}

func TestReconcileSkipsFailedReservations(t *testing.T) {
	mem := seededInventory(t, map[string]int64{"sku-1": 5, "sku-2": 5})
	inv := &flakyReserveStore{Store: mem, failures: map[string]error{
		"sku-2": inventory.ErrUnavailable,
	}}
	orders := &failingOrderStore{err: order.ErrUnavailable}
	orch := NewOrchestrator(inv, orders)

	req := Request{Lines: []order.Line{
		{ItemID: "sku-1", Quantity: 2},
		{ItemID: "sku-2", Quantity: 1},
	}}
	out, err := orch.Run(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, StatePartiallyFailed, out.State)

	rec := NewReconciler(mem)
	require.NoError(t, rec.Reconcile(context.Background(), req, out))

	// sku-1's reservation was released; sku-2's never landed, so releasing
	// it would have invented stock.
	require.EqualValues(t, 5, stockOf(t, mem, "sku-1"))
	require.EqualValues(t, 5, stockOf(t, mem, "sku-2"))
}

func TestReconcileLeavesDanglingOrderAlone(t *testing.T) {
	mem := seededInventory(t, map[string]int64{"sku-1": 5, "sku-2": 5})
	inv := &flakyReserveStore{Store: mem, failures: map[string]error{
		"sku-2": inventory.ErrUnavailable,
	}}
	orders := ordermemory.NewStore()
	orch := NewOrchestrator(inv, orders)

	req := Request{Lines: []order.Line{
		{ItemID: "sku-1", Quantity: 2},
		{ItemID: "sku-2", Quantity: 1},
	}}
	out, err := orch.Run(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, StatePartiallyFailed, out.State)
	require.True(t, out.Detail.OrderRecorded)

	rec := NewReconciler(mem)
	require.NoError(t, rec.Reconcile(context.Background(), req, out))

	// A recorded order is a commitment: nothing is released automatically,
	// the case is flagged for manual review instead.
	require.EqualValues(t, 3, stockOf(t, mem, "sku-1"))
	require.EqualValues(t, 5, stockOf(t, mem, "sku-2"))
	require.Nil(t, rec.ReleasedLines(req, out))
}

func TestReconcileIgnoresOtherStates(t *testing.T) {
	inv := seededInventory(t, map[string]int64{"sku-1": 5})
	rec := NewReconciler(inv)

	req := Request{Lines: []order.Line{{ItemID: "sku-1", Quantity: 2}}}
	for _, state := range []State{StateCommitted, StateInsufficientStock, StateIndeterminate} {
		require.NoError(t, rec.Reconcile(context.Background(), req, Outcome{State: state}))
	}
	require.EqualValues(t, 5, stockOf(t, inv, "sku-1"))
}
