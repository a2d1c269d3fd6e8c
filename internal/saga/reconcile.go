package saga

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jcmexdev/order-fulfillment/internal/inventory"
	"github.com/jcmexdev/order-fulfillment/internal/order"
)

// Reconciler cleans up the residue of a partially failed run. It is a
// deliberately separate component: the orchestrator's contract is honest
// about performing no compensation, so undoing half-applied work is an
// explicit caller-level decision, not an automatic rollback.
type Reconciler struct {
	inventory inventory.Store
}

func NewReconciler(inv inventory.Store) *Reconciler {
	return &Reconciler{inventory: inv}
}

// Reconcile inspects a PartiallyFailed outcome and reverses the stock
// decrements that landed while the run as a whole failed.
//
// Two shapes exist:
//
//   - Order not recorded: every reservation that succeeded is released,
//     since no order exists to consume it.
//   - Order recorded but some reservations failed: the order record is a
//     dangling commitment the inventory cannot back. The store is
//     append-only, so the order is flagged for manual review rather than
//     deleted; nothing is released.
//
// Outcomes in any other state are a no-op.
func (r *Reconciler) Reconcile(ctx context.Context, req Request, out Outcome) error {
	if out.State != StatePartiallyFailed || out.Detail == nil {
		return nil
	}
	detail := out.Detail

	if detail.OrderRecorded {
		slog.WarnContext(ctx, "dangling order needs manual review",
			"saga_id", out.SagaID,
			"order_id", out.OrderID,
			"failed_reservations", len(detail.FailedReservations))
		return nil
	}

	failed := make(map[string]bool, len(detail.FailedReservations))
	for _, f := range detail.FailedReservations {
		failed[f.ItemID] = true
	}

	var errs []error
	for _, line := range mergeLines(req.Lines) {
		if failed[line.ItemID] {
			// This reservation never landed; there is nothing to release.
			continue
		}
		if _, err := r.inventory.IncrementBy(ctx, line.ItemID, line.Quantity); err != nil {
			errs = append(errs, fmt.Errorf("release %s: %w", line.ItemID, err))
			continue
		}
		slog.InfoContext(ctx, "released reservation",
			"saga_id", out.SagaID, "item_id", line.ItemID, "quantity", line.Quantity)
	}
	return errors.Join(errs...)
}

// ReleasedLines returns the lines Reconcile would release for the given
// outcome, without touching the store. Useful for dry runs and tests.
func (r *Reconciler) ReleasedLines(req Request, out Outcome) []order.Line {
	if out.State != StatePartiallyFailed || out.Detail == nil || out.Detail.OrderRecorded {
		return nil
	}
	failed := make(map[string]bool, len(out.Detail.FailedReservations))
	for _, f := range out.Detail.FailedReservations {
		failed[f.ItemID] = true
	}
	var released []order.Line
	for _, line := range mergeLines(req.Lines) {
		if !failed[line.ItemID] {
			released = append(released, line)
		}
	}
	return released
}
