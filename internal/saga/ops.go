package saga

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jcmexdev/order-fulfillment/internal/order"
)

// The three resource operations the orchestrator sequences. Each carries its
// own bounded timeout so a hung store call surfaces as a failure of that one
// fan-out member instead of stalling the whole stage.

// check is the availability checker: a pure read comparing current stock to
// the requested quantity. Advisory only: time-of-check is not time-of-use,
// and a concurrent decrement can invalidate the answer before reservation.
func (o *Orchestrator) check(ctx context.Context, itemID string, qty int64) (bool, error) {
	ctx, span := o.tracer.Start(ctx, "saga.check", trace.WithAttributes(
		attribute.String("item.id", itemID),
		attribute.Int64("item.quantity", qty),
	))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, o.callTimeout)
	defer cancel()

	item, err := o.inventory.Get(ctx, itemID)
	if err != nil {
		span.RecordError(err)
		return false, err
	}
	return item.Stock >= qty, nil
}

// reserve is the stock reservation executor: a single atomic decrement of
// the item's stock. In unconditional mode it does not re-validate the
// result at the store level. It trusts the upstream check, which the
// orchestrator upholds by never reserving a line whose check failed.
func (o *Orchestrator) reserve(ctx context.Context, itemID string, qty int64) (int64, error) {
	ctx, span := o.tracer.Start(ctx, "saga.reserve", trace.WithAttributes(
		attribute.String("item.id", itemID),
		attribute.Int64("item.quantity", qty),
	))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, o.callTimeout)
	defer cancel()

	var newStock int64
	var err error
	if o.mode == ModeUnconditional {
		newStock, err = o.inventory.DecrementBy(ctx, itemID, qty)
	} else {
		newStock, err = o.inventory.DecrementIfAvailable(ctx, itemID, qty)
	}
	if err != nil {
		span.RecordError(err)
		return 0, err
	}
	return newStock, nil
}

// record is the order recorder: it persists the accepted lines under the
// generated id as a single new record. Not idempotent: recording the same
// lines twice creates two distinct orders.
func (o *Orchestrator) record(ctx context.Context, orderID string, lines []order.Line) error {
	ctx, span := o.tracer.Start(ctx, "saga.record", trace.WithAttributes(
		attribute.String("order.id", orderID),
	))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, o.callTimeout)
	defer cancel()

	err := o.orders.Put(ctx, order.Order{
		ID:        orderID,
		Lines:     lines,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		span.RecordError(err)
	}
	return err
}
