// Package saga implements the order-fulfillment orchestration core: an
// all-or-nothing multi-resource reservation saga.
//
// One run moves through Checking (a concurrent availability fan-out over
// every line, joined before the transition rule is evaluated) and, only if
// every line passed, Executing (two sibling branches started together: a
// reservation fan-out decrementing stock per line, and a single order-record
// write). The branches are not mutually gated, so the order can be recorded
// even if a reservation later fails, and vice versa. The orchestrator never
// compensates; a PartiallyFailed outcome reports exactly what happened and
// leaves recovery to the Reconciler.
package saga

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"github.com/jcmexdev/order-fulfillment/internal/inventory"
	"github.com/jcmexdev/order-fulfillment/internal/order"
	"github.com/jcmexdev/order-fulfillment/internal/saga/sagalog"
)

// ReservationMode selects which store primitive branch A decrements with.
type ReservationMode string

const (
	// ModeConditional reserves with the atomic check-and-subtract primitive.
	// A run racing on stale check results fails its reservation instead of
	// driving stock negative. This is the default.
	ModeConditional ReservationMode = "conditional"

	// ModeUnconditional reserves with the compare-free subtract. It trusts
	// the upstream availability check entirely, so concurrent runs that both
	// passed Checking on stale stock can over-commit and leave stock
	// negative. Kept selectable because it is the documented baseline
	// behavior of the original workflow.
	ModeUnconditional ReservationMode = "unconditional"
)

const (
	defaultCallTimeout = 5 * time.Second
	defaultFanoutLimit = 16
)

// Orchestrator drives saga runs. Safe for concurrent use; runs share no
// mutable state, and per-id correctness is delegated to the inventory
// store's atomic update primitives.
type Orchestrator struct {
	inventory inventory.Store
	orders    order.Store
	sagaLog   sagalog.Repository // nil disables durable logging
	newID     func() string
	tracer    trace.Tracer

	callTimeout time.Duration
	fanoutLimit int64
	mode        ReservationMode
}

type Option func(*Orchestrator)

// WithSagaLog persists every state transition to the given repository.
func WithSagaLog(repo sagalog.Repository) Option {
	return func(o *Orchestrator) { o.sagaLog = repo }
}

// WithCallTimeout bounds each individual store call. A timeout folds into
// the stage aggregate exactly like a logical failure of that member.
func WithCallTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.callTimeout = d }
}

// WithFanoutLimit caps how many store calls a stage dispatches at once.
func WithFanoutLimit(n int64) Option {
	return func(o *Orchestrator) { o.fanoutLimit = n }
}

// WithReservationMode switches between the conditional and the baseline
// unconditional decrement.
func WithReservationMode(m ReservationMode) Option {
	return func(o *Orchestrator) { o.mode = m }
}

// WithIDGenerator overrides order-id generation, e.g. for deterministic
// tests. Ids must be globally unique; the default is a v4 UUID.
func WithIDGenerator(f func() string) Option {
	return func(o *Orchestrator) { o.newID = f }
}

func NewOrchestrator(inv inventory.Store, orders order.Store, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		inventory:   inv,
		orders:      orders,
		newID:       order.NewID,
		tracer:      otel.Tracer("fulfillment/saga"),
		callTimeout: defaultCallTimeout,
		fanoutLimit: defaultFanoutLimit,
		mode:        ModeConditional,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes one saga for the given request and returns its terminal
// outcome. The returned error is non-nil only for malformed requests, which
// are rejected before any store interaction; every well-formed request
// produces a structured Outcome.
func (o *Orchestrator) Run(ctx context.Context, req Request) (Outcome, error) {
	if err := req.validate(); err != nil {
		return Outcome{}, err
	}
	lines := mergeLines(req.Lines)

	// The generated order id doubles as the saga id so log rows, spans and
	// the eventual order record all join on one key.
	sagaID := o.newID()

	ctx, span := o.tracer.Start(ctx, "saga.Run", trace.WithAttributes(
		attribute.String("saga.id", sagaID),
		attribute.Int("saga.lines", len(lines)),
	))
	defer span.End()

	slog.InfoContext(ctx, "saga started", "saga_id", sagaID, "lines", len(lines))
	o.appendLog(ctx, sagaID, StateChecking, nil)

	checks := o.runChecking(ctx, lines)

	var failing []string
	transient := false
	for _, res := range checks {
		switch {
		case res.Err == nil && res.InStock:
		case res.Err == nil || errors.Is(res.Err, inventory.ErrNotFound):
			// A missing item is a hard check failure for that line, folded
			// into the same rejection as a plain shortfall.
			failing = append(failing, res.ItemID)
		default:
			transient = true
		}
	}

	switch {
	case len(failing) > 0:
		// Fail fast before any mutation: no reservation or order-record
		// call is made once a single line is known short.
		slog.WarnContext(ctx, "saga rejected, insufficient stock",
			"saga_id", sagaID, "failing_items", failing)
		span.SetStatus(codes.Error, "insufficient stock")
		out := Outcome{State: StateInsufficientStock, SagaID: sagaID, FailingItemIDs: failing}
		o.appendLog(ctx, sagaID, StateInsufficientStock, &out)
		return out, nil

	case transient:
		// Only transient failures and no known shortfall: the stock
		// position is unknown, which is not the same as insufficient.
		slog.WarnContext(ctx, "saga indeterminate, transient check failures", "saga_id", sagaID)
		span.SetStatus(codes.Error, "indeterminate")
		out := Outcome{State: StateIndeterminate, SagaID: sagaID}
		o.appendLog(ctx, sagaID, StateIndeterminate, &out)
		return out, nil
	}

	o.appendLog(ctx, sagaID, StateExecuting, nil)
	out := o.runExecuting(ctx, sagaID, lines)

	if out.State == StateCommitted {
		slog.InfoContext(ctx, "saga committed", "saga_id", sagaID, "order_id", out.OrderID)
	} else {
		slog.ErrorContext(ctx, "saga partially failed, reconciliation required",
			"saga_id", sagaID,
			"order_recorded", out.Detail.OrderRecorded,
			"failed_reservations", len(out.Detail.FailedReservations))
		span.SetStatus(codes.Error, "partial failure")
	}
	o.appendLog(ctx, sagaID, out.State, &out)
	return out, nil
}

type checkResult struct {
	ItemID  string
	InStock bool
	Err     error
}

// runChecking fans out one availability check per line and joins on all of
// them. This is a barrier, not a race: the stage collects every result so
// the caller can be told exactly which lines failed.
func (o *Orchestrator) runChecking(ctx context.Context, lines []order.Line) []checkResult {
	ctx, span := o.tracer.Start(ctx, "saga.Checking")
	defer span.End()

	sem := semaphore.NewWeighted(o.fanoutLimit)
	results := make([]checkResult, len(lines))

	var wg sync.WaitGroup
	for i, line := range lines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				results[i] = checkResult{ItemID: line.ItemID, Err: err}
				return
			}
			defer sem.Release(1)

			inStock, err := o.check(ctx, line.ItemID, line.Quantity)
			results[i] = checkResult{ItemID: line.ItemID, InStock: inStock, Err: err}
		}()
	}
	wg.Wait()
	return results
}

type reservationResult struct {
	ItemID   string
	NewStock int64
	Err      error
}

// runExecuting starts the reservation fan-out and the order-record write as
// sibling branches of one join. Nothing aborts an in-flight branch because
// its sibling failed; both run to completion and the outcome reports each.
func (o *Orchestrator) runExecuting(ctx context.Context, sagaID string, lines []order.Line) Outcome {
	ctx, span := o.tracer.Start(ctx, "saga.Executing")
	defer span.End()

	reservations := make([]reservationResult, len(lines))
	var recordErr error

	var wg sync.WaitGroup

	// Branch A: one reservation per line, fanned out.
	wg.Add(1)
	go func() {
		defer wg.Done()
		o.reserveAll(ctx, lines, reservations)
	}()

	// Branch B: record the order once, with the original requested
	// quantities.
	wg.Add(1)
	go func() {
		defer wg.Done()
		recordErr = o.record(ctx, sagaID, lines)
	}()

	wg.Wait()

	detail := &ExecutionDetail{OrderRecorded: recordErr == nil, OrderErr: recordErr}
	for _, res := range reservations {
		if res.Err != nil {
			detail.FailedReservations = append(detail.FailedReservations,
				ReservationFailure{ItemID: res.ItemID, Err: res.Err})
		}
	}

	if detail.OrderRecorded && len(detail.FailedReservations) == 0 {
		return Outcome{State: StateCommitted, SagaID: sagaID, OrderID: sagaID}
	}

	out := Outcome{State: StatePartiallyFailed, SagaID: sagaID, Detail: detail}
	if detail.OrderRecorded {
		out.OrderID = sagaID
	}
	return out
}

func (o *Orchestrator) reserveAll(ctx context.Context, lines []order.Line, results []reservationResult) {
	sem := semaphore.NewWeighted(o.fanoutLimit)

	var wg sync.WaitGroup
	for i, line := range lines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				results[i] = reservationResult{ItemID: line.ItemID, Err: err}
				return
			}
			defer sem.Release(1)

			newStock, err := o.reserve(ctx, line.ItemID, line.Quantity)
			results[i] = reservationResult{ItemID: line.ItemID, NewStock: newStock, Err: err}
		}()
	}
	wg.Wait()
}

// appendLog writes one transition to the saga log. Logging failures are
// reported but never fail the run.
func (o *Orchestrator) appendLog(ctx context.Context, sagaID string, state State, out *Outcome) {
	if o.sagaLog == nil {
		return
	}
	entry := sagalog.NewEntry(ctx, sagaID, string(state), marshalDetail(out))
	if err := o.sagaLog.Append(ctx, entry); err != nil {
		slog.ErrorContext(ctx, "saga log append failed", "saga_id", sagaID, "state", state, "error", err)
	}
}

// marshalDetail renders the outcome-specific payload stored alongside a
// terminal log row.
func marshalDetail(out *Outcome) string {
	if out == nil {
		return ""
	}
	payload := struct {
		OrderID            string   `json:"order_id,omitempty"`
		FailingItemIDs     []string `json:"failing_item_ids,omitempty"`
		OrderRecorded      *bool    `json:"order_recorded,omitempty"`
		OrderError         string   `json:"order_error,omitempty"`
		FailedReservations []string `json:"failed_reservations,omitempty"`
	}{
		OrderID:        out.OrderID,
		FailingItemIDs: out.FailingItemIDs,
	}
	if d := out.Detail; d != nil {
		payload.OrderRecorded = &d.OrderRecorded
		if d.OrderErr != nil {
			payload.OrderError = d.OrderErr.Error()
		}
		for _, f := range d.FailedReservations {
			payload.FailedReservations = append(payload.FailedReservations, f.ItemID)
		}
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return ""
	}
	return string(b)
}
