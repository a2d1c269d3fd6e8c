package saga

import (
	"fmt"

	"github.com/jcmexdev/order-fulfillment/internal/order"
)

// State identifies a position in the saga's state machine. The four terminal
// values double as outcome discriminators.
type State string

const (
	StateChecking  State = "CHECKING"
	StateExecuting State = "EXECUTING"

	// Terminal states.
	StateCommitted         State = "COMMITTED"
	StateInsufficientStock State = "INSUFFICIENT_STOCK"
	StatePartiallyFailed   State = "PARTIALLY_FAILED"
	StateIndeterminate     State = "INDETERMINATE"
)

// Request is the input to one saga run. Ephemeral; it exists only for the
// duration of the orchestration.
type Request struct {
	Lines []order.Line
}

// Outcome is the terminal result of one saga run.
type Outcome struct {
	State State

	// SagaID identifies the run in the saga log and in traces. It is also
	// the id the order was (or would have been) recorded under.
	SagaID string

	// OrderID is set only when an order record was actually written.
	OrderID string

	// FailingItemIDs lists the lines that failed the availability check.
	// Populated only for StateInsufficientStock.
	FailingItemIDs []string

	// Detail describes the per-branch result of the Executing stage.
	// Populated only for StatePartiallyFailed.
	Detail *ExecutionDetail
}

// ExecutionDetail captures which parts of the Executing stage succeeded.
// The orchestrator performs no compensation; this is the honest record a
// caller-level reconciler works from.
type ExecutionDetail struct {
	// OrderRecorded reports whether the order-record branch succeeded.
	OrderRecorded bool

	// OrderErr is the recorder branch failure, nil when OrderRecorded.
	OrderErr error

	// FailedReservations lists the line reservations that failed. Lines not
	// listed here had their stock decremented.
	FailedReservations []ReservationFailure
}

// ReservationFailure is one failed stock decrement within branch A.
type ReservationFailure struct {
	ItemID string
	Err    error
}

// ValidationError reports a malformed request, rejected before any store
// interaction and never retried.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

func validationErrorf(format string, args ...any) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

func (r Request) validate() error {
	if len(r.Lines) == 0 {
		return validationErrorf("order has no lines")
	}
	for i, line := range r.Lines {
		if line.ItemID == "" {
			return validationErrorf("line %d: item id is required", i)
		}
		if line.Quantity <= 0 {
			return validationErrorf("line %d: quantity must be positive, got %d", i, line.Quantity)
		}
	}
	return nil
}

// mergeLines collapses duplicate item ids by summing their quantities, so a
// request never races against itself during reservation. First-occurrence
// order is preserved.
func mergeLines(lines []order.Line) []order.Line {
	merged := make([]order.Line, 0, len(lines))
	index := make(map[string]int, len(lines))
	for _, line := range lines {
		if i, ok := index[line.ItemID]; ok {
			merged[i].Quantity += line.Quantity
			continue
		}
		index[line.ItemID] = len(merged)
		merged = append(merged, line)
	}
	return merged
}
