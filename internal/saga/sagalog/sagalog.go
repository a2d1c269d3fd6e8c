// Package sagalog defines the durable audit trail of saga state
// transitions.
//
// Each transition appends one immutable row carrying the saga id, the state
// entered, an optional JSON detail payload, and the active trace/span ids so
// a log row can be joined directly with the distributed trace. Reading the
// latest row per saga id answers "where is (or was) this saga".
package sagalog

import (
	"context"
	"time"
)

// Entry is one appended transition.
type Entry struct {
	// SagaID is the run identifier, the same id the order is recorded
	// under, so log rows join with business data.
	SagaID string

	// State is the state-machine position entered when this row was
	// written, e.g. "CHECKING" or "PARTIALLY_FAILED".
	State string

	// Detail is an optional JSON payload describing a terminal state
	// (failing item ids, branch errors). Empty for non-terminal rows.
	Detail string

	// TraceID and SpanID are the W3C identifiers of the OTel span active
	// when the row was written. Empty when no span is active.
	TraceID string
	SpanID  string

	// CreatedAt is the wall-clock time of the transition.
	CreatedAt time.Time
}

// Repository is the port for persisting log entries. The orchestrator
// depends on this abstraction so the implementation can be swapped
// (SQLite in production, in-memory in tests, nil to disable).
type Repository interface {
	// Append persists a new entry. The log is append-only: every call adds
	// a row, nothing is ever updated.
	Append(ctx context.Context, e *Entry) error
}
