package sagalog

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// NewEntry builds an Entry with the trace identifiers extracted from the
// active span in ctx. If no valid span is present (e.g. in unit tests) the
// trace fields are left empty.
func NewEntry(ctx context.Context, sagaID, state, detail string) *Entry {
	entry := &Entry{
		SagaID:    sagaID,
		State:     state,
		Detail:    detail,
		CreatedAt: time.Now().UTC(),
	}

	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
		entry.TraceID = sc.TraceID().String()
		entry.SpanID = sc.SpanID().String()
	}
	return entry
}
