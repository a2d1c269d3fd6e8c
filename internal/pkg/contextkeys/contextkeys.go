// Package contextkeys holds the typed context keys shared between the HTTP
// middleware and the handlers.
package contextkeys

// contextKey is an unexported type so keys from this package can never
// collide with keys from other packages using the same string value.
type contextKey string

const (
	HeaderXRequestID      = "x-request-id"
	HeaderXIdempotencyKey = "x-idempotency-key"

	// RequestID is the context key for the request id.
	RequestID contextKey = contextKey(HeaderXRequestID)
	// IdempotencyKey is the context key for the caller-supplied idempotency key.
	IdempotencyKey contextKey = contextKey(HeaderXIdempotencyKey)
)
