package middlewares

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/jcmexdev/order-fulfillment/internal/pkg/contextkeys"
)

// AttachRequestMetadata copies the chi-generated request id and the
// caller-supplied idempotency key into typed context values so downstream
// code can log and correlate them without reaching back into headers.
func AttachRequestMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := middleware.GetReqID(r.Context())
		idempotencyKey := r.Header.Get(contextkeys.HeaderXIdempotencyKey)

		ctx := context.WithValue(r.Context(), contextkeys.RequestID, requestID)
		ctx = context.WithValue(ctx, contextkeys.IdempotencyKey, idempotencyKey)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
