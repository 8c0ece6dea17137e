package utils

import (
	"context"

	"github.com/google/uuid"
)

// NewRequestID returns a fresh trace identifier for one query or
// ingest call, threaded through log lines so a single operation's
// entries can be correlated.
func NewRequestID() string {
	return uuid.NewString()
}

type requestIDKey struct{}

// WithRequestID attaches id to ctx so it survives the call into the
// facade and the query engine beneath it.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the id attached by WithRequestID, or
// ok=false if the context carries none (e.g. a direct library call
// that never generated one).
func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok
}
