// Package requestid carries the request id of an inbound request through
// contexts and onto outbound calls.
package requestid

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Header is the HTTP header the id travels in.
const Header = "X-Request-ID"

type ctxKey struct{}

// New returns a fresh id.
func New() string {
	return uuid.New().String()
}

// Sanitize returns id when it is a valid uuid, otherwise a fresh one.
func Sanitize(id string) string {
	if _, err := uuid.Parse(id); err != nil {
		return New()
	}
	return id
}

// WithID stores id in ctx.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the id stored in ctx, or "".
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// Entry returns a log entry tagged with the request id of ctx, if any.
func Entry(ctx context.Context, logger *logrus.Logger) *logrus.Entry {
	entry := logrus.NewEntry(logger)
	if id := FromContext(ctx); id != "" {
		entry = entry.WithField("request_id", id)
	}
	return entry
}
