// Package actor carries the identity of the caller responsible for a mutation.
package actor

import (
	"context"
	"strings"
)

// Default is used when no identity is attached to the context.
const Default = "system"

type contextKey struct{}

// WithActor returns a context carrying the given actor. Blank names are ignored.
func WithActor(ctx context.Context, name string) context.Context {
	name = strings.TrimSpace(name)
	if name == "" {
		return ctx
	}
	return context.WithValue(ctx, contextKey{}, name)
}

// FromContext returns the actor stored in ctx or Default.
func FromContext(ctx context.Context) string {
	if ctx == nil {
		return Default
	}
	if name, ok := ctx.Value(contextKey{}).(string); ok && name != "" {
		return name
	}
	return Default
}
