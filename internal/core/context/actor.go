// Package context provides request-scoped values extraction.
package context

import (
	"context"
)

// Actor identifies who performed an admin operation.
// It is attribution only; the admin does not authenticate callers.
type Actor struct {
	Name      string
	ClientIP  string
	UserAgent string
}

type actorKey struct{}

// WithActor adds Actor to context.
func WithActor(ctx context.Context, actor *Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// GetActor returns Actor from context.
func GetActor(ctx context.Context) *Actor {
	if v, ok := ctx.Value(actorKey{}).(*Actor); ok {
		return v
	}
	return nil
}

// GetActorName returns actor name from context or "anonymous".
func GetActorName(ctx context.Context) string {
	if a := GetActor(ctx); a != nil && a.Name != "" {
		return a.Name
	}
	return "anonymous"
}
