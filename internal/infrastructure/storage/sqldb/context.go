package sqldb

import (
	"context"
)

type sessionKey struct{}

// WithSession stores the request session in ctx.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFromContext returns the request session, if any.
func SessionFromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(*Session)
	return s, ok && s != nil
}

// MustSessionFromContext returns the request session.
// Panics if not found - this indicates a programming error (missing Session middleware).
func MustSessionFromContext(ctx context.Context) *Session {
	s, ok := SessionFromContext(ctx)
	if !ok {
		panic("sqldb: no session in context")
	}
	return s
}
