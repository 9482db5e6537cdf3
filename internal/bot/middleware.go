package bot

import (
	"context"

	"github.com/devaloi/chatterbox-cleaner/internal/cleaner"
)

type scopeKey struct{}

// WithScope returns a copy of ctx carrying s.
func WithScope(ctx context.Context, s *cleaner.Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, s)
}

// ScopeFrom returns the cleaner scope stored in ctx. Without one it returns
// nil, and every scope operation fails with cleaner.ErrNotBound.
func ScopeFrom(ctx context.Context) *cleaner.Scope {
	s, _ := ctx.Value(scopeKey{}).(*cleaner.Scope)
	return s
}

// CleanerMiddleware binds c to the update's room for the duration of one
// dispatch. Handlers reach the binding with ScopeFrom.
func CleanerMiddleware(c *cleaner.Cleaner, t cleaner.Transport) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, u *Update) error {
			s := c.Bind(cleaner.ChatKey(u.Room), t)
			return next(WithScope(ctx, s), u)
		}
	}
}
