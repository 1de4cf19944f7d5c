// Package http provides HTTP middleware and handlers for token lifecycle operations.
package http

import (
	"context"

	tokenDomain "github.com/allisson/authtokens/internal/token/domain"
)

// callerTokenKey is a context key type for storing the caller's validated token.
type callerTokenKey struct{}

// WithCallerToken stores the validated caller token in the context.
// Called by the authentication middleware after successful validation.
func WithCallerToken(ctx context.Context, token *tokenDomain.Token) context.Context {
	return context.WithValue(ctx, callerTokenKey{}, token)
}

// GetCallerToken retrieves the validated caller token from the context.
// Returns (token, true) if present, or (nil, false) if no token was set.
func GetCallerToken(ctx context.Context) (*tokenDomain.Token, bool) {
	token, ok := ctx.Value(callerTokenKey{}).(*tokenDomain.Token)
	return token, ok
}
