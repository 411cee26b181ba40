// Package middleware holds the Connect interceptors shared by every service.
package middleware

import (
	"context"

	"connectrpc.com/connect"

	"github.com/mmynk/splitledger/internal/auth"
)

type principalKey struct{}

type principal struct {
	userID string
	email  string
}

// WithUser returns a copy of ctx carrying the authenticated user.
func WithUser(ctx context.Context, userID, email string) context.Context {
	return context.WithValue(ctx, principalKey{}, principal{userID: userID, email: email})
}

// GetUserID returns the authenticated user, or "" outside RequireAuth.
func GetUserID(ctx context.Context) string {
	p, _ := ctx.Value(principalKey{}).(principal)
	return p.userID
}

// GetEmail returns the authenticated user's email, if the token carried one.
func GetEmail(ctx context.Context) string {
	p, _ := ctx.Value(principalKey{}).(principal)
	return p.email
}

// RequireAuth rejects calls without a valid bearer token and stores the
// caller in the context for the handlers.
func RequireAuth(tokens auth.Validator) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			raw, err := auth.BearerToken(req.Header().Get("Authorization"))
			if err != nil {
				return nil, connect.NewError(connect.CodeUnauthenticated, err)
			}
			claims, err := tokens.Validate(raw)
			if err != nil {
				return nil, connect.NewError(connect.CodeUnauthenticated, err)
			}
			return next(WithUser(ctx, claims.UserID, claims.Email), req)
		}
	}
}
