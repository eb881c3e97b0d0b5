// Package access builds and enforces the per-request tenant context.
//
// Authenticate turns a bearer token into a Context{OrgID, UserID, Role},
// carried on the request's context.Context under a typed key. Nothing is
// cached across requests; the context dies with the request on every exit
// path. Gates read it with FromContext and fail closed when it is absent.
package access

import (
	"context"

	"github.com/scrimhub/scrimhub/internal/identity"
	"github.com/scrimhub/scrimhub/internal/scope"
)

type ctxKey int

const (
	accessKey ctxKey = iota
	rawTokenKey
)

// Context identifies the authenticated caller for the duration of one
// request.
type Context struct {
	OrgID  string
	UserID string
	Role   identity.Role
}

// Scope returns the tenant scope bound to the caller's org. This is the only
// place a request-path Scope is minted from.
func (a Context) Scope() scope.Scope {
	return scope.For(a.OrgID)
}

// WithContext attaches the access context to ctx.
func WithContext(ctx context.Context, a Context) context.Context {
	return context.WithValue(ctx, accessKey, a)
}

// FromContext returns the access context, if the request authenticated.
func FromContext(ctx context.Context) (Context, bool) {
	a, ok := ctx.Value(accessKey).(Context)
	return a, ok
}

// withRawToken stashes the presented bearer token so logout can revoke the
// exact credential that authenticated the request.
func withRawToken(ctx context.Context, raw string) context.Context {
	return context.WithValue(ctx, rawTokenKey, raw)
}

// RawToken returns the bearer token the request authenticated with.
func RawToken(ctx context.Context) (string, bool) {
	raw, ok := ctx.Value(rawTokenKey).(string)
	return raw, ok
}
