package access

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/scrimhub/scrimhub/internal/identity"
	"github.com/scrimhub/scrimhub/internal/logging"
	"github.com/scrimhub/scrimhub/internal/metrics"
	"github.com/scrimhub/scrimhub/internal/token"
)

const bearerPrefix = "Bearer "

// bearerToken extracts the raw token from the Authorization header.
func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if !strings.HasPrefix(h, bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, bearerPrefix))
}

// Authenticate validates the bearer token, resolves the subject, and builds
// the request's access context. It aborts with the uniform 401 on any
// failure; the failure reason is logged, never echoed. Routes behind this
// middleware can assume FromContext succeeds.
func Authenticate(tokens *token.Service, resolver *identity.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		raw := bearerToken(c)
		if raw == "" {
			metrics.AuthOutcomesTotal.WithLabelValues("denied").Inc()
			WriteUnauthenticated(c)
			return
		}

		claims, err := tokens.Validate(ctx, raw)
		if err != nil {
			logging.L(ctx).Debug("token validation failed", "error", err)
			metrics.AuthOutcomesTotal.WithLabelValues("denied").Inc()
			WriteUnauthenticated(c)
			return
		}
		// Purpose-bearing tokens (password reset) are not sessions.
		if claims.Purpose != "" {
			logging.L(ctx).Debug("purpose token presented as session", "purpose", claims.Purpose)
			metrics.AuthOutcomesTotal.WithLabelValues("denied").Inc()
			WriteUnauthenticated(c)
			return
		}

		u, err := resolver.Resolve(ctx, claims.Subject)
		if err != nil {
			logging.L(ctx).Debug("subject resolution failed", "error", err)
			metrics.AuthOutcomesTotal.WithLabelValues("denied").Inc()
			WriteUnauthenticated(c)
			return
		}

		ac := Context{OrgID: u.OrgID, UserID: u.ID, Role: u.Role}
		ctx = WithContext(ctx, ac)
		ctx = withRawToken(ctx, raw)
		ctx = logging.WithOrgID(ctx, u.OrgID)
		c.Request = c.Request.WithContext(ctx)

		metrics.AuthOutcomesTotal.WithLabelValues("ok").Inc()
		c.Next()
	}
}

// RequireRole gates a route on a minimum role. It sits behind Authenticate
// but still fails closed if the context is somehow missing.
func RequireRole(min identity.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		ac, ok := FromContext(c.Request.Context())
		if !ok {
			WriteUnauthenticated(c)
			return
		}
		if !ac.Role.AtLeast(min) {
			WriteInsufficientRole(c, string(min))
			return
		}
		c.Next()
	}
}

// MustContext returns the access context for a route behind Authenticate.
// A missing context there is a wiring bug, not a client error.
func MustContext(c *gin.Context) Context {
	ac, ok := FromContext(c.Request.Context())
	if !ok {
		panic("access: no context on an authenticated route")
	}
	return ac
}
