package access

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/scrimhub/scrimhub/internal/metrics"
)

// Denial codes. Stable strings; clients switch on them.
const (
	CodeUnauthenticated  = "UNAUTHENTICATED"
	CodeInsufficientRole = "INSUFFICIENT_ROLE"
	CodeUpgradeRequired  = "UPGRADE_REQUIRED"
	CodeLimitReached     = "LIMIT_REACHED"
	CodeTrialExpired     = "TRIAL_EXPIRED"
	CodeRateLimited      = "RATE_LIMITED"
	CodeNotFound         = "NOT_FOUND"
	CodeInvalidRequest   = "INVALID_REQUEST"
	CodeInternal         = "INTERNAL"
)

// writeError emits the uniform denial envelope:
//
//	{"error": {"code": "...", "message": "...", "details": {...}}}
//
// The message is safe for clients; anything internal stays in server logs.
func writeError(c *gin.Context, status int, code, message string, details gin.H) {
	metrics.DenialsTotal.WithLabelValues(code).Inc()
	body := gin.H{"code": code, "message": message}
	if len(details) > 0 {
		body["details"] = details
	}
	c.AbortWithStatusJSON(status, gin.H{"error": body})
}

// WriteUnauthenticated is the single 401 shape. Every authentication
// failure (missing header, malformed, expired, revoked, unknown or disabled
// subject) produces this exact body so a probing caller learns nothing.
func WriteUnauthenticated(c *gin.Context) {
	writeError(c, http.StatusUnauthorized, CodeUnauthenticated,
		"Authentication required.", nil)
}

// WriteInsufficientRole is the 403 for role-gated actions.
func WriteInsufficientRole(c *gin.Context, required string) {
	writeError(c, http.StatusForbidden, CodeInsufficientRole,
		fmt.Sprintf("This action requires the %s role or above.", required),
		gin.H{"required_role": required})
}

// WriteUpgradeRequired is the 403 for tier-gated features.
func WriteUpgradeRequired(c *gin.Context, feature, currentTier, requiredTier, upgradeURL string) {
	writeError(c, http.StatusForbidden, CodeUpgradeRequired,
		fmt.Sprintf("The %s feature is not included in your current tier.", feature),
		gin.H{
			"feature":       feature,
			"current_tier":  currentTier,
			"required_tier": requiredTier,
			"upgrade_url":   upgradeURL,
		})
}

// WriteLimitReached is the 403 for usage limits.
func WriteLimitReached(c *gin.Context, resource string, limit, current int) {
	writeError(c, http.StatusForbidden, CodeLimitReached,
		fmt.Sprintf("Your tier allows %d %s; you have %d.", limit, resource, current),
		gin.H{"resource": resource, "limit": limit, "current": current})
}

// WriteTrialExpired is the 402 for lapsed trials and expired subscriptions.
func WriteTrialExpired(c *gin.Context, upgradeURL string) {
	writeError(c, http.StatusPaymentRequired, CodeTrialExpired,
		"Your trial has ended. Add a payment method to keep using Scrimhub.",
		gin.H{"upgrade_url": upgradeURL})
}

// WriteRateLimited is the 429, with Retry-After in both header and body.
func WriteRateLimited(c *gin.Context, retryAfter time.Duration) {
	secs := int(retryAfter.Seconds())
	if secs < 1 {
		secs = 1
	}
	c.Header("Retry-After", fmt.Sprintf("%d", secs))
	writeError(c, http.StatusTooManyRequests, CodeRateLimited,
		"Too many requests. Slow down and retry.",
		gin.H{"retry_after_seconds": secs})
}

// WriteNotFound covers both genuinely missing rows and rows outside the
// caller's tenant; the two are deliberately indistinguishable.
func WriteNotFound(c *gin.Context, resource string) {
	writeError(c, http.StatusNotFound, CodeNotFound,
		fmt.Sprintf("No such %s.", resource), nil)
}

// WriteInvalid is the 400 for malformed or failing-validation input.
func WriteInvalid(c *gin.Context, message string) {
	writeError(c, http.StatusBadRequest, CodeInvalidRequest, message, nil)
}

// WriteConflict is the 409 for uniqueness collisions.
func WriteConflict(c *gin.Context, message string) {
	writeError(c, http.StatusConflict, CodeInvalidRequest, message, nil)
}

// WriteInternal is the 500. Details go to logs, never the body.
func WriteInternal(c *gin.Context) {
	writeError(c, http.StatusInternalServerError, CodeInternal,
		"Something went wrong on our side.", nil)
}
