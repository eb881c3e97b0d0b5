package org

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/scrimhub/scrimhub/internal/access"
	"github.com/scrimhub/scrimhub/internal/logging"
)

// RequireActiveSubscription gates feature routes on a live subscription.
// An expired org still authenticates (it can see its own org and billing)
// but gets a 402 here.
func RequireActiveSubscription(store Store, upgradeURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ac := access.MustContext(c)

		o, err := store.Get(c.Request.Context(), ac.OrgID)
		if err != nil {
			logging.L(c.Request.Context()).Error("subscription gate: org lookup failed", "error", err)
			access.WriteInternal(c)
			return
		}
		if !o.SubscriptionCurrent(time.Now()) {
			access.WriteTrialExpired(c, upgradeURL)
			return
		}
		c.Next()
	}
}

// RequireFeature gates a route on the org's tier including a feature.
// The denial names the tier that would unlock it.
func RequireFeature(store Store, feature Feature, upgradeURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ac := access.MustContext(c)

		o, err := store.Get(c.Request.Context(), ac.OrgID)
		if err != nil {
			logging.L(c.Request.Context()).Error("feature gate: org lookup failed", "error", err)
			access.WriteInternal(c)
			return
		}
		policy := PolicyFor(o.Tier)
		if !policy.HasFeature(feature) {
			required, _ := MinTierFor(feature)
			access.WriteUpgradeRequired(c, string(feature), string(policy.Tier), string(required), upgradeURL)
			return
		}
		c.Next()
	}
}
