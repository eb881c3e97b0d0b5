// Package billing applies Stripe subscription events to orgs.
//
// The webhook is the only writer of tier and subscription status besides the
// trial sweeper. Price lookup keys map to tiers; events for customers we do
// not know are acknowledged and logged, never retried forever.
package billing

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	stripe "github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/scrimhub/scrimhub/internal/metrics"
	"github.com/scrimhub/scrimhub/internal/org"
	"github.com/scrimhub/scrimhub/internal/traces"
)

// maxWebhookBody bounds the webhook payload read.
const maxWebhookBody = 64 * 1024

// Price lookup keys configured in the Stripe dashboard.
var tierByLookupKey = map[string]org.Tier{
	"scrimhub_semi_pro":     org.TierSemiPro,
	"scrimhub_professional": org.TierProfessional,
}

// Handler processes Stripe webhook events.
type Handler struct {
	orgs   org.Store
	secret string
	logger *slog.Logger
	now    func() time.Time
}

// NewHandler creates a billing webhook handler.
func NewHandler(orgs org.Store, secret string, logger *slog.Logger) *Handler {
	return &Handler{orgs: orgs, secret: secret, logger: logger, now: time.Now}
}

// RegisterRoutes sets up the webhook route. It is public: authentication is
// the Stripe signature, not a session.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/billing/webhook", h.Webhook)
}

// Webhook handles POST /v1/billing/webhook.
func (h *Handler) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "INVALID_REQUEST", "message": "unreadable payload"}})
		return
	}

	event, err := webhook.ConstructEvent(payload, c.GetHeader("Stripe-Signature"), h.secret)
	if err != nil {
		h.logger.Warn("webhook signature verification failed", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "INVALID_REQUEST", "message": "bad signature"}})
		return
	}

	ctx, span := traces.StartSpan(c.Request.Context(), "billing.ApplyEvent",
		attribute.String("stripe.event.type", string(event.Type)))
	defer span.End()

	switch event.Type {
	case "checkout.session.completed":
		err = h.handleCheckoutCompleted(ctx, event)
	case "customer.subscription.updated":
		err = h.handleSubscriptionUpdated(ctx, event)
	case "customer.subscription.deleted":
		err = h.handleSubscriptionDeleted(ctx, event)
	default:
		metrics.WebhookEventsTotal.WithLabelValues(string(event.Type), "ignored").Inc()
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "event not applied")
		metrics.WebhookEventsTotal.WithLabelValues(string(event.Type), "error").Inc()
		h.logger.Error("webhook event failed", "type", event.Type, "eventId", event.ID, "error", err)
		// Unknown customers are acknowledged so Stripe stops retrying;
		// store failures are retried.
		if errors.Is(err, org.ErrOrgNotFound) {
			c.JSON(http.StatusOK, gin.H{"received": true})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"code": "INTERNAL", "message": "event not applied"}})
		return
	}

	metrics.WebhookEventsTotal.WithLabelValues(string(event.Type), "ok").Inc()
	c.JSON(http.StatusOK, gin.H{"received": true})
}

// handleCheckoutCompleted binds the Stripe customer to the org that started
// checkout (client_reference_id carries the org ID) and activates it.
func (h *Handler) handleCheckoutCompleted(ctx context.Context, event stripe.Event) error {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return err
	}
	if session.ClientReferenceID == "" || session.Customer == nil {
		h.logger.Warn("checkout session without org reference", "eventId", event.ID)
		return nil
	}

	o, err := h.orgs.Get(ctx, session.ClientReferenceID)
	if err != nil {
		return err
	}
	o.StripeCustomerID = session.Customer.ID
	o.Status = org.StatusActive
	o.UpdatedAt = h.now()
	if err := h.orgs.Update(ctx, o); err != nil {
		return err
	}

	h.logger.Info("org linked to stripe customer", "orgId", o.ID, "customer", session.Customer.ID)
	return nil
}

// handleSubscriptionUpdated applies tier and status from the subscription's
// price lookup key.
func (h *Handler) handleSubscriptionUpdated(ctx context.Context, event stripe.Event) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return err
	}
	if sub.Customer == nil {
		return nil
	}

	o, err := h.orgs.GetByStripeCustomer(ctx, sub.Customer.ID)
	if err != nil {
		return err
	}

	if tier, ok := lookupTier(&sub); ok {
		o.Tier = tier
	} else {
		h.logger.Warn("subscription price has no known lookup key",
			"orgId", o.ID, "subscription", sub.ID)
	}

	switch sub.Status {
	case stripe.SubscriptionStatusActive, stripe.SubscriptionStatusTrialing:
		o.Status = org.StatusActive
	case stripe.SubscriptionStatusCanceled, stripe.SubscriptionStatusUnpaid,
		stripe.SubscriptionStatusIncompleteExpired:
		o.Status = org.StatusExpired
	}
	o.UpdatedAt = h.now()

	if err := h.orgs.Update(ctx, o); err != nil {
		return err
	}
	h.logger.Info("subscription applied", "orgId", o.ID, "tier", o.Tier, "status", o.Status)
	return nil
}

// handleSubscriptionDeleted expires the org. Data is retained; the
// subscription gate takes it from here.
func (h *Handler) handleSubscriptionDeleted(ctx context.Context, event stripe.Event) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return err
	}
	if sub.Customer == nil {
		return nil
	}

	o, err := h.orgs.GetByStripeCustomer(ctx, sub.Customer.ID)
	if err != nil {
		return err
	}
	o.Status = org.StatusExpired
	o.UpdatedAt = h.now()
	if err := h.orgs.Update(ctx, o); err != nil {
		return err
	}

	h.logger.Info("subscription ended", "orgId", o.ID)
	return nil
}

func lookupTier(sub *stripe.Subscription) (org.Tier, bool) {
	if sub.Items == nil {
		return "", false
	}
	for _, item := range sub.Items.Data {
		if item.Price == nil {
			continue
		}
		if tier, ok := tierByLookupKey[item.Price.LookupKey]; ok {
			return tier, true
		}
	}
	return "", false
}
