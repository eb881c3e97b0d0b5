package org

import (
	"context"
	"time"
)

// Store persists organizations. The org row is the tenant boundary itself,
// so lookups are by ID, slug, or Stripe customer ID; handlers only ever pass
// the org ID taken from the authenticated request context.
type Store interface {
	Create(ctx context.Context, o *Organization) error
	Get(ctx context.Context, id string) (*Organization, error)
	GetBySlug(ctx context.Context, slug string) (*Organization, error)
	GetByStripeCustomer(ctx context.Context, customerID string) (*Organization, error)
	Update(ctx context.Context, o *Organization) error
	// Delete removes an org row. Only signup calls this, to roll back an org
	// whose owner create failed; established orgs are never deleted.
	Delete(ctx context.Context, id string) error
	// ListTrialsExpired returns orgs still in trial whose trial window ended
	// before the cutoff. Used by the expiry sweeper.
	ListTrialsExpired(ctx context.Context, cutoff time.Time) ([]*Organization, error)
}
