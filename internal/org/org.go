// Package org provides multi-tenancy for the Scrimhub platform.
//
// An Organization is the isolation boundary: every tenant-owned record
// (users, players, matches) carries exactly one org ID, set at creation and
// never changed. Orgs are never hard-deleted.
package org

import (
	"errors"
	"time"
)

// Errors
var (
	ErrOrgNotFound = errors.New("org: not found")
	ErrSlugTaken   = errors.New("org: slug already taken")
)

// SubscriptionStatus represents an org's billing lifecycle state.
type SubscriptionStatus string

const (
	StatusActive  SubscriptionStatus = "active"
	StatusTrial   SubscriptionStatus = "trial"
	StatusExpired SubscriptionStatus = "expired"
)

// Organization represents a team account using the platform.
type Organization struct {
	ID               string             `json:"id"`
	Name             string             `json:"name"`
	Slug             string             `json:"slug"`
	Tier             Tier               `json:"tier"`
	Status           SubscriptionStatus `json:"status"`
	TrialStartedAt   time.Time          `json:"trialStartedAt"`
	TrialEndsAt      time.Time          `json:"trialEndsAt"`
	StripeCustomerID string             `json:"stripeCustomerId,omitempty"`
	CreatedAt        time.Time          `json:"createdAt"`
	UpdatedAt        time.Time          `json:"updatedAt"`
}

// SubscriptionCurrent reports whether the org may use feature routes:
// a paid subscription, or a trial that has not lapsed yet.
func (o *Organization) SubscriptionCurrent(now time.Time) bool {
	switch o.Status {
	case StatusActive:
		return true
	case StatusTrial:
		return now.Before(o.TrialEndsAt)
	default:
		return false
	}
}
