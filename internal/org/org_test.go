package org

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicyFor_KnownTiers(t *testing.T) {
	p := PolicyFor(TierAmateur)
	assert.Equal(t, 10, p.MaxPlayers)
	assert.Equal(t, 20, p.MaxMatchesPerMonth)
	assert.False(t, p.HasFeature(FeatureScrims))

	p = PolicyFor(TierSemiPro)
	assert.Equal(t, 25, p.MaxPlayers)
	assert.True(t, p.HasFeature(FeatureScrims))
	assert.True(t, p.HasFeature(FeatureVODReviews))
	assert.False(t, p.HasFeature(FeatureScouting))

	p = PolicyFor(TierProfessional)
	assert.Equal(t, 0, p.MaxPlayers) // unlimited
	assert.True(t, p.HasFeature(FeatureScouting))
	assert.True(t, p.HasFeature(FeatureAnalytics))
}

func TestPolicyFor_UnknownTierFallsBackToAmateur(t *testing.T) {
	for _, tier := range []Tier{"", "enterprise", "AMATEUR", "pro"} {
		p := PolicyFor(tier)
		assert.Equal(t, TierAmateur, p.Tier, "tier %q", tier)
		assert.Equal(t, 10, p.MaxPlayers, "tier %q must not resolve to unlimited", tier)
	}
}

func TestMinTierFor(t *testing.T) {
	tier, ok := MinTierFor(FeatureScrims)
	require.True(t, ok)
	assert.Equal(t, TierSemiPro, tier)

	tier, ok = MinTierFor(FeatureScouting)
	require.True(t, ok)
	assert.Equal(t, TierProfessional, tier)

	_, ok = MinTierFor(Feature("holograms"))
	assert.False(t, ok)
}

func TestCatalogue_OrderedMostToLeastRestrictive(t *testing.T) {
	cat := Catalogue()
	require.Len(t, cat, 3)
	assert.Equal(t, TierAmateur, cat[0].Tier)
	assert.Equal(t, TierProfessional, cat[2].Tier)
}

func TestSubscriptionCurrent(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	active := &Organization{Status: StatusActive}
	assert.True(t, active.SubscriptionCurrent(now))

	trialing := &Organization{Status: StatusTrial, TrialEndsAt: now.Add(time.Hour)}
	assert.True(t, trialing.SubscriptionCurrent(now))

	lapsed := &Organization{Status: StatusTrial, TrialEndsAt: now.Add(-time.Second)}
	assert.False(t, lapsed.SubscriptionCurrent(now))

	expired := &Organization{Status: StatusExpired}
	assert.False(t, expired.SubscriptionCurrent(now))
}

func TestMemoryStore_SlugUnique(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	err := store.Create(ctx, &Organization{ID: "org_1", Slug: "nova-five"})
	require.NoError(t, err)

	err = store.Create(ctx, &Organization{ID: "org_2", Slug: "nova-five"})
	assert.ErrorIs(t, err, ErrSlugTaken)
}

func TestMemoryStore_GetByStripeCustomer(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, &Organization{ID: "org_1", Slug: "a", StripeCustomerID: "cus_123"}))
	require.NoError(t, store.Create(ctx, &Organization{ID: "org_2", Slug: "b"}))

	o, err := store.GetByStripeCustomer(ctx, "cus_123")
	require.NoError(t, err)
	assert.Equal(t, "org_1", o.ID)

	// Orgs without a Stripe customer must never match an empty lookup.
	_, err = store.GetByStripeCustomer(ctx, "")
	assert.ErrorIs(t, err, ErrOrgNotFound)
}

func TestSweeper_ExpiresLapsedTrials(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Create(ctx, &Organization{
		ID: "org_lapsed", Slug: "lapsed", Status: StatusTrial,
		TrialEndsAt: now.Add(-time.Hour),
	}))
	require.NoError(t, store.Create(ctx, &Organization{
		ID: "org_current", Slug: "current", Status: StatusTrial,
		TrialEndsAt: now.Add(time.Hour),
	}))
	require.NoError(t, store.Create(ctx, &Organization{
		ID: "org_paid", Slug: "paid", Status: StatusActive,
	}))

	s := NewSweeper(store, slog.Default())
	s.now = func() time.Time { return now }
	s.sweep(ctx)

	lapsed, err := store.Get(ctx, "org_lapsed")
	require.NoError(t, err)
	assert.Equal(t, StatusExpired, lapsed.Status)

	current, err := store.Get(ctx, "org_current")
	require.NoError(t, err)
	assert.Equal(t, StatusTrial, current.Status)

	paid, err := store.Get(ctx, "org_paid")
	require.NoError(t, err)
	assert.Equal(t, StatusActive, paid.Status)
}
