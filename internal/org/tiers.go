package org

// Tier names a pricing tier.
type Tier string

const (
	TierAmateur      Tier = "amateur"
	TierSemiPro      Tier = "semi_pro"
	TierProfessional Tier = "professional"
)

// tierOrder lists tiers from most to least restrictive. MinTierFor walks it
// in order.
var tierOrder = []Tier{TierAmateur, TierSemiPro, TierProfessional}

// Feature names a tier-gated capability.
type Feature string

const (
	FeatureScrims     Feature = "scrims"
	FeatureVODReviews Feature = "vod_reviews"
	FeatureScouting   Feature = "scouting"
	FeatureAnalytics  Feature = "analytics"
)

// Policy defines the limits and features of a pricing tier.
// Numeric limits use 0 to mean unlimited.
type Policy struct {
	Tier               Tier      `json:"tier"`
	Features           []Feature `json:"features"`
	MaxPlayers         int       `json:"maxPlayers"`
	MaxMatchesPerMonth int       `json:"maxMatchesPerMonth"`
	RetentionDays      int       `json:"retentionDays"`
}

// Policies is the hardcoded tier catalogue.
var Policies = map[Tier]Policy{
	TierAmateur: {
		Tier:               TierAmateur,
		Features:           nil,
		MaxPlayers:         10,
		MaxMatchesPerMonth: 20,
		RetentionDays:      30,
	},
	TierSemiPro: {
		Tier:               TierSemiPro,
		Features:           []Feature{FeatureScrims, FeatureVODReviews},
		MaxPlayers:         25,
		MaxMatchesPerMonth: 100,
		RetentionDays:      180,
	},
	TierProfessional: {
		Tier:               TierProfessional,
		Features:           []Feature{FeatureScrims, FeatureVODReviews, FeatureScouting, FeatureAnalytics},
		MaxPlayers:         0,
		MaxMatchesPerMonth: 0,
		RetentionDays:      365,
	},
}

// PolicyFor returns the policy for a tier. An unknown or empty tier resolves
// to the amateur policy, never an error and never unlimited.
func PolicyFor(t Tier) Policy {
	if p, ok := Policies[t]; ok {
		return p
	}
	return Policies[TierAmateur]
}

// HasFeature reports whether the policy includes a feature.
func (p Policy) HasFeature(f Feature) bool {
	for _, have := range p.Features {
		if have == f {
			return true
		}
	}
	return false
}

// MinTierFor returns the cheapest tier whose policy includes the feature.
// ok is false when no tier offers it.
func MinTierFor(f Feature) (Tier, bool) {
	for _, t := range tierOrder {
		if Policies[t].HasFeature(f) {
			return t, true
		}
	}
	return "", false
}

// ValidTier returns true if the tier name is recognised.
func ValidTier(t Tier) bool {
	_, ok := Policies[t]
	return ok
}

// Catalogue returns all policies in tier order, for the public constants
// endpoint.
func Catalogue() []Policy {
	out := make([]Policy, 0, len(tierOrder))
	for _, t := range tierOrder {
		out = append(out, Policies[t])
	}
	return out
}
