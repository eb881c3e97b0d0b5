// Package match manages an org's matches and scrims.
package match

import (
	"errors"
	"time"
)

// Errors
var ErrMatchNotFound = errors.New("match: not found")

// Kind distinguishes official matches from practice scrims. Scrims are a
// tier-gated feature.
type Kind string

const (
	KindOfficial Kind = "official"
	KindScrim    Kind = "scrim"
)

// ValidKind returns true if the kind is recognised.
func ValidKind(k Kind) bool {
	return k == KindOfficial || k == KindScrim
}

// Match is one scheduled or played fixture. VODURL and ReviewNotes belong to
// the vod_reviews feature.
type Match struct {
	ID          string    `json:"id"`
	OrgID       string    `json:"orgId"`
	Kind        Kind      `json:"kind"`
	Opponent    string    `json:"opponent"`
	Game        string    `json:"game"`
	ScheduledAt time.Time `json:"scheduledAt"`
	Result      string    `json:"result,omitempty"`
	Score       string    `json:"score,omitempty"`
	VODURL      string    `json:"vodUrl,omitempty"`
	ReviewNotes string    `json:"reviewNotes,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// monthWindow returns the UTC calendar month [start, end) containing t.
func monthWindow(t time.Time) (time.Time, time.Time) {
	u := t.UTC()
	start := time.Date(u.Year(), u.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}
