// Package roster manages an org's players.
package roster

import (
	"errors"
	"time"
)

// Errors
var (
	ErrPlayerNotFound = errors.New("roster: player not found")
	ErrHandleTaken    = errors.New("roster: handle already on the roster")
)

// Player is a competitor on an org's roster. Benched players stay on the
// books but do not count against the tier's MaxPlayers limit.
type Player struct {
	ID        string    `json:"id"`
	OrgID     string    `json:"orgId"`
	Handle    string    `json:"handle"`
	Name      string    `json:"name"`
	Game      string    `json:"game"`
	Position  string    `json:"position,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
