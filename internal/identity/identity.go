// Package identity manages user accounts and roles within an organization.
package identity

import (
	"errors"
	"time"
)

// Errors
var (
	ErrUserNotFound = errors.New("identity: user not found")
	ErrEmailTaken   = errors.New("identity: email already registered")
	ErrOwnerExists  = errors.New("identity: org already has an owner")
)

// Role is an ordered permission level within an org.
type Role string

const (
	RoleViewer  Role = "viewer"
	RoleAnalyst Role = "analyst"
	RoleCoach   Role = "coach"
	RoleAdmin   Role = "admin"
	RoleOwner   Role = "owner"
)

var roleRank = map[Role]int{
	RoleViewer:  0,
	RoleAnalyst: 1,
	RoleCoach:   2,
	RoleAdmin:   3,
	RoleOwner:   4,
}

// ValidRole returns true if the role name is recognised.
func ValidRole(r Role) bool {
	_, ok := roleRank[r]
	return ok
}

// AtLeast reports whether r grants everything min does. Unknown roles rank
// below viewer, so a corrupted role value fails closed.
func (r Role) AtLeast(min Role) bool {
	rr, ok := roleRank[r]
	if !ok {
		return false
	}
	mr, ok := roleRank[min]
	if !ok {
		return false
	}
	return rr >= mr
}

// User is a staff account belonging to exactly one org.
type User struct {
	ID           string     `json:"id"`
	OrgID        string     `json:"orgId"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	Role         Role       `json:"role"`
	PasswordHash string     `json:"-"`
	Disabled     bool       `json:"disabled"`
	LastSeenAt   *time.Time `json:"lastSeenAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}
