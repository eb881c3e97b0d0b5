// Package scope implements the tenant scoping gate.
//
// A Scope binds a data-access call to exactly one organization. Every store
// method that touches tenant-owned rows takes a Scope argument, checks it
// with Validate, and filters by it with Allows (or an org_id predicate in
// SQL). The zero Scope fails closed: no scope means no rows, never all rows.
//
// The only bypass is Unscoped, which demands a reason string. Call sites are
// limited to the auth paths that genuinely have no tenant yet (identity
// resolution, signup, login, password reset) and each one carries a
// justifying comment.
package scope

import (
	"errors"
	"strings"
)

// ErrNoScope is returned by stores when a tenant-owned operation is invoked
// with the zero Scope.
var ErrNoScope = errors.New("scope: no tenant scope")

// Scope constrains data access to a single organization.
// The zero value is invalid and is rejected by every store.
type Scope struct {
	orgID    string
	unscoped bool
	reason   string
}

// For returns a Scope bound to the given organization.
// Callers derive the org ID from an authenticated request context, never
// from request input.
func For(orgID string) Scope {
	return Scope{orgID: orgID}
}

// Unscoped returns a Scope that matches every organization. The reason is
// mandatory and shows up in audit logs; an empty reason panics because an
// unexplained unscoped query is exactly the bug this package exists to stop.
func Unscoped(reason string) Scope {
	if strings.TrimSpace(reason) == "" {
		panic("scope: Unscoped requires a reason")
	}
	return Scope{unscoped: true, reason: reason}
}

// Validate reports whether the scope is usable. Stores call this first and
// return ErrNoScope for the zero value.
func (s Scope) Validate() error {
	if s.unscoped || s.orgID != "" {
		return nil
	}
	return ErrNoScope
}

// Allows reports whether a row owned by orgID is visible under this scope.
func (s Scope) Allows(orgID string) bool {
	if s.unscoped {
		return true
	}
	return s.orgID != "" && s.orgID == orgID
}

// OrgID returns the bound organization ID ("" when unscoped or zero).
func (s Scope) OrgID() string { return s.orgID }

// IsUnscoped reports whether the scope bypasses tenant filtering.
func (s Scope) IsUnscoped() bool { return s.unscoped }

// Reason returns the justification supplied to Unscoped.
func (s Scope) Reason() string { return s.reason }
