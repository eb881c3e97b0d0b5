package identity

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/scrimhub/scrimhub/internal/scope"
	"github.com/scrimhub/scrimhub/internal/token"
)

// lastSeenWindow throttles last-seen writes so a busy user costs one update
// per hour, not one per request.
const lastSeenWindow = time.Hour

// Resolver turns a validated token subject into a user and org.
type Resolver struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

// NewResolver creates a resolver over the user store.
func NewResolver(store Store, logger *slog.Logger) *Resolver {
	return &Resolver{store: store, logger: logger, now: time.Now}
}

// Resolve loads the user for a token subject. A missing or disabled user is
// an authentication failure, indistinguishable from a bad token; handlers
// never see a not-found here.
func (r *Resolver) Resolve(ctx context.Context, subjectID string) (*User, error) {
	// The org is not known until the row is read, so this lookup cannot be
	// tenant-scoped yet.
	sc := scope.Unscoped("identity resolution precedes tenant context")

	u, err := r.store.Get(ctx, sc, subjectID)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve subject: %v", token.ErrUnauthenticated, err)
	}
	if u.Disabled {
		return nil, fmt.Errorf("%w: subject disabled", token.ErrUnauthenticated)
	}

	r.touchLastSeen(ctx, sc, u)
	return u, nil
}

// touchLastSeen is best-effort: a write failure is logged and the request
// proceeds.
func (r *Resolver) touchLastSeen(ctx context.Context, sc scope.Scope, u *User) {
	now := r.now()
	if u.LastSeenAt != nil && now.Sub(*u.LastSeenAt) < lastSeenWindow {
		return
	}
	if err := r.store.TouchLastSeen(ctx, sc, u.ID, now); err != nil {
		r.logger.Warn("failed to update last seen",
			"userId", u.ID,
			"error", err,
		)
		return
	}
	t := now
	u.LastSeenAt = &t
}
