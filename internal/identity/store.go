package identity

import (
	"context"
	"time"

	"github.com/scrimhub/scrimhub/internal/scope"
)

// Store persists users. Users are tenant-owned: every method takes a Scope
// and a row outside it reads as ErrUserNotFound. Emails are unique across
// orgs because login identifies a user by email alone. Create returns
// ErrOwnerExists when the org already has an active owner.
type Store interface {
	Create(ctx context.Context, sc scope.Scope, u *User) error
	Get(ctx context.Context, sc scope.Scope, id string) (*User, error)
	GetByEmail(ctx context.Context, sc scope.Scope, email string) (*User, error)
	List(ctx context.Context, sc scope.Scope) ([]*User, error)
	Update(ctx context.Context, sc scope.Scope, u *User) error
	CountOwners(ctx context.Context, sc scope.Scope) (int, error)
	TouchLastSeen(ctx context.Context, sc scope.Scope, id string, at time.Time) error
}
