package match

import (
	"context"
	"time"

	"github.com/scrimhub/scrimhub/internal/scope"
)

// Store persists matches. Matches are tenant-owned: every method takes a
// Scope and rows outside it read as ErrMatchNotFound.
type Store interface {
	Create(ctx context.Context, sc scope.Scope, m *Match) error
	Get(ctx context.Context, sc scope.Scope, id string) (*Match, error)
	List(ctx context.Context, sc scope.Scope) ([]*Match, error)
	Update(ctx context.Context, sc scope.Scope, m *Match) error
	Delete(ctx context.Context, sc scope.Scope, id string) error
	// CountInMonth counts matches scheduled in the UTC calendar month
	// containing t. The MaxMatchesPerMonth limit compares against it.
	CountInMonth(ctx context.Context, sc scope.Scope, t time.Time) (int, error)
}
