package roster

import (
	"context"

	"github.com/scrimhub/scrimhub/internal/scope"
)

// Store persists players. Players are tenant-owned: every method takes a
// Scope and rows outside it read as ErrPlayerNotFound. Handles are unique
// within an org, not globally.
type Store interface {
	Create(ctx context.Context, sc scope.Scope, p *Player) error
	Get(ctx context.Context, sc scope.Scope, id string) (*Player, error)
	List(ctx context.Context, sc scope.Scope) ([]*Player, error)
	Update(ctx context.Context, sc scope.Scope, p *Player) error
	Delete(ctx context.Context, sc scope.Scope, id string) error
	// CountActive is the live usage number the MaxPlayers limit compares
	// against.
	CountActive(ctx context.Context, sc scope.Scope) (int, error)
}
