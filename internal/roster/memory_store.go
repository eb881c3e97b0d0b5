package roster

import (
	"context"
	"sync"

	"github.com/scrimhub/scrimhub/internal/scope"
)

// MemoryStore is an in-memory player store for development and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	players map[string]*Player // by ID
}

// NewMemoryStore creates a new in-memory player store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{players: make(map[string]*Player)}
}

func (m *MemoryStore) Create(_ context.Context, sc scope.Scope, p *Player) error {
	if err := sc.Validate(); err != nil {
		return err
	}
	if !sc.Allows(p.OrgID) {
		return ErrPlayerNotFound
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.players {
		if existing.OrgID == p.OrgID && existing.Handle == p.Handle {
			return ErrHandleTaken
		}
	}
	cp := *p
	m.players[p.ID] = &cp
	return nil
}

func (m *MemoryStore) Get(_ context.Context, sc scope.Scope, id string) (*Player, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.players[id]
	if !ok || !sc.Allows(p.OrgID) {
		return nil, ErrPlayerNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MemoryStore) List(_ context.Context, sc scope.Scope) ([]*Player, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Player
	for _, p := range m.players {
		if sc.Allows(p.OrgID) {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MemoryStore) Update(_ context.Context, sc scope.Scope, p *Player) error {
	if err := sc.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.players[p.ID]
	if !ok || !sc.Allows(existing.OrgID) {
		return ErrPlayerNotFound
	}
	cp := *p
	cp.OrgID = existing.OrgID // org binding never changes
	m.players[p.ID] = &cp
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, sc scope.Scope, id string) error {
	if err := sc.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.players[id]
	if !ok || !sc.Allows(p.OrgID) {
		return ErrPlayerNotFound
	}
	delete(m.players, id)
	return nil
}

func (m *MemoryStore) CountActive(_ context.Context, sc scope.Scope) (int, error) {
	if err := sc.Validate(); err != nil {
		return 0, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, p := range m.players {
		if sc.Allows(p.OrgID) && p.Active {
			count++
		}
	}
	return count, nil
}

var _ Store = (*MemoryStore)(nil)
