package match

import (
	"context"
	"sync"
	"time"

	"github.com/scrimhub/scrimhub/internal/scope"
)

// MemoryStore is an in-memory match store for development and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	matches map[string]*Match // by ID
}

// NewMemoryStore creates a new in-memory match store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{matches: make(map[string]*Match)}
}

func (s *MemoryStore) Create(_ context.Context, sc scope.Scope, m *Match) error {
	if err := sc.Validate(); err != nil {
		return err
	}
	if !sc.Allows(m.OrgID) {
		return ErrMatchNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *m
	s.matches[m.ID] = &cp
	return nil
}

func (s *MemoryStore) Get(_ context.Context, sc scope.Scope, id string) (*Match, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.matches[id]
	if !ok || !sc.Allows(m.OrgID) {
		return nil, ErrMatchNotFound
	}
	cp := *m
	return &cp, nil
}

func (s *MemoryStore) List(_ context.Context, sc scope.Scope) ([]*Match, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Match
	for _, m := range s.matches {
		if sc.Allows(m.OrgID) {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *MemoryStore) Update(_ context.Context, sc scope.Scope, m *Match) error {
	if err := sc.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.matches[m.ID]
	if !ok || !sc.Allows(existing.OrgID) {
		return ErrMatchNotFound
	}
	cp := *m
	cp.OrgID = existing.OrgID // org binding never changes
	s.matches[m.ID] = &cp
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, sc scope.Scope, id string) error {
	if err := sc.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.matches[id]
	if !ok || !sc.Allows(m.OrgID) {
		return ErrMatchNotFound
	}
	delete(s.matches, id)
	return nil
}

func (s *MemoryStore) CountInMonth(_ context.Context, sc scope.Scope, t time.Time) (int, error) {
	if err := sc.Validate(); err != nil {
		return 0, err
	}

	start, end := monthWindow(t)

	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, m := range s.matches {
		if !sc.Allows(m.OrgID) {
			continue
		}
		at := m.ScheduledAt.UTC()
		if !at.Before(start) && at.Before(end) {
			count++
		}
	}
	return count, nil
}

var _ Store = (*MemoryStore)(nil)
