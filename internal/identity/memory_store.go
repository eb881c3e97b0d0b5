package identity

import (
	"context"
	"sync"
	"time"

	"github.com/scrimhub/scrimhub/internal/scope"
)

// MemoryStore is an in-memory user store for development and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	users  map[string]*User  // by ID
	emails map[string]string // email → ID
}

// NewMemoryStore creates a new in-memory user store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:  make(map[string]*User),
		emails: make(map[string]string),
	}
}

func (m *MemoryStore) Create(_ context.Context, sc scope.Scope, u *User) error {
	if err := sc.Validate(); err != nil {
		return err
	}
	if !sc.Allows(u.OrgID) {
		return ErrUserNotFound
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if u.Role == RoleOwner {
		for _, ex := range m.users {
			if ex.OrgID == u.OrgID && ex.Role == RoleOwner && !ex.Disabled {
				return ErrOwnerExists
			}
		}
	}
	if _, exists := m.emails[u.Email]; exists {
		return ErrEmailTaken
	}
	cp := *u
	m.users[u.ID] = &cp
	m.emails[u.Email] = u.ID
	return nil
}

func (m *MemoryStore) Get(_ context.Context, sc scope.Scope, id string) (*User, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok || !sc.Allows(u.OrgID) {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MemoryStore) GetByEmail(_ context.Context, sc scope.Scope, email string) (*User, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.emails[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	u := m.users[id]
	if !sc.Allows(u.OrgID) {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MemoryStore) List(_ context.Context, sc scope.Scope) ([]*User, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*User
	for _, u := range m.users {
		if sc.Allows(u.OrgID) {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MemoryStore) Update(_ context.Context, sc scope.Scope, u *User) error {
	if err := sc.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.users[u.ID]
	if !ok || !sc.Allows(existing.OrgID) {
		return ErrUserNotFound
	}
	cp := *u
	cp.OrgID = existing.OrgID // org binding never changes
	m.users[u.ID] = &cp
	return nil
}

func (m *MemoryStore) CountOwners(_ context.Context, sc scope.Scope) (int, error) {
	if err := sc.Validate(); err != nil {
		return 0, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, u := range m.users {
		if sc.Allows(u.OrgID) && u.Role == RoleOwner && !u.Disabled {
			count++
		}
	}
	return count, nil
}

func (m *MemoryStore) TouchLastSeen(_ context.Context, sc scope.Scope, id string, at time.Time) error {
	if err := sc.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok || !sc.Allows(u.OrgID) {
		return ErrUserNotFound
	}
	t := at
	u.LastSeenAt = &t
	return nil
}

var _ Store = (*MemoryStore)(nil)
