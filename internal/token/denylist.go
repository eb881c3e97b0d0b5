package token

import (
	"context"
	"sync"
	"time"
)

// Denylist records revoked JTIs until their tokens expire on their own.
type Denylist interface {
	Add(ctx context.Context, jti string, expiresAt time.Time) error
	Contains(ctx context.Context, jti string) (bool, error)
}

// MemoryDenylist is an in-process denylist for single-node deployments and
// tests. Expired entries are pruned lazily on access.
type MemoryDenylist struct {
	mu      sync.RWMutex
	entries map[string]time.Time // jti → token expiry
	now     func() time.Time
}

// NewMemoryDenylist creates an empty in-memory denylist.
func NewMemoryDenylist() *MemoryDenylist {
	return &MemoryDenylist{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (m *MemoryDenylist) Add(_ context.Context, jti string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if !expiresAt.After(now) {
		// The token can no longer validate; nothing to deny.
		return nil
	}
	m.entries[jti] = expiresAt
	m.pruneLocked(now)
	return nil
}

func (m *MemoryDenylist) Contains(_ context.Context, jti string) (bool, error) {
	m.mu.RLock()
	expiry, ok := m.entries[jti]
	m.mu.RUnlock()

	if !ok {
		return false, nil
	}
	if !expiry.After(m.now()) {
		m.mu.Lock()
		delete(m.entries, jti)
		m.mu.Unlock()
		return false, nil
	}
	return true, nil
}

// Len reports live entries, pruning expired ones first.
func (m *MemoryDenylist) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruneLocked(m.now())
	return len(m.entries)
}

func (m *MemoryDenylist) pruneLocked(now time.Time) {
	for jti, expiry := range m.entries {
		if !expiry.After(now) {
			delete(m.entries, jti)
		}
	}
}

var _ Denylist = (*MemoryDenylist)(nil)
