package org

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory org store for development and tests.
type MemoryStore struct {
	mu    sync.RWMutex
	orgs  map[string]*Organization // by ID
	slugs map[string]string        // slug → ID
}

// NewMemoryStore creates a new in-memory org store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orgs:  make(map[string]*Organization),
		slugs: make(map[string]string),
	}
}

func (m *MemoryStore) Create(_ context.Context, o *Organization) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.slugs[o.Slug]; exists {
		return ErrSlugTaken
	}

	cp := *o
	m.orgs[o.ID] = &cp
	m.slugs[o.Slug] = o.ID
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Organization, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	o, ok := m.orgs[id]
	if !ok {
		return nil, ErrOrgNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *MemoryStore) GetBySlug(_ context.Context, slug string) (*Organization, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.slugs[slug]
	if !ok {
		return nil, ErrOrgNotFound
	}
	cp := *m.orgs[id]
	return &cp, nil
}

func (m *MemoryStore) GetByStripeCustomer(_ context.Context, customerID string) (*Organization, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, o := range m.orgs {
		if o.StripeCustomerID != "" && o.StripeCustomerID == customerID {
			cp := *o
			return &cp, nil
		}
	}
	return nil, ErrOrgNotFound
}

func (m *MemoryStore) Update(_ context.Context, o *Organization) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.orgs[o.ID]; !ok {
		return ErrOrgNotFound
	}
	cp := *o
	m.orgs[o.ID] = &cp
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orgs[id]
	if !ok {
		return ErrOrgNotFound
	}
	delete(m.slugs, o.Slug)
	delete(m.orgs, id)
	return nil
}

func (m *MemoryStore) ListTrialsExpired(_ context.Context, cutoff time.Time) ([]*Organization, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Organization
	for _, o := range m.orgs {
		if o.Status == StatusTrial && o.TrialEndsAt.Before(cutoff) {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

var _ Store = (*MemoryStore)(nil)
