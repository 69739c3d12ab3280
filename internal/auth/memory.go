package auth

import (
	"context"
	"slices"
	"sync"
	"time"
)

// MemoryStore keeps accounts in memory. It enforces the same uniqueness
// rules as the Postgres store and serves the seeded role records.
type MemoryStore struct {
	mu       sync.RWMutex
	nextID   int64
	byName   map[string]*Account
	byEmail  map[string]int64
	roleRecs []RoleRecord
}

func NewMemoryStore() *MemoryStore {
	recs := make([]RoleRecord, 0, len(AllRoles))
	for i, r := range AllRoles {
		recs = append(recs, RoleRecord{ID: int64(i + 1), Name: r})
	}
	return &MemoryStore{
		byName:   make(map[string]*Account),
		byEmail:  make(map[string]int64),
		roleRecs: recs,
	}
}

func (m *MemoryStore) GetByUsername(_ context.Context, username string) (*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.byName[username]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return cloneAccount(a), nil
}

func (m *MemoryStore) ExistsByUsername(_ context.Context, username string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.byName[username]
	return ok, nil
}

func (m *MemoryStore) ExistsByEmail(_ context.Context, email string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.byEmail[email]
	return ok, nil
}

func (m *MemoryStore) Create(_ context.Context, acc *Account, roles []RoleRecord) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byName[acc.Username]; ok {
		return nil, ErrDuplicateUsername
	}
	if _, ok := m.byEmail[acc.Email]; ok {
		return nil, ErrDuplicateEmail
	}
	m.nextID++
	a := cloneAccount(acc)
	a.ID = m.nextID
	a.CreatedAt = time.Now().UTC()
	a.Roles = a.Roles[:0]
	for _, r := range roles {
		a.Roles = append(a.Roles, r.Name)
	}
	m.byName[a.Username] = a
	m.byEmail[a.Email] = a.ID
	return cloneAccount(a), nil
}

func (m *MemoryStore) ListRoles(context.Context) ([]RoleRecord, error) {
	return slices.Clone(m.roleRecs), nil
}

func cloneAccount(a *Account) *Account {
	c := *a
	c.Roles = slices.Clone(a.Roles)
	return &c
}
