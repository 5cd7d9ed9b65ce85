package user

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store for local runs and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[int64]Record)}
}

func (m *MemoryStore) Create(ctx context.Context, r Record) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkUniqueLocked(r, 0); err != nil {
		return Record{}, err
	}
	m.nextID++
	r.ID = m.nextID
	m.byID[r.ID] = r
	return r, nil
}

func (m *MemoryStore) FindByID(ctx context.Context, id int64) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.byID[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return r, nil
}

func (m *MemoryStore) FindByUsername(ctx context.Context, username string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.byID {
		if r.Username == username {
			return r, nil
		}
	}
	return Record{}, ErrNotFound
}

func (m *MemoryStore) FindByEmail(ctx context.Context, email string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.byID {
		if r.Email == email {
			return r, nil
		}
	}
	return Record{}, ErrNotFound
}

func (m *MemoryStore) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	_, err := m.FindByUsername(ctx, username)
	return err == nil, nil
}

func (m *MemoryStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := m.FindByEmail(ctx, email)
	return err == nil, nil
}

func (m *MemoryStore) UpdateProfile(ctx context.Context, id int64, ch ProfileChange) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.byID[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	if ch.Username != nil {
		r.Username = *ch.Username
	}
	if ch.Email != nil {
		r.Email = *ch.Email
	}
	if ch.PasswordHash != nil {
		r.PasswordHash = *ch.PasswordHash
	}
	if err := m.checkUniqueLocked(r, id); err != nil {
		return Record{}, err
	}
	r.UpdatedAt = ch.UpdatedAt
	m.byID[id] = r
	return r, nil
}

func (m *MemoryStore) SetEnabled(ctx context.Context, id int64, enabled bool, at time.Time) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.byID[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	r.Status.Enabled = enabled
	r.UpdatedAt = at
	m.byID[id] = r
	return r, nil
}

func (m *MemoryStore) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

// checkUniqueLocked mirrors the UNIQUE constraints of the SQL schema.
// Usernames are checked across every record before emails so the reported
// collision does not depend on map order.
func (m *MemoryStore) checkUniqueLocked(r Record, selfID int64) error {
	for id, other := range m.byID {
		if id != selfID && other.Username == r.Username {
			return ErrDuplicateUsername
		}
	}
	for id, other := range m.byID {
		if id != selfID && other.Email == r.Email {
			return ErrDuplicateEmail
		}
	}
	return nil
}
