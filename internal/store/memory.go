package store

import (
	"context"
	"sync"

	"github.com/nestorcolt/blockcatcher/internal/models"
)

// MemoryStore holds profiles in memory. Test and local-dev use only.
type MemoryStore struct {
	mu            sync.RWMutex
	users         map[string]models.UserProfile
	lastIteration map[string]int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:         map[string]models.UserProfile{},
		lastIteration: map[string]int64{},
	}
}

func (m *MemoryStore) PutUser(profile models.UserProfile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[profile.UserID] = profile
}

func (m *MemoryStore) GetUser(ctx context.Context, userID string) (models.UserProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	profile, ok := m.users[userID]
	if !ok {
		return models.UserProfile{}, ErrNotFound
	}
	return profile, nil
}

func (m *MemoryStore) SetUserCredentials(ctx context.Context, userID, accessToken, serviceArea string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	profile, ok := m.users[userID]
	if !ok {
		return ErrNotFound
	}
	profile.AccessToken = accessToken
	profile.ServiceAreaHeader = serviceArea
	m.users[userID] = profile
	return nil
}

func (m *MemoryStore) TouchUser(ctx context.Context, userID string, timestamp int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[userID]; !ok {
		return ErrNotFound
	}
	m.lastIteration[userID] = timestamp
	return nil
}

// LastIteration returns the most recent TouchUser stamp, for tests.
func (m *MemoryStore) LastIteration(userID string) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastIteration[userID]
}
