package settings

import (
	"context"
	"sync"
)

// MemoryStore keeps settings in process memory. Nothing survives a restart.
type MemoryStore struct {
	mu     sync.RWMutex
	guilds map[string]Guild
	users  map[string]User
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		guilds: make(map[string]Guild),
		users:  make(map[string]User),
	}
}

func (m *MemoryStore) Guild(_ context.Context, guildID string) (Guild, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.guilds[guildID], nil
}

func (m *MemoryStore) SaveGuild(_ context.Context, guildID string, g Guild) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.guilds[guildID] = g
	return nil
}

func (m *MemoryStore) User(_ context.Context, userID string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.users[userID], nil
}

func (m *MemoryStore) SaveUser(_ context.Context, userID string, u User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[userID] = u
	return nil
}

func (m *MemoryStore) Close() error { return nil }
