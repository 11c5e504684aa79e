// Package storage keeps jingle settings and command history in the JSON
// datastore, one record per guild and one per user.
package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/keshon/jingler/internal/datastore"
	"github.com/keshon/jingler/internal/settings"
	st "github.com/keshon/jingler/internal/storagetypes"
)

const (
	guildPrefix = "guild:"
	userPrefix  = "user:"
)

type Storage struct {
	ds *datastore.DataStore
	mu sync.Mutex
}

type GuildRecord struct {
	Settings        settings.Guild      `json:"settings"`
	CommandsHistory []st.CommandHistory `json:"commands_history"`
}

type UserRecord struct {
	Settings settings.User `json:"settings"`
}

func New(filePath string, log zerolog.Logger) (*Storage, error) {
	cfg := datastore.DefaultConfig(filePath)
	cfg.Logger = log
	ds, err := datastore.NewWithConfig(cfg)
	if err != nil {
		return nil, err
	}
	return &Storage{ds: ds}, nil
}

func (s *Storage) Close() error {
	return s.ds.Close()
}

// Helper function to get or create a Record for a guild
func (s *Storage) getOrCreateGuildRecord(guildID string) (*GuildRecord, error) {
	var record GuildRecord
	exists, err := s.ds.Get(guildPrefix+guildID, &record)
	if err != nil {
		return nil, fmt.Errorf("error reading guild record: %w", err)
	}
	if !exists {
		return &GuildRecord{CommandsHistory: []st.CommandHistory{}}, nil
	}
	return &record, nil
}

func (s *Storage) getOrCreateUserRecord(userID string) (*UserRecord, error) {
	var record UserRecord
	if _, err := s.ds.Get(userPrefix+userID, &record); err != nil {
		return nil, fmt.Errorf("error reading user record: %w", err)
	}
	return &record, nil
}

func (s *Storage) Guild(_ context.Context, guildID string) (settings.Guild, error) {
	record, err := s.getOrCreateGuildRecord(guildID)
	if err != nil {
		return settings.Guild{}, err
	}
	return record.Settings, nil
}

func (s *Storage) SaveGuild(_ context.Context, guildID string, g settings.Guild) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.getOrCreateGuildRecord(guildID)
	if err != nil {
		return err
	}
	record.Settings = g
	return s.ds.Put(guildPrefix+guildID, record)
}

func (s *Storage) User(_ context.Context, userID string) (settings.User, error) {
	record, err := s.getOrCreateUserRecord(userID)
	if err != nil {
		return settings.User{}, err
	}
	return record.Settings, nil
}

func (s *Storage) SaveUser(_ context.Context, userID string, u settings.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.getOrCreateUserRecord(userID)
	if err != nil {
		return err
	}
	record.Settings = u
	return s.ds.Put(userPrefix+userID, record)
}

func (s *Storage) AppendCommandHistory(_ context.Context, guildID string, entry st.CommandHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.getOrCreateGuildRecord(guildID)
	if err != nil {
		return err
	}
	record.CommandsHistory = st.TrimHistory(append(record.CommandsHistory, entry))
	return s.ds.Put(guildPrefix+guildID, record)
}

func (s *Storage) CommandHistory(_ context.Context, guildID string) ([]st.CommandHistory, error) {
	record, err := s.getOrCreateGuildRecord(guildID)
	if err != nil {
		return nil, err
	}
	return record.CommandsHistory, nil
}

// Guilds returns the IDs of guilds that have a stored record.
func (s *Storage) Guilds() []string {
	keys := s.ds.Keys(guildPrefix)
	ids := make([]string, len(keys))
	for i, k := range keys {
		ids[i] = k[len(guildPrefix):]
	}
	return ids
}
