// Package sqlstore keeps jingle settings and command history in a SQL
// database through gorm. SQLite and PostgreSQL are supported.
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/keshon/jingler/internal/settings"
	st "github.com/keshon/jingler/internal/storagetypes"
)

const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

var ErrUnknownBackend = errors.New("unknown database backend")

type Store struct {
	db *gorm.DB
}

// Open connects to the database for backend and migrates the schema.
func Open(backend, dsn string, log zerolog.Logger) (*Store, error) {
	var dialector gorm.Dialector
	switch backend {
	case BackendSQLite:
		if dir := filepath.Dir(dsn); !strings.HasPrefix(dsn, "file:") && dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
		dialector = sqlite.Open(dsn)
	case BackendPostgres:
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: newGormLogger(log)})
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", backend, err)
	}
	return New(db)
}

// New wraps an open gorm connection and migrates the schema.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&GuildSettings{}, &UserSettings{}, &CommandHistory{}); err != nil {
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) Guild(ctx context.Context, guildID string) (settings.Guild, error) {
	var row GuildSettings
	err := s.db.WithContext(ctx).First(&row, "guild_id = ?", guildID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return settings.Guild{}, nil
	}
	if err != nil {
		return settings.Guild{}, fmt.Errorf("load guild %s: %w", guildID, err)
	}
	return settings.Guild{
		Mode:            settings.Mode(row.Mode),
		DefaultJingleID: row.DefaultJingleID,
		ThemeSongs:      row.ThemeSongs,
	}, nil
}

func (s *Store) SaveGuild(ctx context.Context, guildID string, g settings.Guild) error {
	row := GuildSettings{
		GuildID:         guildID,
		Mode:            uint8(g.Mode),
		DefaultJingleID: g.DefaultJingleID,
		ThemeSongs:      g.ThemeSongs,
		UpdatedAt:       time.Now().UTC(),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("save guild %s: %w", guildID, err)
	}
	return nil
}

func (s *Store) User(ctx context.Context, userID string) (settings.User, error) {
	var row UserSettings
	err := s.db.WithContext(ctx).First(&row, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return settings.User{}, nil
	}
	if err != nil {
		return settings.User{}, fmt.Errorf("load user %s: %w", userID, err)
	}
	return settings.User{ThemeSongID: row.ThemeSongID}, nil
}

func (s *Store) SaveUser(ctx context.Context, userID string, u settings.User) error {
	row := UserSettings{
		UserID:      userID,
		ThemeSongID: u.ThemeSongID,
		UpdatedAt:   time.Now().UTC(),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("save user %s: %w", userID, err)
	}
	return nil
}

// AppendCommandHistory records an invocation and drops all but the newest
// entries for the guild.
func (s *Store) AppendCommandHistory(ctx context.Context, guildID string, entry st.CommandHistory) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := CommandHistory{
			GuildID:   guildID,
			ChannelID: entry.ChannelID,
			UserID:    entry.UserID,
			Username:  entry.Username,
			Command:   entry.Command,
			Args:      entry.Args,
			Failed:    entry.Failed,
			Datetime:  entry.Datetime,
		}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("insert command history: %w", err)
		}

		keep := tx.Model(&CommandHistory{}).
			Select("id").
			Where("guild_id = ?", guildID).
			Order("id DESC").
			Limit(st.CommandHistoryLimit)
		err := tx.Where("guild_id = ? AND id NOT IN (?)", guildID, keep).Delete(&CommandHistory{}).Error
		if err != nil {
			return fmt.Errorf("prune command history: %w", err)
		}
		return nil
	})
}

func (s *Store) CommandHistory(ctx context.Context, guildID string) ([]st.CommandHistory, error) {
	var rows []CommandHistory
	err := s.db.WithContext(ctx).
		Where("guild_id = ?", guildID).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load command history: %w", err)
	}

	out := make([]st.CommandHistory, len(rows))
	for i, r := range rows {
		out[i] = st.CommandHistory{
			GuildID:   r.GuildID,
			ChannelID: r.ChannelID,
			UserID:    r.UserID,
			Username:  r.Username,
			Command:   r.Command,
			Args:      r.Args,
			Failed:    r.Failed,
			Datetime:  r.Datetime,
		}
	}
	return st.TrimHistory(out), nil
}
