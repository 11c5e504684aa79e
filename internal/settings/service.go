package settings

import (
	"context"
	"fmt"
	"sync"
)

// Jingles is the catalog lookup the service validates codes against.
type Jingles interface {
	Has(id string) bool
}

// Service applies validated changes to a Store.
type Service struct {
	store   Store
	jingles Jingles
	mu      sync.Mutex
}

func NewService(store Store, jingles Jingles) *Service {
	return &Service{store: store, jingles: jingles}
}

func (s *Service) Guild(ctx context.Context, guildID string) (Guild, error) {
	return s.store.Guild(ctx, guildID)
}

func (s *Service) User(ctx context.Context, userID string) (User, error) {
	return s.store.User(ctx, userID)
}

// SetMode changes the guild mode. Single mode needs a default jingle that is
// still in the catalog.
func (s *Service) SetMode(ctx context.Context, guildID string, mode Mode) error {
	if !mode.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidMode, uint8(mode))
	}
	return s.updateGuild(ctx, guildID, func(g *Guild) error {
		if mode == ModeSingle && (g.DefaultJingleID == "" || !s.jingles.Has(g.DefaultJingleID)) {
			return ErrNoDefaultJingle
		}
		g.Mode = mode
		return nil
	})
}

// SetDefault sets the jingle played in single mode.
func (s *Service) SetDefault(ctx context.Context, guildID, jingleID string) error {
	if !s.jingles.Has(jingleID) {
		return fmt.Errorf("%w: %q", ErrUnknownJingle, jingleID)
	}
	return s.updateGuild(ctx, guildID, func(g *Guild) error {
		g.DefaultJingleID = jingleID
		return nil
	})
}

// SetThemeSongs toggles whether members' theme songs override the guild
// jingle.
func (s *Service) SetThemeSongs(ctx context.Context, guildID string, enabled bool) error {
	return s.updateGuild(ctx, guildID, func(g *Guild) error {
		g.ThemeSongs = enabled
		return nil
	})
}

// SetThemeSong sets the user's theme song; an empty code clears it.
func (s *Service) SetThemeSong(ctx context.Context, userID, jingleID string) error {
	if jingleID != "" && !s.jingles.Has(jingleID) {
		return fmt.Errorf("%w: %q", ErrUnknownJingle, jingleID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, err := s.store.User(ctx, userID)
	if err != nil {
		return fmt.Errorf("load user settings: %w", err)
	}
	u.ThemeSongID = jingleID
	if err := s.store.SaveUser(ctx, userID, u); err != nil {
		return fmt.Errorf("save user settings: %w", err)
	}
	return nil
}

func (s *Service) updateGuild(ctx context.Context, guildID string, apply func(*Guild) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, err := s.store.Guild(ctx, guildID)
	if err != nil {
		return fmt.Errorf("load guild settings: %w", err)
	}
	if err := apply(&g); err != nil {
		return err
	}
	if err := s.store.SaveGuild(ctx, guildID, g); err != nil {
		return fmt.Errorf("save guild settings: %w", err)
	}
	return nil
}
