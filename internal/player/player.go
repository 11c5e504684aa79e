// Package player decides which jingle a voice join gets and drives the voice
// transport through one playback.
package player

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/keshon/jingler/internal/jingle"
	"github.com/keshon/jingler/internal/settings"
)

var (
	ErrNoDefaultJingle = errors.New("guild is in single mode but has no default jingle")
	ErrEmptyCatalog    = jingle.ErrEmptyCatalog
	ErrAlreadyPlaying  = errors.New("a jingle is already playing in this guild")
)

// Connection is a joined voice channel.
type Connection interface {
	// Play streams the audio file and returns once it has been sent or ctx
	// is done.
	Play(ctx context.Context, path string) error
	Disconnect(ctx context.Context) error
}

// Transport joins voice channels.
type Transport interface {
	Connect(ctx context.Context, guildID, channelID string) (Connection, error)
}

// Catalog is the jingle lookup the orchestrator needs.
type Catalog interface {
	Get(id string) (jingle.Jingle, bool)
	RandomWith(intn func(n int) int) (jingle.Jingle, error)
}

// Settings reads guild and user preferences.
type Settings interface {
	Guild(ctx context.Context, guildID string) (settings.Guild, error)
	User(ctx context.Context, userID string) (settings.User, error)
}

// Source says where a chosen jingle came from.
type Source int

const (
	SourceNone Source = iota
	SourceTheme
	SourceGuild
)

func (s Source) String() string {
	switch s {
	case SourceTheme:
		return "theme"
	case SourceGuild:
		return "guild"
	default:
		return "none"
	}
}

// Decision is the outcome of resolving a join. A nil Jingle means skip.
type Decision struct {
	Jingle *jingle.Jingle
	Source Source
}

// Orchestrator resolves and plays jingles.
type Orchestrator struct {
	catalog   Catalog
	settings  Settings
	transport Transport
	log       zerolog.Logger
	intn      func(n int) int
	sleep     func(ctx context.Context, d time.Duration) error

	mu      sync.Mutex
	playing map[string]struct{}
}

type Option func(*Orchestrator)

// WithRand replaces the random source used in random mode.
func WithRand(intn func(n int) int) Option {
	return func(o *Orchestrator) { o.intn = intn }
}

// WithSleep replaces the lead-in delay, mainly for tests.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(o *Orchestrator) { o.sleep = sleep }
}

func New(catalog Catalog, store Settings, transport Transport, log zerolog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		catalog:   catalog,
		settings:  store,
		transport: transport,
		log:       log.With().Str("component", "player").Logger(),
		intn:      rand.IntN,
		sleep:     sleepContext,
		playing:   make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// GuildJingle resolves the guild-level jingle. override, when non-nil,
// replaces the guild's stored mode. A nil jingle with a nil error means the
// effective mode is disabled.
func (o *Orchestrator) GuildJingle(ctx context.Context, guildID string, override *settings.Mode) (*jingle.Jingle, error) {
	g, err := o.settings.Guild(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("load guild settings: %w", err)
	}
	return o.guildJingle(g, override)
}

func (o *Orchestrator) guildJingle(g settings.Guild, override *settings.Mode) (*jingle.Jingle, error) {
	mode := g.Mode
	if override != nil {
		mode = *override
	}

	switch mode {
	case settings.ModeSingle:
		if g.DefaultJingleID == "" {
			return nil, ErrNoDefaultJingle
		}
		j, ok := o.catalog.Get(g.DefaultJingleID)
		if !ok {
			return nil, fmt.Errorf("%w: %q is no longer in the catalog", ErrNoDefaultJingle, g.DefaultJingleID)
		}
		return &j, nil
	case settings.ModeRandom:
		j, err := o.catalog.RandomWith(o.intn)
		if err != nil {
			return nil, err
		}
		return &j, nil
	case settings.ModeDisabled:
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: %d", settings.ErrInvalidMode, uint8(mode))
	}
}

// Resolve picks the jingle for userID joining a voice channel in guildID.
func (o *Orchestrator) Resolve(ctx context.Context, guildID, userID string) (Decision, error) {
	g, err := o.settings.Guild(ctx, guildID)
	if err != nil {
		return Decision{}, fmt.Errorf("load guild settings: %w", err)
	}
	if g.Mode == settings.ModeDisabled {
		return Decision{}, nil
	}

	if g.ThemeSongs {
		u, err := o.settings.User(ctx, userID)
		if err != nil {
			return Decision{}, fmt.Errorf("load user settings: %w", err)
		}
		if u.ThemeSongID != "" {
			if j, ok := o.catalog.Get(u.ThemeSongID); ok {
				return Decision{Jingle: &j, Source: SourceTheme}, nil
			}
			o.log.Debug().Str("user", userID).Str("jingle", u.ThemeSongID).Msg("Theme song no longer in catalog")
		}
	}

	j, err := o.guildJingle(g, nil)
	if err != nil {
		return Decision{}, err
	}
	if j == nil {
		return Decision{}, nil
	}
	return Decision{Jingle: j, Source: SourceGuild}, nil
}

// Play joins channelID, waits the lead-in, plays j for its duration and
// leaves. A connect failure reports false; it is returned as an error only
// when failSilently is false.
func (o *Orchestrator) Play(ctx context.Context, guildID, channelID string, j jingle.Jingle, failSilently bool) (bool, error) {
	if !o.acquire(guildID) {
		return false, ErrAlreadyPlaying
	}
	defer o.release(guildID)

	log := o.log.With().Str("guild", guildID).Str("channel", channelID).Str("jingle", j.ID).Logger()

	conn, err := o.transport.Connect(ctx, guildID, channelID)
	if err != nil {
		log.Warn().Err(err).Msg("Error while trying to connect")
		if failSilently {
			return false, nil
		}
		return false, fmt.Errorf("connect to voice: %w", err)
	}
	defer func() {
		if err := conn.Disconnect(context.WithoutCancel(ctx)); err != nil {
			log.Warn().Err(err).Msg("Failed to disconnect from voice")
		}
	}()

	if err := o.sleep(ctx, jingle.LeadIn); err != nil {
		return false, err
	}

	playCtx, cancel := context.WithTimeout(ctx, j.Duration())
	defer cancel()

	if err := conn.Play(playCtx, j.Path); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		log.Warn().Err(err).Msg("Playback failed")
		if failSilently {
			return false, nil
		}
		return false, fmt.Errorf("play %s: %w", j.Filename(), err)
	}

	// hold the channel for the whole stored length
	<-playCtx.Done()
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	log.Debug().Msg("Jingle played")
	return true, nil
}

// HandleJoin resolves and plays the jingle for a member who just joined
// channelID. Skips are not errors.
func (o *Orchestrator) HandleJoin(ctx context.Context, guildID, userID, channelID string) error {
	d, err := o.Resolve(ctx, guildID, userID)
	if err != nil {
		return err
	}
	if d.Jingle == nil {
		return nil
	}

	o.log.Info().
		Str("guild", guildID).
		Str("user", userID).
		Str("source", d.Source.String()).
		Str("jingle", d.Jingle.ID).
		Str("title", d.Jingle.Title).
		Str("file", d.Jingle.Filename()).
		Msg("Playing jingle for join")

	_, err = o.Play(ctx, guildID, channelID, *d.Jingle, true)
	return err
}

// Playing reports whether a playback is in progress for guildID.
func (o *Orchestrator) Playing(guildID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.playing[guildID]
	return ok
}

func (o *Orchestrator) acquire(guildID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, busy := o.playing[guildID]; busy {
		return false
	}
	o.playing[guildID] = struct{}{}
	return true
}

func (o *Orchestrator) release(guildID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.playing, guildID)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
