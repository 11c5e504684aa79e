// Package settings holds the per-guild and per-user jingle preferences and
// the rules for changing them.
package settings

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidMode     = errors.New("invalid jingle mode")
	ErrNoDefaultJingle = errors.New("no default jingle set")
	ErrUnknownJingle   = errors.New("unknown jingle code")
)

// Mode decides what a guild plays when someone joins a voice channel.
type Mode uint8

const (
	ModeDisabled Mode = iota
	ModeSingle
	ModeRandom
)

var modeNames = map[Mode]string{
	ModeDisabled: "disabled",
	ModeSingle:   "single",
	ModeRandom:   "random",
}

// Modes lists the valid modes in display order.
var Modes = []Mode{ModeDisabled, ModeSingle, ModeRandom}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("mode(%d)", uint8(m))
}

// Valid reports whether m is one of the defined modes.
func (m Mode) Valid() bool {
	_, ok := modeNames[m]
	return ok
}

// ParseMode accepts a mode name, case-insensitively.
func ParseMode(s string) (Mode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for m, name := range modeNames {
		if name == s {
			return m, nil
		}
	}
	return ModeDisabled, fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

func (m Mode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMode, uint8(m))
	}
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Guild is one guild's settings. The zero value is a guild that never
// configured anything: jingles disabled, no default, no theme songs.
type Guild struct {
	Mode            Mode   `json:"mode"`
	DefaultJingleID string `json:"default_jingle_id,omitempty"`
	ThemeSongs      bool   `json:"theme_songs"`
}

// User is one user's settings, shared across guilds.
type User struct {
	ThemeSongID string `json:"theme_song_id,omitempty"`
}

// Store persists settings records. Unknown IDs yield zero-value records.
type Store interface {
	Guild(ctx context.Context, guildID string) (Guild, error)
	SaveGuild(ctx context.Context, guildID string, g Guild) error
	User(ctx context.Context, userID string) (User, error)
	SaveUser(ctx context.Context, userID string, u User) error
	Close() error
}
