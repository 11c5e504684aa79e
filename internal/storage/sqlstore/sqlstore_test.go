package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/keshon/jingler/internal/settings"
	st "github.com/keshon/jingler/internal/storagetypes"
)

var _ settings.Store = (*Store)(nil)

func setupStore(t *testing.T) *Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: newGormLogger(zerolog.Nop())})
	require.NoError(t, err)

	s, err := New(db)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_GuildSettings(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)

	g, err := s.Guild(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, settings.Guild{}, g)

	want := settings.Guild{Mode: settings.ModeSingle, DefaultJingleID: "abcde", ThemeSongs: true}
	require.NoError(t, s.SaveGuild(ctx, "g1", want))
	g, err = s.Guild(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, want, g)

	// upsert back to zero values
	require.NoError(t, s.SaveGuild(ctx, "g1", settings.Guild{}))
	g, err = s.Guild(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, settings.Guild{}, g)
}

func TestStore_UserSettings(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)

	require.NoError(t, s.SaveUser(ctx, "u1", settings.User{ThemeSongID: "abcde"}))
	require.NoError(t, s.SaveUser(ctx, "u1", settings.User{ThemeSongID: "fghij"}))

	u, err := s.User(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "fghij", u.ThemeSongID)

	u, err = s.User(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, u.ThemeSongID)
}

func TestStore_CommandHistoryIsBounded(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)

	for i := range st.CommandHistoryLimit + 3 {
		require.NoError(t, s.AppendCommandHistory(ctx, "g1", st.CommandHistory{
			Command:  fmt.Sprintf("cmd%d", i),
			Datetime: time.Unix(int64(i), 0).UTC(),
		}))
	}
	require.NoError(t, s.AppendCommandHistory(ctx, "g2", st.CommandHistory{Command: "other"}))

	h, err := s.CommandHistory(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, h, st.CommandHistoryLimit)
	assert.Equal(t, "cmd3", h[0].Command)
	assert.Equal(t, "g1", h[0].GuildID)

	h, err = s.CommandHistory(ctx, "g2")
	require.NoError(t, err)
	require.Len(t, h, 1)
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open("mongo", "", zerolog.Nop())
	assert.ErrorIs(t, err, ErrUnknownBackend)
}
