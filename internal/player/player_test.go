package player

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keshon/jingler/internal/jingle"
	"github.com/keshon/jingler/internal/settings"
)

type fakeCatalog struct {
	jingles []jingle.Jingle
}

func newFakeCatalog(n int) *fakeCatalog {
	c := &fakeCatalog{}
	for i := range n {
		c.jingles = append(c.jingles, jingle.Jingle{
			ID:     fmt.Sprintf("j%d", i),
			Title:  fmt.Sprintf("Jingle %d", i),
			Path:   fmt.Sprintf("/jingles/j%d.mp3", i),
			Length: 0.01,
		})
	}
	return c
}

func (c *fakeCatalog) Get(id string) (jingle.Jingle, bool) {
	for _, j := range c.jingles {
		if j.ID == id {
			return j, true
		}
	}
	return jingle.Jingle{}, false
}

func (c *fakeCatalog) RandomWith(intn func(int) int) (jingle.Jingle, error) {
	if len(c.jingles) == 0 {
		return jingle.Jingle{}, jingle.ErrEmptyCatalog
	}
	return c.jingles[intn(len(c.jingles))], nil
}

type fakeConn struct {
	t            *fakeTransport
	played       []string
	disconnected bool
}

func (c *fakeConn) Play(_ context.Context, path string) error {
	c.t.mu.Lock()
	defer c.t.mu.Unlock()
	c.played = append(c.played, path)
	return c.t.playErr
}

func (c *fakeConn) Disconnect(context.Context) error {
	c.t.mu.Lock()
	defer c.t.mu.Unlock()
	c.disconnected = true
	return nil
}

type fakeTransport struct {
	mu         sync.Mutex
	connectErr error
	playErr    error
	conns      []*fakeConn
	channels   []string
	block      chan struct{}
}

func (t *fakeTransport) Connect(ctx context.Context, _, channelID string) (Connection, error) {
	if t.block != nil {
		select {
		case <-t.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.channels = append(t.channels, channelID)
	if t.connectErr != nil {
		return nil, t.connectErr
	}
	c := &fakeConn{t: t}
	t.conns = append(t.conns, c)
	return c, nil
}

func (t *fakeTransport) connectCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.channels)
}

func noSleep(context.Context, time.Duration) error { return nil }

func newOrchestrator(cat Catalog, store settings.Store, tr Transport, opts ...Option) *Orchestrator {
	opts = append([]Option{WithSleep(noSleep)}, opts...)
	return New(cat, store, tr, zerolog.Nop(), opts...)
}

func modePtr(m settings.Mode) *settings.Mode { return &m }

func TestResolve_SingleWithoutDefaultIsConfigError(t *testing.T) {
	ctx := context.Background()
	store := settings.NewMemoryStore()
	require.NoError(t, store.SaveGuild(ctx, "g1", settings.Guild{Mode: settings.ModeSingle}))

	tr := &fakeTransport{}
	o := newOrchestrator(newFakeCatalog(3), store, tr)

	_, err := o.Resolve(ctx, "g1", "u1")
	require.ErrorIs(t, err, ErrNoDefaultJingle)

	err = o.HandleJoin(ctx, "g1", "u1", "voice")
	require.ErrorIs(t, err, ErrNoDefaultJingle)
	assert.Zero(t, tr.connectCount(), "no playback is attempted")
}

func TestResolve_SingleWithRemovedDefault(t *testing.T) {
	ctx := context.Background()
	store := settings.NewMemoryStore()
	require.NoError(t, store.SaveGuild(ctx, "g1", settings.Guild{Mode: settings.ModeSingle, DefaultJingleID: "gone"}))

	o := newOrchestrator(newFakeCatalog(3), store, &fakeTransport{})
	_, err := o.Resolve(ctx, "g1", "u1")
	assert.ErrorIs(t, err, ErrNoDefaultJingle)
}

func TestResolve_Single(t *testing.T) {
	ctx := context.Background()
	store := settings.NewMemoryStore()
	require.NoError(t, store.SaveGuild(ctx, "g1", settings.Guild{Mode: settings.ModeSingle, DefaultJingleID: "j2"}))

	o := newOrchestrator(newFakeCatalog(3), store, &fakeTransport{})
	d, err := o.Resolve(ctx, "g1", "u1")
	require.NoError(t, err)
	require.NotNil(t, d.Jingle)
	assert.Equal(t, "j2", d.Jingle.ID)
	assert.Equal(t, SourceGuild, d.Source)
}

func TestResolve_RandomIsUniform(t *testing.T) {
	ctx := context.Background()
	store := settings.NewMemoryStore()
	require.NoError(t, store.SaveGuild(ctx, "g1", settings.Guild{Mode: settings.ModeRandom}))

	o := newOrchestrator(newFakeCatalog(5), store, &fakeTransport{})

	const trials = 5000
	counts := map[string]int{}
	for range trials {
		d, err := o.Resolve(ctx, "g1", "u1")
		require.NoError(t, err)
		require.NotNil(t, d.Jingle)
		counts[d.Jingle.ID]++
	}

	require.Len(t, counts, 5)
	for id, n := range counts {
		assert.InDelta(t, trials/5, n, 200, "jingle %s picked %d times", id, n)
	}
}

func TestResolve_RandomEmptyCatalog(t *testing.T) {
	ctx := context.Background()
	store := settings.NewMemoryStore()
	require.NoError(t, store.SaveGuild(ctx, "g1", settings.Guild{Mode: settings.ModeRandom}))

	o := newOrchestrator(newFakeCatalog(0), store, &fakeTransport{})
	_, err := o.Resolve(ctx, "g1", "u1")
	assert.ErrorIs(t, err, ErrEmptyCatalog)
}

func TestResolve_Disabled(t *testing.T) {
	ctx := context.Background()
	store := settings.NewMemoryStore()
	require.NoError(t, store.SaveGuild(ctx, "g1", settings.Guild{Mode: settings.ModeDisabled, ThemeSongs: true}))
	require.NoError(t, store.SaveUser(ctx, "u1", settings.User{ThemeSongID: "j1"}))

	tr := &fakeTransport{}
	o := newOrchestrator(newFakeCatalog(3), store, tr)

	d, err := o.Resolve(ctx, "g1", "u1")
	require.NoError(t, err)
	assert.Nil(t, d.Jingle)

	require.NoError(t, o.HandleJoin(ctx, "g1", "u1", "voice"))
	assert.Zero(t, tr.connectCount())
}

func TestResolve_ThemeSong(t *testing.T) {
	ctx := context.Background()
	store := settings.NewMemoryStore()
	require.NoError(t, store.SaveUser(ctx, "u1", settings.User{ThemeSongID: "j1"}))
	o := newOrchestrator(newFakeCatalog(3), store, &fakeTransport{}, WithRand(func(int) int { return 2 }))

	t.Run("ignored when the guild flag is off", func(t *testing.T) {
		require.NoError(t, store.SaveGuild(ctx, "g1", settings.Guild{Mode: settings.ModeRandom}))
		d, err := o.Resolve(ctx, "g1", "u1")
		require.NoError(t, err)
		require.NotNil(t, d.Jingle)
		assert.Equal(t, "j2", d.Jingle.ID)
		assert.Equal(t, SourceGuild, d.Source)
	})

	t.Run("wins when the guild flag is on", func(t *testing.T) {
		require.NoError(t, store.SaveGuild(ctx, "g1", settings.Guild{Mode: settings.ModeRandom, ThemeSongs: true}))
		d, err := o.Resolve(ctx, "g1", "u1")
		require.NoError(t, err)
		require.NotNil(t, d.Jingle)
		assert.Equal(t, "j1", d.Jingle.ID)
		assert.Equal(t, SourceTheme, d.Source)
	})

	t.Run("falls back when the theme is gone", func(t *testing.T) {
		require.NoError(t, store.SaveUser(ctx, "u2", settings.User{ThemeSongID: "removed"}))
		d, err := o.Resolve(ctx, "g1", "u2")
		require.NoError(t, err)
		require.NotNil(t, d.Jingle)
		assert.Equal(t, "j2", d.Jingle.ID)
		assert.Equal(t, SourceGuild, d.Source)
	})
}

func TestGuildJingle_Override(t *testing.T) {
	ctx := context.Background()
	store := settings.NewMemoryStore()
	o := newOrchestrator(newFakeCatalog(3), store, &fakeTransport{}, WithRand(func(int) int { return 0 }))

	j, err := o.GuildJingle(ctx, "g1", nil)
	require.NoError(t, err)
	assert.Nil(t, j, "a fresh guild is disabled")

	j, err = o.GuildJingle(ctx, "g1", modePtr(settings.ModeRandom))
	require.NoError(t, err)
	require.NotNil(t, j)
	assert.Equal(t, "j0", j.ID)

	require.NoError(t, store.SaveGuild(ctx, "g1", settings.Guild{Mode: settings.ModeRandom}))
	j, err = o.GuildJingle(ctx, "g1", modePtr(settings.ModeDisabled))
	require.NoError(t, err)
	assert.Nil(t, j)
}

func TestPlay(t *testing.T) {
	tr := &fakeTransport{}
	o := newOrchestrator(newFakeCatalog(1), settings.NewMemoryStore(), tr)
	j := jingle.Jingle{ID: "abcde", Path: "/jingles/a.mp3", Length: 0.02}

	played, err := o.Play(context.Background(), "g1", "voice", j, true)
	require.NoError(t, err)
	assert.True(t, played)

	require.Len(t, tr.conns, 1)
	assert.Equal(t, []string{"/jingles/a.mp3"}, tr.conns[0].played)
	assert.True(t, tr.conns[0].disconnected)
	assert.False(t, o.Playing("g1"))
}

func TestPlay_ConnectFailure(t *testing.T) {
	tr := &fakeTransport{connectErr: errors.New("no permission to connect")}
	o := newOrchestrator(newFakeCatalog(1), settings.NewMemoryStore(), tr)
	j := jingle.Jingle{ID: "abcde", Path: "/jingles/a.mp3", Length: 0.01}

	played, err := o.Play(context.Background(), "g1", "voice", j, true)
	require.NoError(t, err)
	assert.False(t, played)

	played, err = o.Play(context.Background(), "g1", "voice", j, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no permission to connect")
	assert.False(t, played)
}

func TestPlay_PlaybackFailureStillDisconnects(t *testing.T) {
	tr := &fakeTransport{playErr: errors.New("ffmpeg not found")}
	o := newOrchestrator(newFakeCatalog(1), settings.NewMemoryStore(), tr)

	played, err := o.Play(context.Background(), "g1", "voice", jingle.Jingle{Path: "x.mp3", Length: 0.01}, false)
	require.Error(t, err)
	assert.False(t, played)
	require.Len(t, tr.conns, 1)
	assert.True(t, tr.conns[0].disconnected)
}

func TestPlay_OnePerGuild(t *testing.T) {
	tr := &fakeTransport{block: make(chan struct{})}
	o := newOrchestrator(newFakeCatalog(1), settings.NewMemoryStore(), tr)
	j := jingle.Jingle{ID: "abcde", Path: "a.mp3", Length: 0.01}

	done := make(chan bool, 1)
	go func() {
		played, _ := o.Play(context.Background(), "g1", "voice", j, true)
		done <- played
	}()
	require.Eventually(t, func() bool { return o.Playing("g1") }, time.Second, time.Millisecond)

	_, err := o.Play(context.Background(), "g1", "other", j, true)
	assert.ErrorIs(t, err, ErrAlreadyPlaying)

	close(tr.block)
	select {
	case played := <-done:
		assert.True(t, played)
	case <-time.After(time.Second):
		t.Fatal("playback did not finish")
	}
}

func TestSource_String(t *testing.T) {
	assert.Equal(t, "theme", SourceTheme.String())
	assert.Equal(t, "guild", SourceGuild.String())
	assert.Equal(t, "none", SourceNone.String())
}
