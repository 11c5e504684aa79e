// Package commandtest provides in-memory stand-ins for the chat, voice and
// download surfaces commands run against.
package commandtest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/keshon/jingler/internal/command"
	"github.com/keshon/jingler/internal/jingle"
	"github.com/keshon/jingler/internal/paginator"
	"github.com/keshon/jingler/internal/player"
	"github.com/keshon/jingler/internal/settings"
	st "github.com/keshon/jingler/internal/storagetypes"
	"github.com/keshon/jingler/internal/waiter"
	"github.com/keshon/jingler/pkg/cmd"
)

const (
	GuildID   = "guild"
	ChannelID = "text"
	UserID    = "author"
)

// Chat records everything sent to the chat surface.
type Chat struct {
	mu        sync.Mutex
	nextID    int
	Sent      []string
	Edits     map[string][]string
	Reactions map[string][]string
	Deleted   []string
}

func NewChat() *Chat {
	return &Chat{Edits: make(map[string][]string), Reactions: make(map[string][]string)}
}

func (c *Chat) Send(_ context.Context, _, content string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	c.Sent = append(c.Sent, content)
	return fmt.Sprintf("m%d", c.nextID), nil
}

func (c *Chat) Edit(_ context.Context, _, messageID, content string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Edits[messageID] = append(c.Edits[messageID], content)
	return nil
}

func (c *Chat) ClearReactions(_ context.Context, _, messageID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.Reactions, messageID)
	return nil
}

func (c *Chat) AddReaction(_ context.Context, _, messageID, emoji string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Reactions[messageID] = append(c.Reactions[messageID], emoji)
	return nil
}

func (c *Chat) Delete(_ context.Context, _, messageID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Deleted = append(c.Deleted, messageID)
	return nil
}

// Messages returns a copy of the sent messages.
func (c *Chat) Messages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.Sent...)
}

// Last returns the last sent message, or "".
func (c *Chat) Last() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.Sent) == 0 {
		return ""
	}
	return c.Sent[len(c.Sent)-1]
}

// LastEdit returns the newest content of messageID, or "".
func (c *Chat) LastEdit(messageID string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	edits := c.Edits[messageID]
	if len(edits) == 0 {
		return ""
	}
	return edits[len(edits)-1]
}

// ReactionsOn returns the reactions currently on messageID.
func (c *Chat) ReactionsOn(messageID string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.Reactions[messageID]...)
}

type Reactions struct {
	waiter.Dispatcher[paginator.Reaction]
}

func (r *Reactions) WaitForReaction(ctx context.Context, match func(paginator.Reaction) bool) (paginator.Reaction, error) {
	return r.Wait(ctx, match)
}

type Messages struct {
	waiter.Dispatcher[*command.Message]
}

func (m *Messages) WaitForMessage(ctx context.Context, match func(*command.Message) bool) (*command.Message, error) {
	return m.Wait(ctx, match)
}

// Say waits until a command is listening and delivers a message from the
// default author.
func (m *Messages) Say(t *testing.T, msg *command.Message) int {
	t.Helper()
	require.Eventually(t, func() bool { return m.Pending() > 0 }, 2*time.Second, time.Millisecond)
	if msg.ChannelID == "" {
		msg.ChannelID = ChannelID
	}
	if msg.GuildID == "" {
		msg.GuildID = GuildID
	}
	if msg.Author.ID == "" {
		msg.Author = command.Author{ID: UserID, Username: "author"}
	}
	return m.Dispatch(msg)
}

// Voice maps users to the voice channel they sit in.
type Voice map[string]string

func (v Voice) UserVoiceChannel(_, userID string) (string, bool) {
	ch, ok := v[userID]
	return ch, ok
}

// Files serves attachment bodies by URL.
type Files map[string][]byte

func (f Files) Download(_ context.Context, url string) (io.ReadCloser, error) {
	body, ok := f[url]
	if !ok {
		return nil, errors.New("404 not found")
	}
	return io.NopCloser(bytes.NewReader(body)), nil
}

type History struct {
	mu      sync.Mutex
	Entries map[string][]st.CommandHistory
}

func (h *History) AppendCommandHistory(_ context.Context, guildID string, entry st.CommandHistory) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.Entries == nil {
		h.Entries = make(map[string][]st.CommandHistory)
	}
	h.Entries[guildID] = st.TrimHistory(append(h.Entries[guildID], entry))
	return nil
}

func (h *History) CommandHistory(_ context.Context, guildID string) ([]st.CommandHistory, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]st.CommandHistory(nil), h.Entries[guildID]...), nil
}

// Transport records voice connections and plays nothing.
type Transport struct {
	mu       sync.Mutex
	Fail     error
	Channels []string
	Played   []string
}

func (t *Transport) Connect(_ context.Context, _, channelID string) (player.Connection, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Fail != nil {
		return nil, t.Fail
	}
	t.Channels = append(t.Channels, channelID)
	return &conn{t: t}, nil
}

func (t *Transport) Plays() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.Played...)
}

type conn struct{ t *Transport }

func (c *conn) Play(_ context.Context, path string) error {
	c.t.mu.Lock()
	defer c.t.mu.Unlock()
	c.t.Played = append(c.t.Played, path)
	return nil
}

func (c *conn) Disconnect(context.Context) error { return nil }

// Harness is an Env wired to in-memory fakes.
type Harness struct {
	Env       *command.Env
	Chat      *Chat
	Reactions *Reactions
	Messages  *Messages
	Voice     Voice
	Files     Files
	History   *History
	Transport *Transport
	Store     *settings.MemoryStore
	Dir       string
}

// New builds a harness over an empty jingle folder.
func New(t *testing.T) *Harness {
	t.Helper()
	dir := t.TempDir()
	log := zerolog.Nop()

	h := &Harness{
		Chat:      NewChat(),
		Reactions: &Reactions{},
		Messages:  &Messages{},
		Voice:     Voice{},
		Files:     Files{},
		History:   &History{},
		Transport: &Transport{},
		Store:     settings.NewMemoryStore(),
		Dir:       dir,
	}

	catalog := jingle.NewCatalog(dir, log)
	service := settings.NewService(h.Store, catalog)
	orchestrator := player.New(catalog, service, h.Transport, log,
		player.WithSleep(func(context.Context, time.Duration) error { return nil }))

	h.Env = &command.Env{
		Prefix:            ".",
		Chat:              h.Chat,
		Reactions:         h.Reactions,
		Messages:          h.Messages,
		Voice:             h.Voice,
		Download:          h.Files,
		Catalog:           catalog,
		Settings:          service,
		Player:            orchestrator,
		History:           h.History,
		Registry:          cmd.NewRegistry(),
		Limits:            jingle.Limits{MaxFileSize: 1024 * 1024, MaxLength: 10 * time.Second, MaxTitleLength: 65},
		MessageLimit:      paginator.DefaultMessageLimit,
		PaginationTimeout: time.Minute,
		ReplyTimeout:      time.Second,
		UploadTimeout:     time.Second,
		Log:               log,
	}
	return h
}

// AddJingle writes an audio file and its sidecar, then reloads the catalog.
// Lengths are kept tiny so playback finishes quickly.
func (h *Harness) AddJingle(t *testing.T, id, title string) jingle.Jingle {
	t.Helper()
	audio := filepath.Join(h.Dir, strings.ToLower(title)+".mp3")
	require.NoError(t, os.WriteFile(audio, []byte("audio"), 0644))
	meta := fmt.Sprintf(`{"id":%q,"title":%q,"length":0.01}`, id, title)
	require.NoError(t, os.WriteFile(jingle.MetaPath(audio), []byte(meta), 0644))
	_, err := h.Env.Catalog.Reload()
	require.NoError(t, err)
	j, ok := h.Env.Catalog.Get(id)
	require.True(t, ok)
	return j
}

// Message builds a message from the default author in the default channel.
func Message(content string) *command.Message {
	return &command.Message{
		ID:        "invoking",
		GuildID:   GuildID,
		ChannelID: ChannelID,
		Author:    command.Author{ID: UserID, Username: "author"},
		Content:   content,
	}
}

// Run invokes c with args as if typed after the prefix.
func (h *Harness) Run(ctx context.Context, c cmd.Command, args ...string) error {
	return c.Run(ctx, &cmd.Invocation{
		Name: c.Name(),
		Args: args,
		Data: Message("." + strings.TrimSpace(c.Name()+" "+strings.Join(args, " "))),
	})
}

// MP3Frames builds n silent MPEG-1 Layer III frames, 1152/44100 s each.
func MP3Frames(n int) []byte {
	frame := make([]byte, 417)
	copy(frame, []byte{0xFF, 0xFB, 0x90, 0x00})
	return bytes.Repeat(frame, n)
}
