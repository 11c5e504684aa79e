package command

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/keshon/jingler/internal/jingle"
	"github.com/keshon/jingler/internal/paginator"
	"github.com/keshon/jingler/internal/player"
	"github.com/keshon/jingler/internal/settings"
	st "github.com/keshon/jingler/internal/storagetypes"
	"github.com/keshon/jingler/pkg/cmd"
)

// VoiceLocator finds the voice channel a member is sitting in.
type VoiceLocator interface {
	UserVoiceChannel(guildID, userID string) (channelID string, ok bool)
}

// Downloader fetches an attachment body.
type Downloader interface {
	Download(ctx context.Context, url string) (io.ReadCloser, error)
}

// History persists and lists recent command invocations per guild.
type History interface {
	AppendCommandHistory(ctx context.Context, guildID string, entry st.CommandHistory) error
	CommandHistory(ctx context.Context, guildID string) ([]st.CommandHistory, error)
}

// Env is what commands run against. It is built once by the composition root.
type Env struct {
	Prefix string

	Chat      paginator.Surface
	Reactions paginator.Waiter
	Messages  MessageWaiter
	Voice     VoiceLocator
	Download  Downloader

	Catalog  *jingle.Catalog
	Settings *settings.Service
	Player   *player.Orchestrator
	History  History
	Registry *cmd.Registry

	Limits            jingle.Limits
	MessageLimit      int
	PaginationTimeout time.Duration
	ReplyTimeout      time.Duration
	UploadTimeout     time.Duration

	Log zerolog.Logger
}

// Paginate starts a jingle listing owned by the invoking author.
func (e *Env) Paginate(ctx context.Context, m *Message, header, footer string, perPage int) (*paginator.Session, error) {
	return e.PaginateItems(ctx, m, header, footer, e.Catalog.Lines(), perPage)
}

// PaginateItems starts a listing of arbitrary lines owned by the invoking
// author.
func (e *Env) PaginateItems(ctx context.Context, m *Message, header, footer string, items []string, perPage int) (*paginator.Session, error) {
	return paginator.New(ctx, e.Chat, e.Reactions, e.pageOptions(m, header, footer, items, perPage))
}

// SendPages posts every page as its own message. Direct messages get this
// instead of a reaction-driven listing.
func (e *Env) SendPages(ctx context.Context, m *Message, header, footer string, items []string, perPage int) error {
	opts := e.pageOptions(m, header, footer, items, perPage)
	for _, page := range paginator.Layout(opts) {
		if _, err := e.Chat.Send(ctx, m.ChannelID, paginator.Render(opts, page)); err != nil {
			return err
		}
	}
	return nil
}

func (e *Env) pageOptions(m *Message, header, footer string, items []string, perPage int) paginator.Options {
	return paginator.Options{
		ChannelID:    m.ChannelID,
		Header:       header,
		Items:        items,
		MaxPerPage:   perPage,
		Footer:       footer,
		FenceOpen:    "```md\n",
		FenceClose:   "```",
		MessageLimit: e.MessageLimit,
		Filter:       paginator.ByUser(m.Author.ID),
		Timeout:      e.PaginationTimeout,
		Logger:       &e.Log,
	}
}
