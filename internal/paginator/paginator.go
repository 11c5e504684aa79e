// Package paginator renders a list of text items as a navigable, size-bounded
// multi-page chat message driven by reactions.
//
// A Session owns one message. It packs items into pages, sends page 0, then
// loops: reset the navigation reactions, wait for a qualifying reaction or the
// timeout, move the page index, edit the message. The loop runs in its own
// goroutine; Done reports when it has finished.
package paginator

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	DefaultSeparator    = "\n"
	DefaultFenceOpen    = "```\n"
	DefaultFenceClose   = "```"
	DefaultMessageLimit = 1990
	DefaultTimeout      = 240 * time.Second
)

var (
	ErrInvalidOptions = errors.New("invalid pagination options")
	ErrFinished       = errors.New("pagination already finished")
)

// Glyphs are the three navigation reactions.
type Glyphs struct {
	Previous string
	Next     string
	Stop     string
}

// DefaultGlyphs are ◀️ ▶️ ⏹️.
var DefaultGlyphs = Glyphs{
	Previous: "◀️",
	Next:     "▶️",
	Stop:     "⏹️",
}

func (g Glyphs) contains(emoji string) bool {
	return sameGlyph(emoji, g.Previous) || sameGlyph(emoji, g.Next) || sameGlyph(emoji, g.Stop)
}

// sameGlyph compares emoji ignoring the U+FE0F variation selector, which the
// gateway does not always echo back.
func sameGlyph(a, b string) bool {
	return strings.ReplaceAll(a, "\uFE0F", "") == strings.ReplaceAll(b, "\uFE0F", "")
}

// Reaction is a reaction-add event as seen by the paginator.
type Reaction struct {
	ChannelID string
	MessageID string
	UserID    string
	Emoji     string
}

// ByUser accepts reactions added by userID only.
func ByUser(userID string) func(Reaction) bool {
	return func(r Reaction) bool {
		return r.UserID == userID
	}
}

// Surface is the chat API the paginator drives.
type Surface interface {
	Send(ctx context.Context, channelID, content string) (messageID string, err error)
	Edit(ctx context.Context, channelID, messageID, content string) error
	ClearReactions(ctx context.Context, channelID, messageID string) error
	AddReaction(ctx context.Context, channelID, messageID, emoji string) error
	Delete(ctx context.Context, channelID, messageID string) error
}

// Waiter blocks until a reaction accepted by match arrives or ctx is done.
type Waiter interface {
	WaitForReaction(ctx context.Context, match func(Reaction) bool) (Reaction, error)
}

// Options configure a Session. Zero values fall back to the package defaults,
// except ChannelID and MaxPerPage which are required. An empty Separator means
// DefaultSeparator; fences left empty mean the default fences unless NoFences
// is set.
type Options struct {
	ChannelID string

	Header     string
	Items      []string
	MaxPerPage int
	Footer     string

	Separator    string
	FenceOpen    string
	FenceClose   string
	NoFences     bool
	MessageLimit int

	// Filter selects whose reactions count, e.g. ByUser(authorID).
	Filter func(Reaction) bool
	Glyphs Glyphs

	// Timeout is per wait, not for the whole session.
	Timeout        time.Duration
	TimeoutMessage string

	// Deferred sessions are not sent until Start is called.
	Deferred bool

	Logger *zerolog.Logger
}

func (o Options) withDefaults() Options {
	if o.Separator == "" {
		o.Separator = DefaultSeparator
	}
	if o.NoFences {
		o.FenceOpen, o.FenceClose = "", ""
	} else if o.FenceOpen == "" && o.FenceClose == "" {
		o.FenceOpen = DefaultFenceOpen
		o.FenceClose = DefaultFenceClose
	}
	if o.MessageLimit <= 0 {
		o.MessageLimit = DefaultMessageLimit
	}
	if o.Glyphs == (Glyphs{}) {
		o.Glyphs = DefaultGlyphs
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return o
}

func (o Options) validate() error {
	if o.ChannelID == "" {
		return errors.Join(ErrInvalidOptions, errors.New("channel is required"))
	}
	if o.MaxPerPage < 1 {
		return errors.Join(ErrInvalidOptions, errors.New("max items per page must be positive"))
	}
	return nil
}
