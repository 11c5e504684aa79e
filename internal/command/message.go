// Package command holds what chat commands share: the message they were
// invoked from, the dependencies they run against, and the dispatcher that
// turns prefixed chat lines into command runs.
package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/keshon/jingler/pkg/cmd"
)

var ErrNoMessage = errors.New("invocation carries no chat message")

type Author struct {
	ID       string
	Username string
	Bot      bool
}

type Attachment struct {
	Filename string
	URL      string
	Size     int64
}

// Message is a chat message as commands see it.
type Message struct {
	ID          string
	GuildID     string
	ChannelID   string
	Author      Author
	Content     string
	Attachments []Attachment
}

// MessageFrom extracts the chat message from an invocation.
func MessageFrom(inv *cmd.Invocation) (*Message, error) {
	m, ok := inv.Data.(*Message)
	if !ok || m == nil {
		return nil, ErrNoMessage
	}
	return m, nil
}

// MessageWaiter blocks until a message accepted by match arrives or ctx is
// done.
type MessageWaiter interface {
	WaitForMessage(ctx context.Context, match func(*Message) bool) (*Message, error)
}

// FromAuthorIn accepts messages by userID in channelID.
func FromAuthorIn(userID, channelID string) func(*Message) bool {
	return func(m *Message) bool {
		return m.Author.ID == userID && m.ChannelID == channelID
	}
}

// Reply sends content to the message's channel.
func (e *Env) Reply(ctx context.Context, m *Message, format string, args ...any) (string, error) {
	content := format
	if len(args) > 0 {
		content = fmt.Sprintf(format, args...)
	}
	id, err := e.Chat.Send(ctx, m.ChannelID, content)
	if err != nil {
		return "", fmt.Errorf("reply: %w", err)
	}
	return id, nil
}

// React adds emoji to the invoking message.
func (e *Env) React(ctx context.Context, m *Message, emoji string) error {
	if err := e.Chat.AddReaction(ctx, m.ChannelID, m.ID, emoji); err != nil {
		return fmt.Errorf("react: %w", err)
	}
	return nil
}
