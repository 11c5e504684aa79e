package discord

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/keshon/jingler/internal/command"
	"github.com/keshon/jingler/internal/paginator"
	"github.com/keshon/jingler/internal/waiter"
	"github.com/keshon/jingler/pkg/retrylimit"
)

// Gateway is what commands see of Discord: the chat surface, the reaction and
// message waits, member voice lookups and attachment downloads.
type Gateway struct {
	session *discordgo.Session
	limiter *retrylimit.AdaptiveLimiter
	retry   retrylimit.Config
	log     zerolog.Logger

	reactions waiter.Dispatcher[paginator.Reaction]
	messages  waiter.Dispatcher[*command.Message]
}

func NewGateway(s *discordgo.Session, log zerolog.Logger) *Gateway {
	g := &Gateway{
		session: s,
		// reaction endpoints allow roughly four calls a second per channel
		limiter: retrylimit.NewAdaptiveLimiter(4, 1, 4, 1, 0.5),
		retry:   retrylimit.DefaultConfig(),
		log:     log.With().Str("component", "gateway").Logger(),
	}
	g.retry.StatusOf = statusOf
	g.retry.OnRetry = func(attempt int, err error) {
		g.log.Warn().Err(err).Int("attempt", attempt).Msg("Retrying Discord request")
	}
	return g
}

func (g *Gateway) Send(ctx context.Context, channelID, content string) (string, error) {
	m, err := g.session.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx))
	if err != nil {
		return "", err
	}
	return m.ID, nil
}

func (g *Gateway) Edit(ctx context.Context, channelID, messageID, content string) error {
	_, err := g.session.ChannelMessageEdit(channelID, messageID, content, discordgo.WithContext(ctx))
	return err
}

func (g *Gateway) ClearReactions(ctx context.Context, channelID, messageID string) error {
	return retrylimit.Do(ctx, g.limiter, g.retry, func() error {
		return g.session.MessageReactionsRemoveAll(channelID, messageID, discordgo.WithContext(ctx))
	})
}

func (g *Gateway) AddReaction(ctx context.Context, channelID, messageID, emoji string) error {
	return retrylimit.Do(ctx, g.limiter, g.retry, func() error {
		return g.session.MessageReactionAdd(channelID, messageID, emoji, discordgo.WithContext(ctx))
	})
}

func (g *Gateway) Delete(ctx context.Context, channelID, messageID string) error {
	return g.session.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx))
}

func (g *Gateway) WaitForReaction(ctx context.Context, match func(paginator.Reaction) bool) (paginator.Reaction, error) {
	return g.reactions.Wait(ctx, match)
}

func (g *Gateway) WaitForMessage(ctx context.Context, match func(*command.Message) bool) (*command.Message, error) {
	return g.messages.Wait(ctx, match)
}

// UserVoiceChannel looks the member up in the session state cache.
func (g *Gateway) UserVoiceChannel(guildID, userID string) (string, bool) {
	vs, err := g.session.State.VoiceState(guildID, userID)
	if err != nil || vs.ChannelID == "" {
		return "", false
	}
	return vs.ChannelID, true
}

// Download fetches an attachment from the CDN with the session's HTTP client.
func (g *Gateway) Download(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	client := g.session.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("download %s: %s", url, resp.Status)
	}
	return resp.Body, nil
}
