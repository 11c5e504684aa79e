// Package discord connects the bot to the Discord gateway: it turns chat
// messages into command runs, feeds reactions and replies to waiting
// commands, and greets members joining voice channels.
package discord

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/keshon/jingler/internal/command"
	"github.com/keshon/jingler/internal/paginator"
	"github.com/keshon/jingler/internal/player"
	"github.com/keshon/jingler/pkg/cmd"
	"github.com/keshon/jingler/pkg/jobmgr"
)

const Intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildVoiceStates |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsGuildMessageReactions |
	discordgo.IntentsDirectMessages |
	discordgo.IntentsMessageContent

type Options struct {
	Prefix string
	// AllowList limits the bot to these guilds. Empty allows all.
	AllowList []string
}

// Bot owns the gateway handlers.
type Bot struct {
	session  *discordgo.Session
	gateway  *Gateway
	chat     paginator.Surface
	registry *cmd.Registry
	player   *player.Orchestrator
	opts     Options
	log      zerolog.Logger
	jobs     *jobmgr.Manager

	ctx    context.Context
	cancel context.CancelFunc
}

func NewBot(s *discordgo.Session, gateway *Gateway, registry *cmd.Registry, orchestrator *player.Orchestrator, opts Options, log zerolog.Logger) *Bot {
	ctx, cancel := context.WithCancel(context.Background())
	b := &Bot{
		session:  s,
		gateway:  gateway,
		chat:     gateway,
		registry: registry,
		player:   orchestrator,
		opts:     opts,
		log:      log.With().Str("component", "discord").Logger(),
		ctx:      ctx,
		cancel:   cancel,
	}
	b.jobs = jobmgr.NewManager(ctx, b.reportJob)

	s.Identify.Intents = Intents
	s.AddHandler(b.onReady)
	s.AddHandler(b.onGuildCreate)
	s.AddHandler(b.onMessageCreate)
	s.AddHandler(b.onMessageReactionAdd)
	s.AddHandler(b.onVoiceStateUpdate)
	return b
}

// Open connects to the gateway.
func (b *Bot) Open() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open Discord session: %w", err)
	}
	return nil
}

// Close stops join playbacks, giving them a moment to leave voice, then
// cancels running commands and disconnects.
func (b *Bot) Close() error {
	b.jobs.StopAll()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := b.jobs.Wait(ctx); err != nil {
		b.log.Warn().Strs("jobs", b.jobs.List()).Msg("Playbacks still running at shutdown")
	}
	b.cancel()
	return b.session.Close()
}

func (b *Bot) allowed(guildID string) bool {
	return len(b.opts.AllowList) == 0 || slices.Contains(b.opts.AllowList, guildID)
}

func (b *Bot) isSelf(s *discordgo.Session, userID string) bool {
	return s.State != nil && s.State.User != nil && s.State.User.ID == userID
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	for _, g := range r.Guilds {
		b.leaveIfNotAllowed(s, g.ID, g.Name)
	}
	b.log.Info().Str("user", r.User.Username).Int("guilds", len(r.Guilds)).Msg("Discord bot is running")
}

func (b *Bot) onGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	b.log.Info().Str("guild", g.ID).Str("name", g.Name).Msg("Guild available")
	b.leaveIfNotAllowed(s, g.ID, g.Name)
}

func (b *Bot) leaveIfNotAllowed(s *discordgo.Session, guildID, name string) {
	if b.allowed(guildID) {
		return
	}
	b.log.Info().Str("guild", guildID).Str("name", name).Msg("Leaving guild outside the allow-list")
	if err := s.GuildLeave(guildID, discordgo.WithContext(b.ctx)); err != nil {
		b.log.Error().Err(err).Str("guild", guildID).Msg("Failed to leave guild")
	}
}

func (b *Bot) onMessageCreate(s *discordgo.Session, e *discordgo.MessageCreate) {
	if e.Message == nil || e.Author == nil || e.Author.Bot || b.isSelf(s, e.Author.ID) {
		return
	}
	m := MessageFrom(e.Message)

	// a reply to a waiting prompt is not also a command
	if b.gateway.messages.Dispatch(m) > 0 {
		return
	}

	handled, err := command.Dispatch(b.ctx, b.registry, b.opts.Prefix, m)
	if err == nil || !handled {
		return
	}
	b.log.Error().Err(err).Str("guild", m.GuildID).Str("user", m.Author.ID).Msg("Error running command")
	if _, sendErr := b.chat.Send(b.ctx, m.ChannelID, fmt.Sprintf("%s Error running command: %v", command.EmojiWarning, err)); sendErr != nil {
		b.log.Warn().Err(sendErr).Msg("Failed to report command error")
	}
}

func (b *Bot) onMessageReactionAdd(s *discordgo.Session, e *discordgo.MessageReactionAdd) {
	if e.MessageReaction == nil || b.isSelf(s, e.UserID) {
		return
	}
	b.gateway.reactions.Dispatch(ReactionFrom(e.MessageReaction))
}

func (b *Bot) onVoiceStateUpdate(s *discordgo.Session, e *discordgo.VoiceStateUpdate) {
	if e.VoiceState == nil || b.isSelf(s, e.UserID) || !b.allowed(e.GuildID) {
		return
	}
	if e.Member != nil && e.Member.User != nil && e.Member.User.Bot {
		return
	}

	afk := ""
	if g, err := s.State.Guild(e.GuildID); err == nil {
		afk = g.AfkChannelID
	}
	channelID, ok := JoinTarget(e.BeforeUpdate, e.VoiceState, afk)
	if !ok {
		return
	}

	guildID, userID := e.GuildID, e.UserID
	err := b.jobs.StartAsync("join:"+guildID, func(ctx context.Context) error {
		return b.player.HandleJoin(ctx, guildID, userID, channelID)
	})
	if err != nil {
		b.log.Debug().Err(err).Str("guild", guildID).Str("user", userID).Msg("Join not greeted")
	}
}

func (b *Bot) reportJob(e jobmgr.Event) {
	switch {
	case e.Err == nil:
		b.log.Debug().Str("job", e.Name).Str("state", e.State).Msg("Join job")
	case errors.Is(e.Err, player.ErrAlreadyPlaying), errors.Is(e.Err, context.Canceled):
	case errors.Is(e.Err, player.ErrNoDefaultJingle):
		b.log.Warn().Str("job", e.Name).Msg("Single mode without a default jingle, nothing played")
	default:
		b.log.Error().Err(e.Err).Str("job", e.Name).Msg("Failed to play join jingle")
	}
}
