// Package middleware holds the cmd.Middleware wrappers every chat command
// runs through.
package middleware

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/keshon/jingler/internal/command"
	st "github.com/keshon/jingler/internal/storagetypes"
	"github.com/keshon/jingler/pkg/cmd"
)

// WithGuildOnly skips commands sent outside a guild, e.g. in DMs.
func WithGuildOnly() cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			m, err := command.MessageFrom(inv)
			if err != nil {
				return err
			}
			if m.GuildID == "" {
				return nil
			}
			return c.Run(ctx, inv)
		})
	}
}

// WithAllowList ignores commands from guilds not in ids. An empty list
// allows every guild. Direct messages are left to WithGuildOnly.
func WithAllowList(ids []string) cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		if len(ids) == 0 {
			return c
		}
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			m, err := command.MessageFrom(inv)
			if err != nil {
				return err
			}
			if m.GuildID != "" && !slices.Contains(ids, m.GuildID) {
				return nil
			}
			return c.Run(ctx, inv)
		})
	}
}

// WithDeveloperOnly runs c only for developerID. Others are told no.
func WithDeveloperOnly(env *command.Env, developerID string) cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			m, err := command.MessageFrom(inv)
			if err != nil {
				return err
			}
			if developerID == "" || m.Author.ID != developerID {
				_, err := env.Reply(ctx, m, "%s This command is for the bot developer only.", command.EmojiInvader)
				return err
			}
			return c.Run(ctx, inv)
		})
	}
}

// WithCommandLogger logs each run and records it in the guild's history.
func WithCommandLogger(log zerolog.Logger, history command.History) cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			started := time.Now()
			err := c.Run(ctx, inv)

			m, mErr := command.MessageFrom(inv)
			if mErr != nil {
				return err
			}

			ev := log.Info()
			if err != nil {
				ev = log.Warn().Err(err)
			}
			ev.Str("command", c.Name()).
				Strs("args", inv.Args).
				Str("guild", m.GuildID).
				Str("user", m.Author.ID).
				Dur("took", time.Since(started)).
				Msg("Command executed")

			if history != nil && m.GuildID != "" {
				entry := st.CommandHistory{
					GuildID:   m.GuildID,
					ChannelID: m.ChannelID,
					UserID:    m.Author.ID,
					Username:  m.Author.Username,
					Command:   c.Name(),
					Args:      strings.Join(inv.Args, " "),
					Failed:    err != nil,
					Datetime:  started.UTC(),
				}
				if hErr := history.AppendCommandHistory(context.WithoutCancel(ctx), m.GuildID, entry); hErr != nil {
					log.Warn().Err(hErr).Str("command", c.Name()).Msg("Failed to record command")
				}
			}
			return err
		})
	}
}
