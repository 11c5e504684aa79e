// Package jingles holds the commands that browse, play and add jingles.
package jingles

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/keshon/jingler/internal/command"
	"github.com/keshon/jingler/internal/jingle"
	"github.com/keshon/jingler/internal/player"
	"github.com/keshon/jingler/internal/settings"
	"github.com/keshon/jingler/pkg/cmd"
)

const group = "jingles"

// Commands returns every command in the group.
func Commands(env *command.Env) []cmd.Command {
	return []cmd.Command{
		&PlayRandomCommand{env: env},
		&ListCommand{env: env},
		&ReloadCommand{env: env},
		&AddCommand{env: env},
	}
}

type PlayRandomCommand struct{ env *command.Env }

func (c *PlayRandomCommand) Name() string        { return "playrandom" }
func (c *PlayRandomCommand) Description() string { return "Play a random jingle in your voice channel" }
func (c *PlayRandomCommand) Group() string       { return group }

func (c *PlayRandomCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	m, err := command.MessageFrom(inv)
	if err != nil {
		return err
	}
	env := c.env

	channelID, ok := env.Voice.UserVoiceChannel(m.GuildID, m.Author.ID)
	if !ok {
		_, err := env.Reply(ctx, m, "%s You're currently not in a voice channel.", command.EmojiWarning)
		return err
	}

	random := settings.ModeRandom
	j, err := env.Player.GuildJingle(ctx, m.GuildID, &random)
	if errors.Is(err, player.ErrEmptyCatalog) {
		_, err := env.Reply(ctx, m, "%s There are no jingles to play.", command.EmojiWarning)
		return err
	}
	if err != nil {
		return err
	}

	played, err := env.Player.Play(ctx, m.GuildID, channelID, *j, true)
	if err != nil && !errors.Is(err, player.ErrAlreadyPlaying) {
		return err
	}
	if played {
		return env.React(ctx, m, command.EmojiChecked)
	}
	return env.React(ctx, m, command.EmojiX)
}

type ListCommand struct{ env *command.Env }

func (c *ListCommand) Name() string        { return "listjingles" }
func (c *ListCommand) Description() string { return "List the available jingles" }
func (c *ListCommand) Group() string       { return group }

func (c *ListCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	m, err := command.MessageFrom(inv)
	if err != nil {
		return err
	}
	header := fmt.Sprintf("%s There are `%d` available:\n", command.EmojiDividers, c.env.Catalog.Len())
	_, err = c.env.Paginate(ctx, m, header, "", 15)
	return err
}

type ReloadCommand struct{ env *command.Env }

func (c *ReloadCommand) Name() string        { return "reloadjingles" }
func (c *ReloadCommand) Description() string { return "Rescan the jingles folder" }
func (c *ReloadCommand) Group() string       { return group }

func (c *ReloadCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	m, err := command.MessageFrom(inv)
	if err != nil {
		return err
	}
	n, err := c.env.Catalog.Reload()
	if err != nil {
		return err
	}
	_, err = c.env.Reply(ctx, m, "%s Jingles reloaded, **%d** available.", command.EmojiChecked, n)
	return err
}

type AddCommand struct{ env *command.Env }

func (c *AddCommand) Name() string        { return "addjingle" }
func (c *AddCommand) Description() string { return "Upload a new jingle" }
func (c *AddCommand) Group() string       { return group }

func (c *AddCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	m, err := command.MessageFrom(inv)
	if err != nil {
		return err
	}
	env := c.env
	limits := env.Limits

	if _, err := env.Reply(ctx, m, "%s You're about to add a new jingle. What title would you like to give it (max. %d characters)?",
		command.EmojiScroll, limits.MaxTitleLength); err != nil {
		return err
	}

	fromAuthor := command.FromAuthorIn(m.Author.ID, m.ChannelID)
	titleMsg, ok, err := env.Await(ctx, m, env.ReplyTimeout, func(r *command.Message) bool {
		return fromAuthor(r) && strings.TrimSpace(r.Content) != ""
	})
	if !ok || err != nil {
		return err
	}
	title := jingle.TruncateTitle(titleMsg.Content, limits.MaxTitleLength)

	if _, err := env.Reply(ctx, m, "%s Cool, the title will be `%s`! Now upload an `.mp3` file smaller than `%d KB` and shorter than `%s`.",
		command.EmojiFolder, title, limits.MaxFileSize/1024, command.HumanDuration(limits.MaxLength)); err != nil {
		return err
	}

	uploadMsg, ok, err := env.Await(ctx, m, env.UploadTimeout, func(r *command.Message) bool {
		return fromAuthor(r) && len(r.Attachments) == 1 &&
			strings.EqualFold(filepath.Ext(r.Attachments[0].Filename), ".mp3")
	})
	if !ok || err != nil {
		return err
	}
	att := uploadMsg.Attachments[0]

	if att.Size >= limits.MaxFileSize {
		_, err := env.Reply(ctx, m, "%s File is too big.", command.EmojiX)
		return err
	}

	savingID, err := env.Reply(ctx, m, "%s Saving...", command.EmojiYarn)
	if err != nil {
		return err
	}

	body, err := env.Download.Download(ctx, att.URL)
	if err != nil {
		return fmt.Errorf("download attachment: %w", err)
	}
	defer body.Close()

	j, err := env.Catalog.Add(jingle.Upload{
		Filename: att.Filename,
		Title:    title,
		Size:     att.Size,
		Body:     body,
	}, limits)
	if msg, known := rejection(err, limits); known {
		return env.Chat.Edit(ctx, m.ChannelID, savingID, msg)
	}
	if err != nil {
		return err
	}

	env.Log.Info().Str("id", j.ID).Str("file", j.Filename()).Str("user", m.Author.ID).Msg("Jingle added")

	return env.Chat.Edit(ctx, m.ChannelID, savingID, fmt.Sprintf("%s Jingle saved and available with code `%s`.\n`%d` jingles now available.",
		command.EmojiYarn, j.ID, env.Catalog.Len()))
}

func rejection(err error, limits jingle.Limits) (string, bool) {
	switch {
	case err == nil:
		return "", false
	case errors.Is(err, jingle.ErrTooLarge):
		return fmt.Sprintf("%s File is too big.", command.EmojiX), true
	case errors.Is(err, jingle.ErrTooLong):
		return fmt.Sprintf("%s File is too long, keep it under `%s` and try again.", command.EmojiWarning, command.HumanDuration(limits.MaxLength)), true
	case errors.Is(err, jingle.ErrFileExists):
		return fmt.Sprintf("%s A file with this name already exists, please rename it and try again.", command.EmojiWarning), true
	case errors.Is(err, jingle.ErrNotMP3):
		return fmt.Sprintf("%s That doesn't look like an mp3 file.", command.EmojiWarning), true
	case errors.Is(err, jingle.ErrEmptyTitle):
		return fmt.Sprintf("%s The title can't be empty.", command.EmojiWarning), true
	}
	return "", false
}
