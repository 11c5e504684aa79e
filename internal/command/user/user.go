// Package user holds the commands members use to pick their own theme song.
package user

import (
	"context"
	"fmt"
	"strings"

	"github.com/keshon/jingler/internal/command"
	"github.com/keshon/jingler/internal/jingle"
	"github.com/keshon/jingler/pkg/cmd"
)

const group = "user"

// Commands returns every command in the group.
func Commands(env *command.Env) []cmd.Command {
	return []cmd.Command{
		&GetThemeSongCommand{env: env},
		&SetThemeSongCommand{env: env},
	}
}

type GetThemeSongCommand struct{ env *command.Env }

func (c *GetThemeSongCommand) Name() string        { return "getthemesong" }
func (c *GetThemeSongCommand) Description() string { return "Show your theme song" }
func (c *GetThemeSongCommand) Group() string       { return group }

func (c *GetThemeSongCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	m, err := command.MessageFrom(inv)
	if err != nil {
		return err
	}
	env := c.env

	u, err := env.Settings.User(ctx, m.Author.ID)
	if err != nil {
		return err
	}
	j, ok := env.Catalog.Get(u.ThemeSongID)
	if !ok {
		_, err := env.Reply(ctx, m, "%s You have no theme song, pick one with `%ssetthemesong`.", command.EmojiMailbox, env.Prefix)
		return err
	}
	_, err = env.Reply(ctx, m, "%s Your theme song is %s, code `%s`.", command.EmojiMail, j.Describe(), j.ID)
	return err
}

type SetThemeSongCommand struct{ env *command.Env }

func (c *SetThemeSongCommand) Name() string        { return "setthemesong" }
func (c *SetThemeSongCommand) Description() string { return "Pick the jingle that plays when you join" }
func (c *SetThemeSongCommand) Group() string       { return group }
func (c *SetThemeSongCommand) Usage() string       { return "[code|none]" }

func (c *SetThemeSongCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	m, err := command.MessageFrom(inv)
	if err != nil {
		return err
	}
	env := c.env
	arg := inv.Arg(0)

	if clears(arg) {
		if err := env.Settings.SetThemeSong(ctx, m.Author.ID, ""); err != nil {
			return err
		}
		_, err := env.Reply(ctx, m, "%s Your theme song has been removed.", command.EmojiMailbox)
		return err
	}

	j, ok, err := c.choose(ctx, m, arg)
	if !ok || err != nil {
		return err
	}
	if err := env.Settings.SetThemeSong(ctx, m.Author.ID, j.ID); err != nil {
		return err
	}
	_, err = env.Reply(ctx, m, "%s Your theme song is now %s.", command.EmojiMail, j.Describe())
	return err
}

func (c *SetThemeSongCommand) choose(ctx context.Context, m *command.Message, code string) (jingle.Jingle, bool, error) {
	if code != "" {
		return c.env.ResolveCode(ctx, m, code)
	}
	header := fmt.Sprintf("%s Reply with the code of your theme song:\n", command.EmojiDividers)
	footer := fmt.Sprintf("\nUse `%s%s none` to remove it.", c.env.Prefix, c.Name())
	return c.env.PickJingle(ctx, m, header, footer)
}

func clears(arg string) bool {
	switch strings.ToLower(strings.TrimSpace(arg)) {
	case "none", "disable", "off", "remove":
		return true
	}
	return false
}
