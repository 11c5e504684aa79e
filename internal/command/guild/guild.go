// Package guild holds the commands that configure how a server greets joiners.
package guild

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/keshon/jingler/internal/command"
	"github.com/keshon/jingler/internal/jingle"
	"github.com/keshon/jingler/internal/settings"
	"github.com/keshon/jingler/pkg/cmd"
)

const group = "server"

// Commands returns every command in the group.
func Commands(env *command.Env) []cmd.Command {
	return []cmd.Command{
		&GetModeCommand{env: env},
		&SetModeCommand{env: env},
		&GetDefaultCommand{env: env},
		&SetDefaultCommand{env: env},
		&ThemeSongsCommand{env: env},
	}
}

type GetModeCommand struct{ env *command.Env }

func (c *GetModeCommand) Name() string        { return "getmode" }
func (c *GetModeCommand) Description() string { return "Show which jingle plays when someone joins" }
func (c *GetModeCommand) Group() string       { return group }

func (c *GetModeCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	m, err := command.MessageFrom(inv)
	if err != nil {
		return err
	}
	env := c.env

	g, err := env.Settings.Guild(ctx, m.GuildID)
	if err != nil {
		return err
	}

	var text string
	switch g.Mode {
	case settings.ModeDisabled:
		text = fmt.Sprintf("%s Jingles are disabled on this server.", command.EmojiSlider)
	case settings.ModeRandom:
		text = fmt.Sprintf("%s A random jingle plays whenever someone joins a voice channel.", command.EmojiDie)
	case settings.ModeSingle:
		if j, ok := env.Catalog.Get(g.DefaultJingleID); ok {
			text = fmt.Sprintf("%s The default jingle %s plays whenever someone joins a voice channel.", command.EmojiNote, j.Describe())
		} else {
			text = fmt.Sprintf("%s The default jingle is gone, set a new one with `%ssetdefault`.", command.EmojiWarning, env.Prefix)
		}
	}
	if g.ThemeSongs {
		text += "\nTheme songs are enabled and take precedence."
	}

	_, err = env.Reply(ctx, m, "%s", text)
	return err
}

type SetModeCommand struct{ env *command.Env }

func (c *SetModeCommand) Name() string        { return "setmode" }
func (c *SetModeCommand) Description() string { return "Choose which jingle plays when someone joins" }
func (c *SetModeCommand) Group() string       { return group }
func (c *SetModeCommand) Usage() string       { return "[disabled|single|random]" }

func (c *SetModeCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	m, err := command.MessageFrom(inv)
	if err != nil {
		return err
	}
	env := c.env

	mode, err := settings.ParseMode(inv.Arg(0))
	if err != nil {
		_, err := env.Reply(ctx, m, "%s Usage: `%s%s %s`", command.EmojiWarning, env.Prefix, c.Name(), c.Usage())
		return err
	}

	err = env.Settings.SetMode(ctx, m.GuildID, mode)
	if errors.Is(err, settings.ErrNoDefaultJingle) {
		_, err := env.Reply(ctx, m, "%s Set a default jingle first with `%ssetdefault`.", command.EmojiWarning, env.Prefix)
		return err
	}
	if err != nil {
		return err
	}

	_, err = env.Reply(ctx, m, "%s Mode set to **%s**.", command.EmojiChecked, mode)
	return err
}

type GetDefaultCommand struct{ env *command.Env }

func (c *GetDefaultCommand) Name() string        { return "getdefault" }
func (c *GetDefaultCommand) Description() string { return "Show the server's default jingle" }
func (c *GetDefaultCommand) Group() string       { return group }

func (c *GetDefaultCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	m, err := command.MessageFrom(inv)
	if err != nil {
		return err
	}
	env := c.env

	g, err := env.Settings.Guild(ctx, m.GuildID)
	if err != nil {
		return err
	}
	j, ok := env.Catalog.Get(g.DefaultJingleID)
	if !ok {
		_, err := env.Reply(ctx, m, "%s No default jingle is set.", command.EmojiInfo)
		return err
	}
	_, err = env.Reply(ctx, m, "%s The default jingle is %s, code `%s`.", command.EmojiNote, j.Describe(), j.ID)
	return err
}

type SetDefaultCommand struct{ env *command.Env }

func (c *SetDefaultCommand) Name() string        { return "setdefault" }
func (c *SetDefaultCommand) Description() string { return "Choose the server's default jingle" }
func (c *SetDefaultCommand) Group() string       { return group }
func (c *SetDefaultCommand) Usage() string       { return "[code]" }

func (c *SetDefaultCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	m, err := command.MessageFrom(inv)
	if err != nil {
		return err
	}
	env := c.env

	j, ok, err := c.choose(ctx, m, inv.Arg(0))
	if !ok || err != nil {
		return err
	}

	if err := env.Settings.SetDefault(ctx, m.GuildID, j.ID); err != nil {
		return err
	}
	_, err = env.Reply(ctx, m, "%s Default jingle set to %s.", command.EmojiChecked, j.Describe())
	return err
}

func (c *SetDefaultCommand) choose(ctx context.Context, m *command.Message, code string) (jingle.Jingle, bool, error) {
	if code != "" {
		return c.env.ResolveCode(ctx, m, code)
	}
	header := fmt.Sprintf("%s Reply with the code of the jingle to use as default:\n", command.EmojiDividers)
	return c.env.PickJingle(ctx, m, header, "")
}

type ThemeSongsCommand struct{ env *command.Env }

func (c *ThemeSongsCommand) Name() string        { return "themesongs" }
func (c *ThemeSongsCommand) Description() string { return "Let members join with their own theme song" }
func (c *ThemeSongsCommand) Group() string       { return group }
func (c *ThemeSongsCommand) Usage() string       { return "[on|off]" }

func (c *ThemeSongsCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	m, err := command.MessageFrom(inv)
	if err != nil {
		return err
	}
	env := c.env

	arg := inv.Arg(0)
	if arg == "" {
		g, err := env.Settings.Guild(ctx, m.GuildID)
		if err != nil {
			return err
		}
		_, err = env.Reply(ctx, m, "%s Theme songs are **%s** on this server.", command.EmojiInfo, onOff(g.ThemeSongs))
		return err
	}

	enabled, ok := ParseSwitch(arg)
	if !ok {
		_, err := env.Reply(ctx, m, "%s Usage: `%s%s %s`", command.EmojiWarning, env.Prefix, c.Name(), c.Usage())
		return err
	}
	if err := env.Settings.SetThemeSongs(ctx, m.GuildID, enabled); err != nil {
		return err
	}
	_, err = env.Reply(ctx, m, "%s Theme songs are now **%s**.", command.EmojiChecked, onOff(enabled))
	return err
}

// ParseSwitch reads on/off style arguments.
func ParseSwitch(s string) (enabled, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "enable", "enabled", "true", "yes":
		return true, true
	case "off", "disable", "disabled", "false", "no":
		return false, true
	}
	return false, false
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
