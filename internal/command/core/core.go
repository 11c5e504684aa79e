// Package core holds the bot's housekeeping commands.
package core

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/keshon/jingler/internal/command"
	"github.com/keshon/jingler/pkg/cmd"
)

const group = "core"

// Commands returns every command in the group.
func Commands(env *command.Env) []cmd.Command {
	return []cmd.Command{
		&HelpCommand{env: env},
		&PingCommand{env: env},
		&HistoryCommand{env: env},
	}
}

type HelpCommand struct{ env *command.Env }

func (c *HelpCommand) Name() string        { return "help" }
func (c *HelpCommand) Description() string { return "List the available commands" }
func (c *HelpCommand) Group() string       { return group }

func (c *HelpCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	m, err := command.MessageFrom(inv)
	if err != nil {
		return err
	}
	header := fmt.Sprintf("%s Available commands:\n", command.EmojiInfo)
	lines := HelpLines(c.env.Registry, c.env.Prefix)
	if m.GuildID == "" {
		return c.env.SendPages(ctx, m, header, "", lines, 25)
	}
	_, err = c.env.PaginateItems(ctx, m, header, "", lines, 25)
	return err
}

// HelpLines lists commands grouped by their help category, groups and
// commands in name order.
func HelpLines(registry *cmd.Registry, prefix string) []string {
	groups := make(map[string][]cmd.Command)
	for _, c := range registry.All() {
		g := cmd.GroupOf(c)
		groups[g] = append(groups[g], c)
	}

	names := make([]string, 0, len(groups))
	for g := range groups {
		names = append(names, g)
	}
	slices.Sort(names)

	var lines []string
	for _, g := range names {
		lines = append(lines, "# "+strings.ToUpper(g[:1])+g[1:])
		for _, c := range groups[g] {
			call := prefix + c.Name()
			if usage := cmd.UsageOf(c); usage != "" {
				call += " " + usage
			}
			lines = append(lines, fmt.Sprintf("%s - %s", call, c.Description()))
		}
	}
	return lines
}

type PingCommand struct{ env *command.Env }

func (c *PingCommand) Name() string        { return "ping" }
func (c *PingCommand) Description() string { return "Check the bot is alive" }
func (c *PingCommand) Group() string       { return group }

func (c *PingCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	m, err := command.MessageFrom(inv)
	if err != nil {
		return err
	}
	_, err = c.env.Reply(ctx, m, "%s I'm alive!", command.EmojiNote)
	return err
}

type HistoryCommand struct{ env *command.Env }

func (c *HistoryCommand) Name() string        { return "history" }
func (c *HistoryCommand) Description() string { return "Show the server's recent commands" }
func (c *HistoryCommand) Group() string       { return group }

func (c *HistoryCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	m, err := command.MessageFrom(inv)
	if err != nil {
		return err
	}
	env := c.env

	entries, err := env.History.CommandHistory(ctx, m.GuildID)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		_, err := env.Reply(ctx, m, "%s No commands recorded yet.", command.EmojiInfo)
		return err
	}

	lines := make([]string, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		line := fmt.Sprintf("%s %s: %s%s", e.Datetime.UTC().Format("2006-01-02 15:04"), e.Username, env.Prefix, e.Command)
		if e.Args != "" {
			line += " " + e.Args
		}
		if e.Failed {
			line += " (failed)"
		}
		lines = append(lines, line)
	}

	header := fmt.Sprintf("%s Recent commands:\n", command.EmojiDetective)
	_, err = env.PaginateItems(ctx, m, header, "", lines, 10)
	return err
}
