// Package cmd provides a transport-agnostic command core: a command is something
// with a name, description, and Run(ctx, invocation). How it is triggered
// (chat prefix, CLI) is defined by adapters that fill the Invocation.
package cmd

import "context"

// Invocation carries what a runner parsed plus an opaque adapter payload.
type Invocation struct {
	Name string
	Args []string
	Data any
}

// Arg returns the i-th argument or "".
func (inv *Invocation) Arg(i int) string {
	if i < 0 || i >= len(inv.Args) {
		return ""
	}
	return inv.Args[i]
}

// Command is the universal contract: identity plus execution.
type Command interface {
	Name() string
	Description() string
	Run(ctx context.Context, inv *Invocation) error
}

// Usage is implemented by commands that take arguments.
type Usage interface {
	Usage() string
}

// Grouped is implemented by commands listed under a help category.
type Grouped interface {
	Group() string
}

// GroupOf returns the command's group, or "general".
func GroupOf(c Command) string {
	if g, ok := Root(c).(Grouped); ok {
		return g.Group()
	}
	return "general"
}

// UsageOf returns the command's argument synopsis, or "".
func UsageOf(c Command) string {
	if u, ok := Root(c).(Usage); ok {
		return u.Usage()
	}
	return ""
}
