package command

import (
	"context"
	"fmt"

	"github.com/keshon/jingler/pkg/cmd"
)

// Dispatch runs the command named by a prefixed message. It reports whether
// the message was a command at all.
func Dispatch(ctx context.Context, registry *cmd.Registry, prefix string, m *Message) (bool, error) {
	name, args, ok := cmd.Parse(prefix, m.Content)
	if !ok {
		return false, nil
	}

	c := registry.Get(name)
	if c == nil {
		return false, nil
	}

	if err := c.Run(ctx, &cmd.Invocation{Name: name, Args: args, Data: m}); err != nil {
		return true, fmt.Errorf("%s: %w", name, err)
	}
	return true, nil
}
