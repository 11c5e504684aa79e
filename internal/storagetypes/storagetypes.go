package storagetypes

import (
	"time"
)

// CommandHistoryLimit is how many invocations are kept per guild.
const CommandHistoryLimit = 20

type CommandHistory struct {
	GuildID   string    `json:"guild_id"`
	ChannelID string    `json:"channel_id"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Command   string    `json:"command"`
	Args      string    `json:"args,omitempty"`
	Failed    bool      `json:"failed,omitempty"`
	Datetime  time.Time `json:"datetime"`
}

// TrimHistory keeps the newest CommandHistoryLimit entries.
func TrimHistory(h []CommandHistory) []CommandHistory {
	if len(h) > CommandHistoryLimit {
		return h[len(h)-CommandHistoryLimit:]
	}
	return h
}
