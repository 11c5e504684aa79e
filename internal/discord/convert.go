package discord

import (
	"errors"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/jingler/internal/command"
	"github.com/keshon/jingler/internal/paginator"
	"github.com/keshon/jingler/internal/voicestate"
)

// MessageFrom converts a gateway message.
func MessageFrom(m *discordgo.Message) *command.Message {
	out := &command.Message{
		ID:        m.ID,
		GuildID:   m.GuildID,
		ChannelID: m.ChannelID,
		Content:   m.Content,
	}
	if m.Author != nil {
		out.Author = command.Author{ID: m.Author.ID, Username: m.Author.Username, Bot: m.Author.Bot}
	}
	for _, a := range m.Attachments {
		if a == nil {
			continue
		}
		out.Attachments = append(out.Attachments, command.Attachment{
			Filename: a.Filename,
			URL:      a.URL,
			Size:     int64(a.Size),
		})
	}
	return out
}

// ReactionFrom converts a gateway reaction. Custom emoji keep their
// name:id form.
func ReactionFrom(r *discordgo.MessageReaction) paginator.Reaction {
	emoji := r.Emoji.Name
	if r.Emoji.ID != "" {
		emoji = r.Emoji.APIName()
	}
	return paginator.Reaction{
		ChannelID: r.ChannelID,
		MessageID: r.MessageID,
		UserID:    r.UserID,
		Emoji:     emoji,
	}
}

// JoinTarget reports the channel a member just joined, if the update is a
// join worth greeting. Joins into the AFK channel are not.
func JoinTarget(before, after *discordgo.VoiceState, afkChannelID string) (string, bool) {
	action := voicestate.Classify(
		voicestate.FromDiscord(before, afkChannelID),
		voicestate.FromDiscord(after, afkChannelID),
	)
	if action != voicestate.Joined {
		return "", false
	}
	if afkChannelID != "" && after.ChannelID == afkChannelID {
		return "", false
	}
	return after.ChannelID, true
}

// statusOf extracts the HTTP status from a REST error.
func statusOf(err error) int {
	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Response != nil {
		return rest.Response.StatusCode
	}
	return 0
}
