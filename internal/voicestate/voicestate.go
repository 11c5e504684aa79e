// Package voicestate turns two successive voice presence snapshots of the same
// member into a single discrete action.
package voicestate

import "github.com/bwmarrin/discordgo"

// Action is the change detected between two snapshots.
type Action int

const (
	Unknown Action = iota
	Joined
	Left
	ServerMuted
	ServerUnmuted
	ServerDeafened
	ServerUndeafened
	SelfMuted
	SelfUnmuted
	SelfDeafened
	SelfUndeafened
	StartingStream
	EndingStream
	StartingVideo
	EndingVideo
	AFK
	NotAFK
)

var actionNames = map[Action]string{
	Unknown:          "unknown",
	Joined:           "joined",
	Left:             "left",
	ServerMuted:      "server_muted",
	ServerUnmuted:    "server_unmuted",
	ServerDeafened:   "server_deafened",
	ServerUndeafened: "server_undeafened",
	SelfMuted:        "self_muted",
	SelfUnmuted:      "self_unmuted",
	SelfDeafened:     "self_deafened",
	SelfUndeafened:   "self_undeafened",
	StartingStream:   "starting_stream",
	EndingStream:     "ending_stream",
	StartingVideo:    "starting_video",
	EndingVideo:      "ending_video",
	AFK:              "afk",
	NotAFK:           "not_afk",
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return "unknown"
}

// Snapshot is a point-in-time view of one member's voice presence.
// An empty ChannelID means the member is not in a voice channel.
type Snapshot struct {
	ChannelID  string
	ServerMute bool
	ServerDeaf bool
	SelfMute   bool
	SelfDeaf   bool
	Stream     bool
	Video      bool
	AFK        bool
}

// InChannel reports whether the snapshot has a voice channel.
func (s Snapshot) InChannel() bool {
	return s.ChannelID != ""
}

// toggle is one tracked boolean attribute in priority order.
type toggle struct {
	before, after bool
	on, off       Action
}

// Classify returns the highest-priority change between before and after.
// When several attributes change at once only the first match is reported.
func Classify(before, after Snapshot) Action {
	switch {
	case !before.InChannel() && after.InChannel():
		return Joined
	case before.InChannel() && !after.InChannel():
		return Left
	case before.InChannel() && before.ChannelID != after.ChannelID:
		// switching channels counts as a join
		return Joined
	}

	toggles := [...]toggle{
		{before.ServerMute, after.ServerMute, ServerMuted, ServerUnmuted},
		{before.ServerDeaf, after.ServerDeaf, ServerDeafened, ServerUndeafened},
		{before.SelfMute, after.SelfMute, SelfMuted, SelfUnmuted},
		{before.SelfDeaf, after.SelfDeaf, SelfDeafened, SelfUndeafened},
		{before.Stream, after.Stream, StartingStream, EndingStream},
		{before.Video, after.Video, StartingVideo, EndingVideo},
		{before.AFK, after.AFK, AFK, NotAFK},
	}
	for _, t := range toggles {
		if !t.before && t.after {
			return t.on
		}
		if t.before && !t.after {
			return t.off
		}
	}

	return Unknown
}

// FromDiscord converts a gateway voice state. A nil state yields an empty
// snapshot. The member is considered AFK when sitting in the guild's AFK channel.
func FromDiscord(vs *discordgo.VoiceState, afkChannelID string) Snapshot {
	if vs == nil {
		return Snapshot{}
	}
	return Snapshot{
		ChannelID:  vs.ChannelID,
		ServerMute: vs.Mute,
		ServerDeaf: vs.Deaf,
		SelfMute:   vs.SelfMute,
		SelfDeaf:   vs.SelfDeaf,
		Stream:     vs.SelfStream,
		Video:      vs.SelfVideo,
		AFK:        afkChannelID != "" && vs.ChannelID == afkChannelID,
	}
}
