package voicestate

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_SingleAttributeChanges(t *testing.T) {
	base := Snapshot{ChannelID: "100"}

	tests := []struct {
		name   string
		mutate func(*Snapshot)
		on     Action
		off    Action
	}{
		{"server mute", func(s *Snapshot) { s.ServerMute = true }, ServerMuted, ServerUnmuted},
		{"server deaf", func(s *Snapshot) { s.ServerDeaf = true }, ServerDeafened, ServerUndeafened},
		{"self mute", func(s *Snapshot) { s.SelfMute = true }, SelfMuted, SelfUnmuted},
		{"self deaf", func(s *Snapshot) { s.SelfDeaf = true }, SelfDeafened, SelfUndeafened},
		{"stream", func(s *Snapshot) { s.Stream = true }, StartingStream, EndingStream},
		{"video", func(s *Snapshot) { s.Video = true }, StartingVideo, EndingVideo},
		{"afk", func(s *Snapshot) { s.AFK = true }, AFK, NotAFK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flipped := base
			tt.mutate(&flipped)

			assert.Equal(t, tt.on, Classify(base, flipped))
			assert.Equal(t, tt.off, Classify(flipped, base))
		})
	}
}

func TestClassify_JoinedFromNoChannelIgnoresFlags(t *testing.T) {
	before := Snapshot{SelfMute: true, Video: true}
	after := Snapshot{ChannelID: "1", ServerDeaf: true, Stream: true, AFK: true}

	require.Equal(t, Joined, Classify(before, after))
}

func TestClassify_Left(t *testing.T) {
	before := Snapshot{ChannelID: "1", SelfMute: true}
	after := Snapshot{}

	require.Equal(t, Left, Classify(before, after))
}

func TestClassify_ChannelSwitchIsJoin(t *testing.T) {
	before := Snapshot{ChannelID: "A", SelfDeaf: true}
	after := Snapshot{ChannelID: "B", SelfDeaf: true}

	require.Equal(t, Joined, Classify(before, after))
}

func TestClassify_NoChange(t *testing.T) {
	s := Snapshot{ChannelID: "A", SelfMute: true}
	assert.Equal(t, Unknown, Classify(s, s))
	assert.Equal(t, Unknown, Classify(Snapshot{}, Snapshot{}))
}

func TestClassify_OnlyHighestPriorityReported(t *testing.T) {
	before := Snapshot{ChannelID: "A"}
	after := Snapshot{ChannelID: "A", SelfMute: true, SelfDeaf: true, ServerMute: true}

	require.Equal(t, ServerMuted, Classify(before, after))

	after = Snapshot{ChannelID: "A", Video: true, SelfDeaf: true}
	require.Equal(t, SelfDeafened, Classify(before, after))
}

func TestClassify_Deterministic(t *testing.T) {
	before := Snapshot{ChannelID: "A", Stream: true}
	after := Snapshot{ChannelID: "A"}

	first := Classify(before, after)
	for i := 0; i < 10; i++ {
		require.Equal(t, first, Classify(before, after))
	}
}

func TestAction_String(t *testing.T) {
	assert.Equal(t, "joined", Joined.String())
	assert.Equal(t, "server_undeafened", ServerUndeafened.String())
	assert.Equal(t, "not_afk", NotAFK.String())
	assert.Equal(t, "unknown", Action(999).String())
}

func TestFromDiscord(t *testing.T) {
	assert.Equal(t, Snapshot{}, FromDiscord(nil, "afk"))

	vs := &discordgo.VoiceState{
		ChannelID:  "afk",
		Mute:       true,
		Deaf:       false,
		SelfMute:   true,
		SelfDeaf:   true,
		SelfStream: true,
		SelfVideo:  false,
	}
	got := FromDiscord(vs, "afk")
	assert.Equal(t, Snapshot{
		ChannelID:  "afk",
		ServerMute: true,
		SelfMute:   true,
		SelfDeaf:   true,
		Stream:     true,
		AFK:        true,
	}, got)

	got = FromDiscord(vs, "")
	assert.False(t, got.AFK)
}
