package jingles

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keshon/jingler/internal/command"
	"github.com/keshon/jingler/internal/command/commandtest"
)

func TestPlayRandom_RequiresVoiceChannel(t *testing.T) {
	h := commandtest.New(t)
	h.AddJingle(t, "aaaaa", "Intro")

	require.NoError(t, h.Run(context.Background(), &PlayRandomCommand{env: h.Env}))
	assert.Contains(t, h.Chat.Last(), "not in a voice channel")
	assert.Empty(t, h.Transport.Plays())
}

func TestPlayRandom_EmptyCatalog(t *testing.T) {
	h := commandtest.New(t)
	h.Voice[commandtest.UserID] = "voice"

	require.NoError(t, h.Run(context.Background(), &PlayRandomCommand{env: h.Env}))
	assert.Contains(t, h.Chat.Last(), "no jingles")
}

func TestPlayRandom_Plays(t *testing.T) {
	h := commandtest.New(t)
	h.Voice[commandtest.UserID] = "voice"
	j := h.AddJingle(t, "aaaaa", "Intro")

	require.NoError(t, h.Run(context.Background(), &PlayRandomCommand{env: h.Env}))
	assert.Equal(t, []string{j.Path}, h.Transport.Plays())
	assert.Equal(t, []string{command.EmojiChecked}, h.Chat.ReactionsOn("invoking"))
}

func TestPlayRandom_ConnectFailureReacts(t *testing.T) {
	h := commandtest.New(t)
	h.Voice[commandtest.UserID] = "voice"
	h.AddJingle(t, "aaaaa", "Intro")
	h.Transport.Fail = errors.New("no permission to connect")

	require.NoError(t, h.Run(context.Background(), &PlayRandomCommand{env: h.Env}))
	assert.Equal(t, []string{command.EmojiX}, h.Chat.ReactionsOn("invoking"))
}

func TestReload(t *testing.T) {
	h := commandtest.New(t)
	h.AddJingle(t, "aaaaa", "Intro")
	h.AddJingle(t, "bbbbb", "Outro")

	require.NoError(t, h.Run(context.Background(), &ReloadCommand{env: h.Env}))
	assert.Equal(t, "☑️ Jingles reloaded, **2** available.", h.Chat.Last())
}

func TestList(t *testing.T) {
	h := commandtest.New(t)
	h.AddJingle(t, "aaaaa", "Intro")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, h.Run(ctx, &ListCommand{env: h.Env}))

	first := h.Chat.Messages()[0]
	assert.Contains(t, first, "There are `1` available")
	assert.Contains(t, first, "[aaaaa](intro.mp3) Intro")
}

func uploadMessage(name, url string, size int) *command.Message {
	return &command.Message{Attachments: []command.Attachment{{Filename: name, URL: url, Size: int64(size)}}}
}

func TestAdd(t *testing.T) {
	h := commandtest.New(t)
	data := commandtest.MP3Frames(100)
	h.Files["https://cdn/intro.mp3"] = data

	done := make(chan error, 1)
	go func() { done <- h.Run(context.Background(), &AddCommand{env: h.Env}) }()

	h.Messages.Say(t, &command.Message{Content: "My intro"})
	h.Messages.Say(t, uploadMessage("intro.mp3", "https://cdn/intro.mp3", len(data)))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("addjingle did not finish")
	}

	all := h.Env.Catalog.All()
	require.Len(t, all, 1)
	assert.Equal(t, "My intro", all[0].Title)

	msgs := h.Chat.Messages()
	require.Len(t, msgs, 3)
	assert.Contains(t, msgs[1], "`My intro`")
	assert.Contains(t, h.Chat.LastEdit("m3"), "available with code `"+all[0].ID+"`")
}

func TestAdd_TitleTimeout(t *testing.T) {
	h := commandtest.New(t)
	h.Env.ReplyTimeout = 20 * time.Millisecond

	require.NoError(t, h.Run(context.Background(), &AddCommand{env: h.Env}))
	assert.Contains(t, h.Chat.Last(), "Timed out")
	assert.Equal(t, 0, h.Env.Catalog.Len())
}

func TestAdd_IgnoresOtherAuthors(t *testing.T) {
	h := commandtest.New(t)
	h.Env.ReplyTimeout = 200 * time.Millisecond

	done := make(chan error, 1)
	go func() { done <- h.Run(context.Background(), &AddCommand{env: h.Env}) }()

	delivered := h.Messages.Say(t, &command.Message{Content: "hijack", Author: command.Author{ID: "someone"}})
	assert.Equal(t, 0, delivered)

	require.NoError(t, <-done)
	assert.Contains(t, h.Chat.Last(), "Timed out")
}

func TestAdd_RejectsLongAudio(t *testing.T) {
	h := commandtest.New(t)
	data := commandtest.MP3Frames(500) // about 13 seconds
	h.Files["https://cdn/long.mp3"] = data

	done := make(chan error, 1)
	go func() { done <- h.Run(context.Background(), &AddCommand{env: h.Env}) }()

	h.Messages.Say(t, &command.Message{Content: "Long"})
	h.Messages.Say(t, uploadMessage("long.mp3", "https://cdn/long.mp3", len(data)))
	require.NoError(t, <-done)

	assert.Contains(t, h.Chat.LastEdit("m3"), "too long")
	assert.Equal(t, 0, h.Env.Catalog.Len())
}

func TestAdd_RejectsDeclaredSize(t *testing.T) {
	h := commandtest.New(t)
	h.Env.Limits.MaxFileSize = 100

	done := make(chan error, 1)
	go func() { done <- h.Run(context.Background(), &AddCommand{env: h.Env}) }()

	h.Messages.Say(t, &command.Message{Content: "Big"})
	h.Messages.Say(t, uploadMessage("big.mp3", "https://cdn/big.mp3", 5000))
	require.NoError(t, <-done)

	assert.Contains(t, h.Chat.Last(), "too big")
}
