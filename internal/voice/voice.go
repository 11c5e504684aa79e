// Package voice plays audio files into Discord voice channels: ffmpeg decodes
// to 48 kHz stereo PCM, gopus encodes 20 ms opus frames, and the frames go to
// the voice connection.
package voice

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"layeh.com/gopus"

	"github.com/keshon/jingler/internal/player"
	"github.com/keshon/jingler/internal/voice/pcm"
)

// Transport joins voice channels through a discordgo session.
type Transport struct {
	session *discordgo.Session
	ffmpeg  string
	log     zerolog.Logger
}

func NewTransport(s *discordgo.Session, ffmpegPath string, log zerolog.Logger) *Transport {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &Transport{
		session: s,
		ffmpeg:  ffmpegPath,
		log:     log.With().Str("component", "voice").Logger(),
	}
}

type joinResult struct {
	vc  *discordgo.VoiceConnection
	err error
}

// Connect joins channelID deafened. If ctx ends first, the late connection
// is closed once it arrives.
func (t *Transport) Connect(ctx context.Context, guildID, channelID string) (player.Connection, error) {
	done := make(chan joinResult, 1)
	go func() {
		vc, err := t.session.ChannelVoiceJoin(guildID, channelID, false, true)
		done <- joinResult{vc, err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			if res.vc != nil {
				res.vc.Disconnect()
			}
			return nil, fmt.Errorf("join voice channel %s: %w", channelID, res.err)
		}
		return &connection{vc: res.vc, ffmpeg: t.ffmpeg, log: t.log}, nil
	case <-ctx.Done():
		go func() {
			if res := <-done; res.vc != nil {
				res.vc.Disconnect()
			}
		}()
		return nil, ctx.Err()
	}
}

type connection struct {
	vc     *discordgo.VoiceConnection
	ffmpeg string
	log    zerolog.Logger
}

func (c *connection) Play(ctx context.Context, path string) error {
	cmd := exec.CommandContext(ctx, c.ffmpeg,
		"-i", path,
		"-f", "s16le",
		"-ar", strconv.Itoa(pcm.SampleRate),
		"-ac", strconv.Itoa(pcm.Channels),
		"-loglevel", "warning",
		"pipe:1",
	)

	reader, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe error: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("ffmpeg start error: %w", err)
	}
	defer cmd.Wait()

	encoder, err := gopus.NewEncoder(pcm.SampleRate, pcm.Channels, gopus.Audio)
	if err != nil {
		cmd.Process.Kill()
		return fmt.Errorf("encoder error: %w", err)
	}

	if err := c.vc.Speaking(true); err != nil {
		c.log.Warn().Err(err).Msg("Failed to set speaking state")
	}
	defer func() {
		if err := c.vc.Speaking(false); err != nil {
			c.log.Debug().Err(err).Msg("Failed to clear speaking state")
		}
	}()

	if err := pcm.Stream(ctx, reader, encoder, c.vc.OpusSend); err != nil {
		cmd.Process.Kill()
		return err
	}
	return nil
}

func (c *connection) Disconnect(context.Context) error {
	return c.vc.Disconnect()
}
