// Package pcm frames raw s16le stereo audio into 20 ms chunks for an opus
// encoder.
package pcm

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	Channels   = 2
	SampleRate = 48000
	FrameSize  = 960 // 20ms at 48kHz
	MaxBytes   = FrameSize * Channels * 2
)

// Encoder turns one frame of interleaved PCM into an opus packet.
type Encoder interface {
	Encode(pcm []int16, frameSize, maxDataBytes int) ([]byte, error)
}

// Stream reads s16le stereo PCM from r until EOF, encoding each 20 ms frame
// and sending it to out. A trailing partial frame is padded with silence.
func Stream(ctx context.Context, r io.Reader, enc Encoder, out chan<- []byte) error {
	pcmBuf := make([]byte, MaxBytes)
	intBuf := make([]int16, FrameSize*Channels)

	for {
		n, err := io.ReadFull(r, pcmBuf)
		switch {
		case errors.Is(err, io.EOF):
			return nil
		case errors.Is(err, io.ErrUnexpectedEOF):
			clear(pcmBuf[n:])
		case err != nil:
			return fmt.Errorf("read error: %w", err)
		}

		for i := range intBuf {
			intBuf[i] = int16(binary.LittleEndian.Uint16(pcmBuf[i*2 : i*2+2]))
		}

		opus, encErr := enc.Encode(intBuf, FrameSize, MaxBytes)
		if encErr != nil {
			return fmt.Errorf("encode error: %w", encErr)
		}

		select {
		case out <- opus:
		case <-ctx.Done():
			return ctx.Err()
		}

		if err != nil {
			return nil
		}
	}
}
