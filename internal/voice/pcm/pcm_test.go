package pcm

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingEncoder struct {
	frames [][]int16
	err    error
}

func (e *recordingEncoder) Encode(pcm []int16, frameSize, maxDataBytes int) ([]byte, error) {
	if e.err != nil {
		return nil, e.err
	}
	e.frames = append(e.frames, append([]int16(nil), pcm...))
	return []byte{byte(len(e.frames))}, nil
}

func constantPCM(n int, value int16) []byte {
	buf := make([]byte, n*2)
	for i := range n {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(value))
	}
	return buf
}

func TestStream_FramesAndPadsTail(t *testing.T) {
	samplesPerFrame := FrameSize * Channels
	data := constantPCM(samplesPerFrame*2+100, 7)

	enc := &recordingEncoder{}
	out := make(chan []byte, 10)
	require.NoError(t, Stream(context.Background(), bytes.NewReader(data), enc, out))

	require.Len(t, enc.frames, 3)
	assert.Len(t, out, 3)

	last := enc.frames[2]
	assert.Equal(t, int16(7), last[99])
	assert.Equal(t, int16(0), last[100], "tail is padded with silence")
}

func TestStream_Empty(t *testing.T) {
	enc := &recordingEncoder{}
	out := make(chan []byte, 1)
	require.NoError(t, Stream(context.Background(), bytes.NewReader(nil), enc, out))
	assert.Empty(t, enc.frames)
}

func TestStream_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := make(chan []byte) // nobody reads
	err := Stream(ctx, bytes.NewReader(constantPCM(FrameSize*Channels, 1)), &recordingEncoder{}, out)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStream_EncoderError(t *testing.T) {
	out := make(chan []byte, 1)
	err := Stream(context.Background(), bytes.NewReader(constantPCM(FrameSize*Channels, 1)), &recordingEncoder{err: errors.New("boom")}, out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}
