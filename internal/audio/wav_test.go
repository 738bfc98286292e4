package audio

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBuffer(frames int) *Buffer {
	left := make([]float32, frames)
	right := make([]float32, frames)
	for i := range frames {
		left[i] = float32(0.5 * math.Sin(2*math.Pi*200*float64(i)/8000))
		right[i] = float32(-0.25 * math.Sin(2*math.Pi*440*float64(i)/8000))
	}
	return &Buffer{SampleRate: 8000, BitDepth: 16, Channels: [][]float32{left, right}}
}

func TestRoundTrip(t *testing.T) {
	for _, depth := range []int{16, 24, 32} {
		t.Run(fmt.Sprintf("%dbit", depth), func(t *testing.T) {
			in := testBuffer(800)
			path := filepath.Join(t.TempDir(), "rt.wav")
			require.NoError(t, WriteFile(path, in, depth))

			out, err := ReadFile(path)
			require.NoError(t, err)

			assert.Equal(t, 8000, out.SampleRate)
			assert.Equal(t, depth, out.BitDepth)
			require.Equal(t, 2, out.NumChannels())
			require.Equal(t, 800, out.Frames())

			tol := 2 / fullScale(depth)
			for c := range in.Channels {
				for i := range in.Channels[c] {
					require.InDelta(t, in.Channels[c][i], out.Channels[c][i], tol, "channel %d sample %d", c, i)
				}
			}
		})
	}
}

func TestEncodeClampsAndZeroesNaN(t *testing.T) {
	in := &Buffer{SampleRate: 8000, Channels: [][]float32{{2, -3, float32(math.NaN()), 0.5}}}
	path := filepath.Join(t.TempDir(), "clamp.wav")
	require.NoError(t, WriteFile(path, in, 0))

	out, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 16, out.BitDepth)

	got := out.Channels[0]
	assert.InDelta(t, 1, got[0], 1e-4)
	assert.InDelta(t, -1, got[1], 1e-4)
	assert.Zero(t, got[2])
	assert.InDelta(t, 0.5, got[3], 1e-4)
}

func TestEncodeErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.wav")
	err := WriteFile(path, &Buffer{SampleRate: 8000}, 16)
	assert.ErrorIs(t, err, ErrInvalidWAV)

	err = WriteFile(path, &Buffer{SampleRate: 8000, Channels: [][]float32{{0, 0}, {0}}}, 16)
	assert.ErrorIs(t, err, ErrChannelMismatch)

	err = WriteFile(path, testBuffer(10), 12)
	assert.ErrorIs(t, err, ErrUnsupportedBitDepth)
}

func TestReadFileErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadFile(filepath.Join(dir, "missing.wav"))
	require.Error(t, err)

	junk := filepath.Join(dir, "junk.wav")
	require.NoError(t, os.WriteFile(junk, []byte("this is not a riff file"), 0o600))
	_, err = ReadFile(junk)
	assert.ErrorIs(t, err, ErrInvalidWAV)
}

func TestBufferHelpers(t *testing.T) {
	b := testBuffer(4000)
	assert.Equal(t, 500*time.Millisecond, b.Duration())

	c := b.Clone()
	c.Channels[0][0] = 0.9
	assert.NotEqual(t, b.Channels[0][0], c.Channels[0][0])

	assert.Zero(t, (&Buffer{}).Frames())
	assert.Zero(t, (&Buffer{}).Duration())
}
