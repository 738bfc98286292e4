// Package audio reads and writes PCM WAV files as de-interleaved float32
// channels in [-1, 1].
package audio

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const wavFormatPCM = 1

var (
	ErrInvalidWAV          = errors.New("audio: invalid WAV file")
	ErrUnsupportedBitDepth = errors.New("audio: unsupported bit depth")
	ErrChannelMismatch     = errors.New("audio: channels differ in length")
)

// Buffer is a decoded recording.
type Buffer struct {
	SampleRate int
	// BitDepth of the source file, or the depth to write.
	BitDepth int
	// Channels[c][i] is sample i of channel c.
	Channels [][]float32
}

// NumChannels returns the channel count.
func (b *Buffer) NumChannels() int { return len(b.Channels) }

// Frames returns the number of samples per channel.
func (b *Buffer) Frames() int {
	if len(b.Channels) == 0 {
		return 0
	}
	return len(b.Channels[0])
}

// Duration returns the playback length.
func (b *Buffer) Duration() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(b.Frames()) / float64(b.SampleRate) * float64(time.Second))
}

// Clone returns a deep copy of b.
func (b *Buffer) Clone() *Buffer {
	out := &Buffer{SampleRate: b.SampleRate, BitDepth: b.BitDepth, Channels: make([][]float32, len(b.Channels))}
	for c, ch := range b.Channels {
		out.Channels[c] = append([]float32(nil), ch...)
	}
	return out
}

// ReadFile decodes the WAV file at path.
func ReadFile(path string) (*Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("audio: open %q: %w", path, err)
	}
	defer f.Close()

	buf, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("audio: decode %q: %w", path, err)
	}
	return buf, nil
}

// Decode reads a PCM WAV stream of 8, 16, 24 or 32 bits.
func Decode(r io.ReadSeeker) (*Buffer, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, ErrInvalidWAV
	}
	depth := int(dec.BitDepth)
	if !validDepth(depth) {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedBitDepth, depth)
	}
	channels := int(dec.NumChans)
	if channels < 1 {
		return nil, fmt.Errorf("%w: no channels", ErrInvalidWAV)
	}

	pcm, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("audio: read PCM: %w", err)
	}

	frames := len(pcm.Data) / channels
	out := &Buffer{
		SampleRate: int(dec.SampleRate),
		BitDepth:   depth,
		Channels:   make([][]float32, channels),
	}
	for c := range out.Channels {
		out.Channels[c] = make([]float32, frames)
	}

	scale := fullScale(depth)
	for i := range frames {
		for c := range channels {
			v := pcm.Data[i*channels+c]
			if depth == 8 {
				v -= 128 // 8-bit PCM is unsigned
			}
			out.Channels[c][i] = float32(float64(v) / scale)
		}
	}
	return out, nil
}

// WriteFile encodes b to path. A bitDepth of zero uses b.BitDepth, falling
// back to 16 bits.
func WriteFile(path string, b *Buffer, bitDepth int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("audio: create %q: %w", path, err)
	}
	if err := Encode(f, b, bitDepth); err != nil {
		_ = f.Close()
		return fmt.Errorf("audio: encode %q: %w", path, err)
	}
	return f.Close()
}

// Encode writes b as interleaved PCM. Samples are clamped to [-1, 1].
func Encode(w io.WriteSeeker, b *Buffer, bitDepth int) error {
	if bitDepth == 0 {
		bitDepth = b.BitDepth
	}
	if bitDepth == 0 {
		bitDepth = 16
	}
	if !validDepth(bitDepth) {
		return fmt.Errorf("%w: %d", ErrUnsupportedBitDepth, bitDepth)
	}
	channels := b.NumChannels()
	if channels == 0 {
		return fmt.Errorf("%w: no channels", ErrInvalidWAV)
	}
	frames := b.Frames()
	for c, ch := range b.Channels {
		if len(ch) != frames {
			return fmt.Errorf("%w: channel %d has %d samples, want %d", ErrChannelMismatch, c, len(ch), frames)
		}
	}

	scale := fullScale(bitDepth)
	peak := int(scale) - 1
	ints := make([]int, frames*channels)
	for i := range frames {
		for c := range channels {
			v := float64(b.Channels[c][i])
			if math.IsNaN(v) {
				v = 0
			}
			q := min(max(int(v*scale), -peak-1), peak)
			if bitDepth == 8 {
				q += 128
			}
			ints[i*channels+c] = q
		}
	}

	enc := wav.NewEncoder(w, b.SampleRate, bitDepth, channels, wavFormatPCM)
	if err := enc.Write(&audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: channels,
			SampleRate:  b.SampleRate,
		},
		Data:           ints,
		SourceBitDepth: bitDepth,
	}); err != nil {
		return err
	}
	return enc.Close()
}

func validDepth(depth int) bool {
	switch depth {
	case 8, 16, 24, 32:
		return true
	}
	return false
}

func fullScale(depth int) float64 {
	return float64(int64(1) << (depth - 1))
}
