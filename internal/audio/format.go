package audio

import (
	"errors"
	"fmt"
	"time"
)

// Format describes the PCM layout of clips handed to a channel. Samples are
// always signed 16-bit little endian.
type Format struct {
	SampleRate int // Hz
	Channels   int // 1 = mono, 2 = stereo
}

// BitDepth is the only supported sample width.
const BitDepth = 16

// bytesPerSample is the size of one sample of one channel.
const bytesPerSample = BitDepth / 8

// DefaultFormat matches the encoder's audio capture rate.
func DefaultFormat() Format {
	return Format{
		SampleRate: 44100,
		Channels:   1, // Mono for speech
	}
}

// Validate checks the format is playable.
func (f Format) Validate() error {
	if f.SampleRate < 8000 || f.SampleRate > 96000 {
		return fmt.Errorf("sample rate must be between 8000 and 96000 Hz, got %d", f.SampleRate)
	}
	if f.Channels != 1 && f.Channels != 2 {
		return fmt.Errorf("channels must be 1 (mono) or 2 (stereo), got %d", f.Channels)
	}
	return nil
}

// FrameSize returns the number of bytes of one sample frame across channels.
func (f Format) FrameSize() int {
	return f.Channels * bytesPerSample
}

// Duration returns the playback length of n bytes of PCM in this format.
func (f Format) Duration(n int) time.Duration {
	if f.SampleRate == 0 || f.FrameSize() == 0 {
		return 0
	}
	frames := n / f.FrameSize()
	return time.Duration(frames) * time.Second / time.Duration(f.SampleRate)
}

// Clip is decoded PCM audio in a channel's output format. It implements
// broadcast.Clip.
type Clip struct {
	pcm      []byte
	format   Format
	duration time.Duration
}

// NewClip wraps PCM bytes already in the given format.
func NewClip(pcm []byte, format Format) (*Clip, error) {
	if len(pcm) == 0 {
		return nil, errors.New("audio data is empty")
	}
	if len(pcm)%format.FrameSize() != 0 {
		return nil, fmt.Errorf("PCM data length %d is not aligned to %d-byte frames", len(pcm), format.FrameSize())
	}
	return &Clip{pcm: pcm, format: format, duration: format.Duration(len(pcm))}, nil
}

// PCM returns the raw sample bytes.
func (c *Clip) PCM() []byte { return c.pcm }

// Duration returns the playback length.
func (c *Clip) Duration() time.Duration { return c.duration }

// Format returns the PCM layout of the clip.
func (c *Clip) Format() Format { return c.format }
