package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

var (
	// ErrNotWAV is returned when the data has no RIFF/WAVE header
	ErrNotWAV = errors.New("not a RIFF/WAVE stream")

	// ErrUnsupportedWAV is returned for encodings other than integer PCM
	ErrUnsupportedWAV = errors.New("unsupported WAV encoding")
)

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
)

// DecodeWAV parses a RIFF/WAVE file and converts its samples to the target
// format: channel count by duplication or averaging, sample rate by linear
// interpolation.
func DecodeWAV(data []byte, target Format) (*Clip, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}

	d := wav.NewDecoder(bytes.NewReader(data))
	if !d.IsValidFile() {
		return nil, ErrNotWAV
	}
	if d.WavAudioFormat != wavFormatPCM && d.WavAudioFormat != wavFormatExtensible {
		return nil, fmt.Errorf("%w: format tag %d", ErrUnsupportedWAV, d.WavAudioFormat)
	}
	switch d.BitDepth {
	case 8, 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: %d bits per sample", ErrUnsupportedWAV, d.BitDepth)
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("read WAV samples: %w", err)
	}
	channels := buf.Format.NumChannels
	if channels == 0 || buf.Format.SampleRate == 0 {
		return nil, fmt.Errorf("%w: %d channels at %d Hz", ErrUnsupportedWAV, channels, buf.Format.SampleRate)
	}

	samples := toInt16(buf.Data, int(d.BitDepth))
	samples = convertChannels(samples, channels, target.Channels)
	samples = resample(samples, target.Channels, buf.Format.SampleRate, target.SampleRate)
	if len(samples) == 0 {
		return nil, errors.New("WAV contains no samples")
	}

	out := make([]byte, len(samples)*bytesPerSample)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return NewClip(out, target)
}

// WriteWAV encodes 16-bit PCM in format as a WAV stream.
func WriteWAV(w io.WriteSeeker, pcm []byte, format Format) error {
	data := make([]int, len(pcm)/bytesPerSample)
	for i := range data {
		data[i] = int(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
	}

	enc := wav.NewEncoder(w, format.SampleRate, BitDepth, format.Channels, wavFormatPCM)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: format.Channels, SampleRate: format.SampleRate},
		Data:           data,
		SourceBitDepth: BitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("write WAV samples: %w", err)
	}
	return enc.Close()
}

// toInt16 scales samples of the given bit depth to 16 bits. 8-bit WAV is
// unsigned.
func toInt16(in []int, bits int) []int16 {
	out := make([]int16, len(in))
	for i, v := range in {
		switch bits {
		case 8:
			out[i] = int16(v-128) << 8
		case 24:
			out[i] = int16(v >> 8)
		case 32:
			out[i] = int16(v >> 16)
		default:
			out[i] = int16(v)
		}
	}
	return out
}

// convertChannels maps interleaved samples from one channel count to another.
func convertChannels(in []int16, from, to int) []int16 {
	if from == to {
		return in
	}
	frames := len(in) / from
	out := make([]int16, frames*to)
	for f := 0; f < frames; f++ {
		src := in[f*from : f*from+from]
		if to == 1 {
			sum := 0
			for _, s := range src {
				sum += int(s)
			}
			out[f] = int16(sum / from)
			continue
		}
		for c := 0; c < to; c++ {
			out[f*to+c] = src[c%from]
		}
	}
	return out
}

// resample performs linear interpolation between sample rates.
func resample(in []int16, channels, from, to int) []int16 {
	if from == to || len(in) == 0 {
		return in
	}
	frames := len(in) / channels
	outFrames := int(int64(frames) * int64(to) / int64(from))
	out := make([]int16, outFrames*channels)
	step := float64(from) / float64(to)
	for f := 0; f < outFrames; f++ {
		pos := float64(f) * step
		i := int(pos)
		frac := pos - float64(i)
		for c := 0; c < channels; c++ {
			a := float64(in[i*channels+c])
			b := a
			if i+1 < frames {
				b = float64(in[(i+1)*channels+c])
			}
			out[f*channels+c] = int16(a + (b-a)*frac)
		}
	}
	return out
}
