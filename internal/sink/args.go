package sink

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dgnsrekt/storycast/internal/capture"
)

// Config describes the encoder invocation.
type Config struct {
	Binary string

	Width  int
	Height int
	FPS    int

	Preset       string
	VideoBitrate string
	MaxRate      string
	BufferSize   string
	AudioBitrate string

	// URL is the ingest endpoint; the stream key is appended as the last
	// path element.
	URL       string
	StreamKey string

	// GracePeriod is how long Close waits after closing stdin and again
	// after the interrupt before killing the encoder.
	GracePeriod time.Duration

	// ProgressEvery throttles encoder progress lines in the log.
	ProgressEvery time.Duration
}

// DefaultConfig returns a 1080p30 configuration for YouTube ingest.
func DefaultConfig() Config {
	return Config{
		Binary:        "ffmpeg",
		Width:         1920,
		Height:        1080,
		FPS:           30,
		Preset:        "veryfast",
		VideoBitrate:  "4500k",
		MaxRate:       "5000k",
		BufferSize:    "10000k",
		AudioBitrate:  "128k",
		URL:           "rtmp://a.rtmp.youtube.com/live2",
		GracePeriod:   3 * time.Second,
		ProgressEvery: 10 * time.Second,
	}
}

// FrameSize is the byte length of one packed RGB24 frame.
func (c Config) FrameSize() int {
	return c.Width * c.Height * 3
}

// Destination is the full output URL including the stream key.
func (c Config) Destination() string {
	return strings.TrimRight(c.URL, "/") + "/" + c.StreamKey
}

func (c Config) validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("invalid frame size %dx%d", c.Width, c.Height)
	}
	if c.Width%2 != 0 || c.Height%2 != 0 {
		// yuv420p needs even dimensions.
		return fmt.Errorf("frame size %dx%d must be even", c.Width, c.Height)
	}
	if c.FPS <= 0 {
		return fmt.Errorf("invalid frame rate %d", c.FPS)
	}
	if c.URL == "" {
		return fmt.Errorf("encoder url is empty")
	}
	return nil
}

// Args builds the encoder argument list. The layout is fixed:
//
//	-y -f rawvideo -vcodec rawvideo -s WxH -pix_fmt rgb24 -r FPS -i -
//	<capture input args>
//	-c:v libx264 -preset P -b:v V -maxrate M -bufsize B -pix_fmt yuv420p
//	-c:a aac -b:a A -ar 44100 -f flv URL/KEY
//
// The video input must match the frames written to stdin exactly.
func Args(c Config, backend capture.Backend) []string {
	args := []string{
		"-y",
		"-f", "rawvideo",
		"-vcodec", "rawvideo",
		"-s", fmt.Sprintf("%dx%d", c.Width, c.Height),
		"-pix_fmt", "rgb24",
		"-r", strconv.Itoa(c.FPS),
		"-i", "-",
	}
	if backend != nil {
		args = append(args, backend.InputArgs()...)
	}
	return append(args,
		"-c:v", "libx264",
		"-preset", c.Preset,
		"-b:v", c.VideoBitrate,
		"-maxrate", c.MaxRate,
		"-bufsize", c.BufferSize,
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-b:a", c.AudioBitrate,
		"-ar", "44100",
		"-f", "flv",
		c.Destination(),
	)
}

// Redact returns a copy of args with every occurrence of secret masked.
func Redact(args []string, secret string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		if secret != "" {
			a = strings.ReplaceAll(a, secret, "****")
		}
		out[i] = a
	}
	return out
}
