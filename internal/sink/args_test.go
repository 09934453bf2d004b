package sink

import (
	"reflect"
	"strings"
	"testing"

	"github.com/dgnsrekt/storycast/internal/capture"
)

func TestArgs(t *testing.T) {
	config := DefaultConfig()
	config.StreamKey = "abcd-1234"

	want := []string{
		"-y",
		"-f", "rawvideo",
		"-vcodec", "rawvideo",
		"-s", "1920x1080",
		"-pix_fmt", "rgb24",
		"-r", "30",
		"-i", "-",
		"-f", "pulse", "-i", "default",
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-b:v", "4500k",
		"-maxrate", "5000k",
		"-bufsize", "10000k",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-b:a", "128k",
		"-ar", "44100",
		"-f", "flv",
		"rtmp://a.rtmp.youtube.com/live2/abcd-1234",
	}

	got := Args(config, capture.Pulse{})
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Args mismatch\n got: %v\nwant: %v", got, want)
	}
}

func TestArgsCaptureFollowsVideoInput(t *testing.T) {
	config := DefaultConfig()
	config.StreamKey = "k"

	tests := []struct {
		backend capture.Backend
		want    string
	}{
		{capture.Silent{}, "-f lavfi -i anullsrc=channel_layout=stereo:sample_rate=44100"},
		{capture.DirectShow{Device: "Mic"}, "-f dshow -i audio=Mic"},
		{nil, "-c:v libx264"},
	}

	for _, tt := range tests {
		t.Run(backendName(tt.backend), func(t *testing.T) {
			joined := strings.Join(Args(config, tt.backend), " ")
			if !strings.Contains(joined, "-i - "+tt.want) {
				t.Errorf("args %q do not continue with %q after the video input", joined, tt.want)
			}
		})
	}
}

func TestDestination(t *testing.T) {
	config := Config{URL: "rtmp://host/live/", StreamKey: "key"}
	if got := config.Destination(); got != "rtmp://host/live/key" {
		t.Errorf("Destination() = %q", got)
	}
}

func TestRedact(t *testing.T) {
	args := []string{"-f", "flv", "rtmp://host/live/secret"}
	got := Redact(args, "secret")
	if got[2] != "rtmp://host/live/****" {
		t.Errorf("Redact() = %v", got)
	}
	if args[2] != "rtmp://host/live/secret" {
		t.Error("Redact modified its input")
	}
	if got := Redact(args, ""); !reflect.DeepEqual(got, args) {
		t.Errorf("Redact with empty secret = %v", got)
	}
}

func TestFrameSize(t *testing.T) {
	if got := (Config{Width: 1920, Height: 1080}).FrameSize(); got != 1920*1080*3 {
		t.Errorf("FrameSize() = %d", got)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"odd width", func(c *Config) { c.Width = 1921 }, true},
		{"zero height", func(c *Config) { c.Height = 0 }, true},
		{"zero fps", func(c *Config) { c.FPS = 0 }, true},
		{"no url", func(c *Config) { c.URL = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(&config)
			if err := config.validate(); (err != nil) != tt.wantErr {
				t.Errorf("validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
