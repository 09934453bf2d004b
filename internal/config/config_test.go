package config

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"

	"github.com/dgnsrekt/storycast/internal/engine"
)

func newViper(t *testing.T) *viper.Viper {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestLoadDefaults(t *testing.T) {
	s, err := Load(newViper(t))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if got, want := s.Engine(), engine.DefaultConfig(); got != want {
		t.Errorf("Engine() = %+v, want %+v", got, want)
	}
	if s.FPS != 30 || s.Width != 1920 || s.Height != 1080 {
		t.Errorf("video = %dx%d@%d, want 1920x1080@30", s.Width, s.Height, s.FPS)
	}
	if s.Level() != log.InfoLevel {
		t.Errorf("Level() = %v, want info", s.Level())
	}

	f := s.Fetch()
	if f.BaseURL != "http://localhost:4000" || f.Endpoint != "/story" {
		t.Errorf("Fetch() = %+v", f)
	}
	if f.Format != s.AudioFormat() {
		t.Errorf("Fetch().Format = %+v, want %+v", f.Format, s.AudioFormat())
	}

	k := s.Sink("secret")
	if k.StreamKey != "secret" || k.FPS != s.FPS || k.Width != s.Width {
		t.Errorf("Sink() = %+v", k)
	}
}

func TestLoadYAML(t *testing.T) {
	v := newViper(t)
	v.SetConfigType("yaml")
	yml := `
api:
  base: https://stories.example.com/v1
engine:
  reveal_interval: 45ms
  dwell: 1.5s
  auto_start: false
video:
  width: 1280
  height: 720
  fps: 24
capture:
  backend: silent
log_level: debug
`
	if err := v.ReadConfig(strings.NewReader(yml)); err != nil {
		t.Fatalf("ReadConfig() error = %v", err)
	}

	s, err := Load(v)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.RevealInterval != 45*time.Millisecond {
		t.Errorf("RevealInterval = %v, want 45ms", s.RevealInterval)
	}
	if s.Dwell != 1500*time.Millisecond {
		t.Errorf("Dwell = %v, want 1.5s", s.Dwell)
	}
	if s.AutoStart {
		t.Error("AutoStart = true, want false")
	}
	if s.LineGap != engine.DefaultLineGap {
		t.Errorf("LineGap = %v, want default %v", s.LineGap, engine.DefaultLineGap)
	}
	if s.Level() != log.DebugLevel {
		t.Errorf("Level() = %v, want debug", s.Level())
	}
	b, err := s.Capture()
	if err != nil {
		t.Fatalf("Capture() error = %v", err)
	}
	if b.Name() != "silent" {
		t.Errorf("Capture().Name() = %q, want silent", b.Name())
	}
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value any
		want  string
	}{
		{"relative base", "api.base", "localhost:4000", "api.base"},
		{"empty base", "api.base", "", "api.base"},
		{"zero fps", "video.fps", 0, "video.fps"},
		{"fast fps", "video.fps", 500, "video.fps"},
		{"odd width", "video.width", 1921, "video size"},
		{"tiny height", "video.height", 8, "video size"},
		{"zero reveal", "engine.reveal_interval", "0s", "engine"},
		{"negative gap", "engine.line_gap", "-1s", "engine"},
		{"bad sample rate", "audio.sample_rate", 0, "audio"},
		{"negative cache", "cache.disk_mb", -1, "cache"},
		{"unknown backend", "capture.backend", "jack", "capture"},
		{"bad level", "log_level", "loud", "log_level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newViper(t)
			v.Set(tt.key, tt.value)
			_, err := Load(v)
			if err == nil {
				t.Fatalf("Load() with %s=%v succeeded, want error", tt.key, tt.value)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load() error = %q, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestAudioDisabledSkipsFormat(t *testing.T) {
	v := newViper(t)
	v.Set("audio.enabled", false)
	v.Set("audio.sample_rate", 0)
	if _, err := Load(v); err != nil {
		t.Errorf("Load() error = %v, want nil with audio disabled", err)
	}
}

func TestCacheConfig(t *testing.T) {
	dir := t.TempDir()
	v := newViper(t)
	v.Set("cache.dir", dir)
	v.Set("cache.memory_mb", 8)
	v.Set("cache.disk_mb", 16)
	v.Set("cache.ttl_days", 2)

	s, err := Load(v)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	c, err := s.Cache()
	if err != nil {
		t.Fatalf("Cache() error = %v", err)
	}
	if c.DiskPath != dir {
		t.Errorf("DiskPath = %q, want %q", c.DiskPath, dir)
	}
	if c.MemoryCapacity != 8<<20 || c.DiskCapacity != 16<<20 {
		t.Errorf("capacities = %d/%d", c.MemoryCapacity, c.DiskCapacity)
	}
	if c.TTL != 48*time.Hour {
		t.Errorf("TTL = %v, want 48h", c.TTL)
	}

	v.Set("cache.disk_mb", 0)
	s, err = Load(v)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	c, err = s.Cache()
	if err != nil {
		t.Fatalf("Cache() error = %v", err)
	}
	if c.DiskPath != "" {
		t.Errorf("DiskPath = %q, want memory only", c.DiskPath)
	}
}

func TestStreamEngineAlwaysStarts(t *testing.T) {
	v := newViper(t)
	v.Set("engine.auto_start", false)
	v.Set("engine.dwell", "1s")

	s, err := Load(v)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.Engine().AutoStart {
		t.Error("Engine().AutoStart = true, want the configured false")
	}
	c := s.StreamEngine()
	if !c.AutoStart {
		t.Error("StreamEngine().AutoStart = false, want true")
	}
	if c.Dwell != time.Second {
		t.Errorf("StreamEngine().Dwell = %v, want the configured 1s", c.Dwell)
	}
}
