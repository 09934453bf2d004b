package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/viper"

	"github.com/dgnsrekt/storycast/internal/audio"
	"github.com/dgnsrekt/storycast/internal/cache"
	"github.com/dgnsrekt/storycast/internal/capture"
	"github.com/dgnsrekt/storycast/internal/engine"
	"github.com/dgnsrekt/storycast/internal/fetch"
	"github.com/dgnsrekt/storycast/internal/sink"
	"github.com/dgnsrekt/storycast/utils"
)

// AppName names the config, cache and log locations.
const AppName = "storycast"

// Settings is the resolved configuration.
type Settings struct {
	APIBase     string
	APIEndpoint string

	StoryTimeout  time.Duration
	AssetTimeout  time.Duration
	ShutdownGrace time.Duration

	RevealInterval time.Duration
	Dwell          time.Duration
	LineGap        time.Duration
	CyclePause     time.Duration
	RetryCooldown  time.Duration
	AutoStart      bool

	Width  int
	Height int
	FPS    int

	EncoderBinary string
	Preset        string
	VideoBitrate  string
	MaxRate       string
	BufferSize    string
	AudioBitrate  string
	EncoderURL    string
	GracePeriod   time.Duration

	CaptureBackend string
	CaptureDevice  string

	AudioEnabled bool
	SampleRate   int
	Channels     int

	CacheEnabled  bool
	CacheDir      string
	CacheMemoryMB int
	CacheDiskMB   int
	CacheTTLDays  int

	LogLevel string
}

// SetDefaults registers the default of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("api.base", "http://localhost:4000")
	v.SetDefault("api.endpoint", "/story")

	v.SetDefault("fetch.story_timeout", fetch.DefaultStoryTimeout)
	v.SetDefault("fetch.asset_timeout", fetch.DefaultAssetTimeout)
	v.SetDefault("fetch.shutdown_grace", fetch.DefaultShutdownGrace)

	v.SetDefault("engine.reveal_interval", engine.DefaultRevealInterval)
	v.SetDefault("engine.dwell", engine.DefaultDwell)
	v.SetDefault("engine.line_gap", engine.DefaultLineGap)
	v.SetDefault("engine.cycle_pause", engine.DefaultCyclePause)
	v.SetDefault("engine.retry_cooldown", engine.DefaultRetryCooldown)
	v.SetDefault("engine.auto_start", true)

	s := sink.DefaultConfig()
	v.SetDefault("video.width", s.Width)
	v.SetDefault("video.height", s.Height)
	v.SetDefault("video.fps", s.FPS)

	v.SetDefault("encoder.binary", s.Binary)
	v.SetDefault("encoder.preset", s.Preset)
	v.SetDefault("encoder.video_bitrate", s.VideoBitrate)
	v.SetDefault("encoder.max_rate", s.MaxRate)
	v.SetDefault("encoder.buffer_size", s.BufferSize)
	v.SetDefault("encoder.audio_bitrate", s.AudioBitrate)
	v.SetDefault("encoder.url", s.URL)
	v.SetDefault("encoder.grace_period", s.GracePeriod)

	v.SetDefault("capture.backend", capture.NameAuto)
	v.SetDefault("capture.device", "")

	format := audio.DefaultFormat()
	v.SetDefault("audio.enabled", true)
	v.SetDefault("audio.sample_rate", format.SampleRate)
	v.SetDefault("audio.channels", format.Channels)

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.dir", "")
	v.SetDefault("cache.memory_mb", 64)
	v.SetDefault("cache.disk_mb", 512)
	v.SetDefault("cache.ttl_days", 7)

	v.SetDefault("log_level", "info")
}

// Load reads every key from v and validates the result.
func Load(v *viper.Viper) (Settings, error) {
	s := Settings{
		APIBase:     strings.TrimSpace(v.GetString("api.base")),
		APIEndpoint: v.GetString("api.endpoint"),

		StoryTimeout:  v.GetDuration("fetch.story_timeout"),
		AssetTimeout:  v.GetDuration("fetch.asset_timeout"),
		ShutdownGrace: v.GetDuration("fetch.shutdown_grace"),

		RevealInterval: v.GetDuration("engine.reveal_interval"),
		Dwell:          v.GetDuration("engine.dwell"),
		LineGap:        v.GetDuration("engine.line_gap"),
		CyclePause:     v.GetDuration("engine.cycle_pause"),
		RetryCooldown:  v.GetDuration("engine.retry_cooldown"),
		AutoStart:      v.GetBool("engine.auto_start"),

		Width:  v.GetInt("video.width"),
		Height: v.GetInt("video.height"),
		FPS:    v.GetInt("video.fps"),

		EncoderBinary: v.GetString("encoder.binary"),
		Preset:        v.GetString("encoder.preset"),
		VideoBitrate:  v.GetString("encoder.video_bitrate"),
		MaxRate:       v.GetString("encoder.max_rate"),
		BufferSize:    v.GetString("encoder.buffer_size"),
		AudioBitrate:  v.GetString("encoder.audio_bitrate"),
		EncoderURL:    v.GetString("encoder.url"),
		GracePeriod:   v.GetDuration("encoder.grace_period"),

		CaptureBackend: v.GetString("capture.backend"),
		CaptureDevice:  v.GetString("capture.device"),

		AudioEnabled: v.GetBool("audio.enabled"),
		SampleRate:   v.GetInt("audio.sample_rate"),
		Channels:     v.GetInt("audio.channels"),

		CacheEnabled:  v.GetBool("cache.enabled"),
		CacheDir:      v.GetString("cache.dir"),
		CacheMemoryMB: v.GetInt("cache.memory_mb"),
		CacheDiskMB:   v.GetInt("cache.disk_mb"),
		CacheTTLDays:  v.GetInt("cache.ttl_days"),

		LogLevel: v.GetString("log_level"),
	}
	if s.CacheDir != "" {
		s.CacheDir = utils.ExpandPath(s.CacheDir)
	}

	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks ranges and formats.
func (s Settings) Validate() error {
	u, err := url.Parse(s.APIBase)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("api.base must be an absolute URL, got %q", s.APIBase)
	}
	if s.FPS < 1 || s.FPS > 120 {
		return fmt.Errorf("video.fps must be between 1 and 120, got %d", s.FPS)
	}
	if s.Width < 16 || s.Height < 16 || s.Width%2 != 0 || s.Height%2 != 0 {
		return fmt.Errorf("video size must be even and at least 16x16, got %dx%d", s.Width, s.Height)
	}
	if err := s.Engine().Validate(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	if s.AudioEnabled {
		if err := s.AudioFormat().Validate(); err != nil {
			return fmt.Errorf("audio: %w", err)
		}
	}
	if s.CacheMemoryMB < 0 || s.CacheDiskMB < 0 || s.CacheTTLDays < 0 {
		return fmt.Errorf("cache sizes and ttl must not be negative")
	}
	if _, err := capture.Select(s.CaptureBackend, s.CaptureDevice, ""); err != nil {
		return fmt.Errorf("capture: %w", err)
	}
	if _, err := log.ParseLevel(s.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	return nil
}

// Level returns the parsed log level, info when unset.
func (s Settings) Level() log.Level {
	lvl, err := log.ParseLevel(s.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

// Engine returns the engine timings.
func (s Settings) Engine() engine.Config {
	return engine.Config{
		RevealInterval: s.RevealInterval,
		Dwell:          s.Dwell,
		LineGap:        s.LineGap,
		CyclePause:     s.CyclePause,
		RetryCooldown:  s.RetryCooldown,
		AutoStart:      s.AutoStart,
	}
}

// StreamEngine returns the engine timings for the unattended stream. The
// stream has no start key, so it always starts on its own; auto_start only
// applies to the preview.
func (s Settings) StreamEngine() engine.Config {
	c := s.Engine()
	c.AutoStart = true
	return c
}

// AudioFormat returns the playback format clips are decoded into. With audio
// disabled clips are only timed, so the default format is used.
func (s Settings) AudioFormat() audio.Format {
	if !s.AudioEnabled {
		return audio.DefaultFormat()
	}
	return audio.Format{SampleRate: s.SampleRate, Channels: s.Channels}
}

// Fetch returns the fetcher configuration.
func (s Settings) Fetch() fetch.Config {
	return fetch.Config{
		BaseURL:       s.APIBase,
		Endpoint:      s.APIEndpoint,
		StoryTimeout:  s.StoryTimeout,
		AssetTimeout:  s.AssetTimeout,
		ShutdownGrace: s.ShutdownGrace,
		Format:        s.AudioFormat(),
	}
}

// Sink returns the encoder configuration for the given stream key.
func (s Settings) Sink(streamKey string) sink.Config {
	c := sink.DefaultConfig()
	c.Binary = s.EncoderBinary
	c.Width = s.Width
	c.Height = s.Height
	c.FPS = s.FPS
	c.Preset = s.Preset
	c.VideoBitrate = s.VideoBitrate
	c.MaxRate = s.MaxRate
	c.BufferSize = s.BufferSize
	c.AudioBitrate = s.AudioBitrate
	c.URL = s.EncoderURL
	c.GracePeriod = s.GracePeriod
	c.StreamKey = streamKey
	return c
}

// Capture resolves the capture backend for this platform.
func (s Settings) Capture() (capture.Backend, error) {
	return capture.Select(s.CaptureBackend, s.CaptureDevice, "")
}

// Cache returns the asset cache configuration. The disk level lives in the
// user cache directory unless cache.dir is set.
func (s Settings) Cache() (cache.Config, error) {
	dir := s.CacheDir
	if dir == "" {
		var err error
		dir, err = DefaultCacheDir()
		if err != nil {
			return cache.Config{}, err
		}
	}
	c := cache.DefaultConfig()
	c.MemoryCapacity = int64(s.CacheMemoryMB) << 20
	c.DiskCapacity = int64(s.CacheDiskMB) << 20
	c.DiskPath = dir
	c.TTL = time.Duration(s.CacheTTLDays) * 24 * time.Hour
	if s.CacheDiskMB == 0 {
		c.DiskPath = ""
	}
	return c, nil
}

// DefaultCacheDir is where downloaded audio is kept by default.
func DefaultCacheDir() (string, error) {
	dir, err := gap.NewScope(gap.User, AppName).CacheDir()
	if err != nil {
		return "", fmt.Errorf("could not find cache directory: %w", err)
	}
	return filepath.Join(dir, "audio"), nil
}
