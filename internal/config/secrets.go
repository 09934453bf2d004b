package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/dgnsrekt/storycast/internal/broadcast"
)

// Secrets are read from the environment only, never from the config file.
type Secrets struct {
	StreamKey string `env:"STORYCAST_STREAM_KEY"`
	// LegacyStreamKey is honoured for existing deployments.
	LegacyStreamKey string `env:"YOUTUBE_STREAM_KEY"`
}

// Key returns the stream key, preferring STORYCAST_STREAM_KEY.
func (s Secrets) Key() string {
	if k := strings.TrimSpace(s.StreamKey); k != "" {
		return k
	}
	return strings.TrimSpace(s.LegacyStreamKey)
}

// RequireKey returns the stream key or a ConfigError when it is missing.
func (s Secrets) RequireKey() (string, error) {
	key := s.Key()
	if key == "" {
		return "", broadcast.ConfigError("set STORYCAST_STREAM_KEY (or YOUTUBE_STREAM_KEY)", broadcast.ErrMissingStreamKey)
	}
	return key, nil
}

// LoadSecrets loads the given .env files, skipping missing ones, then parses
// the environment. Variables already set take precedence over .env values.
func LoadSecrets(envFiles ...string) (Secrets, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Secrets{}, fmt.Errorf("unable to load %s: %w", f, err)
		}
	}
	s, err := env.ParseAs[Secrets]()
	if err != nil {
		return Secrets{}, fmt.Errorf("error parsing environment: %w", err)
	}
	return s, nil
}
