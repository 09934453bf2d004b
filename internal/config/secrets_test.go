package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/dgnsrekt/storycast/internal/broadcast"
)

// unsetenv clears key for the duration of the test.
func unsetenv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	os.Unsetenv(key)
}

func TestSecretsKey(t *testing.T) {
	tests := []struct {
		name    string
		secrets Secrets
		want    string
	}{
		{"primary", Secrets{StreamKey: "abc"}, "abc"},
		{"legacy", Secrets{LegacyStreamKey: "yt"}, "yt"},
		{"primary wins", Secrets{StreamKey: "abc", LegacyStreamKey: "yt"}, "abc"},
		{"blank primary", Secrets{StreamKey: "  ", LegacyStreamKey: "yt"}, "yt"},
		{"none", Secrets{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.secrets.Key(); got != tt.want {
				t.Errorf("Key() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRequireKey(t *testing.T) {
	_, err := Secrets{}.RequireKey()
	if !broadcast.IsCode(err, broadcast.ErrorCodeConfig) {
		t.Fatalf("RequireKey() error = %v, want CONFIG", err)
	}
	if !errors.Is(err, broadcast.ErrMissingStreamKey) {
		t.Errorf("RequireKey() error = %v, want ErrMissingStreamKey", err)
	}

	key, err := Secrets{StreamKey: "k"}.RequireKey()
	if err != nil || key != "k" {
		t.Errorf("RequireKey() = %q, %v", key, err)
	}
}

func TestLoadSecrets(t *testing.T) {
	t.Run("from environment", func(t *testing.T) {
		t.Setenv("STORYCAST_STREAM_KEY", "env-key")
		unsetenv(t, "YOUTUBE_STREAM_KEY")

		s, err := LoadSecrets(filepath.Join(t.TempDir(), "missing.env"))
		if err != nil {
			t.Fatalf("LoadSecrets() error = %v", err)
		}
		if s.Key() != "env-key" {
			t.Errorf("Key() = %q, want env-key", s.Key())
		}
	})

	t.Run("from dotenv", func(t *testing.T) {
		unsetenv(t, "STORYCAST_STREAM_KEY")
		unsetenv(t, "YOUTUBE_STREAM_KEY")

		path := filepath.Join(t.TempDir(), ".env")
		if err := os.WriteFile(path, []byte("YOUTUBE_STREAM_KEY=dot-key\n"), 0o600); err != nil {
			t.Fatal(err)
		}
		s, err := LoadSecrets(path)
		if err != nil {
			t.Fatalf("LoadSecrets() error = %v", err)
		}
		if s.Key() != "dot-key" {
			t.Errorf("Key() = %q, want dot-key", s.Key())
		}
	})

	t.Run("environment beats dotenv", func(t *testing.T) {
		unsetenv(t, "YOUTUBE_STREAM_KEY")
		t.Setenv("STORYCAST_STREAM_KEY", "env-key")

		path := filepath.Join(t.TempDir(), ".env")
		if err := os.WriteFile(path, []byte("STORYCAST_STREAM_KEY=dot-key\n"), 0o600); err != nil {
			t.Fatal(err)
		}
		s, err := LoadSecrets(path)
		if err != nil {
			t.Fatalf("LoadSecrets() error = %v", err)
		}
		if s.Key() != "env-key" {
			t.Errorf("Key() = %q, want env-key", s.Key())
		}
	})
}
