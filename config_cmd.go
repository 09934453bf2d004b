package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultConfig = `# story API
api:
  base: "http://localhost:4000"
  endpoint: "/story"

fetch:
  story_timeout: "15s"
  asset_timeout: "10s"
  shutdown_grace: "2s"

# presentation timings
engine:
  reveal_interval: "30ms"
  dwell: "2s"
  line_gap: "300ms"
  cycle_pause: "5s"
  retry_cooldown: "5s"
  auto_start: true

video:
  width: 1920
  height: 1080
  fps: 30

# the stream key is read from STORYCAST_STREAM_KEY, never from this file
encoder:
  binary: "ffmpeg"
  preset: "veryfast"
  video_bitrate: "4500k"
  max_rate: "5000k"
  buffer_size: "10000k"
  audio_bitrate: "128k"
  url: "rtmp://a.rtmp.youtube.com/live2"
  grace_period: "3s"

# auto, pulse, alsa, dshow, avfoundation or silent
capture:
  backend: "auto"
  # device: "default"

audio:
  enabled: true
  sample_rate: 44100
  channels: 1

cache:
  enabled: true
  # dir: "~/.cache/storycast/audio"
  memory_mb: 64
  disk_mb: 512
  ttl_days: 7

# debug, info, warn or error; reloaded when this file changes
log_level: "info"
`

var configCmd = &cobra.Command{
	Use:         "config",
	Hidden:      false,
	Short:       "Edit the storycast config file",
	Long:        paragraph(fmt.Sprintf("\n%s the storycast config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
	Example:     paragraph("storycast config\nstorycast config --config path/to/config.yml"),
	Args:        cobra.NoArgs,
	Annotations: map[string]string{skipSettings: "true"},
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("storycast", configFile)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		fmt.Println("Wrote config file to:", configFile)
		return nil
	},
}

func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.GetViper().ConfigFileUsed()
	}
	if configFile == "" {
		configFile = defaultConfigPath
	}
	if configFile == "" {
		return errors.New("no configuration file location found")
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		// File doesn't exist yet, create all necessary directories and
		// write the default config file
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
			return fmt.Errorf("unable create directory: %w", err)
		}

		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("unable to create config file: %w", err)
		}
		defer func() { _ = f.Close() }()

		if _, err := f.WriteString(defaultConfig); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil { // some other error occurred
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}
