// Package main provides the entry point for the storycast CLI application.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dgnsrekt/storycast/internal/broadcast"
	"github.com/dgnsrekt/storycast/internal/config"
)

// skipSettings marks commands that run without a valid configuration.
const skipSettings = "storycast/skip-settings"

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile        string
	defaultConfigPath string
	envFile           string

	settings  config.Settings
	watchOnce sync.Once

	rootCmd = &cobra.Command{
		Use:   "storycast",
		Short: "Broadcast generated stories live, unattended",
		Long: paragraph(
			fmt.Sprintf("\nFetch stories, narrate them line by line and %s to an RTMP endpoint, around the clock.", keyword("stream them")),
		),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return validateOptions(cmd)
		},
		RunE: runStream,
	}
)

func validateOptions(cmd *cobra.Command) error {
	if cmd.Annotations[skipSettings] == "true" {
		return nil
	}

	path := configFile
	if path == "" {
		path = defaultConfigPath
	}
	if path != "" && path != viper.ConfigFileUsed() {
		if _, err := os.Stat(path); err == nil || configFile != "" {
			viper.SetConfigFile(path)
			if err := viper.ReadInConfig(); err != nil {
				return broadcast.ConfigError("unable to read config file "+path, err)
			}
		}
	}
	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", used)
	}

	s, err := config.Load(viper.GetViper())
	if err != nil {
		return broadcast.ConfigError("invalid configuration", err)
	}
	settings = s
	setLevel(s.Level())
	watchConfig()
	return nil
}

// watchConfig applies log level changes from the config file while running.
// Everything else takes effect on the next start.
func watchConfig() {
	if viper.ConfigFileUsed() == "" {
		return
	}
	watchOnce.Do(func() {
		viper.OnConfigChange(func(e fsnotify.Event) {
			lvl, err := log.ParseLevel(viper.GetString("log_level"))
			if err != nil {
				log.Warn("Ignoring invalid log level", "path", e.Name, "err", err)
				return
			}
			setLevel(lvl)
			log.Info("Configuration reloaded", "path", e.Name, "op", e.Op.String(), "log_level", lvl)
		})
		viper.WatchConfig()
	})
}

// sessionLogger tags every line of one run with a short broadcast id.
func sessionLogger() *log.Logger {
	id := uuid.NewString()
	return log.Default().With("session", id[:8])
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", defaultConfigPath))
	pf.StringVar(&envFile, "env-file", ".env", "dotenv file holding STORYCAST_STREAM_KEY")
	pf.String("api", "", "story API base URL")
	pf.Int("fps", 0, "frames per second")
	pf.Bool("audio", true, "play narration audio")
	pf.String("log-level", "", "debug, info, warn or error")

	addStreamFlags(rootCmd)
	addStreamFlags(streamCmd)
	previewCmd.Flags().IntVar(&previewWidth, "width", 0, "wrap dialogue at width (0 uses the terminal width)")

	// Config bindings
	_ = viper.BindPFlag("api.base", pf.Lookup("api"))
	_ = viper.BindPFlag("video.fps", pf.Lookup("fps"))
	_ = viper.BindPFlag("audio.enabled", pf.Lookup("audio"))
	_ = viper.BindPFlag("log_level", pf.Lookup("log-level"))

	config.SetDefaults(viper.GetViper())

	cacheCmd.AddCommand(cacheInfoCmd, cacheClearCmd)
	rootCmd.AddCommand(streamCmd, previewCmd, cacheCmd, configCmd, manCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, config.AppName)
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not load find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, config.AppName)}, dirs...)
	}

	if c := os.Getenv("STORYCAST_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName(config.AppName)
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix(config.AppName)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		defaultConfigPath = used
		return
	}
	defaultConfigPath = filepath.Join(dirs[0], config.AppName+".yml")
}
