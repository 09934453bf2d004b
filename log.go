package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
	"golang.org/x/term"

	"github.com/dgnsrekt/storycast/internal/config"
)

var (
	logFile *os.File

	// Loggers handed to components copy the level of their parent when
	// created, so a reload has to reach each of them.
	loggersMu sync.Mutex
	loggers   []*log.Logger
)

func getLogFilePath() (string, error) {
	dir, err := gap.NewScope(gap.User, config.AppName).CacheDir()
	if err != nil {
		return "", fmt.Errorf("could not find cache directory: %w", err)
	}
	return filepath.Join(dir, config.AppName+".log"), nil
}

// setupLog writes log lines to stderr and to the log file in the user cache
// directory.
func setupLog() (func() error, error) {
	path, err := getLogFilePath()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil { //nolint:gosec
		return nil, fmt.Errorf("unable to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("unable to open log file: %w", err)
	}
	logFile = f

	log.SetOutput(io.MultiWriter(os.Stderr, f))
	log.SetReportTimestamp(true)
	if term.IsTerminal(int(os.Stderr.Fd())) { //nolint:gosec
		log.SetFormatter(log.TextFormatter)
	} else {
		log.SetFormatter(log.LogfmtFormatter)
	}
	return f.Close, nil
}

// logToFileOnly keeps log lines off the terminal while the preview owns it.
func logToFileOnly() {
	if logFile == nil {
		log.SetOutput(io.Discard)
		return
	}
	log.SetOutput(logFile)
}

// newLogger returns a component logger that follows level reloads.
func newLogger(parent *log.Logger, prefix string) *log.Logger {
	l := parent.WithPrefix(prefix)
	loggersMu.Lock()
	loggers = append(loggers, l)
	loggersMu.Unlock()
	return l
}

func setLevel(lvl log.Level) {
	log.SetLevel(lvl)
	loggersMu.Lock()
	defer loggersMu.Unlock()
	for _, l := range loggers {
		l.SetLevel(lvl)
	}
}
