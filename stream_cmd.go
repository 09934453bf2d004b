package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgnsrekt/storycast/internal/config"
	"github.com/dgnsrekt/storycast/internal/loop"
	"github.com/dgnsrekt/storycast/internal/render"
	"github.com/dgnsrekt/storycast/internal/sink"
)

var (
	maxFrames  int64
	statsEvery time.Duration

	streamCmd = &cobra.Command{
		Use:   "stream",
		Short: "Broadcast stories to the configured RTMP endpoint",
		Long: paragraph(fmt.Sprintf("\n%s rendered frames and captured audio to the encoder until interrupted. The stream key is read from STORYCAST_STREAM_KEY or YOUTUBE_STREAM_KEY, optionally via a .env file.",
			keyword("Stream"))),
		Example: paragraph("storycast stream\nstorycast stream --api http://stories.local:4000 --fps 24"),
		Args:    cobra.NoArgs,
		RunE:    runStream,
	}
)

func addStreamFlags(cmd *cobra.Command) {
	cmd.Flags().Int64Var(&maxFrames, "max-frames", 0, "stop after this many frames (0 streams until interrupted)")
	cmd.Flags().DurationVar(&statsEvery, "stats-every", 30*time.Second, "interval between stats log lines (0 disables)")
}

func runStream(cmd *cobra.Command, _ []string) error {
	secrets, err := config.LoadSecrets(envFile)
	if err != nil {
		return err
	}
	key, err := secrets.RequireKey()
	if err != nil {
		return err
	}

	backend, err := settings.Capture()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := sessionLogger()
	lg := newLogger(logger, "stream")

	st, err := openStation(settings, settings.StreamEngine(), logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			lg.Warn("Shutdown was not clean", "err", err)
		}
	}()

	r, err := render.New(settings.Width, settings.Height)
	if err != nil {
		return err
	}

	out, err := sink.Open(ctx, settings.Sink(key), backend, sink.WithLogger(newLogger(logger, "sink")))
	if err != nil {
		return err
	}
	defer func() {
		if err := out.Close(); err != nil {
			lg.Warn("Encoder did not exit cleanly", "err", err)
		}
	}()

	l, err := loop.New(loop.Config{
		FPS:        settings.FPS,
		StatsEvery: statsEvery,
		MaxFrames:  maxFrames,
	}, st.engine, r, out, loop.WithLogger(newLogger(logger, "loop")))
	if err != nil {
		return err
	}

	lg.Info("Broadcast started",
		"api", settings.APIBase,
		"destination", settings.EncoderURL,
		"size", fmt.Sprintf("%dx%d", settings.Width, settings.Height),
		"fps", settings.FPS,
		"capture", backend.Name())

	err = l.Run(ctx)
	if errors.Is(err, sink.ErrFrameSize) {
		return fmt.Errorf("renderer and encoder disagree on frame size: %w", err)
	}
	if err != nil {
		if loop.IsShutdown(err) {
			lg.Error("Broadcast ended", "err", err, "encoder", out.Tail())
		}
		return err
	}
	lg.Info("Broadcast stopped", "frames", l.Stats().Frames)
	return nil
}
