package main

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/cobra"

	"github.com/dgnsrekt/storycast/ui"
)

var (
	previewWidth int

	previewCmd = &cobra.Command{
		Use:   "preview",
		Short: "Watch the broadcast in the terminal",
		Long: paragraph(fmt.Sprintf("\n%s the story loop in the terminal with narration, without starting the encoder. No stream key is needed.",
			keyword("Preview"))),
		Example: paragraph("storycast preview\nstorycast preview --audio=false --width 60"),
		Args:    cobra.NoArgs,
		RunE:    runPreview,
	}
)

func runPreview(*cobra.Command, []string) error {
	// Read environment to get debugging stuff
	cfg, err := env.ParseAs[ui.Config]()
	if err != nil {
		return fmt.Errorf("error parsing config: %v", err)
	}
	cfg.FPS = settings.FPS
	cfg.AutoStart = settings.AutoStart
	cfg.MaxWidth = previewWidth

	logToFileOnly()
	logger := sessionLogger()

	st, err := openStation(settings, settings.Engine(), logger)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	// Run Bubble Tea program
	if _, err := ui.NewProgram(cfg, st.engine).Run(); err != nil {
		return fmt.Errorf("unable to run tui program: %w", err)
	}
	return nil
}
