package ui

// Config contains preview-specific configuration.
type Config struct {
	// FPS is the tick rate of the engine inside the preview.
	FPS int

	// AutoStart mirrors engine.auto_start; when false the preview waits for
	// the start key.
	AutoStart bool

	// MaxWidth caps the wrap width of the dialogue text; 0 uses the
	// terminal width.
	MaxWidth int

	// Kept just in case the alternate screen misbehaves in a terminal.
	AltScreen bool `env:"STORYCAST_ALT_SCREEN" envDefault:"true"`

	// For debugging the preview
	ShowState bool `env:"STORYCAST_PREVIEW_DEBUG"`
}
