package engine

import (
	"fmt"
	"time"
)

// Default timings.
const (
	DefaultRevealInterval = 30 * time.Millisecond
	DefaultDwell          = 2000 * time.Millisecond
	DefaultLineGap        = 300 * time.Millisecond
	DefaultCyclePause     = 5000 * time.Millisecond
	DefaultRetryCooldown  = 5000 * time.Millisecond
)

// Config holds the engine timings.
type Config struct {
	// RevealInterval is the time per revealed character.
	RevealInterval time.Duration
	// Dwell is how long a line without audio stays after its reveal completes.
	Dwell time.Duration
	// LineGap is the pause between lines. Frames keep flowing during it.
	LineGap time.Duration
	// CyclePause is the wait in Waiting before the next fetch.
	CyclePause time.Duration
	// RetryCooldown is the wait in Error before the fetch is retried.
	RetryCooldown time.Duration
	// AutoStart leaves Idle on the first Advance. Otherwise Start must be called.
	AutoStart bool
}

// DefaultConfig returns the default timings with AutoStart enabled.
func DefaultConfig() Config {
	return Config{
		RevealInterval: DefaultRevealInterval,
		Dwell:          DefaultDwell,
		LineGap:        DefaultLineGap,
		CyclePause:     DefaultCyclePause,
		RetryCooldown:  DefaultRetryCooldown,
		AutoStart:      true,
	}
}

// Validate rejects negative durations and a zero reveal interval.
func (c Config) Validate() error {
	if c.RevealInterval <= 0 {
		return fmt.Errorf("reveal interval must be positive, got %s", c.RevealInterval)
	}
	for name, d := range map[string]time.Duration{
		"dwell":          c.Dwell,
		"line gap":       c.LineGap,
		"cycle pause":    c.CyclePause,
		"retry cooldown": c.RetryCooldown,
	} {
		if d < 0 {
			return fmt.Errorf("%s must not be negative, got %s", name, d)
		}
	}
	return nil
}
