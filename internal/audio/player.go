package audio

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgnsrekt/storycast/internal/broadcast"
	"github.com/ebitengine/oto/v3"
)

// PlayerState represents the current state of a playback channel.
type PlayerState int32

const (
	StateStopped PlayerState = iota
	StatePlaying
	StateClosed
)

// String returns the string representation of the player state.
func (s PlayerState) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StatePlaying:
		return "playing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ErrPlayerClosed is returned by Play after Close.
var ErrPlayerClosed = errors.New("player is closed")

// Player is the single playback channel of the broadcast, backed by oto.
// Play replaces the running clip; there is never more than one oto player
// alive.
type Player struct {
	// OTO context - initialized once per process
	context *oto.Context
	format  Format

	// Current playback
	player *oto.Player

	// Keep the PCM alive while oto reads from it
	active    []byte
	startedAt time.Time

	state  atomic.Int32
	volume atomic.Uint64 // volume * 1e6

	mu sync.Mutex
}

// PlayerConfig contains configuration for the audio player.
type PlayerConfig struct {
	Format     Format
	BufferSize time.Duration // oto device buffer, 0 uses the driver default
}

// DefaultPlayerConfig returns the default player configuration.
func DefaultPlayerConfig() PlayerConfig {
	return PlayerConfig{
		Format:     DefaultFormat(),
		BufferSize: 100 * time.Millisecond,
	}
}

// NewPlayer opens the audio device. oto allows one context per process.
func NewPlayer(config PlayerConfig) (*Player, error) {
	if err := config.Format.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	op := &oto.NewContextOptions{
		SampleRate:   config.Format.SampleRate,
		ChannelCount: config.Format.Channels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   config.BufferSize,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}

	// Wait for context to be ready
	<-readyChan

	p := &Player{
		context: ctx,
		format:  config.Format,
	}
	p.state.Store(int32(StateStopped))
	p.SetVolume(1.0)

	return p, nil
}

// Format returns the PCM layout clips must use.
func (p *Player) Format() Format {
	return p.format
}

// Play starts the clip, stopping whatever was playing.
func (p *Player) Play(clip broadcast.Clip) error {
	if clip == nil {
		return errors.New("clip is nil")
	}
	pcm := clip.PCM()
	if len(pcm) == 0 {
		return errors.New("audio data is empty")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if PlayerState(p.state.Load()) == StateClosed {
		return ErrPlayerClosed
	}

	p.stopLocked()

	player := p.context.NewPlayer(bytes.NewReader(pcm))
	if player == nil {
		return errors.New("failed to create oto player")
	}
	player.SetVolume(p.getVolume())

	p.player = player
	p.active = pcm
	p.startedAt = time.Now()

	player.Play()
	p.state.Store(int32(StatePlaying))

	return nil
}

// Busy reports whether a clip is still sounding. A finished clip releases
// its oto player on the first call that observes it idle.
func (p *Player) Busy() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.player == nil {
		return false
	}
	if p.player.IsPlaying() {
		return true
	}
	p.stopLocked()
	return false
}

// Elapsed returns how long the current clip has been playing.
func (p *Player) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.player == nil {
		return 0
	}
	return time.Since(p.startedAt)
}

// Stop halts playback.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()
}

// stopLocked stops playback; p.mu must be held.
func (p *Player) stopLocked() {
	if p.player != nil {
		p.player.Pause()
		_ = p.player.Close()
		p.player = nil
	}
	p.active = nil
	if PlayerState(p.state.Load()) != StateClosed {
		p.state.Store(int32(StateStopped))
	}
}

// SetVolume sets the playback volume (0.0 to 1.0).
func (p *Player) SetVolume(volume float64) error {
	if volume < 0.0 || volume > 1.0 {
		return fmt.Errorf("volume must be between 0.0 and 1.0, got %f", volume)
	}
	p.volume.Store(uint64(volume * 1000000))

	p.mu.Lock()
	if p.player != nil {
		p.player.SetVolume(volume)
	}
	p.mu.Unlock()

	return nil
}

func (p *Player) getVolume() float64 {
	return float64(p.volume.Load()) / 1000000.0
}

// GetState returns the current player state.
func (p *Player) GetState() PlayerState {
	return PlayerState(p.state.Load())
}

// Close stops playback and marks the player unusable.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()
	// oto.Context has no Close in v3; the device is released at exit.
	p.state.Store(int32(StateClosed))
	return nil
}
