package loop

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"golang.org/x/time/rate"

	"github.com/dgnsrekt/storycast/internal/broadcast"
)

// Engine is the state machine driven by the loop.
type Engine interface {
	Advance(dt time.Duration)
	Snapshot() broadcast.Snapshot
}

// Renderer turns a snapshot into frame bytes.
type Renderer interface {
	Render(snap broadcast.Snapshot) []byte
}

// Sink consumes frames. Write may block; that is the backpressure.
type Sink interface {
	Write(frame []byte) error
}

// Clock supplies the time used to measure dt.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Config configures a Loop.
type Config struct {
	FPS int
	// StatsEvery is the interval between stats log lines; zero disables them.
	StatsEvery time.Duration
	// MaxFrames stops the loop after that many frames; zero runs until cancelled.
	MaxFrames int64
}

// Stats summarises a run.
type Stats struct {
	Frames  int64
	Bytes   int64
	Elapsed time.Duration
}

// Loop ticks the engine at a fixed rate.
type Loop struct {
	config   Config
	engine   Engine
	renderer Renderer
	sink     Sink
	clock    Clock
	limiter  *rate.Limiter
	logger   *log.Logger

	stats Stats
}

// Option customises a Loop.
type Option func(*Loop)

// WithClock replaces the wall clock used for dt.
func WithClock(c Clock) Option {
	return func(l *Loop) { l.clock = c }
}

// WithLimiter replaces the frame pacer, for example with rate.Inf in tests.
func WithLimiter(lim *rate.Limiter) Option {
	return func(l *Loop) { l.limiter = lim }
}

// WithLogger sets the logger.
func WithLogger(lg *log.Logger) Option {
	return func(l *Loop) { l.logger = lg }
}

// New creates a Loop.
func New(config Config, engine Engine, renderer Renderer, sink Sink, opts ...Option) (*Loop, error) {
	if config.FPS <= 0 {
		return nil, fmt.Errorf("invalid frame rate %d", config.FPS)
	}
	l := &Loop{
		config:   config,
		engine:   engine,
		renderer: renderer,
		sink:     sink,
		clock:    realClock{},
		limiter:  rate.NewLimiter(rate.Limit(config.FPS), 1),
		logger:   log.Default().WithPrefix("loop"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Run ticks until ctx is cancelled, MaxFrames is reached or the sink fails.
// Cancellation returns nil. A sink failure is returned wrapped; a PipeError
// keeps its code so callers can treat it as fatal.
func (l *Loop) Run(ctx context.Context) error {
	start := l.clock.Now()
	last := start
	lastStats := start

	defer func() {
		l.stats.Elapsed = l.clock.Now().Sub(start)
		l.logStats("loop stopped")
	}()

	for l.config.MaxFrames == 0 || l.stats.Frames < l.config.MaxFrames {
		if err := l.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("frame pacer: %w", err)
		}

		now := l.clock.Now()
		dt := now.Sub(last)
		last = now

		l.engine.Advance(dt)
		frame := l.renderer.Render(l.engine.Snapshot())

		if err := l.sink.Write(frame); err != nil {
			// An interrupt reaches the encoder too; its broken pipe is
			// part of the shutdown.
			if ctx.Err() != nil {
				l.logger.Debug("frame sink closed during shutdown", "err", err)
				return nil
			}
			if broadcast.IsFatal(err) {
				l.logger.Error("frame sink failed, stopping broadcast", "err", err)
			}
			return fmt.Errorf("write frame %d: %w", l.stats.Frames, err)
		}
		l.stats.Frames++
		l.stats.Bytes += int64(len(frame))

		if l.config.StatsEvery > 0 && now.Sub(lastStats) >= l.config.StatsEvery {
			lastStats = now
			l.stats.Elapsed = now.Sub(start)
			l.logStats("broadcast stats")
		}

		if ctx.Err() != nil {
			return nil
		}
	}
	return nil
}

// Stats returns the counters of the current or last run.
func (l *Loop) Stats() Stats {
	return l.stats
}

func (l *Loop) logStats(msg string) {
	fps := 0.0
	if secs := l.stats.Elapsed.Seconds(); secs > 0 {
		fps = float64(l.stats.Frames) / secs
	}
	l.logger.Info(msg,
		"frames", humanize.Comma(l.stats.Frames),
		"sent", humanize.Bytes(uint64(l.stats.Bytes)),
		"uptime", l.stats.Elapsed.Round(time.Second),
		"fps", fmt.Sprintf("%.1f", fps))
}

// IsShutdown reports whether err from Run ends the session for good.
func IsShutdown(err error) bool {
	return err != nil && (broadcast.IsFatal(err) || errors.Is(err, broadcast.ErrSinkClosed))
}
