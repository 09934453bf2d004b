package sink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/storycast/internal/broadcast"
	"github.com/dgnsrekt/storycast/internal/capture"
)

// ErrFrameSize is returned for a frame that is not exactly Width*Height*3 bytes.
var ErrFrameSize = errors.New("frame size does not match the encoder input")

// Sink is a running encoder fed through its stdin.
type Sink struct {
	config Config
	logger *log.Logger

	cmd     *exec.Cmd
	stdin   io.WriteCloser
	monitor *monitor

	exited  chan struct{}
	waitErr error

	mu     sync.Mutex
	err    error // first pipe error, returned by every later Write
	closed bool

	closeOnce sync.Once
	closeErr  error

	frames atomic.Int64
	bytes  atomic.Int64
}

// Option customises a Sink.
type Option func(*Sink)

// WithLogger sets the logger for the sink and its stderr monitor.
func WithLogger(l *log.Logger) Option {
	return func(s *Sink) { s.logger = l }
}

// Open starts the encoder. It fails with a ConfigError, without starting
// anything, when the stream key is empty, the configuration is invalid or
// the encoder binary cannot be found. Cancelling ctx interrupts the encoder.
func Open(ctx context.Context, config Config, backend capture.Backend, opts ...Option) (*Sink, error) {
	if strings.TrimSpace(config.StreamKey) == "" {
		return nil, broadcast.ConfigError("cannot open frame sink", broadcast.ErrMissingStreamKey)
	}
	if err := config.validate(); err != nil {
		return nil, broadcast.ConfigError("invalid encoder configuration", err)
	}
	if config.Binary == "" {
		config.Binary = "ffmpeg"
	}
	path, err := exec.LookPath(config.Binary)
	if err != nil {
		return nil, broadcast.ConfigError(fmt.Sprintf("cannot run %q", config.Binary),
			fmt.Errorf("%w: %v", broadcast.ErrEncoderNotFound, err))
	}
	if config.GracePeriod <= 0 {
		config.GracePeriod = DefaultConfig().GracePeriod
	}
	if config.ProgressEvery <= 0 {
		config.ProgressEvery = DefaultConfig().ProgressEvery
	}

	s := &Sink{
		config: config,
		logger: log.Default().WithPrefix("sink"),
		exited: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	args := Args(config, backend)
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Cancel = func() error { return cmd.Process.Signal(os.Interrupt) }
	cmd.WaitDelay = config.GracePeriod

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdin pipe: %w", err)
	}
	s.monitor = newMonitor(s.logger, config.ProgressEvery)
	cmd.Stdout = s.monitor
	cmd.Stderr = s.monitor

	s.logger.Info("starting encoder",
		"binary", path,
		"size", fmt.Sprintf("%dx%d", config.Width, config.Height),
		"fps", config.FPS,
		"capture", backendName(backend))
	s.logger.Debug("encoder arguments", "args", strings.Join(Redact(args, config.StreamKey), " "))

	if err := cmd.Start(); err != nil {
		return nil, broadcast.ConfigError("failed to start encoder", err)
	}
	s.cmd = cmd
	s.stdin = stdin

	go func() {
		s.waitErr = cmd.Wait()
		s.monitor.Close()
		close(s.exited)
	}()

	return s, nil
}

// Write sends one frame and blocks until the encoder has taken it. A broken
// pipe is returned as a fatal PipeError; from then on the encoder is
// stopped and every Write returns the same error without writing.
func (s *Sink) Write(frame []byte) error {
	s.mu.Lock()
	if s.err != nil {
		err := s.err
		s.mu.Unlock()
		return err
	}
	if s.closed {
		s.mu.Unlock()
		return broadcast.PipeError("write after close", broadcast.ErrSinkClosed)
	}
	s.mu.Unlock()

	if len(frame) != s.config.FrameSize() {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrFrameSize, len(frame), s.config.FrameSize())
	}

	n, err := s.stdin.Write(frame)
	s.bytes.Add(int64(n))
	if err == nil {
		s.frames.Add(1)
		return nil
	}

	var perr error = broadcast.PipeError("encoder pipe broken", s.describe(err))
	s.mu.Lock()
	if s.err == nil {
		s.err = perr
	}
	perr = s.err
	s.mu.Unlock()

	s.logger.Error("frame write failed, stopping encoder", "err", err, "frames", s.frames.Load())
	s.Close()
	return perr
}

// describe attaches the encoder's last words to a write error.
func (s *Sink) describe(err error) error {
	if tail := s.monitor.Tail(); len(tail) > 0 {
		return fmt.Errorf("%w (encoder: %s)", err, tail[len(tail)-1])
	}
	return err
}

// Close stops the encoder: stdin is closed so it can flush, then after the
// grace period it is interrupted, then killed. Close is idempotent.
func (s *Sink) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		s.stdin.Close()
		grace := s.config.GracePeriod

		select {
		case <-s.exited:
		case <-time.After(grace):
			s.logger.Warn("encoder still running, sending interrupt", "grace", grace)
			if err := s.cmd.Process.Signal(os.Interrupt); err != nil {
				s.cmd.Process.Kill()
			}
			select {
			case <-s.exited:
			case <-time.After(grace):
				s.logger.Warn("encoder ignored interrupt, killing")
				s.cmd.Process.Kill()
				<-s.exited
			}
		}

		s.logger.Info("encoder stopped", "frames", s.frames.Load(), "err", s.waitErr)
		s.mu.Lock()
		broken := s.err != nil
		s.mu.Unlock()
		if s.waitErr != nil && !broken {
			var exitErr *exec.ExitError
			if !errors.As(s.waitErr, &exitErr) || exitErr.ExitCode() > 0 {
				s.closeErr = fmt.Errorf("encoder exited: %w", s.waitErr)
			}
		}
	})
	return s.closeErr
}

// Exited is closed once the encoder process has exited.
func (s *Sink) Exited() <-chan struct{} {
	return s.exited
}

// Frames returns the number of frames written.
func (s *Sink) Frames() int64 {
	return s.frames.Load()
}

// Bytes returns the number of bytes written.
func (s *Sink) Bytes() int64 {
	return s.bytes.Load()
}

// Tail returns the last lines the encoder printed.
func (s *Sink) Tail() []string {
	return s.monitor.Tail()
}

func backendName(b capture.Backend) string {
	if b == nil {
		return "none"
	}
	return b.Name()
}
