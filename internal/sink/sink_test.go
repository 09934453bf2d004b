package sink

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/storycast/internal/broadcast"
	"github.com/dgnsrekt/storycast/internal/capture"
)

// The test binary doubles as a fake encoder when this variable is set.
const fakeEncoderEnv = "STORYCAST_FAKE_ENCODER"

func TestMain(m *testing.M) {
	mode := os.Getenv(fakeEncoderEnv)
	if mode == "" {
		os.Exit(m.Run())
	}
	os.Exit(fakeEncoder(mode))
}

// fakeEncoder emulates the encoder side of the pipe.
func fakeEncoder(mode string) int {
	if path := os.Getenv("STORYCAST_FAKE_ARGS"); path != "" {
		os.WriteFile(path, []byte(strings.Join(os.Args[1:], "\n")), 0o644)
	}

	switch {
	case mode == "consume":
		io.Copy(io.Discard, os.Stdin)
		fmt.Fprint(os.Stderr, "frame=  10 fps=30 550kB/s\r")
		return 0

	case strings.HasPrefix(mode, "exit-after:"):
		n, _ := strconv.Atoi(strings.TrimPrefix(mode, "exit-after:"))
		io.CopyN(io.Discard, os.Stdin, int64(n))
		fmt.Fprintln(os.Stderr, "Error: connection to ingest failed")
		return 1

	case mode == "stubborn":
		signal.Ignore(os.Interrupt, syscall.SIGTERM)
		io.Copy(io.Discard, os.Stdin)
		time.Sleep(time.Hour)
		return 0

	case mode == "slow-exit":
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt)
		io.Copy(io.Discard, os.Stdin)
		<-ch
		return 0
	}
	return 2
}

func testConfig(t *testing.T, mode string) Config {
	t.Helper()
	t.Setenv(fakeEncoderEnv, mode)

	config := DefaultConfig()
	config.Binary = os.Args[0]
	config.Width = 320
	config.Height = 180
	config.StreamKey = "test-key"
	config.GracePeriod = 100 * time.Millisecond
	return config
}

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

func waitExited(t *testing.T, s *Sink) {
	t.Helper()
	select {
	case <-s.Exited():
	case <-time.After(5 * time.Second):
		t.Fatal("encoder process still running")
	}
}

func TestOpenWithoutKeyDoesNotSpawn(t *testing.T) {
	config := testConfig(t, "consume")
	marker := filepath.Join(t.TempDir(), "spawned")
	t.Setenv("STORYCAST_FAKE_ARGS", marker)
	config.StreamKey = "  "

	s, err := Open(context.Background(), config, capture.Silent{}, WithLogger(quietLogger()))
	if err == nil {
		s.Close()
		t.Fatal("Open succeeded without a stream key")
	}
	if !broadcast.IsCode(err, broadcast.ErrorCodeConfig) || !errors.Is(err, broadcast.ErrMissingStreamKey) {
		t.Errorf("err = %v, want CONFIG error for missing key", err)
	}

	time.Sleep(50 * time.Millisecond)
	if _, statErr := os.Stat(marker); statErr == nil {
		t.Error("encoder was started despite the missing key")
	}
}

func TestOpenMissingBinary(t *testing.T) {
	config := testConfig(t, "consume")
	config.Binary = "storycast-no-such-encoder"

	_, err := Open(context.Background(), config, nil, WithLogger(quietLogger()))
	if !broadcast.IsCode(err, broadcast.ErrorCodeConfig) || !errors.Is(err, broadcast.ErrEncoderNotFound) {
		t.Errorf("err = %v, want CONFIG error wrapping ErrEncoderNotFound", err)
	}
	if !broadcast.IsFatal(err) {
		t.Error("config error should be fatal")
	}
}

func TestWriteFramesAndClose(t *testing.T) {
	config := testConfig(t, "consume")
	argsFile := filepath.Join(t.TempDir(), "args")
	t.Setenv("STORYCAST_FAKE_ARGS", argsFile)

	s, err := Open(context.Background(), config, capture.Silent{}, WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	frame := make([]byte, config.FrameSize())
	for i := 0; i < 10; i++ {
		if err := s.Write(frame); err != nil {
			t.Fatalf("Write %d: %v", i, err)
		}
	}
	if s.Frames() != 10 || s.Bytes() != int64(10*len(frame)) {
		t.Errorf("frames = %d bytes = %d", s.Frames(), s.Bytes())
	}

	if err := s.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	waitExited(t, s)

	if err := s.Write(frame); !errors.Is(err, broadcast.ErrSinkClosed) {
		t.Errorf("Write after Close = %v, want ErrSinkClosed", err)
	}

	recorded, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatal(err)
	}
	got := strings.Split(string(recorded), "\n")
	want := Args(config, capture.Silent{})
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Errorf("encoder args = %v, want %v", got, want)
	}
}

func TestWrongFrameSize(t *testing.T) {
	config := testConfig(t, "consume")
	s, err := Open(context.Background(), config, nil, WithLogger(quietLogger()))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if err := s.Write(make([]byte, 10)); !errors.Is(err, ErrFrameSize) {
		t.Errorf("err = %v, want ErrFrameSize", err)
	}
	if err := s.Write(make([]byte, config.FrameSize())); err != nil {
		t.Errorf("a wrong-sized frame poisoned the sink: %v", err)
	}
}

func TestPipeErrorStopsWrites(t *testing.T) {
	config := testConfig(t, "exit-after:1000")
	var logs bytes.Buffer
	s, err := Open(context.Background(), config, nil, WithLogger(log.New(&logs)))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	frame := make([]byte, config.FrameSize())
	var werr error
	deadline := time.Now().Add(5 * time.Second)
	for werr == nil && time.Now().Before(deadline) {
		werr = s.Write(frame)
	}
	if werr == nil {
		t.Fatal("writes kept succeeding after the encoder exited")
	}
	if !broadcast.IsCode(werr, broadcast.ErrorCodePipe) || !broadcast.IsFatal(werr) {
		t.Fatalf("err = %v, want fatal PIPE error", werr)
	}

	waitExited(t, s)
	written := s.Bytes()
	for i := 0; i < 3; i++ {
		if err := s.Write(frame); err != werr {
			t.Errorf("later Write = %v, want the first pipe error", err)
		}
	}
	if s.Bytes() != written {
		t.Errorf("bytes written after pipe error: %d -> %d", written, s.Bytes())
	}
}

func TestCloseEscalates(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("interrupt signals are not supported on windows")
	}

	tests := []struct {
		mode string
	}{
		{"slow-exit"},
		{"stubborn"},
	}

	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			config := testConfig(t, tt.mode)
			s, err := Open(context.Background(), config, nil, WithLogger(quietLogger()))
			if err != nil {
				t.Fatal(err)
			}

			// Let the child install its signal handling.
			time.Sleep(200 * time.Millisecond)

			start := time.Now()
			s.Close()
			waitExited(t, s)
			if elapsed := time.Since(start); elapsed > 3*time.Second {
				t.Errorf("Close took %s", elapsed)
			}
		})
	}
}

func TestContextCancelInterruptsEncoder(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("interrupt signals are not supported on windows")
	}

	config := testConfig(t, "slow-exit")
	ctx, cancel := context.WithCancel(context.Background())
	s, err := Open(ctx, config, nil, WithLogger(quietLogger()))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	time.Sleep(200 * time.Millisecond)
	cancel()
	waitExited(t, s)
}
