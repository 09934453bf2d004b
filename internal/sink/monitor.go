package sink

import (
	"bytes"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

const tailLines = 8

// monitor receives encoder output. Lines mentioning errors or failures are
// logged at warn, progress lines at debug no more than once per interval.
// ffmpeg ends progress lines with \r, so both \r and \n end a line.
type monitor struct {
	logger *log.Logger
	every  time.Duration
	now    func() time.Time

	mu           sync.Mutex
	partial      []byte
	tail         []string
	lastProgress time.Time
	closed       bool
}

var _ io.WriteCloser = (*monitor)(nil)

func newMonitor(logger *log.Logger, every time.Duration) *monitor {
	return &monitor{logger: logger, every: every, now: time.Now}
}

// Write splits p into lines and handles each complete one.
func (m *monitor) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.partial = append(m.partial, p...)
	for {
		i := bytes.IndexAny(m.partial, "\r\n")
		if i < 0 {
			break
		}
		m.handle(string(m.partial[:i]))
		m.partial = m.partial[i+1:]
	}
	return len(p), nil
}

// Close flushes a trailing line without terminator.
func (m *monitor) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.closed && len(m.partial) > 0 {
		m.handle(string(m.partial))
		m.partial = nil
	}
	m.closed = true
	return nil
}

// Tail returns a copy of the last lines seen.
func (m *monitor) Tail() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.tail...)
}

func (m *monitor) handle(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}

	m.tail = append(m.tail, line)
	if len(m.tail) > tailLines {
		m.tail = m.tail[len(m.tail)-tailLines:]
	}

	lower := strings.ToLower(line)
	switch {
	case strings.Contains(lower, "error") || strings.Contains(lower, "fail"):
		m.logger.Warn("encoder", "line", line)
	case strings.Contains(line, "kB/s"):
		if now := m.now(); now.Sub(m.lastProgress) >= m.every {
			m.lastProgress = now
			m.logger.Debug("encoder progress", "line", line)
		}
	}
}
