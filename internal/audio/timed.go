package audio

import (
	"errors"
	"sync"
	"time"

	"github.com/dgnsrekt/storycast/internal/broadcast"
)

// TimedChannel is a playback channel without an audio device. It reports
// busy for the clip's duration measured on its clock. It keeps line pacing
// identical to real playback on headless hosts.
type TimedChannel struct {
	mu    sync.Mutex
	now   func() time.Time
	until time.Time
	plays int
}

// NewTimedChannel returns a channel measuring time with now, or time.Now
// when now is nil.
func NewTimedChannel(now func() time.Time) *TimedChannel {
	if now == nil {
		now = time.Now
	}
	return &TimedChannel{now: now}
}

// Play starts the clip, replacing any clip still running.
func (c *TimedChannel) Play(clip broadcast.Clip) error {
	if clip == nil {
		return errors.New("clip is nil")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.until = c.now().Add(clip.Duration())
	c.plays++
	return nil
}

// Busy reports whether the last clip's duration has not elapsed yet.
func (c *TimedChannel) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now().Before(c.until)
}

// Plays returns how many clips were started.
func (c *TimedChannel) Plays() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.plays
}

// MockChannel is a playback channel for tests. It records played clips and
// reports busy until the test releases it.
type MockChannel struct {
	mu      sync.Mutex
	busy    bool
	played  []broadcast.Clip
	PlayErr error
}

// NewMockChannel returns an idle mock channel.
func NewMockChannel() *MockChannel {
	return &MockChannel{}
}

// Play records the clip and marks the channel busy.
func (m *MockChannel) Play(clip broadcast.Clip) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PlayErr != nil {
		return m.PlayErr
	}
	m.played = append(m.played, clip)
	m.busy = true
	return nil
}

// Busy reports the flag set by Play and cleared by Finish.
func (m *MockChannel) Busy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.busy
}

// Finish marks the current clip as done.
func (m *MockChannel) Finish() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.busy = false
}

// Played returns the clips started so far, in order.
func (m *MockChannel) Played() []broadcast.Clip {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]broadcast.Clip, len(m.played))
	copy(out, m.played)
	return out
}
