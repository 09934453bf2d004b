package engine

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/storycast/internal/broadcast"
)

// Fetcher starts background fetch cycles and hands back their outcomes.
type Fetcher interface {
	// Start begins a cycle; a no-op while one is running.
	Start()
	// Poll returns the pending outcome at most once.
	Poll() (broadcast.FetchOutcome, bool)
}

// Channel is the single audio playback channel. Play replaces any clip
// that is still sounding.
type Channel interface {
	Play(clip broadcast.Clip) error
	Busy() bool
}

// Engine owns playback. All methods must be called from one goroutine.
type Engine struct {
	config  Config
	fetcher Fetcher
	channel Channel // nil plays every line as a silent one
	logger  *log.Logger

	state  broadcast.State
	packet *broadcast.StoryPacket
	clips  []broadcast.Clip
	index  int
	errMsg string

	// current line
	text      []rune
	revealed  int
	charTimer time.Duration
	dwell     time.Duration
	hasClip   bool

	// non-blocking pause between lines
	gapping bool
	gapLeft time.Duration

	// time since entering Waiting or Error
	stateTimer time.Duration

	cycles int
}

// Option customises an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for transitions.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an Engine in Idle.
func New(config Config, fetcher Fetcher, channel Channel, opts ...Option) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, broadcast.ConfigError("invalid engine timings", err)
	}
	if fetcher == nil {
		return nil, broadcast.ConfigError("engine needs a fetcher", nil)
	}

	e := &Engine{
		config:  config,
		fetcher: fetcher,
		channel: channel,
		logger:  log.Default().WithPrefix("engine"),
		state:   broadcast.StateIdle,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// State returns the current state.
func (e *Engine) State() broadcast.State {
	return e.state
}

// Cycles returns the number of completed story cycles.
func (e *Engine) Cycles() int {
	return e.cycles
}

// Start leaves Idle when AutoStart is off. It has no effect in other states.
func (e *Engine) Start() {
	if e.state == broadcast.StateIdle {
		e.enterLoading()
	}
}

// Advance moves the state machine forward by dt. At most one state
// transition happens per call.
func (e *Engine) Advance(dt time.Duration) {
	if dt < 0 {
		dt = 0
	}

	//exhaustive:enforce
	switch e.state {
	case broadcast.StateIdle:
		if e.config.AutoStart {
			e.enterLoading()
		}

	case broadcast.StateLoading:
		outcome, ok := e.fetcher.Poll()
		if !ok {
			return
		}
		if outcome.OK() {
			e.adopt(outcome)
		} else {
			e.enterError(outcome.Message())
		}

	case broadcast.StatePlaying:
		e.advancePlaying(dt)

	case broadcast.StateWaiting:
		e.stateTimer += dt
		if e.stateTimer >= e.config.CyclePause {
			e.enterLoading()
		}

	case broadcast.StateError:
		e.stateTimer += dt
		if e.stateTimer >= e.config.RetryCooldown {
			e.enterLoading()
		}

	default:
		panic(fmt.Sprintf("engine: unhandled state %v", e.state))
	}
}

// Snapshot returns a copy of the presentation state.
func (e *Engine) Snapshot() broadcast.Snapshot {
	snap := broadcast.Snapshot{
		State:  e.state,
		Packet: e.packet,
		Index:  e.index,
		Err:    e.errMsg,
	}
	if e.state == broadcast.StatePlaying {
		snap.Revealed = string(e.text[:e.revealed])
	}
	return snap
}

func (e *Engine) advancePlaying(dt time.Duration) {
	if e.gapping {
		e.gapLeft -= dt
		if e.gapLeft > 0 {
			return
		}
		e.gapping = false
		e.nextLine()
		return
	}

	if e.revealed < len(e.text) {
		e.charTimer += dt
		for e.charTimer >= e.config.RevealInterval && e.revealed < len(e.text) {
			e.charTimer -= e.config.RevealInterval
			e.revealed++
		}
		if e.revealed < len(e.text) {
			return
		}
		// The leftover of the interval that finished the reveal already
		// counts as dwell time.
		e.dwell = e.charTimer
		e.charTimer = 0
	} else {
		e.dwell += dt
	}

	if !e.lineDone() {
		return
	}

	if e.config.LineGap > 0 {
		e.gapping = true
		e.gapLeft = e.config.LineGap
		return
	}
	e.nextLine()
}

// lineDone reports whether the fully revealed line may be left.
func (e *Engine) lineDone() bool {
	if e.hasClip {
		return !e.channel.Busy()
	}
	return e.dwell >= e.config.Dwell
}

func (e *Engine) nextLine() {
	e.index++
	if e.index < len(e.packet.Dialogue) {
		e.setupLine(e.index)
		return
	}
	e.index = len(e.packet.Dialogue) - 1
	e.cycles++
	e.transition(broadcast.StateWaiting)
	e.stateTimer = 0
}

func (e *Engine) setupLine(i int) {
	line := e.packet.Dialogue[i]
	e.text = []rune(line.Text)
	e.revealed = 0
	e.charTimer = 0
	e.dwell = 0
	e.gapping = false
	e.hasClip = false

	clip := e.clips[i]
	if clip == nil || e.channel == nil {
		return
	}
	if err := e.channel.Play(clip); err != nil {
		e.logger.Warn("audio playback failed, showing line silently", "line", i, "err", err)
		return
	}
	e.hasClip = true
}

func (e *Engine) adopt(outcome broadcast.FetchOutcome) {
	e.packet = outcome.Packet
	e.clips = outcome.Clips
	if len(e.clips) != len(e.packet.Dialogue) {
		// Keep the 1:1 pairing even for a malformed outcome.
		clips := make([]broadcast.Clip, len(e.packet.Dialogue))
		copy(clips, e.clips)
		e.clips = clips
	}
	e.errMsg = ""
	e.index = 0
	e.transition(broadcast.StatePlaying, "title", e.packet.Title(), "lines", len(e.packet.Dialogue))
	e.setupLine(0)
}

func (e *Engine) enterLoading() {
	e.packet = nil
	e.clips = nil
	e.index = 0
	e.text = nil
	e.revealed = 0
	e.transition(broadcast.StateLoading)
	e.fetcher.Start()
}

func (e *Engine) enterError(msg string) {
	if msg == "" {
		msg = "fetch failed"
	}
	e.errMsg = msg
	e.stateTimer = 0
	e.transition(broadcast.StateError, "err", msg)
}

func (e *Engine) transition(to broadcast.State, keyvals ...interface{}) {
	from := e.state
	e.state = to
	e.logger.Info("state change", append([]interface{}{"from", from, "state", to}, keyvals...)...)
}
