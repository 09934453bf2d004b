package broadcast

// State is the playback state of the engine.
//
//exhaustive:enforce
type State int

const (
	// StateIdle is the initial state before the first fetch.
	StateIdle State = iota
	// StateLoading waits for a fetch outcome.
	StateLoading
	// StatePlaying presents the dialogue line by line.
	StatePlaying
	// StateWaiting pauses between two cycles.
	StateWaiting
	// StateError holds a fetch failure until the retry cooldown elapses.
	StateError
)

// States lists every state in declaration order.
var States = []State{StateIdle, StateLoading, StatePlaying, StateWaiting, StateError}

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StatePlaying:
		return "playing"
	case StateWaiting:
		return "waiting"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Valid reports whether s is one of the declared states.
func (s State) Valid() bool {
	return s >= StateIdle && s <= StateError
}
