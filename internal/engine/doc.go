// Package engine implements the playback state machine. It is driven by
// Advance(dt) from a single loop goroutine and reads fetch outcomes by
// polling, so it never shares mutable state with the fetch worker.
package engine
