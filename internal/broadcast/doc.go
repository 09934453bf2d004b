// Package broadcast contains the shared types of the broadcast loop: story
// packets, fetch outcomes, presentation snapshots, the playback state enum
// and the error taxonomy. It exists so the fetch, engine, sink and render
// packages can agree on one vocabulary without importing each other.
package broadcast
