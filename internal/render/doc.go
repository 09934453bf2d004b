// Package render paints engine snapshots into packed RGB24 frames, the
// pixel layout the encoder reads from its stdin.
package render
