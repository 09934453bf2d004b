// Package audio decodes story audio assets into clips and plays them on a
// single output channel using the oto/v3 library. Starting a clip replaces
// whatever was playing, so at most one clip sounds at any time.
package audio
