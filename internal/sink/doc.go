// Package sink owns the encoder subprocess and the pipe that carries raw
// RGB24 frames into it. Writes block while the encoder is busy, which is
// what paces the render loop when encoding falls behind.
package sink
