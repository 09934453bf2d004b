// Package capture defines the audio input the encoder mixes into the
// stream. Backends only produce encoder arguments; the sink places them
// after the raw video input.
package capture
