// Package loop runs the fixed-rate broadcast tick: advance the engine,
// render its snapshot and write the frame to the sink.
package loop
