// ABOUTME: Audio resampling package using linear interpolation
// ABOUTME: Converts streamed audio between sample rates chunk by chunk
// Package resample provides audio sample rate conversion.
//
// A Resampler keeps the last frame of each chunk so interpolation continues
// across chunk boundaries. Output lags input by one frame.
//
// Example:
//
//	r := resample.New(44100, 48000, 2)
//	out := r.Process(chunk)
package resample
