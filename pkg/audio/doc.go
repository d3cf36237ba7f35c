// ABOUTME: Sample format types and conversions shared by sinks and sources
// ABOUTME: Samples are int32 left-justified in the 24-bit range
// Package audio provides the sample format used throughout the router.
//
// Every sink and source exchanges interleaved int32 samples in the signed
// 24-bit range. 16-bit material is shifted up on the way in and down on the
// way out to backends that only play 16-bit audio.
//
// Example:
//
//	f := audio.Format{SampleRate: 48000, Channels: 2}
//	chunk := make([]int32, f.Samples(20*time.Millisecond))
//	audio.ApplyGain(chunk, audio.DBToLinear(-6))
package audio
