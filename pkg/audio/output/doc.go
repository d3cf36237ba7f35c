// ABOUTME: Audio output package for hardware sink backends
// ABOUTME: Provides the Output interface with Oto and in-memory implementations
// Package output provides playback backends for hardware sinks.
//
// Oto plays through the system audio device. Memory records everything
// written to it and is used for headless operation and tests.
//
// Example:
//
//	out := output.NewOto()
//	err := out.Open(48000, 2)
//	err = out.Write(samples)
package output
