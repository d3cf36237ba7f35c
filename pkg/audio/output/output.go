// ABOUTME: Audio output interface definition
// ABOUTME: Common interface for audio playback backends and a factory by name
package output

import "fmt"

// Output represents an audio output device
type Output interface {
	// Open initializes the output device
	Open(sampleRate, channels int) error

	// Write outputs audio samples (blocks until written)
	Write(samples []int32) error

	// Close releases output resources
	Close() error
}

// Backend names accepted by New
const (
	BackendOto    = "oto"
	BackendMemory = "memory"
)

// New creates an output backend by name
func New(backend string) (Output, error) {
	switch backend {
	case BackendOto:
		return NewOto(), nil
	case BackendMemory, "":
		return NewMemory(0), nil
	default:
		return nil, fmt.Errorf("unknown output backend %q (supported: %s, %s)", backend, BackendOto, BackendMemory)
	}
}
