// ABOUTME: In-memory audio output that records written samples
// ABOUTME: Used for headless sinks and for asserting routed audio in tests
package output

import (
	"errors"
	"sync"
)

// ErrNotOpen is returned when writing to a backend that is not open
var ErrNotOpen = errors.New("output not initialized")

// Memory keeps the most recent samples written to it
type Memory struct {
	mu         sync.Mutex
	limit      int
	samples    []int32
	total      uint64
	sampleRate int
	channels   int
	open       bool
	opens      int
}

// NewMemory creates a memory output keeping at most limit samples.
// A limit of zero keeps one second of stereo 48kHz audio.
func NewMemory(limit int) *Memory {
	if limit <= 0 {
		limit = 48000 * 2
	}
	return &Memory{limit: limit}
}

// Open records the format
func (m *Memory) Open(sampleRate, channels int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sampleRate = sampleRate
	m.channels = channels
	m.open = true
	m.opens++
	return nil
}

// Write appends samples, dropping the oldest beyond the limit
func (m *Memory) Write(samples []int32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.open {
		return ErrNotOpen
	}

	m.samples = append(m.samples, samples...)
	if over := len(m.samples) - m.limit; over > 0 {
		m.samples = append(m.samples[:0], m.samples[over:]...)
	}
	m.total += uint64(len(samples))
	return nil
}

// Close marks the output closed. Recorded samples stay readable.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.open = false
	return nil
}

// Samples returns a copy of the retained samples
func (m *Memory) Samples() []int32 {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]int32(nil), m.samples...)
}

// Total returns how many samples were written since creation
func (m *Memory) Total() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.total
}

// Format returns the rate and channel count from the last Open
func (m *Memory) Format() (sampleRate, channels int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sampleRate, m.channels
}

// IsOpen reports whether the output is open
func (m *Memory) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open
}
