// ABOUTME: Test tone generator
// ABOUTME: Stereo sine wave at the default router format
package source

import (
	"math"
	"sync"

	"github.com/Resonate-Protocol/resonate-router/pkg/audio"
)

// TestTone generates a sine wave at half volume
type TestTone struct {
	mu          sync.Mutex
	sampleIndex uint64
	frequency   float64
}

// NewTestTone creates a tone generator at frequency Hz
func NewTestTone(frequency float64) *TestTone {
	return &TestTone{frequency: frequency}
}

func (s *TestTone) Read(samples []int32) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	frames := len(samples) / audio.DefaultChannels
	for i := 0; i < frames; i++ {
		t := float64(s.sampleIndex+uint64(i)) / float64(audio.DefaultSampleRate)
		v := int32(math.Sin(2*math.Pi*s.frequency*t) * float64(audio.Max24Bit) * 0.5)

		for ch := 0; ch < audio.DefaultChannels; ch++ {
			samples[i*audio.DefaultChannels+ch] = v
		}
	}
	s.sampleIndex += uint64(frames)

	return frames * audio.DefaultChannels, nil
}

func (s *TestTone) SampleRate() int { return audio.DefaultSampleRate }
func (s *TestTone) Channels() int   { return audio.DefaultChannels }
func (s *TestTone) Metadata() (string, string, string) {
	return "Test Tone", "Resonate Router", ""
}
func (s *TestTone) Close() error { return nil }
