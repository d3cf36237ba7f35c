// ABOUTME: Audio format description and sample conversions
// ABOUTME: Frame/duration arithmetic, 16-bit conversion and gain with clipping
package audio

import (
	"math"
	"time"
)

const (
	// 24-bit audio range constants
	Max24Bit = 8388607  // 2^23 - 1
	Min24Bit = -8388608 // -2^23

	DefaultSampleRate = 48000
	DefaultChannels   = 2
)

// Format describes interleaved PCM audio
type Format struct {
	SampleRate int
	Channels   int
}

// DefaultFormat is used by sinks that do not configure their own
var DefaultFormat = Format{SampleRate: DefaultSampleRate, Channels: DefaultChannels}

// Frames returns how many frames fit in d
func (f Format) Frames(d time.Duration) int {
	return int(int64(f.SampleRate) * int64(d) / int64(time.Second))
}

// Samples returns how many interleaved samples fit in d
func (f Format) Samples(d time.Duration) int {
	return f.Frames(d) * f.Channels
}

// Duration returns the playing time of n interleaved samples
func (f Format) Duration(samples int) time.Duration {
	if f.SampleRate == 0 || f.Channels == 0 {
		return 0
	}
	frames := int64(samples / f.Channels)
	return time.Duration(frames * int64(time.Second) / int64(f.SampleRate))
}

// Valid reports whether the format can be played
func (f Format) Valid() bool {
	return f.SampleRate > 0 && f.Channels > 0
}

// SampleToInt16 converts int32 sample to int16 (for 16-bit playback)
func SampleToInt16(sample int32) int16 {
	return int16(Clamp24(int64(sample)) >> 8)
}

// SampleFromInt16 converts int16 sample to int32 (left-justified in 24-bit)
func SampleFromInt16(sample int16) int32 {
	return int32(sample) << 8
}

// Clamp24 limits v to the signed 24-bit range
func Clamp24(v int64) int32 {
	if v > Max24Bit {
		return Max24Bit
	}
	if v < Min24Bit {
		return Min24Bit
	}
	return int32(v)
}

// DBToLinear converts a gain in decibels to a linear multiplier
func DBToLinear(db float64) float64 {
	return math.Pow(10, db/20)
}

// ApplyGain scales samples in place, clipping at the 24-bit limits
func ApplyGain(samples []int32, multiplier float64) {
	if multiplier == 1 {
		return
	}
	for i, s := range samples {
		samples[i] = Clamp24(int64(math.Round(float64(s) * multiplier)))
	}
}
