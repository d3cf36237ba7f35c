// ABOUTME: Resampling wrapper for audio sources
// ABOUTME: Converts any source to the router's playback rate
package source

import (
	"errors"
	"io"

	"github.com/Resonate-Protocol/resonate-router/pkg/audio/resample"
)

// Resampled wraps a Source and converts it to a target rate
type Resampled struct {
	source     Source
	resampler  *resample.Resampler
	targetRate int
	input      []int32
	// converted samples not yet returned
	pending []int32
}

// NewResampled wraps source. A source already at targetRate is returned as is.
func NewResampled(source Source, targetRate int) Source {
	if source.SampleRate() == targetRate {
		return source
	}

	channels := source.Channels()
	return &Resampled{
		source:     source,
		resampler:  resample.New(source.SampleRate(), targetRate, channels),
		targetRate: targetRate,
		// 20ms of input per pull
		input: make([]int32, source.SampleRate()/50*channels),
	}
}

func (r *Resampled) Read(samples []int32) (int, error) {
	for len(r.pending) < len(samples) {
		n, err := r.source.Read(r.input)
		r.pending = append(r.pending, r.resampler.Process(r.input[:n])...)
		if err != nil && !errors.Is(err, io.EOF) {
			return 0, err
		}
		if n == 0 {
			break
		}
	}

	c := copy(samples, r.pending)
	r.pending = r.pending[c:]
	if c == 0 {
		return 0, io.EOF
	}
	return c, nil
}

func (r *Resampled) SampleRate() int { return r.targetRate }
func (r *Resampled) Channels() int   { return r.source.Channels() }
func (r *Resampled) Metadata() (string, string, string) {
	return r.source.Metadata()
}
func (r *Resampled) Close() error { return r.source.Close() }
