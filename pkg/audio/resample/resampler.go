// ABOUTME: Streaming linear resampler for converting audio sample rates
// ABOUTME: Interpolates across chunk boundaries using the previous frame
package resample

// Resampler performs linear interpolation to convert between sample rates
type Resampler struct {
	inputRate  int
	outputRate int
	channels   int
	step       float64 // input frames per output frame

	// position is measured in input frames from prev
	position float64
	prev     []int32 // one sample per channel
	primed   bool
}

// New creates a new resampler
func New(inputRate, outputRate, channels int) *Resampler {
	if channels < 1 {
		channels = 1
	}
	return &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
		channels:   channels,
		step:       float64(inputRate) / float64(outputRate),
		prev:       make([]int32, channels),
	}
}

// InputRate returns the rate samples are expected at
func (r *Resampler) InputRate() int { return r.inputRate }

// OutputRate returns the rate samples are produced at
func (r *Resampler) OutputRate() int { return r.outputRate }

// Channels returns the number of interleaved channels
func (r *Resampler) Channels() int { return r.channels }

// Process converts one chunk of interleaved samples. Trailing samples that
// do not form a whole frame are dropped.
func (r *Resampler) Process(input []int32) []int32 {
	ch := r.channels
	frames := len(input) / ch
	if frames == 0 {
		return nil
	}

	if !r.primed {
		copy(r.prev, input[:ch])
		input = input[ch:]
		frames--
		r.primed = true
	}

	// frame 0 is prev, frame k is input frame k-1
	sample := func(frame, c int) int32 {
		if frame == 0 {
			return r.prev[c]
		}
		return input[(frame-1)*ch+c]
	}

	out := make([]int32, 0, r.OutputSamplesNeeded(len(input))+ch)
	for int(r.position) <= frames-1 {
		i := int(r.position)
		frac := r.position - float64(i)

		for c := 0; c < ch; c++ {
			a := float64(sample(i, c))
			b := float64(sample(i+1, c))
			out = append(out, int32(a+(b-a)*frac))
		}
		r.position += r.step
	}

	r.position -= float64(frames)
	if frames > 0 {
		copy(r.prev, input[(frames-1)*ch:frames*ch])
	}
	return out
}

// Reset forgets the stream position and the carried frame
func (r *Resampler) Reset() {
	r.position = 0
	r.primed = false
	for i := range r.prev {
		r.prev[i] = 0
	}
}

// OutputSamplesNeeded estimates how many output samples a chunk of input produces
func (r *Resampler) OutputSamplesNeeded(inputSamples int) int {
	inputFrames := inputSamples / r.channels
	outputFrames := int(float64(inputFrames) / r.step)
	return outputFrames * r.channels
}

// InputSamplesNeeded estimates how many input samples produce outputSamples
func (r *Resampler) InputSamplesNeeded(outputSamples int) int {
	outputFrames := outputSamples / r.channels
	inputFrames := int(float64(outputFrames) * r.step)
	return inputFrames * r.channels
}
