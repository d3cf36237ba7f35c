// ABOUTME: Tests for the streaming resampler
// ABOUTME: Tests interpolation, chunk continuity and rate estimates
package resample

import (
	"testing"
)

func TestNew(t *testing.T) {
	r := New(44100, 48000, 2)

	if r.InputRate() != 44100 {
		t.Errorf("expected input rate 44100, got %d", r.InputRate())
	}
	if r.OutputRate() != 48000 {
		t.Errorf("expected output rate 48000, got %d", r.OutputRate())
	}
	if r.Channels() != 2 {
		t.Errorf("expected 2 channels, got %d", r.Channels())
	}
}

func TestProcessUpsampleMono(t *testing.T) {
	r := New(24000, 48000, 1)

	out := r.Process([]int32{0, 10, 20, 30})
	want := []int32{0, 5, 10, 15, 20, 25}

	if len(out) != len(want) {
		t.Fatalf("expected %d samples, got %d: %v", len(want), len(out), out)
	}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("sample %d: expected %d, got %d", i, want[i], out[i])
		}
	}

	// The carried frame continues the ramp into the next chunk
	out = r.Process([]int32{40, 50})
	want = []int32{30, 35, 40, 45}
	if len(out) != len(want) {
		t.Fatalf("expected %d samples, got %d: %v", len(want), len(out), out)
	}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("second chunk sample %d: expected %d, got %d", i, want[i], out[i])
		}
	}
}

func TestProcessSameRateIsIdentity(t *testing.T) {
	r := New(48000, 48000, 2)

	var in, out []int32
	for chunk := 0; chunk < 3; chunk++ {
		buf := make([]int32, 20)
		for i := range buf {
			buf[i] = int32(chunk*100 + i)
		}
		in = append(in, buf...)
		out = append(out, r.Process(buf)...)
	}

	// Output lags by one frame
	if len(out) != len(in)-2 {
		t.Fatalf("expected %d samples, got %d", len(in)-2, len(out))
	}
	for i := range out {
		if out[i] != in[i] {
			t.Fatalf("sample %d: expected %d, got %d", i, in[i], out[i])
		}
	}
}

func TestProcessStereoChannelsStaySeparate(t *testing.T) {
	r := New(44100, 48000, 2)

	input := make([]int32, 400)
	for i := 0; i < len(input); i += 2 {
		input[i] = 1000
		input[i+1] = -1000
	}

	out := r.Process(input)
	if len(out)%2 != 0 {
		t.Fatalf("expected whole frames, got %d samples", len(out))
	}
	for i := 0; i < len(out); i += 2 {
		if out[i] != 1000 || out[i+1] != -1000 {
			t.Fatalf("frame %d mixed channels: %d %d", i/2, out[i], out[i+1])
		}
	}
}

func TestProcessRateRatio(t *testing.T) {
	tests := []struct {
		name   string
		in     int
		out    int
		frames int
	}{
		{"upsample", 44100, 48000, 4410},
		{"downsample", 48000, 44100, 4800},
		{"large up", 8000, 48000, 800},
		{"large down", 96000, 8000, 9600},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(tt.in, tt.out, 1)
			got := 0
			for i := 0; i < 10; i++ {
				got += len(r.Process(make([]int32, tt.frames)))
			}

			expected := tt.frames * 10 * tt.out / tt.in
			if abs(got-expected) > 2*tt.out/tt.in+2 {
				t.Errorf("expected ~%d samples, got %d", expected, got)
			}
		})
	}
}

func TestProcessEmptyInput(t *testing.T) {
	r := New(44100, 48000, 2)
	if out := r.Process(nil); len(out) != 0 {
		t.Errorf("expected no output, got %d samples", len(out))
	}
	if out := r.Process([]int32{1}); len(out) != 0 {
		t.Errorf("expected partial frame to be dropped, got %d samples", len(out))
	}
}

func TestReset(t *testing.T) {
	r := New(24000, 48000, 1)
	r.Process([]int32{0, 10, 20, 30})
	r.Reset()

	out := r.Process([]int32{100, 200})
	if len(out) == 0 || out[0] != 100 {
		t.Errorf("expected output to restart from the new chunk, got %v", out)
	}
}

func TestSamplesNeeded(t *testing.T) {
	r := New(24000, 48000, 2)
	if got := r.OutputSamplesNeeded(200); got != 400 {
		t.Errorf("expected 400 output samples, got %d", got)
	}
	if got := r.InputSamplesNeeded(400); got != 200 {
		t.Errorf("expected 200 input samples, got %d", got)
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
