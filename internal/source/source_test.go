// ABOUTME: Tests for audio sources
// ABOUTME: Test tone, resampling wrapper and source selection
package source

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

// sliceSource returns fixed mono samples then EOF
type sliceSource struct {
	samples []int32
	rate    int
	closed  bool
}

func (s *sliceSource) Read(buf []int32) (int, error) {
	if len(s.samples) == 0 {
		return 0, io.EOF
	}
	n := copy(buf, s.samples)
	s.samples = s.samples[n:]
	return n, nil
}

func (s *sliceSource) SampleRate() int                    { return s.rate }
func (s *sliceSource) Channels() int                      { return 1 }
func (s *sliceSource) Metadata() (string, string, string) { return "slice", "test", "" }
func (s *sliceSource) Close() error                       { s.closed = true; return nil }

func TestTestTone(t *testing.T) {
	tone := NewTestTone(440)

	buf := make([]int32, 960*2)
	n, err := tone.Read(buf)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if n != len(buf) {
		t.Errorf("expected %d samples, got %d", len(buf), n)
	}

	nonZero := false
	for i := 0; i < n; i += 2 {
		if buf[i] != buf[i+1] {
			t.Fatalf("frame %d: channels differ", i/2)
		}
		if buf[i] != 0 {
			nonZero = true
		}
	}
	if !nonZero {
		t.Error("tone is silent")
	}

	if tone.SampleRate() != 48000 || tone.Channels() != 2 {
		t.Errorf("unexpected format %dHz %dch", tone.SampleRate(), tone.Channels())
	}
}

func TestResampledPassThrough(t *testing.T) {
	src := &sliceSource{rate: 48000}
	if NewResampled(src, 48000) != Source(src) {
		t.Error("expected source at the target rate to be returned unchanged")
	}
}

func TestResampledConvertsRate(t *testing.T) {
	input := make([]int32, 2400)
	for i := range input {
		input[i] = 1000
	}
	src := &sliceSource{samples: input, rate: 24000}

	r := NewResampled(src, 48000)
	if r.SampleRate() != 48000 || r.Channels() != 1 {
		t.Fatalf("unexpected format %dHz %dch", r.SampleRate(), r.Channels())
	}

	total := 0
	buf := make([]int32, 960)
	for {
		n, err := r.Read(buf)
		total += n
		for i := 0; i < n; i++ {
			if buf[i] != 1000 {
				t.Fatalf("sample %d: expected 1000, got %d", i, buf[i])
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
	}

	if total < 4790 || total > 4800 {
		t.Errorf("expected about 4800 samples, got %d", total)
	}

	if err := r.Close(); err != nil || !src.closed {
		t.Error("Close must close the wrapped source")
	}
}

func TestNew(t *testing.T) {
	dir := t.TempDir()
	wav := filepath.Join(dir, "clip.wav")
	if err := os.WriteFile(wav, []byte("RIFF"), 0o644); err != nil {
		t.Fatal(err)
	}
	badMP3 := filepath.Join(dir, "clip.mp3")
	if err := os.WriteFile(badMP3, []byte("not an mp3"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"tone", "", false},
		{"missing", filepath.Join(dir, "missing.mp3"), true},
		{"unsupported", wav, true},
		{"corrupt mp3", badMP3, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := New(tt.path)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			src.Close()
		})
	}
}

func TestScaleTo24(t *testing.T) {
	tests := []struct {
		sample   int32
		bitDepth int
		expected int32
	}{
		{100, 16, 100 << 8},
		{100, 24, 100},
		{1 << 10, 32, 1 << 2},
		{-4, 8, -4 << 16},
	}

	for _, tt := range tests {
		if got := scaleTo24(tt.sample, tt.bitDepth); got != tt.expected {
			t.Errorf("scaleTo24(%d, %d) = %d, want %d", tt.sample, tt.bitDepth, got, tt.expected)
		}
	}
}
