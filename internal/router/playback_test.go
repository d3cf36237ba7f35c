// ABOUTME: Tests for audio routing through sink chains
// ABOUTME: Processors, masters, null sinks and backend writes
package router

import (
	"errors"
	"testing"

	"github.com/Resonate-Protocol/resonate-router/pkg/audio/output"
	"github.com/Resonate-Protocol/resonate-router/pkg/host"
)

type doubler struct{}

func (doubler) Process(samples []int32) []int32 {
	out := make([]int32, len(samples))
	for i, s := range samples {
		out[i] = s * 2
	}
	return out
}

func TestPlayThroughVirtualSink(t *testing.T) {
	c, _ := newTestCore(t)

	mem := output.NewMemory(0)
	hw := mustAdd(t, c, SinkConfig{
		Name:       "hw",
		Flags:      host.SinkHardware,
		Backend:    mem,
		SampleRate: 48000,
		Channels:   2,
	})
	v := mustAdd(t, c, SinkConfig{Name: "loud", Master: "hw", Processor: doubler{}})

	if rate, ch := mem.Format(); rate != 48000 || ch != 2 {
		t.Errorf("backend opened at %dHz %dch", rate, ch)
	}

	if err := c.SetConfiguredDefaultSink("loud"); err != nil {
		t.Fatalf("set default: %v", err)
	}
	if err := c.Play([]int32{1, 2, 3, 4}); err != nil {
		t.Fatalf("Play failed: %v", err)
	}

	got := mem.Samples()
	want := []int32{2, 4, 6, 8}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: expected %d, got %d", i, want[i], got[i])
		}
	}

	if c.FramesWritten(hw) != 2 {
		t.Errorf("expected 2 frames on hw, got %d", c.FramesWritten(hw))
	}
	if c.FramesWritten(v) != 4 {
		t.Errorf("expected 4 samples counted on the virtual sink, got %d", c.FramesWritten(v))
	}

	s, _ := c.Sink(hw)
	if s.State != host.SinkRunning {
		t.Errorf("expected running state, got %s", s.State)
	}
}

func TestPlayWithoutDefault(t *testing.T) {
	c, _ := newTestCore(t)
	if err := c.Play([]int32{1}); !errors.Is(err, ErrNoDefaultSink) {
		t.Errorf("expected ErrNoDefaultSink, got %v", err)
	}
}

func TestNullSinkDiscards(t *testing.T) {
	c, _ := newTestCore(t)
	idx := mustAdd(t, c, SinkConfig{Name: "null"})

	if err := c.Write(idx, []int32{1, 2}); err != nil {
		t.Errorf("expected null sink to accept audio, got %v", err)
	}
	if err := c.Write(99, []int32{1}); !errors.Is(err, host.ErrNoSuchSink) {
		t.Errorf("expected ErrNoSuchSink, got %v", err)
	}
}

func TestWriteToInitSinkFails(t *testing.T) {
	c, _ := newTestCore(t)
	idx, err := c.NewSink(SinkConfig{Name: "pending"})
	if err != nil {
		t.Fatalf("NewSink failed: %v", err)
	}
	if err := c.Write(idx, []int32{1}); err == nil {
		t.Error("expected an error writing to an unlinked sink")
	}
}

func TestUnlinkClosesBackend(t *testing.T) {
	c, _ := newTestCore(t)
	mem := output.NewMemory(0)
	idx := mustAdd(t, c, SinkConfig{Name: "hw", Flags: host.SinkHardware, Backend: mem})

	if !mem.IsOpen() {
		t.Fatal("expected backend to be opened on put")
	}
	if err := c.UnlinkSink(idx); err != nil {
		t.Fatalf("unlink: %v", err)
	}
	if mem.IsOpen() {
		t.Error("expected backend to be closed on unlink")
	}
}
