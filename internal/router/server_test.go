// ABOUTME: Tests for the router server dispatch goroutine
// ABOUTME: Serialized operations, state publishing and shutdown
package router

import (
	"bytes"
	"context"
	"errors"
	"log"
	"testing"
	"time"

	"github.com/Resonate-Protocol/resonate-router/pkg/host"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s := NewServer(ServerConfig{Name: "Test Router", Logger: log.New(&bytes.Buffer{}, "", 0)})
	s.Start()
	t.Cleanup(s.Stop)
	return s
}

func TestServerDoAndSnapshot(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	err := s.Do(ctx, func(c *Core) error {
		if _, err := c.AddSink(SinkConfig{Name: "hw", Flags: host.SinkHardware}); err != nil {
			return err
		}
		_, err := c.AddSink(SinkConfig{Name: "v", Master: "hw"})
		return err
	})
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}

	st, err := s.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}

	if st.ServerID != s.ID() || st.Name != "Test Router" {
		t.Errorf("unexpected identity %q %q", st.ServerID, st.Name)
	}
	if st.DefaultSink != "hw" {
		t.Errorf("expected default hw, got %q", st.DefaultSink)
	}
	if len(st.Sinks) != 2 {
		t.Fatalf("expected 2 sinks, got %d", len(st.Sinks))
	}
	if !st.Sinks[0].Hardware || !st.Sinks[0].IsDefault {
		t.Errorf("unexpected hw state %+v", st.Sinks[0])
	}
	if st.Sinks[1].Master != "hw" || st.Sinks[1].Owner != nil {
		t.Errorf("unexpected virtual state %+v", st.Sinks[1])
	}
}

func TestServerDoReturnsErrors(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	want := errors.New("boom")
	if err := s.Do(ctx, func(*Core) error { return want }); !errors.Is(err, want) {
		t.Errorf("expected %v, got %v", want, err)
	}

	err := s.Do(ctx, func(*Core) error { panic("bad operation") })
	if err == nil {
		t.Error("expected panic to be returned as an error")
	}

	// The dispatch loop survives
	if _, err := s.Snapshot(ctx); err != nil {
		t.Errorf("server stopped working after panic: %v", err)
	}
}

func TestServerPublishesChanges(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	updates := s.Subscribe()

	if err := s.Do(ctx, func(c *Core) error {
		_, err := c.AddSink(SinkConfig{Name: "a"})
		return err
	}); err != nil {
		t.Fatalf("Do failed: %v", err)
	}

	select {
	case st := <-updates:
		if len(st.Sinks) != 1 || st.Sinks[0].Name != "a" {
			t.Errorf("unexpected published state %+v", st)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for state")
	}

	s.Unsubscribe(updates)
	if _, ok := <-updates; ok {
		t.Error("expected channel to be closed after Unsubscribe")
	}
}

func TestServerStopUnloadsModules(t *testing.T) {
	s := NewServer(ServerConfig{Logger: log.New(&bytes.Buffer{}, "", 0)})
	tm := &testModule{}
	s.Start()

	ctx := context.Background()
	if err := s.Do(ctx, func(c *Core) error {
		c.RegisterModuleType("test", tm)
		_, err := c.LoadModule("test", "owned")
		return err
	}); err != nil {
		t.Fatalf("Do failed: %v", err)
	}

	updates := s.Subscribe()
	s.Stop()
	s.Stop()

	if tm.done != 1 {
		t.Errorf("expected module Done on stop, got %d", tm.done)
	}
	if err := s.Do(ctx, func(*Core) error { return nil }); !errors.Is(err, ErrStopped) {
		t.Errorf("expected ErrStopped, got %v", err)
	}

	// Drain a pending snapshot, then expect the close
	for range updates {
	}
}

func TestServerStopWithoutStart(t *testing.T) {
	s := NewServer(ServerConfig{Logger: log.New(&bytes.Buffer{}, "", 0)})

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked on a server that never started")
	}

	if s.Name() != "Resonate Router" {
		t.Errorf("expected default name, got %q", s.Name())
	}
}

func TestServerDoHonorsContext(t *testing.T) {
	s := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	release := make(chan struct{})
	go func() {
		_ = s.Do(context.Background(), func(*Core) error {
			<-release
			return nil
		})
	}()
	defer close(release)

	// Give the blocking operation time to reach the dispatch goroutine
	time.Sleep(10 * time.Millisecond)

	err := s.Do(ctx, func(*Core) error { return nil })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestServerDoAfterStopReturnsErrStopped(t *testing.T) {
	s := NewServer(ServerConfig{Logger: log.New(&bytes.Buffer{}, "", 0)})
	s.Start()
	s.Stop()

	for i := 0; i < 50; i++ {
		done := make(chan error, 1)
		go func() {
			done <- s.Do(context.Background(), func(*Core) error { return nil })
		}()

		select {
		case err := <-done:
			if !errors.Is(err, ErrStopped) {
				t.Fatalf("attempt %d: expected ErrStopped, got %v", i, err)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("attempt %d: Do blocked after Stop", i)
		}
	}
}

func TestServerDoQueuedBeforeStopWithoutStart(t *testing.T) {
	s := NewServer(ServerConfig{Logger: log.New(&bytes.Buffer{}, "", 0)})

	done := make(chan error, 1)
	go func() {
		done <- s.Do(context.Background(), func(*Core) error { return nil })
	}()

	time.Sleep(20 * time.Millisecond)
	s.Stop()
	s.Start()

	select {
	case err := <-done:
		if !errors.Is(err, ErrStopped) {
			t.Errorf("expected ErrStopped, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("queued Do was never released")
	}
}
