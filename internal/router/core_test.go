// ABOUTME: Tests for hook dispatch in the router core
// ABOUTME: Priority ordering, chain stopping and run-to-completion
package router

import (
	"fmt"
	"testing"

	"github.com/Resonate-Protocol/resonate-router/pkg/host"
)

func TestHookOrdering(t *testing.T) {
	c, _ := newTestCore(t)

	var order []string
	record := func(name string) host.HookFunc {
		return func(host.Sink) host.HookResult {
			order = append(order, name)
			return host.HookOK
		}
	}

	c.HookConnect(host.HookSinkPut, host.PriorityLate, record("late"))
	c.HookConnect(host.HookSinkPut, host.PriorityNormal, record("normal-1"))
	c.HookConnect(host.HookSinkPut, host.PriorityEarly, record("early"))
	c.HookConnect(host.HookSinkPut, host.PriorityNormal, record("normal-2"))
	c.HookConnect(host.HookSinkPut, host.PriorityLate+30, record("late+30"))

	mustAdd(t, c, SinkConfig{Name: "a"})

	want := []string{"early", "normal-1", "normal-2", "late", "late+30"}
	if fmt.Sprint(order) != fmt.Sprint(want) {
		t.Errorf("expected order %v, got %v", want, order)
	}
}

func TestHookStopEndsChain(t *testing.T) {
	c, _ := newTestCore(t)

	called := false
	c.HookConnect(host.HookSinkPut, host.PriorityEarly, func(host.Sink) host.HookResult {
		return host.HookStop
	})
	c.HookConnect(host.HookSinkPut, host.PriorityLate, func(host.Sink) host.HookResult {
		called = true
		return host.HookOK
	})

	mustAdd(t, c, SinkConfig{Name: "a"})

	if called {
		t.Error("callback after HookStop must not run")
	}
}

func TestHookDisconnect(t *testing.T) {
	c, _ := newTestCore(t)

	calls := 0
	slot := c.HookConnect(host.HookSinkPut, host.PriorityNormal, func(host.Sink) host.HookResult {
		calls++
		return host.HookOK
	})

	mustAdd(t, c, SinkConfig{Name: "a"})
	slot.Disconnect()
	slot.Disconnect()
	mustAdd(t, c, SinkConfig{Name: "b"})

	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
	if c.HookSlots(host.HookSinkPut) != 0 {
		t.Errorf("expected no slots, got %d", c.HookSlots(host.HookSinkPut))
	}
}

func TestEventsRunToCompletion(t *testing.T) {
	c, _ := newTestCore(t)

	var order []string
	c.HookConnect(host.HookSinkPut, host.PriorityNormal, func(s host.Sink) host.HookResult {
		order = append(order, "first:"+s.Name)
		if s.Name == "a" {
			if _, err := c.AddSink(SinkConfig{Name: "b"}); err != nil {
				t.Errorf("nested add failed: %v", err)
			}
		}
		return host.HookOK
	})
	c.HookConnect(host.HookSinkPut, host.PriorityLate, func(s host.Sink) host.HookResult {
		order = append(order, "second:"+s.Name)
		return host.HookOK
	})

	mustAdd(t, c, SinkConfig{Name: "a"})

	want := []string{"first:a", "second:a", "first:b", "second:b"}
	if fmt.Sprint(order) != fmt.Sprint(want) {
		t.Errorf("expected order %v, got %v", want, order)
	}
}

func TestCallbackSeesEarlierWrites(t *testing.T) {
	c, _ := newTestCore(t)

	c.HookConnect(host.HookSinkPut, host.PriorityNormal, func(s host.Sink) host.HookResult {
		if err := c.SetSinkProperty(s.Index, "x-tag", "set"); err != nil {
			t.Errorf("set property: %v", err)
		}
		return host.HookOK
	})

	var seen string
	c.HookConnect(host.HookSinkPut, host.PriorityLate, func(s host.Sink) host.HookResult {
		seen, _ = s.Proplist.Get("x-tag")
		return host.HookOK
	})

	mustAdd(t, c, SinkConfig{Name: "a"})

	if seen != "set" {
		t.Errorf("expected later callback to see the property, got %q", seen)
	}
}

func TestBatchDefersEvents(t *testing.T) {
	c, _ := newTestCore(t)

	calls := 0
	c.HookConnect(host.HookSinkPut, host.PriorityNormal, func(host.Sink) host.HookResult {
		calls++
		return host.HookOK
	})

	c.Batch(func() {
		mustAdd(t, c, SinkConfig{Name: "a"})
		mustAdd(t, c, SinkConfig{Name: "b"})
		if calls != 0 {
			t.Errorf("expected events to wait for the batch, got %d calls", calls)
		}
	})

	if calls != 2 {
		t.Errorf("expected 2 calls after the batch, got %d", calls)
	}
}

func TestIndexReuse(t *testing.T) {
	c, _ := newTestCore(t)

	mustAdd(t, c, SinkConfig{Name: "a"})
	b := mustAdd(t, c, SinkConfig{Name: "b"})
	mustAdd(t, c, SinkConfig{Name: "c"})

	if err := c.UnlinkSink(b); err != nil {
		t.Fatalf("unlink failed: %v", err)
	}

	d := mustAdd(t, c, SinkConfig{Name: "d"})
	if d != b {
		t.Errorf("expected index %d to be reused, got %d", b, d)
	}

	var names []string
	for _, s := range c.Sinks() {
		names = append(names, s.Name)
	}
	if fmt.Sprint(names) != "[a d c]" {
		t.Errorf("expected ascending index order [a d c], got %v", names)
	}
}

func TestChanged(t *testing.T) {
	c, _ := newTestCore(t)

	if c.Changed() {
		t.Error("new core must not report changes")
	}
	mustAdd(t, c, SinkConfig{Name: "a"})
	if !c.Changed() {
		t.Error("expected a change after adding a sink")
	}
	if c.Changed() {
		t.Error("Changed must clear the flag")
	}
}
