// ABOUTME: In-memory audio router core implementing host.Core
// ABOUTME: Owns sink/module registries, default sink and hook dispatch
package router

import (
	"errors"
	"fmt"
	"log"
	"sort"

	"github.com/Resonate-Protocol/resonate-router/pkg/host"
)

var (
	// ErrSinkExists is returned when a sink name is already registered
	ErrSinkExists = errors.New("sink name already registered")

	// ErrUnknownModuleType is returned when no module type is registered under a name
	ErrUnknownModuleType = errors.New("unknown module type")
)

// Config holds router core configuration
type Config struct {
	Debug  bool
	Logger *log.Logger
}

// event is a hook invocation waiting for dispatch
type event struct {
	hook host.Hook
	sink host.Sink
}

// Core is the router state. It is not safe for concurrent use; the Server
// runs every call on its dispatch goroutine.
type Core struct {
	config Config
	logger *log.Logger

	sinks   map[uint32]*sink
	modules map[uint32]*module
	types   map[string]ModuleType

	hooks   [host.HookCount][]*host.Slot
	slotSeq uint64

	defaultSink       uint32
	configuredDefault string

	// Event batching: events raised while depth > 0 or while a hook chain
	// runs are queued and dispatched once the outermost call returns.
	pending     []event
	depth       int
	dispatching bool

	changed bool
}

var _ host.Core = (*Core)(nil)

// NewCore creates an empty router core
func NewCore(config Config) *Core {
	logger := config.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Core{
		config:      config,
		logger:      logger,
		sinks:       make(map[uint32]*sink),
		modules:     make(map[uint32]*module),
		types:       make(map[string]ModuleType),
		defaultSink: host.InvalidIndex,
	}
}

// HookConnect registers fn on hook
func (c *Core) HookConnect(hook host.Hook, priority host.Priority, fn host.HookFunc) *host.Slot {
	c.slotSeq++
	slot := host.NewSlot(hook, priority, fn, c.slotSeq, c.hookDisconnect)

	slots := append(c.hooks[hook], slot)
	sort.SliceStable(slots, func(i, j int) bool {
		if slots[i].Priority != slots[j].Priority {
			return slots[i].Priority < slots[j].Priority
		}
		return slots[i].Seq() < slots[j].Seq()
	})
	c.hooks[hook] = slots

	c.debugf("Hook %s connected at priority %d", hook, priority)
	return slot
}

func (c *Core) hookDisconnect(slot *host.Slot) {
	slots := c.hooks[slot.Hook]
	for i, s := range slots {
		if s == slot {
			c.hooks[slot.Hook] = append(slots[:i:i], slots[i+1:]...)
			return
		}
	}
}

// HookSlots returns the number of callbacks connected to hook
func (c *Core) HookSlots(hook host.Hook) int {
	return len(c.hooks[hook])
}

// begin opens a mutation batch
func (c *Core) begin() {
	c.depth++
}

// end closes a mutation batch and dispatches queued events when it was the outermost
func (c *Core) end() {
	c.depth--
	if c.depth == 0 {
		c.drain()
	}
}

// fire queues an event for dispatch
func (c *Core) fire(hook host.Hook, s host.Sink) {
	c.pending = append(c.pending, event{hook: hook, sink: s})
}

// drain runs queued events until none remain. Every event's callback chain
// completes before the next event starts.
func (c *Core) drain() {
	if c.dispatching {
		return
	}
	c.dispatching = true
	defer func() { c.dispatching = false }()

	for len(c.pending) > 0 {
		e := c.pending[0]
		c.pending = c.pending[1:]
		c.dispatch(e)
	}
}

func (c *Core) dispatch(e event) {
	slots := make([]*host.Slot, len(c.hooks[e.hook]))
	copy(slots, c.hooks[e.hook])

	c.debugf("Dispatching %s for sink %d (%s) to %d callbacks", e.hook, e.sink.Index, e.sink.Name, len(slots))

	for _, slot := range slots {
		if slot.Func == nil {
			continue
		}
		if slot.Func(c.current(e)) == host.HookStop {
			break
		}
	}
}

// current returns the event's sink as it is now, so each callback sees what
// earlier callbacks wrote. Unlinked sinks are delivered as captured.
func (c *Core) current(e event) host.Sink {
	if e.hook == host.HookSinkUnlink || e.hook == host.HookModuleLoaded {
		return e.sink
	}
	if cur, ok := c.sinks[e.sink.Index]; ok && cur.info.Name == e.sink.Name {
		return cur.snapshot()
	}
	return e.sink
}

// Batch runs fn as one mutation batch; events it raises are dispatched after
// fn returns
func (c *Core) Batch(fn func()) {
	c.begin()
	defer c.end()
	fn()
}

// Changed reports and clears the state-changed flag
func (c *Core) Changed() bool {
	ch := c.changed
	c.changed = false
	return ch
}

func (c *Core) debugf(format string, args ...interface{}) {
	if c.config.Debug {
		c.logger.Printf("[DEBUG] "+format, args...)
	}
}

// lowestFree returns the smallest index not present in m
func lowestFree[T any](m map[uint32]T) uint32 {
	for i := uint32(0); i < host.InvalidIndex; i++ {
		if _, ok := m[i]; !ok {
			return i
		}
	}
	panic(fmt.Sprintf("router: index space exhausted (%d entries)", len(m)))
}

func sortedKeys[T any](m map[uint32]T) []uint32 {
	keys := make([]uint32, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
