// ABOUTME: Hook kinds, priorities and connection slots
// ABOUTME: Callbacks are ordered by priority then registration
package host

// Hook identifies an event kind modules can subscribe to
type Hook int

const (
	// HookSinkPut fires once a sink has been linked and is ready for use
	HookSinkPut Hook = iota
	// HookSinkUnlink fires when a sink is being removed
	HookSinkUnlink
	// HookDefaultSinkChanged fires after the default sink changed
	HookDefaultSinkChanged
	// HookModuleLoaded fires after a module finished initializing
	HookModuleLoaded

	hookCount
)

// HookCount is the number of hook kinds
const HookCount = int(hookCount)

func (h Hook) String() string {
	switch h {
	case HookSinkPut:
		return "sink-put"
	case HookSinkUnlink:
		return "sink-unlink"
	case HookDefaultSinkChanged:
		return "default-sink-changed"
	case HookModuleLoaded:
		return "module-loaded"
	default:
		return "unknown"
	}
}

// Priority orders callbacks on a hook, lower runs first
type Priority int

const (
	PriorityEarly  Priority = -100
	PriorityNormal Priority = 0
	PriorityLate   Priority = 100
)

// HookResult tells the dispatcher whether to continue the callback chain
type HookResult int

const (
	HookOK HookResult = iota
	HookStop
)

// HookFunc receives the sink the event is about. For HookModuleLoaded the
// sink is zero-valued with Owner set to the loaded module's index.
type HookFunc func(sink Sink) HookResult

// Slot is a single callback connection
type Slot struct {
	Hook     Hook
	Priority Priority
	Func     HookFunc

	seq        uint64
	disconnect func(*Slot)
}

// NewSlot is used by Core implementations to build connection slots
func NewSlot(hook Hook, priority Priority, fn HookFunc, seq uint64, disconnect func(*Slot)) *Slot {
	return &Slot{
		Hook:       hook,
		Priority:   priority,
		Func:       fn,
		seq:        seq,
		disconnect: disconnect,
	}
}

// Seq returns the registration sequence number of the slot
func (s *Slot) Seq() uint64 {
	return s.seq
}

// Disconnect removes the callback. A chain already running skips it.
// Safe to call more than once.
func (s *Slot) Disconnect() {
	if s == nil || s.disconnect == nil {
		return
	}
	d := s.disconnect
	s.disconnect = nil
	s.Func = nil
	d(s)
}
