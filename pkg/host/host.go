// ABOUTME: Core interface and entity snapshots exposed to modules
// ABOUTME: Defines sinks, modules, hooks and the errors the router returns
package host

import (
	"errors"
	"math"
)

// InvalidIndex marks an absent sink or module index
const InvalidIndex uint32 = math.MaxUint32

var (
	// ErrNoSuchSink is returned when a sink index or name is not registered
	ErrNoSuchSink = errors.New("no such sink")

	// ErrNoSuchModule is returned when a module index is not registered
	ErrNoSuchModule = errors.New("no such module")

	// ErrModuleLoad is returned when the router rejects a module load
	ErrModuleLoad = errors.New("module load failed")
)

// SinkFlags describe static sink properties
type SinkFlags uint32

const (
	// SinkHardware marks a sink backed by a physical output
	SinkHardware SinkFlags = 1 << iota
	// SinkLatency marks a sink that reports latency
	SinkLatency
)

// SinkState is the lifecycle state of a sink
type SinkState int

const (
	SinkInit SinkState = iota
	SinkIdle
	SinkRunning
	SinkUnlinked
)

func (s SinkState) String() string {
	switch s {
	case SinkInit:
		return "init"
	case SinkIdle:
		return "idle"
	case SinkRunning:
		return "running"
	case SinkUnlinked:
		return "unlinked"
	default:
		return "unknown"
	}
}

// Sink is a snapshot of a registered sink
type Sink struct {
	Index    uint32
	Name     string
	Flags    SinkFlags
	Owner    uint32 // module index, InvalidIndex for sinks without an owning module
	State    SinkState
	Proplist Proplist
}

// Hardware reports whether the sink is backed by a physical output
func (s Sink) Hardware() bool {
	return s.Flags&SinkHardware != 0
}

// Linked reports whether the sink has been put and not yet unlinked
func (s Sink) Linked() bool {
	return s.State == SinkIdle || s.State == SinkRunning
}

// Module is a snapshot of a loaded module
type Module struct {
	Index    uint32
	Name     string
	Argument string
	Proplist Proplist
}

// Core is the view of the router that modules and hook callbacks work with.
// All methods must be called from the dispatch context.
type Core interface {
	// HookConnect registers fn on hook. Callbacks run in ascending priority,
	// then in registration order.
	HookConnect(hook Hook, priority Priority, fn HookFunc) *Slot

	// Sinks returns every registered sink in ascending index order,
	// including sinks that are not linked yet.
	Sinks() []Sink

	// Sink returns the sink registered under index
	Sink(index uint32) (Sink, error)

	// Module returns the module loaded under index
	Module(index uint32) (Module, error)

	// LoadModule loads a module of the named type with the given argument string
	LoadModule(name, argument string) (Module, error)

	// SetConfiguredDefaultSink requests the named sink become the default
	SetConfiguredDefaultSink(name string) error

	// SetSinkProperty writes key=value into the sink's proplist
	SetSinkProperty(index uint32, key, value string) error

	// SetModuleProperty writes key=value into the module's proplist
	SetModuleProperty(index uint32, key, value string) error
}
