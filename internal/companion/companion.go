// ABOUTME: Companion manager lifecycle: hook registration, bootstrap and teardown
// ABOUTME: One manager instance per loaded module, state threaded explicitly
package companion

import (
	"log"

	"github.com/Resonate-Protocol/resonate-router/pkg/host"
)

// HookPriority runs the handlers after other sink-decorating modules
const HookPriority = host.PriorityLate + 30

// Manager reacts to sink arrivals and default changes for one configuration
type Manager struct {
	core   host.Core
	config Config
	logger *log.Logger
	debug  bool

	putSlot     *host.Slot
	defaultSlot *host.Slot
}

// Options tune logging for a manager
type Options struct {
	Logger *log.Logger
	Debug  bool
}

// New creates a manager. Nothing is connected until Start.
func New(core host.Core, config Config, opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Manager{
		core:   core,
		config: config,
		logger: logger,
		debug:  opts.Debug,
	}
}

// Init parses argument, starts a manager on core and retro-fits existing
// sinks. On a configuration error nothing stays connected.
func Init(core host.Core, argument string, opts Options) (*Manager, error) {
	cfg, err := ParseConfig(argument)
	if err != nil {
		logger := opts.Logger
		if logger == nil {
			logger = log.Default()
		}
		logger.Printf("Error: %v", err)
		return nil, err
	}

	m := New(core, cfg, opts)
	if err := m.Start(); err != nil {
		m.Done()
		return nil, err
	}
	return m, nil
}

// Start connects both hooks and replays the arrival logic for every sink
// that is already linked
func (m *Manager) Start() error {
	if err := m.config.Validate(); err != nil {
		return err
	}

	m.putSlot = m.core.HookConnect(host.HookSinkPut, HookPriority, m.sinkPut)
	m.defaultSlot = m.core.HookConnect(host.HookDefaultSinkChanged, HookPriority, m.defaultSinkChanged)

	m.bootstrap()
	return nil
}

// bootstrap runs the arrival logic over the sinks present right now, in
// index order. Sinks created while it runs are not revisited.
func (m *Manager) bootstrap() {
	for _, s := range m.core.Sinks() {
		if !s.Linked() {
			continue
		}
		m.sinkPut(s)
	}
}

// Done disconnects the hooks. Loaded companions are left in place.
func (m *Manager) Done() {
	m.putSlot.Disconnect()
	m.defaultSlot.Disconnect()
	m.putSlot = nil
	m.defaultSlot = nil
}

// Config returns the manager's configuration
func (m *Manager) Config() Config {
	return m.config
}

// HandleSinkPut runs the arrival logic for one sink, as the hook would
func (m *Manager) HandleSinkPut(s host.Sink) {
	m.sinkPut(s)
}

// HandleDefaultSinkChanged runs the default-change logic for one sink, as the hook would
func (m *Manager) HandleDefaultSinkChanged(s host.Sink) {
	m.defaultSinkChanged(s)
}

func (m *Manager) debugf(format string, args ...interface{}) {
	if m.debug {
		m.logger.Printf("[DEBUG] "+format, args...)
	}
}
