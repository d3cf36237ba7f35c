// ABOUTME: Hook handlers for sink arrival and default sink changes
// ABOUTME: Load companions for hardware sinks and steer the default to their sinks
package companion

import (
	"github.com/Resonate-Protocol/resonate-router/pkg/host"
)

// sinkPut loads a companion for a newly linked hardware sink
func (m *Manager) sinkPut(s host.Sink) host.HookResult {
	m.debugf("New sink has been put %q", s.Name)

	if !s.Hardware() {
		m.debugf("New sink %q is not a hardware sink. Ignoring", s.Name)
		return host.HookOK
	}

	m.logger.Printf("Loading module %q for new sink %q", m.config.Module, s.Name)

	mod, err := m.loadModule(s)
	if err != nil {
		return host.HookOK
	}

	if err := record(m.core, s.Index, mod.Index); err != nil {
		m.logger.Printf("Error: failed to record association of sink %q with module %d: %v", s.Name, mod.Index, err)
		return host.HookOK
	}

	if !m.config.SwitchOnConnect {
		return host.HookOK
	}

	if !m.switchToSinkOf(mod.Index) {
		m.logger.Printf("Module %d has no sink of its own yet, the default sink was not changed", mod.Index)
	}

	return host.HookOK
}

// defaultSinkChanged moves the default from an instrumented hardware sink to
// its companion's sink
func (m *Manager) defaultSinkChanged(s host.Sink) host.HookResult {
	if !m.config.StealDefault {
		return host.HookOK
	}

	moduleIndex, ok, err := AssociatedModule(s)
	if !ok {
		m.debugf("New default sink %q is not associated with a module loaded by us", s.Name)
		return host.HookOK
	}
	if err != nil {
		m.logger.Printf("Ignoring association on default sink %q: %v", s.Name, err)
		return host.HookOK
	}

	m.debugf("New default sink %q is associated with module %d loaded by us", s.Name, moduleIndex)

	if !m.switchToSinkOf(moduleIndex) {
		m.logger.Printf("Module %d has no sink of its own, the default sink %q was left alone", moduleIndex, s.Name)
	}

	return host.HookOK
}

// switchToSinkOf makes the first sink owned by moduleIndex the default.
// It reports false when the module owns no sink.
func (m *Manager) switchToSinkOf(moduleIndex uint32) bool {
	target, ok := FirstSinkOwnedBy(m.core.Sinks(), moduleIndex)
	if !ok {
		return false
	}

	m.logger.Printf("Setting sink %q as new default sink", target.Name)
	if err := m.core.SetConfiguredDefaultSink(target.Name); err != nil {
		m.logger.Printf("Error: failed to set default sink %q: %v", target.Name, err)
	}
	return true
}
