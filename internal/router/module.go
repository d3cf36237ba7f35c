// ABOUTME: Module types, loading and unloading for the router core
// ABOUTME: Modules are loaded by type name with an argument string
package router

import (
	"fmt"
	"sort"

	"github.com/Resonate-Protocol/resonate-router/pkg/host"
)

// ModuleType creates module instances of one kind
type ModuleType interface {
	// Description is a one-line summary of the module
	Description() string

	// Usage documents the accepted arguments
	Usage() string

	// Init initializes a new instance. On error the router removes every sink
	// the instance created and disconnects its hooks.
	Init(m *ModuleContext) (ModuleInstance, error)
}

// ModuleInstance is a loaded module
type ModuleInstance interface {
	// Done releases the instance. It must not fail.
	Done()
}

type module struct {
	info     host.Module
	typeName string
	instance ModuleInstance
	slots    []*host.Slot
}

func (m *module) snapshot() host.Module {
	info := m.info
	info.Proplist = m.info.Proplist.Clone()
	return info
}

// RegisterModuleType makes a module type loadable under name
func (c *Core) RegisterModuleType(name string, t ModuleType) {
	c.types[name] = t
	c.debugf("Module type %s registered", name)
}

// ModuleTypes returns the registered type names in sorted order
func (c *Core) ModuleTypes() []string {
	names := make([]string, 0, len(c.types))
	for name := range c.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ModuleType returns the type registered under name
func (c *Core) ModuleType(name string) (ModuleType, bool) {
	t, ok := c.types[name]
	return t, ok
}

// LoadModule loads a module of the named type with the given argument string
func (c *Core) LoadModule(name, argument string) (host.Module, error) {
	t, ok := c.types[name]
	if !ok {
		return host.Module{}, fmt.Errorf("%w: %w: %s", host.ErrModuleLoad, ErrUnknownModuleType, name)
	}

	c.begin()
	defer c.end()

	idx := lowestFree(c.modules)
	m := &module{
		info: host.Module{
			Index:    idx,
			Name:     name,
			Argument: argument,
			Proplist: host.Proplist{},
		},
		typeName: name,
	}
	c.modules[idx] = m

	ctx := &ModuleContext{core: c, module: m}
	inst, err := t.Init(ctx)
	if err != nil {
		c.discardModule(m)
		c.logger.Printf("Module %s failed to initialize: %v", name, err)
		return host.Module{}, fmt.Errorf("%w: %s: %w", host.ErrModuleLoad, name, err)
	}
	m.instance = inst
	c.changed = true

	c.logger.Printf("Loaded module %d (%s)", idx, name)
	c.fire(host.HookModuleLoaded, host.Sink{Index: host.InvalidIndex, Owner: idx})
	return m.snapshot(), nil
}

// discardModule removes a module whose Init failed, together with anything
// it created. Queued events for its sinks are dropped.
func (c *Core) discardModule(m *module) {
	idx := m.info.Index

	for _, slot := range m.slots {
		slot.Disconnect()
	}

	kept := c.pending[:0]
	for _, e := range c.pending {
		if e.sink.Owner != idx {
			kept = append(kept, e)
		}
	}
	c.pending = kept

	for _, k := range sortedKeys(c.sinks) {
		s := c.sinks[k]
		if s.info.Owner == idx {
			if s.backend != nil {
				if err := s.backend.Close(); err != nil {
					c.logger.Printf("Error closing backend for sink %s: %v", s.info.Name, err)
				}
			}
			delete(c.sinks, k)
			for _, other := range c.sinks {
				if other.master == k {
					other.master = host.InvalidIndex
				}
			}
			if c.defaultSink == k {
				c.defaultSink = host.InvalidIndex
			}
		}
	}

	delete(c.modules, idx)
	c.updateDefault()
}

// UnloadModule releases a module and unlinks the sinks it owns
func (c *Core) UnloadModule(index uint32) error {
	m, ok := c.modules[index]
	if !ok {
		return fmt.Errorf("module %d: %w", index, host.ErrNoSuchModule)
	}

	c.begin()
	defer c.end()

	if m.instance != nil {
		m.instance.Done()
	}
	for _, slot := range m.slots {
		slot.Disconnect()
	}
	m.slots = nil

	for _, k := range sortedKeys(c.sinks) {
		if s, ok := c.sinks[k]; ok && s.info.Owner == index {
			if err := c.UnlinkSink(k); err != nil {
				c.logger.Printf("Error unlinking sink %d of module %d: %v", k, index, err)
			}
		}
	}

	delete(c.modules, index)
	c.changed = true
	c.logger.Printf("Unloaded module %d (%s)", index, m.info.Name)
	return nil
}

// Modules returns every loaded module in ascending index order
func (c *Core) Modules() []host.Module {
	keys := sortedKeys(c.modules)
	out := make([]host.Module, 0, len(keys))
	for _, k := range keys {
		out = append(out, c.modules[k].snapshot())
	}
	return out
}

// Module returns the module loaded under index
func (c *Core) Module(index uint32) (host.Module, error) {
	m, ok := c.modules[index]
	if !ok {
		return host.Module{}, fmt.Errorf("module %d: %w", index, host.ErrNoSuchModule)
	}
	return m.snapshot(), nil
}

// SetModuleProperty writes key=value into the module's proplist
func (c *Core) SetModuleProperty(index uint32, key, value string) error {
	m, ok := c.modules[index]
	if !ok {
		return fmt.Errorf("module %d: %w", index, host.ErrNoSuchModule)
	}
	m.info.Proplist.Set(key, value)
	c.changed = true
	return nil
}

// ModuleContext is handed to a module's Init. It implements host.Core and
// ties hook connections and sinks to the module so they are released with it.
type ModuleContext struct {
	core   *Core
	module *module
}

var _ host.Core = (*ModuleContext)(nil)

// Index returns the index of the module being initialized
func (m *ModuleContext) Index() uint32 {
	return m.module.info.Index
}

// Argument returns the module's argument string
func (m *ModuleContext) Argument() string {
	return m.module.info.Argument
}

// Router returns the full router core for operations modules may need
// beyond host.Core, such as creating sinks
func (m *ModuleContext) Router() *Core {
	return m.core
}

// AddSink creates and links a sink owned by this module
func (m *ModuleContext) AddSink(cfg SinkConfig) (uint32, error) {
	return m.core.addSink(cfg, m.Index())
}

// HookConnect registers fn on hook; the slot is disconnected when the module goes away
func (m *ModuleContext) HookConnect(hook host.Hook, priority host.Priority, fn host.HookFunc) *host.Slot {
	slot := m.core.HookConnect(hook, priority, fn)
	m.module.slots = append(m.module.slots, slot)
	return slot
}

func (m *ModuleContext) Sinks() []host.Sink { return m.core.Sinks() }

func (m *ModuleContext) Sink(index uint32) (host.Sink, error) { return m.core.Sink(index) }

func (m *ModuleContext) Module(index uint32) (host.Module, error) { return m.core.Module(index) }

func (m *ModuleContext) LoadModule(name, argument string) (host.Module, error) {
	return m.core.LoadModule(name, argument)
}

func (m *ModuleContext) SetConfiguredDefaultSink(name string) error {
	return m.core.SetConfiguredDefaultSink(name)
}

func (m *ModuleContext) SetSinkProperty(index uint32, key, value string) error {
	return m.core.SetSinkProperty(index, key, value)
}

func (m *ModuleContext) SetModuleProperty(index uint32, key, value string) error {
	return m.core.SetModuleProperty(index, key, value)
}
