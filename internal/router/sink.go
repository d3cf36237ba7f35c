// ABOUTME: Sink registry operations for the router core
// ABOUTME: Creation, linking, unlinking, properties and default selection
package router

import (
	"fmt"

	"github.com/Resonate-Protocol/resonate-router/pkg/audio/output"
	"github.com/Resonate-Protocol/resonate-router/pkg/host"
)

// Processor transforms samples written to a virtual sink before they are
// passed on to its master
type Processor interface {
	Process(samples []int32) []int32
}

// SinkConfig describes a sink to create
type SinkConfig struct {
	Name  string
	Flags host.SinkFlags

	// Master is the sink a virtual sink forwards processed audio to
	Master    string
	Processor Processor

	// Backend plays audio for hardware sinks
	Backend    output.Output
	SampleRate int
	Channels   int

	Proplist host.Proplist
}

type sink struct {
	info      host.Sink
	master    uint32
	processor Processor
	backend   output.Output
	rate      int
	channels  int

	framesWritten uint64
}

func (s *sink) snapshot() host.Sink {
	info := s.info
	info.Proplist = s.info.Proplist.Clone()
	return info
}

// NewSink registers a sink in the init state. It is not visible to
// HookSinkPut callbacks until PutSink links it.
func (c *Core) NewSink(cfg SinkConfig) (uint32, error) {
	return c.newSink(cfg, host.InvalidIndex)
}

func (c *Core) newSink(cfg SinkConfig, owner uint32) (uint32, error) {
	if cfg.Name == "" {
		return host.InvalidIndex, fmt.Errorf("sink name is required")
	}
	for _, s := range c.sinks {
		if s.info.Name == cfg.Name {
			return host.InvalidIndex, fmt.Errorf("%w: %s", ErrSinkExists, cfg.Name)
		}
	}

	master := host.InvalidIndex
	if cfg.Master != "" {
		m, ok := c.sinkByName(cfg.Master)
		if !ok {
			return host.InvalidIndex, fmt.Errorf("master %q: %w", cfg.Master, host.ErrNoSuchSink)
		}
		master = m.info.Index
	}

	if owner != host.InvalidIndex {
		if _, ok := c.modules[owner]; !ok {
			return host.InvalidIndex, fmt.Errorf("owner %d: %w", owner, host.ErrNoSuchModule)
		}
	}

	props := cfg.Proplist.Clone()
	if cfg.Flags&host.SinkHardware != 0 {
		props.Set("device.class", "sound")
	} else {
		props.Set("device.class", "filter")
	}

	idx := lowestFree(c.sinks)
	c.sinks[idx] = &sink{
		info: host.Sink{
			Index:    idx,
			Name:     cfg.Name,
			Flags:    cfg.Flags,
			Owner:    owner,
			State:    host.SinkInit,
			Proplist: props,
		},
		master:    master,
		processor: cfg.Processor,
		backend:   cfg.Backend,
		rate:      cfg.SampleRate,
		channels:  cfg.Channels,
	}
	c.changed = true

	c.debugf("Sink %d (%s) created", idx, cfg.Name)
	return idx, nil
}

// PutSink links a sink and announces it on HookSinkPut
func (c *Core) PutSink(index uint32) error {
	s, ok := c.sinks[index]
	if !ok {
		return fmt.Errorf("sink %d: %w", index, host.ErrNoSuchSink)
	}
	if s.info.State != host.SinkInit {
		return fmt.Errorf("sink %d (%s) already put", index, s.info.Name)
	}

	if s.backend != nil {
		if err := s.backend.Open(s.rate, s.channels); err != nil {
			return fmt.Errorf("failed to open backend for sink %s: %w", s.info.Name, err)
		}
	}

	c.begin()
	defer c.end()

	s.info.State = host.SinkIdle
	c.changed = true
	c.logger.Printf("Sink %d (%s) is ready", index, s.info.Name)

	c.fire(host.HookSinkPut, s.snapshot())
	c.updateDefault()
	return nil
}

// AddSink creates and links a sink in one step
func (c *Core) AddSink(cfg SinkConfig) (uint32, error) {
	return c.addSink(cfg, host.InvalidIndex)
}

func (c *Core) addSink(cfg SinkConfig, owner uint32) (uint32, error) {
	idx, err := c.newSink(cfg, owner)
	if err != nil {
		return host.InvalidIndex, err
	}
	if err := c.PutSink(idx); err != nil {
		delete(c.sinks, idx)
		return host.InvalidIndex, err
	}
	return idx, nil
}

// UnlinkSink announces removal on HookSinkUnlink and drops the sink. Virtual
// sinks using it as master lose their master.
func (c *Core) UnlinkSink(index uint32) error {
	s, ok := c.sinks[index]
	if !ok {
		return fmt.Errorf("sink %d: %w", index, host.ErrNoSuchSink)
	}

	c.begin()
	defer c.end()

	wasLinked := s.info.Linked()
	s.info.State = host.SinkUnlinked
	if wasLinked {
		c.fire(host.HookSinkUnlink, s.snapshot())
	}

	delete(c.sinks, index)
	for _, other := range c.sinks {
		if other.master == index {
			other.master = host.InvalidIndex
		}
	}

	if s.backend != nil {
		if err := s.backend.Close(); err != nil {
			c.logger.Printf("Error closing backend for sink %s: %v", s.info.Name, err)
		}
	}

	c.changed = true
	c.logger.Printf("Sink %d (%s) removed", index, s.info.Name)

	if c.defaultSink == index {
		c.defaultSink = host.InvalidIndex
	}
	c.updateDefault()
	return nil
}

// Sinks returns every registered sink in ascending index order
func (c *Core) Sinks() []host.Sink {
	keys := sortedKeys(c.sinks)
	out := make([]host.Sink, 0, len(keys))
	for _, k := range keys {
		out = append(out, c.sinks[k].snapshot())
	}
	return out
}

// Sink returns the sink registered under index
func (c *Core) Sink(index uint32) (host.Sink, error) {
	s, ok := c.sinks[index]
	if !ok {
		return host.Sink{}, fmt.Errorf("sink %d: %w", index, host.ErrNoSuchSink)
	}
	return s.snapshot(), nil
}

// SinkByName returns the sink registered under name
func (c *Core) SinkByName(name string) (host.Sink, error) {
	s, ok := c.sinkByName(name)
	if !ok {
		return host.Sink{}, fmt.Errorf("sink %q: %w", name, host.ErrNoSuchSink)
	}
	return s.snapshot(), nil
}

func (c *Core) sinkByName(name string) (*sink, bool) {
	for _, s := range c.sinks {
		if s.info.Name == name {
			return s, true
		}
	}
	return nil, false
}

// SetSinkProperty writes key=value into the sink's proplist
func (c *Core) SetSinkProperty(index uint32, key, value string) error {
	s, ok := c.sinks[index]
	if !ok {
		return fmt.Errorf("sink %d: %w", index, host.ErrNoSuchSink)
	}
	s.info.Proplist.Set(key, value)
	c.changed = true
	return nil
}

// DefaultSink returns the current default sink
func (c *Core) DefaultSink() (host.Sink, bool) {
	s, ok := c.sinks[c.defaultSink]
	if !ok {
		return host.Sink{}, false
	}
	return s.snapshot(), true
}

// SetConfiguredDefaultSink requests the named sink become the default
func (c *Core) SetConfiguredDefaultSink(name string) error {
	if _, ok := c.sinkByName(name); !ok {
		return fmt.Errorf("sink %q: %w", name, host.ErrNoSuchSink)
	}

	c.begin()
	defer c.end()

	c.configuredDefault = name
	c.updateDefault()
	return nil
}

// updateDefault picks the configured sink when linked, otherwise keeps the
// current default, otherwise falls back to the lowest linked index. A change
// is announced on HookDefaultSinkChanged.
func (c *Core) updateDefault() {
	candidate := host.InvalidIndex

	if s, ok := c.sinkByName(c.configuredDefault); ok && s.info.Linked() {
		candidate = s.info.Index
	} else if s, ok := c.sinks[c.defaultSink]; ok && s.info.Linked() {
		candidate = s.info.Index
	} else {
		for _, k := range sortedKeys(c.sinks) {
			if c.sinks[k].info.Linked() {
				candidate = k
				break
			}
		}
	}

	if candidate == c.defaultSink {
		return
	}

	c.defaultSink = candidate
	c.changed = true

	if candidate == host.InvalidIndex {
		c.logger.Printf("No default sink available")
		return
	}

	s := c.sinks[candidate]
	c.logger.Printf("Default sink changed to %d (%s)", candidate, s.info.Name)
	c.fire(host.HookDefaultSinkChanged, s.snapshot())
}
