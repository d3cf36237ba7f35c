// ABOUTME: Audio routing through sink chains
// ABOUTME: Writes flow through virtual sink processors down to a hardware backend
package router

import (
	"errors"
	"fmt"

	"github.com/Resonate-Protocol/resonate-router/pkg/host"
)

// ErrNoDefaultSink is returned by Play when no sink is selected as default
var ErrNoDefaultSink = errors.New("no default sink")

// maxChainDepth bounds master chains so a misconfigured loop cannot spin forever
const maxChainDepth = 16

// Play writes interleaved samples to the default sink
func (c *Core) Play(samples []int32) error {
	if c.defaultSink == host.InvalidIndex {
		return ErrNoDefaultSink
	}
	return c.Write(c.defaultSink, samples)
}

// Write writes interleaved samples to a sink. Each virtual sink applies its
// processor and forwards to its master until a sink with a backend, or a
// sink with neither backend nor master, is reached.
func (c *Core) Write(index uint32, samples []int32) error {
	for depth := 0; depth < maxChainDepth; depth++ {
		s, ok := c.sinks[index]
		if !ok {
			return fmt.Errorf("sink %d: %w", index, host.ErrNoSuchSink)
		}
		if !s.info.Linked() {
			return fmt.Errorf("sink %d (%s) is not linked", index, s.info.Name)
		}

		if s.info.State == host.SinkIdle {
			s.info.State = host.SinkRunning
			c.changed = true
		}

		if s.processor != nil {
			samples = s.processor.Process(samples)
		}
		if s.channels > 0 {
			s.framesWritten += uint64(len(samples) / s.channels)
		} else {
			s.framesWritten += uint64(len(samples))
		}

		if s.backend != nil {
			if err := s.backend.Write(samples); err != nil {
				return fmt.Errorf("sink %s: %w", s.info.Name, err)
			}
			return nil
		}

		if s.master == host.InvalidIndex {
			// null sink, audio is discarded
			return nil
		}
		index = s.master
	}

	return fmt.Errorf("sink chain deeper than %d", maxChainDepth)
}

// FramesWritten returns how many frames were written to a sink
func (c *Core) FramesWritten(index uint32) uint64 {
	s, ok := c.sinks[index]
	if !ok {
		return 0
	}
	return s.framesWritten
}

// Master returns the master of a virtual sink
func (c *Core) Master(index uint32) (host.Sink, bool) {
	s, ok := c.sinks[index]
	if !ok {
		return host.Sink{}, false
	}
	m, ok := c.sinks[s.master]
	if !ok {
		return host.Sink{}, false
	}
	return m.snapshot(), true
}
