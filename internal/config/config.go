// ABOUTME: YAML startup configuration for the router daemon
// ABOUTME: Hardware sinks to create, modules to load and the default sink
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/Resonate-Protocol/resonate-router/internal/router"
	"github.com/Resonate-Protocol/resonate-router/pkg/audio"
	"github.com/Resonate-Protocol/resonate-router/pkg/audio/output"
	"github.com/Resonate-Protocol/resonate-router/pkg/host"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is wrapped by every validation failure
var ErrInvalid = errors.New("invalid startup config")

// Startup is the daemon's startup script. Hardware sinks are created
// first, then modules load in order, then the default sink is applied.
type Startup struct {
	Name          string   `yaml:"name"`
	HardwareSinks []string `yaml:"hardware_sinks"`
	Modules       []Module `yaml:"modules"`
	DefaultSink   string   `yaml:"default_sink"`
}

// Module is one module to load at startup
type Module struct {
	Name string `yaml:"name"`
	Args string `yaml:"args"`
}

// BackendFactory creates the playback backend for a hardware sink
type BackendFactory func(sinkName string) (output.Output, error)

// Parse decodes and validates a startup config
func Parse(data []byte) (*Startup, error) {
	var s Startup
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Load reads a startup config from a file
func Load(path string) (*Startup, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Validate checks names are present and hardware sinks are unique
func (s *Startup) Validate() error {
	seen := make(map[string]bool)
	for _, name := range s.HardwareSinks {
		if name == "" {
			return fmt.Errorf("%w: empty hardware sink name", ErrInvalid)
		}
		if seen[name] {
			return fmt.Errorf("%w: duplicate hardware sink %q", ErrInvalid, name)
		}
		seen[name] = true
	}
	for i, m := range s.Modules {
		if m.Name == "" {
			return fmt.Errorf("%w: module %d has no name", ErrInvalid, i)
		}
	}
	return nil
}

// Apply runs the startup script on the router. Call it on the dispatch
// goroutine, e.g. from router.Server.Do.
func (s *Startup) Apply(c *router.Core, newBackend BackendFactory) error {
	for _, name := range s.HardwareSinks {
		if _, err := AddHardwareSink(c, name, newBackend); err != nil {
			return err
		}
	}

	for _, m := range s.Modules {
		if _, err := c.LoadModule(m.Name, m.Args); err != nil {
			return fmt.Errorf("failed to load module %s: %w", m.Name, err)
		}
	}

	if s.DefaultSink != "" {
		if err := c.SetConfiguredDefaultSink(s.DefaultSink); err != nil {
			return fmt.Errorf("failed to set default sink: %w", err)
		}
	}
	return nil
}

// AddHardwareSink creates and links a hardware sink with its own backend
func AddHardwareSink(c *router.Core, name string, newBackend BackendFactory) (uint32, error) {
	backend, err := newBackend(name)
	if err != nil {
		return host.InvalidIndex, fmt.Errorf("failed to create backend for %s: %w", name, err)
	}

	index, err := c.AddSink(router.SinkConfig{
		Name:       name,
		Flags:      host.SinkHardware,
		Backend:    backend,
		SampleRate: audio.DefaultSampleRate,
		Channels:   audio.DefaultChannels,
	})
	if err != nil {
		backend.Close()
		return host.InvalidIndex, fmt.Errorf("failed to add hardware sink %s: %w", name, err)
	}
	return index, nil
}
