// ABOUTME: Router server running the single dispatch goroutine
// ABOUTME: Serializes every core operation and publishes state snapshots
package router

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Resonate-Protocol/resonate-router/pkg/host"
	"github.com/google/uuid"
)

// ErrStopped is returned for operations submitted after Stop
var ErrStopped = errors.New("router stopped")

// ServerConfig holds router server configuration
type ServerConfig struct {
	Name   string
	Debug  bool
	Logger *log.Logger
}

// SinkState is the published view of a sink
type SinkState struct {
	Index     uint32            `json:"index"`
	Name      string            `json:"name"`
	Hardware  bool              `json:"hardware"`
	Owner     *uint32           `json:"owner,omitempty"`
	State     string            `json:"state"`
	Master    string            `json:"master,omitempty"`
	Frames    uint64            `json:"frames"`
	Proplist  map[string]string `json:"proplist,omitempty"`
	IsDefault bool              `json:"is_default"`
}

// ModuleState is the published view of a module
type ModuleState struct {
	Index    uint32            `json:"index"`
	Name     string            `json:"name"`
	Argument string            `json:"argument"`
	Proplist map[string]string `json:"proplist,omitempty"`
}

// State is a consistent snapshot of the router
type State struct {
	ServerID    string        `json:"server_id"`
	Name        string        `json:"name"`
	DefaultSink string        `json:"default_sink"`
	Sinks       []SinkState   `json:"sinks"`
	Modules     []ModuleState `json:"modules"`
}

type operation struct {
	fn   func(*Core) error
	done chan error
}

// Server owns a Core and runs every operation on it from one goroutine
type Server struct {
	config   ServerConfig
	serverID string
	core     *Core
	logger   *log.Logger

	ops chan operation

	listenersMu sync.RWMutex
	listeners   []chan State

	lifeMu    sync.Mutex
	startOnce sync.Once
	started   atomic.Bool
	stopOnce  sync.Once
	stopChan  chan struct{}
	doneChan  chan struct{}
}

// NewServer creates a router server
func NewServer(config ServerConfig) *Server {
	if config.Name == "" {
		config.Name = "Resonate Router"
	}
	logger := config.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Server{
		config:   config,
		serverID: uuid.New().String(),
		core:     NewCore(Config{Debug: config.Debug, Logger: logger}),
		logger:   logger,
		ops:      make(chan operation, 64),
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// ID returns the server's unique identifier
func (s *Server) ID() string {
	return s.serverID
}

// Name returns the server's friendly name
func (s *Server) Name() string {
	return s.config.Name
}

// Start launches the dispatch goroutine
func (s *Server) Start() {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()

	s.startOnce.Do(func() {
		select {
		case <-s.stopChan:
			return
		default:
		}
		s.logger.Printf("Router starting: %s (ID: %s)", s.config.Name, s.serverID)
		s.started.Store(true)
		go s.dispatchLoop()
	})
}

// Stop unloads every module, closes hardware backends and stops dispatch
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		s.lifeMu.Lock()
		if !s.started.Load() {
			close(s.stopChan)
			close(s.doneChan)
			s.lifeMu.Unlock()
			return
		}
		s.lifeMu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		err := s.Do(ctx, func(c *Core) error {
			modules := c.Modules()
			for i := len(modules) - 1; i >= 0; i-- {
				if err := c.UnloadModule(modules[i].Index); err != nil {
					s.logger.Printf("Error unloading module %d: %v", modules[i].Index, err)
				}
			}
			for _, sink := range c.Sinks() {
				if err := c.UnlinkSink(sink.Index); err != nil {
					s.logger.Printf("Error removing sink %d: %v", sink.Index, err)
				}
			}
			return nil
		})
		if err != nil {
			s.logger.Printf("Router teardown incomplete: %v", err)
		}

		close(s.stopChan)
		<-s.doneChan

		s.listenersMu.Lock()
		for _, l := range s.listeners {
			close(l)
		}
		s.listeners = nil
		s.listenersMu.Unlock()

		s.logger.Printf("Router stopped")
	})
}

// Do runs fn on the dispatch goroutine and waits for it to finish
func (s *Server) Do(ctx context.Context, fn func(*Core) error) error {
	op := operation{fn: fn, done: make(chan error, 1)}

	// ops has free buffer space after Stop, so check stopChan on its own first
	select {
	case <-s.stopChan:
		return ErrStopped
	default:
	}

	select {
	case s.ops <- op:
	case <-s.stopChan:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-op.done:
		return err
	case <-s.stopChan:
		// Queued ops are never run once dispatch exits
		select {
		case err := <-op.done:
			return err
		case <-s.doneChan:
		}
		select {
		case err := <-op.done:
			return err
		default:
			return ErrStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns the current router state
func (s *Server) Snapshot(ctx context.Context) (State, error) {
	var st State
	err := s.Do(ctx, func(c *Core) error {
		st = s.snapshot(c)
		return nil
	})
	return st, err
}

// Subscribe returns a channel receiving a snapshot after every change. Slow
// subscribers miss intermediate snapshots, never the latest one.
func (s *Server) Subscribe() <-chan State {
	ch := make(chan State, 1)
	s.listenersMu.Lock()
	s.listeners = append(s.listeners, ch)
	s.listenersMu.Unlock()
	return ch
}

// Unsubscribe stops delivery to a channel returned by Subscribe
func (s *Server) Unsubscribe(ch <-chan State) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()

	for i, l := range s.listeners {
		if l == ch {
			s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
			close(l)
			return
		}
	}
}

func (s *Server) dispatchLoop() {
	defer close(s.doneChan)

	for {
		select {
		case op := <-s.ops:
			start := time.Now()
			err := s.run(op.fn)
			op.done <- err

			if s.config.Debug {
				if d := time.Since(start); d > 50*time.Millisecond {
					s.logger.Printf("[DEBUG] Router operation took %v", d)
				}
			}

			if s.core.Changed() {
				s.publish(s.snapshot(s.core))
			}
		case <-s.stopChan:
			return
		}
	}
}

// run executes fn inside a mutation batch so hooks fire after it returns
func (s *Server) run(fn func(*Core) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("router operation panicked: %v", r)
			s.logger.Printf("Recovered from panic in router operation: %v", r)
		}
	}()

	s.core.begin()
	defer s.core.end()
	return fn(s.core)
}

func (s *Server) publish(st State) {
	s.listenersMu.RLock()
	defer s.listenersMu.RUnlock()

	for _, l := range s.listeners {
		// Replace a stale pending snapshot with the latest one
		select {
		case <-l:
		default:
		}
		select {
		case l <- st:
		default:
		}
	}
}

func (s *Server) snapshot(c *Core) State {
	st := State{
		ServerID: s.serverID,
		Name:     s.config.Name,
	}

	def, hasDefault := c.DefaultSink()
	if hasDefault {
		st.DefaultSink = def.Name
	}

	for _, sink := range c.Sinks() {
		ss := SinkState{
			Index:     sink.Index,
			Name:      sink.Name,
			Hardware:  sink.Hardware(),
			State:     sink.State.String(),
			Frames:    c.FramesWritten(sink.Index),
			Proplist:  sink.Proplist,
			IsDefault: hasDefault && sink.Index == def.Index,
		}
		if sink.Owner != host.InvalidIndex {
			owner := sink.Owner
			ss.Owner = &owner
		}
		if m, ok := c.Master(sink.Index); ok {
			ss.Master = m.Name
		}
		st.Sinks = append(st.Sinks, ss)
	}

	for _, m := range c.Modules() {
		st.Modules = append(st.Modules, ModuleState{
			Index:    m.Index,
			Name:     m.Name,
			Argument: m.Argument,
			Proplist: m.Proplist,
		})
	}

	return st
}
