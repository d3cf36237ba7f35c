// ABOUTME: WebSocket control server for the router
// ABOUTME: Handshake, command execution on the router and state broadcast
package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/Resonate-Protocol/resonate-router/internal/config"
	"github.com/Resonate-Protocol/resonate-router/internal/protocol"
	"github.com/Resonate-Protocol/resonate-router/internal/router"
	"github.com/Resonate-Protocol/resonate-router/internal/version"
	"github.com/Resonate-Protocol/resonate-router/pkg/audio/output"
	"github.com/gorilla/websocket"
)

// Path is where the control endpoint is served
const Path = "/router"

// commandTimeout bounds how long one command may wait for the router
const commandTimeout = 5 * time.Second

// Config holds control server configuration
type Config struct {
	Port   int
	Debug  bool
	Logger *log.Logger

	// NewBackend is used for sink/add with hardware set. Nil uses memory outputs.
	NewBackend config.BackendFactory
}

// Server exposes a router over WebSocket
type Server struct {
	config   Config
	logger   *log.Logger
	router   *router.Server
	upgrader websocket.Upgrader

	httpServer *http.Server
	mux        *http.ServeMux

	clients   map[string]*client
	clientsMu sync.RWMutex

	stopChan   chan struct{}
	stopOnce   sync.Once
	shutdownMu sync.RWMutex
	isShutdown bool
	wg         sync.WaitGroup
}

type client struct {
	id       string
	name     string
	conn     *websocket.Conn
	sendChan chan protocol.Message
}

// NewServer creates a control server for r
func NewServer(r *router.Server, config Config) *Server {
	logger := config.Logger
	if logger == nil {
		logger = log.Default()
	}
	if config.NewBackend == nil {
		config.NewBackend = func(string) (output.Output, error) {
			return output.NewMemory(0), nil
		}
	}

	s := &Server{
		config: config,
		logger: logger,
		router: r,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Local network control only; browsers are not expected
				return r.Header.Get("Origin") == ""
			},
		},
		mux:      http.NewServeMux(),
		clients:  make(map[string]*client),
		stopChan: make(chan struct{}),
	}
	s.mux.HandleFunc(Path, s.handleWebSocket)
	return s
}

// Handler returns the HTTP handler serving the control endpoint
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start serves HTTP and broadcasts router state until Stop
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.Run()

	s.logger.Printf("Control server listening on %s", addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed: %w", err)
	}
	return nil
}

// Run starts the state broadcaster. Start calls it; tests serving Handler
// through httptest call it directly.
func (s *Server) Run() {
	updates := s.router.Subscribe()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.router.Unsubscribe(updates)

		for {
			select {
			case st, ok := <-updates:
				if !ok {
					return
				}
				s.broadcast(protocol.Message{Type: protocol.TypeServerState, Payload: st})
			case <-s.stopChan:
				return
			}
		}
	}()
}

// Stop closes client connections and the HTTP server
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		s.shutdownMu.Lock()
		s.isShutdown = true
		s.shutdownMu.Unlock()

		close(s.stopChan)

		if s.httpServer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.httpServer.Shutdown(ctx); err != nil {
				s.logger.Printf("HTTP server shutdown error: %v", err)
			}
		}

		s.clientsMu.RLock()
		for _, c := range s.clients {
			c.conn.Close()
		}
		s.clientsMu.RUnlock()

		s.wg.Wait()
		s.logger.Printf("Control server stopped")
	})
}

// ClientCount returns the number of connected control clients
func (s *Server) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Printf("WebSocket upgrade error: %v", err)
		return
	}

	s.debugf("New control connection from %s", r.RemoteAddr)
	s.handleConnection(conn)
}

func (s *Server) handleConnection(conn *websocket.Conn) {
	defer conn.Close()

	s.shutdownMu.RLock()
	if s.isShutdown {
		s.shutdownMu.RUnlock()
		return
	}
	s.shutdownMu.RUnlock()

	conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		s.logger.Printf("Error reading hello: %v", err)
		return
	}
	conn.SetReadDeadline(time.Time{})

	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		s.logger.Printf("Error unmarshaling message: %v", err)
		return
	}
	if msg.Type != protocol.TypeClientHello {
		s.reject(conn, "handshake_required", fmt.Sprintf("expected %s, got %s", protocol.TypeClientHello, msg.Type))
		return
	}

	var hello protocol.ClientHello
	if err := protocol.DecodePayload(msg.Payload, &hello); err != nil || hello.ClientID == "" || hello.Name == "" {
		s.reject(conn, "invalid_hello", "client_id and name are required")
		return
	}

	c := &client{
		id:       hello.ClientID,
		name:     hello.Name,
		conn:     conn,
		sendChan: make(chan protocol.Message, 64),
	}

	s.clientsMu.Lock()
	if _, exists := s.clients[c.id]; exists {
		s.clientsMu.Unlock()
		s.logger.Printf("Client ID %s already connected, rejecting duplicate", c.id)
		s.reject(conn, "duplicate_client_id", "Client ID already connected")
		return
	}
	s.clients[c.id] = c
	s.clientsMu.Unlock()

	s.logger.Printf("Control client connected: %s (ID: %s)", c.name, c.id)

	defer func() {
		s.clientsMu.Lock()
		delete(s.clients, c.id)
		s.clientsMu.Unlock()
		close(c.sendChan)
		s.logger.Printf("Control client disconnected: %s", c.name)
	}()

	s.send(c, protocol.Message{
		Type: protocol.TypeServerHello,
		Payload: protocol.ServerHello{
			ServerID:      s.router.ID(),
			Name:          s.router.Name(),
			Version:       protocol.ProtocolVersion,
			RouterVersion: version.Version,
		},
	})

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.clientWriter(c)
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Printf("WebSocket error: %v", err)
			}
			return
		}
		s.handleMessage(c, data)
	}
}

// reject tells a client why it is being dropped
func (s *Server) reject(conn *websocket.Conn, code, message string) {
	data, err := json.Marshal(protocol.Message{
		Type:    protocol.TypeServerError,
		Payload: protocol.ServerError{Error: code, Message: message},
	})
	if err != nil {
		return
	}
	conn.SetWriteDeadline(time.Now().Add(time.Second))
	conn.WriteMessage(websocket.TextMessage, data)
}

// clientWriter sends queued messages and keeps the connection alive
func (s *Server) clientWriter(c *client) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	const writeDeadline = 10 * time.Second

	for {
		select {
		case msg, ok := <-c.sendChan:
			if !ok {
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				s.logger.Printf("Error marshaling message: %v", err)
				continue
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.logger.Printf("Error writing to %s: %v", c.name, err)
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeDeadline)); err != nil {
				return
			}
		}
	}
}

func (s *Server) handleMessage(c *client, data []byte) {
	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		s.logger.Printf("Error unmarshaling message: %v", err)
		return
	}

	s.debugf("Command %s (id %s) from %s", msg.Type, msg.ID, c.name)

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if msg.Type == protocol.TypeStateGet {
		st, err := s.router.Snapshot(ctx)
		if err != nil {
			s.send(c, resultMessage(msg.ID, nil, err))
			return
		}
		s.send(c, protocol.Message{Type: protocol.TypeServerState, ID: msg.ID, Payload: st})
		return
	}

	index, err := s.execute(ctx, msg)
	s.send(c, resultMessage(msg.ID, index, err))
}

// execute runs one command on the router and returns the index it created.
// Indices are written on the dispatch goroutine, so they are only read once
// Do reports the operation ran.
func (s *Server) execute(ctx context.Context, msg protocol.Message) (*uint32, error) {
	switch msg.Type {
	case protocol.TypeSinkAdd:
		var p protocol.SinkAdd
		if err := protocol.DecodePayload(msg.Payload, &p); err != nil {
			return nil, err
		}
		var idx uint32
		err := s.router.Do(ctx, func(c *router.Core) error {
			var err error
			if p.Hardware {
				idx, err = config.AddHardwareSink(c, p.Name, s.config.NewBackend)
			} else {
				idx, err = c.AddSink(router.SinkConfig{Name: p.Name})
			}
			return err
		})
		if err != nil {
			return nil, err
		}
		return &idx, nil

	case protocol.TypeSinkRemove:
		var p protocol.SinkRemove
		if err := protocol.DecodePayload(msg.Payload, &p); err != nil {
			return nil, err
		}
		return nil, s.router.Do(ctx, func(c *router.Core) error {
			sink, err := c.SinkByName(p.Name)
			if err != nil {
				return err
			}
			return c.UnlinkSink(sink.Index)
		})

	case protocol.TypeDefaultSet:
		var p protocol.DefaultSet
		if err := protocol.DecodePayload(msg.Payload, &p); err != nil {
			return nil, err
		}
		return nil, s.router.Do(ctx, func(c *router.Core) error {
			return c.SetConfiguredDefaultSink(p.Name)
		})

	case protocol.TypeModuleLoad:
		var p protocol.ModuleLoad
		if err := protocol.DecodePayload(msg.Payload, &p); err != nil {
			return nil, err
		}
		var idx uint32
		err := s.router.Do(ctx, func(c *router.Core) error {
			m, err := c.LoadModule(p.Name, p.Argument)
			idx = m.Index
			return err
		})
		if err != nil {
			return nil, err
		}
		return &idx, nil

	case protocol.TypeModuleUnload:
		var p protocol.ModuleUnload
		if err := protocol.DecodePayload(msg.Payload, &p); err != nil {
			return nil, err
		}
		return nil, s.router.Do(ctx, func(c *router.Core) error {
			return c.UnloadModule(p.Index)
		})

	default:
		return nil, fmt.Errorf("unknown message type: %s", msg.Type)
	}
}

func resultMessage(id string, index *uint32, err error) protocol.Message {
	res := protocol.Result{OK: err == nil, Index: index}
	if err != nil {
		res.Error = err.Error()
	}
	return protocol.Message{Type: protocol.TypeServerResult, ID: id, Payload: res}
}

// send queues a message without blocking the caller
func (s *Server) send(c *client, msg protocol.Message) {
	select {
	case c.sendChan <- msg:
	default:
		s.logger.Printf("Warning: send buffer full for %s, dropping %s", c.name, msg.Type)
	}
}

func (s *Server) broadcast(msg protocol.Message) {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	for _, c := range s.clients {
		s.send(c, msg)
	}
}

func (s *Server) debugf(format string, args ...interface{}) {
	if s.config.Debug {
		s.logger.Printf("[DEBUG] "+format, args...)
	}
}
