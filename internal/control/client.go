// ABOUTME: WebSocket client for the router control protocol
// ABOUTME: Handshake, request/response correlation and state updates
package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/Resonate-Protocol/resonate-router/internal/protocol"
	"github.com/Resonate-Protocol/resonate-router/internal/router"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ErrClosed is returned for requests on a closed client
var ErrClosed = errors.New("control client closed")

// ClientConfig holds control client configuration
type ClientConfig struct {
	ServerAddr string
	Name       string
	Debug      bool
	Logger     *log.Logger
}

// Client talks to a router control server
type Client struct {
	config ClientConfig
	logger *log.Logger
	conn   *websocket.Conn
	hello  protocol.ServerHello

	writeMu sync.Mutex

	pendingMu sync.Mutex
	pending   map[string]chan protocol.Message
	nextID    uint64

	// States receives every server/state broadcast. Slow readers miss
	// intermediate states, never the latest.
	States chan router.State

	closeOnce sync.Once
	done      chan struct{}
}

// Dial connects to the control server and performs the handshake
func Dial(ctx context.Context, config ClientConfig) (*Client, error) {
	logger := config.Logger
	if logger == nil {
		logger = log.Default()
	}
	if config.Name == "" {
		config.Name = "routerctl"
	}

	u := url.URL{Scheme: "ws", Host: config.ServerAddr, Path: Path}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial failed: %w", err)
	}

	c := &Client{
		config:  config,
		logger:  logger,
		conn:    conn,
		pending: make(map[string]chan protocol.Message),
		States:  make(chan router.State, 1),
		done:    make(chan struct{}),
	}

	if err := c.handshake(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("handshake failed: %w", err)
	}

	go c.readMessages()
	return c, nil
}

func (c *Client) handshake() error {
	hello := protocol.ClientHello{
		ClientID: uuid.New().String(),
		Name:     c.config.Name,
		Version:  protocol.ProtocolVersion,
	}
	if err := c.write(protocol.Message{Type: protocol.TypeClientHello, Payload: hello}); err != nil {
		return fmt.Errorf("failed to send client/hello: %w", err)
	}

	c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("failed to read server/hello: %w", err)
	}
	c.conn.SetReadDeadline(time.Time{})

	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("failed to parse server/hello: %w", err)
	}
	if msg.Type != protocol.TypeServerHello {
		return fmt.Errorf("expected server/hello, got %s", msg.Type)
	}
	if err := protocol.DecodePayload(msg.Payload, &c.hello); err != nil {
		return err
	}

	c.debugf("Handshake complete with %s (ID: %s)", c.hello.Name, c.hello.ServerID)
	return nil
}

// ServerHello returns what the server announced during the handshake
func (c *Client) ServerHello() protocol.ServerHello {
	return c.hello
}

// Close disconnects from the server
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		c.writeMu.Unlock()
		err = c.conn.Close()
		<-c.done
	})
	return err
}

func (c *Client) write(msg protocol.Message) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(msg)
}

func (c *Client) readMessages() {
	defer func() {
		c.pendingMu.Lock()
		for id, ch := range c.pending {
			close(ch)
			delete(c.pending, id)
		}
		c.pendingMu.Unlock()
		close(c.done)
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.debugf("Read error: %v", err)
			return
		}

		var msg protocol.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Printf("Failed to parse message: %v", err)
			continue
		}

		if msg.ID != "" {
			c.pendingMu.Lock()
			ch, ok := c.pending[msg.ID]
			delete(c.pending, msg.ID)
			c.pendingMu.Unlock()
			if ok {
				ch <- msg
				continue
			}
		}

		switch msg.Type {
		case protocol.TypeServerState:
			var st router.State
			if err := protocol.DecodePayload(msg.Payload, &st); err != nil {
				c.logger.Printf("Invalid state: %v", err)
				continue
			}
			select {
			case <-c.States:
			default:
			}
			c.States <- st
		case protocol.TypeServerError:
			var e protocol.ServerError
			protocol.DecodePayload(msg.Payload, &e)
			c.logger.Printf("Server error: %s: %s", e.Error, e.Message)
		default:
			c.debugf("Unhandled message type: %s", msg.Type)
		}
	}
}

// request sends a command and waits for the message answering it
func (c *Client) request(ctx context.Context, msgType string, payload interface{}) (protocol.Message, error) {
	ch := make(chan protocol.Message, 1)

	c.pendingMu.Lock()
	c.nextID++
	id := strconv.FormatUint(c.nextID, 10)
	c.pending[id] = ch
	c.pendingMu.Unlock()

	select {
	case <-c.done:
		return protocol.Message{}, ErrClosed
	default:
	}

	if err := c.write(protocol.Message{Type: msgType, ID: id, Payload: payload}); err != nil {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
		return protocol.Message{}, fmt.Errorf("failed to send %s: %w", msgType, err)
	}

	select {
	case msg, ok := <-ch:
		if !ok {
			return protocol.Message{}, ErrClosed
		}
		return msg, nil
	case <-c.done:
		return protocol.Message{}, ErrClosed
	case <-ctx.Done():
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
		return protocol.Message{}, ctx.Err()
	}
}

// command sends a command and converts a failed result into an error
func (c *Client) command(ctx context.Context, msgType string, payload interface{}) (protocol.Result, error) {
	msg, err := c.request(ctx, msgType, payload)
	if err != nil {
		return protocol.Result{}, err
	}

	var res protocol.Result
	if err := protocol.DecodePayload(msg.Payload, &res); err != nil {
		return res, err
	}
	if !res.OK {
		return res, fmt.Errorf("%s failed: %s", msgType, res.Error)
	}
	return res, nil
}

// State fetches the current router state
func (c *Client) State(ctx context.Context) (router.State, error) {
	msg, err := c.request(ctx, protocol.TypeStateGet, struct{}{})
	if err != nil {
		return router.State{}, err
	}
	if msg.Type != protocol.TypeServerState {
		var res protocol.Result
		protocol.DecodePayload(msg.Payload, &res)
		return router.State{}, fmt.Errorf("state/get failed: %s", res.Error)
	}

	var st router.State
	err = protocol.DecodePayload(msg.Payload, &st)
	return st, err
}

// AddSink creates a sink and returns its index
func (c *Client) AddSink(ctx context.Context, name string, hardware bool) (uint32, error) {
	res, err := c.command(ctx, protocol.TypeSinkAdd, protocol.SinkAdd{Name: name, Hardware: hardware})
	if err != nil {
		return 0, err
	}
	return derefIndex(res), nil
}

// RemoveSink unlinks a sink by name
func (c *Client) RemoveSink(ctx context.Context, name string) error {
	_, err := c.command(ctx, protocol.TypeSinkRemove, protocol.SinkRemove{Name: name})
	return err
}

// SetDefault configures the default sink
func (c *Client) SetDefault(ctx context.Context, name string) error {
	_, err := c.command(ctx, protocol.TypeDefaultSet, protocol.DefaultSet{Name: name})
	return err
}

// LoadModule loads a module and returns its index
func (c *Client) LoadModule(ctx context.Context, name, argument string) (uint32, error) {
	res, err := c.command(ctx, protocol.TypeModuleLoad, protocol.ModuleLoad{Name: name, Argument: argument})
	if err != nil {
		return 0, err
	}
	return derefIndex(res), nil
}

// UnloadModule unloads a module by index
func (c *Client) UnloadModule(ctx context.Context, index uint32) error {
	_, err := c.command(ctx, protocol.TypeModuleUnload, protocol.ModuleUnload{Index: index})
	return err
}

func derefIndex(res protocol.Result) uint32 {
	if res.Index == nil {
		return 0
	}
	return *res.Index
}

func (c *Client) debugf(format string, args ...interface{}) {
	if c.config.Debug {
		c.logger.Printf("[DEBUG] "+format, args...)
	}
}
