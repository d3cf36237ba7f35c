// ABOUTME: Control protocol message type definitions
// ABOUTME: JSON envelope and payloads exchanged between routerctl and the router
package protocol

import (
	"encoding/json"
	"fmt"
)

// ProtocolVersion is sent in both hello messages
const ProtocolVersion = 1

// Message types
const (
	TypeClientHello  = "client/hello"
	TypeServerHello  = "server/hello"
	TypeServerResult = "server/result"
	TypeServerState  = "server/state"
	TypeServerError  = "server/error"

	TypeStateGet     = "state/get"
	TypeSinkAdd      = "sink/add"
	TypeSinkRemove   = "sink/remove"
	TypeDefaultSet   = "default/set"
	TypeModuleLoad   = "module/load"
	TypeModuleUnload = "module/unload"
)

// Message is the top-level wrapper for all protocol messages. ID is echoed
// in the server/result answering a command.
type Message struct {
	Type    string      `json:"type"`
	ID      string      `json:"id,omitempty"`
	Payload interface{} `json:"payload"`
}

// ClientHello is sent by clients to initiate the handshake
type ClientHello struct {
	ClientID string `json:"client_id"`
	Name     string `json:"name"`
	Version  int    `json:"version"`
}

// ServerHello is the server's response to client/hello
type ServerHello struct {
	ServerID      string `json:"server_id"`
	Name          string `json:"name"`
	Version       int    `json:"version"`
	RouterVersion string `json:"router_version"`
}

// SinkAdd creates a sink. Hardware sinks get a playback backend.
type SinkAdd struct {
	Name     string `json:"name"`
	Hardware bool   `json:"hardware"`
}

// SinkRemove unlinks a sink by name
type SinkRemove struct {
	Name string `json:"name"`
}

// DefaultSet configures the default sink
type DefaultSet struct {
	Name string `json:"name"`
}

// ModuleLoad loads a module type with an argument string
type ModuleLoad struct {
	Name     string `json:"name"`
	Argument string `json:"argument"`
}

// ModuleUnload unloads a module by index
type ModuleUnload struct {
	Index uint32 `json:"index"`
}

// Result answers every command
type Result struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`

	// Index of the sink or module a command created
	Index *uint32 `json:"index,omitempty"`
}

// ServerError is sent before the server closes a connection it rejects
type ServerError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// DecodePayload converts a generically decoded payload into v
func DecodePayload(payload interface{}, v interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return nil
}
