//go:build ignore
// +build ignore

// This file is an example documentation file that's not meant to be included in builds.
// It sketches the shape of the connection-management API for reference only.
// The actual implementation is in the pkg directory.

// Package mcpconnect manages client connections to Model Context Protocol servers.
// It keeps one registry entry per server, dials over stdio or HTTP, classifies
// every failure, and refuses further attempts once a server has failed too often.
//
// The package is designed with the following principles:
//
//   - One entry per server ID: repeated Connect calls share state and never race
//   - Classified failures: every error carries a category, severity and retry strategy
//   - Fail-fast policy: a circuit breaker gates servers that keep failing
//   - Transport agnosticism: stdio and HTTP servers are managed identically
//
// # Connecting to a Server
//
// To connect and use a server's tools:
//
//	import (
//	    "context"
//	    "log"
//	    mcpconnect "github.com/ajitpratap0/mcp-connect-go"
//	)
//
//	func main() {
//	    mgr, err := mcpconnect.NewManager(mcpconnect.DefaultConfig())
//	    if err != nil {
//	        log.Fatalf("Failed to create manager: %v", err)
//	    }
//	    ctx := context.Background()
//	    defer mgr.DisconnectAll(ctx)
//
//	    res := mgr.Connect(ctx, serverConfig)
//	    if !res.Success {
//	        log.Fatalf("Failed to connect: %v", res.Err)
//	    }
//	    for _, tool := range res.Tools {
//	        log.Printf("Tool: %s - %s", tool.Name, tool.Description)
//	    }
//	}
package mcpconnect_examples

import (
	"context"
	"time"
)

// Version represents the current version of the library.
const Version = "0.1.0"

// State describes where a managed connection is in its lifecycle.
type State string

// ConnectOption tunes a single Connect call.
// Use the With* functions to create options.
type ConnectOption func(*connectOptions)

// Manager tracks one connection per server ID.
// All methods are safe for concurrent use.
type Manager interface {
	// Connect establishes (or reuses) the connection for config.ID.
	// Failures are reported in the result, never by panic.
	Connect(ctx context.Context, config ServerConfig, opts ...ConnectOption) ConnectResult

	// ConnectMultiple connects a fleet concurrently and returns one result per ID.
	ConnectMultiple(ctx context.Context, configs []ServerConfig) map[string]ConnectResult

	// Disconnect closes and removes one connection.
	Disconnect(ctx context.Context, serverID string) bool

	// DisconnectAll closes every connection and empties the registry.
	DisconnectAll(ctx context.Context)

	// GetConnectionState reports the lifecycle state of a server.
	GetConnectionState(serverID string) State

	// GetCachedTools returns the tool inventory discovered at connect time.
	GetCachedTools(serverID string) []ToolInfo
}

// ServerConfig declares one server: its registry ID and how to reach it.
type ServerConfig struct {
	// ID is the registry key. Two configs with the same ID share one connection.
	ID string

	// Name is a human-readable label used in logs.
	Name string

	// Transport declares how to reach the server (stdio subprocess or HTTP URL).
	Transport Spec
}

// Spec declares how to reach a server.
type Spec interface {
	// Validate reports whether the spec is complete enough to dial.
	Validate() error
}

// ConnectResult reports the outcome of one Connect call.
type ConnectResult struct {
	// Success is true when the connection is usable.
	Success bool

	// Tools is the inventory discovered during connect, nil when discovery
	// was skipped or failed.
	Tools []ToolInfo

	// Err is the classified failure, nil on success.
	Err error

	// Latency is the wall time the call took.
	Latency time.Duration
}

// ToolInfo describes one tool exposed by a connected server.
type ToolInfo struct {
	// Name identifies the tool for CallTool requests.
	Name string

	// Description explains what the tool does.
	Description string
}

// NewManager creates a manager with the given configuration.
func NewManager(config Config) (Manager, error) {
	// Sketch only; the real implementation lives in pkg/manager
	return nil, nil
}

// WithTimeout overrides the per-attempt dial timeout.
func WithTimeout(d time.Duration) ConnectOption {
	// Sketch only; the real implementation lives in pkg/manager
	return nil
}

// WithForceReconnect tears down any existing connection before dialing.
func WithForceReconnect() ConnectOption {
	// Sketch only; the real implementation lives in pkg/manager
	return nil
}

// Config carries the manager-wide settings.
type Config struct {
	// DefaultTimeout bounds each connection attempt.
	DefaultTimeout time.Duration

	// MaxFailureCount opens the circuit breaker for a server once its
	// consecutive failures reach this threshold.
	MaxFailureCount int
}

type connectOptions struct{}
