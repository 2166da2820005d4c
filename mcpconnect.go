// Package mcpconnect manages client connections to Model Context Protocol servers
package mcpconnect

import (
	"github.com/ajitpratap0/mcp-connect-go/pkg/config"
	"github.com/ajitpratap0/mcp-connect-go/pkg/errors"
	"github.com/ajitpratap0/mcp-connect-go/pkg/manager"
	"github.com/ajitpratap0/mcp-connect-go/pkg/retry"
	"github.com/ajitpratap0/mcp-connect-go/pkg/transport"
)

// Version represents the current version of the library
const Version = "0.1.0"

// These exports provide direct access to the core components
var (
	// NewManager creates a new connection manager
	NewManager = manager.NewManager

	// DefaultConfig returns the default manager configuration
	DefaultConfig = manager.DefaultConfig

	// NewNegotiator creates a new transport negotiator
	NewNegotiator = transport.NewNegotiator

	// LoadConfig loads a server fleet from a JSON or YAML file
	LoadConfig = config.Load

	// Classify maps an arbitrary error to its category and retry strategy
	Classify = errors.Classify

	// Do runs an operation under a classified retry loop
	Do = retry.Do
)

// Connection states reported by the manager
const (
	StateDisconnected = manager.StateDisconnected
	StateConnecting   = manager.StateConnecting
	StateConnected    = manager.StateConnected
	StateFailed       = manager.StateFailed
	StateClosing      = manager.StateClosing
)

// Error categories assigned by classification
const (
	CategoryTransport     = errors.CategoryTransport
	CategoryTimeout       = errors.CategoryTimeout
	CategoryAuth          = errors.CategoryAuth
	CategoryCapability    = errors.CategoryCapability
	CategoryProtocol      = errors.CategoryProtocol
	CategoryToolExecution = errors.CategoryToolExecution
	CategoryResource      = errors.CategoryResource
	CategoryConfiguration = errors.CategoryConfiguration
	CategoryUnknown       = errors.CategoryUnknown
)

// Connect options
var (
	WithTimeout        = manager.WithTimeout
	WithForceReconnect = manager.WithForceReconnect
	WithoutToolCache   = manager.WithoutToolCache
)
