package manager

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	mcperrors "github.com/ajitpratap0/mcp-connect-go/pkg/errors"
	"github.com/ajitpratap0/mcp-connect-go/pkg/logging"
	"github.com/ajitpratap0/mcp-connect-go/pkg/observability"
	"github.com/ajitpratap0/mcp-connect-go/pkg/transport"
)

// Negotiator dials one server and returns a live session handle. It is
// satisfied by *transport.Negotiator and replaceable in tests.
type Negotiator interface {
	Negotiate(ctx context.Context, impl *mcp.Implementation, spec transport.Spec) (*transport.Handle, error)
}

// Config configures a Manager.
type Config struct {
	// ClientName and ClientVersion identify this client during the MCP
	// handshake.
	ClientName    string
	ClientVersion string

	// DefaultTimeout bounds each connection attempt unless overridden per
	// call with WithTimeout.
	DefaultTimeout time.Duration

	// MaxFailureCount is the consecutive-failure threshold at which
	// Connect refuses further attempts for a server until the count is
	// reset or a reconnect is forced.
	MaxFailureCount int

	// AutoReconnect is accepted for construction compatibility. Connect
	// keeps its single-attempt contract; reconnecting after a session
	// drops remains the caller's responsibility.
	AutoReconnect bool

	// Logger receives structured lifecycle events. Defaults to a no-op
	// logger.
	Logger logging.Logger

	// Metrics and Tracing are optional. A nil provider disables
	// recording.
	Metrics observability.MetricsProvider
	Tracing *observability.TracingProvider

	// Negotiator performs transport negotiation. Defaults to
	// transport.NewNegotiator(Logger).
	Negotiator Negotiator
}

// DefaultConfig returns a Config with production defaults.
func DefaultConfig() Config {
	return Config{
		ClientName:      "mcp-connect",
		ClientVersion:   "0.1.0",
		DefaultTimeout:  10 * time.Second,
		MaxFailureCount: 3,
		Logger:          logging.Nop(),
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.ClientName == "" {
		return mcperrors.New(mcperrors.CategoryConfiguration, "client name must not be empty")
	}
	if c.DefaultTimeout <= 0 {
		return mcperrors.New(mcperrors.CategoryConfiguration, "default timeout must be positive")
	}
	if c.MaxFailureCount < 1 {
		return mcperrors.New(mcperrors.CategoryConfiguration, "max failure count must be at least 1")
	}
	return nil
}

// ServerConfig describes one server the manager can connect to.
type ServerConfig struct {
	// ID keys the connection in the registry.
	ID string `json:"id"`
	// Name is a human-readable label. It defaults to ID.
	Name string `json:"name,omitempty"`
	// Transport selects and configures how the server is reached.
	Transport transport.Spec `json:"transport"`
}

// Validate checks the server configuration.
func (c ServerConfig) Validate() error {
	if c.ID == "" {
		return mcperrors.New(mcperrors.CategoryConfiguration, "server config requires an id")
	}
	if c.Transport == nil {
		return mcperrors.New(mcperrors.CategoryConfiguration, fmt.Sprintf("server %q has no transport", c.ID))
	}
	return c.Transport.Validate()
}

// ConnectOption customizes a single Connect call.
type ConnectOption func(*connectOptions)

type connectOptions struct {
	timeout        time.Duration
	forceReconnect bool
	cacheTools     bool
}

// WithTimeout overrides the manager's default timeout for this attempt.
func WithTimeout(d time.Duration) ConnectOption {
	return func(o *connectOptions) {
		o.timeout = d
	}
}

// WithForceReconnect tears down any existing connection first, bypassing
// both the connected-entry cache and the circuit breaker.
func WithForceReconnect() ConnectOption {
	return func(o *connectOptions) {
		o.forceReconnect = true
	}
}

// WithoutToolCache skips tool discovery after the handshake.
func WithoutToolCache() ConnectOption {
	return func(o *connectOptions) {
		o.cacheTools = false
	}
}
