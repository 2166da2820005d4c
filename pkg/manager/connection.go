package manager

import (
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ajitpratap0/mcp-connect-go/pkg/transport"
)

// ToolInfo is the cached metadata for one server tool.
type ToolInfo struct {
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	InputSchema *jsonschema.Schema `json:"inputSchema,omitempty"`
}

// ServerInfo identifies the remote server as reported by the handshake.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ConnectResult is the outcome of one Connect call. Err is set whenever
// Success is false; errors.As recovers the *errors.ClassifiedError form for
// failures that went through classification.
type ConnectResult struct {
	Success    bool
	ServerID   string
	State      State
	Tools      []ToolInfo
	ServerInfo *ServerInfo
	Err        error
	Latency    time.Duration
}

// ConnectionInfo is a point-in-time snapshot of one registry entry.
type ConnectionInfo struct {
	ServerID      string
	Name          string
	State         State
	TransportKind transport.Kind
	FailureCount  int
	LastAttempt   time.Time
	LastError     error
	ServerInfo    *ServerInfo
	ToolCount     int
}

// connection is the registry's mutable record for one server. Every field
// is guarded by the manager's mutex.
type connection struct {
	id     string
	name   string
	config ServerConfig

	state        State
	kind         transport.Kind
	session      *mcp.ClientSession
	serverInfo   *ServerInfo
	tools        []ToolInfo
	failureCount int
	lastAttempt  time.Time
	lastError    error
}

// snapshot copies the entry into a ConnectionInfo. Caller holds the
// manager's mutex.
func (c *connection) snapshot() ConnectionInfo {
	return ConnectionInfo{
		ServerID:      c.id,
		Name:          c.name,
		State:         c.state,
		TransportKind: c.kind,
		FailureCount:  c.failureCount,
		LastAttempt:   c.lastAttempt,
		LastError:     c.lastError,
		ServerInfo:    c.serverInfo,
		ToolCount:     len(c.tools),
	}
}

// result builds a ConnectResult from the entry. Caller holds the manager's
// mutex.
func (c *connection) result(success bool, err error, latency time.Duration) ConnectResult {
	return ConnectResult{
		Success:    success,
		ServerID:   c.id,
		State:      c.state,
		Tools:      copyTools(c.tools),
		ServerInfo: c.serverInfo,
		Err:        err,
		Latency:    latency,
	}
}

func copyTools(tools []ToolInfo) []ToolInfo {
	if tools == nil {
		return nil
	}
	out := make([]ToolInfo, len(tools))
	copy(out, tools)
	return out
}
