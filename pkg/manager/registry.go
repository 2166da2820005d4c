package manager

import (
	"context"
	"fmt"
	"sort"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	mcperrors "github.com/ajitpratap0/mcp-connect-go/pkg/errors"
	"github.com/ajitpratap0/mcp-connect-go/pkg/logging"
)

// GetConnection returns a snapshot of the registry entry for serverID.
func (m *Manager) GetConnection(serverID string) (ConnectionInfo, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	conn, ok := m.connections[serverID]
	if !ok {
		return ConnectionInfo{}, false
	}
	return conn.snapshot(), true
}

// GetAllConnections returns snapshots of every entry, ordered by server ID.
func (m *Manager) GetAllConnections() []ConnectionInfo {
	m.mu.RLock()
	infos := make([]ConnectionInfo, 0, len(m.connections))
	for _, conn := range m.connections {
		infos = append(infos, conn.snapshot())
	}
	m.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool { return infos[i].ServerID < infos[j].ServerID })
	return infos
}

// GetConnectionState returns the state for serverID. Unknown IDs report
// StateDisconnected.
func (m *Manager) GetConnectionState(serverID string) State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if conn, ok := m.connections[serverID]; ok {
		return conn.state
	}
	return StateDisconnected
}

// GetCachedTools returns the cached tool list for a connected server and nil
// for servers in any other state.
func (m *Manager) GetCachedTools(serverID string) []ToolInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	conn, ok := m.connections[serverID]
	if !ok || conn.state != StateConnected {
		return nil
	}
	return copyTools(conn.tools)
}

// IsConnected reports whether serverID currently has a live connection.
func (m *Manager) IsConnected(serverID string) bool {
	return m.GetConnectionState(serverID) == StateConnected
}

// ResetFailureCount zeroes the failure count and clears the last error
// without touching the state. The circuit breaker sees the zeroed count on
// the next attempt.
func (m *Manager) ResetFailureCount(serverID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	conn, ok := m.connections[serverID]
	if !ok {
		return false
	}
	conn.failureCount = 0
	conn.lastError = nil
	return true
}

// GetStats counts connections by state. Closing entries count as
// disconnected; they are about to leave the table.
func (m *Manager) GetStats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stats := Stats{Total: len(m.connections)}
	for _, conn := range m.connections {
		switch conn.state {
		case StateConnected:
			stats.Connected++
		case StateConnecting:
			stats.Connecting++
		case StateFailed:
			stats.Failed++
		default:
			stats.Disconnected++
		}
	}
	return stats
}

// Session returns the live session for a connected server. Consumers use it
// for tool and resource calls; the manager keeps ownership of its lifecycle.
func (m *Manager) Session(serverID string) (*mcp.ClientSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	conn, ok := m.connections[serverID]
	if !ok || conn.state != StateConnected || conn.session == nil {
		return nil, false
	}
	return conn.session, true
}

// Ping probes the session for serverID.
func (m *Manager) Ping(ctx context.Context, serverID string) error {
	session, ok := m.Session(serverID)
	if !ok {
		return mcperrors.New(mcperrors.CategoryTransport,
			fmt.Sprintf("server %q is not connected", serverID))
	}
	return session.Ping(ctx, nil)
}

// RefreshTools re-runs tool discovery for a connected server. On failure the
// previous cache is returned unchanged and the connection stays connected.
func (m *Manager) RefreshTools(ctx context.Context, serverID string) []ToolInfo {
	m.mu.RLock()
	conn, ok := m.connections[serverID]
	if !ok || conn.state != StateConnected || conn.session == nil {
		m.mu.RUnlock()
		return nil
	}
	session := conn.session
	previous := copyTools(conn.tools)
	m.mu.RUnlock()

	tools, err := fetchTools(ctx, session)
	if err != nil {
		m.logger.Warn("Tool refresh failed, keeping cached list",
			logging.Server(serverID),
			logging.ErrorField(err))
		return previous
	}

	m.mu.Lock()
	if current, ok := m.connections[serverID]; ok && current == conn && current.state == StateConnected {
		conn.tools = tools
	}
	m.mu.Unlock()

	if m.config.Metrics != nil {
		m.config.Metrics.RecordToolsDiscovered(ctx, serverID, len(tools))
	}
	return copyTools(tools)
}
