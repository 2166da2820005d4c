// Package manager owns the server-ID-to-connection table and the connect,
// disconnect, and inspection operations around it. Connect performs a single
// negotiation attempt guarded by a shutdown gate, a connected-entry cache,
// and a consecutive-failure circuit breaker; retrying failed attempts stays
// with the caller, typically via the retry package.
package manager

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	mcperrors "github.com/ajitpratap0/mcp-connect-go/pkg/errors"
	"github.com/ajitpratap0/mcp-connect-go/pkg/logging"
	"github.com/ajitpratap0/mcp-connect-go/pkg/transport"
)

// Manager is the connection registry and lifecycle facade. A Manager is safe
// for concurrent use; construct one per application with NewManager.
type Manager struct {
	config Config
	impl   *mcp.Implementation
	logger logging.Logger

	mu          sync.RWMutex
	connections map[string]*connection

	dials    singleflight.Group
	shutdown atomic.Bool
}

// NewManager creates a Manager. Zero-valued Config fields pick up the
// DefaultConfig values.
func NewManager(config Config) (*Manager, error) {
	if config.ClientName == "" {
		config.ClientName = "mcp-connect"
	}
	if config.ClientVersion == "" {
		config.ClientVersion = "0.1.0"
	}
	if config.DefaultTimeout == 0 {
		config.DefaultTimeout = 10 * time.Second
	}
	if config.MaxFailureCount == 0 {
		config.MaxFailureCount = 3
	}
	if config.Logger == nil {
		config.Logger = logging.Nop()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.Negotiator == nil {
		config.Negotiator = transport.NewNegotiator(config.Logger)
	}

	return &Manager{
		config: config,
		impl: &mcp.Implementation{
			Name:    config.ClientName,
			Version: config.ClientVersion,
		},
		logger:      config.Logger.WithFields(logging.String("component", "manager")),
		connections: make(map[string]*connection),
	}, nil
}

// Connect establishes or reuses the connection for config.ID. It never
// returns a Go error; failures are captured in the result. Concurrent calls
// for the same ID share a single attempt and its result.
func (m *Manager) Connect(ctx context.Context, config ServerConfig, opts ...ConnectOption) ConnectResult {
	start := time.Now()

	options := connectOptions{timeout: m.config.DefaultTimeout, cacheTools: true}
	for _, opt := range opts {
		opt(&options)
	}

	if m.shutdown.Load() {
		return ConnectResult{
			ServerID: config.ID,
			State:    StateDisconnected,
			Err:      errors.New("Manager is shutting down"),
			Latency:  time.Since(start),
		}
	}
	if config.ID == "" {
		return ConnectResult{
			State:   StateDisconnected,
			Err:     mcperrors.New(mcperrors.CategoryConfiguration, "server config requires an id"),
			Latency: time.Since(start),
		}
	}

	if !options.forceReconnect {
		if res, done := m.fastPath(ctx, config.ID, start); done {
			return res
		}
	}

	v, _, _ := m.dials.Do(config.ID, func() (interface{}, error) {
		return m.attempt(ctx, config, options), nil
	})
	return v.(ConnectResult)
}

// fastPath serves cache hits and breaker rejections without entering the
// per-ID flight. The caller has already ruled out forceReconnect.
func (m *Manager) fastPath(ctx context.Context, serverID string, start time.Time) (ConnectResult, bool) {
	m.mu.RLock()
	conn, ok := m.connections[serverID]
	if !ok {
		m.mu.RUnlock()
		return ConnectResult{}, false
	}
	if conn.state == StateConnected {
		res := conn.result(true, nil, time.Since(start))
		m.mu.RUnlock()
		m.logger.Debug("Connection cache hit", logging.Server(serverID))
		return res, true
	}
	if conn.failureCount >= m.config.MaxFailureCount {
		count := conn.failureCount
		m.mu.RUnlock()
		return m.breakerResult(ctx, serverID, count, start), true
	}
	m.mu.RUnlock()
	return ConnectResult{}, false
}

// breakerResult builds the rejection returned while the circuit breaker is
// open. The stored failure count is left untouched.
func (m *Manager) breakerResult(ctx context.Context, serverID string, count int, start time.Time) ConnectResult {
	m.logger.Warn("Circuit breaker open, refusing connection attempt",
		logging.Server(serverID),
		logging.Int("failure_count", count))
	if m.config.Metrics != nil {
		m.config.Metrics.RecordCircuitBreakerTrip(ctx, serverID)
	}
	return ConnectResult{
		ServerID: serverID,
		State:    StateFailed,
		Err:      fmt.Errorf("Exceeded max failure count (%d) for server %q", m.config.MaxFailureCount, serverID),
		Latency:  time.Since(start),
	}
}

// attempt runs one full connection attempt inside the per-ID flight.
func (m *Manager) attempt(ctx context.Context, config ServerConfig, options connectOptions) ConnectResult {
	start := time.Now()
	ctx = logging.ContextWithAttemptID(ctx, uuid.New().String())
	logger := m.logger.WithContext(ctx).WithFields(logging.Server(config.ID))

	kindLabel := "unknown"
	if config.Transport != nil {
		kindLabel = string(config.Transport.Kind())
	}

	if m.config.Tracing != nil {
		var span trace.Span
		ctx, span = m.config.Tracing.StartConnectSpan(ctx, config.ID, kindLabel)
		defer span.End()
	}

	if options.forceReconnect {
		if m.Disconnect(ctx, config.ID) {
			logger.Debug("Dropped existing connection for forced reconnect")
		}
	}

	// Publish the connecting placeholder, re-checking the cache and the
	// breaker now that the write lock is held. A failed predecessor's
	// count carries over so the breaker sees consecutive failures.
	m.mu.Lock()
	if prev, ok := m.connections[config.ID]; ok && !options.forceReconnect {
		if prev.state == StateConnected {
			res := prev.result(true, nil, time.Since(start))
			m.mu.Unlock()
			logger.Debug("Connection cache hit")
			return res
		}
		if prev.failureCount >= m.config.MaxFailureCount {
			count := prev.failureCount
			m.mu.Unlock()
			return m.breakerResult(ctx, config.ID, count, start)
		}
	}
	conn := &connection{
		id:          config.ID,
		name:        config.Name,
		config:      config,
		state:       StateConnecting,
		lastAttempt: time.Now(),
	}
	if conn.name == "" {
		conn.name = config.ID
	}
	if prev, ok := m.connections[config.ID]; ok {
		conn.failureCount = prev.failureCount
		conn.lastError = prev.lastError
	}
	m.connections[config.ID] = conn
	m.mu.Unlock()
	m.publishStates(ctx)

	logger.Info("Connecting to server",
		logging.String("transport", kindLabel),
		logging.Duration("timeout", options.timeout))

	handle, dialErr := m.dial(ctx, config, options.timeout)
	if dialErr != nil {
		return m.failAttempt(ctx, logger, conn, config, kindLabel, dialErr, start)
	}

	session := handle.Session
	serverInfo := serverInfoFrom(session)
	var tools []ToolInfo
	if options.cacheTools {
		var listErr error
		tools, listErr = fetchTools(ctx, session)
		if listErr != nil {
			logger.Warn("Tool discovery failed, continuing without tools",
				logging.ErrorField(listErr))
			tools = nil
		}
	}

	m.mu.Lock()
	if m.connections[config.ID] != conn {
		// The entry was removed while dialing. Honor the disconnect.
		m.mu.Unlock()
		m.closeSession(ctx, logger, session)
		return ConnectResult{
			ServerID: config.ID,
			State:    StateDisconnected,
			Err:      fmt.Errorf("server %q was disconnected while connecting", config.ID),
			Latency:  time.Since(start),
		}
	}
	conn.state = StateConnected
	conn.kind = handle.Kind
	conn.session = session
	conn.serverInfo = serverInfo
	conn.tools = tools
	conn.failureCount = 0
	conn.lastError = nil
	res := conn.result(true, nil, time.Since(start))
	m.mu.Unlock()

	go m.watchSession(config.ID, conn, session)

	logger.Info("Connected to server",
		logging.String("transport", string(handle.Kind)),
		logging.Int("tools", len(tools)),
		logging.Duration("latency", res.Latency))

	if m.config.Metrics != nil {
		m.config.Metrics.RecordConnectAttempt(ctx, config.ID, string(handle.Kind), true, res.Latency)
		if options.cacheTools {
			m.config.Metrics.RecordToolsDiscovered(ctx, config.ID, len(tools))
		}
		if handle.Kind == transport.KindSSE {
			m.config.Metrics.RecordTransportFallback(ctx, config.ID)
		}
	}
	m.publishStates(ctx)
	return res
}

// failAttempt records a failed attempt against the placeholder entry.
func (m *Manager) failAttempt(ctx context.Context, logger logging.Logger, conn *connection, config ServerConfig, kindLabel string, dialErr error, start time.Time) ConnectResult {
	ce := mcperrors.Classify(dialErr)

	m.mu.Lock()
	if m.connections[config.ID] == conn {
		conn.state = StateFailed
		conn.failureCount++
		conn.lastError = ce
	}
	count := conn.failureCount
	m.mu.Unlock()

	logger.Log(logging.LevelForSeverity(ce.Severity), "Connection failed",
		logging.String("category", string(ce.Category)),
		logging.Int("failure_count", count),
		logging.ErrorField(ce))

	if m.config.Tracing != nil {
		m.config.Tracing.RecordError(ctx, ce)
	}
	if m.config.Metrics != nil {
		m.config.Metrics.RecordConnectAttempt(ctx, config.ID, kindLabel, false, time.Since(start))
		m.config.Metrics.RecordConnectError(ctx, config.ID, string(ce.Category))
	}
	m.publishStates(ctx)

	return ConnectResult{
		ServerID: config.ID,
		State:    StateFailed,
		Err:      ce,
		Latency:  time.Since(start),
	}
}

type dialOutcome struct {
	handle *transport.Handle
	err    error
}

// dial races the negotiation against the attempt timeout. A dial that wins
// after the timeout fired is drained and closed in the background.
func (m *Manager) dial(ctx context.Context, config ServerConfig, timeout time.Duration) (*transport.Handle, error) {
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	outcome := make(chan dialOutcome, 1)
	go func() {
		handle, err := m.config.Negotiator.Negotiate(dialCtx, m.impl, config.Transport)
		outcome <- dialOutcome{handle: handle, err: err}
	}()

	select {
	case o := <-outcome:
		return o.handle, o.err
	case <-dialCtx.Done():
		go func() {
			if o := <-outcome; o.handle != nil && o.handle.Session != nil {
				_ = o.handle.Session.Close()
			}
		}()
		if errors.Is(dialCtx.Err(), context.DeadlineExceeded) {
			return nil, mcperrors.New(mcperrors.CategoryTimeout,
				fmt.Sprintf("connection to server %q timed out after %s", config.ID, timeout))
		}
		return nil, dialCtx.Err()
	}
}

// watchSession marks the entry failed when its session ends while still
// current. Removal stays exclusive to Disconnect and DisconnectAll.
func (m *Manager) watchSession(serverID string, conn *connection, session *mcp.ClientSession) {
	waitErr := session.Wait()

	m.mu.Lock()
	current, ok := m.connections[serverID]
	if !ok || current != conn || conn.session != session || conn.state != StateConnected {
		m.mu.Unlock()
		return
	}
	var ce *mcperrors.ClassifiedError
	if waitErr != nil {
		ce = mcperrors.Classify(waitErr)
	} else {
		ce = mcperrors.New(mcperrors.CategoryTransport,
			fmt.Sprintf("server %q closed the session", serverID))
	}
	conn.state = StateFailed
	conn.session = nil
	conn.tools = nil
	conn.lastError = ce
	m.mu.Unlock()

	m.logger.Warn("Session terminated remotely",
		logging.Server(serverID),
		logging.String("category", string(ce.Category)),
		logging.ErrorField(ce))
	m.publishStates(context.Background())
}

// ConnectMultiple connects to every config concurrently and returns one
// result per server ID. No attempt is cut short by another's failure.
func (m *Manager) ConnectMultiple(ctx context.Context, configs []ServerConfig, opts ...ConnectOption) map[string]ConnectResult {
	results := make(map[string]ConnectResult, len(configs))
	var resultsMu sync.Mutex

	g := new(errgroup.Group)
	for _, config := range configs {
		g.Go(func() error {
			res := m.Connect(ctx, config, opts...)
			resultsMu.Lock()
			results[config.ID] = res
			resultsMu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Disconnect closes and removes the connection for serverID. It reports
// false when the ID is unknown or another disconnect is already in flight.
func (m *Manager) Disconnect(ctx context.Context, serverID string) bool {
	m.mu.Lock()
	conn, ok := m.connections[serverID]
	if !ok || conn.state == StateClosing {
		m.mu.Unlock()
		return false
	}
	conn.state = StateClosing
	session := conn.session
	conn.session = nil
	m.mu.Unlock()

	if m.config.Tracing != nil {
		var span trace.Span
		ctx, span = m.config.Tracing.StartDisconnectSpan(ctx, serverID)
		defer span.End()
	}

	logger := m.logger.WithFields(logging.Server(serverID))
	if session != nil {
		m.closeSession(ctx, logger, session)
	}

	m.mu.Lock()
	if m.connections[serverID] == conn {
		delete(m.connections, serverID)
	}
	m.mu.Unlock()

	logger.Info("Disconnected from server")
	m.publishStates(ctx)
	return true
}

// DisconnectAll disconnects every registered server concurrently. While it
// runs, Connect refuses new work with the shutdown error; once the table is
// clear, connects are accepted again.
func (m *Manager) DisconnectAll(ctx context.Context) {
	m.shutdown.Store(true)
	defer m.shutdown.Store(false)

	m.mu.RLock()
	ids := make([]string, 0, len(m.connections))
	for id := range m.connections {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	g := new(errgroup.Group)
	for _, id := range ids {
		g.Go(func() error {
			m.Disconnect(ctx, id)
			return nil
		})
	}
	_ = g.Wait()

	m.logger.Info("Disconnected all servers", logging.Int("count", len(ids)))
}

// closeSession closes a session without letting a hung close block past
// ctx. Close errors are logged and swallowed.
func (m *Manager) closeSession(ctx context.Context, logger logging.Logger, session *mcp.ClientSession) {
	done := make(chan error, 1)
	go func() {
		done <- session.Close()
	}()
	select {
	case err := <-done:
		if err != nil {
			logger.Debug("Session close reported an error", logging.ErrorField(err))
		}
	case <-ctx.Done():
		logger.Debug("Abandoned session close", logging.ErrorField(ctx.Err()))
	}
}

// publishStates pushes per-state connection counts to the metrics provider.
func (m *Manager) publishStates(ctx context.Context) {
	if m.config.Metrics == nil {
		return
	}
	m.mu.RLock()
	counts := make(map[string]int, len(m.connections))
	for _, conn := range m.connections {
		counts[string(conn.state)]++
	}
	m.mu.RUnlock()
	m.config.Metrics.RecordConnectionStates(ctx, counts)
}

func serverInfoFrom(session *mcp.ClientSession) *ServerInfo {
	res := session.InitializeResult()
	if res == nil || res.ServerInfo == nil {
		return nil
	}
	return &ServerInfo{
		Name:    res.ServerInfo.Name,
		Version: res.ServerInfo.Version,
	}
}

// fetchTools lists every tool page the server reports.
func fetchTools(ctx context.Context, session *mcp.ClientSession) ([]ToolInfo, error) {
	var tools []ToolInfo
	var params *mcp.ListToolsParams
	for {
		res, err := session.ListTools(ctx, params)
		if err != nil {
			return nil, err
		}
		for _, tool := range res.Tools {
			// The SDK delivers tool.InputSchema as JSON-decoded wire data
			// (any); remarshal it into the typed schema.
			var schema *jsonschema.Schema
			if tool.InputSchema != nil {
				data, err := json.Marshal(tool.InputSchema)
				if err != nil {
					return nil, err
				}
				if err := json.Unmarshal(data, &schema); err != nil {
					return nil, err
				}
			}
			tools = append(tools, ToolInfo{
				Name:        tool.Name,
				Description: tool.Description,
				InputSchema: schema,
			})
		}
		if res.NextCursor == "" {
			break
		}
		params = &mcp.ListToolsParams{Cursor: res.NextCursor}
	}
	return tools, nil
}
