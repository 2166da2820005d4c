package manager

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ajitpratap0/mcp-connect-go/pkg/transport"
)

type pathArgs struct {
	Path string `json:"path"`
}

// newFileServer builds an in-memory MCP server shaped like a small
// filesystem tool server.
func newFileServer(t *testing.T) *mcp.Server {
	t.Helper()

	schema, err := jsonschema.For[pathArgs](nil)
	if err != nil {
		t.Fatalf("jsonschema.For() unexpected error: %v", err)
	}

	server := mcp.NewServer(&mcp.Implementation{Name: "filesystem-server", Version: "2.1.0"}, nil)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "read_file",
		Description: "Read a file from the workspace",
		InputSchema: schema,
	}, func(ctx context.Context, req *mcp.CallToolRequest, args pathArgs) (*mcp.CallToolResult, any, error) {
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: "contents of " + args.Path}},
		}, nil, nil
	})
	mcp.AddTool(server, &mcp.Tool{
		Name:        "write_file",
		Description: "Write a file into the workspace",
		InputSchema: schema,
	}, func(ctx context.Context, req *mcp.CallToolRequest, args pathArgs) (*mcp.CallToolResult, any, error) {
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: "wrote " + args.Path}},
		}, nil, nil
	})
	return server
}

// fakeNegotiator stands in for transport negotiation, dialing an in-memory
// server instead of spawning processes or opening sockets.
type fakeNegotiator struct {
	server *mcp.Server
	kind   transport.Kind

	mu       sync.Mutex
	dials    int
	failWith error
	failFn   func(spec transport.Spec) error
	delay    time.Duration
	sessions []*mcp.ServerSession
}

func newFakeNegotiator(t *testing.T, server *mcp.Server) *fakeNegotiator {
	t.Helper()
	f := &fakeNegotiator{server: server, kind: transport.KindStdio}
	t.Cleanup(f.closeAll)
	return f
}

func (f *fakeNegotiator) Negotiate(ctx context.Context, impl *mcp.Implementation, spec transport.Spec) (*transport.Handle, error) {
	f.mu.Lock()
	f.dials++
	failWith := f.failWith
	failFn := f.failFn
	delay := f.delay
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if failFn != nil {
		if err := failFn(spec); err != nil {
			return nil, err
		}
	}
	if failWith != nil {
		return nil, failWith
	}

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	serverSession, err := f.server.Connect(ctx, serverTransport, nil)
	if err != nil {
		return nil, err
	}
	client := mcp.NewClient(impl, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		_ = serverSession.Close()
		return nil, err
	}

	f.mu.Lock()
	f.sessions = append(f.sessions, serverSession)
	f.mu.Unlock()
	return &transport.Handle{Session: session, Kind: f.kind}, nil
}

func (f *fakeNegotiator) dialCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dials
}

// setFailure makes every subsequent dial fail until cleared with nil.
func (f *fakeNegotiator) setFailure(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failWith = err
}

// setFailureFunc installs a per-spec failure hook.
func (f *fakeNegotiator) setFailureFunc(fn func(spec transport.Spec) error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failFn = fn
}

// setDelay makes subsequent dials sleep before completing.
func (f *fakeNegotiator) setDelay(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delay = d
}

// closeAll closes the server half of every session this negotiator dialed.
func (f *fakeNegotiator) closeAll() {
	f.mu.Lock()
	sessions := f.sessions
	f.sessions = nil
	f.mu.Unlock()
	for _, s := range sessions {
		_ = s.Close()
	}
}

// newTestManager builds a Manager wired to a fake negotiator and an
// in-memory file server. Cleanup disconnects everything.
func newTestManager(t *testing.T, opts ...func(*Config)) (*Manager, *fakeNegotiator) {
	t.Helper()

	fake := newFakeNegotiator(t, newFileServer(t))
	config := DefaultConfig()
	config.Negotiator = fake
	for _, opt := range opts {
		opt(&config)
	}

	mgr, err := NewManager(config)
	if err != nil {
		t.Fatalf("NewManager() unexpected error: %v", err)
	}
	t.Cleanup(func() { mgr.DisconnectAll(context.Background()) })
	return mgr, fake
}

func stdioConfig(id string) ServerConfig {
	return ServerConfig{
		ID:   id,
		Name: "Filesystem",
		Transport: transport.StdioSpec{
			Command: "tool-server",
			Args:    []string{"--root", "/tmp"},
		},
	}
}
