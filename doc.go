// Package mcpconnect provides connection management for Model Context Protocol clients.
//
// The Model Context Protocol (MCP) lets host applications talk to tool servers over
// stdio or HTTP. This package is the root of the library, providing convenient exports
// of the core components from the sub-packages: a connection manager that tracks a
// fleet of servers, classifies every failure, applies a circuit breaker, and caches
// the tool inventory of each connected server.
//
// # Overview
//
// The library consists of several sub-packages:
//
//   - pkg/manager: Connection registry and lifecycle facade
//   - pkg/transport: Transport negotiation (stdio, streamable HTTP with SSE fallback)
//   - pkg/errors: Error classification and retry strategy derivation
//   - pkg/retry: Backoff executor driven by classified strategies
//   - pkg/config: JSON/YAML server fleet loading
//   - pkg/logging: Structured leveled logging
//   - pkg/observability: Prometheus metrics and OpenTelemetry tracing
//
// # Connecting to a Server
//
// To connect to an MCP server spawned as a subprocess:
//
//	import (
//	    "context"
//	    mcpconnect "github.com/ajitpratap0/mcp-connect-go"
//	    "github.com/ajitpratap0/mcp-connect-go/pkg/manager"
//	    "github.com/ajitpratap0/mcp-connect-go/pkg/transport"
//	)
//
//	func main() {
//	    mgr, err := mcpconnect.NewManager(mcpconnect.DefaultConfig())
//	    if err != nil {
//	        // Handle error
//	    }
//	    ctx := context.Background()
//	    defer mgr.DisconnectAll(ctx)
//
//	    res := mgr.Connect(ctx, manager.ServerConfig{
//	        ID:   "filesystem",
//	        Name: "Filesystem",
//	        Transport: transport.StdioSpec{
//	            Command: "npx",
//	            Args:    []string{"-y", "@modelcontextprotocol/server-filesystem", "/tmp"},
//	        },
//	    })
//	    if !res.Success {
//	        // res.Err is classified; inspect its category and retry strategy
//	    }
//
//	    for _, tool := range res.Tools {
//	        // Use the discovered tools...
//	    }
//	}
//
// # Loading a Fleet from a Config File
//
// Server fleets can be declared in a JSON or YAML document following the
// mcpServers convention:
//
//	file, err := mcpconnect.LoadConfig("servers.json")
//	if err != nil {
//	    // Handle error
//	}
//	cfg := mcpconnect.DefaultConfig()
//	file.Manager.Apply(&cfg)
//
//	mgr, err := mcpconnect.NewManager(cfg)
//	if err != nil {
//	    // Handle error
//	}
//	results := mgr.ConnectMultiple(ctx, file.Servers)
//
// # Error Handling
//
// Every connection failure is classified into a category (transport, timeout, auth,
// protocol, ...) with a severity and a retry strategy:
//
//	res := mgr.Connect(ctx, serverConfig)
//	if res.Err != nil {
//	    var ce *mcperrors.ClassifiedError
//	    if errors.As(res.Err, &ce) {
//	        log.Printf("category=%s severity=%s retryable=%v",
//	            ce.Category, ce.Severity, ce.Retry.ShouldRetry)
//	    }
//	}
//
// # Examples
//
// The library includes several examples in the examples directory:
//
//   - basic-connect: Connecting a single stdio server and calling a tool
//   - multi-server: Connecting a fleet concurrently with stats and health checks
//   - config-file: Loading a server fleet from a JSON config file
package mcpconnect
