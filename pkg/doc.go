// Package pkg provides the core components of the MCP connection management library.
//
// The Model Context Protocol (MCP) lets host applications talk to tool servers over
// stdio or HTTP. The sub-packages here implement the client-side connection lifecycle:
// dialing, failure classification, retry, and registry bookkeeping.
//
// # Manager Usage
//
// To connect to a server and use its tools:
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
//	        ID:        "filesystem",
//	        Transport: transport.StdioSpec{Command: "npx", Args: []string{"-y", "@modelcontextprotocol/server-filesystem", "/tmp"}},
//	    })
//	    if !res.Success {
//	        // res.Err carries the classified failure
//	    }
//
//	    // Use the cached tools...
//	}
//
// # Sub-packages
//
// The library consists of several sub-packages:
//
//   - manager: Connection registry, circuit breaker and lifecycle facade
//   - transport: Transport spec union and negotiation (stdio, HTTP with SSE fallback)
//   - errors: Error classification engine and retry strategy table
//   - retry: Backoff executor over classified strategies
//   - config: JSON/YAML server fleet loading
//   - logging: Structured leveled logging used throughout the library
//   - observability: Prometheus metrics and OpenTelemetry tracing providers
package pkg
