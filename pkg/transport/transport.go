// Package transport turns a declared server transport spec into a live MCP
// session. It owns the stdio child-process environment policy and the HTTP
// negotiation path that falls back from the modern streamable transport to the
// legacy SSE transport when a server only speaks the latter. Wire framing
// itself is the SDK's job; nothing here reads or writes protocol bytes.
package transport

import (
	"fmt"
	"net/url"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	mcperrors "github.com/ajitpratap0/mcp-connect-go/pkg/errors"
)

// Kind identifies the concrete transport serving a connection. A spec declares
// stdio or streamable HTTP; the negotiated handle may report sse when the HTTP
// fallback path was taken.
type Kind string

const (
	KindStdio          Kind = "stdio"
	KindStreamableHTTP Kind = "streamable_http"
	KindSSE            Kind = "sse"
)

// Spec declares how to reach a server. The union is sealed: StdioSpec and
// HTTPSpec are the only implementations.
type Spec interface {
	// Kind returns the declared transport kind.
	Kind() Kind
	// Describe returns a short loggable description, free of credentials.
	Describe() string
	// Validate reports whether the spec is complete enough to dial.
	Validate() error

	sealed()
}

// StdioSpec reaches a server by spawning a subprocess and speaking over its
// stdin/stdout. Env entries are merged over the default inherited environment;
// a user-supplied key always wins.
type StdioSpec struct {
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

func (StdioSpec) sealed() {}

// Kind returns KindStdio.
func (StdioSpec) Kind() Kind { return KindStdio }

// Describe returns the command without its arguments or env.
func (s StdioSpec) Describe() string { return "stdio: " + s.Command }

// Validate checks that a command is present.
func (s StdioSpec) Validate() error {
	if s.Command == "" {
		return mcperrors.New(mcperrors.CategoryConfiguration, "stdio transport requires a command")
	}
	return nil
}

// HTTPSpec reaches a server over HTTP. Negotiation tries the streamable
// transport first and falls back to SSE when the server rejects it. Headers are
// applied to every request of either sub-transport.
type HTTPSpec struct {
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
}

func (HTTPSpec) sealed() {}

// Kind returns KindStreamableHTTP, the preferred sub-kind. The negotiated
// handle reports the sub-kind actually in use.
func (HTTPSpec) Kind() Kind { return KindStreamableHTTP }

// Describe returns the URL. Headers never appear in logs.
func (s HTTPSpec) Describe() string { return "http: " + s.URL }

// Validate checks that the URL parses and uses an http scheme.
func (s HTTPSpec) Validate() error {
	if s.URL == "" {
		return mcperrors.New(mcperrors.CategoryConfiguration, "http transport requires a url")
	}
	u, err := url.Parse(s.URL)
	if err != nil {
		return mcperrors.Wrap(mcperrors.CategoryConfiguration,
			fmt.Sprintf("http transport url %q does not parse", s.URL), err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return mcperrors.New(mcperrors.CategoryConfiguration,
			fmt.Sprintf("http transport url %q must use http or https", s.URL))
	}
	if u.Host == "" {
		return mcperrors.New(mcperrors.CategoryConfiguration,
			fmt.Sprintf("http transport url %q is missing a host", s.URL))
	}
	return nil
}

// Handle is a negotiated live session together with the kind that ended up
// serving it.
type Handle struct {
	Session *mcp.ClientSession
	Kind    Kind
}
