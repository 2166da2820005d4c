package transport

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"regexp"
	"runtime"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	mcperrors "github.com/ajitpratap0/mcp-connect-go/pkg/errors"
	"github.com/ajitpratap0/mcp-connect-go/pkg/logging"
)

// dialFunc establishes one session over one concrete transport. Tests swap it
// to observe negotiation without spawning processes or servers.
type dialFunc func(ctx context.Context, client *mcp.Client, t mcp.Transport) (*mcp.ClientSession, error)

func defaultDial(ctx context.Context, client *mcp.Client, t mcp.Transport) (*mcp.ClientSession, error) {
	return client.Connect(ctx, t, nil)
}

// Negotiator builds live sessions from transport specs.
type Negotiator struct {
	// HTTPClient serves both HTTP sub-transports. Nil falls back to
	// http.DefaultClient. When a spec carries headers the client is cloned
	// with a header-injecting round tripper; the original is never mutated.
	HTTPClient *http.Client

	// MaxRetries is handed to the streamable transport's internal resend
	// logic. Zero keeps the SDK default.
	MaxRetries int

	// Logger receives negotiation events. Nil logs nowhere.
	Logger logging.Logger

	dial dialFunc
}

// NewNegotiator returns a negotiator that dials with the real SDK client.
func NewNegotiator(logger logging.Logger) *Negotiator {
	return &Negotiator{Logger: logger}
}

// Negotiate dials spec and returns the live session plus the kind that ended
// up serving it. The spec is validated first; validation failures classify as
// configuration errors and never reach the network or spawn a process.
func (n *Negotiator) Negotiate(ctx context.Context, impl *mcp.Implementation, spec Spec) (*Handle, error) {
	if spec == nil {
		return nil, mcperrors.New(mcperrors.CategoryConfiguration, "no transport spec provided")
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	switch s := spec.(type) {
	case StdioSpec:
		return n.negotiateStdio(ctx, impl, s)
	case *StdioSpec:
		return n.negotiateStdio(ctx, impl, *s)
	case HTTPSpec:
		return n.negotiateHTTP(ctx, impl, s)
	case *HTTPSpec:
		return n.negotiateHTTP(ctx, impl, *s)
	default:
		return nil, mcperrors.New(mcperrors.CategoryConfiguration,
			fmt.Sprintf("unsupported transport spec %T", spec))
	}
}

// negotiateStdio spawns the server subprocess and hands its pipes to the SDK's
// command transport. The dial context bounds the handshake only; the child has
// to outlive it, so the command is deliberately not bound to ctx.
func (n *Negotiator) negotiateStdio(ctx context.Context, impl *mcp.Implementation, spec StdioSpec) (*Handle, error) {
	cmd := exec.Command(spec.Command, spec.Args...)
	cmd.Env = buildChildEnv(runtime.GOOS, os.Environ(), spec.Env)

	n.logger().Debug("Dialing stdio server",
		logging.String("command", spec.Command),
		logging.Int("args", len(spec.Args)))

	session, err := n.dialer()(ctx, mcp.NewClient(impl, nil), &mcp.CommandTransport{Command: cmd})
	if err != nil {
		return nil, err
	}
	return &Handle{Session: session, Kind: KindStdio}, nil
}

// negotiateHTTP tries the modern streamable transport first. When the server
// rejects it in a way that signals an SSE-only server, the same URL is redialed
// over the legacy SSE transport; any other failure propagates untouched. Both
// attempts failing yields an error naming both.
func (n *Negotiator) negotiateHTTP(ctx context.Context, impl *mcp.Implementation, spec HTTPSpec) (*Handle, error) {
	httpClient := n.httpClientFor(spec.Headers)

	modern := &mcp.StreamableClientTransport{
		Endpoint:   spec.URL,
		HTTPClient: httpClient,
		MaxRetries: n.MaxRetries,
	}

	n.logger().Debug("Dialing streamable HTTP server", logging.String("url", spec.URL))

	session, err := n.dialer()(ctx, mcp.NewClient(impl, nil), modern)
	if err == nil {
		return &Handle{Session: session, Kind: KindStreamableHTTP}, nil
	}
	if !shouldFallBackToSSE(err) {
		return nil, err
	}

	// A failed streamable dial returns no session, so there is nothing to
	// close before the second attempt.
	n.logger().Debug("Streamable transport rejected, falling back to SSE",
		logging.String("url", spec.URL),
		logging.ErrorField(err))

	legacy := &mcp.SSEClientTransport{Endpoint: spec.URL, HTTPClient: httpClient}
	sseSession, sseErr := n.dialer()(ctx, mcp.NewClient(impl, nil), legacy)
	if sseErr != nil {
		return nil, fmt.Errorf("streamable attempt: %v; sse attempt: %w", err, sseErr)
	}

	n.logger().Info("Connected over legacy SSE transport", logging.String("url", spec.URL))
	return &Handle{Session: sseSession, Kind: KindSSE}, nil
}

// httpClientFor returns the client both HTTP sub-transports share, wrapping it
// for header injection when the spec carries headers.
func (n *Negotiator) httpClientFor(headers map[string]string) *http.Client {
	base := n.HTTPClient
	if base == nil {
		base = http.DefaultClient
	}
	if len(headers) == 0 {
		return base
	}
	clone := *base
	clone.Transport = &headerRoundTripper{next: baseRoundTripper(base.Transport), headers: headers}
	return &clone
}

func (n *Negotiator) dialer() dialFunc {
	if n.dial != nil {
		return n.dial
	}
	return defaultDial
}

func (n *Negotiator) logger() logging.Logger {
	if n.Logger != nil {
		return n.Logger
	}
	return logging.Nop()
}

// headerRoundTripper injects fixed headers into every outgoing request without
// overriding headers the SDK already set.
type headerRoundTripper struct {
	next    http.RoundTripper
	headers map[string]string
}

// RoundTrip clones the request before touching headers, per the RoundTripper
// contract.
func (h *headerRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	for k, v := range h.headers {
		if clone.Header.Get(k) == "" {
			clone.Header.Set(k, v)
		}
	}
	return h.next.RoundTrip(clone)
}

func baseRoundTripper(rt http.RoundTripper) http.RoundTripper {
	if rt == nil {
		return http.DefaultTransport
	}
	return rt
}

// The SDK reports handshake rejections as message text, not exported types, so
// detection is textual: a 4xx status in the shapes the SDK emits, or any
// mention of the SSE transport.
var (
	fallbackStatusRe = regexp.MustCompile(`(?i)(?:http status|unexpected status|status code:?|status:?)\s*(4\d{2})\b`)
	fallbackReasonRe = regexp.MustCompile(`(?i)\b4\d{2}\s+(method not allowed|not found|bad request|forbidden|unauthorized)`)
)

// shouldFallBackToSSE reports whether a streamable dial failure signals a
// server that only speaks the legacy SSE transport. HTTP 4xx rejections of the
// handshake qualify, as does any error naming SSE. Network refusals, 5xx, and
// timeouts do not; those propagate so the caller's classification applies.
func shouldFallBackToSSE(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "sse") ||
		strings.Contains(lower, "server-sent events") ||
		strings.Contains(lower, "text/event-stream") {
		return true
	}
	return fallbackStatusRe.MatchString(msg) || fallbackReasonRe.MatchString(msg)
}
