package mcpclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ErrNotConnected indicates an operation that requires an active MCP
// session was called before Connect or after Close.
var ErrNotConnected = errors.New("not connected")

const (
	clientName    = "mcpauth"
	clientVersion = "1.0.0"

	defaultHTTPTimeout = 60 * time.Second
)

// Client is an authenticated MCP client. It wraps the SDK client with a
// token-injecting HTTP transport and tracks the active session.
//
// All methods are safe for concurrent use. Connect and Close pair up;
// operations between them share one session.
type Client struct {
	endpoint string
	tokens   TokenSource
	logger   *slog.Logger
	httpc    *http.Client

	// transport overrides the streamable HTTP transport when set. Tests use
	// it to connect over in-memory pipes.
	transport mcp.Transport

	mu          sync.Mutex
	session     *mcp.ClientSession
	connectedAt time.Time
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithClientLogger sets the client logger.
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// WithHTTPClient overrides the HTTP client the streamable transport uses.
// The authorizing round tripper is layered on top of its transport.
func WithHTTPClient(httpc *http.Client) ClientOption {
	return func(c *Client) { c.httpc = httpc }
}

// WithTransport connects over the given MCP transport instead of streamable
// HTTP. Bearer injection does not apply; intended for in-memory testing.
func WithTransport(t mcp.Transport) ClientOption {
	return func(c *Client) { c.transport = t }
}

// New creates a client for the given MCP endpoint. The endpoint is
// validated up front so a misconfigured URL fails here rather than on the
// first call.
func New(endpoint string, tokens TokenSource, opts ...ClientOption) (*Client, error) {
	c := &Client{
		endpoint: endpoint,
		tokens:   tokens,
		logger:   slog.Default(),
		httpc:    &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.transport == nil {
		if err := ValidateEndpoint(endpoint); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// NewForRuntime creates a client for an AgentCore runtime ARN, deriving the
// invocation endpoint from the ARN.
func NewForRuntime(runtimeARN string, tokens TokenSource, opts ...ClientOption) (*Client, error) {
	endpoint, err := RuntimeURL(runtimeARN)
	if err != nil {
		return nil, err
	}
	return New(endpoint, tokens, opts...)
}

// Connect establishes the MCP session, performing the protocol handshake.
// A second Connect on an already-connected client is an error; Close first.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != nil {
		return fmt.Errorf("already connected to %s", c.endpoint)
	}

	transport := c.transport
	if transport == nil {
		base := c.httpc.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		authed := *c.httpc
		authed.Transport = &authTransport{base: base, tokens: c.tokens}
		transport = &mcp.StreamableClientTransport{
			Endpoint:   c.endpoint,
			HTTPClient: &authed,
		}
	}

	client := mcp.NewClient(&mcp.Implementation{
		Name:    clientName,
		Version: clientVersion,
	}, nil)

	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", c.endpoint, err)
	}

	c.session = session
	c.connectedAt = time.Now()
	c.logger.Info("mcp session established", "endpoint", c.endpoint)
	return nil
}

// Close terminates the MCP session. Safe to call when not connected.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return nil
	}
	err := c.session.Close()
	c.session = nil
	c.connectedAt = time.Time{}
	c.logger.Info("mcp session closed", "endpoint", c.endpoint)
	return err
}

// ListTools returns the tools the server advertises.
func (c *Client) ListTools(ctx context.Context) ([]*mcp.Tool, error) {
	session, err := c.activeSession()
	if err != nil {
		return nil, err
	}

	result, err := session.ListTools(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("list tools: %w", err)
	}
	return result.Tools, nil
}

// CallTool invokes a named tool with the given arguments.
func (c *Client) CallTool(ctx context.Context, name string, arguments map[string]any) (*mcp.CallToolResult, error) {
	session, err := c.activeSession()
	if err != nil {
		return nil, err
	}

	result, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      name,
		Arguments: arguments,
	})
	if err != nil {
		return nil, fmt.Errorf("call tool %s: %w", name, err)
	}
	return result, nil
}

// HealthCheck verifies the session is alive with a protocol-level ping.
func (c *Client) HealthCheck(ctx context.Context) error {
	session, err := c.activeSession()
	if err != nil {
		return err
	}
	if err := session.Ping(ctx, nil); err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	return nil
}

// IsConnected reports whether an MCP session is active.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session != nil
}

// ConnectionInfo describes the current connection for diagnostics.
type ConnectionInfo struct {
	Endpoint    string
	Connected   bool
	ConnectedAt time.Time
}

// Info returns a snapshot of connection state.
func (c *Client) Info() ConnectionInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ConnectionInfo{
		Endpoint:    c.endpoint,
		Connected:   c.session != nil,
		ConnectedAt: c.connectedAt,
	}
}

func (c *Client) activeSession() (*mcp.ClientSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return nil, fmt.Errorf("%w: call Connect first", ErrNotConnected)
	}
	return c.session, nil
}
