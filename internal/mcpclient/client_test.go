package mcpclient

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

type echoInput struct {
	Message string `json:"message" jsonschema:"The text to echo back"`
}

// connectedClient wires a Client to an in-memory MCP server carrying a
// single echo tool. Both sessions are cleaned up via t.Cleanup.
func connectedClient(t *testing.T) *Client {
	t.Helper()

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "test-runtime",
		Version: "1.0.0",
	}, nil)

	inputSchema, err := jsonschema.For[echoInput](nil)
	if err != nil {
		t.Fatalf("jsonschema.For() unexpected error: %v", err)
	}
	mcp.AddTool(server, &mcp.Tool{
		Name:        "echo",
		Description: "Echo the provided message back to the caller.",
		InputSchema: inputSchema,
	}, func(ctx context.Context, req *mcp.CallToolRequest, in echoInput) (*mcp.CallToolResult, any, error) {
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: "echo: " + in.Message}},
		}, nil, nil
	})

	ctx := context.Background()
	serverTransport, clientTransport := mcp.NewInMemoryTransports()

	serverSession, err := server.Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("server.Connect() unexpected error: %v", err)
	}
	t.Cleanup(func() { _ = serverSession.Close() })

	c, err := New("https://example.com/mcp", &staticTokens{token: "hdr.payload.sig"},
		WithTransport(clientTransport),
		WithClientLogger(discardLogger()))
	if err != nil {
		t.Fatalf("New() unexpected error: %v", err)
	}
	if err := c.Connect(ctx); err != nil {
		t.Fatalf("Connect() unexpected error: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	return c
}

func TestNew_RejectsBadEndpoint(t *testing.T) {
	_, err := New("http://example.com/mcp", &staticTokens{token: "t"})
	if !errors.Is(err, ErrInvalidEndpoint) {
		t.Errorf("New() error = %v, want ErrInvalidEndpoint", err)
	}
}

func TestNewForRuntime_RejectsBadARN(t *testing.T) {
	_, err := NewForRuntime("not-an-arn", &staticTokens{token: "t"})
	if !errors.Is(err, ErrInvalidARN) {
		t.Errorf("NewForRuntime() error = %v, want ErrInvalidARN", err)
	}
}

func TestClient_ListTools(t *testing.T) {
	c := connectedClient(t)

	tools, err := c.ListTools(context.Background())
	if err != nil {
		t.Fatalf("ListTools() unexpected error: %v", err)
	}
	if len(tools) != 1 || tools[0].Name != "echo" {
		t.Errorf("ListTools() = %v, want single echo tool", tools)
	}
	if tools[0].Description == "" {
		t.Error("ListTools() echo tool has empty description")
	}
}

func TestClient_CallTool(t *testing.T) {
	c := connectedClient(t)

	result, err := c.CallTool(context.Background(), "echo", map[string]any{
		"message": "hello",
	})
	if err != nil {
		t.Fatalf("CallTool() unexpected error: %v", err)
	}
	if len(result.Content) != 1 {
		t.Fatalf("CallTool() returned %d content blocks, want 1", len(result.Content))
	}
	text, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("CallTool() content type = %T, want *mcp.TextContent", result.Content[0])
	}
	if text.Text != "echo: hello" {
		t.Errorf("CallTool() text = %q, want %q", text.Text, "echo: hello")
	}
}

func TestClient_CallTool_Unknown(t *testing.T) {
	c := connectedClient(t)

	_, err := c.CallTool(context.Background(), "does-not-exist", nil)
	if err == nil {
		t.Error("CallTool() error = nil for unknown tool, want error")
	}
}

func TestClient_HealthCheck(t *testing.T) {
	c := connectedClient(t)

	if err := c.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() unexpected error: %v", err)
	}
}

func TestClient_NotConnected(t *testing.T) {
	c, err := New("https://example.com/mcp", &staticTokens{token: "t"},
		WithClientLogger(discardLogger()))
	if err != nil {
		t.Fatalf("New() unexpected error: %v", err)
	}

	if _, err := c.ListTools(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("ListTools() error = %v, want ErrNotConnected", err)
	}
	if _, err := c.CallTool(context.Background(), "echo", nil); !errors.Is(err, ErrNotConnected) {
		t.Errorf("CallTool() error = %v, want ErrNotConnected", err)
	}
	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
	if c.IsConnected() {
		t.Error("IsConnected() = true before Connect, want false")
	}
}

func TestClient_DoubleConnect(t *testing.T) {
	c := connectedClient(t)

	err := c.Connect(context.Background())
	if err == nil || !strings.Contains(err.Error(), "already connected") {
		t.Errorf("second Connect() error = %v, want already-connected error", err)
	}
}

func TestClient_CloseIdempotent(t *testing.T) {
	c := connectedClient(t)

	if err := c.Close(); err != nil {
		t.Fatalf("Close() unexpected error: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close() error = %v, want nil", err)
	}
	if c.IsConnected() {
		t.Error("IsConnected() = true after Close, want false")
	}
}

func TestClient_Info(t *testing.T) {
	c := connectedClient(t)

	info := c.Info()
	if !info.Connected {
		t.Error("Info().Connected = false, want true")
	}
	if info.Endpoint != "https://example.com/mcp" {
		t.Errorf("Info().Endpoint = %q, want the configured endpoint", info.Endpoint)
	}
	if info.ConnectedAt.IsZero() {
		t.Error("Info().ConnectedAt is zero, want connection timestamp")
	}

	if err := c.Close(); err != nil {
		t.Fatalf("Close() unexpected error: %v", err)
	}
	if got := c.Info(); got.Connected || !got.ConnectedAt.IsZero() {
		t.Errorf("Info() after Close = %+v, want disconnected with zero timestamp", got)
	}
}
