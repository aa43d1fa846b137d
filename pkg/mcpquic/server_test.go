package mcpquic

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func TestMagicBytes(t *testing.T) {
	var buf bytes.Buffer
	if err := SendMagicBytes(&buf); err != nil {
		t.Fatal(err)
	}
	if err := ValidateMagicBytes(&buf); err != nil {
		t.Errorf("ValidateMagicBytes: %v", err)
	}

	if err := ValidateMagicBytes(strings.NewReader("MCP1")); !errors.Is(err, ErrInvalidMagicBytes) {
		t.Errorf("err = %v, want ErrInvalidMagicBytes", err)
	}
	if err := ValidateMagicBytes(strings.NewReader("SR")); err == nil {
		t.Error("expected error on short preamble")
	}
}

type pipe struct {
	io.Reader
	io.Writer
}

func testServer() *server.MCPServer {
	srv := server.NewMCPServer("sarf-test", "0", server.WithToolCapabilities(false))
	srv.AddTool(mcp.NewTool("echo", mcp.WithString("text", mcp.Required())),
		func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			text, _ := req.GetArguments()["text"].(string)
			return mcp.NewToolResultText("echo:" + text), nil
		})
	return srv
}

func quietHandler(srv *server.MCPServer) *Handler {
	return NewHandler(srv, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestServeStream(t *testing.T) {
	in := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"t","version":"1"}}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		``,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"echo","arguments":{"text":"ذهب"}}}`,
	}, "\n") + "\n"

	var out bytes.Buffer
	h := quietHandler(testServer())
	if err := h.ServeStream(context.Background(), pipe{strings.NewReader(in), &out}, "test"); err != nil {
		t.Fatalf("ServeStream: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("responses = %d, want 2:\n%s", len(lines), out.String())
	}
	if !strings.Contains(lines[0], `"id":1`) || !strings.Contains(lines[0], "sarf-test") {
		t.Errorf("initialize response = %s", lines[0])
	}
	if !strings.Contains(lines[1], "echo:ذهب") {
		t.Errorf("tool response = %s", lines[1])
	}
}

func TestServeStream_TooLarge(t *testing.T) {
	in := strings.Repeat("x", MaxMessageSize+1) + "\n"
	h := quietHandler(testServer())
	err := h.ServeStream(context.Background(), pipe{strings.NewReader(in), io.Discard}, "test")
	if !errors.Is(err, ErrMessageTooLarge) {
		t.Errorf("err = %v, want ErrMessageTooLarge", err)
	}
}

func TestQUICConfig(t *testing.T) {
	cfg := QUICConfig()
	if cfg.MaxIdleTimeout != DefaultIdleTimeout || cfg.KeepAlivePeriod != DefaultKeepAlive {
		t.Errorf("config = %+v", cfg)
	}
}
