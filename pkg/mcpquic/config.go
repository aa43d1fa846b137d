package mcpquic

import (
	"time"

	"github.com/quic-go/quic-go"
)

const (
	ALPNProtocolMCP         = "sarf-mcp-v1"
	MagicBytesMCP           = "SRF1"
	MaxMessageSize          = 1 << 20 // one JSON-RPC line
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultIdleTimeout      = 5 * time.Minute
	DefaultKeepAlive        = 30 * time.Second
)

// QUICConfig returns the QUIC settings shared by HTTP/3 and MCP sessions.
func QUICConfig() *quic.Config {
	return &quic.Config{
		HandshakeIdleTimeout:       DefaultHandshakeTimeout,
		MaxIdleTimeout:             DefaultIdleTimeout,
		KeepAlivePeriod:            DefaultKeepAlive,
		MaxStreamReceiveWindow:     10 * 1024 * 1024,
		MaxConnectionReceiveWindow: 50 * 1024 * 1024,
		Allow0RTT:                  false,
	}
}
