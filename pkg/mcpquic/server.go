// Package mcpquic carries MCP JSON-RPC sessions over QUIC streams.
//
// A client negotiates ALPNProtocolMCP, opens one bidirectional stream, sends
// MagicBytesMCP and then exchanges newline-delimited JSON-RPC messages. The
// chassis owns the listener and hands accepted connections to a Handler.
package mcpquic

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/hazyhaar/sarf/pkg/kit"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/quic-go/quic-go"
)

// Handler serves MCP-over-QUIC connections without owning a listener.
type Handler struct {
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// NewHandler creates an MCP connection handler for use with chassis demuxing.
func NewHandler(mcpSrv *server.MCPServer, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{mcpServer: mcpSrv, logger: logger}
}

// ServeConn handles a single QUIC connection as one MCP session.
func (h *Handler) ServeConn(ctx context.Context, conn *quic.Conn) {
	remote := conn.RemoteAddr().String()

	stream, err := conn.AcceptStream(ctx)
	if err != nil {
		h.logger.Warn("MCP accept stream failed", "remote", remote, "error", err)
		conn.CloseWithError(ConnErrorProtocolViolation, "stream accept failed")
		return
	}

	if err := ValidateMagicBytes(stream); err != nil {
		h.logger.Warn("MCP magic bytes invalid", "remote", remote, "error", err)
		stream.CancelWrite(StreamErrorProtocolConfusion)
		stream.CancelRead(StreamErrorProtocolConfusion)
		conn.CloseWithError(ConnErrorProtocolViolation, "invalid magic bytes")
		return
	}

	if err := h.ServeStream(ctx, stream, remote); err != nil {
		if errors.Is(err, ErrMessageTooLarge) {
			stream.CancelRead(StreamErrorMessageTooLarge)
		}
		conn.CloseWithError(ConnErrorProtocolViolation, err.Error())
		return
	}
	stream.Close()
	conn.CloseWithError(ConnErrorNoError, "session ended")
}

// ServeStream runs an MCP session over rw, whose preamble has already been
// validated. It returns when the peer closes its side or ctx is done.
func (h *Handler) ServeStream(ctx context.Context, rw io.ReadWriter, remote string) error {
	sessionID := "quic_" + uuid.NewString()
	sess := newSession(sessionID)
	if err := h.mcpServer.RegisterSession(ctx, sess); err != nil {
		h.logger.Error("MCP session register failed", "session", sessionID, "error", err)
		return err
	}
	defer h.mcpServer.UnregisterSession(ctx, sessionID)

	h.logger.Info("MCP session started", "session", sessionID, "remote", remote)
	defer h.logger.Info("MCP session ended", "session", sessionID, "remote", remote)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	ctx = kit.WithTransport(ctx, kit.TransportMCPQUIC)
	ctx = h.mcpServer.WithContext(ctx, sess)

	out := &lineWriter{w: rw}
	go sess.writeNotifications(ctx, out)

	scanner := bufio.NewScanner(rw)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxMessageSize)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		msg := append(json.RawMessage(nil), line...)

		response := h.mcpServer.HandleMessage(ctx, msg)
		if response == nil {
			continue
		}
		data, err := json.Marshal(response)
		if err != nil {
			h.logger.Error("MCP marshal failed", "session", sessionID, "error", err)
			continue
		}
		if err := out.writeLine(data); err != nil {
			h.logger.Warn("MCP write failed", "session", sessionID, "error", err)
			return err
		}
	}

	err := scanner.Err()
	switch {
	case err == nil, ctx.Err() != nil:
		return nil
	case errors.Is(err, bufio.ErrTooLong):
		h.logger.Warn("MCP message too large", "session", sessionID, "limit", MaxMessageSize)
		return ErrMessageTooLarge
	default:
		h.logger.Warn("MCP read failed", "session", sessionID, "error", err)
		return err
	}
}

// lineWriter serializes responses and notifications onto one stream.
type lineWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lineWriter) writeLine(data []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, err := l.w.Write(append(data, '\n'))
	return err
}

// session implements server.ClientSession for a single QUIC stream.
type session struct {
	id            string
	notifications chan mcp.JSONRPCNotification
	initialized   atomic.Bool
}

func newSession(id string) *session {
	return &session{
		id:            id,
		notifications: make(chan mcp.JSONRPCNotification, 100),
	}
}

func (s *session) SessionID() string                                   { return s.id }
func (s *session) NotificationChannel() chan<- mcp.JSONRPCNotification { return s.notifications }
func (s *session) Initialize()                                         { s.initialized.Store(true) }
func (s *session) Initialized() bool                                   { return s.initialized.Load() }

func (s *session) writeNotifications(ctx context.Context, out *lineWriter) {
	for {
		select {
		case notif := <-s.notifications:
			data, err := json.Marshal(notif)
			if err != nil {
				continue
			}
			if err := out.writeLine(data); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
