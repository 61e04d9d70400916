package overlay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"keyly/internal/logtee"
)

const (
	// writeDeadline bounds a single write to the localhost helper.
	writeDeadline = 5 * time.Second
	// readDeadline allows about three missed pings before the connection is dead.
	readDeadline = 90 * time.Second
	pingInterval = 30 * time.Second
	// maxReadMessageSize covers a focus message with a few thousand extracted
	// menu shortcuts.
	maxReadMessageSize = 1 << 20
)

// ErrNoClient is returned by the send methods when no helper is connected.
var ErrNoClient = errors.New("overlay: no client connected")

var wsUpgrader = websocket.Upgrader{
	// The listener is bound to loopback; the helper is a native process with
	// no meaningful Origin header.
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  4 * 1024,
	WriteBufferSize: 32 * 1024,
}

// Handler receives decoded inbound messages. Calls come from the connection's
// read goroutine, one at a time.
type Handler interface {
	HandleKey(msg KeyMessage)
	HandleFocus(msg FocusMessage)
	HandleSearch(msg SearchMessage)
}

// HubOptions configures the websocket server.
type HubOptions struct {
	// Addr is the listen address. Empty means "127.0.0.1:0".
	Addr string
	// OnConnect runs after a new client has replaced the previous one.
	OnConnect func()
}

// Hub serves a single helper connection. A new connection replaces the
// existing one so a restarted helper takes over immediately.
//
// Lock ordering (never acquire in reverse):
//
//	writeMu -> mu
//
// No slog call is made while writeMu is held: the daemon forwards warnings
// back through SendLog, which needs writeMu.
type Hub struct {
	opts    HubOptions
	handler Handler

	mu   sync.RWMutex
	conn *websocket.Conn

	writeMu sync.Mutex

	listener net.Listener
	server   *http.Server
	url      string

	closeOnce sync.Once
}

// NewHub creates a Hub. It does not listen until Start is called.
func NewHub(opts HubOptions, handler Handler) *Hub {
	if opts.Addr == "" {
		opts.Addr = "127.0.0.1:0"
	}
	return &Hub{opts: opts, handler: handler}
}

// Start listens on the configured address and serves "/ws". The server must be
// stopped explicitly with Stop; ctx only becomes the request base context.
func (h *Hub) Start(ctx context.Context) error {
	if h.server != nil {
		return errors.New("overlay: already started")
	}

	ln, err := net.Listen("tcp", h.opts.Addr)
	if err != nil {
		return fmt.Errorf("overlay: listen: %w", err)
	}
	h.listener = ln
	h.url = fmt.Sprintf("ws://%s/ws", ln.Addr().String())

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.handleWS)
	h.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		if serveErr := h.server.Serve(ln); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("[DEBUG-WS] server error", "error", serveErr)
		}
	}()

	slog.Info("[DEBUG-WS] server started", "url", h.url)
	return nil
}

// Stop closes the active connection and shuts the server down. Idempotent.
func (h *Hub) Stop() error {
	var stopErr error
	h.closeOnce.Do(func() {
		h.mu.Lock()
		conn := h.conn
		h.conn = nil
		h.mu.Unlock()
		if conn != nil {
			h.closeConn(conn, "hub stop")
		}

		if h.server != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := h.server.Shutdown(shutdownCtx); err != nil {
				stopErr = fmt.Errorf("overlay: shutdown: %w", err)
			}
		}
		slog.Info("[DEBUG-WS] server stopped")
	})
	return stopErr
}

// URL returns the websocket URL, or "" before Start.
func (h *Hub) URL() string { return h.url }

// HasActiveConnection reports whether a helper is connected.
func (h *Hub) HasActiveConnection() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.conn != nil
}

// SendReveal asks the helper to show the overlay with msg's content.
func (h *Hub) SendReveal(msg RevealMessage) error {
	msg.Type = typeReveal
	return h.sendJSON(msg)
}

// SendHide asks the helper to hide the overlay.
func (h *Hub) SendHide() error {
	return h.sendJSON(hideMsg{Type: typeHide})
}

// SendLog forwards a log entry. It is used as a logtee.Sink, so a missing
// client is not an error worth reporting.
func (h *Hub) SendLog(entry logtee.Entry) {
	_ = h.sendJSON(logMsg{Type: typeLog, Entry: entry})
}

func (h *Hub) sendJSON(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("overlay: marshal: %w", err)
	}
	h.mu.RLock()
	conn := h.conn
	h.mu.RUnlock()
	if conn == nil {
		return ErrNoClient
	}
	return h.write(conn, websocket.TextMessage, payload)
}

// write serializes one frame onto conn. Any failure drops the connection;
// the helper is expected to reconnect.
func (h *Hub) write(conn *websocket.Conn, messageType int, payload []byte) error {
	h.writeMu.Lock()
	err := conn.SetWriteDeadline(time.Now().Add(writeDeadline))
	if err == nil {
		err = conn.WriteMessage(messageType, payload)
		// A failed reset is harmless; the next write sets a fresh deadline.
		_ = conn.SetWriteDeadline(time.Time{})
	}
	h.writeMu.Unlock()

	if err != nil {
		h.clearIfCurrent(conn)
		h.closeConn(conn, "write error")
		slog.Debug("[DEBUG-WS] write failed, connection dropped", "error", err)
		return fmt.Errorf("overlay: write: %w", err)
	}
	return nil
}

func (h *Hub) clearIfCurrent(conn *websocket.Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conn != conn {
		return false
	}
	h.conn = nil
	return true
}

func (h *Hub) closeConn(conn *websocket.Conn, reason string) {
	if err := conn.Close(); err != nil {
		slog.Debug("[DEBUG-WS] connection close", "reason", reason, "error", err)
	}
}

func (h *Hub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("[DEBUG-WS] upgrade failed", "error", err)
		return
	}

	conn.SetReadLimit(maxReadMessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(readDeadline)); err != nil {
		slog.Warn("[DEBUG-WS] SetReadDeadline failed on new connection", "error", err)
		h.closeConn(conn, "initial SetReadDeadline failure")
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readDeadline))
	})

	h.mu.Lock()
	oldConn := h.conn
	h.conn = conn
	h.mu.Unlock()
	if oldConn != nil {
		h.closeConn(oldConn, "replaced by new connection")
	}
	slog.Info("[DEBUG-WS] client connected", "remoteAddr", conn.RemoteAddr())

	pingDone := make(chan struct{})
	go h.pingLoop(conn, pingDone)

	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("[DEBUG-PANIC] overlay handleWS recovered",
				"panic", rec,
				"stack", string(debug.Stack()),
			)
		}
		close(pingDone)
		h.clearIfCurrent(conn)
		h.closeConn(conn, "read pump exit")
		slog.Info("[DEBUG-WS] client disconnected")
	}()

	if h.opts.OnConnect != nil {
		h.opts.OnConnect()
	}

	for {
		msgType, data, readErr := conn.ReadMessage()
		if readErr != nil {
			if websocket.IsUnexpectedCloseError(readErr, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("[DEBUG-WS] read error", "error", readErr)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		msg, decodeErr := DecodeInbound(data)
		if decodeErr != nil {
			slog.Debug("[DEBUG-WS] invalid message from client", "error", decodeErr)
			h.sendError(conn, decodeErr.Error())
			continue
		}
		h.dispatch(msg)
	}
}

func (h *Hub) dispatch(msg Inbound) {
	if h.handler == nil {
		return
	}
	switch m := msg.(type) {
	case KeyMessage:
		h.handler.HandleKey(m)
	case FocusMessage:
		h.handler.HandleFocus(m)
	case SearchMessage:
		h.handler.HandleSearch(m)
	}
}

func (h *Hub) pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("[DEBUG-PANIC] overlay pingLoop recovered",
				"panic", rec,
				"stack", string(debug.Stack()),
			)
			h.clearIfCurrent(conn)
			h.closeConn(conn, "pingLoop panic recovery")
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := h.write(conn, websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) sendError(conn *websocket.Conn, message string) {
	payload, err := json.Marshal(errorMsg{Type: typeError, Message: message})
	if err != nil {
		slog.Debug("[DEBUG-WS] failed to marshal error message", "error", err)
		return
	}
	_ = h.write(conn, websocket.TextMessage, payload)
}
