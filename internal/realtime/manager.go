// Package realtime owns the persistent WebSocket connection to the
// backend: token-based connect, keepalive pings, exponential-backoff
// reconnects and fan-out of inbound frames onto the event bus.
package realtime

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cisse17/Projet-mobile-app/internal/bus"
	"github.com/cisse17/Projet-mobile-app/internal/domain"
)

// State is the connection lifecycle state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateOpen
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	}
	return "unknown"
}

// Options configures a Manager. Zero values fall back to the defaults
// used by the mobile client.
type Options struct {
	// BaseURL is the REST base address; the websocket endpoint is derived
	// from it (http -> ws, https -> wss) with the token appended to the
	// path, as the backend requires.
	BaseURL string

	PingInterval  time.Duration
	PongTimeout   time.Duration
	ReconnectBase time.Duration
	ReconnectMax  time.Duration
	MaxReconnects int

	Dialer *websocket.Dialer
	Logger *slog.Logger
}

func (o *Options) defaults() {
	if o.PingInterval == 0 {
		o.PingInterval = 30 * time.Second
	}
	if o.PongTimeout == 0 {
		o.PongTimeout = 10 * time.Second
	}
	if o.ReconnectBase == 0 {
		o.ReconnectBase = time.Second
	}
	if o.ReconnectMax == 0 {
		o.ReconnectMax = 30 * time.Second
	}
	if o.MaxReconnects == 0 {
		o.MaxReconnects = 5
	}
	if o.Dialer == nil {
		o.Dialer = &websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Manager maintains at most one live connection per session. All inbound
// frames are republished on the bus in wire order; outbound sends fail
// fast when the channel is not open (REST is the fallback, nothing is
// queued).
type Manager struct {
	opts Options
	bus  *bus.Bus
	log  *slog.Logger

	mu             sync.Mutex
	token          string
	state          State
	conn           *websocket.Conn
	gen            uint64
	attempts       int
	exhausted      bool
	reconnectTimer *time.Timer
	pongTimer      *time.Timer
	done           chan struct{}

	// writeMu serializes frame writes; gorilla allows one writer at a time.
	writeMu sync.Mutex
}

func NewManager(opts Options, b *bus.Bus) *Manager {
	opts.defaults()
	return &Manager{
		opts: opts,
		bus:  b,
		log:  opts.Logger.With("component", "realtime"),
	}
}

// SetToken replaces the bearer token. Any existing connection is fully
// torn down (timers cancelled first) before a fresh connection is made
// with the new token, so two rapid calls still leave exactly one live
// connection, authenticated with the later token.
func (m *Manager) SetToken(token string) error {
	if strings.TrimSpace(token) == "" {
		return domain.ErrInvalidToken
	}
	m.mu.Lock()
	m.token = token
	m.attempts = 0
	m.exhausted = false
	m.teardownLocked()
	m.mu.Unlock()
	return m.Connect()
}

// Connect dials the realtime endpoint. No-op while already connecting or
// open. A dial failure feeds the reconnect policy and is also returned to
// the caller.
func (m *Manager) Connect() error {
	m.mu.Lock()
	if m.state == StateConnecting || m.state == StateOpen {
		m.mu.Unlock()
		return nil
	}
	if m.token == "" {
		m.mu.Unlock()
		return domain.ErrInvalidToken
	}
	m.state = StateConnecting
	m.gen++
	// This attempt owns the lifecycle now; a pending backoff timer belongs
	// to the superseded generation and must not block rescheduling.
	if m.reconnectTimer != nil {
		m.reconnectTimer.Stop()
		m.reconnectTimer = nil
	}
	g := m.gen
	token := m.token
	m.mu.Unlock()

	target, err := endpointURL(m.opts.BaseURL, token)
	if err != nil {
		m.mu.Lock()
		if m.gen == g {
			m.state = StateDisconnected
		}
		m.mu.Unlock()
		return fmt.Errorf("realtime endpoint: %w", err)
	}

	conn, resp, err := m.opts.Dialer.Dial(target, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		m.mu.Lock()
		superseded := m.gen != g
		if !superseded {
			m.state = StateDisconnected
		}
		m.mu.Unlock()
		if superseded {
			// A SetToken or Disconnect raced this dial; its outcome no
			// longer matters.
			return nil
		}
		m.log.Warn("realtime dial failed", "error", err)
		m.scheduleReconnect()
		return fmt.Errorf("dial realtime endpoint: %w", err)
	}

	m.mu.Lock()
	if m.gen != g {
		m.mu.Unlock()
		// Superseded mid-dial; never allow a second live connection.
		conn.Close()
		return nil
	}
	m.conn = conn
	m.state = StateOpen
	m.attempts = 0
	m.exhausted = false
	done := make(chan struct{})
	m.done = done
	m.mu.Unlock()

	m.log.Info("realtime channel open")
	m.bus.Publish(bus.Connected, bus.Payload{})

	go m.readLoop(g, conn)
	go m.keepalive(g, conn, done)

	// Ask for the server's view of the unread count right away.
	if err := m.writeFrame(conn, pingFrame{Type: typeGetUnread}); err != nil {
		m.log.Warn("unread count request failed", "error", err)
	}
	return nil
}

// Disconnect cancels pending timers, closes the connection and settles in
// Disconnected. Idempotent; no reconnect is scheduled afterwards.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	active := m.conn != nil || m.state != StateDisconnected
	if active {
		m.state = StateClosing
	}
	m.teardownLocked()
	m.mu.Unlock()

	if active {
		m.bus.Publish(bus.Disconnected, bus.Payload{})
	}
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// IsConnected reports whether the channel is open.
func (m *Manager) IsConnected() bool {
	return m.State() == StateOpen
}

// Send serializes and transmits a frame immediately. When the channel is
// not open it reports ErrNotConnected on the bus and returns it; frames
// are never queued for later.
func (m *Manager) Send(frame any) error {
	m.mu.Lock()
	conn := m.conn
	open := m.state == StateOpen
	m.mu.Unlock()

	if !open || conn == nil {
		m.log.Warn("send while channel not open")
		m.bus.Publish(bus.ChannelError, bus.Payload{Err: domain.ErrNotConnected})
		return domain.ErrNotConnected
	}
	return m.writeFrame(conn, frame)
}

// SendChatMessage sends a chat message to the given receiver over the
// realtime channel.
func (m *Manager) SendChatMessage(content string, receiverID int64) error {
	return m.Send(chatMessageFrame{Type: typeChatMessage, Content: content, ReceiverID: receiverID})
}

// MarkMessageAsRead acknowledges a message over the realtime channel.
func (m *Manager) MarkMessageAsRead(messageID int64) error {
	return m.Send(markReadFrame{Type: typeMarkRead, MessageID: messageID})
}

// RequestUnreadCount asks the server to push the current unread count.
func (m *Manager) RequestUnreadCount() error {
	return m.Send(pingFrame{Type: typeGetUnread})
}

// teardownLocked cancels timers, stops per-connection goroutines and
// closes the socket. Bumping the generation invalidates every callback
// belonging to the old connection, so a timer that already fired cannot
// act on a superseded connection.
func (m *Manager) teardownLocked() {
	m.gen++
	if m.reconnectTimer != nil {
		m.reconnectTimer.Stop()
		m.reconnectTimer = nil
	}
	if m.pongTimer != nil {
		m.pongTimer.Stop()
		m.pongTimer = nil
	}
	if m.done != nil {
		close(m.done)
		m.done = nil
	}
	if m.conn != nil {
		_ = m.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		m.conn.Close()
		m.conn = nil
	}
	m.state = StateDisconnected
}

func (m *Manager) readLoop(g uint64, conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			m.mu.Lock()
			if m.gen != g {
				// Intentional teardown; nothing more to do.
				m.mu.Unlock()
				return
			}
			if m.pongTimer != nil {
				m.pongTimer.Stop()
				m.pongTimer = nil
			}
			if m.done != nil {
				close(m.done)
				m.done = nil
			}
			m.conn = nil
			m.state = StateDisconnected
			m.mu.Unlock()

			m.log.Warn("realtime channel closed", "error", err)
			m.bus.Publish(bus.Disconnected, bus.Payload{})
			m.scheduleReconnect()
			return
		}
		m.handleFrame(g, data)
	}
}

func (m *Manager) keepalive(g uint64, conn *websocket.Conn, done chan struct{}) {
	ticker := time.NewTicker(m.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := m.writeFrame(conn, pingFrame{Type: typePing}); err != nil {
				m.log.Warn("ping failed", "error", err)
				return
			}
			m.armPongTimer(g, conn)
		}
	}
}

// armPongTimer starts the pong deadline for the last ping. A server that
// never answers leaves a half-open connection the transport can take
// minutes to notice; forcing the close here hands the problem to the
// reconnect policy instead.
func (m *Manager) armPongTimer(g uint64, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gen != g || m.pongTimer != nil {
		return
	}
	m.pongTimer = time.AfterFunc(m.opts.PongTimeout, func() {
		m.mu.Lock()
		m.pongTimer = nil
		stale := m.gen != g
		m.mu.Unlock()
		if stale {
			return
		}
		m.log.Warn("pong deadline missed, forcing close")
		conn.Close()
	})
}

func (m *Manager) handleFrame(g uint64, data []byte) {
	var f inboundFrame
	if err := json.Unmarshal(data, &f); err != nil {
		// A malformed frame must never terminate the connection.
		m.log.Warn("dropping malformed frame", "error", err)
		return
	}

	switch f.Type {
	case typePong:
		m.mu.Lock()
		if m.gen == g && m.pongTimer != nil {
			m.pongTimer.Stop()
			m.pongTimer = nil
		}
		m.mu.Unlock()
		m.log.Debug("pong received")

	case typeNewMessage:
		var msg domain.Message
		if err := json.Unmarshal(f.Message, &msg); err != nil {
			m.log.Warn("dropping malformed new_message frame", "error", err)
			return
		}
		m.bus.Publish(bus.NewMessage, bus.Payload{Message: &msg})

	case typeMessageSent:
		m.bus.Publish(bus.MessageSent, bus.Payload{MessageID: f.MessageID})

	case typeMessageRead:
		m.bus.Publish(bus.MessageRead, bus.Payload{
			Read: &domain.MessageRead{MessageID: f.MessageID, ReaderID: f.ReaderID},
		})

	case typeUnreadCount:
		m.bus.Publish(bus.UnreadCount, bus.Payload{Count: f.Count})

	case typeError:
		text := f.text()
		m.log.Error("server error frame", "message", text)
		m.bus.Publish(bus.ChannelError, bus.Payload{Err: fmt.Errorf("server: %s", text)})

	case typeConnEstablished:
		m.log.Info("connection established", "message", f.text())

	default:
		m.log.Warn("unhandled frame type", "type", f.Type)
	}
}

// scheduleReconnect arms the single backoff timer. Once the attempt
// budget is spent a terminal ErrReconnectExhausted is published exactly
// once; recovery then requires SetToken or an explicit Connect.
func (m *Manager) scheduleReconnect() {
	m.mu.Lock()
	if m.reconnectTimer != nil {
		m.mu.Unlock()
		return
	}
	if m.attempts >= m.opts.MaxReconnects {
		already := m.exhausted
		m.exhausted = true
		m.mu.Unlock()
		if !already {
			m.log.Error("reconnect attempts exhausted", "max", m.opts.MaxReconnects)
			m.bus.Publish(bus.ChannelError, bus.Payload{Err: domain.ErrReconnectExhausted})
		}
		return
	}
	m.attempts++
	attempt := m.attempts
	delay := backoffDelay(m.opts.ReconnectBase, m.opts.ReconnectMax, attempt)
	g := m.gen
	// The callback only clears its own slot; a callback that lost a Stop
	// race must not evict a successor timer.
	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		m.mu.Lock()
		if m.reconnectTimer == timer {
			m.reconnectTimer = nil
		}
		stale := m.gen != g
		m.mu.Unlock()
		if stale {
			return
		}
		_ = m.Connect()
	})
	m.reconnectTimer = timer
	m.mu.Unlock()

	m.log.Info("reconnect scheduled",
		"attempt", attempt, "max", m.opts.MaxReconnects, "delay", delay)
}

// backoffDelay is min(base * 2^attempt, max).
func backoffDelay(base, max time.Duration, attempt int) time.Duration {
	if attempt > 30 {
		return max
	}
	d := base << uint(attempt)
	if d <= 0 || d > max {
		return max
	}
	return d
}

func endpointURL(base, token string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https", "wss":
		u.Scheme = "wss"
	case "http", "ws":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	// The backend expects the token as a path segment, not a header.
	u.Path = path.Join(u.Path, "ws", token)
	return u.String(), nil
}

func (m *Manager) writeFrame(conn *websocket.Conn, v any) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	return conn.WriteJSON(v)
}
