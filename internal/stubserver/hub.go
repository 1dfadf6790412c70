package stubserver

import (
	"sync"

	"github.com/gorilla/websocket"
)

// wsClient wraps a connection with a write lock; frames can come from the
// connection's own read loop (pong, acks) and from REST handlers pushing
// to the receiver, and gorilla allows only one concurrent writer.
type wsClient struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *wsClient) writeJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(v)
}

// hub tracks active WebSocket connections keyed by user id so REST
// handlers can push realtime frames to a specific user.
type hub struct {
	mu    sync.RWMutex
	conns map[int64]map[*wsClient]struct{}
}

func newHub() *hub {
	return &hub{conns: make(map[int64]map[*wsClient]struct{})}
}

func (h *hub) register(userID int64, c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[userID] == nil {
		h.conns[userID] = make(map[*wsClient]struct{})
	}
	h.conns[userID][c] = struct{}{}
}

func (h *hub) unregister(userID int64, c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.conns[userID]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.conns, userID)
		}
	}
}

// sendToUser delivers the payload to all active connections of one user.
// Failed connections are closed; removal happens on their read loop exit.
func (h *hub) sendToUser(userID int64, payload any) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.conns[userID] {
		if err := c.writeJSON(payload); err != nil {
			c.conn.Close()
		}
	}
}
