package stubserver

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	// Dev fixture; any origin may connect.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleWebSocket serves /ws/{token}: authenticate, greet, then dispatch
// client frames:
//   - ping             -> pong
//   - get_unread_count -> unread_count
//   - message          -> store + new_message to receiver + message_sent ack
//   - mark_read        -> store + message_read to the original sender
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	user, err := s.userFromToken(chi.URLParam(r, "token"))
	if err != nil {
		writeDetail(w, http.StatusUnauthorized, "invalid token")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	client := &wsClient{conn: conn}
	defer conn.Close()

	s.hub.register(user.ID, client)
	defer s.hub.unregister(user.ID, client)

	_ = client.writeJSON(map[string]any{
		"type":    "connection_established",
		"message": "connected as " + user.Username,
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var payload map[string]any
		if err := json.Unmarshal(data, &payload); err != nil {
			_ = client.writeJSON(map[string]any{
				"type":    "error",
				"message": "invalid frame",
			})
			continue
		}
		msgType, _ := payload["type"].(string)

		switch msgType {
		case "ping":
			_ = client.writeJSON(map[string]any{"type": "pong"})

		case "get_unread_count":
			_ = client.writeJSON(map[string]any{
				"type":  "unread_count",
				"count": s.store.unreadCount(user.ID),
			})

		case "message":
			content, _ := payload["content"].(string)
			receiverIDf, _ := payload["receiver_id"].(float64)
			if content == "" || receiverIDf == 0 {
				_ = client.writeJSON(map[string]any{
					"type":    "error",
					"message": "message requires content and receiver_id",
				})
				continue
			}
			receiverID := int64(receiverIDf)
			if _, ok := s.store.userByID(receiverID); !ok {
				_ = client.writeJSON(map[string]any{
					"type":    "error",
					"message": "receiver not found",
				})
				continue
			}
			msg := s.store.createMessage(user.ID, receiverID, content)
			s.hub.sendToUser(receiverID, map[string]any{
				"type":    "new_message",
				"message": msg,
			})
			_ = client.writeJSON(map[string]any{
				"type":       "message_sent",
				"message_id": msg.ID,
			})

		case "mark_read":
			messageIDf, _ := payload["message_id"].(float64)
			msg, ok := s.store.markRead(int64(messageIDf), user.ID)
			if !ok {
				_ = client.writeJSON(map[string]any{
					"type":    "error",
					"message": "message not found",
				})
				continue
			}
			s.hub.sendToUser(msg.SenderID, map[string]any{
				"type":       "message_read",
				"message_id": msg.ID,
				"reader_id":  user.ID,
			})

		default:
			log.Printf("stub ws: unknown frame type %q from user %d", msgType, user.ID)
		}
	}
}
