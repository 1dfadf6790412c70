package domain

import "time"

// User represents an application user as returned by the REST API.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

// Message is a single direct message. Messages are owned by the server;
// the client holds read-only copies keyed by ID. The only field that
// changes after creation is IsRead, which transitions false to true once.
type Message struct {
	ID         int64     `json:"id"`
	Content    string    `json:"content"`
	SenderID   int64     `json:"sender_id"`
	ReceiverID int64     `json:"receiver_id"`
	CreatedAt  time.Time `json:"created_at"`
	IsRead     bool      `json:"is_read"`
}

// PeerID returns the other participant of the message relative to the
// given user.
func (m Message) PeerID(currentUserID int64) int64 {
	if m.SenderID == currentUserID {
		return m.ReceiverID
	}
	return m.SenderID
}

// Conversation is a derived projection over the message set for one peer.
// It is recomputed from the underlying messages and never mutated directly.
type Conversation struct {
	PeerID      int64   `json:"peer_id"`
	PeerName    string  `json:"peer_name"`
	LastMessage Message `json:"last_message"`
	UnreadCount int     `json:"unread_count"`
}

// MessageList mirrors the GET /messages/received response shape.
type MessageList struct {
	Messages []Message `json:"messages"`
	Unread   int       `json:"unread"`
}

// MessageRead carries a read receipt pushed over the realtime channel.
type MessageRead struct {
	MessageID int64 `json:"message_id"`
	ReaderID  int64 `json:"reader_id"`
}

// Event represents a musician-finder event (jam session, concert, ...).
type Event struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Date        time.Time `json:"date"`
	Location    string    `json:"location"`
	OrganizerID int64     `json:"organizer_id"`
}

// EventCreate is the payload for POST /events/.
type EventCreate struct {
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Date        time.Time `json:"date"`
	Location    string    `json:"location"`
}
