package realtime

import "encoding/json"

// Outbound frame types. One JSON object per text frame, discriminated by
// the "type" field.
const (
	typePing        = "ping"
	typeGetUnread   = "get_unread_count"
	typeChatMessage = "message"
	typeMarkRead    = "mark_read"
)

// Inbound frame types.
const (
	typePong            = "pong"
	typeNewMessage      = "new_message"
	typeMessageSent     = "message_sent"
	typeMessageRead     = "message_read"
	typeUnreadCount     = "unread_count"
	typeError           = "error"
	typeConnEstablished = "connection_established"
)

type pingFrame struct {
	Type string `json:"type"`
}

type chatMessageFrame struct {
	Type       string `json:"type"`
	Content    string `json:"content"`
	ReceiverID int64  `json:"receiver_id"`
}

type markReadFrame struct {
	Type      string `json:"type"`
	MessageID int64  `json:"message_id"`
}

// inboundFrame covers every server frame shape. The "message" key is a
// Message object for new_message but a plain string for error and
// connection_established, so it stays raw until the type is known.
type inboundFrame struct {
	Type      string          `json:"type"`
	Message   json.RawMessage `json:"message"`
	MessageID int64           `json:"message_id"`
	ReaderID  int64           `json:"reader_id"`
	Count     int             `json:"count"`
}

func (f *inboundFrame) text() string {
	var s string
	if json.Unmarshal(f.Message, &s) == nil {
		return s
	}
	return ""
}
