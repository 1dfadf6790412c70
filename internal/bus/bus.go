// Package bus implements the typed publish/subscribe channel between the
// realtime layer and its subscribers. Event kinds form a closed set and
// each kind carries a fixed payload variant, so subscribers never have to
// guess what a stringly-typed event contains.
package bus

import (
	"sync"

	"github.com/cisse17/Projet-mobile-app/internal/domain"
)

// Event identifies a kind of event published on the bus.
type Event int

const (
	// Connected fires when the realtime channel handshake completes.
	Connected Event = iota
	// Disconnected fires when the realtime channel closes.
	Disconnected
	// ChannelError carries transport or protocol errors, including the
	// terminal reconnect-exhausted error.
	ChannelError
	// NewMessage carries an inbound message pushed by the server.
	NewMessage
	// MessageSent acknowledges the id assigned to a message this client sent.
	MessageSent
	// MessageRead carries a read receipt for a message this client sent.
	MessageRead
	// UnreadCount carries the server's view of the total unread count.
	UnreadCount
)

func (e Event) String() string {
	switch e {
	case Connected:
		return "connected"
	case Disconnected:
		return "websocketDisconnected"
	case ChannelError:
		return "websocketError"
	case NewMessage:
		return "newMessage"
	case MessageSent:
		return "messageSent"
	case MessageRead:
		return "messageRead"
	case UnreadCount:
		return "unreadCount"
	}
	return "unknown"
}

// Payload is the variant record delivered to handlers. Which fields are
// set depends on the event kind: Err for ChannelError, Message for
// NewMessage, MessageID for MessageSent, Read for MessageRead and Count
// for UnreadCount. Connected and Disconnected carry nothing.
type Payload struct {
	Err       error
	Message   *domain.Message
	MessageID int64
	Read      *domain.MessageRead
	Count     int
}

// Handler receives events. Handlers for the same event run in
// subscription order but callers must not rely on ordering across
// handlers.
type Handler func(Payload)

// Unsubscribe removes the handler it was returned for. Safe to call from
// inside the handler itself and safe to call more than once.
type Unsubscribe func()

type subscription struct {
	id      uint64
	handler Handler
}

// Bus fans events out to subscribers. Safe for concurrent use.
type Bus struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[Event][]subscription
}

func New() *Bus {
	return &Bus{subs: make(map[Event][]subscription)}
}

// Subscribe registers a handler for the given event kind.
func (b *Bus) Subscribe(e Event, h Handler) Unsubscribe {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.subs[e] = append(b.subs[e], subscription{id: id, handler: h})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.subs[e]
		for i, s := range subs {
			if s.id == id {
				b.subs[e] = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers the payload to every handler subscribed to the event.
// The handler list is copied before iteration so a handler that
// unsubscribes itself (or anyone else) mid-emit cannot corrupt delivery.
func (b *Bus) Publish(e Event, p Payload) {
	b.mu.Lock()
	subs := make([]subscription, len(b.subs[e]))
	copy(subs, b.subs[e])
	b.mu.Unlock()

	for _, s := range subs {
		s.handler(p)
	}
}

// Reset drops all subscriptions.
func (b *Bus) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = make(map[Event][]subscription)
}
