package bus_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cisse17/Projet-mobile-app/internal/bus"
	"github.com/cisse17/Projet-mobile-app/internal/domain"
)

func TestPublishFansOut(t *testing.T) {
	b := bus.New()

	var first, second []int64
	b.Subscribe(bus.MessageSent, func(p bus.Payload) {
		first = append(first, p.MessageID)
	})
	b.Subscribe(bus.MessageSent, func(p bus.Payload) {
		second = append(second, p.MessageID)
	})
	b.Subscribe(bus.NewMessage, func(p bus.Payload) {
		t.Error("handler for a different event must not fire")
	})

	b.Publish(bus.MessageSent, bus.Payload{MessageID: 7})
	b.Publish(bus.MessageSent, bus.Payload{MessageID: 8})

	assert.Equal(t, []int64{7, 8}, first)
	assert.Equal(t, []int64{7, 8}, second)
}

func TestUnsubscribe(t *testing.T) {
	b := bus.New()

	calls := 0
	unsub := b.Subscribe(bus.Connected, func(bus.Payload) { calls++ })

	b.Publish(bus.Connected, bus.Payload{})
	unsub()
	b.Publish(bus.Connected, bus.Payload{})

	assert.Equal(t, 1, calls)

	// Calling twice must be harmless.
	unsub()
}

func TestUnsubscribeDuringEmit(t *testing.T) {
	b := bus.New()

	var got []string
	var unsubSelf bus.Unsubscribe
	unsubSelf = b.Subscribe(bus.NewMessage, func(p bus.Payload) {
		got = append(got, "self-removing")
		unsubSelf()
	})
	b.Subscribe(bus.NewMessage, func(p bus.Payload) {
		got = append(got, "stable")
	})

	msg := &domain.Message{ID: 1, Content: "hi"}
	b.Publish(bus.NewMessage, bus.Payload{Message: msg})
	b.Publish(bus.NewMessage, bus.Payload{Message: msg})

	// The self-removing handler fires once; the stable one both times.
	assert.Equal(t, []string{"self-removing", "stable", "stable"}, got)
}

func TestEventString(t *testing.T) {
	assert.Equal(t, "connected", bus.Connected.String())
	assert.Equal(t, "websocketDisconnected", bus.Disconnected.String())
	assert.Equal(t, "websocketError", bus.ChannelError.String())
	assert.Equal(t, "newMessage", bus.NewMessage.String())
	assert.Equal(t, "unreadCount", bus.UnreadCount.String())
}

func TestReset(t *testing.T) {
	b := bus.New()
	calls := 0
	b.Subscribe(bus.Connected, func(bus.Payload) { calls++ })

	b.Reset()
	b.Publish(bus.Connected, bus.Payload{})

	assert.Zero(t, calls)
}
