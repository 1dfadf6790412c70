package stubserver_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cisse17/Projet-mobile-app/internal/apiclient"
	"github.com/cisse17/Projet-mobile-app/internal/bus"
	"github.com/cisse17/Projet-mobile-app/internal/domain"
	"github.com/cisse17/Projet-mobile-app/internal/realtime"
	"github.com/cisse17/Projet-mobile-app/internal/security"
	"github.com/cisse17/Projet-mobile-app/internal/stubserver"
)

// client bundles one logged-in user: REST client, realtime manager and a
// channel carrying every bus event, in order.
type client struct {
	user    *domain.User
	rest    *apiclient.Client
	token   string
	channel *realtime.Manager
	events  chan busEvent
}

type busEvent struct {
	event   bus.Event
	payload bus.Payload
}

func newBackend(t *testing.T) *httptest.Server {
	t.Helper()
	tokens := security.NewTokenService("test-secret", time.Hour)
	srv := httptest.NewServer(stubserver.New(tokens).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func newUser(t *testing.T, backend *httptest.Server, username, email string) *client {
	t.Helper()
	ctx := context.Background()

	c := &client{events: make(chan busEvent, 64)}
	c.rest = apiclient.New(backend.URL, func() string { return c.token })

	user, err := c.rest.Register(ctx, apiclient.RegisterInput{
		Username: username,
		Email:    email,
		Password: "s3cret",
	})
	assert.NoError(t, err)
	c.user = user

	c.token, err = c.rest.LoginToken(ctx, email, "s3cret")
	assert.NoError(t, err)

	b := bus.New()
	for _, e := range []bus.Event{
		bus.Connected, bus.Disconnected, bus.ChannelError,
		bus.NewMessage, bus.MessageSent, bus.MessageRead, bus.UnreadCount,
	} {
		e := e
		b.Subscribe(e, func(p bus.Payload) {
			c.events <- busEvent{event: e, payload: p}
		})
	}
	c.channel = realtime.NewManager(realtime.Options{
		BaseURL:      backend.URL,
		PingInterval: time.Hour,
	}, b)
	t.Cleanup(c.channel.Disconnect)
	return c
}

func (c *client) connect(t *testing.T) {
	t.Helper()
	assert.NoError(t, c.channel.SetToken(c.token))
	c.wait(t, bus.Connected)
}

func (c *client) wait(t *testing.T, want bus.Event) bus.Payload {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case got := <-c.events:
			if got.event == want {
				return got.payload
			}
		case <-deadline:
			t.Fatalf("%s: event %s never arrived", c.user.Username, want)
			return bus.Payload{}
		}
	}
}

func TestRestSendPushesToConnectedReceiver(t *testing.T) {
	backend := newBackend(t)
	alice := newUser(t, backend, "alice", "alice@example.com")
	bob := newUser(t, backend, "bob", "bob@example.com")

	alice.connect(t)

	// A receiver with zero unread gets that count right after connecting.
	p := alice.wait(t, bus.UnreadCount)
	assert.Equal(t, 0, p.Count)

	sent, err := bob.rest.Send(context.Background(), "salut alice", alice.user.ID)
	assert.NoError(t, err)

	p = alice.wait(t, bus.NewMessage)
	assert.Equal(t, sent.ID, p.Message.ID)
	assert.Equal(t, "salut alice", p.Message.Content)
	assert.Equal(t, bob.user.ID, p.Message.SenderID)
}

func TestRealtimeSendAndReadReceipt(t *testing.T) {
	backend := newBackend(t)
	alice := newUser(t, backend, "alice", "alice@example.com")
	bob := newUser(t, backend, "bob", "bob@example.com")

	alice.connect(t)
	bob.connect(t)

	// Bob sends over the socket: he gets the id ack, alice gets the push.
	assert.NoError(t, bob.channel.SendChatMessage("jam tonight?", alice.user.ID))

	ack := bob.wait(t, bus.MessageSent)
	assert.NotZero(t, ack.MessageID)

	push := alice.wait(t, bus.NewMessage)
	assert.Equal(t, ack.MessageID, push.Message.ID)

	// Alice acknowledges over the socket: bob gets the read receipt.
	assert.NoError(t, alice.channel.MarkMessageAsRead(push.Message.ID))

	receipt := bob.wait(t, bus.MessageRead)
	assert.Equal(t, push.Message.ID, receipt.Read.MessageID)
	assert.Equal(t, alice.user.ID, receipt.Read.ReaderID)
}

func TestUnreadCountOnConnect(t *testing.T) {
	backend := newBackend(t)
	alice := newUser(t, backend, "alice", "alice@example.com")
	bob := newUser(t, backend, "bob", "bob@example.com")

	ctx := context.Background()
	_, err := bob.rest.Send(ctx, "one", alice.user.ID)
	assert.NoError(t, err)
	_, err = bob.rest.Send(ctx, "two", alice.user.ID)
	assert.NoError(t, err)

	// Connecting after the fact still reports the backlog.
	alice.connect(t)
	p := alice.wait(t, bus.UnreadCount)
	assert.Equal(t, 2, p.Count)

	list, err := alice.rest.Received(ctx)
	assert.NoError(t, err)
	for _, m := range list.Messages {
		assert.NoError(t, alice.rest.MarkRead(ctx, m.ID))
	}

	assert.NoError(t, alice.channel.RequestUnreadCount())
	p = alice.wait(t, bus.UnreadCount)
	assert.Equal(t, 0, p.Count)
}

func TestMarkReadOverSocketForOtherUsersMessageFails(t *testing.T) {
	backend := newBackend(t)
	alice := newUser(t, backend, "alice", "alice@example.com")
	bob := newUser(t, backend, "bob", "bob@example.com")

	bob.connect(t)

	sent, err := bob.rest.Send(context.Background(), "hi", alice.user.ID)
	assert.NoError(t, err)

	// Bob is the sender, not the receiver; the server must refuse.
	assert.NoError(t, bob.channel.MarkMessageAsRead(sent.ID))
	p := bob.wait(t, bus.ChannelError)
	assert.ErrorContains(t, p.Err, "message not found")
}

func TestWebSocketRejectsBadToken(t *testing.T) {
	backend := newBackend(t)
	alice := newUser(t, backend, "alice", "alice@example.com")

	alice.token = "not-a-valid-token"
	assert.Error(t, alice.channel.SetToken(alice.token))
	assert.False(t, alice.channel.IsConnected())
}
