package apiclient

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cisse17/Projet-mobile-app/internal/domain"
)

type messageCreateRequest struct {
	Content    string `json:"content"`
	ReceiverID int64  `json:"receiver_id"`
}

// Received fetches messages addressed to the current user together with
// the server's unread count.
func (c *Client) Received(ctx context.Context) (*domain.MessageList, error) {
	var list domain.MessageList
	if err := c.do(ctx, http.MethodGet, "/messages/received", nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// Sent fetches messages the current user has sent.
func (c *Client) Sent(ctx context.Context) ([]domain.Message, error) {
	var msgs []domain.Message
	if err := c.do(ctx, http.MethodGet, "/messages/sent", nil, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// Send creates a message over REST. This is also the fallback path when
// the realtime channel is down.
func (c *Client) Send(ctx context.Context, content string, receiverID int64) (*domain.Message, error) {
	var msg domain.Message
	err := c.do(ctx, http.MethodPost, "/messages/", messageCreateRequest{
		Content:    content,
		ReceiverID: receiverID,
	}, &msg)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// MarkRead acknowledges a single message as read.
func (c *Client) MarkRead(ctx context.Context, messageID int64) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/messages/%d/read", messageID), nil, nil)
}

// Thread fetches the full exchange with another user.
func (c *Client) Thread(ctx context.Context, otherUserID int64) ([]domain.Message, error) {
	var msgs []domain.Message
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/messages/conversation/%d", otherUserID), nil, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

var _ domain.MessageAPI = (*Client)(nil)
