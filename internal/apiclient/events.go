package apiclient

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cisse17/Projet-mobile-app/internal/domain"
)

// ListEvents fetches all events.
func (c *Client) ListEvents(ctx context.Context) ([]domain.Event, error) {
	var events []domain.Event
	if err := c.do(ctx, http.MethodGet, "/events/", nil, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// GetEvent fetches one event by id.
func (c *Client) GetEvent(ctx context.Context, id int64) (*domain.Event, error) {
	var ev domain.Event
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/events/%d", id), nil, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

// CreateEvent creates an event organized by the current user.
func (c *Client) CreateEvent(ctx context.Context, in domain.EventCreate) (*domain.Event, error) {
	var ev domain.Event
	if err := c.do(ctx, http.MethodPost, "/events/", in, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

var _ domain.EventAPI = (*Client)(nil)
