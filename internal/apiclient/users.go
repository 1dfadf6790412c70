package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/cisse17/Projet-mobile-app/internal/domain"
)

// Get fetches a single user by id.
func (c *Client) Get(ctx context.Context, id int64) (*domain.User, error) {
	var user domain.User
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/users/%d", id), nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Search finds users whose username matches the query.
func (c *Client) Search(ctx context.Context, query string) ([]domain.User, error) {
	var users []domain.User
	path := "/users/search?query=" + url.QueryEscape(query)
	if err := c.do(ctx, http.MethodGet, path, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// ListUsers fetches all users.
func (c *Client) ListUsers(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	if err := c.do(ctx, http.MethodGet, "/users/", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

var _ domain.UserAPI = (*Client)(nil)
