package domain

import "context"

// MessageAPI defines the REST message operations the client consumes.
type MessageAPI interface {
	Received(ctx context.Context) (*MessageList, error)
	Sent(ctx context.Context) ([]Message, error)
	Send(ctx context.Context, content string, receiverID int64) (*Message, error)
	MarkRead(ctx context.Context, messageID int64) error
	Thread(ctx context.Context, otherUserID int64) ([]Message, error)
}

// UserAPI defines the REST user lookup operations.
type UserAPI interface {
	Get(ctx context.Context, id int64) (*User, error)
	Search(ctx context.Context, query string) ([]User, error)
}

// EventAPI defines the REST event operations.
type EventAPI interface {
	ListEvents(ctx context.Context) ([]Event, error)
	GetEvent(ctx context.Context, id int64) (*Event, error)
	CreateEvent(ctx context.Context, in EventCreate) (*Event, error)
}

// TokenStore persists the bearer token between sessions.
type TokenStore interface {
	SaveToken(ctx context.Context, token string) error
	LoadToken(ctx context.Context) (string, error)
	ClearToken(ctx context.Context) error
}
