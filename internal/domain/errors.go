package domain

import "errors"

// Sentinel errors for the application.
var (
	// ErrInvalidToken is returned when an empty or blank bearer token is
	// supplied to the realtime channel or the session store.
	ErrInvalidToken = errors.New("invalid bearer token")

	// ErrNotConnected is reported when a send is attempted while the
	// realtime channel is not open. Non-fatal; the REST API is the fallback.
	ErrNotConnected = errors.New("realtime channel not connected")

	// ErrReconnectExhausted is emitted exactly once after the maximum number
	// of consecutive reconnect attempts has failed. Recovery requires
	// external intervention (manual reconnect or re-login).
	ErrReconnectExhausted = errors.New("reconnect attempts exhausted")

	ErrNotFound     = errors.New("resource not found")
	ErrUnauthorized = errors.New("unauthorized access")
	ErrConflict     = errors.New("resource already exists")
	ErrInvalidInput = errors.New("invalid input")
)
