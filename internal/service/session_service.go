package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cisse17/Projet-mobile-app/internal/domain"
	"github.com/cisse17/Projet-mobile-app/internal/security"
)

// Authenticator is the slice of the REST client the session layer needs.
type Authenticator interface {
	LoginToken(ctx context.Context, email, password string) (string, error)
	Me(ctx context.Context) (*domain.User, error)
}

// RealtimeChannel is the slice of the channel manager the session layer
// drives: token replacement on login and teardown on logout.
type RealtimeChannel interface {
	SetToken(token string) error
	Disconnect()
}

// SessionService owns the bearer token lifecycle: login, restore from the
// local store on startup, and logout. It is the single writer of the
// token cell; every write replaces the realtime connection so a stale
// token is never used on an existing socket.
type SessionService struct {
	auth    Authenticator
	store   domain.TokenStore
	channel RealtimeChannel
	log     *slog.Logger

	mu    sync.Mutex
	token string
	user  *domain.User
}

func NewSessionService(auth Authenticator, store domain.TokenStore, channel RealtimeChannel, log *slog.Logger) *SessionService {
	if log == nil {
		log = slog.Default()
	}
	return &SessionService{
		auth:    auth,
		store:   store,
		channel: channel,
		log:     log.With("component", "session"),
	}
}

// Token returns the current bearer token; it is the TokenFunc the REST
// client reads on every request.
func (s *SessionService) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// CurrentUser returns the authenticated user, or nil outside a session.
func (s *SessionService) CurrentUser() *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// Login authenticates, persists the token, points the realtime channel at
// it and resolves the current user.
func (s *SessionService) Login(ctx context.Context, email, password string) (*domain.User, error) {
	token, err := s.auth.LoginToken(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	s.mu.Lock()
	s.token = token
	s.mu.Unlock()

	if err := s.store.SaveToken(ctx, token); err != nil {
		// A session that cannot be persisted still works for this run.
		s.log.Warn("persisting token failed", "error", err)
	}

	user, err := s.auth.Me(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch current user: %w", err)
	}
	s.mu.Lock()
	s.user = user
	s.mu.Unlock()

	if err := s.channel.SetToken(token); err != nil {
		s.log.Warn("realtime connect failed, continuing on REST only", "error", err)
	}
	return user, nil
}

// Restore brings back a persisted session. Expired or undecodable tokens
// are discarded; the server remains the authority and a token it rejects
// is cleared as well.
func (s *SessionService) Restore(ctx context.Context) (*domain.User, error) {
	token, err := s.store.LoadToken(ctx)
	if err != nil {
		return nil, err
	}

	info, err := security.Inspect(token)
	if err != nil || (!info.ExpiresAt.IsZero() && time.Now().After(info.ExpiresAt)) {
		s.log.Info("discarding expired or malformed stored token")
		_ = s.store.ClearToken(ctx)
		return nil, domain.ErrNotFound
	}

	s.mu.Lock()
	s.token = token
	s.mu.Unlock()

	user, err := s.auth.Me(ctx)
	if err != nil {
		s.mu.Lock()
		s.token = ""
		s.mu.Unlock()
		_ = s.store.ClearToken(ctx)
		return nil, fmt.Errorf("stored token rejected: %w", err)
	}
	s.mu.Lock()
	s.user = user
	s.mu.Unlock()

	if err := s.channel.SetToken(token); err != nil {
		s.log.Warn("realtime connect failed, continuing on REST only", "error", err)
	}
	return user, nil
}

// Logout tears the realtime connection down and forgets the session.
func (s *SessionService) Logout(ctx context.Context) error {
	s.channel.Disconnect()

	s.mu.Lock()
	s.token = ""
	s.user = nil
	s.mu.Unlock()

	if err := s.store.ClearToken(ctx); err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	return nil
}
