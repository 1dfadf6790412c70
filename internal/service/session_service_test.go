package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/cisse17/Projet-mobile-app/internal/domain"
	"github.com/cisse17/Projet-mobile-app/internal/security"
	"github.com/cisse17/Projet-mobile-app/internal/service"
)

type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) LoginToken(ctx context.Context, email, password string) (string, error) {
	args := m.Called(ctx, email, password)
	return args.String(0), args.Error(1)
}

func (m *MockAuthenticator) Me(ctx context.Context) (*domain.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

type MockTokenStore struct {
	mock.Mock
}

func (m *MockTokenStore) SaveToken(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockTokenStore) LoadToken(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockTokenStore) ClearToken(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type MockRealtimeChannel struct {
	mock.Mock
}

func (m *MockRealtimeChannel) SetToken(token string) error {
	args := m.Called(token)
	return args.Error(0)
}

func (m *MockRealtimeChannel) Disconnect() {
	m.Called()
}

func signedToken(t *testing.T, ttl time.Duration) string {
	t.Helper()
	token, err := security.NewTokenService("test-secret", ttl).CreateForUser("alice@example.com")
	assert.NoError(t, err)
	return token
}

func TestLogin(t *testing.T) {
	auth := &MockAuthenticator{}
	store := &MockTokenStore{}
	channel := &MockRealtimeChannel{}
	svc := service.NewSessionService(auth, store, channel, nil)

	user := &domain.User{ID: 1, Username: "alice", Email: "alice@example.com"}
	auth.On("LoginToken", mock.Anything, "alice@example.com", "pw").Return("tok-123", nil)
	auth.On("Me", mock.Anything).Return(user, nil)
	store.On("SaveToken", mock.Anything, "tok-123").Return(nil)
	channel.On("SetToken", "tok-123").Return(nil)

	got, err := svc.Login(context.Background(), "alice@example.com", "pw")

	assert.NoError(t, err)
	assert.Equal(t, user, got)
	assert.Equal(t, "tok-123", svc.Token())
	assert.Equal(t, user, svc.CurrentUser())
	store.AssertCalled(t, "SaveToken", mock.Anything, "tok-123")
	channel.AssertCalled(t, "SetToken", "tok-123")
}

func TestLoginBadCredentials(t *testing.T) {
	auth := &MockAuthenticator{}
	svc := service.NewSessionService(auth, &MockTokenStore{}, &MockRealtimeChannel{}, nil)

	auth.On("LoginToken", mock.Anything, "alice@example.com", "wrong").
		Return("", domain.ErrUnauthorized)

	_, err := svc.Login(context.Background(), "alice@example.com", "wrong")

	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Empty(t, svc.Token())
	assert.Nil(t, svc.CurrentUser())
}

func TestLoginSurvivesPersistFailure(t *testing.T) {
	auth := &MockAuthenticator{}
	store := &MockTokenStore{}
	channel := &MockRealtimeChannel{}
	svc := service.NewSessionService(auth, store, channel, nil)

	user := &domain.User{ID: 1, Username: "alice"}
	auth.On("LoginToken", mock.Anything, mock.Anything, mock.Anything).Return("tok-123", nil)
	auth.On("Me", mock.Anything).Return(user, nil)
	store.On("SaveToken", mock.Anything, "tok-123").Return(errors.New("disk full"))
	channel.On("SetToken", "tok-123").Return(nil)

	got, err := svc.Login(context.Background(), "alice@example.com", "pw")

	assert.NoError(t, err)
	assert.Equal(t, user, got)
	assert.Equal(t, "tok-123", svc.Token())
}

func TestLoginSurvivesRealtimeFailure(t *testing.T) {
	auth := &MockAuthenticator{}
	store := &MockTokenStore{}
	channel := &MockRealtimeChannel{}
	svc := service.NewSessionService(auth, store, channel, nil)

	auth.On("LoginToken", mock.Anything, mock.Anything, mock.Anything).Return("tok-123", nil)
	auth.On("Me", mock.Anything).Return(&domain.User{ID: 1}, nil)
	store.On("SaveToken", mock.Anything, "tok-123").Return(nil)
	channel.On("SetToken", "tok-123").Return(errors.New("dial refused"))

	_, err := svc.Login(context.Background(), "alice@example.com", "pw")

	// REST-only sessions stay usable when the socket cannot open.
	assert.NoError(t, err)
	assert.Equal(t, "tok-123", svc.Token())
}

func TestRestore(t *testing.T) {
	token := signedToken(t, time.Hour)

	auth := &MockAuthenticator{}
	store := &MockTokenStore{}
	channel := &MockRealtimeChannel{}
	svc := service.NewSessionService(auth, store, channel, nil)

	user := &domain.User{ID: 1, Username: "alice"}
	store.On("LoadToken", mock.Anything).Return(token, nil)
	auth.On("Me", mock.Anything).Return(user, nil)
	channel.On("SetToken", token).Return(nil)

	got, err := svc.Restore(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, user, got)
	assert.Equal(t, token, svc.Token())
}

func TestRestoreNoStoredToken(t *testing.T) {
	store := &MockTokenStore{}
	svc := service.NewSessionService(&MockAuthenticator{}, store, &MockRealtimeChannel{}, nil)

	store.On("LoadToken", mock.Anything).Return("", domain.ErrNotFound)

	_, err := svc.Restore(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRestoreDiscardsExpiredToken(t *testing.T) {
	token := signedToken(t, -time.Hour)

	store := &MockTokenStore{}
	svc := service.NewSessionService(&MockAuthenticator{}, store, &MockRealtimeChannel{}, nil)

	store.On("LoadToken", mock.Anything).Return(token, nil)
	store.On("ClearToken", mock.Anything).Return(nil)

	_, err := svc.Restore(context.Background())

	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, svc.Token())
	store.AssertCalled(t, "ClearToken", mock.Anything)
}

func TestRestoreDiscardsMalformedToken(t *testing.T) {
	store := &MockTokenStore{}
	svc := service.NewSessionService(&MockAuthenticator{}, store, &MockRealtimeChannel{}, nil)

	store.On("LoadToken", mock.Anything).Return("not-a-jwt", nil)
	store.On("ClearToken", mock.Anything).Return(nil)

	_, err := svc.Restore(context.Background())

	assert.ErrorIs(t, err, domain.ErrNotFound)
	store.AssertCalled(t, "ClearToken", mock.Anything)
}

func TestRestoreClearsRejectedToken(t *testing.T) {
	token := signedToken(t, time.Hour)

	auth := &MockAuthenticator{}
	store := &MockTokenStore{}
	svc := service.NewSessionService(auth, store, &MockRealtimeChannel{}, nil)

	store.On("LoadToken", mock.Anything).Return(token, nil)
	store.On("ClearToken", mock.Anything).Return(nil)
	auth.On("Me", mock.Anything).Return(nil, domain.ErrUnauthorized)

	_, err := svc.Restore(context.Background())

	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Empty(t, svc.Token())
	store.AssertCalled(t, "ClearToken", mock.Anything)
}

func TestLogout(t *testing.T) {
	auth := &MockAuthenticator{}
	store := &MockTokenStore{}
	channel := &MockRealtimeChannel{}
	svc := service.NewSessionService(auth, store, channel, nil)

	auth.On("LoginToken", mock.Anything, mock.Anything, mock.Anything).Return("tok-123", nil)
	auth.On("Me", mock.Anything).Return(&domain.User{ID: 1}, nil)
	store.On("SaveToken", mock.Anything, mock.Anything).Return(nil)
	channel.On("SetToken", mock.Anything).Return(nil)
	channel.On("Disconnect").Return()
	store.On("ClearToken", mock.Anything).Return(nil)

	_, err := svc.Login(context.Background(), "alice@example.com", "pw")
	assert.NoError(t, err)

	assert.NoError(t, svc.Logout(context.Background()))
	assert.Empty(t, svc.Token())
	assert.Nil(t, svc.CurrentUser())
	channel.AssertCalled(t, "Disconnect")
}
