package config_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cisse17/Projet-mobile-app/internal/config"
)

func TestDefaults(t *testing.T) {
	t.Setenv("SESSION_DB_PATH", filepath.Join(t.TempDir(), "session.db"))

	cfg, err := config.Load()

	assert.NoError(t, err)
	assert.Equal(t, "musician-finder", cfg.AppName)
	assert.Equal(t, "http://localhost:8000", cfg.APIBaseURL)
	assert.Equal(t, 30*time.Second, cfg.PingInterval)
	assert.Equal(t, 10*time.Second, cfg.PongTimeout)
	assert.Equal(t, time.Second, cfg.ReconnectBase)
	assert.Equal(t, 30*time.Second, cfg.ReconnectMax)
	assert.Equal(t, 5, cfg.MaxReconnects)
	assert.Equal(t, "0.0.0.0:8000", cfg.StubAddr())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SESSION_DB_PATH", filepath.Join(t.TempDir(), "session.db"))
	t.Setenv("API_BASE_URL", "https://api.example.com")
	t.Setenv("WS_PING_INTERVAL", "5s")
	t.Setenv("WS_MAX_RECONNECTS", "9")
	t.Setenv("DEBUG", "false")
	t.Setenv("STUB_PORT", "9100")

	cfg, err := config.Load()

	assert.NoError(t, err)
	assert.Equal(t, "https://api.example.com", cfg.APIBaseURL)
	assert.Equal(t, 5*time.Second, cfg.PingInterval)
	assert.Equal(t, 9, cfg.MaxReconnects)
	assert.False(t, cfg.Debug)
	assert.Equal(t, "0.0.0.0:9100", cfg.StubAddr())
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("SESSION_DB_PATH", filepath.Join(t.TempDir(), "session.db"))
	t.Setenv("WS_PING_INTERVAL", "soon")
	t.Setenv("WS_MAX_RECONNECTS", "many")

	cfg, err := config.Load()

	assert.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.PingInterval)
	assert.Equal(t, 5, cfg.MaxReconnects)
}

func TestNegativeMaxReconnectsRejected(t *testing.T) {
	t.Setenv("SESSION_DB_PATH", filepath.Join(t.TempDir(), "session.db"))
	t.Setenv("WS_MAX_RECONNECTS", "-1")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestSessionDirCreated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "session.db")
	t.Setenv("SESSION_DB_PATH", path)

	cfg, err := config.Load()

	assert.NoError(t, err)
	assert.Equal(t, path, cfg.SessionDBPath)
	assert.DirExists(t, filepath.Dir(path))
}
