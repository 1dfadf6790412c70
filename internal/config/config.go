package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppName string
	Env     string

	// APIBaseURL is the REST base address; the realtime endpoint is derived
	// from it (http -> ws, https -> wss).
	APIBaseURL string

	PingInterval  time.Duration
	PongTimeout   time.Duration
	ReconnectBase time.Duration
	ReconnectMax  time.Duration
	MaxReconnects int

	// SessionDBPath locates the SQLite file holding the persisted session.
	SessionDBPath string
	// SessionKey encrypts the bearer token at rest.
	SessionKey string

	Debug bool

	// Dev stub server settings, only read by cmd/devserver.
	StubHost      string
	StubPort      int
	StubJWTSecret string
	StubTokenTTL  time.Duration
}

func Load() (*Config, error) {
	// A missing .env file is fine; real env vars still apply.
	_ = godotenv.Load()

	cfg := &Config{
		AppName:    getEnv("APP_NAME", "musician-finder"),
		Env:        getEnv("APP_ENV", "development"),
		APIBaseURL: getEnv("API_BASE_URL", "http://localhost:8000"),

		PingInterval:  getEnvAsDuration("WS_PING_INTERVAL", 30*time.Second),
		PongTimeout:   getEnvAsDuration("WS_PONG_TIMEOUT", 10*time.Second),
		ReconnectBase: getEnvAsDuration("WS_RECONNECT_BASE", time.Second),
		ReconnectMax:  getEnvAsDuration("WS_RECONNECT_MAX", 30*time.Second),
		MaxReconnects: getEnvAsInt("WS_MAX_RECONNECTS", 5),

		SessionDBPath: getEnv("SESSION_DB_PATH", defaultSessionPath()),
		SessionKey:    os.Getenv("SESSION_KEY"),

		Debug: getEnvAsBool("DEBUG", true),

		StubHost:      getEnv("STUB_HOST", "0.0.0.0"),
		StubPort:      getEnvAsInt("STUB_PORT", 8000),
		StubJWTSecret: getEnv("STUB_JWT_SECRET", "dev-only-secret"),
		StubTokenTTL:  getEnvAsDuration("STUB_TOKEN_TTL", 24*time.Hour),
	}

	if cfg.APIBaseURL == "" {
		return nil, fmt.Errorf("API_BASE_URL is required")
	}
	if cfg.MaxReconnects < 0 {
		return nil, fmt.Errorf("WS_MAX_RECONNECTS must not be negative")
	}

	if dir := filepath.Dir(cfg.SessionDBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("creating session dir: %w", err)
		}
	}

	return cfg, nil
}

func (c *Config) StubAddr() string {
	return fmt.Sprintf("%s:%d", c.StubHost, c.StubPort)
}

func defaultSessionPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "session.db"
	}
	return filepath.Join(home, ".musician-finder", "session.db")
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvAsInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvAsBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getEnvAsDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
