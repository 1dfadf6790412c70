package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/cisse17/Projet-mobile-app/internal/domain"
	"github.com/cisse17/Projet-mobile-app/internal/security"
)

const tokenKey = "bearer_token"

// SessionStore persists the bearer token between sessions. When a vault is
// provided the token is encrypted at rest.
type SessionStore struct {
	db    *sql.DB
	vault *security.Vault
}

func NewSessionStore(db *sql.DB, vault *security.Vault) *SessionStore {
	return &SessionStore{db: db, vault: vault}
}

var _ domain.TokenStore = (*SessionStore)(nil)

func (s *SessionStore) SaveToken(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return domain.ErrInvalidToken
	}
	value := token
	if s.vault != nil {
		sealed, err := s.vault.Seal(token)
		if err != nil {
			return fmt.Errorf("seal token: %w", err)
		}
		value = sealed
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, tokenKey, value)
	if err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

func (s *SessionStore) LoadToken(ctx context.Context) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `
		SELECT value FROM session WHERE key = ?
	`, tokenKey).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("load token: %w", err)
	}
	if s.vault != nil {
		plain, err := s.vault.Open(value)
		if err != nil {
			// An undecryptable token (key rotation, corruption) is treated
			// as absent rather than fatal.
			return "", domain.ErrNotFound
		}
		return plain, nil
	}
	return value, nil
}

func (s *SessionStore) ClearToken(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM session WHERE key = ?`, tokenKey); err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	return nil
}
