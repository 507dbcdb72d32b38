package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/coursex/internal/shared"
)

// TokenRepository persists bearer tokens in the auth_tokens table.
//
// The Get/Put/Delete methods report errors. Read/Save/Clear are the total,
// origin-bound variants used by the session manager: they never fail, and
// storage errors are logged and treated as "no token".
type TokenRepository struct {
	db     *sql.DB
	origin string
	logger *log.Logger
}

// NewTokenRepository creates a [TokenRepository] bound to origin (the API base URL).
func NewTokenRepository(db *sql.DB, origin string, logger *log.Logger) *TokenRepository {
	if logger == nil {
		logger = log.Default()
	}
	return &TokenRepository{db: db, origin: origin, logger: logger}
}

// Origin returns the service origin the repository is bound to.
func (r *TokenRepository) Origin() string { return r.origin }

// Get returns the token stored for origin.
func (r *TokenRepository) Get(origin string) (string, error) {
	var token string
	err := r.db.QueryRow(`SELECT token FROM auth_tokens WHERE origin = ?`, origin).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: no token for %s", shared.ErrNotFound, origin)
	}
	if err != nil {
		return "", fmt.Errorf("failed to query token: %w", err)
	}
	return token, nil
}

// Put stores token for origin, replacing any previous value.
func (r *TokenRepository) Put(origin, token string) error {
	query := `
		INSERT INTO auth_tokens (origin, token, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(origin) DO UPDATE SET token = excluded.token, updated_at = excluded.updated_at
	`
	if _, err := r.db.Exec(query, origin, token, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// Delete removes the token for origin. Deleting a missing token is not an error.
func (r *TokenRepository) Delete(origin string) error {
	if _, err := r.db.Exec(`DELETE FROM auth_tokens WHERE origin = ?`, origin); err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}

// Origins lists every origin with a stored token.
func (r *TokenRepository) Origins() ([]string, error) {
	rows, err := r.db.Query(`SELECT origin FROM auth_tokens ORDER BY origin`)
	if err != nil {
		return nil, fmt.Errorf("failed to query origins: %w", err)
	}
	defer rows.Close()

	var origins []string
	for rows.Next() {
		var origin string
		if err := rows.Scan(&origin); err != nil {
			return nil, fmt.Errorf("failed to scan origin: %w", err)
		}
		origins = append(origins, origin)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate origins: %w", err)
	}
	return origins, nil
}

// Read returns the token for the bound origin. Absence and storage failures both report false.
func (r *TokenRepository) Read() (string, bool) {
	token, err := r.Get(r.origin)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			r.logger.Warn("token store unreadable", "origin", r.origin, "error", err)
		}
		return "", false
	}
	return token, token != ""
}

// Save stores token for the bound origin.
func (r *TokenRepository) Save(token string) {
	if err := r.Put(r.origin, token); err != nil {
		r.logger.Warn("token store unwritable", "origin", r.origin, "error", err)
	}
}

// Clear removes the token for the bound origin.
func (r *TokenRepository) Clear() {
	if err := r.Delete(r.origin); err != nil {
		r.logger.Warn("token store unwritable", "origin", r.origin, "error", err)
	}
}
