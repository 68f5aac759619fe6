package repository

import (
	"context"
	"errors"
	"fmt"

	"companion/database"
	"companion/domain/entities"

	"github.com/jackc/pgx/v5"
)

// SessionRepository implements session persistence on postgres
type SessionRepository struct {
	db *database.DB
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *database.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create stores a new session
func (r *SessionRepository) Create(ctx context.Context, session *entities.Session) error {
	query := `
		INSERT INTO sessions (token, address, profile, access_token, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.Exec(ctx, query,
		session.Token,
		session.Address,
		session.Profile,
		session.AccessToken,
		session.CreatedAt,
		session.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

// GetByToken retrieves a session by its token, nil if not found
func (r *SessionRepository) GetByToken(ctx context.Context, token string) (*entities.Session, error) {
	query := `
		SELECT token, address, profile, access_token, created_at, expires_at
		FROM sessions
		WHERE token = $1
	`

	var session entities.Session
	err := r.db.QueryRow(ctx, query, token).Scan(
		&session.Token,
		&session.Address,
		&session.Profile,
		&session.AccessToken,
		&session.CreatedAt,
		&session.ExpiresAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return &session, nil
}

// Delete removes a session by token
func (r *SessionRepository) Delete(ctx context.Context, token string) error {
	query := `DELETE FROM sessions WHERE token = $1`

	if _, err := r.db.Exec(ctx, query, token); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	return nil
}

// DeleteExpired removes all sessions past their expiry and returns the count
func (r *SessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM sessions WHERE expires_at < NOW()`

	tag, err := r.db.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}

	return tag.RowsAffected(), nil
}
