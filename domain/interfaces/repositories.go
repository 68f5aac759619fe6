package interfaces

import (
	"context"

	"companion/domain/entities"
)

// SessionRepository defines the interface for session persistence
type SessionRepository interface {
	// Create stores a new session
	Create(ctx context.Context, session *entities.Session) error

	// GetByToken retrieves a session by its token, nil if not found
	GetByToken(ctx context.Context, token string) (*entities.Session, error)

	// Delete removes a session by token
	Delete(ctx context.Context, token string) error

	// DeleteExpired removes all sessions past their expiry and returns the count
	DeleteExpired(ctx context.Context) (int64, error)
}
