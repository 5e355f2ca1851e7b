package storage

import (
	"context"

	"github.com/cinematch/cinematch/internal/models"
)

// SessionStorage defines interface for session persistence.
// Sessions are never deleted physically: logout and revocation only
// flip valid to false, which is terminal.
type SessionStorage interface {
	// CreateSession inserts a new session with valid=true and no refresh hash
	CreateSession(ctx context.Context, session *models.Session) error

	// SetRefreshHash atomically replaces the stored refresh token hash.
	// Only applies to a currently valid session; returns ErrSessionNotFound
	// if the session is missing or already invalidated.
	SetRefreshHash(ctx context.Context, sessionID, hash string) error

	// GetValidSession retrieves session by ID, filtered to valid=true
	// Returns ErrSessionNotFound otherwise
	GetValidSession(ctx context.Context, sessionID string) (*models.Session, error)

	// GetValidUserSession retrieves session by ID scoped to a user, valid=true only
	// Returns ErrSessionNotFound otherwise
	GetValidUserSession(ctx context.Context, sessionID, userID string) (*models.Session, error)

	// InvalidateSession sets valid=false. Idempotent: invalidating an
	// already invalid or missing session is not an error.
	InvalidateSession(ctx context.Context, sessionID string) error
}
