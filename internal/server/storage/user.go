package storage

import (
	"context"

	"github.com/cinematch/cinematch/internal/models"
)

// UserStorage defines interface for user record persistence
type UserStorage interface {
	// CreateUser creates a new user record
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByID retrieves user by ID regardless of active flag
	// Returns ErrUserNotFound if user doesn't exist
	GetUserByID(ctx context.Context, userID string) (*models.User, error)

	// GetActiveUserByID retrieves user by ID, filtered to is_active=true
	// Returns ErrUserNotFound if user doesn't exist or is deactivated
	GetActiveUserByID(ctx context.Context, userID string) (*models.User, error)
}

// CredentialStorage defines interface for credential persistence.
// At most one credential with provider=email may exist per email address.
type CredentialStorage interface {
	// CreateCredential creates a new credential record
	// Returns ErrEmailTaken on a duplicate email
	CreateCredential(ctx context.Context, cred *models.Credential) error

	// GetCredentialByEmail retrieves the password-provider credential for email
	// Returns ErrCredentialNotFound if no such credential exists
	GetCredentialByEmail(ctx context.Context, email string) (*models.Credential, error)
}
