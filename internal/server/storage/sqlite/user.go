package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/cinematch/cinematch/internal/models"
	"github.com/cinematch/cinematch/internal/server/storage"
)

// CreateUser creates a new user record
func (q *queries) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, name, profile_pic, is_active, email_verified, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := q.db.ExecContext(ctx, query,
		user.ID,
		user.Name,
		user.ProfilePic,
		user.IsActive,
		user.EmailVerified,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

// GetUserByID retrieves user by ID
func (q *queries) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	query := `
		SELECT id, name, profile_pic, is_active, email_verified, created_at, updated_at
		FROM users
		WHERE id = ?
	`

	return q.scanUser(q.db.QueryRowContext(ctx, query, userID))
}

// GetActiveUserByID retrieves user by ID, filtered to is_active=true
func (q *queries) GetActiveUserByID(ctx context.Context, userID string) (*models.User, error) {
	query := `
		SELECT id, name, profile_pic, is_active, email_verified, created_at, updated_at
		FROM users
		WHERE id = ? AND is_active = 1
	`

	return q.scanUser(q.db.QueryRowContext(ctx, query, userID))
}

// scanUser читает одну строку users
func (q *queries) scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	var profilePic sql.NullString

	err := row.Scan(
		&user.ID,
		&user.Name,
		&profilePic,
		&user.IsActive,
		&user.EmailVerified,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if profilePic.Valid {
		user.ProfilePic = &profilePic.String
	}

	return user, nil
}

// CreateCredential creates a new credential record
func (q *queries) CreateCredential(ctx context.Context, cred *models.Credential) error {
	query := `
		INSERT INTO credentials (id, user_id, provider, email, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := q.db.ExecContext(ctx, query,
		cred.ID,
		cred.UserID,
		cred.Provider,
		cred.Email,
		cred.PasswordHash,
		cred.CreatedAt,
		cred.UpdatedAt,
	)
	if err != nil {
		// Проверяем на duplicate email
		if strings.Contains(err.Error(), "UNIQUE constraint failed: credentials.email") {
			return storage.ErrEmailTaken
		}
		return fmt.Errorf("failed to insert credential: %w", err)
	}

	return nil
}

// GetCredentialByEmail retrieves the password-provider credential for email
func (q *queries) GetCredentialByEmail(ctx context.Context, email string) (*models.Credential, error) {
	query := `
		SELECT id, user_id, provider, email, password_hash, created_at, updated_at
		FROM credentials
		WHERE email = ? AND provider = ?
	`

	cred := &models.Credential{}
	var passwordHash sql.NullString

	err := q.db.QueryRowContext(ctx, query, email, models.ProviderEmail).Scan(
		&cred.ID,
		&cred.UserID,
		&cred.Provider,
		&cred.Email,
		&passwordHash,
		&cred.CreatedAt,
		&cred.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrCredentialNotFound
		}
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}

	if passwordHash.Valid {
		cred.PasswordHash = &passwordHash.String
	}

	return cred, nil
}
