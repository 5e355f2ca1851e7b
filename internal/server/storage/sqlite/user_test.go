package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinematch/cinematch/internal/models"
	"github.com/cinematch/cinematch/internal/server/storage"
)

func TestUserStorage_CreateUser(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	tests := []struct {
		user *models.User
		name string
	}{
		{
			name: "create active user",
			user: &models.User{
				ID:        uuid.New().String(),
				Name:      "Alice",
				IsActive:  true,
				CreatedAt: time.Now().UTC(),
				UpdatedAt: time.Now().UTC(),
			},
		},
		{
			name: "create user with profile picture",
			user: &models.User{
				ID:         uuid.New().String(),
				Name:       "Bob",
				ProfilePic: strPtr("https://example.com/bob.png"),
				IsActive:   true,
				CreatedAt:  time.Now().UTC(),
				UpdatedAt:  time.Now().UTC(),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, s.CreateUser(ctx, tt.user))

			retrieved, err := s.GetUserByID(ctx, tt.user.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.user.ID, retrieved.ID)
			assert.Equal(t, tt.user.Name, retrieved.Name)
			assert.Equal(t, tt.user.ProfilePic, retrieved.ProfilePic)
			assert.Equal(t, tt.user.IsActive, retrieved.IsActive)
		})
	}
}

func TestUserStorage_GetUserByID_NotFound(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	_, err := s.GetUserByID(ctx, "nonexistent")
	assert.ErrorIs(t, err, storage.ErrUserNotFound)
}

// Деактивированный пользователь не виден через GetActiveUserByID
func TestUserStorage_GetActiveUserByID(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	active := &models.User{
		ID:        uuid.New().String(),
		Name:      "Active",
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	inactive := &models.User{
		ID:        uuid.New().String(),
		Name:      "Inactive",
		IsActive:  false,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	require.NoError(t, s.CreateUser(ctx, active))
	require.NoError(t, s.CreateUser(ctx, inactive))

	got, err := s.GetActiveUserByID(ctx, active.ID)
	require.NoError(t, err)
	assert.Equal(t, active.ID, got.ID)

	_, err = s.GetActiveUserByID(ctx, inactive.ID)
	assert.ErrorIs(t, err, storage.ErrUserNotFound)

	// GetUserByID видит и деактивированного
	got, err = s.GetUserByID(ctx, inactive.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
}

func TestCredentialStorage_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	userID := createTestUser(t, ctx, s)

	cred := &models.Credential{
		ID:           uuid.New().String(),
		UserID:       userID,
		Provider:     models.ProviderEmail,
		Email:        "alice@example.com",
		PasswordHash: strPtr("$2a$10$hash"),
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	require.NoError(t, s.CreateCredential(ctx, cred))

	retrieved, err := s.GetCredentialByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, cred.ID, retrieved.ID)
	assert.Equal(t, cred.UserID, retrieved.UserID)
	assert.Equal(t, models.ProviderEmail, retrieved.Provider)
	require.NotNil(t, retrieved.PasswordHash)
	assert.Equal(t, "$2a$10$hash", *retrieved.PasswordHash)
}

func TestCredentialStorage_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	userID := createTestUser(t, ctx, s)

	cred := &models.Credential{
		ID:           uuid.New().String(),
		UserID:       userID,
		Provider:     models.ProviderEmail,
		Email:        "dup@example.com",
		PasswordHash: strPtr("hash1"),
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	require.NoError(t, s.CreateCredential(ctx, cred))

	second := &models.Credential{
		ID:           uuid.New().String(),
		UserID:       createTestUser(t, ctx, s),
		Provider:     models.ProviderEmail,
		Email:        "dup@example.com",
		PasswordHash: strPtr("hash2"),
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	err := s.CreateCredential(ctx, second)
	assert.ErrorIs(t, err, storage.ErrEmailTaken)
}

func TestCredentialStorage_GetByEmail_NotFound(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	_, err := s.GetCredentialByEmail(ctx, "missing@example.com")
	assert.ErrorIs(t, err, storage.ErrCredentialNotFound)
}

// Helper functions

func setupTestStorage(t *testing.T) (*Storage, func()) {
	ctx := context.Background()

	// Используем in-memory database для тестов
	storage, err := New(ctx, ":memory:")
	require.NoError(t, err)

	cleanup := func() {
		_ = storage.Close()
	}

	return storage, cleanup
}

func createTestUser(t *testing.T, ctx context.Context, s *Storage) string {
	userID := uuid.New().String()
	user := &models.User{
		ID:        userID,
		Name:      "user_" + userID[:8],
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	require.NoError(t, s.CreateUser(ctx, user))
	return userID
}

func strPtr(s string) *string {
	return &s
}
