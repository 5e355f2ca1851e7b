// Package storage определяет клиентское хранилище данных сессии
package storage

import (
	"context"
	"errors"
)

// ErrAuthNotFound — сохраненной сессии нет
var ErrAuthNotFound = errors.New("authentication data not found")

// AuthStorage defines interface for storing authentication data on client
type AuthStorage interface {
	// SaveAuth stores authentication data
	SaveAuth(ctx context.Context, auth *AuthData) error

	// GetAuth retrieves stored authentication data
	// Returns ErrAuthNotFound if no auth data exists
	GetAuth(ctx context.Context) (*AuthData, error)

	// DeleteAuth removes stored authentication data (logout)
	DeleteAuth(ctx context.Context) error

	// IsAuthenticated checks if valid authentication exists (not expired)
	IsAuthenticated(ctx context.Context) (bool, error)
}

// AuthData represents authentication information in storage.
// RefreshToken — значение http-only cookie сервера: CLI не браузер,
// cookie-jar заменяет локальное хранилище.
type AuthData struct {
	Name         string `json:"name"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"` // unix время истечения access токена
}
