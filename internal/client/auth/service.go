// Package auth управляет клиентской сессией: регистрацией, входом,
// хранением токенов и их фоновым обновлением
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/cinematch/cinematch/internal/client/api"
	"github.com/cinematch/cinematch/internal/client/storage"
	"github.com/cinematch/cinematch/internal/validation"
	pkgapi "github.com/cinematch/cinematch/pkg/api"
)

// ErrNotAuthenticated — локальной сессии нет, нужен login
var ErrNotAuthenticated = errors.New("not authenticated")

// expirySkew — запас до истечения access токена, после которого клиент
// обновляет его превентивно
const expirySkew = 30 * time.Second

// Service предоставляет функции авторизации клиента
type Service struct {
	apiClient *api.Client
	store     storage.AuthStorage
	now       func() time.Time
}

// NewService создает новый сервис авторизации
func NewService(apiClient *api.Client, store storage.AuthStorage) *Service {
	return &Service{
		apiClient: apiClient,
		store:     store,
		now:       time.Now,
	}
}

// Register регистрирует нового пользователя и сохраняет сессию
func (s *Service) Register(ctx context.Context, name, email, password string) error {
	if err := validation.ValidateEmail(email); err != nil {
		return fmt.Errorf("invalid email: %w", err)
	}
	if err := validation.ValidatePassword(password); err != nil {
		return fmt.Errorf("invalid password: %w", err)
	}

	result, err := s.apiClient.Register(ctx, pkgapi.RegisterRequest{
		Name:     name,
		Email:    email,
		Password: password,
	})
	if err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}

	return s.saveResult(ctx, name, result)
}

// Login выполняет аутентификацию пользователя и сохраняет сессию
func (s *Service) Login(ctx context.Context, email, password string) error {
	if err := validation.ValidateEmail(email); err != nil {
		return fmt.Errorf("invalid email: %w", err)
	}
	if err := validation.ValidatePassword(password); err != nil {
		return fmt.Errorf("invalid password: %w", err)
	}

	result, err := s.apiClient.Login(ctx, pkgapi.LoginRequest{
		Email:    email,
		Password: password,
	})
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	name := email
	if me, err := s.apiClient.Me(ctx, result.AccessToken); err == nil {
		name = me.Name
	}

	return s.saveResult(ctx, name, result)
}

// Logout выполняет выход из системы.
// Сервер уведомляется по возможности; локальная сессия удаляется всегда,
// даже если сервер недоступен.
func (s *Service) Logout(ctx context.Context) error {
	auth, err := s.store.GetAuth(ctx)
	if err != nil {
		slog.Debug("no auth data found during logout", "error", err)
	} else {
		if logoutErr := s.apiClient.Logout(ctx, auth.AccessToken); logoutErr != nil {
			slog.Warn("failed to logout on server", "error", logoutErr)
		}
	}

	if err := s.store.DeleteAuth(ctx); err != nil {
		if errors.Is(err, storage.ErrAuthNotFound) {
			return ErrNotAuthenticated
		}
		return fmt.Errorf("failed to delete local auth data: %w", err)
	}

	return nil
}

// Status возвращает сохраненные данные сессии
func (s *Service) Status(ctx context.Context) (*storage.AuthData, error) {
	auth, err := s.store.GetAuth(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrAuthNotFound) {
			return nil, ErrNotAuthenticated
		}
		return nil, fmt.Errorf("failed to get auth data: %w", err)
	}
	return auth, nil
}

// IsAuthenticated проверяет наличие живой сессии
func (s *Service) IsAuthenticated(ctx context.Context) (bool, error) {
	return s.store.IsAuthenticated(ctx)
}

// AccessToken возвращает действующий access token, при необходимости
// обновляя его по refresh токену
func (s *Service) AccessToken(ctx context.Context) (string, error) {
	auth, err := s.Status(ctx)
	if err != nil {
		return "", err
	}

	if s.now().Add(expirySkew).Unix() < auth.ExpiresAt {
		return auth.AccessToken, nil
	}

	if err := s.Refresh(ctx); err != nil {
		return "", err
	}

	auth, err = s.Status(ctx)
	if err != nil {
		return "", err
	}
	return auth.AccessToken, nil
}

// Refresh обменивает сохраненный refresh токен на новый access token
func (s *Service) Refresh(ctx context.Context) error {
	auth, err := s.Status(ctx)
	if err != nil {
		return err
	}
	if auth.RefreshToken == "" {
		return ErrNotAuthenticated
	}

	result, err := s.apiClient.Refresh(ctx, auth.RefreshToken)
	if err != nil {
		if errors.Is(err, api.ErrUnauthorized) {
			// Сессия отозвана на сервере, локальная копия больше не нужна
			_ = s.store.DeleteAuth(ctx)
			return ErrNotAuthenticated
		}
		return fmt.Errorf("refresh failed: %w", err)
	}

	auth.AccessToken = result.AccessToken
	auth.ExpiresAt = accessExpiry(result.AccessToken)
	if result.RefreshToken != "" {
		auth.RefreshToken = result.RefreshToken
	}

	if err := s.store.SaveAuth(ctx, auth); err != nil {
		return fmt.Errorf("failed to save auth data: %w", err)
	}

	return nil
}

// WithToken выполняет fn с действующим access token. При 401 сессия
// обновляется и fn повторяется один раз: истечение токена между
// проверкой и запросом не должно ронять команду.
func (s *Service) WithToken(ctx context.Context, fn func(token string) error) error {
	token, err := s.AccessToken(ctx)
	if err != nil {
		return err
	}

	err = fn(token)
	if !errors.Is(err, api.ErrUnauthorized) {
		return err
	}

	if refreshErr := s.Refresh(ctx); refreshErr != nil {
		return refreshErr
	}

	token, err = s.AccessToken(ctx)
	if err != nil {
		return err
	}
	return fn(token)
}

// saveResult сохраняет сессию после успешного register/login
func (s *Service) saveResult(ctx context.Context, name string, result *api.AuthResult) error {
	auth := &storage.AuthData{
		Name:         name,
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		ExpiresAt:    accessExpiry(result.AccessToken),
	}

	if err := s.store.SaveAuth(ctx, auth); err != nil {
		return fmt.Errorf("failed to save auth data: %w", err)
	}
	return nil
}

// accessExpiry достает exp из JWT без проверки подписи: клиенту
// подпись недоступна и не нужна, срок носит справочный характер
func accessExpiry(tokenString string) int64 {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return 0
	}
	if claims.ExpiresAt == nil {
		return 0
	}
	return claims.ExpiresAt.Unix()
}
