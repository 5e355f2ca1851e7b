// Package handlers содержит HTTP обработчики сервера
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/cinematch/cinematch/internal/models"
	"github.com/cinematch/cinematch/internal/server/auth"
	"github.com/cinematch/cinematch/internal/server/middleware"
	"github.com/cinematch/cinematch/internal/validation"
	"github.com/cinematch/cinematch/pkg/api"
)

// authService описывает операции auth-сервиса, нужные обработчикам
type authService interface {
	Register(ctx context.Context, name, email, password string, meta models.ClientMeta) (*auth.Result, error)
	Login(ctx context.Context, email, password string, meta models.ClientMeta) (*auth.Result, error)
	Logout(ctx context.Context, userID, sessionID string) (*http.Cookie, error)
	Refresh(ctx context.Context, refreshToken string) (*auth.Result, error)
}

// AuthHandler обрабатывает запросы регистрации, входа, выхода и
// обновления токенов
type AuthHandler struct {
	logger     *slog.Logger
	service    authService
	cookieName string
}

// NewAuthHandler создает новый обработчик аутентификации
func NewAuthHandler(logger *slog.Logger, service authService, cookieName string) *AuthHandler {
	return &AuthHandler{
		logger:     logger,
		service:    service,
		cookieName: cookieName,
	}
}

// Register обрабатывает POST /api/v1/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req api.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(h.logger, w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := validation.ValidateStruct(req); err != nil {
		sendError(h.logger, w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.service.Register(r.Context(), req.Name, strings.ToLower(req.Email), req.Password, clientMeta(r))
	if err != nil {
		if errors.Is(err, auth.ErrEmailTaken) {
			sendError(h.logger, w, "email already registered", http.StatusConflict)
			return
		}
		h.logger.ErrorContext(r.Context(), "registration failed", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, result.RefreshCookie)
	sendJSON(h.logger, w, api.AuthResponse{
		Success:     true,
		AccessToken: result.AccessToken,
	}, http.StatusCreated)
}

// Login обрабатывает POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req api.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(h.logger, w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := validation.ValidateStruct(req); err != nil {
		sendError(h.logger, w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.service.Login(r.Context(), strings.ToLower(req.Email), req.Password, clientMeta(r))
	if err != nil {
		if errors.Is(err, auth.ErrUnauthorized) {
			sendError(h.logger, w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		h.logger.ErrorContext(r.Context(), "login failed", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, result.RefreshCookie)
	sendJSON(h.logger, w, api.AuthResponse{
		Success:     true,
		AccessToken: result.AccessToken,
	}, http.StatusOK)
}

// Logout обрабатывает POST /api/v1/auth/logout. Идентификаторы берутся
// из access токена, проверенного guard-слоем: отозвать можно только
// собственную текущую сессию.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		sendError(h.logger, w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	sessionID, ok := middleware.SessionID(r.Context())
	if !ok {
		sendError(h.logger, w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	clearCookie, err := h.service.Logout(r.Context(), userID, sessionID)
	if err != nil {
		if errors.Is(err, auth.ErrUnauthorized) {
			sendError(h.logger, w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		h.logger.ErrorContext(r.Context(), "logout failed", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, clearCookie)
	sendJSON(h.logger, w, api.AuthResponse{Success: true}, http.StatusOK)
}

// Refresh обрабатывает POST /api/v1/auth/refresh. Без cookie отвечает
// 204: у клиента нет сессии, и это не ошибка.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(h.cookieName)
	if err != nil || cookie.Value == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	result, err := h.service.Refresh(r.Context(), cookie.Value)
	if err != nil {
		if errors.Is(err, auth.ErrUnauthorized) {
			sendError(h.logger, w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		h.logger.ErrorContext(r.Context(), "refresh failed", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	// Cookie ставится только при ротации refresh токена
	if result.RefreshCookie != nil {
		http.SetCookie(w, result.RefreshCookie)
	}
	sendJSON(h.logger, w, api.AuthResponse{
		Success:     true,
		AccessToken: result.AccessToken,
	}, http.StatusOK)
}

// clientMeta извлекает user agent и IP клиента из запроса
func clientMeta(r *http.Request) models.ClientMeta {
	meta := models.ClientMeta{}

	if ua := r.UserAgent(); ua != "" {
		meta.UserAgent = &ua
	}

	host := r.RemoteAddr
	if h, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		host = h
	}
	if host != "" {
		meta.IPAddress = &host
	}

	return meta
}
