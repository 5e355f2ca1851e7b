package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/cinematch/cinematch/internal/models"
	"github.com/cinematch/cinematch/internal/server/middleware"
	"github.com/cinematch/cinematch/internal/server/storage"
	"github.com/cinematch/cinematch/pkg/api"
)

// userStore описывает доступ к профилям для обработчика пользователя
type userStore interface {
	GetActiveUserByID(ctx context.Context, userID string) (*models.User, error)
}

// UserHandler обрабатывает запросы профиля текущего пользователя
type UserHandler struct {
	logger *slog.Logger
	store  userStore
}

// NewUserHandler создает новый обработчик профиля
func NewUserHandler(logger *slog.Logger, store userStore) *UserHandler {
	return &UserHandler{
		logger: logger,
		store:  store,
	}
}

// Me обрабатывает GET /api/v1/users/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		sendError(h.logger, w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	user, err := h.store.GetActiveUserByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			sendError(h.logger, w, "user not found", http.StatusNotFound)
			return
		}
		h.logger.ErrorContext(r.Context(), "user query failed", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	sendJSON(h.logger, w, api.UserMe{
		Name:       user.Name,
		ProfilePic: user.ProfilePic,
	}, http.StatusOK)
}
