package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/cinematch/cinematch/internal/models"
	"github.com/cinematch/cinematch/internal/server/storage"
	"github.com/cinematch/cinematch/internal/server/token"
)

// ctxKey — неэкспортируемый тип ключей контекста, чтобы чужие пакеты
// не могли подменить значения
type ctxKey int

const (
	userIDKey ctxKey = iota
	sessionIDKey
)

// GuardStore — read-часть хранилища, нужная guard'у на каждый запрос
type GuardStore interface {
	GetActiveUserByID(ctx context.Context, userID string) (*models.User, error)
	GetValidUserSession(ctx context.Context, sessionID, userID string) (*models.Session, error)
}

// AuthGuard создает middleware для проверки access токена.
// Подписи токена недостаточно: пользователь должен существовать и быть
// активным, а сессия из токена — действующей. Так logout вступает в силу
// немедленно, хотя уже выданный access токен криптографически валиден
// до собственного истечения.
func AuthGuard(logger *slog.Logger, codec *token.Codec, store GuardStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			tokenString, ok := bearerToken(r)
			if !ok {
				logger.WarnContext(ctx, "missing or malformed Authorization header")
				unauthorized(w)
				return
			}

			claims, err := codec.Decode(tokenString, token.KindAccess)
			if err != nil {
				logger.WarnContext(ctx, "invalid access token", slog.Any("error", err))
				unauthorized(w)
				return
			}

			// Пользователь должен существовать и быть активным
			if _, err := store.GetActiveUserByID(ctx, claims.UserID); err != nil {
				if !errors.Is(err, storage.ErrUserNotFound) {
					logger.ErrorContext(ctx, "failed to get user", slog.Any("error", err))
				}
				unauthorized(w)
				return
			}

			// Сессия должна быть действующей и принадлежать пользователю
			if _, err := store.GetValidUserSession(ctx, claims.SessionID, claims.UserID); err != nil {
				if !errors.Is(err, storage.ErrSessionNotFound) {
					logger.ErrorContext(ctx, "failed to get session", slog.Any("error", err))
				}
				unauthorized(w)
				return
			}

			ctx = context.WithValue(ctx, userIDKey, claims.UserID)
			ctx = context.WithValue(ctx, sessionIDKey, claims.SessionID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserID возвращает ID пользователя, положенный guard'ом в контекст
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok
}

// SessionID возвращает ID сессии, положенный guard'ом в контекст
func SessionID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionIDKey).(string)
	return id, ok
}

// bearerToken извлекает токен из заголовка Authorization.
// Ожидаемый формат: "Bearer <token>", схема регистронезависима.
func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}

	tokenString := strings.TrimSpace(parts[1])
	if tokenString == "" {
		return "", false
	}

	return tokenString, true
}

// unauthorized отправляет единый 401 ответ без уточнения причины
func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"Unauthorized","message":"invalid credentials"}`))
}
