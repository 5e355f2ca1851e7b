// Package auth реализует жизненный цикл аутентификации: регистрацию,
// вход, выход и ротацию refresh токенов. Сессия проходит два состояния:
// Active (valid=true) и Revoked (valid=false, терминальное).
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/cinematch/cinematch/internal/models"
	"github.com/cinematch/cinematch/internal/server/password"
	"github.com/cinematch/cinematch/internal/server/storage"
	"github.com/cinematch/cinematch/internal/server/token"
)

// rotationThreshold — доля прожитого времени жизни refresh токена,
// после которой при обновлении выпускается новый refresh токен
const rotationThreshold = 0.75

// Доменные ошибки. Инфраструктурные ошибки (сбои БД) возвращаются
// как есть и наружу не раскрываются.
var (
	// ErrEmailTaken — по email уже существует парольная учетная запись
	ErrEmailTaken = errors.New("email already taken")

	// ErrUnauthorized покрывает все отказы аутентификации без уточнения
	// причины: несуществующий email, неверный пароль, отозванная сессия,
	// просроченный или подмененный токен. Единое сообщение не дает
	// перечислять зарегистрированные адреса.
	ErrUnauthorized = errors.New("invalid credentials")
)

// CookieConfig описывает параметры refresh cookie
type CookieConfig struct {
	Name     string        // имя cookie
	Path     string        // префикс auth-эндпоинтов, cookie никуда больше не отправляется
	Secure   bool          // true в production
	SameSite http.SameSite // None в production, Lax в development
	MaxAge   time.Duration // срок жизни, совпадает с TTL refresh токена
}

// Result содержит итог успешной операции аутентификации.
// RefreshCookie равен nil, когда refresh токен не менялся.
type Result struct {
	AccessToken   string
	RefreshCookie *http.Cookie
}

// Service управляет регистрацией, входом, выходом и ротацией токенов
type Service struct {
	logger   *slog.Logger
	store    storage.TxStore
	codec    *token.Codec
	verifier *password.Verifier
	cookie   CookieConfig
	now      func() time.Time
}

// NewService создает новый auth-сервис
func NewService(
	logger *slog.Logger,
	store storage.TxStore,
	codec *token.Codec,
	verifier *password.Verifier,
	cookie CookieConfig,
) *Service {
	return &Service{
		logger:   logger,
		store:    store,
		codec:    codec,
		verifier: verifier,
		cookie:   cookie,
		now:      time.Now,
	}
}

// WithNow заменяет источник времени (для детерминированных тестов)
func (s *Service) WithNow(now func() time.Time) *Service {
	s.now = now
	return s
}

// Register регистрирует нового пользователя и создает первую сессию.
// Пользователь, учетные данные, сессия и хеш refresh токена фиксируются
// одной транзакцией: частичное состояние наружу не просачивается.
func (s *Service) Register(ctx context.Context, name, email, plainPassword string, meta models.ClientMeta) (*Result, error) {
	// Проверка занятости email до дорогого bcrypt; гонку закрывает
	// уникальный индекс внутри транзакции
	if _, err := s.store.GetCredentialByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, storage.ErrCredentialNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	passwordHash, err := s.verifier.Hash(plainPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now().UTC()
	user := &models.User{
		ID:        uuid.New().String(),
		Name:      name,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	cred := &models.Credential{
		ID:           uuid.New().String(),
		UserID:       user.ID,
		Provider:     models.ProviderEmail,
		Email:        email,
		PasswordHash: &passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	session := s.newSession(user.ID, meta)

	accessToken, refreshToken, refreshHash, err := s.issueTokenPair(user.ID, session.ID)
	if err != nil {
		return nil, err
	}

	err = s.store.WithTx(ctx, func(st storage.Store) error {
		if err := st.CreateUser(ctx, user); err != nil {
			return err
		}
		if err := st.CreateCredential(ctx, cred); err != nil {
			return err
		}
		if err := st.CreateSession(ctx, session); err != nil {
			return err
		}
		return st.SetRefreshHash(ctx, session.ID, refreshHash)
	})
	if err != nil {
		if errors.Is(err, storage.ErrEmailTaken) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to persist registration: %w", err)
	}

	s.logger.InfoContext(ctx, "user registered",
		slog.String("user_id", user.ID),
		slog.String("session_id", session.ID))

	return &Result{
		AccessToken:   accessToken,
		RefreshCookie: s.refreshCookie(refreshToken),
	}, nil
}

// Login аутентифицирует пользователя и создает новую сессию.
// Несколько одновременных сессий на пользователя допустимы — по одной
// на устройство.
func (s *Service) Login(ctx context.Context, email, plainPassword string, meta models.ClientMeta) (*Result, error) {
	cred, err := s.store.GetCredentialByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrCredentialNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}

	user, err := s.store.GetActiveUserByID(ctx, cred.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	// Хеш отсутствует у внешних провайдеров — паролем войти нельзя
	if cred.PasswordHash == nil || !s.verifier.Verify(plainPassword, *cred.PasswordHash) {
		return nil, ErrUnauthorized
	}

	session := s.newSession(user.ID, meta)

	accessToken, refreshToken, refreshHash, err := s.issueTokenPair(user.ID, session.ID)
	if err != nil {
		return nil, err
	}

	err = s.store.WithTx(ctx, func(st storage.Store) error {
		if err := st.CreateSession(ctx, session); err != nil {
			return err
		}
		return st.SetRefreshHash(ctx, session.ID, refreshHash)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	s.logger.InfoContext(ctx, "user logged in",
		slog.String("user_id", user.ID),
		slog.String("session_id", session.ID))

	return &Result{
		AccessToken:   accessToken,
		RefreshCookie: s.refreshCookie(refreshToken),
	}, nil
}

// Logout отзывает одну сессию пользователя. Остальные сессии того же
// пользователя не затрагиваются. Возвращает cookie, стирающую refresh
// токен на клиенте.
func (s *Service) Logout(ctx context.Context, userID, sessionID string) (*http.Cookie, error) {
	if _, err := s.store.GetValidUserSession(ctx, sessionID, userID); err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if err := s.store.InvalidateSession(ctx, sessionID); err != nil {
		return nil, fmt.Errorf("failed to invalidate session: %w", err)
	}

	s.logger.InfoContext(ctx, "session invalidated",
		slog.String("user_id", userID),
		slog.String("session_id", sessionID))

	return s.clearCookie(), nil
}

// Refresh проверяет refresh токен и выпускает новый access token.
// Если токен прожил не менее 75% срока, он ротируется: новый хеш
// замещает старый, прежний токен становится недействительным.
// Предъявление уже ротированного токена — признак кражи или повтора,
// такой запрос отклоняется по несовпадению хеша.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Result, error) {
	claims, err := s.codec.Decode(refreshToken, token.KindRefresh)
	if err != nil {
		return nil, ErrUnauthorized
	}

	session, err := s.store.GetValidSession(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if session.RefreshTokenHash == nil {
		return nil, ErrUnauthorized
	}

	if !s.verifier.VerifyToken(refreshToken, *session.RefreshTokenHash) {
		return nil, ErrUnauthorized
	}

	accessToken, err := s.codec.Issue(claims.UserID, claims.SessionID, token.KindAccess)
	if err != nil {
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}

	result := &Result{AccessToken: accessToken}

	if s.shouldRotate(claims) {
		newRefresh, err := s.codec.Issue(claims.UserID, claims.SessionID, token.KindRefresh)
		if err != nil {
			return nil, fmt.Errorf("failed to issue refresh token: %w", err)
		}

		newHash, err := s.verifier.HashToken(newRefresh)
		if err != nil {
			return nil, fmt.Errorf("failed to hash refresh token: %w", err)
		}

		// Одиночный UPDATE ... WHERE valid=1 — атомарная точка ротации.
		// При гонке двух refresh по одному токену обе проверки хеша могут
		// пройти, но строка в итоге содержит ровно один хеш: проигравшая
		// ротация просто перезаписывается.
		if err := s.store.SetRefreshHash(ctx, claims.SessionID, newHash); err != nil {
			if errors.Is(err, storage.ErrSessionNotFound) {
				return nil, ErrUnauthorized
			}
			return nil, fmt.Errorf("failed to rotate refresh hash: %w", err)
		}

		result.RefreshCookie = s.refreshCookie(newRefresh)

		s.logger.InfoContext(ctx, "refresh token rotated",
			slog.String("session_id", claims.SessionID))
	}

	return result, nil
}

// shouldRotate возвращает true, когда прошло >= 75% времени жизни токена
func (s *Service) shouldRotate(claims *token.Claims) bool {
	issuedAt := claims.IssuedAt.Time
	expiresAt := claims.ExpiresAt.Time

	lifetime := expiresAt.Sub(issuedAt).Seconds()
	if lifetime <= 0 {
		return false
	}

	elapsed := s.now().Sub(issuedAt).Seconds()
	return elapsed >= lifetime*rotationThreshold
}

// issueTokenPair выпускает пару токенов и bcrypt хеш refresh токена.
// В БД попадает только хеш — сырой refresh токен нигде не хранится.
func (s *Service) issueTokenPair(userID, sessionID string) (access, refresh, refreshHash string, err error) {
	access, err = s.codec.Issue(userID, sessionID, token.KindAccess)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to issue access token: %w", err)
	}

	refresh, err = s.codec.Issue(userID, sessionID, token.KindRefresh)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to issue refresh token: %w", err)
	}

	refreshHash, err = s.verifier.HashToken(refresh)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to hash refresh token: %w", err)
	}

	return access, refresh, refreshHash, nil
}

// newSession создает новую Active сессию без refresh хеша
func (s *Service) newSession(userID string, meta models.ClientMeta) *models.Session {
	now := s.now().UTC()
	return &models.Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		UserAgent: meta.UserAgent,
		IPAddress: meta.IPAddress,
		Valid:     true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// refreshCookie собирает http-only cookie с refresh токеном
func (s *Service) refreshCookie(refreshToken string) *http.Cookie {
	return &http.Cookie{
		Name:     s.cookie.Name,
		Value:    refreshToken,
		Path:     s.cookie.Path,
		MaxAge:   int(s.cookie.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   s.cookie.Secure,
		SameSite: s.cookie.SameSite,
	}
}

// clearCookie собирает cookie, удаляющую refresh токен на клиенте
func (s *Service) clearCookie() *http.Cookie {
	return &http.Cookie{
		Name:     s.cookie.Name,
		Value:    "",
		Path:     s.cookie.Path,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cookie.Secure,
		SameSite: s.cookie.SameSite,
	}
}
