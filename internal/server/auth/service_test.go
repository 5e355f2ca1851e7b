package auth

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/cinematch/cinematch/internal/models"
	"github.com/cinematch/cinematch/internal/server/password"
	"github.com/cinematch/cinematch/internal/server/storage"
	"github.com/cinematch/cinematch/internal/server/storage/sqlite"
	"github.com/cinematch/cinematch/internal/server/token"
)

// fakeStore — in-memory реализация storage.TxStore для тестов сервиса.
// Методы каталога фильмов сервису не нужны и возвращают пустые значения.
type fakeStore struct {
	users    map[string]*models.User
	creds    map[string]*models.Credential // email -> credential
	sessions map[string]*models.Session
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    make(map[string]*models.User),
		creds:    make(map[string]*models.Credential),
		sessions: make(map[string]*models.Session),
	}
}

func (f *fakeStore) CreateUser(_ context.Context, user *models.User) error {
	f.users[user.ID] = user
	return nil
}

func (f *fakeStore) GetUserByID(_ context.Context, userID string) (*models.User, error) {
	user, ok := f.users[userID]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	return user, nil
}

func (f *fakeStore) GetActiveUserByID(_ context.Context, userID string) (*models.User, error) {
	user, ok := f.users[userID]
	if !ok || !user.IsActive {
		return nil, storage.ErrUserNotFound
	}
	return user, nil
}

func (f *fakeStore) CreateCredential(_ context.Context, cred *models.Credential) error {
	if _, exists := f.creds[cred.Email]; exists {
		return storage.ErrEmailTaken
	}
	f.creds[cred.Email] = cred
	return nil
}

func (f *fakeStore) GetCredentialByEmail(_ context.Context, email string) (*models.Credential, error) {
	cred, ok := f.creds[email]
	if !ok {
		return nil, storage.ErrCredentialNotFound
	}
	return cred, nil
}

func (f *fakeStore) CreateSession(_ context.Context, session *models.Session) error {
	f.sessions[session.ID] = session
	return nil
}

func (f *fakeStore) SetRefreshHash(_ context.Context, sessionID, hash string) error {
	session, ok := f.sessions[sessionID]
	if !ok || !session.Valid {
		return storage.ErrSessionNotFound
	}
	session.RefreshTokenHash = &hash
	return nil
}

func (f *fakeStore) GetValidSession(_ context.Context, sessionID string) (*models.Session, error) {
	session, ok := f.sessions[sessionID]
	if !ok || !session.Valid {
		return nil, storage.ErrSessionNotFound
	}
	return session, nil
}

func (f *fakeStore) GetValidUserSession(_ context.Context, sessionID, userID string) (*models.Session, error) {
	session, ok := f.sessions[sessionID]
	if !ok || !session.Valid || session.UserID != userID {
		return nil, storage.ErrSessionNotFound
	}
	return session, nil
}

func (f *fakeStore) InvalidateSession(_ context.Context, sessionID string) error {
	if session, ok := f.sessions[sessionID]; ok {
		session.Valid = false
	}
	return nil
}

func (f *fakeStore) SearchMovies(context.Context, string, int, int) ([]*models.Movie, error) {
	return nil, nil
}
func (f *fakeStore) TrendingMovies(context.Context, int) ([]*models.MovieDetail, error) {
	return nil, nil
}
func (f *fakeStore) ListGenres(context.Context) ([]string, error) { return nil, nil }
func (f *fakeStore) TopRatedMovies(context.Context, []string, int, int) ([]*models.Movie, error) {
	return nil, nil
}
func (f *fakeStore) GetMovie(context.Context, int64) (*models.Movie, error) { return nil, nil }
func (f *fakeStore) GetMovieDetail(context.Context, int64) (*models.MovieDetail, error) {
	return nil, nil
}
func (f *fakeStore) GetMoviesByIDs(context.Context, []int64) ([]*models.Movie, error) {
	return nil, nil
}
func (f *fakeStore) GetUserRating(context.Context, string, int64) (*models.UserRating, error) {
	return nil, nil
}
func (f *fakeStore) UpsertRating(context.Context, *models.UserRating) error       { return nil }
func (f *fakeStore) UpdateMovieStats(context.Context, int64, float64, int64) error { return nil }

func (f *fakeStore) WithTx(_ context.Context, fn func(storage.Store) error) error {
	return fn(f)
}

var _ storage.TxStore = (*fakeStore)(nil)

const (
	testAccessTTL  = 15 * time.Minute
	testRefreshTTL = 168 * time.Hour
)

type serviceEnv struct {
	service *Service
	store   *fakeStore
	codec   *token.Codec
	now     time.Time
}

func newServiceEnv(t *testing.T) *serviceEnv {
	t.Helper()

	env := &serviceEnv{
		store: newFakeStore(),
		now:   time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
	}

	nowFn := func() time.Time { return env.now }

	env.codec = token.NewCodec("access-secret", "refresh-secret", testAccessTTL, testRefreshTTL).WithNow(nowFn)

	cookie := CookieConfig{
		Name:     "AuthToken",
		Path:     "/api/v1/auth",
		Secure:   false,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   testRefreshTTL,
	}

	logger := slog.New(slog.DiscardHandler)
	verifier := password.NewVerifierWithCost(bcrypt.MinCost)

	env.service = NewService(logger, env.store, env.codec, verifier, cookie).WithNow(nowFn)
	return env
}

func TestService_Register(t *testing.T) {
	ctx := context.Background()
	env := newServiceEnv(t)

	result, err := env.service.Register(ctx, "Alice", "alice@example.com", "password123", models.ClientMeta{})
	require.NoError(t, err)
	require.NotNil(t, result)

	claims, err := env.codec.Decode(result.AccessToken, token.KindAccess)
	require.NoError(t, err)

	// Пользователь, учетные данные и сессия сохранены
	user, err := env.store.GetActiveUserByID(ctx, claims.UserID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", user.Name)

	cred, err := env.store.GetCredentialByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, claims.UserID, cred.UserID)
	require.NotNil(t, cred.PasswordHash)
	assert.NotEqual(t, "password123", *cred.PasswordHash) // хранится только хеш

	session, err := env.store.GetValidSession(ctx, claims.SessionID)
	require.NoError(t, err)
	assert.NotNil(t, session.RefreshTokenHash)

	// Refresh cookie: http-only, ограничена auth-префиксом
	require.NotNil(t, result.RefreshCookie)
	assert.Equal(t, "AuthToken", result.RefreshCookie.Name)
	assert.True(t, result.RefreshCookie.HttpOnly)
	assert.Equal(t, "/api/v1/auth", result.RefreshCookie.Path)
	assert.Equal(t, int(testRefreshTTL.Seconds()), result.RefreshCookie.MaxAge)

	// Cookie содержит refresh токен, а не access
	_, err = env.codec.Decode(result.RefreshCookie.Value, token.KindRefresh)
	assert.NoError(t, err)
}

func TestService_Register_EmailTaken(t *testing.T) {
	ctx := context.Background()
	env := newServiceEnv(t)

	_, err := env.service.Register(ctx, "Alice", "taken@example.com", "password123", models.ClientMeta{})
	require.NoError(t, err)

	_, err = env.service.Register(ctx, "Mallory", "taken@example.com", "password456", models.ClientMeta{})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestService_Login(t *testing.T) {
	ctx := context.Background()
	env := newServiceEnv(t)

	_, err := env.service.Register(ctx, "Alice", "alice@example.com", "password123", models.ClientMeta{})
	require.NoError(t, err)

	result, err := env.service.Login(ctx, "alice@example.com", "password123", models.ClientMeta{})
	require.NoError(t, err)
	require.NotNil(t, result.RefreshCookie)

	claims, err := env.codec.Decode(result.AccessToken, token.KindAccess)
	require.NoError(t, err)

	_, err = env.store.GetValidSession(ctx, claims.SessionID)
	require.NoError(t, err)

	// Вторая сессия не вытесняет первую: по сессии на устройство
	assert.Len(t, env.store.sessions, 2)
}

// Все отказы аутентификации неразличимы снаружи
func TestService_Login_Unauthorized(t *testing.T) {
	ctx := context.Background()
	env := newServiceEnv(t)

	_, err := env.service.Register(ctx, "Alice", "alice@example.com", "password123", models.ClientMeta{})
	require.NoError(t, err)

	tests := []struct {
		setup    func()
		name     string
		email    string
		password string
	}{
		{name: "unknown email", email: "ghost@example.com", password: "password123"},
		{name: "wrong password", email: "alice@example.com", password: "wrong-password"},
		{
			name:     "deactivated user",
			email:    "alice@example.com",
			password: "password123",
			setup: func() {
				for _, u := range env.store.users {
					u.IsActive = false
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setup != nil {
				tt.setup()
			}
			_, err := env.service.Login(ctx, tt.email, tt.password, models.ClientMeta{})
			assert.ErrorIs(t, err, ErrUnauthorized)
		})
	}
}

// Вход паролем невозможен для учетной записи внешнего провайдера
func TestService_Login_ProviderWithoutPassword(t *testing.T) {
	ctx := context.Background()
	env := newServiceEnv(t)

	user := &models.User{ID: "u1", Name: "G", IsActive: true}
	env.store.users[user.ID] = user
	env.store.creds["g@example.com"] = &models.Credential{
		ID: "c1", UserID: "u1", Provider: models.ProviderGoogle, Email: "g@example.com",
	}

	_, err := env.service.Login(ctx, "g@example.com", "any-password", models.ClientMeta{})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestService_Logout(t *testing.T) {
	ctx := context.Background()
	env := newServiceEnv(t)

	result, err := env.service.Register(ctx, "Alice", "alice@example.com", "password123", models.ClientMeta{})
	require.NoError(t, err)

	claims, err := env.codec.Decode(result.AccessToken, token.KindAccess)
	require.NoError(t, err)

	clearCookie, err := env.service.Logout(ctx, claims.UserID, claims.SessionID)
	require.NoError(t, err)
	assert.Equal(t, -1, clearCookie.MaxAge)
	assert.Empty(t, clearCookie.Value)

	_, err = env.store.GetValidSession(ctx, claims.SessionID)
	assert.ErrorIs(t, err, storage.ErrSessionNotFound)

	// Сессия уже отозвана — повторный logout отклоняется
	_, err = env.service.Logout(ctx, claims.UserID, claims.SessionID)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestService_Logout_ForeignSession(t *testing.T) {
	ctx := context.Background()
	env := newServiceEnv(t)

	result, err := env.service.Register(ctx, "Alice", "alice@example.com", "password123", models.ClientMeta{})
	require.NoError(t, err)

	claims, err := env.codec.Decode(result.AccessToken, token.KindAccess)
	require.NoError(t, err)

	_, err = env.service.Logout(ctx, "other-user", claims.SessionID)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestService_Refresh_NoRotation(t *testing.T) {
	ctx := context.Background()
	env := newServiceEnv(t)

	result, err := env.service.Register(ctx, "Alice", "alice@example.com", "password123", models.ClientMeta{})
	require.NoError(t, err)
	refreshToken := result.RefreshCookie.Value

	// Прожито меньше 75% срока — ротации нет
	env.now = env.now.Add(testRefreshTTL / 2)

	refreshed, err := env.service.Refresh(ctx, refreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)
	assert.Nil(t, refreshed.RefreshCookie)

	// Прежний refresh токен продолжает действовать
	again, err := env.service.Refresh(ctx, refreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, again.AccessToken)
}

func TestService_Refresh_Rotation(t *testing.T) {
	ctx := context.Background()
	env := newServiceEnv(t)

	result, err := env.service.Register(ctx, "Alice", "alice@example.com", "password123", models.ClientMeta{})
	require.NoError(t, err)
	oldRefresh := result.RefreshCookie.Value

	// Ровно 75% срока — граница включительно, ротация происходит
	env.now = env.now.Add(time.Duration(float64(testRefreshTTL) * 0.75))

	refreshed, err := env.service.Refresh(ctx, oldRefresh)
	require.NoError(t, err)
	require.NotNil(t, refreshed.RefreshCookie)
	newRefresh := refreshed.RefreshCookie.Value
	assert.NotEqual(t, oldRefresh, newRefresh)

	// Прежний токен ротирован и больше не проходит проверку хеша
	_, err = env.service.Refresh(ctx, oldRefresh)
	assert.ErrorIs(t, err, ErrUnauthorized)

	// Новый токен работает
	_, err = env.service.Refresh(ctx, newRefresh)
	require.NoError(t, err)
}

func TestService_Refresh_JustBelowThreshold(t *testing.T) {
	ctx := context.Background()
	env := newServiceEnv(t)

	result, err := env.service.Register(ctx, "Alice", "alice@example.com", "password123", models.ClientMeta{})
	require.NoError(t, err)

	env.now = env.now.Add(time.Duration(float64(testRefreshTTL)*0.75) - time.Minute)

	refreshed, err := env.service.Refresh(ctx, result.RefreshCookie.Value)
	require.NoError(t, err)
	assert.Nil(t, refreshed.RefreshCookie)
}

func TestService_Refresh_Unauthorized(t *testing.T) {
	ctx := context.Background()
	env := newServiceEnv(t)

	result, err := env.service.Register(ctx, "Alice", "alice@example.com", "password123", models.ClientMeta{})
	require.NoError(t, err)
	refreshToken := result.RefreshCookie.Value

	claims, err := env.codec.Decode(result.AccessToken, token.KindAccess)
	require.NoError(t, err)

	t.Run("garbage token", func(t *testing.T) {
		_, err := env.service.Refresh(ctx, "not-a-token")
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("access token instead of refresh", func(t *testing.T) {
		_, err := env.service.Refresh(ctx, result.AccessToken)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("expired refresh token", func(t *testing.T) {
		env.now = env.now.Add(testRefreshTTL + time.Minute)
		defer func() { env.now = env.now.Add(-(testRefreshTTL + time.Minute)) }()

		_, err := env.service.Refresh(ctx, refreshToken)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("revoked session", func(t *testing.T) {
		require.NoError(t, env.store.InvalidateSession(ctx, claims.SessionID))

		_, err := env.service.Refresh(ctx, refreshToken)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})
}

// Сессия без хеша (обрыв до SetRefreshHash) не принимает никакой токен
func TestService_Refresh_MissingHash(t *testing.T) {
	ctx := context.Background()
	env := newServiceEnv(t)

	result, err := env.service.Register(ctx, "Alice", "alice@example.com", "password123", models.ClientMeta{})
	require.NoError(t, err)

	claims, err := env.codec.Decode(result.AccessToken, token.KindAccess)
	require.NoError(t, err)

	env.store.sessions[claims.SessionID].RefreshTokenHash = nil

	_, err = env.service.Refresh(ctx, result.RefreshCookie.Value)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

// Два параллельных refresh одного токена не должны портить сессию:
// после обеих попыток в строке ровно один хеш, и он соответствует
// ровно одному из выпущенных refresh токенов.
func TestService_Refresh_ConcurrentRotation(t *testing.T) {
	ctx := context.Background()

	store, err := sqlite.New(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	// Каждое обращение к часам сдвигает их на секунду вперед: так
	// параллельные ротации выпускают различимые токены, а не два
	// байтово одинаковых JWT с общим iat.
	var ticks atomic.Int64
	nowFn := func() time.Time {
		return base.Add(time.Duration(ticks.Add(1)) * time.Second)
	}

	codec := token.NewCodec("access-secret", "refresh-secret", testAccessTTL, testRefreshTTL).WithNow(nowFn)
	verifier := password.NewVerifierWithCost(bcrypt.MinCost)
	cookie := CookieConfig{
		Name:     "AuthToken",
		Path:     "/api/v1/auth",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   testRefreshTTL,
	}
	svc := NewService(slog.New(slog.DiscardHandler), store, codec, verifier, cookie).WithNow(nowFn)

	reg, err := svc.Register(ctx, "Alice", "alice@example.com", "password123", models.ClientMeta{})
	require.NoError(t, err)
	require.NotNil(t, reg.RefreshCookie)
	oldRefresh := reg.RefreshCookie.Value

	claims, err := codec.Decode(oldRefresh, token.KindRefresh)
	require.NoError(t, err)

	// Переводим часы за порог ротации
	base = base.Add(testRefreshTTL * 8 / 10)

	var wg sync.WaitGroup
	results := make([]*Result, 2)
	errs := make([]error, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.Refresh(ctx, oldRefresh)
		}(i)
	}
	wg.Wait()

	// Хотя бы один запрос ротирует токен; проигравший либо тоже успел
	// пройти проверку хеша, либо получил отказ после чужой ротации
	var rotated []string
	for i := range results {
		if errs[i] != nil {
			assert.ErrorIs(t, errs[i], ErrUnauthorized)
			continue
		}
		require.NotNil(t, results[i].RefreshCookie)
		rotated = append(rotated, results[i].RefreshCookie.Value)
	}
	require.NotEmpty(t, rotated)

	session, err := store.GetValidSession(ctx, claims.SessionID)
	require.NoError(t, err)
	require.NotNil(t, session.RefreshTokenHash)

	matches := 0
	for _, newRefresh := range rotated {
		if verifier.VerifyToken(newRefresh, *session.RefreshTokenHash) {
			matches++
		}
	}
	assert.Equal(t, 1, matches)

	// Старый токен ротацию не переживает
	assert.False(t, verifier.VerifyToken(oldRefresh, *session.RefreshTokenHash))
}
