// Package token кодирует и декодирует подписанные токены доступа.
// Access и refresh токены подписываются разными секретами: утечка
// одного секрета не компрометирует второй класс токенов, а токен
// одного вида никогда не проходит проверку как токен другого вида.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Kind определяет вид токена и связанный с ним секрет
type Kind int

const (
	// KindAccess — короткоживущий access token
	KindAccess Kind = iota
	// KindRefresh — долгоживущий refresh token
	KindRefresh
)

const issuer = "cinematch"

// Ошибки декодирования токена
var (
	// ErrTokenExpired — подпись корректна, но срок действия истек
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid — токен не прошел проверку подписи или формата
	ErrTokenInvalid = errors.New("invalid token")
)

// Claims представляет полезную нагрузку токена.
// Токен привязан не только к пользователю, но и к конкретной сессии:
// это позволяет отозвать одну сессию, не трогая остальные устройства.
type Claims struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

// Codec выпускает и проверяет подписанные токены двух видов
type Codec struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// NewCodec создает новый кодек токенов.
// Секреты должны быть криптографически случайными строками и не совпадать.
func NewCodec(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *Codec {
	return &Codec{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
}

// WithNow заменяет источник времени (для детерминированных тестов)
func (c *Codec) WithNow(now func() time.Time) *Codec {
	c.now = now
	return c
}

// AccessTTL возвращает время жизни access token
func (c *Codec) AccessTTL() time.Duration { return c.accessTTL }

// RefreshTTL возвращает время жизни refresh token
func (c *Codec) RefreshTTL() time.Duration { return c.refreshTTL }

// Issue выпускает подписанный токен вида kind для пары (user, session)
func (c *Codec) Issue(userID, sessionID string, kind Kind) (string, error) {
	now := c.now()

	claims := Claims{
		UserID:    userID,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl(kind))),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(c.secret(kind))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}

// Decode проверяет подпись и срок действия токена под секретом вида kind.
// Возвращает ErrTokenExpired для просроченного токена и ErrTokenInvalid
// для любого другого дефекта, включая токен чужого вида.
func (c *Codec) Decode(tokenString string, kind Kind) (*Claims, error) {
	tok, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return c.secret(kind), nil
		},
		jwt.WithTimeFunc(c.now),
		jwt.WithIssuer(issuer),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}

// PairMatches проверяет, что access и refresh токены выпущены для одной
// пары (user, session). Защищает от подмешивания токенов чужой сессии.
func (c *Codec) PairMatches(accessToken, refreshToken string) bool {
	access, err := c.Decode(accessToken, KindAccess)
	if err != nil {
		return false
	}

	refresh, err := c.Decode(refreshToken, KindRefresh)
	if err != nil {
		return false
	}

	return access.UserID == refresh.UserID && access.SessionID == refresh.SessionID
}

func (c *Codec) secret(kind Kind) []byte {
	if kind == KindRefresh {
		return c.refreshSecret
	}
	return c.accessSecret
}

func (c *Codec) ttl(kind Kind) time.Duration {
	if kind == KindRefresh {
		return c.refreshTTL
	}
	return c.accessTTL
}
