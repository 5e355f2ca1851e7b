// Package password отвечает за одностороннее хеширование паролей
// и их проверку. Тот же механизм используется для хеширования
// refresh токенов перед сохранением в БД.
package password

import (
	"crypto/sha256"
	"encoding/base64"

	"golang.org/x/crypto/bcrypt"
)

// MaxInputBytes — контрактный предел длины входа.
// bcrypt учитывает только первые 72 байта, поэтому вход всегда
// усекается до этой длины перед хешированием. Любая другая реализация
// обязана усекать так же, иначе сохраненные хеши перестанут проверяться.
const MaxInputBytes = 72

// Verifier хеширует и проверяет пароли через bcrypt
type Verifier struct {
	cost int
}

// NewVerifier создает Verifier со стандартной стоимостью bcrypt
func NewVerifier() *Verifier {
	return &Verifier{cost: bcrypt.DefaultCost}
}

// NewVerifierWithCost создает Verifier с заданной стоимостью.
// Меньшая стоимость допустима только в тестах.
func NewVerifierWithCost(cost int) *Verifier {
	return &Verifier{cost: cost}
}

// Hash возвращает bcrypt хеш входной строки.
// Соль генерируется автоматически, результат самодостаточен для проверки.
func (v *Verifier) Hash(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword(truncate(plaintext), v.cost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// Verify сравнивает plaintext с хешем за постоянное время.
// Никогда не возвращает ошибку: искаженный или пустой digest
// означает несовпадение, а не сбой.
func (v *Verifier) Verify(plaintext, digest string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(digest), truncate(plaintext))
	return err == nil
}

// HashToken хеширует длинный токен. JWT длиннее 72 байт, и прямое
// усечение оставило бы от двух токенов одной сессии одинаковый префикс.
// Поэтому токен сначала сжимается SHA-256 до фиксированной длины,
// затем хешируется bcrypt.
func (v *Verifier) HashToken(token string) (string, error) {
	return v.Hash(digestToken(token))
}

// VerifyToken сравнивает токен с хешем, полученным из HashToken
func (v *Verifier) VerifyToken(token, digest string) bool {
	return v.Verify(digestToken(token), digest)
}

func digestToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// truncate усекает вход до MaxInputBytes байт
func truncate(s string) []byte {
	b := []byte(s)
	if len(b) > MaxInputBytes {
		b = b[:MaxInputBytes]
	}
	return b
}
