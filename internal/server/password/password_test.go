package password

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifier_HashAndVerify(t *testing.T) {
	v := NewVerifierWithCost(bcrypt.MinCost)

	digest, err := v.Hash("correct horse battery staple")
	require.NoError(t, err)
	assert.NotEmpty(t, digest)

	assert.True(t, v.Verify("correct horse battery staple", digest))
	assert.False(t, v.Verify("wrong password", digest))
}

// Один и тот же пароль дает разные хеши из-за случайной соли
func TestVerifier_Hash_UniqueSalt(t *testing.T) {
	v := NewVerifierWithCost(bcrypt.MinCost)

	first, err := v.Hash("password123")
	require.NoError(t, err)
	second, err := v.Hash("password123")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, v.Verify("password123", first))
	assert.True(t, v.Verify("password123", second))
}

// Вход длиннее 72 байт усекается: различие за пределом не влияет на хеш
func TestVerifier_Hash_TruncatesLongInput(t *testing.T) {
	v := NewVerifierWithCost(bcrypt.MinCost)

	long := strings.Repeat("a", MaxInputBytes) + "tail-one"
	digest, err := v.Hash(long)
	require.NoError(t, err)

	assert.True(t, v.Verify(strings.Repeat("a", MaxInputBytes)+"tail-two", digest))
	assert.False(t, v.Verify(strings.Repeat("a", MaxInputBytes-1), digest))
}

func TestVerifier_Verify_MalformedDigest(t *testing.T) {
	v := NewVerifierWithCost(bcrypt.MinCost)

	assert.False(t, v.Verify("password", ""))
	assert.False(t, v.Verify("password", "not-a-bcrypt-digest"))
}

// Для токенов усечение недопустимо: два JWT одной сессии совпадают в
// первых 72 байтах, но их хеши не должны быть взаимозаменяемыми
func TestVerifier_HashToken_NoPrefixCollision(t *testing.T) {
	v := NewVerifierWithCost(bcrypt.MinCost)

	prefix := strings.Repeat("x", MaxInputBytes)
	tokenA := prefix + ".payload-a.signature-a"
	tokenB := prefix + ".payload-b.signature-b"

	digest, err := v.HashToken(tokenA)
	require.NoError(t, err)

	assert.True(t, v.VerifyToken(tokenA, digest))
	assert.False(t, v.VerifyToken(tokenB, digest))
}

func TestVerifier_HashToken_RoundTrip(t *testing.T) {
	v := NewVerifierWithCost(bcrypt.MinCost)

	digest, err := v.HashToken("eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiIxIn0.sig")
	require.NoError(t, err)

	assert.True(t, v.VerifyToken("eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiIxIn0.sig", digest))
	assert.False(t, v.VerifyToken("eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiIyIn0.sig", digest))
}
