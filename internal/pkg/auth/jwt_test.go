package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestService(exp time.Duration) *JWTService {
	return NewJWTService(JWTConfig{
		SecretKey:       "test-secret",
		AccessTokenExp:  exp,
		RefreshTokenExp: 24 * time.Hour,
		TokenIssuer:     "campusops-test",
	})
}

func TestGenerateAndValidate(t *testing.T) {
	svc := newTestService(time.Minute)

	pair, err := svc.GenerateTokenPair("uid-1", "a@x.edu", map[string]interface{}{"role": "admin"})
	require.NoError(t, err)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, 60, pair.ExpiresIn)

	claims, err := svc.ValidateToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "uid-1", claims.UID())
	assert.Equal(t, "a@x.edu", claims.Email)
	assert.Equal(t, "admin", claims.Custom["role"])
}

func TestValidateRejectsExpiredAndForeignTokens(t *testing.T) {
	expired := newTestService(-time.Minute)
	pair, err := expired.GenerateTokenPair("uid-1", "a@x.edu", nil)
	require.NoError(t, err)
	_, err = expired.ValidateToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrExpiredToken)

	other := NewJWTService(JWTConfig{SecretKey: "other", AccessTokenExp: time.Minute, TokenIssuer: "campusops-test"})
	pair, err = other.GenerateTokenPair("uid-1", "a@x.edu", nil)
	require.NoError(t, err)
	_, err = newTestService(time.Minute).ValidateToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = newTestService(time.Minute).ValidateToken("")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestExtractBearerToken(t *testing.T) {
	tok, err := ExtractBearerToken("Bearer abc.def")
	require.NoError(t, err)
	assert.Equal(t, "abc.def", tok)

	tok, err = ExtractBearerToken("abc.def")
	require.NoError(t, err)
	assert.Equal(t, "abc.def", tok)

	_, err = ExtractBearerToken("  ")
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPasswordWithCost("anit@09032003", bcrypt.MinCost)
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "anit@09032003"))
	assert.False(t, CheckPassword(hash, "wrong"))
}
