package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	t.Parallel()

	m := NewTokenManager("test-secret", time.Hour)

	token, err := m.Generate(7, "wahyu")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := m.Validate(token)
	require.NoError(t, err)
	require.Equal(t, uint(7), claims.UserID)
	require.Equal(t, "wahyu", claims.Username)
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	t.Parallel()

	token, err := NewTokenManager("secret-a", time.Hour).Generate(1, "user")
	require.NoError(t, err)

	_, err = NewTokenManager("secret-b", time.Hour).Validate(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsExpired(t *testing.T) {
	t.Parallel()

	m := NewTokenManager("test-secret", -time.Minute)

	token, err := m.Generate(1, "user")
	require.NoError(t, err)

	_, err = m.Validate(token)
	require.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidateRejectsGarbage(t *testing.T) {
	t.Parallel()

	m := NewTokenManager("test-secret", time.Hour)

	_, err := m.Validate("not-a-token")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordHashAndCheck(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	require.NotEqual(t, "s3cret", hash)

	require.True(t, CheckPassword("s3cret", hash))
	require.False(t, CheckPassword("wrong", hash))
}
