package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sebuszqo/FinanceLedger/internal/config"
)

func newTestJWTManager(t *testing.T, accessTTL, refreshTTL time.Duration) JWTManagerInterface {
	t.Helper()
	m, err := NewJWTManager(config.Auth{JWTSecret: "test-secret", AccessTokenTTL: accessTTL, RefreshTokenTTL: refreshTTL})
	require.NoError(t, err)
	return m
}

func TestNewJWTManager_RequiresSecret(t *testing.T) {
	_, err := NewJWTManager(config.Auth{})
	assert.ErrorIs(t, err, config.ErrMissingJWTSecret)
}

func TestAccessToken_RoundTrip(t *testing.T) {
	m := newTestJWTManager(t, time.Minute, time.Hour)

	token, err := m.GenerateAccessJWT("user-1")
	require.NoError(t, err)

	userID, err := m.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}

func TestAccessToken_Expired(t *testing.T) {
	m := newTestJWTManager(t, -time.Minute, time.Hour)

	token, err := m.GenerateAccessJWT("user-1")
	require.NoError(t, err)

	_, err = m.ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrExpiredJWTToken)
}

func TestAccessToken_WrongSecret(t *testing.T) {
	m := newTestJWTManager(t, time.Minute, time.Hour)
	other, err := NewJWTManager(config.Auth{JWTSecret: "other", AccessTokenTTL: time.Minute})
	require.NoError(t, err)

	token, err := other.GenerateAccessJWT("user-1")
	require.NoError(t, err)

	_, err = m.ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrInvalidJWTToken)
}

func TestTokens_AreNotInterchangeable(t *testing.T) {
	m := newTestJWTManager(t, time.Minute, time.Hour)

	refresh, err := m.GenerateRefreshJWT("user-1", "stamp")
	require.NoError(t, err)
	_, err = m.ValidateAccessToken(refresh)
	assert.ErrorIs(t, err, ErrInvalidJWTToken)

	access, err := m.GenerateAccessJWT("user-1")
	require.NoError(t, err)
	_, err = m.ExtractUserIDFromRefreshToken(access)
	assert.ErrorIs(t, err, ErrInvalidJWTToken)
}

func TestRefreshToken_SecurityStampRotationRevokes(t *testing.T) {
	m := newTestJWTManager(t, time.Minute, time.Hour)

	token, err := m.GenerateRefreshJWT("user-1", "stamp-a")
	require.NoError(t, err)

	userID, err := m.ExtractUserIDFromRefreshToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)

	assert.NoError(t, m.ValidateRefreshToken(token, "stamp-a"))
	assert.ErrorIs(t, m.ValidateRefreshToken(token, "stamp-b"), ErrInvalidJWTRefreshToken)
	assert.Equal(t, time.Hour, m.RefreshTTL())
}
