package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager() *JWTManager {
	return NewJWTManager(
		"test-access-secret-32-chars-long!!",
		"test-refresh-secret-32-chars-long!",
		15*time.Minute,
		7*24*time.Hour,
	)
}

func TestJWTManager_GenerateAndValidate(t *testing.T) {
	m := newTestManager()

	pair, tokenID, err := m.GenerateTokenPair("user-123", "a@b.com")
	require.NoError(t, err)
	require.NotEmpty(t, tokenID)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, int64(900), pair.ExpiresIn)

	claims, err := m.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, "a@b.com", claims.Email)
	assert.Equal(t, "sparkchat", claims.Issuer)

	refreshClaims, err := m.ValidateRefreshToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "user-123", refreshClaims.UserID)
	assert.Equal(t, tokenID, refreshClaims.TokenID)
}

func TestJWTManager_AccessTokenRejectedAsRefresh(t *testing.T) {
	m := newTestManager()

	pair, _, err := m.GenerateTokenPair("user-123", "a@b.com")
	require.NoError(t, err)

	// Different secrets, so cross-validation must fail
	_, err = m.ValidateRefreshToken(pair.AccessToken)
	assert.Error(t, err)
	_, err = m.ValidateAccessToken(pair.RefreshToken)
	assert.Error(t, err)
}

func TestJWTManager_ExpiredAccessToken(t *testing.T) {
	m := NewJWTManager(
		"test-access-secret-32-chars-long!!",
		"test-refresh-secret-32-chars-long!",
		-1*time.Minute,
		7*24*time.Hour,
	)

	pair, _, err := m.GenerateTokenPair("user-123", "a@b.com")
	require.NoError(t, err)

	_, err = m.ValidateAccessToken(pair.AccessToken)
	assert.Error(t, err)
}

func TestJWTManager_TamperedToken(t *testing.T) {
	m := newTestManager()

	pair, _, err := m.GenerateTokenPair("user-123", "a@b.com")
	require.NoError(t, err)

	tampered := pair.AccessToken[:len(pair.AccessToken)-4] + "XXXX"
	_, err = m.ValidateAccessToken(tampered)
	assert.Error(t, err)
}
