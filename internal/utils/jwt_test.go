package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prperemyshlev/school-auth-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-that-is-at-least-32-characters-long"

func TestJWTManager_IssueAndValidate(t *testing.T) {
	clock := newFakeClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	manager := NewJWTManager(testSecret, time.Hour, clock)

	token, err := manager.Issue(domain.UserProfile{UserID: "user-1", Email: "a@example.com"})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := manager.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "a@example.com", claims.Email)
	assert.NotEmpty(t, claims.ID)
	assert.Equal(t, clock.Now().Unix(), claims.Iat)
	assert.Equal(t, clock.Now().Add(time.Hour).Unix(), claims.Exp)
}

func TestJWTManager_UniqueTokenIDs(t *testing.T) {
	clock := newFakeClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	manager := NewJWTManager(testSecret, time.Hour, clock)
	profile := domain.UserProfile{UserID: "user-1", Email: "a@example.com"}

	first, err := manager.Issue(profile)
	require.NoError(t, err)
	second, err := manager.Issue(profile)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestJWTManager_ExpiredToken(t *testing.T) {
	clock := newFakeClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	manager := NewJWTManager(testSecret, time.Minute, clock)

	token, err := manager.Issue(domain.UserProfile{UserID: "user-1"})
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)

	_, err = manager.Validate(token)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTokenExpired)
}

func TestJWTManager_InvalidTokens(t *testing.T) {
	clock := newFakeClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	manager := NewJWTManager(testSecret, time.Hour, clock)
	other := NewJWTManager("another-secret-key-that-is-at-least-32-chars", time.Hour, clock)

	foreign, err := other.Issue(domain.UserProfile{UserID: "user-1"})
	require.NoError(t, err)

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "user-1",
		"exp": clock.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "garbage", token: "invalid-token"},
		{name: "empty", token: ""},
		{name: "wrong secret", token: foreign},
		{name: "none algorithm", token: noneToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := manager.Validate(tt.token)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrTokenInvalid)
		})
	}
}

func TestJWTManager_IssueWithoutSubject(t *testing.T) {
	manager := NewJWTManager(testSecret, time.Hour, SystemClock{})

	_, err := manager.Issue(domain.UserProfile{Email: "a@example.com"})
	assert.Error(t, err)
}
