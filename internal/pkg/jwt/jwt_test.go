package jwt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTService_SSETokenRoundTrip(t *testing.T) {
	svc := NewJWTService("test-secret", "15m")

	token, expiresIn, err := svc.GenerateSSEToken("user-1", "company-a")
	require.NoError(t, err)
	assert.Equal(t, 300, expiresIn)

	claims, err := svc.ValidateSSEToken(token)
	require.NoError(t, err)
	assert.Equal(t, SSEClaims{UserID: "user-1", CompanyID: "company-a"}, claims)
}

func TestJWTService_ValidateSSEToken_RejectsAccessToken(t *testing.T) {
	svc := NewJWTService("test-secret", "15m")

	token, _, err := svc.GenerateAccessToken("user-1", "company-a")
	require.NoError(t, err)

	_, err = svc.ValidateSSEToken(token)
	assert.Error(t, err)
}

func TestJWTService_ValidateSSEToken_RejectsOtherSecret(t *testing.T) {
	token, _, err := NewJWTService("secret-a", "15m").GenerateSSEToken("user-1", "company-a")
	require.NoError(t, err)

	_, err = NewJWTService("secret-b", "15m").ValidateSSEToken(token)
	assert.Error(t, err)
}

func TestJWTService_GenerateAccessToken_BadDuration(t *testing.T) {
	_, _, err := NewJWTService("test-secret", "soon").GenerateAccessToken("user-1", "company-a")
	assert.Error(t, err)
}
