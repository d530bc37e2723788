package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-with-at-least-32-chars!!"

func TestTokenRoundTrip(t *testing.T) {
	svc, err := NewTokenService(testSecret, time.Hour, "brooder-test")
	require.NoError(t, err)

	token, err := svc.GenerateAdminToken(123456789)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateAdminToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(123456789), claims.UserID)
	assert.NotEmpty(t, claims.TokenID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt, time.Minute)
}

func TestTokenRejectsShortSecret(t *testing.T) {
	_, err := NewTokenService("short", time.Hour, "brooder-test")
	assert.Error(t, err)
}

func TestTokenRejectsExpired(t *testing.T) {
	svc, err := NewTokenService(testSecret, -time.Minute, "brooder-test")
	require.NoError(t, err)

	token, err := svc.GenerateAdminToken(1)
	require.NoError(t, err)

	_, err = svc.ValidateAdminToken(token)
	assert.Error(t, err)
}

func TestTokenRejectsWrongKey(t *testing.T) {
	issuer, err := NewTokenService(testSecret, time.Hour, "brooder-test")
	require.NoError(t, err)
	verifier, err := NewTokenService("another-secret-key-with-32-chars-min!!!!", time.Hour, "brooder-test")
	require.NoError(t, err)

	token, err := issuer.GenerateAdminToken(1)
	require.NoError(t, err)

	_, err = verifier.ValidateAdminToken(token)
	assert.Error(t, err)
}

func TestTokenRejectsWrongIssuer(t *testing.T) {
	issuer, err := NewTokenService(testSecret, time.Hour, "someone-else")
	require.NoError(t, err)
	verifier, err := NewTokenService(testSecret, time.Hour, "brooder-test")
	require.NoError(t, err)

	token, err := issuer.GenerateAdminToken(1)
	require.NoError(t, err)

	_, err = verifier.ValidateAdminToken(token)
	assert.Error(t, err)
}

func TestTokenRejectsGarbage(t *testing.T) {
	svc, err := NewTokenService(testSecret, time.Hour, "brooder-test")
	require.NoError(t, err)

	_, err = svc.ValidateAdminToken("not.a.token")
	assert.Error(t, err)
}
