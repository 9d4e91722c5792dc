package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	secret := []byte("test-secret")
	token, err := GenerateToken(secret, "doc-1", "doc@example.com", time.Hour)
	require.NoError(t, err)

	id, err := ExtractIDFromToken(secret, token)
	require.NoError(t, err)
	assert.Equal(t, "doc-1", id)

	_, err = ExtractIDFromToken([]byte("other-secret"), token)
	assert.Error(t, err)
}

func TestExpiredToken(t *testing.T) {
	secret := []byte("test-secret")
	token, err := GenerateToken(secret, "doc-1", "", -time.Minute)
	require.NoError(t, err)

	_, err = ExtractIDFromToken(secret, token)
	assert.Error(t, err)
}

func TestGenerateTokenRequiresSecret(t *testing.T) {
	_, err := GenerateToken(nil, "doc-1", "", time.Hour)
	assert.Error(t, err)
}
