package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	m, err := NewManager("s3cret", time.Hour, "wes-io-chat")
	require.NoError(t, err)

	token, err := m.GenerateAccessToken("user-1", "alice")
	require.NoError(t, err)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "alice", claims.Username)
}

func TestValidateRejectsForeignSecretAndExpiry(t *testing.T) {
	issuer, err := NewManager("one", time.Minute, "wes-io-chat")
	require.NoError(t, err)
	verifier, err := NewManager("two", time.Minute, "wes-io-chat")
	require.NoError(t, err)

	token, err := issuer.GenerateAccessToken("user-1", "alice")
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	issuer.now = func() time.Time { return time.Now().Add(time.Hour) }
	_, err = issuer.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)

	_, err = issuer.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewManagerRequiresSecret(t *testing.T) {
	_, err := NewManager("", time.Minute, "")
	assert.ErrorIs(t, err, ErrEmptySecret)
}
