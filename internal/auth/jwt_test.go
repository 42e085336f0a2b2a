package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func testSigner() *Signer {
	return NewSigner("test-secret", "table-cache-api", "table-cache-clients", time.Hour)
}

func TestGenerateAndValidateToken(t *testing.T) {
	s := testSigner()
	token, err := s.GenerateToken("alice")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := s.ValidateToken(token)
	require.NoError(t, err)
	require.Equal(t, "alice", claims.Username)
	require.Equal(t, "alice", claims.Subject)
}

func TestValidateToken_Invalid(t *testing.T) {
	_, err := testSigner().ValidateToken("invalid.token")
	require.Error(t, err)
}

func TestValidateToken_WrongAudienceOrSecret(t *testing.T) {
	other := NewSigner("test-secret", "table-cache-api", "someone-else", time.Hour)
	token, err := other.GenerateToken("alice")
	require.NoError(t, err)
	_, err = testSigner().ValidateToken(token)
	require.Error(t, err)

	forged := NewSigner("other-secret", "table-cache-api", "table-cache-clients", time.Hour)
	token, err = forged.GenerateToken("alice")
	require.NoError(t, err)
	_, err = testSigner().ValidateToken(token)
	require.Error(t, err)
}

func TestCredentials_FromPassword(t *testing.T) {
	c, err := NewCredentials("admin", "", "hunter2")
	require.NoError(t, err)
	require.NoError(t, c.Verify("admin", "hunter2"))
	require.ErrorIs(t, c.Verify("admin", "wrong"), ErrInvalidCredentials)
	require.ErrorIs(t, c.Verify("root", "hunter2"), ErrInvalidCredentials)
}

func TestCredentials_FromHash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)

	c, err := NewCredentials("admin", string(hash), "ignored")
	require.NoError(t, err)
	require.NoError(t, c.Verify("admin", "s3cret"))
	require.Error(t, c.Verify("admin", "ignored"))

	_, err = NewCredentials("admin", "not-a-bcrypt-hash", "")
	require.Error(t, err)
	_, err = NewCredentials("admin", "", "")
	require.Error(t, err)
}
