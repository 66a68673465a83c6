package jwt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndVerify(t *testing.T) {
	m := NewManager("secret", 1)

	token, err := m.Generate(42, "alice", "admin")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "admin", claims.Role)
}

func TestVerify_WrongSecret(t *testing.T) {
	token, err := NewManager("secret-a", 1).Generate(1, "bob", "user")
	require.NoError(t, err)

	_, err = NewManager("secret-b", 1).Verify(token)
	assert.Error(t, err)
}

func TestVerify_Garbage(t *testing.T) {
	_, err := NewManager("secret", 1).Verify("not.a.token")
	assert.Error(t, err)
}
