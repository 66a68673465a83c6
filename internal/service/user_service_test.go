package service_test

import (
	"testing"

	"dispatch-service/internal/jwt"
	"dispatch-service/internal/models"
	"dispatch-service/internal/repository"
	"dispatch-service/internal/service"
	"dispatch-service/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUsers(t *testing.T) (*service.UserService, *jwt.Manager) {
	t.Helper()
	db := testutil.SetupDB(t)
	manager := jwt.NewManager("test-secret", 1)
	return service.NewUserService(repository.NewUserRepository(db), manager, testutil.Logger()), manager
}

func TestRegisterAndLogin(t *testing.T) {
	users, manager := newUsers(t)

	user, err := users.Register("alice", "alice@example.com", "secret123", models.RoleUser)
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.NotEqual(t, "secret123", user.Password)

	token, loggedIn, err := users.Login("alice", "secret123")
	require.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)

	claims, err := manager.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, models.RoleUser, claims.Role)
}

func TestRegister_DuplicateUsername(t *testing.T) {
	users, _ := newUsers(t)

	_, err := users.Register("bob", "bob@example.com", "secret123", models.RoleUser)
	require.NoError(t, err)

	_, err = users.Register("bob", "other@example.com", "secret123", models.RoleUser)
	assert.ErrorIs(t, err, service.ErrUserExists)
}

func TestLogin_BadCredentials(t *testing.T) {
	users, _ := newUsers(t)

	_, err := users.Register("carol", "carol@example.com", "secret123", models.RoleAdmin)
	require.NoError(t, err)

	_, _, err = users.Login("carol", "wrongpass")
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)

	_, _, err = users.Login("nosuch", "secret123")
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)
}

func TestUserLifecycle(t *testing.T) {
	users, _ := newUsers(t)

	user, err := users.Register("dave", "dave@example.com", "secret123", models.RoleUser)
	require.NoError(t, err)

	user.Role = models.RoleAdmin
	require.NoError(t, users.Update(user))

	got, err := users.GetByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, got.Role)

	require.NoError(t, users.Delete(user.ID))
	_, err = users.GetByID(user.ID)
	assert.ErrorIs(t, err, service.ErrUserNotFound)
	assert.ErrorIs(t, users.Delete(user.ID), service.ErrUserNotFound)
}
