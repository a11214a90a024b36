package usersController

import (
	"context"
	"path/filepath"
	"testing"

	"eyeshield/config"
	"eyeshield/internal/database"
	. "eyeshield/internal/models"
	"eyeshield/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestController(t *testing.T) *UsersController {
	t.Helper()
	db, err := database.New(config.Config{DatabaseDbPath: filepath.Join(t.TempDir(), "eyeshield.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	c := New(repositories.NewUser(db))
	c.cost = bcrypt.MinCost
	return c
}

func TestCreateAndAuthenticate(t *testing.T) {
	c := newTestController(t)
	ctx := context.Background()

	user, err := c.Create(ctx, "  drsmith ", "s3cret", RoleClinician)
	require.NoError(t, err)
	assert.Equal(t, "drsmith", user.Username)
	assert.NotEqual(t, "s3cret", user.PasswordHash)
	assert.NotEmpty(t, user.ID)

	authed, err := c.Authenticate(ctx, "drsmith", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, RoleClinician, authed.Role)

	tests := []struct {
		name     string
		username string
		password string
	}{
		{"wrong password", "drsmith", "wrong"},
		{"unknown user", "nobody", "s3cret"},
		{"empty password", "drsmith", ""},
		{"empty username", "", "s3cret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Authenticate(ctx, tt.username, tt.password)
			assert.ErrorIs(t, err, ErrInvalidCredentials)
		})
	}
}

func TestCreate_Rejects(t *testing.T) {
	c := newTestController(t)
	ctx := context.Background()

	_, err := c.Create(ctx, "drsmith", "s3cret", RoleClinician)
	require.NoError(t, err)

	tests := []struct {
		name     string
		username string
		password string
		role     Role
		wantErr  error
	}{
		{"duplicate", "drsmith", "other", RoleViewer, ErrUserExists},
		{"duplicate after trim", " drsmith ", "other", RoleViewer, ErrUserExists},
		{"bad role", "nurse", "pw", Role("superuser"), ErrInvalidRole},
		{"blank username", "  ", "pw", RoleViewer, ErrInvalidInput},
		{"blank password", "nurse", "", RoleViewer, ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Create(ctx, tt.username, tt.password, tt.role)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestListUpdateResetDelete(t *testing.T) {
	c := newTestController(t)
	ctx := context.Background()

	for _, name := range []string{"zoe", "amir"} {
		_, err := c.Create(ctx, name, "pw-"+name, RoleViewer)
		require.NoError(t, err)
	}

	users, err := c.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "amir", users[0].Username)
	assert.Equal(t, "zoe", users[1].Username)

	require.NoError(t, c.UpdateRole(ctx, "zoe", RoleAdmin))
	assert.ErrorIs(t, c.UpdateRole(ctx, "zoe", Role("root")), ErrInvalidRole)
	assert.ErrorIs(t, c.UpdateRole(ctx, "ghost", RoleAdmin), ErrUserNotFound)

	require.NoError(t, c.ResetPassword(ctx, "zoe", "fresh"))
	_, err = c.Authenticate(ctx, "zoe", "pw-zoe")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	zoe, err := c.Authenticate(ctx, "zoe", "fresh")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, zoe.Role, "reset keeps the role")
	assert.ErrorIs(t, c.ResetPassword(ctx, "ghost", "pw"), ErrUserNotFound)
	assert.ErrorIs(t, c.ResetPassword(ctx, "zoe", ""), ErrInvalidInput)

	require.NoError(t, c.Delete(ctx, "amir"))
	assert.ErrorIs(t, c.Delete(ctx, "amir"), ErrUserNotFound)

	users, err = c.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "zoe", users[0].Username)
}

func TestActivity(t *testing.T) {
	c := newTestController(t)
	ctx := context.Background()

	_, err := c.Create(ctx, "drsmith", "pw", RoleClinician)
	require.NoError(t, err)
	require.NoError(t, c.UpdateRole(ctx, "drsmith", RoleViewer))
	require.NoError(t, c.ResetPassword(ctx, "drsmith", "pw2"))
	_, err = c.Authenticate(ctx, "drsmith", "wrong")
	require.Error(t, err)
	require.NoError(t, c.Delete(ctx, "drsmith"))

	var actions []string
	for _, entry := range c.Activity() {
		assert.Equal(t, "drsmith", entry.User)
		assert.False(t, entry.Timestamp.IsZero())
		actions = append(actions, entry.Action)
	}
	assert.Equal(t, []string{
		"Created as clinician",
		"Role changed to viewer",
		"Password reset",
		"Deleted",
	}, actions)
}

func TestActivity_Bounded(t *testing.T) {
	c := New(nil)
	for i := 0; i < maxActivityEntries+10; i++ {
		c.record("u", "a")
	}
	assert.Len(t, c.Activity(), maxActivityEntries)
}
