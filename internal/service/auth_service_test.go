package service

import (
	"testing"

	"go-admin-rbac/internal/audit"
	"go-admin-rbac/internal/repository"
	"go-admin-rbac/pkg/jwt"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthFixture(t *testing.T) (AuthService, UserService) {
	t.Helper()
	db := testDB(t)
	userRepo := repository.NewUserRepo(db)
	tokens := jwt.NewManager("test-secret", "test", 1)
	users := NewUserService(db, userRepo, testEmitter(db), testLogger())
	return NewAuthService(userRepo, tokens), users
}

func TestLogin(t *testing.T) {
	auth, users := newAuthFixture(t)

	_, err := users.Create(&CreateUserRequest{
		Username: "jdoe",
		Email:    "jdoe@example.com",
		Password: "secret123",
	}, audit.SystemActor())
	require.NoError(t, err)

	resp, err := auth.Login("jdoe@example.com", "secret123")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "jdoe", resp.User.Username)

	// The token round-trips back to the same user.
	validated, err := auth.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, validated.User.ID)
}

func TestLoginWrongPassword(t *testing.T) {
	auth, users := newAuthFixture(t)

	_, err := users.Create(&CreateUserRequest{
		Username: "jdoe",
		Email:    "jdoe@example.com",
		Password: "secret123",
	}, audit.SystemActor())
	require.NoError(t, err)

	_, err = auth.Login("jdoe@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = auth.Login("nobody@example.com", "secret123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginInactiveUser(t *testing.T) {
	auth, users := newAuthFixture(t)

	user, err := users.Create(&CreateUserRequest{
		Username: "jdoe",
		Email:    "jdoe@example.com",
		Password: "secret123",
	}, audit.SystemActor())
	require.NoError(t, err)

	resp, err := auth.Login("jdoe@example.com", "secret123")
	require.NoError(t, err)

	require.NoError(t, users.Deactivate(user.ID, audit.SystemActor()))

	// Deactivation blocks both fresh logins and existing tokens.
	_, err = auth.Login("jdoe@example.com", "secret123")
	assert.ErrorIs(t, err, ErrUserInactive)

	_, err = auth.ValidateToken(resp.Token)
	assert.ErrorIs(t, err, ErrUserInactive)
}

func TestValidateGarbageToken(t *testing.T) {
	auth, _ := newAuthFixture(t)

	_, err := auth.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, jwt.ErrInvalidToken)

	// A well-formed token for a deleted user is rejected too.
	tokens := jwt.NewManager("test-secret", "test", 1)
	stray, err := tokens.Generate(uuid.New(), "ghost@example.com", "ghost", nil)
	require.NoError(t, err)
	_, err = auth.ValidateToken(stray)
	assert.Error(t, err)
}
