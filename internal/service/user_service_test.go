package service

import (
	"testing"

	"go-admin-rbac/internal/audit"
	"go-admin-rbac/internal/model"
	"go-admin-rbac/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newUserService(t *testing.T) (UserService, *gorm.DB) {
	t.Helper()
	db := testDB(t)
	return NewUserService(db, repository.NewUserRepo(db), testEmitter(db), testLogger()), db
}

func seedRole(t *testing.T, db *gorm.DB, name string) model.Role {
	t.Helper()
	role := model.Role{Name: name}
	require.NoError(t, db.Create(&role).Error)
	return role
}

func TestUserCreateWithRoles(t *testing.T) {
	svc, db := newUserService(t)
	role := seedRole(t, db, "EDITOR")

	user, err := svc.Create(&CreateUserRequest{
		Username: "jdoe",
		Email:    "jdoe@example.com",
		Password: "secret123",
		RoleIDs:  []uuid.UUID{role.ID},
	}, audit.SystemActor())
	require.NoError(t, err)
	assert.Equal(t, "jdoe", user.Username)
	assert.True(t, user.IsActive)
	require.Len(t, user.Roles, 1)
	assert.Equal(t, "EDITOR", user.Roles[0].Name)
}

func TestUserCreateCollisions(t *testing.T) {
	svc, _ := newUserService(t)

	_, err := svc.Create(&CreateUserRequest{Username: "jdoe", Email: "jdoe@example.com", Password: "secret123"}, audit.SystemActor())
	require.NoError(t, err)

	_, err = svc.Create(&CreateUserRequest{Username: "other", Email: "jdoe@example.com", Password: "secret123"}, audit.SystemActor())
	assert.ErrorIs(t, err, ErrAlreadyExists)

	_, err = svc.Create(&CreateUserRequest{Username: "jdoe", Email: "new@example.com", Password: "secret123"}, audit.SystemActor())
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestUserCreateUnknownRoleRollsBack(t *testing.T) {
	svc, db := newUserService(t)

	_, err := svc.Create(&CreateUserRequest{
		Username: "jdoe",
		Email:    "jdoe@example.com",
		Password: "secret123",
		RoleIDs:  []uuid.UUID{uuid.New()},
	}, audit.SystemActor())
	assert.ErrorIs(t, err, ErrNotFound)

	// The whole creation rolled back with the failed assignment.
	var count int64
	require.NoError(t, db.Model(&model.User{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestUserUpdate(t *testing.T) {
	svc, _ := newUserService(t)

	user, err := svc.Create(&CreateUserRequest{Username: "jdoe", Email: "jdoe@example.com", Password: "secret123"}, audit.SystemActor())
	require.NoError(t, err)

	first := "Jane"
	email := "jane@example.com"
	updated, err := svc.Update(user.ID, &UpdateUserRequest{FirstName: &first, Email: &email}, audit.SystemActor())
	require.NoError(t, err)
	assert.Equal(t, "Jane", updated.FirstName)
	assert.Equal(t, "jane@example.com", updated.Email)
}

func TestUserDeactivateKeepsRow(t *testing.T) {
	svc, db := newUserService(t)

	user, err := svc.Create(&CreateUserRequest{Username: "jdoe", Email: "jdoe@example.com", Password: "secret123"}, audit.SystemActor())
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(user.ID, audit.SystemActor()))

	var stored model.User
	require.NoError(t, db.Where("id = ?", user.ID).First(&stored).Error)
	assert.False(t, stored.IsActive)
}

func TestUserHardDelete(t *testing.T) {
	svc, db := newUserService(t)
	role := seedRole(t, db, "EDITOR")

	user, err := svc.Create(&CreateUserRequest{
		Username: "jdoe",
		Email:    "jdoe@example.com",
		Password: "secret123",
		RoleIDs:  []uuid.UUID{role.ID},
	}, audit.SystemActor())
	require.NoError(t, err)

	require.NoError(t, svc.HardDelete(user.ID, audit.SystemActor()))

	var users, assignments int64
	require.NoError(t, db.Model(&model.User{}).Where("id = ?", user.ID).Count(&users).Error)
	require.NoError(t, db.Model(&model.UserRole{}).Where("user_id = ?", user.ID).Count(&assignments).Error)
	assert.Zero(t, users)
	assert.Zero(t, assignments)
}

func TestUserAssignRolesReplaces(t *testing.T) {
	svc, db := newUserService(t)
	editor := seedRole(t, db, "EDITOR")
	viewer := seedRole(t, db, "VIEWER")

	user, err := svc.Create(&CreateUserRequest{
		Username: "jdoe",
		Email:    "jdoe@example.com",
		Password: "secret123",
		RoleIDs:  []uuid.UUID{editor.ID},
	}, audit.SystemActor())
	require.NoError(t, err)

	updated, err := svc.AssignRoles(user.ID, []uuid.UUID{viewer.ID}, audit.SystemActor())
	require.NoError(t, err)
	require.Len(t, updated.Roles, 1)
	assert.Equal(t, "VIEWER", updated.Roles[0].Name)

	_, err = svc.AssignRoles(user.ID, []uuid.UUID{uuid.New()}, audit.SystemActor())
	assert.ErrorIs(t, err, ErrNotFound)

	// The failed replacement left the previous set intact.
	reloaded, err := svc.GetByID(user.ID)
	require.NoError(t, err)
	require.Len(t, reloaded.Roles, 1)
	assert.Equal(t, "VIEWER", reloaded.Roles[0].Name)
}
