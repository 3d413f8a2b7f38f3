package repository

import (
	"errors"

	"go-admin-rbac/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PermissionRepository serves the read side of permission resolution. Lookup
// methods return (nil, nil) when no row matches — absence of a grant is a
// normal resolver outcome, not an error.
type PermissionRepository interface {
	// FindExact matches a row where module AND option both equal the target.
	FindExact(roleID, moduleID, optionID uuid.UUID) (*model.RolePermission, error)
	// FindModuleLevel matches a row for the module itself (option IS NULL).
	FindModuleLevel(roleID, moduleID uuid.UUID) (*model.RolePermission, error)
	// FindInheritable matches a module-level row with allow_children set.
	FindInheritable(roleID, moduleID uuid.UUID) (*model.RolePermission, error)
	FindByRole(roleID uuid.UUID) ([]model.RolePermission, error)
}

type permissionRepo struct {
	db *gorm.DB
}

func NewPermissionRepo(db *gorm.DB) PermissionRepository {
	return &permissionRepo{db: db}
}

func (r *permissionRepo) first(query *gorm.DB) (*model.RolePermission, error) {
	var perm model.RolePermission
	err := query.Order("created_at DESC").First(&perm).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &perm, nil
}

func (r *permissionRepo) FindExact(roleID, moduleID, optionID uuid.UUID) (*model.RolePermission, error) {
	return r.first(r.db.Where(
		"role_id = ? AND module_id = ? AND option_id = ?",
		roleID, moduleID, optionID,
	))
}

func (r *permissionRepo) FindModuleLevel(roleID, moduleID uuid.UUID) (*model.RolePermission, error) {
	return r.first(r.db.Where(
		"role_id = ? AND module_id = ? AND option_id IS NULL",
		roleID, moduleID,
	))
}

func (r *permissionRepo) FindInheritable(roleID, moduleID uuid.UUID) (*model.RolePermission, error) {
	return r.first(r.db.Where(
		"role_id = ? AND module_id = ? AND option_id IS NULL AND allow_children = ?",
		roleID, moduleID, true,
	))
}

func (r *permissionRepo) FindByRole(roleID uuid.UUID) ([]model.RolePermission, error) {
	var perms []model.RolePermission
	err := r.db.
		Preload("Module").Preload("Option").
		Where("role_id = ?", roleID).
		Order("created_at ASC").
		Find(&perms).Error
	return perms, err
}
