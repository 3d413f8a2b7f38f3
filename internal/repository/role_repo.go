package repository

import (
	"go-admin-rbac/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RoleRepository interface {
	FindAll(opts ListOptions) ([]model.Role, int64, error)
	FindByID(id uuid.UUID) (*model.Role, error)
	FindByName(name string) (*model.Role, error)
	Create(role *model.Role) error
}

type roleRepo struct {
	db *gorm.DB
}

func NewRoleRepo(db *gorm.DB) RoleRepository {
	return &roleRepo{db: db}
}

func (r *roleRepo) FindAll(opts ListOptions) ([]model.Role, int64, error) {
	skip, take := opts.normalize()

	var total int64
	if err := r.db.Model(&model.Role{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var roles []model.Role
	err := r.db.
		Order("created_at DESC").
		Offset(skip).Limit(take).
		Find(&roles).Error
	if err != nil {
		return nil, 0, err
	}
	return roles, total, nil
}

func (r *roleRepo) FindByID(id uuid.UUID) (*model.Role, error) {
	var role model.Role
	if err := r.db.First(&role, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *roleRepo) FindByName(name string) (*model.Role, error) {
	var role model.Role
	if err := r.db.Where("name = ?", name).First(&role).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *roleRepo) Create(role *model.Role) error {
	return r.db.Create(role).Error
}
