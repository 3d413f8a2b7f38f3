package repository

import (
	"go-admin-rbac/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ModuleListFilter narrows FindAll results. RootsOnly selects modules with no
// parent; ParentModuleID selects direct children of one module.
type ModuleListFilter struct {
	ListOptions
	IsActive       *bool
	ParentModuleID *uuid.UUID
	RootsOnly      bool
}

type ModuleRepository interface {
	FindByID(id uuid.UUID) (*model.Module, error)
	FindByKey(key string) (*model.Module, error)
	FindAll(filter ModuleListFilter) ([]model.Module, int64, error)
	FindRoots() ([]model.Module, error)
	FindChildren(parentID uuid.UUID) ([]model.Module, error)
	CountChildren(id uuid.UUID) (int64, error)
	Create(module *model.Module) error
}

type moduleRepo struct {
	db *gorm.DB
}

func NewModuleRepo(db *gorm.DB) ModuleRepository {
	return &moduleRepo{db: db}
}

func (r *moduleRepo) FindByID(id uuid.UUID) (*model.Module, error) {
	var module model.Module
	err := r.db.Preload("Parent").Preload("Children").First(&module, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &module, nil
}

func (r *moduleRepo) FindByKey(key string) (*model.Module, error) {
	var module model.Module
	err := r.db.Preload("Parent").Preload("Children").Where("key = ?", key).First(&module).Error
	if err != nil {
		return nil, err
	}
	return &module, nil
}

func (r *moduleRepo) FindAll(filter ModuleListFilter) ([]model.Module, int64, error) {
	skip, take := filter.normalize()

	query := r.db.Model(&model.Module{})
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	if filter.RootsOnly {
		query = query.Where("parent_module_id IS NULL")
	} else if filter.ParentModuleID != nil {
		query = query.Where("parent_module_id = ?", *filter.ParentModuleID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var modules []model.Module
	err := query.
		Preload("Parent").Preload("Children").
		Order("order_index ASC, created_at ASC").
		Offset(skip).Limit(take).
		Find(&modules).Error
	if err != nil {
		return nil, 0, err
	}
	return modules, total, nil
}

func (r *moduleRepo) FindRoots() ([]model.Module, error) {
	var modules []model.Module
	err := r.db.
		Preload("Children").
		Where("parent_module_id IS NULL").
		Order("order_index ASC, created_at ASC").
		Find(&modules).Error
	return modules, err
}

func (r *moduleRepo) FindChildren(parentID uuid.UUID) ([]model.Module, error) {
	var modules []model.Module
	err := r.db.
		Where("parent_module_id = ?", parentID).
		Order("order_index ASC, created_at ASC").
		Find(&modules).Error
	return modules, err
}

func (r *moduleRepo) CountChildren(id uuid.UUID) (int64, error) {
	var count int64
	err := r.db.Model(&model.Module{}).Where("parent_module_id = ?", id).Count(&count).Error
	return count, err
}

func (r *moduleRepo) Create(module *model.Module) error {
	return r.db.Create(module).Error
}
