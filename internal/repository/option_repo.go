package repository

import (
	"go-admin-rbac/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OptionListFilter struct {
	ListOptions
	ModuleID *uuid.UUID
}

type OptionRepository interface {
	FindByID(id uuid.UUID) (*model.Option, error)
	FindByKey(key string) (*model.Option, error)
	FindByModuleID(moduleID uuid.UUID) ([]model.Option, error)
	FindAll(filter OptionListFilter) ([]model.Option, int64, error)
	Create(option *model.Option) error
}

type optionRepo struct {
	db *gorm.DB
}

func NewOptionRepo(db *gorm.DB) OptionRepository {
	return &optionRepo{db: db}
}

func (r *optionRepo) FindByID(id uuid.UUID) (*model.Option, error) {
	var option model.Option
	if err := r.db.Preload("Module").First(&option, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &option, nil
}

func (r *optionRepo) FindByKey(key string) (*model.Option, error) {
	var option model.Option
	if err := r.db.Preload("Module").Where("key = ?", key).First(&option).Error; err != nil {
		return nil, err
	}
	return &option, nil
}

func (r *optionRepo) FindByModuleID(moduleID uuid.UUID) ([]model.Option, error) {
	var options []model.Option
	err := r.db.Where("module_id = ?", moduleID).Order("created_at ASC").Find(&options).Error
	return options, err
}

func (r *optionRepo) FindAll(filter OptionListFilter) ([]model.Option, int64, error) {
	skip, take := filter.normalize()

	query := r.db.Model(&model.Option{})
	if filter.ModuleID != nil {
		query = query.Where("module_id = ?", *filter.ModuleID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var options []model.Option
	err := query.
		Preload("Module").
		Order("created_at DESC").
		Offset(skip).Limit(take).
		Find(&options).Error
	if err != nil {
		return nil, 0, err
	}
	return options, total, nil
}

func (r *optionRepo) Create(option *model.Option) error {
	return r.db.Create(option).Error
}
