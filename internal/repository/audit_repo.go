package repository

import (
	"go-admin-rbac/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AuditListFilter struct {
	ListOptions
	EntityType string
	EntityID   *uuid.UUID
}

type AuditRepository interface {
	Create(entry *model.AuditLog) error
	FindByID(id uuid.UUID) (*model.AuditLog, error)
	FindAll(filter AuditListFilter) ([]model.AuditLog, int64, error)
	FindRecent(limit int) ([]model.AuditLog, error)
}

type auditRepo struct {
	db *gorm.DB
}

func NewAuditRepo(db *gorm.DB) AuditRepository {
	return &auditRepo{db: db}
}

func (r *auditRepo) Create(entry *model.AuditLog) error {
	return r.db.Create(entry).Error
}

func (r *auditRepo) FindByID(id uuid.UUID) (*model.AuditLog, error) {
	var entry model.AuditLog
	if err := r.db.First(&entry, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *auditRepo) FindAll(filter AuditListFilter) ([]model.AuditLog, int64, error) {
	skip, take := filter.normalize()

	query := r.db.Model(&model.AuditLog{})
	if filter.EntityType != "" {
		query = query.Where("entity_type = ?", filter.EntityType)
	}
	if filter.EntityID != nil {
		query = query.Where("entity_id = ?", *filter.EntityID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []model.AuditLog
	err := query.
		Order("created_at DESC").
		Offset(skip).Limit(take).
		Find(&entries).Error
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func (r *auditRepo) FindRecent(limit int) ([]model.AuditLog, error) {
	if limit <= 0 {
		limit = 10
	}
	var entries []model.AuditLog
	err := r.db.Order("created_at DESC").Limit(limit).Find(&entries).Error
	return entries, err
}
