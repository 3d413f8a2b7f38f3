package service

import (
	"errors"

	"go-admin-rbac/internal/audit"
	"go-admin-rbac/internal/model"
	"go-admin-rbac/internal/repository"
	"go-admin-rbac/pkg/validator"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type OptionService interface {
	Create(req *CreateOptionRequest, actor audit.Actor) (*model.Option, error)
	Update(id uuid.UUID, req *UpdateOptionRequest, actor audit.Actor) (*model.Option, error)
	Delete(id uuid.UUID, actor audit.Actor) error
	GetByID(id uuid.UUID) (*model.Option, error)
	List(filter repository.OptionListFilter) ([]model.Option, int64, error)
	ListByModule(moduleID uuid.UUID) ([]model.Option, error)
}

type CreateOptionRequest struct {
	ModuleID    uuid.UUID `json:"module_id" validate:"uuid_required"`
	Key         string    `json:"key" validate:"required,module_key"`
	Name        string    `json:"name" validate:"required"`
	Description string    `json:"description"`
}

type UpdateOptionRequest struct {
	ModuleID    *uuid.UUID `json:"module_id"`
	Key         *string    `json:"key" validate:"omitempty,module_key"`
	Name        *string    `json:"name"`
	Description *string    `json:"description"`
}

type optionService struct {
	db         *gorm.DB
	optionRepo repository.OptionRepository
	emitter    *audit.Emitter
	log        *logrus.Logger
}

func NewOptionService(db *gorm.DB, optionRepo repository.OptionRepository, emitter *audit.Emitter, log *logrus.Logger) OptionService {
	return &optionService{db: db, optionRepo: optionRepo, emitter: emitter, log: log}
}

func (s *optionService) Create(req *CreateOptionRequest, actor audit.Actor) (*model.Option, error) {
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		return nil, validationError(errs[0].FailedField, errs[0].Tag)
	}

	option := &model.Option{
		ModuleID:    req.ModuleID,
		Key:         req.Key,
		Name:        req.Name,
		Description: req.Description,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		taken, err := exists(tx.Where("key = ?", req.Key).First(&model.Option{}).Error)
		if err != nil {
			return err
		}
		if taken {
			return alreadyExists("option key '%s' is already in use", req.Key)
		}

		found, err := exists(tx.Where("id = ?", req.ModuleID).First(&model.Module{}).Error)
		if err != nil {
			return err
		}
		if !found {
			return notFound("module %s does not exist", req.ModuleID)
		}

		return tx.Create(option).Error
	})
	if err != nil {
		return nil, categorize(s.log, "option.create", err)
	}

	s.emitter.Emit(model.AuditActionCreate, "Option", option.ID, nil, optionValues(option), actor)

	created, err := s.optionRepo.FindByID(option.ID)
	if err != nil {
		return nil, categorize(s.log, "option.create", err)
	}
	return created, nil
}

func (s *optionService) Update(id uuid.UUID, req *UpdateOptionRequest, actor audit.Actor) (*model.Option, error) {
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		return nil, validationError(errs[0].FailedField, errs[0].Tag)
	}

	var oldValues map[string]interface{}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var existing model.Option
		found, err := exists(tx.Where("id = ?", id).First(&existing).Error)
		if err != nil {
			return err
		}
		if !found {
			return notFound("option %s does not exist", id)
		}
		oldValues = optionValues(&existing)

		updates := map[string]interface{}{}

		if req.Key != nil && *req.Key != existing.Key {
			taken, err := exists(tx.Where("key = ?", *req.Key).First(&model.Option{}).Error)
			if err != nil {
				return err
			}
			if taken {
				return alreadyExists("option key '%s' is already in use", *req.Key)
			}
			updates["key"] = *req.Key
		}

		if req.ModuleID != nil && *req.ModuleID != existing.ModuleID {
			found, err := exists(tx.Where("id = ?", *req.ModuleID).First(&model.Module{}).Error)
			if err != nil {
				return err
			}
			if !found {
				return notFound("module %s does not exist", *req.ModuleID)
			}
			updates["module_id"] = *req.ModuleID
		}

		if req.Name != nil {
			updates["name"] = *req.Name
		}
		if req.Description != nil {
			updates["description"] = *req.Description
		}

		if len(updates) == 0 {
			return nil
		}
		return tx.Model(&existing).Updates(updates).Error
	})
	if err != nil {
		return nil, categorize(s.log, "option.update", err)
	}

	option, err := s.optionRepo.FindByID(id)
	if err != nil {
		return nil, categorize(s.log, "option.update", err)
	}

	s.emitter.Emit(model.AuditActionUpdate, "Option", id, oldValues, optionValues(option), actor)
	return option, nil
}

func (s *optionService) Delete(id uuid.UUID, actor audit.Actor) error {
	var oldValues map[string]interface{}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var option model.Option
		found, err := exists(tx.Where("id = ?", id).First(&option).Error)
		if err != nil {
			return err
		}
		if !found {
			return notFound("option %s does not exist", id)
		}
		oldValues = optionValues(&option)

		if err := tx.Where("option_id = ?", id).Delete(&model.RolePermission{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Option{}, "id = ?", id).Error
	})
	if err != nil {
		return categorize(s.log, "option.delete", err)
	}

	s.emitter.Emit(model.AuditActionDelete, "Option", id, oldValues, nil, actor)
	return nil
}

func (s *optionService) GetByID(id uuid.UUID) (*model.Option, error) {
	option, err := s.optionRepo.FindByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("option %s does not exist", id)
	}
	if err != nil {
		return nil, categorize(s.log, "option.get", err)
	}
	return option, nil
}

func (s *optionService) List(filter repository.OptionListFilter) ([]model.Option, int64, error) {
	options, total, err := s.optionRepo.FindAll(filter)
	if err != nil {
		return nil, 0, categorize(s.log, "option.list", err)
	}
	return options, total, nil
}

func (s *optionService) ListByModule(moduleID uuid.UUID) ([]model.Option, error) {
	options, err := s.optionRepo.FindByModuleID(moduleID)
	if err != nil {
		return nil, categorize(s.log, "option.list", err)
	}
	return options, nil
}

func optionValues(o *model.Option) map[string]interface{} {
	return map[string]interface{}{
		"module_id":   o.ModuleID.String(),
		"key":         o.Key,
		"name":        o.Name,
		"description": o.Description,
	}
}
