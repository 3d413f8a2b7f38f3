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

type RoleService interface {
	Create(req *CreateRoleRequest, actor audit.Actor) (*model.Role, error)
	Update(id uuid.UUID, req *UpdateRoleRequest, actor audit.Actor) (*model.Role, error)
	Delete(id uuid.UUID, actor audit.Actor) error
	GetByID(id uuid.UUID) (*model.Role, error)
	List(opts repository.ListOptions) ([]model.Role, int64, error)
}

type CreateRoleRequest struct {
	Name        string `json:"name" validate:"required,role_name"`
	Description string `json:"description"`
}

type UpdateRoleRequest struct {
	Name        *string `json:"name" validate:"omitempty,role_name"`
	Description *string `json:"description"`
}

type roleService struct {
	db       *gorm.DB
	roleRepo repository.RoleRepository
	emitter  *audit.Emitter
	log      *logrus.Logger
}

func NewRoleService(db *gorm.DB, roleRepo repository.RoleRepository, emitter *audit.Emitter, log *logrus.Logger) RoleService {
	return &roleService{db: db, roleRepo: roleRepo, emitter: emitter, log: log}
}

func (s *roleService) Create(req *CreateRoleRequest, actor audit.Actor) (*model.Role, error) {
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		return nil, validationError(errs[0].FailedField, errs[0].Tag)
	}

	role := &model.Role{
		Name:        req.Name,
		Description: req.Description,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		taken, err := exists(tx.Where("name = ?", req.Name).First(&model.Role{}).Error)
		if err != nil {
			return err
		}
		if taken {
			return alreadyExists("role name '%s' is already in use", req.Name)
		}
		return tx.Create(role).Error
	})
	if err != nil {
		return nil, categorize(s.log, "role.create", err)
	}

	s.emitter.Emit(model.AuditActionCreate, "Role", role.ID, nil, roleValues(role), actor)
	return role, nil
}

func (s *roleService) Update(id uuid.UUID, req *UpdateRoleRequest, actor audit.Actor) (*model.Role, error) {
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		return nil, validationError(errs[0].FailedField, errs[0].Tag)
	}

	var oldValues map[string]interface{}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var existing model.Role
		found, err := exists(tx.Where("id = ?", id).First(&existing).Error)
		if err != nil {
			return err
		}
		if !found {
			return notFound("role %s does not exist", id)
		}
		oldValues = roleValues(&existing)

		updates := map[string]interface{}{}
		if req.Name != nil && *req.Name != existing.Name {
			taken, err := exists(tx.Where("name = ?", *req.Name).First(&model.Role{}).Error)
			if err != nil {
				return err
			}
			if taken {
				return alreadyExists("role name '%s' is already in use", *req.Name)
			}
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
		return nil, categorize(s.log, "role.update", err)
	}

	role, err := s.roleRepo.FindByID(id)
	if err != nil {
		return nil, categorize(s.log, "role.update", err)
	}

	s.emitter.Emit(model.AuditActionUpdate, "Role", id, oldValues, roleValues(role), actor)
	return role, nil
}

func (s *roleService) Delete(id uuid.UUID, actor audit.Actor) error {
	var oldValues map[string]interface{}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var role model.Role
		found, err := exists(tx.Where("id = ?", id).First(&role).Error)
		if err != nil {
			return err
		}
		if !found {
			return notFound("role %s does not exist", id)
		}
		oldValues = roleValues(&role)

		// Roles own their grants and assignments.
		if err := tx.Where("role_id = ?", id).Delete(&model.RolePermission{}).Error; err != nil {
			return err
		}
		if err := tx.Where("role_id = ?", id).Delete(&model.UserRole{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Role{}, "id = ?", id).Error
	})
	if err != nil {
		return categorize(s.log, "role.delete", err)
	}

	s.emitter.Emit(model.AuditActionDelete, "Role", id, oldValues, nil, actor)
	return nil
}

func (s *roleService) GetByID(id uuid.UUID) (*model.Role, error) {
	role, err := s.roleRepo.FindByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("role %s does not exist", id)
	}
	if err != nil {
		return nil, categorize(s.log, "role.get", err)
	}
	return role, nil
}

func (s *roleService) List(opts repository.ListOptions) ([]model.Role, int64, error) {
	roles, total, err := s.roleRepo.FindAll(opts)
	if err != nil {
		return nil, 0, categorize(s.log, "role.list", err)
	}
	return roles, total, nil
}

func roleValues(r *model.Role) map[string]interface{} {
	return map[string]interface{}{
		"name":        r.Name,
		"description": r.Description,
	}
}
