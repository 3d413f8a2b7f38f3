package service

import (
	"errors"

	"go-admin-rbac/internal/audit"
	"go-admin-rbac/internal/model"
	"go-admin-rbac/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// PermissionService manages role grants and answers access questions against
// the module tree. Resolution is a pure read over committed state.
type PermissionService interface {
	Grant(req *GrantPermissionRequest, actor audit.Actor) (*model.RolePermission, error)
	Revoke(roleID, moduleID uuid.UUID, optionID *uuid.UUID, actor audit.Actor) error
	ListByRole(roleID uuid.UUID) ([]model.RolePermission, error)

	// Resolve answers "may this role perform optionID under moduleID?" —
	// with a nil optionID it answers for the module itself. Precedence:
	// exact option match > exact module match > nearest inheriting ancestor
	// > deny by default.
	Resolve(roleID, moduleID uuid.UUID, optionID *uuid.UUID) (bool, error)
	ResolveByKeys(roleName, moduleKey, optionKey string) (bool, error)
}

type GrantPermissionRequest struct {
	RoleID        uuid.UUID  `json:"role_id" validate:"uuid_required"`
	ModuleID      uuid.UUID  `json:"module_id" validate:"uuid_required"`
	OptionID      *uuid.UUID `json:"option_id"`
	AllowChildren bool       `json:"allow_children"`
	Granted       bool       `json:"granted"`
}

type permissionService struct {
	db       *gorm.DB
	permRepo repository.PermissionRepository
	roleRepo repository.RoleRepository
	modRepo  repository.ModuleRepository
	optRepo  repository.OptionRepository
	emitter  *audit.Emitter
	log      *logrus.Logger
}

func NewPermissionService(
	db *gorm.DB,
	permRepo repository.PermissionRepository,
	roleRepo repository.RoleRepository,
	modRepo repository.ModuleRepository,
	optRepo repository.OptionRepository,
	emitter *audit.Emitter,
	log *logrus.Logger,
) PermissionService {
	return &permissionService{
		db:       db,
		permRepo: permRepo,
		roleRepo: roleRepo,
		modRepo:  modRepo,
		optRepo:  optRepo,
		emitter:  emitter,
		log:      log,
	}
}

// Grant creates the permission row for a (role, module, option) triple, or
// updates the existing one: duplicates are never inserted, so resolution
// never has to pick between conflicting rows for the same target.
func (s *permissionService) Grant(req *GrantPermissionRequest, actor audit.Actor) (*model.RolePermission, error) {
	var (
		perm    *model.RolePermission
		updated bool
		old     map[string]interface{}
	)

	err := s.db.Transaction(func(tx *gorm.DB) error {
		found, err := exists(tx.Where("id = ?", req.RoleID).First(&model.Role{}).Error)
		if err != nil {
			return err
		}
		if !found {
			return notFound("role %s does not exist", req.RoleID)
		}

		found, err = exists(tx.Where("id = ?", req.ModuleID).First(&model.Module{}).Error)
		if err != nil {
			return err
		}
		if !found {
			return notFound("module %s does not exist", req.ModuleID)
		}

		if req.OptionID != nil {
			var option model.Option
			found, err = exists(tx.Where("id = ?", *req.OptionID).First(&option).Error)
			if err != nil {
				return err
			}
			if !found {
				return notFound("option %s does not exist", *req.OptionID)
			}
			if option.ModuleID != req.ModuleID {
				return invalidOperation("option '%s' does not belong to the target module", option.Key)
			}
		}

		query := tx.Where("role_id = ? AND module_id = ?", req.RoleID, req.ModuleID)
		if req.OptionID != nil {
			query = query.Where("option_id = ?", *req.OptionID)
		} else {
			query = query.Where("option_id IS NULL")
		}

		var existing model.RolePermission
		found, err = exists(query.First(&existing).Error)
		if err != nil {
			return err
		}

		if found {
			updated = true
			old = permissionValues(&existing)
			existing.AllowChildren = req.AllowChildren
			existing.Granted = req.Granted
			if err := tx.Save(&existing).Error; err != nil {
				return err
			}
			perm = &existing
			return nil
		}

		perm = &model.RolePermission{
			RoleID:        req.RoleID,
			ModuleID:      req.ModuleID,
			OptionID:      req.OptionID,
			AllowChildren: req.AllowChildren,
			Granted:       req.Granted,
		}
		return tx.Create(perm).Error
	})
	if err != nil {
		return nil, categorize(s.log, "permission.grant", err)
	}

	if updated {
		s.emitter.Emit(model.AuditActionUpdate, "RolePermission", perm.ID, old, permissionValues(perm), actor)
	} else {
		s.emitter.Emit(model.AuditActionCreate, "RolePermission", perm.ID, nil, permissionValues(perm), actor)
	}
	return perm, nil
}

func (s *permissionService) Revoke(roleID, moduleID uuid.UUID, optionID *uuid.UUID, actor audit.Actor) error {
	var revoked model.RolePermission

	err := s.db.Transaction(func(tx *gorm.DB) error {
		query := tx.Where("role_id = ? AND module_id = ?", roleID, moduleID)
		if optionID != nil {
			query = query.Where("option_id = ?", *optionID)
		} else {
			query = query.Where("option_id IS NULL")
		}

		found, err := exists(query.First(&revoked).Error)
		if err != nil {
			return err
		}
		if !found {
			return notFound("no permission exists for this role, module and option")
		}
		return tx.Delete(&model.RolePermission{}, "id = ?", revoked.ID).Error
	})
	if err != nil {
		return categorize(s.log, "permission.revoke", err)
	}

	s.emitter.Emit(model.AuditActionDelete, "RolePermission", revoked.ID, permissionValues(&revoked), nil, actor)
	return nil
}

func (s *permissionService) ListByRole(roleID uuid.UUID) ([]model.RolePermission, error) {
	if _, err := s.roleRepo.FindByID(roleID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("role %s does not exist", roleID)
		}
		return nil, categorize(s.log, "permission.list", err)
	}
	perms, err := s.permRepo.FindByRole(roleID)
	if err != nil {
		return nil, categorize(s.log, "permission.list", err)
	}
	return perms, nil
}

func (s *permissionService) Resolve(roleID, moduleID uuid.UUID, optionID *uuid.UUID) (bool, error) {
	module, err := s.modRepo.FindByID(moduleID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, notFound("module %s does not exist", moduleID)
	}
	if err != nil {
		return false, categorize(s.log, "permission.resolve", err)
	}

	// 1. Exact option match: most specific, always wins. AllowChildren only
	// matters for downward propagation, never for an exact hit.
	if optionID != nil {
		perm, err := s.permRepo.FindExact(roleID, moduleID, *optionID)
		if err != nil {
			return false, categorize(s.log, "permission.resolve", err)
		}
		if perm != nil {
			return perm.Granted, nil
		}
	}

	// 2. Module-level row on the target module. It answers a module-level
	// question outright; for an option-level question it only applies when
	// it propagates to children.
	perm, err := s.permRepo.FindModuleLevel(roleID, moduleID)
	if err != nil {
		return false, categorize(s.log, "permission.resolve", err)
	}
	if perm != nil {
		if optionID == nil || perm.AllowChildren {
			return perm.Granted, nil
		}
	}

	// 3. Walk up the ancestor chain; the nearest inheriting grant decides.
	// The visited guard tolerates malformed parent links; a missing ancestor
	// row simply ends the walk.
	visited := map[uuid.UUID]bool{module.ID: true}
	parentID := module.ParentModuleID
	for parentID != nil && !visited[*parentID] {
		visited[*parentID] = true

		perm, err := s.permRepo.FindInheritable(roleID, *parentID)
		if err != nil {
			return false, categorize(s.log, "permission.resolve", err)
		}
		if perm != nil {
			return perm.Granted, nil
		}

		ancestor, err := s.modRepo.FindByID(*parentID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			break
		}
		if err != nil {
			return false, categorize(s.log, "permission.resolve", err)
		}
		parentID = ancestor.ParentModuleID
	}

	// 4. Absence of a grant is not an allow.
	return false, nil
}

func (s *permissionService) ResolveByKeys(roleName, moduleKey, optionKey string) (bool, error) {
	role, err := s.roleRepo.FindByName(roleName)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, notFound("role '%s' does not exist", roleName)
	}
	if err != nil {
		return false, categorize(s.log, "permission.resolve", err)
	}

	module, err := s.modRepo.FindByKey(moduleKey)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, notFound("module with key '%s' does not exist", moduleKey)
	}
	if err != nil {
		return false, categorize(s.log, "permission.resolve", err)
	}

	var optionID *uuid.UUID
	if optionKey != "" {
		option, err := s.optRepo.FindByKey(optionKey)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, notFound("option with key '%s' does not exist", optionKey)
		}
		if err != nil {
			return false, categorize(s.log, "permission.resolve", err)
		}
		if option.ModuleID != module.ID {
			return false, invalidOperation("option '%s' does not belong to module '%s'", optionKey, moduleKey)
		}
		optionID = &option.ID
	}

	return s.Resolve(role.ID, module.ID, optionID)
}

func permissionValues(p *model.RolePermission) map[string]interface{} {
	values := map[string]interface{}{
		"role_id":        p.RoleID.String(),
		"module_id":      p.ModuleID.String(),
		"allow_children": p.AllowChildren,
		"granted":        p.Granted,
	}
	if p.OptionID != nil {
		values["option_id"] = p.OptionID.String()
	}
	return values
}
