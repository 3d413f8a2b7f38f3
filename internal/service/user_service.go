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

type UserService interface {
	Create(req *CreateUserRequest, actor audit.Actor) (*model.UserResponse, error)
	Update(id uuid.UUID, req *UpdateUserRequest, actor audit.Actor) (*model.UserResponse, error)
	// Deactivate is the default delete: it flips is_active off and keeps the
	// row. HardDelete removes the row and its role assignments.
	Deactivate(id uuid.UUID, actor audit.Actor) error
	HardDelete(id uuid.UUID, actor audit.Actor) error
	AssignRoles(id uuid.UUID, roleIDs []uuid.UUID, actor audit.Actor) (*model.UserResponse, error)
	GetByID(id uuid.UUID) (*model.UserResponse, error)
	List(filter repository.UserListFilter) ([]model.UserResponse, int64, error)
}

type CreateUserRequest struct {
	Username  string      `json:"username" validate:"required"`
	Email     string      `json:"email" validate:"required,email"`
	Password  string      `json:"password" validate:"required,min=6"`
	FirstName string      `json:"first_name"`
	LastName  string      `json:"last_name"`
	IsActive  *bool       `json:"is_active"`
	RoleIDs   []uuid.UUID `json:"role_ids"`
}

type UpdateUserRequest struct {
	Username  *string `json:"username"`
	Email     *string `json:"email" validate:"omitempty,email"`
	Password  *string `json:"password" validate:"omitempty,min=6"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	IsActive  *bool   `json:"is_active"`
}

type userService struct {
	db       *gorm.DB
	userRepo repository.UserRepository
	emitter  *audit.Emitter
	log      *logrus.Logger
}

func NewUserService(db *gorm.DB, userRepo repository.UserRepository, emitter *audit.Emitter, log *logrus.Logger) UserService {
	return &userService{db: db, userRepo: userRepo, emitter: emitter, log: log}
}

func (s *userService) Create(req *CreateUserRequest, actor audit.Actor) (*model.UserResponse, error) {
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		return nil, validationError(errs[0].FailedField, errs[0].Tag)
	}

	user := &model.User{
		Username:  req.Username,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		IsActive:  true,
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}
	if err := user.SetPassword(req.Password); err != nil {
		return nil, categorize(s.log, "user.create", err)
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		taken, err := exists(tx.Where("email = ?", req.Email).First(&model.User{}).Error)
		if err != nil {
			return err
		}
		if taken {
			return alreadyExists("email '%s' is already in use", req.Email)
		}

		taken, err = exists(tx.Where("username = ?", req.Username).First(&model.User{}).Error)
		if err != nil {
			return err
		}
		if taken {
			return alreadyExists("username '%s' is already in use", req.Username)
		}

		roles, err := findRoles(tx, req.RoleIDs)
		if err != nil {
			return err
		}

		if err := tx.Create(user).Error; err != nil {
			return err
		}

		assignedBy := actorUUID(actor)
		for _, role := range roles {
			userRole := &model.UserRole{
				UserID:     user.ID,
				RoleID:     role.ID,
				AssignedBy: assignedBy,
			}
			if err := tx.Create(userRole).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, categorize(s.log, "user.create", err)
	}

	s.emitter.Emit(model.AuditActionCreate, "User", user.ID, nil, userValues(user), actor)

	return s.GetByID(user.ID)
}

func (s *userService) Update(id uuid.UUID, req *UpdateUserRequest, actor audit.Actor) (*model.UserResponse, error) {
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		return nil, validationError(errs[0].FailedField, errs[0].Tag)
	}

	var oldValues map[string]interface{}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var existing model.User
		found, err := exists(tx.Where("id = ?", id).First(&existing).Error)
		if err != nil {
			return err
		}
		if !found {
			return notFound("user %s does not exist", id)
		}
		oldValues = userValues(&existing)

		updates := map[string]interface{}{}

		if req.Email != nil && *req.Email != existing.Email {
			taken, err := exists(tx.Where("email = ?", *req.Email).First(&model.User{}).Error)
			if err != nil {
				return err
			}
			if taken {
				return alreadyExists("email '%s' is already in use", *req.Email)
			}
			updates["email"] = *req.Email
		}

		if req.Username != nil && *req.Username != existing.Username {
			taken, err := exists(tx.Where("username = ?", *req.Username).First(&model.User{}).Error)
			if err != nil {
				return err
			}
			if taken {
				return alreadyExists("username '%s' is already in use", *req.Username)
			}
			updates["username"] = *req.Username
		}

		if req.Password != nil && *req.Password != "" {
			hashed := model.User{}
			if err := hashed.SetPassword(*req.Password); err != nil {
				return err
			}
			updates["password"] = hashed.Password
		}

		if req.FirstName != nil {
			updates["first_name"] = *req.FirstName
		}
		if req.LastName != nil {
			updates["last_name"] = *req.LastName
		}
		if req.IsActive != nil {
			updates["is_active"] = *req.IsActive
		}

		if len(updates) == 0 {
			return nil
		}
		return tx.Model(&existing).Updates(updates).Error
	})
	if err != nil {
		return nil, categorize(s.log, "user.update", err)
	}

	updated, err := s.userRepo.FindByID(id)
	if err != nil {
		return nil, categorize(s.log, "user.update", err)
	}

	s.emitter.Emit(model.AuditActionUpdate, "User", id, oldValues, userValues(updated), actor)

	response := updated.ToResponse()
	return &response, nil
}

func (s *userService) Deactivate(id uuid.UUID, actor audit.Actor) error {
	var oldValues map[string]interface{}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var user model.User
		found, err := exists(tx.Where("id = ?", id).First(&user).Error)
		if err != nil {
			return err
		}
		if !found {
			return notFound("user %s does not exist", id)
		}
		oldValues = userValues(&user)

		return tx.Model(&user).Update("is_active", false).Error
	})
	if err != nil {
		return categorize(s.log, "user.deactivate", err)
	}

	s.emitter.Emit(model.AuditActionDelete, "User", id, oldValues, nil, actor)
	return nil
}

func (s *userService) HardDelete(id uuid.UUID, actor audit.Actor) error {
	var oldValues map[string]interface{}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var user model.User
		found, err := exists(tx.Where("id = ?", id).First(&user).Error)
		if err != nil {
			return err
		}
		if !found {
			return notFound("user %s does not exist", id)
		}
		oldValues = userValues(&user)

		if err := tx.Where("user_id = ?", id).Delete(&model.UserRole{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.User{}, "id = ?", id).Error
	})
	if err != nil {
		return categorize(s.log, "user.hard_delete", err)
	}

	s.emitter.Emit(model.AuditActionDelete, "User", id, oldValues, nil, actor)
	return nil
}

// AssignRoles replaces the user's role set with the given one.
func (s *userService) AssignRoles(id uuid.UUID, roleIDs []uuid.UUID, actor audit.Actor) (*model.UserResponse, error) {
	var oldValues map[string]interface{}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var user model.User
		found, err := exists(tx.Where("id = ?", id).First(&user).Error)
		if err != nil {
			return err
		}
		if !found {
			return notFound("user %s does not exist", id)
		}
		oldValues = userValues(&user)

		roles, err := findRoles(tx, roleIDs)
		if err != nil {
			return err
		}

		if err := tx.Where("user_id = ?", id).Delete(&model.UserRole{}).Error; err != nil {
			return err
		}

		assignedBy := actorUUID(actor)
		for _, role := range roles {
			userRole := &model.UserRole{
				UserID:     id,
				RoleID:     role.ID,
				AssignedBy: assignedBy,
			}
			if err := tx.Create(userRole).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, categorize(s.log, "user.assign_roles", err)
	}

	updated, err := s.userRepo.FindByID(id)
	if err != nil {
		return nil, categorize(s.log, "user.assign_roles", err)
	}

	s.emitter.Emit(model.AuditActionUpdate, "User", id, oldValues, userValues(updated), actor)

	response := updated.ToResponse()
	return &response, nil
}

func (s *userService) GetByID(id uuid.UUID) (*model.UserResponse, error) {
	user, err := s.userRepo.FindByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("user %s does not exist", id)
	}
	if err != nil {
		return nil, categorize(s.log, "user.get", err)
	}
	response := user.ToResponse()
	return &response, nil
}

func (s *userService) List(filter repository.UserListFilter) ([]model.UserResponse, int64, error) {
	users, total, err := s.userRepo.FindAll(filter)
	if err != nil {
		return nil, 0, categorize(s.log, "user.list", err)
	}
	responses := make([]model.UserResponse, len(users))
	for i, user := range users {
		responses[i] = user.ToResponse()
	}
	return responses, total, nil
}

// findRoles loads all requested roles, failing with NotFound when any id does
// not resolve.
func findRoles(tx *gorm.DB, roleIDs []uuid.UUID) ([]model.Role, error) {
	if len(roleIDs) == 0 {
		return nil, nil
	}
	var roles []model.Role
	if err := tx.Where("id IN ?", roleIDs).Find(&roles).Error; err != nil {
		return nil, err
	}
	if len(roles) != len(roleIDs) {
		found := map[uuid.UUID]bool{}
		for _, r := range roles {
			found[r.ID] = true
		}
		for _, id := range roleIDs {
			if !found[id] {
				return nil, notFound("role %s does not exist", id)
			}
		}
	}
	return roles, nil
}

func actorUUID(actor audit.Actor) *uuid.UUID {
	id, err := uuid.Parse(actor.UserID)
	if err != nil {
		return nil
	}
	return &id
}

func userValues(u *model.User) map[string]interface{} {
	return map[string]interface{}{
		"username":   u.Username,
		"email":      u.Email,
		"first_name": u.FirstName,
		"last_name":  u.LastName,
		"is_active":  u.IsActive,
	}
}
