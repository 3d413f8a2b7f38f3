package model

import "github.com/google/uuid"

// Role represents a named permission group (e.g. ADMIN)
type Role struct {
	BaseModel
	Name        string           `gorm:"type:varchar(50);uniqueIndex;not null" json:"name" validate:"required,role_name"`
	Description string           `gorm:"type:varchar(255)" json:"description"`
	Permissions []RolePermission `gorm:"foreignKey:RoleID" json:"permissions,omitempty"`
}

func (Role) TableName() string {
	return "roles"
}

// RoleAdmin is seeded on first boot
const RoleAdmin = "ADMIN"

// RolePermission grants or explicitly denies a role's access to a module, or
// to a single option within it when OptionID is set. AllowChildren marks a
// module-level row as propagating to descendants that carry no more specific
// grant of their own.
//
// At most one row may exist per (role, module, option) triple. The composite
// index backs the option-level case; module-level rows (NULL option_id) are
// guarded inside the grant transaction because Postgres treats NULLs as
// distinct in unique indexes.
type RolePermission struct {
	BaseModel
	RoleID        uuid.UUID  `gorm:"type:uuid;not null;index;uniqueIndex:idx_role_module_option" json:"role_id"`
	ModuleID      uuid.UUID  `gorm:"type:uuid;not null;index;uniqueIndex:idx_role_module_option" json:"module_id"`
	OptionID      *uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_role_module_option" json:"option_id"`
	Role          *Role      `gorm:"foreignKey:RoleID;constraint:OnDelete:CASCADE" json:"role,omitempty"`
	Module        *Module    `gorm:"foreignKey:ModuleID;constraint:OnDelete:CASCADE" json:"module,omitempty"`
	Option        *Option    `gorm:"foreignKey:OptionID;constraint:OnDelete:CASCADE" json:"option,omitempty"`
	AllowChildren bool       `gorm:"not null;default:false" json:"allow_children"`
	Granted       bool       `gorm:"not null;default:false" json:"granted"`
}

func (RolePermission) TableName() string {
	return "role_permissions"
}
