package model

import "github.com/google/uuid"

// Module is a node in the permission/navigation hierarchy. The parent
// relation over all modules must remain a forest; that invariant is enforced
// by the module service, the SET NULL policy below is only a backstop.
type Module struct {
	BaseModel
	Key            string     `gorm:"type:varchar(50);uniqueIndex;not null" json:"key" validate:"required,module_key"`
	Name           string     `gorm:"type:varchar(100);not null" json:"name" validate:"required"`
	ParentModuleID *uuid.UUID `gorm:"type:uuid;index" json:"parent_module_id"`
	Parent         *Module    `gorm:"foreignKey:ParentModuleID;constraint:OnDelete:SET NULL" json:"parent,omitempty"`
	Children       []Module   `gorm:"foreignKey:ParentModuleID" json:"children,omitempty"`
	OrderIndex     int        `gorm:"default:0" json:"order_index"`
	IsActive       bool       `gorm:"default:true" json:"is_active"`
	Route          string     `gorm:"type:varchar(255)" json:"route"`
}

func (Module) TableName() string {
	return "module_registry"
}

// ModuleTree is a module with its fully expanded descendants.
type ModuleTree struct {
	Module   Module        `json:"module"`
	Children []*ModuleTree `json:"children"`
}
