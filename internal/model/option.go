package model

import "github.com/google/uuid"

// Option is a leaf action scoped to exactly one module (e.g. "create",
// "delete" within that module). Options are removed together with their
// owning module.
type Option struct {
	BaseModel
	ModuleID    uuid.UUID `gorm:"type:uuid;not null;index" json:"module_id" validate:"uuid_required"`
	Module      *Module   `gorm:"foreignKey:ModuleID;constraint:OnDelete:CASCADE" json:"module,omitempty"`
	Key         string    `gorm:"type:varchar(150);uniqueIndex;not null" json:"key" validate:"required,module_key"`
	Name        string    `gorm:"type:varchar(100);not null" json:"name" validate:"required"`
	Description string    `gorm:"type:varchar(255)" json:"description"`
}

func (Option) TableName() string {
	return "options"
}
