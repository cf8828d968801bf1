package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ActionCreateSpec    = "CREATE"
	ActionActivateSpec  = "ACTIVATE"
	ActionExtendSpec    = "EXTEND"
	ActionTerminateSpec = "TERMINATE"
	ActionExpireSpec    = "EXPIRE"
)

// SpecHistory tracks Who, What, and When for every lifecycle change of a spec.
// Rows are never updated; they go away only with their spec.
type SpecHistory struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	SpecID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"spec_id"`
	UserID    *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // nil for system actions or deleted users
	User      *User      `gorm:"foreignKey:UserID;constraint:OnDelete:SET NULL;" json:"user,omitempty"`
	Action    string     `gorm:"type:varchar(50);not null" json:"action"`
	Details   string     `gorm:"type:text" json:"details"`
	CreatedAt time.Time  `gorm:"index" json:"created_at"`
}

func (h *SpecHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}
