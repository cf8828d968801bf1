package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UploadKind enum constants
const (
	UploadSigned    = "signed"
	UploadExtension = "extension"
)

// Upload is a signed or extension document stored for a spec.
// The most recent one by UploadedAt is what gets downloaded.
type Upload struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TempSpecID uuid.UUID `gorm:"type:uuid;not null;index" json:"temp_spec_id"`
	Kind       string    `gorm:"type:varchar(20);not null" json:"kind"`
	Filename   string    `gorm:"type:varchar(200);not null" json:"filename"`
	UploadedAt time.Time `gorm:"index" json:"uploaded_at"`
}

func (u *Upload) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
