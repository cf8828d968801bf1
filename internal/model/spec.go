package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SpecStatus enum constants
const (
	SpecPendingApproval = "pending_approval"
	SpecActive          = "active"
	SpecExpired         = "expired"
	SpecTerminated      = "terminated"
)

// ValidSpecStatus reports whether status is one of the lifecycle states
func ValidSpecStatus(status string) bool {
	switch status {
	case SpecPendingApproval, SpecActive, SpecExpired, SpecTerminated:
		return true
	}
	return false
}

// TempSpec is a temporary specification moving through
// pending_approval -> active -> expired/terminated.
// Uploads and History are removed together with the spec.
type TempSpec struct {
	ID                uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	SpecCode          string        `gorm:"type:varchar(20);uniqueIndex;not null" json:"spec_code"` // PE + ROC year + month + seq
	Applicant         string        `gorm:"type:varchar(50)" json:"applicant"`
	Title             string        `gorm:"type:varchar(100)" json:"title"`
	Content           string        `gorm:"type:text" json:"content"`
	StartDate         time.Time     `gorm:"type:date" json:"start_date"`
	EndDate           time.Time     `gorm:"type:date" json:"end_date"`
	Status            string        `gorm:"type:varchar(20);not null;default:'pending_approval';index" json:"status"`
	ExtensionCount    int           `gorm:"not null;default:0" json:"extension_count"`
	TerminationReason *string       `gorm:"type:text" json:"termination_reason"`
	Uploads           []Upload      `gorm:"foreignKey:TempSpecID;constraint:OnDelete:CASCADE;" json:"uploads,omitempty"`
	History           []SpecHistory `gorm:"foreignKey:SpecID;constraint:OnDelete:CASCADE;" json:"history,omitempty"`
	CreatedAt         time.Time     `gorm:"index" json:"created_at"`
}

func (s *TempSpec) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// DateOf truncates t to its calendar day so stored start/end dates compare cleanly
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
