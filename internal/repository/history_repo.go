package repository

import (
	"context"

	"tempspec/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// HistoryRepository is the append-only audit trail of spec lifecycle actions
type HistoryRepository interface {
	Append(ctx context.Context, entry *model.SpecHistory) error
	ListBySpec(ctx context.Context, specID uuid.UUID) ([]model.SpecHistory, error)
}

type historyRepository struct {
	db *gorm.DB
}

func NewHistoryRepository(db *gorm.DB) HistoryRepository {
	return &historyRepository{db: db}
}

// Append inserts a new entry; CreatedAt is always assigned here, never by callers
func (r *historyRepository) Append(ctx context.Context, entry *model.SpecHistory) error {
	entry.CreatedAt = nowFunc()
	return GetDB(ctx, r.db).Create(entry).Error
}

// ListBySpec returns entries newest first with the acting user preloaded
func (r *historyRepository) ListBySpec(ctx context.Context, specID uuid.UUID) ([]model.SpecHistory, error) {
	var entries []model.SpecHistory
	if err := GetDB(ctx, r.db).
		Preload("User").
		Where("spec_id = ?", specID).
		Order("created_at DESC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
