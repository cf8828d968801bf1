package repository

import (
	"context"

	"tempspec/internal/model"

	"gorm.io/gorm"
)

// ActivityRepository reads the history of every spec, newest first
type ActivityRepository interface {
	List(ctx context.Context, action string, page, limit int) ([]model.ActivityEntry, int64, error)
}

type activityRepository struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) ActivityRepository {
	return &activityRepository{db: db}
}

// List filters by action when non-empty
func (r *activityRepository) List(ctx context.Context, action string, page, limit int) ([]model.ActivityEntry, int64, error) {
	var entries []model.ActivityEntry
	var total int64

	db := GetDB(ctx, r.db)
	countQuery := db.Model(&model.SpecHistory{})
	if action != "" {
		countQuery = countQuery.Where("action = ?", action)
	}
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := db.Table("spec_histories AS h").
		Select("h.id, h.spec_id, s.spec_code, h.user_id, u.username, h.action, h.details, h.created_at").
		Joins("JOIN temp_specs s ON s.id = h.spec_id").
		Joins("LEFT JOIN users u ON u.id = h.user_id")
	if action != "" {
		query = query.Where("h.action = ?", action)
	}

	offset := (page - 1) * limit
	if err := query.Order("h.created_at desc").Offset(offset).Limit(limit).Scan(&entries).Error; err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}
