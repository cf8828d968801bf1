package repository

import (
	"context"
	"fmt"
	"time"

	"tempspec/internal/model"

	"gorm.io/gorm"
)

// StatisticsRepository aggregates specs whose created_at falls in [start, end)
type StatisticsRepository interface {
	CountByStatus(ctx context.Context, start, end time.Time) ([]model.StatusCount, error)
	TotalExtensions(ctx context.Context, start, end time.Time) (int64, error)
	TopApplicants(ctx context.Context, start, end time.Time, limit int) ([]model.ApplicantRanking, error)
}

type statisticsRepository struct {
	db *gorm.DB
}

func NewStatisticsRepository(db *gorm.DB) StatisticsRepository {
	return &statisticsRepository{db: db}
}

func (r *statisticsRepository) inRange(ctx context.Context, start, end time.Time) *gorm.DB {
	return GetDB(ctx, r.db).Model(&model.TempSpec{}).
		Where("created_at >= ? AND created_at < ?", start, end)
}

func (r *statisticsRepository) CountByStatus(ctx context.Context, start, end time.Time) ([]model.StatusCount, error) {
	var rows []model.StatusCount
	if err := r.inRange(ctx, start, end).
		Select("status, COUNT(*) as count").
		Group("status").
		Order("status").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count specs by status: %w", err)
	}
	return rows, nil
}

func (r *statisticsRepository) TotalExtensions(ctx context.Context, start, end time.Time) (int64, error) {
	var result struct {
		Total int64
	}
	if err := r.inRange(ctx, start, end).
		Select("COALESCE(SUM(extension_count), 0) as total").
		Scan(&result).Error; err != nil {
		return 0, fmt.Errorf("failed to sum extensions: %w", err)
	}
	return result.Total, nil
}

func (r *statisticsRepository) TopApplicants(ctx context.Context, start, end time.Time, limit int) ([]model.ApplicantRanking, error) {
	var rankings []model.ApplicantRanking
	if err := r.inRange(ctx, start, end).
		Select("applicant, COUNT(*) as total_specs, COALESCE(SUM(extension_count), 0) as extensions").
		Where("applicant <> ''").
		Group("applicant").
		Order("total_specs DESC, applicant").
		Limit(limit).
		Scan(&rankings).Error; err != nil {
		return nil, fmt.Errorf("failed to query top applicants: %w", err)
	}
	return rankings, nil
}
