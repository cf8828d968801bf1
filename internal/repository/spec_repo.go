package repository

import (
	"context"
	"strings"
	"time"

	"tempspec/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SpecFilter narrows List results; empty fields match everything
type SpecFilter struct {
	Query  string // substring of code or title
	Status string
}

type SpecRepository interface {
	Create(ctx context.Context, spec *model.TempSpec) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.TempSpec, error)
	FindByIDWithUploads(ctx context.Context, id uuid.UUID) (*model.TempSpec, error)
	LatestCode(ctx context.Context, prefix string) (string, error)
	List(ctx context.Context, filter SpecFilter, page, limit int) ([]model.TempSpec, int64, error)
	ListExpired(ctx context.Context, today time.Time) ([]model.TempSpec, error)
	Update(ctx context.Context, spec *model.TempSpec) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type specRepository struct {
	db *gorm.DB
}

func NewSpecRepository(db *gorm.DB) SpecRepository {
	return &specRepository{db: db}
}

func (r *specRepository) Create(ctx context.Context, spec *model.TempSpec) error {
	return GetDB(ctx, r.db).Create(spec).Error
}

func (r *specRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.TempSpec, error) {
	var spec model.TempSpec
	if err := GetDB(ctx, r.db).First(&spec, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &spec, nil
}

func (r *specRepository) FindByIDWithUploads(ctx context.Context, id uuid.UUID) (*model.TempSpec, error) {
	var spec model.TempSpec
	if err := GetDB(ctx, r.db).Preload("Uploads").First(&spec, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &spec, nil
}

// LatestCode returns the highest spec code starting with prefix, or "" when the bucket is empty
func (r *specRepository) LatestCode(ctx context.Context, prefix string) (string, error) {
	var codes []string
	if err := GetDB(ctx, r.db).
		Model(&model.TempSpec{}).
		Where("spec_code LIKE ?", prefix+"%").
		Order("spec_code DESC").
		Limit(1).
		Pluck("spec_code", &codes).Error; err != nil {
		return "", err
	}
	if len(codes) == 0 {
		return "", nil
	}
	return codes[0], nil
}

func (r *specRepository) List(ctx context.Context, filter SpecFilter, page, limit int) ([]model.TempSpec, int64, error) {
	var specs []model.TempSpec
	var total int64

	db := GetDB(ctx, r.db)
	scope := func(q *gorm.DB) *gorm.DB {
		if filter.Query != "" {
			term := "%" + strings.ToLower(filter.Query) + "%"
			q = q.Where("LOWER(spec_code) LIKE ? OR LOWER(title) LIKE ?", term, term)
		}
		if filter.Status != "" {
			q = q.Where("status = ?", filter.Status)
		}
		return q
	}

	if err := db.Model(&model.TempSpec{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Scopes(scope).Order("created_at DESC").Offset(offset).Limit(limit).Find(&specs).Error; err != nil {
		return nil, 0, err
	}

	return specs, total, nil
}

// ListExpired returns active specs whose end date is before today
func (r *specRepository) ListExpired(ctx context.Context, today time.Time) ([]model.TempSpec, error) {
	var specs []model.TempSpec
	if err := GetDB(ctx, r.db).
		Where("status = ? AND end_date < ?", model.SpecActive, today).
		Order("spec_code").
		Find(&specs).Error; err != nil {
		return nil, err
	}
	return specs, nil
}

func (r *specRepository) Update(ctx context.Context, spec *model.TempSpec) error {
	return GetDB(ctx, r.db).Omit("Uploads", "History").Save(spec).Error
}

// Delete removes the spec with its uploads and history rows
func (r *specRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("temp_spec_id = ?", id).Delete(&model.Upload{}).Error; err != nil {
		return err
	}
	if err := db.Where("spec_id = ?", id).Delete(&model.SpecHistory{}).Error; err != nil {
		return err
	}
	res := db.Where("id = ?", id).Delete(&model.TempSpec{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
