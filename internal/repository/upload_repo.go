package repository

import (
	"context"

	"tempspec/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UploadRepository interface {
	Create(ctx context.Context, upload *model.Upload) error
	ListBySpec(ctx context.Context, specID uuid.UUID) ([]model.Upload, error)
	Latest(ctx context.Context, specID uuid.UUID) (*model.Upload, error)
}

type uploadRepository struct {
	db *gorm.DB
}

func NewUploadRepository(db *gorm.DB) UploadRepository {
	return &uploadRepository{db: db}
}

func (r *uploadRepository) Create(ctx context.Context, upload *model.Upload) error {
	return GetDB(ctx, r.db).Create(upload).Error
}

func (r *uploadRepository) ListBySpec(ctx context.Context, specID uuid.UUID) ([]model.Upload, error) {
	var uploads []model.Upload
	if err := GetDB(ctx, r.db).Where("temp_spec_id = ?", specID).Order("uploaded_at DESC").Find(&uploads).Error; err != nil {
		return nil, err
	}
	return uploads, nil
}

// Latest returns the most recent upload of a spec, gorm.ErrRecordNotFound if there is none
func (r *uploadRepository) Latest(ctx context.Context, specID uuid.UUID) (*model.Upload, error) {
	var upload model.Upload
	if err := GetDB(ctx, r.db).Where("temp_spec_id = ?", specID).Order("uploaded_at DESC").First(&upload).Error; err != nil {
		return nil, err
	}
	return &upload, nil
}
