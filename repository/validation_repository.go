package repository

import (
	"context"
	"errors"

	"mirdata/model"

	"gorm.io/gorm"
)

// ValidationRepository stores validation runs.
type ValidationRepository interface {
	Save(ctx context.Context, run *model.ValidationRun) error
	GetByID(ctx context.Context, id string) (*model.ValidationRun, error)
	// ListByDataset returns the newest runs first, without their issues.
	ListByDataset(ctx context.Context, dataset string, limit int) ([]*model.ValidationRun, error)
}

type gormValidationRepository struct {
	db *gorm.DB
}

// NewGormValidationRepository creates a GORM backed repository.
func NewGormValidationRepository(db *gorm.DB) ValidationRepository {
	return &gormValidationRepository{db: db}
}

// Save inserts run together with its issues.
func (r *gormValidationRepository) Save(ctx context.Context, run *model.ValidationRun) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(run).Error
	})
}

// GetByID loads a run with its issues. Unknown ids return nil, nil.
func (r *gormValidationRepository) GetByID(ctx context.Context, id string) (*model.ValidationRun, error) {
	var run model.ValidationRun
	err := r.db.WithContext(ctx).
		Preload("Issues").
		Where("id = ?", id).
		First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &run, nil
}

func (r *gormValidationRepository) ListByDataset(ctx context.Context, dataset string, limit int) ([]*model.ValidationRun, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []*model.ValidationRun
	err := r.db.WithContext(ctx).
		Where("dataset = ?", dataset).
		Order("started_at DESC").
		Limit(limit).
		Find(&runs).Error
	return runs, err
}
