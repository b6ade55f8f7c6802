package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/threatsmith/threatsmith/internal/domain/models"
	"github.com/threatsmith/threatsmith/internal/domain/repository"
	apperrors "github.com/threatsmith/threatsmith/pkg/errors"
	"github.com/threatsmith/threatsmith/pkg/logger"
)

// ThreatModelRepoImpl implements ThreatModelRepository on gorm.
type ThreatModelRepoImpl struct {
	db  *gorm.DB
	log logger.Logger
}

// NewThreatModelRepository creates a relational threat model repository.
func NewThreatModelRepository(db *gorm.DB, log logger.Logger) repository.ThreatModelRepository {
	return &ThreatModelRepoImpl{db: db, log: log}
}

func (r *ThreatModelRepoImpl) Create(ctx context.Context, model *models.ThreatModel) error {
	now := time.Now().UTC()
	model.CreatedAt = now
	model.UpdatedAt = now
	if model.Version == 0 {
		model.Version = 1
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		r.log.Error(ctx, "Failed to create threat model", err,
			logger.String("model_id", model.ID),
		)
		return apperrors.ErrBackend("failed to create threat model", err)
	}
	return nil
}

func (r *ThreatModelRepoImpl) FindByID(ctx context.Context, id string) (*models.ThreatModel, error) {
	var model models.ThreatModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrModelNotFound(id)
		}
		r.log.Error(ctx, "Failed to load threat model", err, logger.String("model_id", id))
		return nil, apperrors.ErrBackend("failed to load threat model", err)
	}
	return &model, nil
}

func (r *ThreatModelRepoImpl) Update(ctx context.Context, model *models.ThreatModel) error {
	model.UpdatedAt = time.Now().UTC()

	result := r.db.WithContext(ctx).
		Model(&models.ThreatModel{}).
		Where("id = ?", model.ID).
		Select("name", "description", "version", "status", "merge_metadata", "updated_at").
		Updates(model)
	if result.Error != nil {
		r.log.Error(ctx, "Failed to update threat model", result.Error,
			logger.String("model_id", model.ID),
		)
		return apperrors.ErrBackend("failed to update threat model", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrModelNotFound(model.ID)
	}
	return nil
}

func (r *ThreatModelRepoImpl) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.ThreatModel{})
	if result.Error != nil {
		return apperrors.ErrBackend("failed to delete threat model", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrModelNotFound(id)
	}
	return nil
}

func (r *ThreatModelRepoImpl) ListByProject(ctx context.Context, projectID string) ([]*models.ThreatModel, error) {
	var list []*models.ThreatModel
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at").
		Find(&list).Error
	if err != nil {
		return nil, apperrors.ErrBackend("failed to list threat models", err)
	}
	return list, nil
}

func (r *ThreatModelRepoImpl) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ThreatModel{}).
		Where("id = ?", id).
		Count(&count).Error
	if err != nil {
		return false, apperrors.ErrBackend("failed to check threat model existence", err)
	}
	return count > 0, nil
}
