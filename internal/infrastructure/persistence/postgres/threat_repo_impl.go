package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/threatsmith/threatsmith/internal/domain/models"
	"github.com/threatsmith/threatsmith/internal/domain/repository"
	apperrors "github.com/threatsmith/threatsmith/pkg/errors"
	"github.com/threatsmith/threatsmith/pkg/logger"
)

// ThreatRepoImpl implements ThreatRepository on gorm.
type ThreatRepoImpl struct {
	db  *gorm.DB
	log logger.Logger
}

// NewThreatRepository creates a relational threat repository.
func NewThreatRepository(db *gorm.DB, log logger.Logger) repository.ThreatRepository {
	return &ThreatRepoImpl{db: db, log: log}
}

func (r *ThreatRepoImpl) Create(ctx context.Context, threat *models.Threat) error {
	now := time.Now().UTC()
	if threat.ID == "" {
		threat.ID = uuid.NewString()
	}
	threat.CreatedAt = now
	threat.UpdatedAt = now

	if err := r.db.WithContext(ctx).Create(threat).Error; err != nil {
		r.log.Error(ctx, "Failed to create threat", err,
			logger.String("model_id", threat.ModelID),
			logger.String("title", threat.Title),
		)
		return apperrors.ErrBackend("failed to create threat", err)
	}
	return nil
}

func (r *ThreatRepoImpl) FindByID(ctx context.Context, id string) (*models.Threat, error) {
	var threat models.Threat
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&threat).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound("threat", id)
		}
		return nil, apperrors.ErrBackend("failed to load threat", err)
	}
	return &threat, nil
}

func (r *ThreatRepoImpl) Update(ctx context.Context, threat *models.Threat) error {
	threat.UpdatedAt = time.Now().UTC()
	result := r.db.WithContext(ctx).
		Model(&models.Threat{}).
		Where("id = ?", threat.ID).
		Updates(threat)
	if result.Error != nil {
		return apperrors.ErrBackend("failed to update threat", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound("threat", threat.ID)
	}
	return nil
}

func (r *ThreatRepoImpl) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Threat{})
	if result.Error != nil {
		return apperrors.ErrBackend("failed to delete threat", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound("threat", id)
	}
	return nil
}

func (r *ThreatRepoImpl) ListByModel(ctx context.Context, modelID string) ([]*models.Threat, error) {
	var threats []*models.Threat
	err := r.db.WithContext(ctx).
		Where("model_id = ?", modelID).
		Order("created_at").
		Find(&threats).Error
	if err != nil {
		return nil, apperrors.ErrBackend("failed to list threats", err)
	}
	return threats, nil
}

func (r *ThreatRepoImpl) CountByModel(ctx context.Context, modelID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Threat{}).
		Where("model_id = ?", modelID).
		Count(&count).Error
	if err != nil {
		return 0, apperrors.ErrBackend("failed to count threats", err)
	}
	return count, nil
}

// SafeguardRepoImpl implements SafeguardRepository on gorm.
type SafeguardRepoImpl struct {
	db  *gorm.DB
	log logger.Logger
}

// NewSafeguardRepository creates a relational safeguard repository.
func NewSafeguardRepository(db *gorm.DB, log logger.Logger) repository.SafeguardRepository {
	return &SafeguardRepoImpl{db: db, log: log}
}

func (r *SafeguardRepoImpl) Create(ctx context.Context, safeguard *models.Safeguard) error {
	now := time.Now().UTC()
	if safeguard.ID == "" {
		safeguard.ID = uuid.NewString()
	}
	safeguard.CreatedAt = now
	safeguard.UpdatedAt = now

	if err := r.db.WithContext(ctx).Create(safeguard).Error; err != nil {
		r.log.Error(ctx, "Failed to create safeguard", err,
			logger.String("threat_id", safeguard.ThreatID),
		)
		return apperrors.ErrBackend("failed to create safeguard", err)
	}
	return nil
}

func (r *SafeguardRepoImpl) ListByThreat(ctx context.Context, threatID string) ([]*models.Safeguard, error) {
	var safeguards []*models.Safeguard
	err := r.db.WithContext(ctx).
		Where("threat_id = ?", threatID).
		Order("created_at").
		Find(&safeguards).Error
	if err != nil {
		return nil, apperrors.ErrBackend("failed to list safeguards", err)
	}
	return safeguards, nil
}

func (r *SafeguardRepoImpl) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Safeguard{})
	if result.Error != nil {
		return apperrors.ErrBackend("failed to delete safeguard", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound("safeguard", id)
	}
	return nil
}
