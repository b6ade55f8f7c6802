package repository

import (
	"context"

	"github.com/threatsmith/threatsmith/internal/domain/models"
)

// ThreatRepository manages threat rows belonging to relational threat
// models.
type ThreatRepository interface {
	Create(ctx context.Context, threat *models.Threat) error
	FindByID(ctx context.Context, id string) (*models.Threat, error)
	Update(ctx context.Context, threat *models.Threat) error
	Delete(ctx context.Context, id string) error
	ListByModel(ctx context.Context, modelID string) ([]*models.Threat, error)
	CountByModel(ctx context.Context, modelID string) (int64, error)
}

// SafeguardRepository manages safeguard rows associated with threats.
type SafeguardRepository interface {
	Create(ctx context.Context, safeguard *models.Safeguard) error
	ListByThreat(ctx context.Context, threatID string) ([]*models.Safeguard, error)
	Delete(ctx context.Context, id string) error
}
