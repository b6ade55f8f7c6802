// Package repository defines the persistence interfaces of the domain
// layer. Relational implementations live under
// internal/infrastructure/persistence/postgres, the document store under
// internal/infrastructure/persistence/redis.
package repository

import (
	"context"

	"github.com/threatsmith/threatsmith/internal/domain/models"
)

// ThreatModelRepository manages relational threat model rows.
type ThreatModelRepository interface {
	Create(ctx context.Context, model *models.ThreatModel) error
	FindByID(ctx context.Context, id string) (*models.ThreatModel, error)
	Update(ctx context.Context, model *models.ThreatModel) error
	Delete(ctx context.Context, id string) error
	ListByProject(ctx context.Context, projectID string) ([]*models.ThreatModel, error)
	Exists(ctx context.Context, id string) (bool, error)
}
