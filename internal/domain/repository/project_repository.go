package repository

import (
	"context"

	"github.com/threatsmith/threatsmith/internal/domain/models"
)

// ProjectRepository manages project and component rows.
type ProjectRepository interface {
	Create(ctx context.Context, project *models.Project) error
	FindByID(ctx context.Context, id string) (*models.Project, error)
	Update(ctx context.Context, project *models.Project) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*models.Project, error)

	CreateComponent(ctx context.Context, component *models.Component) error
	ListComponents(ctx context.Context, projectID string) ([]*models.Component, error)
	DeleteComponent(ctx context.Context, id string) error
}

// VulnerabilityRepository manages scanner findings.
type VulnerabilityRepository interface {
	// Upsert inserts a finding or, when (scanner, external_id) already
	// exists, refreshes its mutable fields and LastSeenAt.
	Upsert(ctx context.Context, vuln *models.Vulnerability) error
	ListByComponent(ctx context.Context, componentID string) ([]*models.Vulnerability, error)
	List(ctx context.Context) ([]*models.Vulnerability, error)
}

// SettingRepository manages key/value settings rows.
type SettingRepository interface {
	Get(ctx context.Context, key string) (*models.Setting, error)
	Set(ctx context.Context, setting *models.Setting) error
}
