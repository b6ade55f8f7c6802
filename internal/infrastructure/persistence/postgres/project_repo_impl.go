package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/threatsmith/threatsmith/internal/domain/models"
	"github.com/threatsmith/threatsmith/internal/domain/repository"
	apperrors "github.com/threatsmith/threatsmith/pkg/errors"
	"github.com/threatsmith/threatsmith/pkg/logger"
)

// ProjectRepoImpl implements ProjectRepository on gorm.
type ProjectRepoImpl struct {
	db  *gorm.DB
	log logger.Logger
}

// NewProjectRepository creates a relational project repository.
func NewProjectRepository(db *gorm.DB, log logger.Logger) repository.ProjectRepository {
	return &ProjectRepoImpl{db: db, log: log}
}

func (r *ProjectRepoImpl) Create(ctx context.Context, project *models.Project) error {
	now := time.Now().UTC()
	if project.ID == "" {
		project.ID = uuid.NewString()
	}
	project.CreatedAt = now
	project.UpdatedAt = now

	if err := r.db.WithContext(ctx).Create(project).Error; err != nil {
		return apperrors.ErrBackend("failed to create project", err)
	}
	return nil
}

func (r *ProjectRepoImpl) FindByID(ctx context.Context, id string) (*models.Project, error) {
	var project models.Project
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&project).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound("project", id)
		}
		return nil, apperrors.ErrBackend("failed to load project", err)
	}
	return &project, nil
}

func (r *ProjectRepoImpl) Update(ctx context.Context, project *models.Project) error {
	project.UpdatedAt = time.Now().UTC()
	result := r.db.WithContext(ctx).
		Model(&models.Project{}).
		Where("id = ?", project.ID).
		Updates(project)
	if result.Error != nil {
		return apperrors.ErrBackend("failed to update project", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound("project", project.ID)
	}
	return nil
}

func (r *ProjectRepoImpl) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Project{})
	if result.Error != nil {
		return apperrors.ErrBackend("failed to delete project", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound("project", id)
	}
	return nil
}

func (r *ProjectRepoImpl) List(ctx context.Context) ([]*models.Project, error) {
	var projects []*models.Project
	if err := r.db.WithContext(ctx).Order("created_at").Find(&projects).Error; err != nil {
		return nil, apperrors.ErrBackend("failed to list projects", err)
	}
	return projects, nil
}

func (r *ProjectRepoImpl) CreateComponent(ctx context.Context, component *models.Component) error {
	now := time.Now().UTC()
	if component.ID == "" {
		component.ID = uuid.NewString()
	}
	component.CreatedAt = now
	component.UpdatedAt = now

	if err := r.db.WithContext(ctx).Create(component).Error; err != nil {
		return apperrors.ErrBackend("failed to create component", err)
	}
	return nil
}

func (r *ProjectRepoImpl) ListComponents(ctx context.Context, projectID string) ([]*models.Component, error) {
	var components []*models.Component
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at").
		Find(&components).Error
	if err != nil {
		return nil, apperrors.ErrBackend("failed to list components", err)
	}
	return components, nil
}

func (r *ProjectRepoImpl) DeleteComponent(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Component{})
	if result.Error != nil {
		return apperrors.ErrBackend("failed to delete component", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound("component", id)
	}
	return nil
}

// VulnerabilityRepoImpl implements VulnerabilityRepository on gorm.
type VulnerabilityRepoImpl struct {
	db  *gorm.DB
	log logger.Logger
}

// NewVulnerabilityRepository creates a relational vulnerability repository.
func NewVulnerabilityRepository(db *gorm.DB, log logger.Logger) repository.VulnerabilityRepository {
	return &VulnerabilityRepoImpl{db: db, log: log}
}

func (r *VulnerabilityRepoImpl) Upsert(ctx context.Context, vuln *models.Vulnerability) error {
	now := time.Now().UTC()
	if vuln.ID == "" {
		vuln.ID = uuid.NewString()
	}
	if vuln.FirstSeenAt.IsZero() {
		vuln.FirstSeenAt = now
	}
	vuln.LastSeenAt = now

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "scanner"}, {Name: "external_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"component_id", "title", "description", "severity", "cve", "last_seen_at",
		}),
	}).Create(vuln).Error
	if err != nil {
		r.log.Error(ctx, "Failed to upsert vulnerability", err,
			logger.String("scanner", vuln.Scanner),
			logger.String("external_id", vuln.ExternalID),
		)
		return apperrors.ErrBackend("failed to upsert vulnerability", err)
	}
	return nil
}

func (r *VulnerabilityRepoImpl) ListByComponent(ctx context.Context, componentID string) ([]*models.Vulnerability, error) {
	var vulns []*models.Vulnerability
	err := r.db.WithContext(ctx).
		Where("component_id = ?", componentID).
		Order("last_seen_at desc").
		Find(&vulns).Error
	if err != nil {
		return nil, apperrors.ErrBackend("failed to list vulnerabilities", err)
	}
	return vulns, nil
}

func (r *VulnerabilityRepoImpl) List(ctx context.Context) ([]*models.Vulnerability, error) {
	var vulns []*models.Vulnerability
	if err := r.db.WithContext(ctx).Order("last_seen_at desc").Find(&vulns).Error; err != nil {
		return nil, apperrors.ErrBackend("failed to list vulnerabilities", err)
	}
	return vulns, nil
}

// SettingRepoImpl implements SettingRepository on gorm.
type SettingRepoImpl struct {
	db *gorm.DB
}

// NewSettingRepository creates a relational settings repository.
func NewSettingRepository(db *gorm.DB) repository.SettingRepository {
	return &SettingRepoImpl{db: db}
}

func (r *SettingRepoImpl) Get(ctx context.Context, key string) (*models.Setting, error) {
	var setting models.Setting
	err := r.db.WithContext(ctx).Where("key = ?", key).First(&setting).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound("setting", key)
		}
		return nil, apperrors.ErrBackend("failed to load setting", err)
	}
	return &setting, nil
}

func (r *SettingRepoImpl) Set(ctx context.Context, setting *models.Setting) error {
	setting.UpdatedAt = time.Now().UTC()
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(setting).Error
	if err != nil {
		return apperrors.ErrBackend("failed to store setting", err)
	}
	return nil
}
