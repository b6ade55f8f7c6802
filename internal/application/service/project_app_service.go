package service

import (
	"context"
	"strings"

	"github.com/threatsmith/threatsmith/internal/domain/models"
	"github.com/threatsmith/threatsmith/internal/domain/repository"
	"github.com/threatsmith/threatsmith/pkg/constants"
	apperrors "github.com/threatsmith/threatsmith/pkg/errors"
	"github.com/threatsmith/threatsmith/pkg/logger"
)

// ProjectAppService manages projects, their components, and the
// vulnerability findings attached to them.
type ProjectAppService struct {
	projects repository.ProjectRepository
	vulns    repository.VulnerabilityRepository
	log      logger.Logger
}

func NewProjectAppService(
	projects repository.ProjectRepository,
	vulns repository.VulnerabilityRepository,
	log logger.Logger,
) *ProjectAppService {
	return &ProjectAppService{
		projects: projects,
		vulns:    vulns,
		log:      log.WithComponent("ProjectAppService"),
	}
}

func (s *ProjectAppService) CreateProject(ctx context.Context, project *models.Project) error {
	if strings.TrimSpace(project.Name) == "" {
		return apperrors.ErrValidation("project name is required")
	}
	return s.projects.Create(ctx, project)
}

func (s *ProjectAppService) GetProject(ctx context.Context, id string) (*models.Project, error) {
	return s.projects.FindByID(ctx, id)
}

func (s *ProjectAppService) UpdateProject(ctx context.Context, project *models.Project) error {
	if strings.TrimSpace(project.Name) == "" {
		return apperrors.ErrValidation("project name is required")
	}
	return s.projects.Update(ctx, project)
}

func (s *ProjectAppService) DeleteProject(ctx context.Context, id string) error {
	return s.projects.Delete(ctx, id)
}

func (s *ProjectAppService) ListProjects(ctx context.Context) ([]*models.Project, error) {
	return s.projects.List(ctx)
}

func (s *ProjectAppService) AddComponent(ctx context.Context, component *models.Component) error {
	if strings.TrimSpace(component.Name) == "" {
		return apperrors.ErrValidation("component name is required")
	}
	if component.Kind == "" {
		component.Kind = constants.ComponentKindService
	}
	if _, err := s.projects.FindByID(ctx, component.ProjectID); err != nil {
		return err
	}
	return s.projects.CreateComponent(ctx, component)
}

func (s *ProjectAppService) ListComponents(ctx context.Context, projectID string) ([]*models.Component, error) {
	return s.projects.ListComponents(ctx, projectID)
}

func (s *ProjectAppService) RemoveComponent(ctx context.Context, id string) error {
	return s.projects.DeleteComponent(ctx, id)
}

func (s *ProjectAppService) ListVulnerabilities(ctx context.Context, componentID string) ([]*models.Vulnerability, error) {
	if componentID == "" {
		return s.vulns.List(ctx)
	}
	return s.vulns.ListByComponent(ctx, componentID)
}
