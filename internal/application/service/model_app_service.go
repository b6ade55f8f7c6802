package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/threatsmith/threatsmith/internal/domain/models"
	"github.com/threatsmith/threatsmith/internal/domain/repository"
	"github.com/threatsmith/threatsmith/pkg/constants"
	apperrors "github.com/threatsmith/threatsmith/pkg/errors"
	"github.com/threatsmith/threatsmith/pkg/logger"
)

// ThreatModelDetails is a relational model with its decoded merge metadata
// and threat count.
type ThreatModelDetails struct {
	*models.ThreatModel
	ThreatCount   int                   `json:"threat_count"`
	MergeMetadata *models.MergeMetadata `json:"merge_metadata,omitempty"`
}

// ModelAppService manages relational threat models and their threats and
// safeguards.
type ModelAppService struct {
	threatModels repository.ThreatModelRepository
	threats      repository.ThreatRepository
	safeguards   repository.SafeguardRepository
	projects     repository.ProjectRepository
	log          logger.Logger
}

func NewModelAppService(
	threatModels repository.ThreatModelRepository,
	threats repository.ThreatRepository,
	safeguards repository.SafeguardRepository,
	projects repository.ProjectRepository,
	log logger.Logger,
) *ModelAppService {
	return &ModelAppService{
		threatModels: threatModels,
		threats:      threats,
		safeguards:   safeguards,
		projects:     projects,
		log:          log.WithComponent("ModelAppService"),
	}
}

func (s *ModelAppService) CreateModel(ctx context.Context, model *models.ThreatModel) error {
	if strings.TrimSpace(model.Name) == "" {
		return apperrors.ErrValidation("threat model name is required")
	}
	if model.ProjectID != "" {
		if _, err := s.projects.FindByID(ctx, model.ProjectID); err != nil {
			return err
		}
	}
	if model.ID == "" {
		model.ID = uuid.NewString()
	}
	if model.Version == 0 {
		model.Version = 1
	}
	if model.Status == "" {
		model.Status = constants.ModelStatusDraft
	}
	return s.threatModels.Create(ctx, model)
}

// GetModel loads a model with its threat count and decoded merge metadata.
func (s *ModelAppService) GetModel(ctx context.Context, id string) (*ThreatModelDetails, error) {
	model, err := s.threatModels.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	count, err := s.threats.CountByModel(ctx, id)
	if err != nil {
		return nil, err
	}
	meta, err := model.GetMergeMetadata()
	if err != nil {
		return nil, apperrors.ErrInternal("failed to decode merge metadata", err)
	}
	return &ThreatModelDetails{
		ThreatModel:   model,
		ThreatCount:   int(count),
		MergeMetadata: meta,
	}, nil
}

func (s *ModelAppService) UpdateModel(ctx context.Context, model *models.ThreatModel) error {
	if strings.TrimSpace(model.Name) == "" {
		return apperrors.ErrValidation("threat model name is required")
	}
	current, err := s.threatModels.FindByID(ctx, model.ID)
	if err != nil {
		return err
	}
	// Merge metadata is immutable through this path.
	model.MergeMetadata = current.MergeMetadata
	model.Version = current.Version
	return s.threatModels.Update(ctx, model)
}

func (s *ModelAppService) DeleteModel(ctx context.Context, id string) error {
	return s.threatModels.Delete(ctx, id)
}

func (s *ModelAppService) ListModels(ctx context.Context, projectID string) ([]*models.ThreatModel, error) {
	return s.threatModels.ListByProject(ctx, projectID)
}

func (s *ModelAppService) AddThreat(ctx context.Context, threat *models.Threat) error {
	if strings.TrimSpace(threat.Title) == "" {
		return apperrors.ErrValidation("threat title is required")
	}
	if threat.RiskScore < constants.MinRiskScore || threat.RiskScore > constants.MaxRiskScore {
		return apperrors.ErrValidation("risk score must be between 1 and 100")
	}
	if _, err := s.threatModels.FindByID(ctx, threat.ModelID); err != nil {
		return err
	}
	return s.threats.Create(ctx, threat)
}

func (s *ModelAppService) GetThreat(ctx context.Context, id string) (*models.Threat, error) {
	return s.threats.FindByID(ctx, id)
}

func (s *ModelAppService) UpdateThreat(ctx context.Context, threat *models.Threat) error {
	if strings.TrimSpace(threat.Title) == "" {
		return apperrors.ErrValidation("threat title is required")
	}
	return s.threats.Update(ctx, threat)
}

func (s *ModelAppService) DeleteThreat(ctx context.Context, id string) error {
	return s.threats.Delete(ctx, id)
}

func (s *ModelAppService) ListThreats(ctx context.Context, modelID string) ([]*models.Threat, error) {
	return s.threats.ListByModel(ctx, modelID)
}

func (s *ModelAppService) AddSafeguard(ctx context.Context, safeguard *models.Safeguard) error {
	if strings.TrimSpace(safeguard.Name) == "" {
		return apperrors.ErrValidation("safeguard name is required")
	}
	if _, err := s.threats.FindByID(ctx, safeguard.ThreatID); err != nil {
		return err
	}
	return s.safeguards.Create(ctx, safeguard)
}

func (s *ModelAppService) ListSafeguards(ctx context.Context, threatID string) ([]*models.Safeguard, error) {
	return s.safeguards.ListByThreat(ctx, threatID)
}

func (s *ModelAppService) DeleteSafeguard(ctx context.Context, id string) error {
	return s.safeguards.Delete(ctx, id)
}
