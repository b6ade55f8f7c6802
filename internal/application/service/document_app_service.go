package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	domainservice "github.com/threatsmith/threatsmith/internal/domain/service"

	"github.com/threatsmith/threatsmith/internal/domain/models"
	"github.com/threatsmith/threatsmith/internal/domain/repository"
	apperrors "github.com/threatsmith/threatsmith/pkg/errors"
	"github.com/threatsmith/threatsmith/pkg/logger"
)

// DocumentDetails is a stored document together with its merge metadata and
// the threats currently extractable from its content.
type DocumentDetails struct {
	*models.ThreatModelDocument
	MergeMetadata    *models.MergeMetadata    `json:"merge_metadata,omitempty"`
	ExtractedThreats []models.ThreatCandidate `json:"extracted_threats"`
}

// DocumentAppService manages generated threat-model documents in the
// document store.
type DocumentAppService struct {
	docs      repository.DocumentStore
	extractor *domainservice.ThreatExtractor
	log       logger.Logger
}

func NewDocumentAppService(
	docs repository.DocumentStore,
	extractor *domainservice.ThreatExtractor,
	log logger.Logger,
) *DocumentAppService {
	return &DocumentAppService{
		docs:      docs,
		extractor: extractor,
		log:       log.WithComponent("DocumentAppService"),
	}
}

// StoreDocument stores a generated document, assigning an id when absent.
// The initial threat count is whatever extraction finds in the content.
func (s *DocumentAppService) StoreDocument(ctx context.Context, doc *models.ThreatModelDocument) error {
	if strings.TrimSpace(doc.Title) == "" {
		return apperrors.ErrValidation("document title is required")
	}
	if strings.TrimSpace(doc.Content) == "" {
		return apperrors.ErrValidation("document content is required")
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.ThreatCount == 0 {
		doc.ThreatCount = len(s.extractor.Extract(doc.Content))
	}
	return s.docs.PutDocument(ctx, doc)
}

// GetDocument loads a document with its merge metadata and extracted
// threats.
func (s *DocumentAppService) GetDocument(ctx context.Context, id string) (*DocumentDetails, error) {
	doc, err := s.docs.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	meta, err := s.docs.GetMergeMetadata(ctx, id)
	if err != nil {
		return nil, err
	}
	return &DocumentDetails{
		ThreatModelDocument: doc,
		MergeMetadata:       meta,
		ExtractedThreats:    s.extractor.Extract(doc.Content),
	}, nil
}
