// Package service contains the application services that orchestrate domain
// services, repositories, and stores into complete use cases.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	domainservice "github.com/threatsmith/threatsmith/internal/domain/service"

	"github.com/threatsmith/threatsmith/internal/domain/models"
	"github.com/threatsmith/threatsmith/internal/domain/repository"
	"github.com/threatsmith/threatsmith/internal/infrastructure/audit"
	"github.com/threatsmith/threatsmith/internal/infrastructure/monitoring"
	"github.com/threatsmith/threatsmith/pkg/constants"
	apperrors "github.com/threatsmith/threatsmith/pkg/errors"
	"github.com/threatsmith/threatsmith/pkg/logger"
)

// sourceThreat pairs an extracted or queried candidate with the id of the
// relational threat row it came from, when one exists. Document-extracted
// candidates carry no row id.
type sourceThreat struct {
	candidate      models.ThreatCandidate
	sourceThreatID string
}

// loadedSource is one successfully loaded merge source.
type loadedSource struct {
	ref     models.ModelRef
	name    string
	threats []sourceThreat
}

// MergeAppService orchestrates threat model merges. A merge folds the
// threats of one or more source models into a primary model, skipping
// duplicates and recording audit metadata on the primary.
//
// Consistency differs by primary backend: relational merges run inside one
// transaction and roll back completely on failure; document merges are
// guarded by a generation token per write but earlier appends survive a
// later failure, which surfaces as a partial persistence error.
type MergeAppService struct {
	tx           repository.TransactionManager
	threatModels repository.ThreatModelRepository
	threats      repository.ThreatRepository
	safeguards   repository.SafeguardRepository
	docs         repository.DocumentStore
	extractor    *domainservice.ThreatExtractor
	matcher      *domainservice.SimilarityMatcher
	scorer       domainservice.RiskScorer
	publisher    audit.Publisher
	metrics      *monitoring.Metrics
	log          logger.Logger
}

// NewMergeAppService wires the merge orchestrator.
func NewMergeAppService(
	tx repository.TransactionManager,
	threatModels repository.ThreatModelRepository,
	threats repository.ThreatRepository,
	safeguards repository.SafeguardRepository,
	docs repository.DocumentStore,
	extractor *domainservice.ThreatExtractor,
	matcher *domainservice.SimilarityMatcher,
	scorer domainservice.RiskScorer,
	publisher audit.Publisher,
	metrics *monitoring.Metrics,
	log logger.Logger,
) *MergeAppService {
	return &MergeAppService{
		tx:           tx,
		threatModels: threatModels,
		threats:      threats,
		safeguards:   safeguards,
		docs:         docs,
		extractor:    extractor,
		matcher:      matcher,
		scorer:       scorer,
		publisher:    publisher,
		metrics:      metrics,
		log:          log.WithComponent("MergeAppService"),
	}
}

// MergeModels merges the threats of sourceIDs into the model identified by
// primaryID. A missing primary is fatal and nothing is written; a missing
// source is skipped and recorded in the metrics with zero threats.
func (s *MergeAppService) MergeModels(ctx context.Context, primaryID string, sourceIDs []string, mergedBy string) (*models.MergeResult, error) {
	ctx, span := monitoring.Tracer().Start(ctx, "MergeModels")
	defer span.End()
	start := time.Now()

	primaryID = strings.TrimSpace(primaryID)
	if primaryID == "" {
		return nil, apperrors.ErrValidation("primary model id is required")
	}
	primaryRef := models.ResolveModelRef(primaryID)
	sourceRefs := filterSourceRefs(primaryRef, sourceIDs)
	if len(sourceRefs) == 0 {
		return nil, apperrors.ErrValidation("at least one source model distinct from the primary is required")
	}

	span.SetAttributes(
		attribute.String("merge.primary_id", primaryRef.Raw),
		attribute.String("merge.primary_kind", string(primaryRef.Kind)),
		attribute.Int("merge.source_count", len(sourceRefs)),
	)

	metrics := &models.MergeMetrics{ModelDetails: []models.ModelMergeDetail{}}

	// Load every source up front. Loading is read-only; an unavailable
	// source is recorded and skipped rather than failing the merge.
	var sources []loadedSource
	for _, ref := range sourceRefs {
		src, err := s.loadSource(ctx, ref)
		if err != nil {
			s.log.Warn(ctx, "Skipping unavailable source model",
				logger.String("source_id", ref.Raw),
				logger.String("error", err.Error()),
			)
			metrics.ModelDetails = append(metrics.ModelDetails, models.ModelMergeDetail{
				ID:   ref.Raw,
				Kind: ref.Kind,
			})
			continue
		}
		metrics.SourceModelsProcessed++
		if ref.Kind == models.ModelKindDocument {
			metrics.RedisModelsProcessed++
		}
		sources = append(sources, src)
	}

	mergedAt := time.Now().UTC()
	var summary *models.MergedModelSummary
	var err error
	switch primaryRef.Kind {
	case models.ModelKindDocument:
		summary, err = s.mergeIntoDocument(ctx, primaryRef, sources, sourceRefs, mergedBy, mergedAt, metrics)
	default:
		summary, err = s.mergeIntoRelational(ctx, primaryRef, sources, sourceRefs, mergedBy, mergedAt, metrics)
	}

	duration := time.Since(start)
	if err != nil {
		span.RecordError(err)
		s.metrics.RecordMerge(string(primaryRef.Kind), "error", 0, 0, duration)
		return nil, err
	}
	s.metrics.RecordMerge(string(primaryRef.Kind), "success",
		metrics.TotalThreatsAdded, metrics.TotalThreatsSkipped, duration)

	s.log.Info(ctx, "Merge completed",
		logger.String("primary_id", primaryRef.Raw),
		logger.Int("threats_added", metrics.TotalThreatsAdded),
		logger.Int("threats_skipped", metrics.TotalThreatsSkipped),
		logger.Duration("duration", duration),
	)

	// Audit publishing is best-effort; the merge has already succeeded.
	_ = s.publisher.PublishMergeEvent(ctx, &models.MergeAuditEvent{
		PrimaryModelID: primaryRef.Raw,
		SourceModels:   rawIDs(sourceRefs),
		MergedBy:       mergedBy,
		MergedAt:       mergedAt,
		Metrics:        metrics,
	})

	return &models.MergeResult{Model: *summary, Metrics: metrics}, nil
}

// filterSourceRefs resolves the raw source ids, dropping blanks, duplicates,
// and any reference to the primary itself.
func filterSourceRefs(primary models.ModelRef, sourceIDs []string) []models.ModelRef {
	seen := make(map[string]bool, len(sourceIDs))
	var refs []models.ModelRef
	for _, raw := range sourceIDs {
		raw = strings.TrimSpace(raw)
		if raw == "" || seen[raw] {
			continue
		}
		seen[raw] = true
		ref := models.ResolveModelRef(raw)
		if ref.Kind == primary.Kind && ref.ID == primary.ID {
			continue
		}
		refs = append(refs, ref)
	}
	return refs
}

func rawIDs(refs []models.ModelRef) []string {
	ids := make([]string, len(refs))
	for i, ref := range refs {
		ids[i] = ref.Raw
	}
	return ids
}

// loadSource loads one source model's threats, as rows for relational
// sources and by extraction for document sources.
func (s *MergeAppService) loadSource(ctx context.Context, ref models.ModelRef) (loadedSource, error) {
	switch ref.Kind {
	case models.ModelKindDocument:
		doc, err := s.docs.GetDocument(ctx, ref.ID)
		if err != nil {
			return loadedSource{}, apperrors.ErrSourceUnavailable(ref.Raw).WithCause(err)
		}
		candidates := s.extractor.Extract(doc.Content)
		threats := make([]sourceThreat, len(candidates))
		for i, c := range candidates {
			threats[i] = sourceThreat{candidate: c}
		}
		return loadedSource{ref: ref, name: doc.Title, threats: threats}, nil

	default:
		model, err := s.threatModels.FindByID(ctx, ref.ID)
		if err != nil {
			return loadedSource{}, apperrors.ErrSourceUnavailable(ref.Raw).WithCause(err)
		}
		rows, err := s.threats.ListByModel(ctx, ref.ID)
		if err != nil {
			return loadedSource{}, apperrors.ErrSourceUnavailable(ref.Raw).WithCause(err)
		}
		threats := make([]sourceThreat, len(rows))
		for i, t := range rows {
			threats[i] = sourceThreat{
				candidate: models.ThreatCandidate{
					Title:       t.Title,
					Description: t.Description,
					Mitigation:  t.Mitigation,
					RiskScore:   t.RiskScore,
					Impact:      t.Impact,
					Likelihood:  t.Likelihood,
				},
				sourceThreatID: t.ID,
			}
		}
		return loadedSource{ref: ref, name: model.Name, threats: threats}, nil
	}
}

// mergeIntoRelational folds the sources into a relational primary inside one
// transaction. Any failure rolls back every row written by this merge.
func (s *MergeAppService) mergeIntoRelational(
	ctx context.Context,
	primaryRef models.ModelRef,
	sources []loadedSource,
	sourceRefs []models.ModelRef,
	mergedBy string,
	mergedAt time.Time,
	metrics *models.MergeMetrics,
) (*models.MergedModelSummary, error) {
	var summary models.MergedModelSummary

	err := s.tx.InTransaction(ctx, func(repos repository.TxRepositories) error {
		primary, err := repos.ThreatModels.FindByID(ctx, primaryRef.ID)
		if err != nil {
			return err
		}
		existing, err := repos.Threats.ListByModel(ctx, primary.ID)
		if err != nil {
			return err
		}

		for _, src := range sources {
			detail := models.ModelMergeDetail{
				ID:           src.ref.Raw,
				Name:         src.name,
				Kind:         src.ref.Kind,
				TotalThreats: len(src.threats),
			}
			for _, st := range src.threats {
				if s.matcher.IsDuplicate(st.candidate, existing) {
					detail.ThreatsSkipped++
					continue
				}
				threat := &models.Threat{
					ModelID:         primary.ID,
					Title:           st.candidate.Title,
					Description:     st.candidate.Description,
					Mitigation:      st.candidate.Mitigation,
					RiskScore:       st.candidate.RiskScore,
					Impact:          st.candidate.Impact,
					Likelihood:      st.candidate.Likelihood,
					SourceModelID:   src.ref.Raw,
					SourceModelName: src.name,
				}
				if threat.RiskScore == 0 {
					threat.RiskScore = s.scorer.Score(threat.Description)
				}
				if err := repos.Threats.Create(ctx, threat); err != nil {
					return err
				}
				existing = append(existing, threat)
				detail.ThreatsAdded++

				if st.sourceThreatID != "" {
					added, err := s.copySafeguards(ctx, repos, st.sourceThreatID, threat.ID)
					if err != nil {
						return err
					}
					metrics.TotalSafeguardsAdded += added
				}
			}
			metrics.TotalThreatsAdded += detail.ThreatsAdded
			metrics.TotalThreatsSkipped += detail.ThreatsSkipped
			metrics.ModelDetails = append(metrics.ModelDetails, detail)
		}

		// The merge mutated the model, so it needs re-review.
		meta := &models.MergeMetadata{
			MergedAt:     mergedAt,
			MergedBy:     mergedBy,
			SourceModels: rawIDs(sourceRefs),
			Metrics:      *metrics,
		}
		if err := primary.SetMergeMetadata(meta); err != nil {
			return apperrors.ErrInternal("failed to encode merge metadata", err)
		}
		primary.Version++
		primary.Status = constants.ModelStatusDraft
		if err := repos.ThreatModels.Update(ctx, primary); err != nil {
			return err
		}

		count, err := repos.Threats.CountByModel(ctx, primary.ID)
		if err != nil {
			return err
		}
		summary = models.MergedModelSummary{
			ID:          primary.ID,
			Name:        primary.Name,
			Kind:        models.ModelKindRelational,
			Version:     primary.Version,
			Status:      string(primary.Status),
			ThreatCount: int(count),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

// copySafeguards duplicates the safeguards of a source threat onto the newly
// created destination threat.
func (s *MergeAppService) copySafeguards(ctx context.Context, repos repository.TxRepositories, sourceThreatID, destThreatID string) (int, error) {
	safeguards, err := s.safeguards.ListByThreat(ctx, sourceThreatID)
	if err != nil {
		return 0, err
	}
	for _, sg := range safeguards {
		clone := &models.Safeguard{
			ThreatID:    destThreatID,
			Name:        sg.Name,
			Description: sg.Description,
			Implemented: sg.Implemented,
		}
		if err := repos.Safeguards.Create(ctx, clone); err != nil {
			return 0, err
		}
	}
	return len(safeguards), nil
}

// mergeIntoDocument folds the sources into a document primary. Each
// contributing source appends one section under the generation token; a
// failure after the first successful append leaves the document partially
// merged and is reported as such.
func (s *MergeAppService) mergeIntoDocument(
	ctx context.Context,
	primaryRef models.ModelRef,
	sources []loadedSource,
	sourceRefs []models.ModelRef,
	mergedBy string,
	mergedAt time.Time,
	metrics *models.MergeMetrics,
) (*models.MergedModelSummary, error) {
	doc, err := s.docs.GetDocument(ctx, primaryRef.ID)
	if err != nil {
		return nil, err
	}

	// Threats already in the document are only recoverable by extraction.
	existing := candidatesAsThreats(s.extractor.Extract(doc.Content))

	generation := doc.Generation
	appends := 0
	for _, src := range sources {
		detail := models.ModelMergeDetail{
			ID:           src.ref.Raw,
			Name:         src.name,
			Kind:         src.ref.Kind,
			TotalThreats: len(src.threats),
		}
		var section strings.Builder
		for _, st := range src.threats {
			if s.matcher.IsDuplicate(st.candidate, existing) {
				detail.ThreatsSkipped++
				continue
			}
			score := st.candidate.RiskScore
			if score == 0 {
				score = s.scorer.Score(st.candidate.Description)
			}
			section.WriteString(formatThreatSection(st.candidate, score, src, mergedAt))
			existing = append(existing, &models.Threat{
				Title:       st.candidate.Title,
				Description: st.candidate.Description,
			})
			detail.ThreatsAdded++
		}

		if detail.ThreatsAdded > 0 {
			newGeneration, err := s.docs.AppendSection(ctx, primaryRef.ID, section.String(), generation)
			if err != nil {
				if appends > 0 {
					return nil, apperrors.ErrPartialPersistence(primaryRef.Raw, err)
				}
				return nil, err
			}
			generation = newGeneration
			appends++
		}
		metrics.TotalThreatsAdded += detail.ThreatsAdded
		metrics.TotalThreatsSkipped += detail.ThreatsSkipped
		metrics.ModelDetails = append(metrics.ModelDetails, detail)
	}

	threatCount := doc.ThreatCount
	if metrics.TotalThreatsAdded > 0 {
		threatCount, err = s.docs.IncrementThreatCount(ctx, primaryRef.ID, metrics.TotalThreatsAdded)
		if err != nil {
			if appends > 0 {
				return nil, apperrors.ErrPartialPersistence(primaryRef.Raw, err)
			}
			return nil, err
		}
	}

	meta := &models.MergeMetadata{
		MergedAt:     mergedAt,
		MergedBy:     mergedBy,
		SourceModels: rawIDs(sourceRefs),
		Metrics:      *metrics,
	}
	if err := s.docs.SetMergeMetadata(ctx, primaryRef.ID, meta); err != nil {
		if appends > 0 {
			return nil, apperrors.ErrPartialPersistence(primaryRef.Raw, err)
		}
		return nil, err
	}

	return &models.MergedModelSummary{
		ID:          primaryRef.Raw,
		Name:        doc.Title,
		Kind:        models.ModelKindDocument,
		ThreatCount: threatCount,
	}, nil
}

// candidatesAsThreats adapts extracted candidates to the matcher's existing
// set. Document threats have no durable row id.
func candidatesAsThreats(candidates []models.ThreatCandidate) []*models.Threat {
	threats := make([]*models.Threat, len(candidates))
	for i, c := range candidates {
		threats[i] = &models.Threat{
			Title:       c.Title,
			Description: c.Description,
			Mitigation:  c.Mitigation,
		}
	}
	return threats
}

// formatThreatSection renders one appended threat in the marked-section
// convention so later extractions recover it, with textual provenance.
func formatThreatSection(c models.ThreatCandidate, score int, src loadedSource, mergedAt time.Time) string {
	var b strings.Builder
	b.WriteString("\n\nThreat: ")
	b.WriteString(c.Title)
	b.WriteString("\nDescription: ")
	b.WriteString(c.Description)
	if c.Mitigation != "" {
		b.WriteString("\nMitigation: ")
		b.WriteString(c.Mitigation)
	}
	fmt.Fprintf(&b, "\nRisk Score: %d", score)
	fmt.Fprintf(&b, "\nSource: merged from %s (%s) at %s\n",
		src.name, src.ref.Raw, mergedAt.Format(time.RFC3339))
	return b.String()
}
