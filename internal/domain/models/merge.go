package models

import (
	"strings"
	"time"

	"github.com/threatsmith/threatsmith/pkg/constants"
)

// ModelKind tags which backend owns a threat model.
type ModelKind string

const (
	// ModelKindRelational marks a model stored as normalized rows.
	ModelKindRelational ModelKind = "relational"
	// ModelKindDocument marks a model stored as a generated text document
	// in the key-value backend.
	ModelKindDocument ModelKind = "document"
)

// ModelRef is a resolved, typed reference to a threat model. It is derived
// once from a raw identifier and threaded through every merge step so the
// raw string is never re-inspected.
type ModelRef struct {
	// Kind selects the owning backend.
	Kind ModelKind
	// ID is the backend-local identifier. For document models the
	// DocumentModelPrefix has already been stripped.
	ID string
	// Raw is the identifier as supplied by the caller, kept for error
	// messages and provenance.
	Raw string
}

// ResolveModelRef classifies a raw model identifier. Pure; existence is not
// checked here. Loaders raise typed errors if the reference turns out not
// to exist.
func ResolveModelRef(rawID string) ModelRef {
	if strings.HasPrefix(rawID, constants.DocumentModelPrefix) {
		return ModelRef{
			Kind: ModelKindDocument,
			ID:   strings.TrimPrefix(rawID, constants.DocumentModelPrefix),
			Raw:  rawID,
		}
	}
	return ModelRef{Kind: ModelKindRelational, ID: rawID, Raw: rawID}
}

// ThreatCandidate is a threat extracted from a document or queried from a
// source model, not yet confirmed as a non-duplicate.
type ThreatCandidate struct {
	Title       string
	Description string
	Mitigation  string

	// RiskScore is zero when the source carried no explicit score; the
	// merge engine then computes one.
	RiskScore  int
	Impact     string
	Likelihood string
}

// ModelMergeDetail records one source model's contribution to a merge.
type ModelMergeDetail struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Kind           ModelKind `json:"kind"`
	TotalThreats   int       `json:"total_threats"`
	ThreatsAdded   int       `json:"threats_added"`
	ThreatsSkipped int       `json:"threats_skipped"`
}

// MergeMetrics is the audit counters accumulated over one merge invocation.
type MergeMetrics struct {
	TotalThreatsAdded     int                `json:"total_threats_added"`
	TotalThreatsSkipped   int                `json:"total_threats_skipped"`
	TotalSafeguardsAdded  int                `json:"total_safeguards_added"`
	SourceModelsProcessed int                `json:"source_models_processed"`
	RedisModelsProcessed  int                `json:"redis_models_processed"`
	ModelDetails          []ModelMergeDetail `json:"model_details"`
}

// MergeMetadata is the immutable audit record attached to the primary model
// after a merge.
type MergeMetadata struct {
	MergedAt     time.Time    `json:"merged_at"`
	MergedBy     string       `json:"merged_by"`
	SourceModels []string     `json:"source_models"`
	Metrics      MergeMetrics `json:"metrics"`
}

// MergedModelSummary describes the primary model after a merge, independent
// of which backend owns it.
type MergedModelSummary struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Kind        ModelKind `json:"kind"`
	Version     int       `json:"version,omitempty"`
	Status      string    `json:"status,omitempty"`
	ThreatCount int       `json:"threat_count"`
}

// MergeResult is what the merge trigger returns to the caller.
type MergeResult struct {
	Model   MergedModelSummary `json:"model"`
	Metrics *MergeMetrics      `json:"metrics"`
}

// MergeAuditEvent is published to the audit topic after a successful merge.
type MergeAuditEvent struct {
	PrimaryModelID string        `json:"primary_model_id"`
	SourceModels   []string      `json:"source_models"`
	MergedBy       string        `json:"merged_by"`
	MergedAt       time.Time     `json:"merged_at"`
	Metrics        *MergeMetrics `json:"metrics"`
}
