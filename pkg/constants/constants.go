// Package constants defines shared enumerations and conventions for the
// threatsmith service.
package constants

// ModelStatus is the review status of a relational threat model.
type ModelStatus string

const (
	// ModelStatusDraft marks a model that needs (re-)review. Models are
	// reset to draft after a merge mutates them.
	ModelStatusDraft ModelStatus = "draft"
	// ModelStatusInReview marks a model under active review.
	ModelStatusInReview ModelStatus = "in_review"
	// ModelStatusApproved marks a reviewed and signed-off model.
	ModelStatusApproved ModelStatus = "approved"
	// ModelStatusArchived marks a model kept for history only.
	ModelStatusArchived ModelStatus = "archived"
)

// DocumentModelPrefix distinguishes document-store model identifiers from
// relational ones. It is stripped before key construction.
const DocumentModelPrefix = "redis_"

// Document key suffixes. Each generated threat-model document is addressed
// by a family of keys under its id: tm:{id}:{suffix}.
const (
	DocumentKeyTitle       = "title"
	DocumentKeyContent     = "content"
	DocumentKeyThreatCount = "threat_count"
	DocumentKeyMergeMeta   = "merge_metadata"
	DocumentKeyGeneration  = "generation"
)

// Similarity thresholds for threat deduplication.
const (
	// TitleSimilarityThreshold is the token-overlap cutoff above which two
	// threat titles are considered the same threat.
	TitleSimilarityThreshold = 0.7
	// DescriptionSimilarityThreshold is the token-overlap cutoff for threat
	// descriptions.
	DescriptionSimilarityThreshold = 0.8
)

// Risk score bounds. Scores outside the range are clamped.
const (
	MinRiskScore     = 1
	MaxRiskScore     = 100
	NeutralRiskScore = 50
)

// ComponentKind classifies an architectural component of a project.
type ComponentKind string

const (
	ComponentKindService   ComponentKind = "service"
	ComponentKindDatastore ComponentKind = "datastore"
	ComponentKindQueue     ComponentKind = "queue"
	ComponentKindExternal  ComponentKind = "external"
)

// VulnerabilitySeverity is the severity reported by an external scanner.
type VulnerabilitySeverity string

const (
	SeverityCritical VulnerabilitySeverity = "critical"
	SeverityHigh     VulnerabilitySeverity = "high"
	SeverityMedium   VulnerabilitySeverity = "medium"
	SeverityLow      VulnerabilitySeverity = "low"
	SeverityInfo     VulnerabilitySeverity = "info"
)

// ContextKey is the type for request-scoped context values.
type ContextKey string

const (
	// ContextKeyRequestID carries the per-request correlation id.
	ContextKeyRequestID ContextKey = "request_id"
)
