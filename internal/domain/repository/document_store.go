package repository

import (
	"context"

	"github.com/threatsmith/threatsmith/internal/domain/models"
)

// DocumentStore is the key-value backend holding generated threat-model
// documents. Each document is addressed by a family of keys under its id:
// title, content, threat count, merge metadata, and a generation token used
// for optimistic concurrency. Writes here are not transactional; a failure
// mid-merge can leave a document partially updated.
type DocumentStore interface {
	// Get and Set operate on raw keys. The typed methods below are built
	// on them and should be preferred.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error

	// Exists reports whether a document's required keys (title and
	// content) are present.
	Exists(ctx context.Context, modelID string) (bool, error)

	// GetDocument loads a full document. Returns a not-found error when
	// the required keys are absent.
	GetDocument(ctx context.Context, modelID string) (*models.ThreatModelDocument, error)

	// PutDocument stores a full document, initializing its generation.
	PutDocument(ctx context.Context, doc *models.ThreatModelDocument) error

	// AppendSection appends text to a document's content if and only if
	// its generation still equals expectedGeneration; on success the
	// generation is bumped and returned. A concurrent writer surfaces as a
	// conflict error.
	AppendSection(ctx context.Context, modelID, section string, expectedGeneration int64) (int64, error)

	// IncrementThreatCount adjusts the document's threat-count key.
	IncrementThreatCount(ctx context.Context, modelID string, delta int) (int, error)

	// SetMergeMetadata writes the JSON-encoded merge audit record for a
	// document.
	SetMergeMetadata(ctx context.Context, modelID string, meta *models.MergeMetadata) error

	// GetMergeMetadata reads a document's merge audit record, nil when the
	// document was never a merge destination.
	GetMergeMetadata(ctx context.Context, modelID string) (*models.MergeMetadata, error)
}
