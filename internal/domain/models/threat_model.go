package models

import (
	"encoding/json"
	"time"

	"github.com/threatsmith/threatsmith/pkg/constants"
)

// ThreatModel is a relational threat model row. Generated (document-store)
// threat models are represented by ThreatModelDocument instead; the two are
// unified only inside the merge engine via ModelRef.
type ThreatModel struct {
	ID          string                `gorm:"primaryKey;type:varchar(64)" json:"id"`
	ProjectID   string                `gorm:"type:varchar(64);index" json:"project_id"`
	Name        string                `gorm:"type:varchar(255);not null" json:"name"`
	Description string                `gorm:"type:text" json:"description"`
	Version     int                   `gorm:"not null;default:1" json:"version"`
	Status      constants.ModelStatus `gorm:"type:varchar(32);not null" json:"status"`

	// MergeMetadata holds the JSON-encoded audit record of the last merge
	// into this model, empty if the model was never a merge destination.
	MergeMetadata string `gorm:"type:text" json:"merge_metadata,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ThreatModel) TableName() string {
	return "threat_models"
}

// SetMergeMetadata serializes and attaches a merge audit record.
func (m *ThreatModel) SetMergeMetadata(meta *MergeMetadata) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	m.MergeMetadata = string(data)
	return nil
}

// GetMergeMetadata deserializes the attached merge audit record, returning
// nil if the model was never merged into.
func (m *ThreatModel) GetMergeMetadata() (*MergeMetadata, error) {
	if m.MergeMetadata == "" {
		return nil, nil
	}
	var meta MergeMetadata
	if err := json.Unmarshal([]byte(m.MergeMetadata), &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// ThreatModelDocument is the in-memory view of a generated threat-model
// document stored in the document backend. The document body is opaque
// generated text; threats inside it are only recoverable by extraction.
type ThreatModelDocument struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Content     string `json:"content"`
	ThreatCount int    `json:"threat_count"`

	// Generation is the optimistic-concurrency token. A writer that
	// observes a generation change between read and write must fail with a
	// conflict instead of overwriting.
	Generation int64 `json:"generation"`
}
