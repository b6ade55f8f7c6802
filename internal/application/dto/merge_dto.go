// Package dto defines the request payloads of the HTTP interface.
package dto

// MergeRequest triggers a merge of source models into the primary model
// named in the URL.
type MergeRequest struct {
	SourceModelIDs []string `json:"source_model_ids" binding:"required"`
	MergedBy       string   `json:"merged_by"`
}

// StoreDocumentRequest stores a generated threat-model document.
type StoreDocumentRequest struct {
	ID      string `json:"id"`
	Title   string `json:"title" binding:"required"`
	Content string `json:"content" binding:"required"`
}

// SettingRequest sets one configuration key.
type SettingRequest struct {
	Value string `json:"value" binding:"required"`
}
