package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/threatsmith/threatsmith/internal/domain/models"
)

func existingThreats(titles ...string) []*models.Threat {
	threats := make([]*models.Threat, len(titles))
	for i, title := range titles {
		threats[i] = &models.Threat{Title: title}
	}
	return threats
}

func TestIsDuplicateExactTitleCaseInsensitive(t *testing.T) {
	matcher := NewSimilarityMatcher()
	candidate := models.ThreatCandidate{Title: "sql injection", Description: "whatever text"}

	assert.True(t, matcher.IsDuplicate(candidate, existingThreats("SQL Injection")))
}

func TestIsDuplicateTitleTokenOverlap(t *testing.T) {
	matcher := NewSimilarityMatcher()
	candidate := models.ThreatCandidate{Title: "SQL injection in search endpoint"}
	existing := existingThreats("SQL injection in search endpoint today")

	// 5 of 6 tokens shared, above the title threshold.
	assert.True(t, matcher.IsDuplicate(candidate, existing))
}

func TestIsDuplicateDescriptionOverlap(t *testing.T) {
	matcher := NewSimilarityMatcher()
	candidate := models.ThreatCandidate{
		Title:       "Token Replay",
		Description: "Captured bearer tokens can be replayed against the internal admin gateway without detection",
	}
	existing := []*models.Threat{{
		Title:       "Completely Different Name",
		Description: "Captured bearer tokens can be replayed against the internal admin gateway without any detection",
	}}

	assert.True(t, matcher.IsDuplicate(candidate, existing))
}

func TestIsDuplicateDistinctThreats(t *testing.T) {
	matcher := NewSimilarityMatcher()
	candidate := models.ThreatCandidate{
		Title:       "Unencrypted Backups",
		Description: "Backups are written to a shared volume without encryption at rest",
	}
	existing := []*models.Threat{{
		Title:       "Phishing Campaign",
		Description: "Employees disclose credentials on cloned login pages",
	}}

	assert.False(t, matcher.IsDuplicate(candidate, existing))
}

func TestIsDuplicateEmptyExisting(t *testing.T) {
	matcher := NewSimilarityMatcher()
	candidate := models.ThreatCandidate{Title: "Anything", Description: "some description"}

	assert.False(t, matcher.IsDuplicate(candidate, nil))
}

func TestIsDuplicateEmptyDescriptionsNeverMatch(t *testing.T) {
	matcher := NewSimilarityMatcher()
	// Both descriptions empty: description similarity must not fire.
	candidate := models.ThreatCandidate{Title: "Alpha"}
	existing := []*models.Threat{{Title: "Beta"}}

	assert.False(t, matcher.IsDuplicate(candidate, existing))
}
