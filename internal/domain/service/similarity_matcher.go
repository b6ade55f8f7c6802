package service

import (
	"regexp"
	"strings"

	"github.com/threatsmith/threatsmith/internal/domain/models"
	"github.com/threatsmith/threatsmith/pkg/constants"
)

// minDescriptionTokenLen excludes short tokens from description comparison
// to reduce false positives from stop-word overlap.
const minDescriptionTokenLen = 3

var tokenSplitRe = regexp.MustCompile(`\W+`)

// SimilarityMatcher decides whether a candidate threat duplicates a threat
// already present in the destination model. This is a heuristic, not proof
// of semantic duplication: false positives and false negatives are both
// possible and accepted.
type SimilarityMatcher struct {
	titleThreshold       float64
	descriptionThreshold float64
}

// NewSimilarityMatcher creates a matcher with the default thresholds.
func NewSimilarityMatcher() *SimilarityMatcher {
	return &SimilarityMatcher{
		titleThreshold:       constants.TitleSimilarityThreshold,
		descriptionThreshold: constants.DescriptionSimilarityThreshold,
	}
}

// IsDuplicate reports whether candidate matches any of the existing
// threats: exact case-insensitive title equality, title token overlap above
// the title threshold, or description token overlap above the description
// threshold.
func (m *SimilarityMatcher) IsDuplicate(candidate models.ThreatCandidate, existing []*models.Threat) bool {
	candTitle := strings.TrimSpace(candidate.Title)
	candTitleTokens := tokenize(candidate.Title, 1)
	candDescTokens := tokenize(candidate.Description, minDescriptionTokenLen)

	for _, threat := range existing {
		if strings.EqualFold(candTitle, strings.TrimSpace(threat.Title)) {
			return true
		}
		if jaccard(candTitleTokens, tokenize(threat.Title, 1)) > m.titleThreshold {
			return true
		}
		if jaccard(candDescTokens, tokenize(threat.Description, minDescriptionTokenLen)) > m.descriptionThreshold {
			return true
		}
	}
	return false
}

// tokenize lower-cases the text, splits on non-word boundaries, and keeps
// tokens of at least minLen characters.
func tokenize(text string, minLen int) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, tok := range tokenSplitRe.Split(strings.ToLower(text), -1) {
		if len(tok) >= minLen && tok != "" {
			tokens[tok] = struct{}{}
		}
	}
	return tokens
}

// jaccard computes token-set similarity. Two empty sets are not similar:
// comparing absent descriptions must never flag a duplicate.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}
