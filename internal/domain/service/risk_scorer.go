package service

import (
	"strings"

	"github.com/threatsmith/threatsmith/pkg/constants"
)

// RiskScorer assigns a risk score in [1,100] to a threat description. It is
// an interface so a stricter or model-based scorer can replace the keyword
// heuristic without changing the merge orchestrator.
type RiskScorer interface {
	Score(description string) int
}

// highRiskKeywords raise the score by riskKeywordWeight per occurrence.
var highRiskKeywords = []string{
	"critical",
	"severe",
	"remote code execution",
	"unauthenticated",
	"injection",
	"privilege escalation",
	"escalation",
	"bypass",
	"exfiltration",
	"data breach",
	"full compromise",
	"arbitrary code",
	"admin",
	"root access",
	"credential theft",
	"denial of service",
	"widespread",
}

// lowRiskKeywords lower the score by riskKeywordWeight per occurrence.
var lowRiskKeywords = []string{
	"minor",
	"minimal",
	"low impact",
	"limited",
	"unlikely",
	"informational",
	"local access only",
	"internal only",
	"requires physical access",
	"negligible",
	"cosmetic",
}

const riskKeywordWeight = 5

// KeywordRiskScorer scores threats from keyword occurrences in the
// description. Brittle and vocabulary-specific; acceptable as a default
// when a source record carries no explicit score.
type KeywordRiskScorer struct{}

// NewKeywordRiskScorer creates the default scorer.
func NewKeywordRiskScorer() *KeywordRiskScorer {
	return &KeywordRiskScorer{}
}

// Score starts at the neutral score, adds the keyword weight per high-risk
// keyword occurrence, subtracts it per low-risk keyword occurrence, and
// clamps the result to [1,100]. Empty input scores neutral.
func (s *KeywordRiskScorer) Score(description string) int {
	score := constants.NeutralRiskScore
	if strings.TrimSpace(description) == "" {
		return score
	}

	lowered := strings.ToLower(description)
	for _, keyword := range highRiskKeywords {
		score += riskKeywordWeight * strings.Count(lowered, keyword)
	}
	for _, keyword := range lowRiskKeywords {
		score -= riskKeywordWeight * strings.Count(lowered, keyword)
	}

	if score < constants.MinRiskScore {
		score = constants.MinRiskScore
	}
	if score > constants.MaxRiskScore {
		score = constants.MaxRiskScore
	}
	return score
}
