package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/threatsmith/threatsmith/pkg/constants"
)

func TestScoreEmptyDescriptionIsNeutral(t *testing.T) {
	scorer := NewKeywordRiskScorer()
	assert.Equal(t, constants.NeutralRiskScore, scorer.Score(""))
	assert.Equal(t, constants.NeutralRiskScore, scorer.Score("   "))
}

func TestScoreNoKeywordsIsNeutral(t *testing.T) {
	scorer := NewKeywordRiskScorer()
	assert.Equal(t, constants.NeutralRiskScore,
		scorer.Score("The service logs verbose output during startup."))
}

func TestScoreHighRiskKeywordsRaise(t *testing.T) {
	scorer := NewKeywordRiskScorer()
	// "critical" and "remote code execution" each add the keyword weight.
	score := scorer.Score("Critical flaw allows remote code execution on the host.")
	assert.Equal(t, 60, score)
}

func TestScoreLowRiskKeywordsLower(t *testing.T) {
	scorer := NewKeywordRiskScorer()
	// "minor", "cosmetic", and "unlikely" each subtract the keyword weight.
	score := scorer.Score("A minor cosmetic issue that is unlikely to be noticed.")
	assert.Equal(t, 35, score)
}

func TestScoreClampsToMaximum(t *testing.T) {
	scorer := NewKeywordRiskScorer()
	score := scorer.Score(strings.Repeat("critical ", 30))
	assert.Equal(t, constants.MaxRiskScore, score)
}

func TestScoreClampsToMinimum(t *testing.T) {
	scorer := NewKeywordRiskScorer()
	score := scorer.Score(strings.Repeat("minor ", 30))
	assert.Equal(t, constants.MinRiskScore, score)
}

func TestScoreCaseInsensitive(t *testing.T) {
	scorer := NewKeywordRiskScorer()
	assert.Equal(t, scorer.Score("INJECTION detected"), scorer.Score("injection detected"))
}
