package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractMarkedSections(t *testing.T) {
	document := `Threat: SQL Injection
Description: Attacker injects SQL through the search field of the public API.
Mitigation: Use parameterized queries everywhere.

Threat: Weak Password Policy
Description: Users may choose short guessable passwords for their accounts.
Mitigation: Enforce length and complexity rules.`

	candidates := NewThreatExtractor().Extract(document)
	require.Len(t, candidates, 2)

	assert.Equal(t, "SQL Injection", candidates[0].Title)
	assert.Equal(t, "Attacker injects SQL through the search field of the public API.", candidates[0].Description)
	assert.Equal(t, "Use parameterized queries everywhere.", candidates[0].Mitigation)

	assert.Equal(t, "Weak Password Policy", candidates[1].Title)
	assert.Equal(t, "Enforce length and complexity rules.", candidates[1].Mitigation)
}

func TestExtractThreatSectionsFreeform(t *testing.T) {
	document := `Threat: Session Fixation
An attacker fixes the session id before login and hijacks the session afterwards.
This works because the id is not rotated.
Mitigation: Rotate session ids on every login.`

	candidates := NewThreatExtractor().Extract(document)
	require.Len(t, candidates, 1)

	assert.Equal(t, "Session Fixation", candidates[0].Title)
	assert.Contains(t, candidates[0].Description, "fixes the session id before login")
	assert.Contains(t, candidates[0].Description, "not rotated")
	assert.Equal(t, "Rotate session ids on every login.", candidates[0].Mitigation)
}

func TestExtractHeadingSections(t *testing.T) {
	document := `# Overview

This document describes the threat model of the payment service.

## Spoofing of User Identity

An attacker impersonates a legitimate user by replaying captured tokens.
Mitigation: Bind tokens to client fingerprints.

## Tampering with Audit Records

Database-level access allows silent modification of the audit trail.

## References

RFC 6749.`

	candidates := NewThreatExtractor().Extract(document)
	require.Len(t, candidates, 2)

	assert.Equal(t, "Spoofing of User Identity", candidates[0].Title)
	assert.Equal(t, "Bind tokens to client fingerprints.", candidates[0].Mitigation)
	assert.Equal(t, "Tampering with Audit Records", candidates[1].Title)
}

func TestExtractNumberedItems(t *testing.T) {
	document := `1. Credential Stuffing
Automated login attempts reuse passwords leaked from unrelated breaches to take over accounts.
2. Shopping List
milk, eggs`

	candidates := NewThreatExtractor().Extract(document)
	require.Len(t, candidates, 1)
	assert.Equal(t, "Credential Stuffing", candidates[0].Title)
	assert.Contains(t, candidates[0].Description, "leaked from unrelated breaches")
}

func TestExtractStrategyPriority(t *testing.T) {
	// Marked sections win even when headings are also present.
	document := `## Ignored Heading Threat

Some heading body text that would otherwise parse.

Threat: Marked Threat
Description: This candidate comes from the marked-section convention.`

	candidates := NewThreatExtractor().Extract(document)
	require.Len(t, candidates, 1)
	assert.Equal(t, "Marked Threat", candidates[0].Title)
}

func TestExtractDropsShortDescriptions(t *testing.T) {
	document := `Threat: Too Terse
Description: short

Threat: Kept
Description: This description is long enough to survive filtering.`

	candidates := NewThreatExtractor().Extract(document)
	require.Len(t, candidates, 1)
	assert.Equal(t, "Kept", candidates[0].Title)
}

func TestExtractEmptyDocument(t *testing.T) {
	assert.Nil(t, NewThreatExtractor().Extract(""))
	assert.Nil(t, NewThreatExtractor().Extract("   \n\t  "))
}

func TestExtractNoThreatContent(t *testing.T) {
	document := `# Overview

General prose describing an architecture without any threat sections.`

	assert.Empty(t, NewThreatExtractor().Extract(document))
}

func TestExtractRoundTripOfAppendedSections(t *testing.T) {
	// Sections appended by a merge use the marked convention and must be
	// recoverable by a later extraction.
	document := `Threat: Original Finding
Description: The service trusts client-supplied role headers for authorization.
Mitigation: Derive roles server-side.

Threat: Merged Finding
Description: Backups are stored unencrypted on a shared volume.
Mitigation: Encrypt backups at rest.
Risk Score: 55
Source: merged from Infra Review (redis_abc) at 2026-08-01T10:00:00Z`

	candidates := NewThreatExtractor().Extract(document)
	require.Len(t, candidates, 2)
	assert.Equal(t, "Original Finding", candidates[0].Title)
	assert.Equal(t, "Merged Finding", candidates[1].Title)
	assert.Equal(t, "Backups are stored unencrypted on a shared volume.", candidates[1].Description)
}
