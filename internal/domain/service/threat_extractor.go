// Package service contains the domain services of the merge engine: threat
// extraction from generated documents, duplicate detection, and heuristic
// risk scoring.
package service

import (
	"regexp"
	"strings"

	"github.com/threatsmith/threatsmith/internal/domain/models"
)

// minDescriptionLen is the shortest description a candidate may have after
// extraction; shorter candidates are dropped as parsing noise.
const minDescriptionLen = 10

// minListItemBodyLen is the minimum body length for numbered-list items.
// List items are the least specific convention, so the bar is higher to
// reject enumerations that are not genuine threats.
const minListItemBodyLen = 40

// nonThreatHeadings are generic document headings that never introduce a
// threat section.
var nonThreatHeadings = map[string]bool{
	"overview":          true,
	"introduction":      true,
	"summary":           true,
	"conclusion":        true,
	"background":        true,
	"scope":             true,
	"assumptions":       true,
	"references":        true,
	"appendix":          true,
	"table of contents": true,
}

// extractionStrategy is one pure parsing pass over a whole document.
type extractionStrategy struct {
	name    string
	extract func(document string) []models.ThreatCandidate
}

// ThreatExtractor parses a generated threat-model document into structured
// threat candidates. Strategies are tried in priority order, most specific
// first; the first strategy yielding at least one candidate wins and the
// rest are skipped, so the same content is never counted under two
// interpretations.
type ThreatExtractor struct {
	strategies []extractionStrategy
}

// NewThreatExtractor creates an extractor with the default strategy order.
func NewThreatExtractor() *ThreatExtractor {
	return &ThreatExtractor{
		strategies: []extractionStrategy{
			{name: "marked_sections", extract: extractMarkedSections},
			{name: "threat_sections", extract: extractThreatSections},
			{name: "heading_sections", extract: extractHeadingSections},
			{name: "numbered_items", extract: extractNumberedItems},
		},
	}
}

// Extract returns the threat candidates found in the document, in document
// order. An empty result means no strategy recognized any threat content.
func (e *ThreatExtractor) Extract(document string) []models.ThreatCandidate {
	if strings.TrimSpace(document) == "" {
		return nil
	}
	for _, strategy := range e.strategies {
		candidates := filterCandidates(strategy.extract(document))
		if len(candidates) > 0 {
			return candidates
		}
	}
	return nil
}

// filterCandidates drops candidates whose description is empty or too short
// after trimming.
func filterCandidates(candidates []models.ThreatCandidate) []models.ThreatCandidate {
	filtered := make([]models.ThreatCandidate, 0, len(candidates))
	for _, c := range candidates {
		c.Title = strings.TrimSpace(c.Title)
		c.Description = strings.TrimSpace(c.Description)
		c.Mitigation = strings.TrimSpace(c.Mitigation)
		if c.Title == "" || len(c.Description) < minDescriptionLen {
			continue
		}
		filtered = append(filtered, c)
	}
	return filtered
}

var (
	threatMarkerRe   = regexp.MustCompile(`(?i)^threat:\s*(.*)$`)
	descMarkerRe     = regexp.MustCompile(`(?i)^description:\s*(.*)$`)
	mitigationRe     = regexp.MustCompile(`(?i)^mitigation:\s*(.*)$`)
	headingRe        = regexp.MustCompile(`^#{1,6}\s+(.+?)\s*$`)
	numberedItemRe   = regexp.MustCompile(`^\s*\d+[.)]\s+(.+)$`)
)

// splitThreatSections splits a document at lines beginning with "Threat:".
// Each returned section starts with its title line.
func splitThreatSections(document string) [][]string {
	lines := strings.Split(document, "\n")
	var sections [][]string
	var current []string
	for _, line := range lines {
		if threatMarkerRe.MatchString(strings.TrimSpace(line)) {
			if current != nil {
				sections = append(sections, current)
			}
			current = []string{strings.TrimSpace(line)}
			continue
		}
		if current != nil {
			current = append(current, line)
		}
	}
	if current != nil {
		sections = append(sections, current)
	}
	return sections
}

// extractMarkedSections handles the most explicit convention:
//
//	Threat: <title>
//	Description: <text...>
//	Mitigation: <text...>
//
// Sections without an explicit Description: marker yield nothing here and
// fall through to the next strategy.
func extractMarkedSections(document string) []models.ThreatCandidate {
	var candidates []models.ThreatCandidate
	for _, section := range splitThreatSections(document) {
		title := threatMarkerRe.FindStringSubmatch(section[0])[1]

		var desc, mitigation []string
		target := 0 // 0: none, 1: description, 2: mitigation
		hasDescMarker := false
		for _, line := range section[1:] {
			trimmed := strings.TrimSpace(line)
			if m := descMarkerRe.FindStringSubmatch(trimmed); m != nil {
				hasDescMarker = true
				target = 1
				if m[1] != "" {
					desc = append(desc, m[1])
				}
				continue
			}
			if m := mitigationRe.FindStringSubmatch(trimmed); m != nil {
				target = 2
				if m[1] != "" {
					mitigation = append(mitigation, m[1])
				}
				continue
			}
			switch target {
			case 1:
				desc = append(desc, line)
			case 2:
				mitigation = append(mitigation, line)
			}
		}
		if !hasDescMarker {
			continue
		}
		candidates = append(candidates, models.ThreatCandidate{
			Title:       title,
			Description: strings.TrimSpace(strings.Join(desc, "\n")),
			Mitigation:  strings.TrimSpace(strings.Join(mitigation, "\n")),
		})
	}
	return candidates
}

// extractThreatSections handles "Threat:" headers with free-form bodies. A
// trailing "Mitigation:" marker, if present, splits description from
// mitigation.
func extractThreatSections(document string) []models.ThreatCandidate {
	var candidates []models.ThreatCandidate
	for _, section := range splitThreatSections(document) {
		title := threatMarkerRe.FindStringSubmatch(section[0])[1]

		var desc, mitigation []string
		inMitigation := false
		for _, line := range section[1:] {
			trimmed := strings.TrimSpace(line)
			if m := mitigationRe.FindStringSubmatch(trimmed); m != nil {
				inMitigation = true
				if m[1] != "" {
					mitigation = append(mitigation, m[1])
				}
				continue
			}
			if inMitigation {
				mitigation = append(mitigation, line)
			} else {
				desc = append(desc, line)
			}
		}
		candidates = append(candidates, models.ThreatCandidate{
			Title:       title,
			Description: strings.TrimSpace(strings.Join(desc, "\n")),
			Mitigation:  strings.TrimSpace(strings.Join(mitigation, "\n")),
		})
	}
	return candidates
}

// extractHeadingSections treats generic markdown headings as threat titles,
// excluding known non-threat headings. The section body is the description;
// a "Mitigation:" marker inside the body splits it.
func extractHeadingSections(document string) []models.ThreatCandidate {
	lines := strings.Split(document, "\n")
	var candidates []models.ThreatCandidate

	var title string
	var body []string
	flush := func() {
		if title == "" {
			return
		}
		desc, mitigation := splitOnMitigation(body)
		candidates = append(candidates, models.ThreatCandidate{
			Title:       title,
			Description: desc,
			Mitigation:  mitigation,
		})
		title, body = "", nil
	}

	for _, line := range lines {
		if m := headingRe.FindStringSubmatch(line); m != nil {
			flush()
			if nonThreatHeadings[strings.ToLower(strings.TrimSpace(m[1]))] {
				title = ""
				continue
			}
			title = m[1]
			continue
		}
		if title != "" {
			body = append(body, line)
		}
	}
	flush()
	return candidates
}

// splitOnMitigation splits section body lines at a "Mitigation:" marker.
func splitOnMitigation(body []string) (string, string) {
	var desc, mitigation []string
	inMitigation := false
	for _, line := range body {
		if m := mitigationRe.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			inMitigation = true
			if m[1] != "" {
				mitigation = append(mitigation, m[1])
			}
			continue
		}
		if inMitigation {
			mitigation = append(mitigation, line)
		} else {
			desc = append(desc, line)
		}
	}
	return strings.TrimSpace(strings.Join(desc, "\n")),
		strings.TrimSpace(strings.Join(mitigation, "\n"))
}

// extractNumberedItems is the last-resort strategy: numbered list items
// whose first line is the title and whose remaining lines form the body. A
// minimum body length rejects list items that are not genuine threats.
func extractNumberedItems(document string) []models.ThreatCandidate {
	lines := strings.Split(document, "\n")
	var candidates []models.ThreatCandidate

	var title string
	var body []string
	flush := func() {
		if title == "" {
			return
		}
		joined := strings.TrimSpace(strings.Join(body, "\n"))
		if len(joined) >= minListItemBodyLen {
			desc, mitigation := splitOnMitigation(body)
			candidates = append(candidates, models.ThreatCandidate{
				Title:       title,
				Description: desc,
				Mitigation:  mitigation,
			})
		}
		title, body = "", nil
	}

	for _, line := range lines {
		if m := numberedItemRe.FindStringSubmatch(line); m != nil {
			flush()
			title = m[1]
			continue
		}
		if title != "" {
			body = append(body, line)
		}
	}
	flush()
	return candidates
}
