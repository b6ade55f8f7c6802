package models

import (
	"time"

	"github.com/threatsmith/threatsmith/pkg/constants"
)

// Vulnerability is a finding imported from an external scanner and linked to
// a project component. Findings are upserted by (scanner, external_id).
type Vulnerability struct {
	ID          string                          `gorm:"primaryKey;type:varchar(64)" json:"id"`
	ComponentID string                          `gorm:"type:varchar(64);index" json:"component_id"`
	Scanner     string                          `gorm:"type:varchar(128);not null;uniqueIndex:idx_scanner_external" json:"scanner"`
	ExternalID  string                          `gorm:"type:varchar(255);not null;uniqueIndex:idx_scanner_external" json:"external_id"`
	Title       string                          `gorm:"type:varchar(512);not null" json:"title"`
	Description string                          `gorm:"type:text" json:"description"`
	Severity    constants.VulnerabilitySeverity `gorm:"type:varchar(16)" json:"severity"`
	CVE         string                          `gorm:"type:varchar(32)" json:"cve,omitempty"`
	FirstSeenAt time.Time                       `json:"first_seen_at"`
	LastSeenAt  time.Time                       `json:"last_seen_at"`
}

func (Vulnerability) TableName() string {
	return "vulnerabilities"
}

// Setting is a single key/value configuration row.
type Setting struct {
	Key       string    `gorm:"primaryKey;type:varchar(255)" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Setting) TableName() string {
	return "settings"
}
