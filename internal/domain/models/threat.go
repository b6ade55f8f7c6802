package models

import "time"

// Threat is a persisted threat row belonging to a relational threat model.
// Threats merged in from another model carry provenance in SourceModelID
// and SourceModelName so the destination retains traceability.
type Threat struct {
	ID          string `gorm:"primaryKey;type:varchar(64)" json:"id"`
	ModelID     string `gorm:"type:varchar(64);not null;index" json:"model_id"`
	Title       string `gorm:"type:varchar(512);not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	Mitigation  string `gorm:"type:text" json:"mitigation"`

	// RiskScore is in [1,100]. When a merge source provides no score the
	// merge engine computes one heuristically.
	RiskScore  int    `gorm:"not null;default:50" json:"risk_score"`
	Impact     string `gorm:"type:varchar(32)" json:"impact"`
	Likelihood string `gorm:"type:varchar(32)" json:"likelihood"`

	SourceModelID   string `gorm:"type:varchar(64)" json:"source_model_id,omitempty"`
	SourceModelName string `gorm:"type:varchar(255)" json:"source_model_name,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Threat) TableName() string {
	return "threats"
}

// Safeguard is a countermeasure associated with a threat.
type Safeguard struct {
	ID          string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	ThreatID    string    `gorm:"type:varchar(64);not null;index" json:"threat_id"`
	Name        string    `gorm:"type:varchar(512);not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	Implemented bool      `gorm:"not null;default:false" json:"implemented"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Safeguard) TableName() string {
	return "safeguards"
}
