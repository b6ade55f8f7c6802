// Package models defines the domain entities of the threatsmith service:
// projects and their components, threat models with their threats and
// safeguards, scanner vulnerabilities, and the merge bookkeeping types.
package models

import (
	"time"

	"github.com/threatsmith/threatsmith/pkg/constants"
)

// Project groups the threat models and components of one system under
// analysis.
type Project struct {
	ID          string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Name        string    `gorm:"type:varchar(255);not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	Owner       string    `gorm:"type:varchar(255)" json:"owner"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Project) TableName() string {
	return "projects"
}

// Component is an architectural element of a project (service, datastore,
// queue, external dependency). Vulnerability findings attach to components.
type Component struct {
	ID          string                  `gorm:"primaryKey;type:varchar(64)" json:"id"`
	ProjectID   string                  `gorm:"type:varchar(64);not null;index" json:"project_id"`
	Name        string                  `gorm:"type:varchar(255);not null" json:"name"`
	Kind        constants.ComponentKind `gorm:"type:varchar(32)" json:"kind"`
	Description string                  `gorm:"type:text" json:"description"`
	CreatedAt   time.Time               `json:"created_at"`
	UpdatedAt   time.Time               `json:"updated_at"`
}

func (Component) TableName() string {
	return "components"
}
