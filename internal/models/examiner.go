package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Examiner conducts oral exams. Schedule holds the same weekly availability
// JSON shape as Class. SupportedPortions is a JSON array of portion classes
// the examiner accepts. MaxExamsPerDay of nil means unlimited.
type Examiner struct {
	ID                string         `db:"id" json:"id"`
	Name              string         `db:"name" json:"name"`
	Schedule          types.JSONText `db:"schedule" json:"schedule"`
	SupportedPortions types.JSONText `db:"supported_portions" json:"supported_portions"`
	MaxExamsPerDay    *int           `db:"max_exams_per_day" json:"max_exams_per_day,omitempty"`
	CreatedAt         time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at" json:"updated_at"`
}

// ExaminerFilter defines filter criteria for listing examiners.
type ExaminerFilter struct {
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
