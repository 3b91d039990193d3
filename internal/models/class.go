package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Class represents a study circle (halaqa) whose students take juz exams.
// Schedule holds the weekly availability JSON: weekday key -> period labels.
type Class struct {
	ID        string         `db:"id" json:"id"`
	Name      string         `db:"name" json:"name"`
	Schedule  types.JSONText `db:"schedule" json:"schedule"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}

// ClassFilter defines filter criteria for listing classes.
type ClassFilter struct {
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
