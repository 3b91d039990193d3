package models

import "time"

// Student belongs to exactly one class. Deleting a student removes their
// bookings; deleting a class cascades through its students.
type Student struct {
	ID        string    `db:"id" json:"id"`
	ClassID   string    `db:"class_id" json:"class_id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// StudentFilter defines filter criteria for listing students.
type StudentFilter struct {
	ClassID   string
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
