package models

import "time"

// PortionClass is the capacity class of a booking. It is an explicit tagged
// attribute set at creation time, never derived from the juz label.
type PortionClass string

const (
	// PortionExclusive consumes an entire slot (one full juz).
	PortionExclusive PortionClass = "exclusive"
	// PortionSharedHalf shares a slot with at most one other half-juz exam.
	PortionSharedHalf PortionClass = "shared_half"
	// PortionMultiPartExclusive is one part of a 5-juz exam group. It
	// occupies its slot exclusively, like PortionExclusive.
	PortionMultiPartExclusive PortionClass = "multi_part_exclusive"
)

// IsExclusive reports whether the class consumes a whole slot by itself.
func (p PortionClass) IsExclusive() bool {
	return p == PortionExclusive || p == PortionMultiPartExclusive
}

// ExamKind distinguishes single-juz registrations from 5-juz multi-part ones.
type ExamKind string

const (
	ExamKindSingle    ExamKind = "non-5juz"
	ExamKindMultiPart ExamKind = "5juz"
)

// BookingStatus tracks the exam lifecycle.
type BookingStatus string

const (
	BookingScheduled BookingStatus = "scheduled"
	BookingCompleted BookingStatus = "completed"
)

// Booking is one scheduled exam occupying a single (date, period) slot.
// ExaminerID of nil means the configured default examiner. Multi-part exams
// produce one Booking per part sharing a GroupID with PartNumber 1..K.
type Booking struct {
	ID           string        `db:"id" json:"id"`
	ClassID      string        `db:"class_id" json:"class_id"`
	StudentID    string        `db:"student_id" json:"student_id"`
	DateKey      string        `db:"date_key" json:"date_key"`
	Period       string        `db:"period" json:"period"`
	PortionClass PortionClass  `db:"portion_class" json:"portion_class"`
	JuzLabel     string        `db:"juz_label" json:"juz_label"`
	ExaminerID   *string       `db:"examiner_id" json:"examiner_id,omitempty"`
	GroupID      *string       `db:"group_id" json:"group_id,omitempty"`
	PartNumber   *int          `db:"part_number" json:"part_number,omitempty"`
	Status       BookingStatus `db:"status" json:"status"`
	Score        *int          `db:"score" json:"score,omitempty"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time     `db:"updated_at" json:"updated_at"`
}

// BookingFilter defines filter criteria for listing bookings.
type BookingFilter struct {
	ClassID    string
	StudentID  string
	ExaminerID string
	DateKey    string
	Status     string
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}

// ConflictReason explains why a proposed booking was rejected.
type ConflictReason string

const (
	// ConflictExclusiveOccupied: the slot already holds an exclusive exam.
	ConflictExclusiveOccupied ConflictReason = "exclusive_occupied"
	// ConflictSharedCapacityFull: the slot already holds two half-juz exams,
	// or an exclusive exam was proposed on top of a half-juz one.
	ConflictSharedCapacityFull ConflictReason = "shared_capacity_full"
	// ConflictDuplicatePart: two parts of one multi-part submission target
	// the same slot.
	ConflictDuplicatePart ConflictReason = "duplicate_part"
)

// SlotConflictError is returned when a booking collides with existing
// occupants of its target slot.
type SlotConflictError struct {
	DateKey    string         `json:"date_key"`
	Period     string         `json:"period"`
	ExaminerID string         `json:"examiner_id"`
	Reason     ConflictReason `json:"reason"`
	Occupants  []Booking      `json:"occupants,omitempty"`
}

// Error implements the error interface for conflict errors.
func (e *SlotConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return "slot " + e.DateKey + " " + e.Period + " unavailable: " + string(e.Reason)
}
