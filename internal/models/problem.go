package models

// ProblemKind tags a detected scheduling violation.
type ProblemKind string

const (
	// ProblemExcessExclusive: more than one exclusive exam in one slot group.
	ProblemExcessExclusive ProblemKind = "excess_exclusive"
	// ProblemExcessHalf: more than two half-juz exams in one slot group.
	ProblemExcessHalf ProblemKind = "excess_half"
	// ProblemDailyLimit: an examiner exceeds their configured daily quota.
	ProblemDailyLimit ProblemKind = "daily_limit"
)

// ProblemStudentRef identifies one booking involved in a violation.
type ProblemStudentRef struct {
	BookingID string `json:"booking_id"`
	StudentID string `json:"student_id"`
	ClassID   string `json:"class_id"`
	JuzLabel  string `json:"juz_label"`
}

// ProblemReport is one detected violation. The detector derives these from a
// snapshot read and never mutates state.
type ProblemReport struct {
	Kind         ProblemKind         `json:"kind"`
	DateKey      string              `json:"date_key"`
	Period       string              `json:"period,omitempty"`
	ExaminerID   string              `json:"examiner_id"`
	ExaminerName string              `json:"examiner_name,omitempty"`
	BookingCount int                 `json:"booking_count"`
	MaxAllowed   int                 `json:"max_allowed"`
	Students     []ProblemStudentRef `json:"students,omitempty"`
}
