package dto

import "github.com/amirulmuuminin/tahfidz-exam-api/internal/models"

// SlotSelection pins one (date, period) choice from the availability search.
type SlotSelection struct {
	DateKey string `json:"date_key" validate:"required,datetime=2006-01-02"`
	Period  string `json:"period" validate:"required"`
}

// CreateBookingRequest registers a single-slot exam. JuzPortion is the
// explicit capacity tag: the engine never infers it from JuzLabel.
type CreateBookingRequest struct {
	ClassID    string        `json:"class_id" validate:"required"`
	StudentID  string        `json:"student_id" validate:"required"`
	JuzLabel   string        `json:"juz_label" validate:"required"`
	JuzPortion string        `json:"juz_portion" validate:"required,oneof=full half"`
	ExaminerID *string       `json:"examiner_id,omitempty"`
	Slot       SlotSelection `json:"slot" validate:"required"`
}

// CreateMultiPartBookingRequest registers a 5-juz exam: one slot per part,
// committed atomically or not at all.
type CreateMultiPartBookingRequest struct {
	ClassID    string          `json:"class_id" validate:"required"`
	StudentID  string          `json:"student_id" validate:"required"`
	JuzLabels  []string        `json:"juz_labels" validate:"required,len=5,dive,required"`
	ExaminerID *string         `json:"examiner_id,omitempty"`
	Slots      []SlotSelection `json:"slots" validate:"required,len=5,dive"`
}

// CompleteBookingRequest records the result of a finished exam.
type CompleteBookingRequest struct {
	Score int `json:"score" validate:"min=0,max=100"`
}

// BookingResponse is the wire form of a stored booking.
type BookingResponse struct {
	Booking models.Booking `json:"booking"`
}

// MultiPartBookingResponse returns the whole committed group.
type MultiPartBookingResponse struct {
	GroupID  string           `json:"group_id"`
	Bookings []models.Booking `json:"bookings"`
}
