package dto

import "github.com/amirulmuuminin/tahfidz-exam-api/internal/models"

// NearestSlotsQuery asks for the nearest open slots for a class.
type NearestSlotsQuery struct {
	ClassID    string          `form:"class_id" validate:"required"`
	ExamKind   models.ExamKind `form:"exam_kind" validate:"required,oneof=non-5juz 5juz"`
	JuzPortion string          `form:"juz_portion" validate:"omitempty,oneof=full half"`
	ExaminerID string          `form:"examiner_id"`
}

// NearestSlotsResponse carries every open slot on the found dates.
type NearestSlotsResponse struct {
	Slots         []models.AvailableSlot `json:"slots"`
	DistinctDates int                    `json:"distinct_dates"`
	HorizonDays   int                    `json:"horizon_days"`
}
