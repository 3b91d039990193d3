package service

import "github.com/amirulmuuminin/tahfidz-exam-api/internal/models"

// maxSharedHalfPerSlot is the number of half-juz exams one slot can hold.
const maxSharedHalfPerSlot = 2

// SlotDecision is the outcome of testing a proposed booking against the
// current occupants of its slot.
type SlotDecision struct {
	Allowed bool
	Reason  models.ConflictReason
}

// evaluateSlot applies the capacity rules to a slot. The existing set must
// already be filtered to the target (date, period, examiner) group. Any
// exclusive occupant closes the slot; half-juz exams share it up to two, and
// an exclusive proposal never lands on a partially shared slot. This is the
// single capacity authority: searches and inserts both go through it.
func evaluateSlot(existing []models.Booking, proposed models.PortionClass) SlotDecision {
	halves := 0
	for _, occupant := range existing {
		if occupant.PortionClass.IsExclusive() {
			return SlotDecision{Reason: models.ConflictExclusiveOccupied}
		}
		if occupant.PortionClass == models.PortionSharedHalf {
			halves++
		}
	}

	if proposed.IsExclusive() {
		if halves > 0 {
			return SlotDecision{Reason: models.ConflictSharedCapacityFull}
		}
		return SlotDecision{Allowed: true}
	}

	if halves >= maxSharedHalfPerSlot {
		return SlotDecision{Reason: models.ConflictSharedCapacityFull}
	}
	return SlotDecision{Allowed: true}
}

// resolveExaminerID maps an absent examiner reference to the configured
// default examiner so conflict grouping treats both spellings as one person.
func resolveExaminerID(examinerID *string, defaultID string) string {
	if examinerID == nil || *examinerID == "" {
		return defaultID
	}
	return *examinerID
}

// filterSlot selects the co-residents of one slot group across all classes.
func filterSlot(bookings []models.Booking, dateKey, period, examinerID, defaultID string) []models.Booking {
	var occupants []models.Booking
	for _, b := range bookings {
		if b.DateKey != dateKey || b.Period != period {
			continue
		}
		if resolveExaminerID(b.ExaminerID, defaultID) != examinerID {
			continue
		}
		occupants = append(occupants, b)
	}
	return occupants
}
