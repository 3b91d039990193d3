package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/amirulmuuminin/tahfidz-exam-api/internal/models"
)

func occupants(classes ...models.PortionClass) []models.Booking {
	var bookings []models.Booking
	for _, class := range classes {
		bookings = append(bookings, models.Booking{PortionClass: class})
	}
	return bookings
}

func TestEvaluateSlotCapacityTable(t *testing.T) {
	cases := []struct {
		name     string
		existing []models.Booking
		proposed models.PortionClass
		allowed  bool
		reason   models.ConflictReason
	}{
		{"exclusive into empty", nil, models.PortionExclusive, true, ""},
		{"half into empty", nil, models.PortionSharedHalf, true, ""},
		{"part into empty", nil, models.PortionMultiPartExclusive, true, ""},
		{"anything onto exclusive", occupants(models.PortionExclusive), models.PortionSharedHalf, false, models.ConflictExclusiveOccupied},
		{"exclusive onto exclusive", occupants(models.PortionExclusive), models.PortionExclusive, false, models.ConflictExclusiveOccupied},
		{"half onto multi part", occupants(models.PortionMultiPartExclusive), models.PortionSharedHalf, false, models.ConflictExclusiveOccupied},
		{"second half shares", occupants(models.PortionSharedHalf), models.PortionSharedHalf, true, ""},
		{"third half rejected", occupants(models.PortionSharedHalf, models.PortionSharedHalf), models.PortionSharedHalf, false, models.ConflictSharedCapacityFull},
		{"exclusive onto one half", occupants(models.PortionSharedHalf), models.PortionExclusive, false, models.ConflictSharedCapacityFull},
		{"part onto one half", occupants(models.PortionSharedHalf), models.PortionMultiPartExclusive, false, models.ConflictSharedCapacityFull},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			decision := evaluateSlot(tc.existing, tc.proposed)
			assert.Equal(t, tc.allowed, decision.Allowed)
			assert.Equal(t, tc.reason, decision.Reason)
		})
	}
}

func TestResolveExaminerID(t *testing.T) {
	other := "ex-2"
	empty := ""
	assert.Equal(t, "ex-default", resolveExaminerID(nil, "ex-default"))
	assert.Equal(t, "ex-default", resolveExaminerID(&empty, "ex-default"))
	assert.Equal(t, "ex-2", resolveExaminerID(&other, "ex-default"))
}

func TestFilterSlotGroupsByResolvedExaminer(t *testing.T) {
	named := "ex-2"
	bookings := []models.Booking{
		{ID: "b1", DateKey: "2026-09-02", Period: "Jam ke-1"},
		{ID: "b2", DateKey: "2026-09-02", Period: "Jam ke-1", ExaminerID: &named},
		{ID: "b3", DateKey: "2026-09-02", Period: "Jam ke-2"},
		{ID: "b4", DateKey: "2026-09-03", Period: "Jam ke-1"},
	}

	group := filterSlot(bookings, "2026-09-02", "Jam ke-1", "ex-default", "ex-default")
	if assert.Len(t, group, 1) {
		assert.Equal(t, "b1", group[0].ID)
	}

	group = filterSlot(bookings, "2026-09-02", "Jam ke-1", "ex-2", "ex-default")
	if assert.Len(t, group, 1) {
		assert.Equal(t, "b2", group[0].ID)
	}
}

func TestClassifyPortion(t *testing.T) {
	assert.Equal(t, models.PortionMultiPartExclusive, classifyPortion(models.ExamKindMultiPart, "full"))
	assert.Equal(t, models.PortionMultiPartExclusive, classifyPortion(models.ExamKindMultiPart, "half"))
	assert.Equal(t, models.PortionExclusive, classifyPortion(models.ExamKindSingle, "full"))
	assert.Equal(t, models.PortionSharedHalf, classifyPortion(models.ExamKindSingle, "half"))
}
