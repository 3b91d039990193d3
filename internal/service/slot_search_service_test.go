package service

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amirulmuuminin/tahfidz-exam-api/internal/dto"
	"github.com/amirulmuuminin/tahfidz-exam-api/internal/models"
	"github.com/amirulmuuminin/tahfidz-exam-api/pkg/config"
)

type stubClassRepo struct {
	class *models.Class
	err   error
}

func (s *stubClassRepo) FindByID(ctx context.Context, id string) (*models.Class, error) {
	return s.class, s.err
}

type stubExaminerRepo struct {
	examiner *models.Examiner
	err      error
}

func (s *stubExaminerRepo) FindByID(ctx context.Context, id string) (*models.Examiner, error) {
	return s.examiner, s.err
}

type stubBookingRange struct {
	bookings []models.Booking
}

func (s *stubBookingRange) ListByDateRange(ctx context.Context, startKey, endKey string) ([]models.Booking, error) {
	return s.bookings, nil
}

func testEngineConfig() config.EngineConfig {
	return config.EngineConfig{
		DefaultExaminerID: "ex-default",
		SearchHorizonDays: 30,
		TargetDates:       5,
		MultiTargetDates:  10,
		InsertRetries:     3,
		SlotLockTTL:       5 * time.Second,
		ExaminerCacheTTL:  time.Minute,
	}
}

// newSearchFixture pins "now" to a Sunday so the walk starts on Monday.
func newSearchFixture(t *testing.T, class *models.Class, examiner *models.Examiner, bookings []models.Booking) *SlotSearchService {
	t.Helper()
	svc := NewSlotSearchService(
		&stubClassRepo{class: class},
		&stubExaminerRepo{examiner: examiner},
		&stubBookingRange{bookings: bookings},
		nil, nil, testEngineConfig(), nil, nil,
	)
	svc.now = func() time.Time {
		return time.Date(2026, time.September, 6, 12, 0, 0, 0, time.UTC)
	}
	return svc
}

func TestNearestSlotsIntersectsExaminerAvailability(t *testing.T) {
	class := &models.Class{
		ID:       "c1",
		Schedule: types.JSONText(`{"senin": ["Jam ke-1", "Jam ke-2", "Jam ke-3"]}`),
	}
	examiner := &models.Examiner{
		ID:       "ex-1",
		Schedule: types.JSONText(`{"senin": ["Jam ke-2", "Jam ke-3", "Jam ke-4"]}`),
	}
	svc := newSearchFixture(t, class, examiner, nil)

	result, err := svc.NearestSlots(context.Background(), dto.NearestSlotsQuery{
		ClassID:    "c1",
		ExamKind:   models.ExamKindSingle,
		JuzPortion: "full",
		ExaminerID: "ex-1",
	})
	require.NoError(t, err)

	require.NotEmpty(t, result.Slots)
	for _, slot := range result.Slots {
		assert.Equal(t, models.DaySenin, slot.Weekday)
		assert.Contains(t, []string{"Jam ke-2", "Jam ke-3"}, slot.Period)
	}
	assert.Equal(t, "2026-09-07", result.Slots[0].DateKey)
	assert.Equal(t, 1, result.Slots[0].DistanceInDays)
}

func TestNearestSlotsEmptyAvailabilityIsNotAnError(t *testing.T) {
	class := &models.Class{ID: "c1", Schedule: types.JSONText(`{}`)}
	svc := newSearchFixture(t, class, nil, nil)

	result, err := svc.NearestSlots(context.Background(), dto.NearestSlotsQuery{
		ClassID:    "c1",
		ExamKind:   models.ExamKindSingle,
		JuzPortion: "full",
	})
	require.NoError(t, err)
	assert.Empty(t, result.Slots)
	assert.Zero(t, result.DistinctDates)
	assert.Equal(t, 30, result.HorizonDays)
}

func TestNearestSlotsAppliesDayCap(t *testing.T) {
	class := &models.Class{
		ID:       "c1",
		Schedule: types.JSONText(`{"selasa": ["Jam ke-4", "Jam ke-5"]}`),
	}
	svc := newSearchFixture(t, class, nil, nil)

	result, err := svc.NearestSlots(context.Background(), dto.NearestSlotsQuery{
		ClassID:    "c1",
		ExamKind:   models.ExamKindSingle,
		JuzPortion: "full",
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.Slots)
	for _, slot := range result.Slots {
		assert.Equal(t, "Jam ke-4", slot.Period)
	}
}

func TestNearestSlotsStopsAtDistinctDateTarget(t *testing.T) {
	class := &models.Class{
		ID:       "c1",
		Schedule: types.JSONText(`{"senin": ["Jam ke-1"], "selasa": ["Jam ke-1"], "rabu": ["Jam ke-1"], "kamis": ["Jam ke-1"], "jumat": ["Jam ke-1"]}`),
	}
	svc := newSearchFixture(t, class, nil, nil)

	result, err := svc.NearestSlots(context.Background(), dto.NearestSlotsQuery{
		ClassID:    "c1",
		ExamKind:   models.ExamKindSingle,
		JuzPortion: "full",
	})
	require.NoError(t, err)
	assert.Equal(t, 5, result.DistinctDates)
	assert.Len(t, result.Slots, 5)

	// Chronological order by date then period ordinal.
	for i := 1; i < len(result.Slots); i++ {
		assert.True(t, result.Slots[i-1].DateKey < result.Slots[i].DateKey)
	}
}

func TestNearestSlotsMultiPartUsesLargerTarget(t *testing.T) {
	class := &models.Class{
		ID:       "c1",
		Schedule: types.JSONText(`{"senin": ["Jam ke-1"], "selasa": ["Jam ke-1"], "rabu": ["Jam ke-1"], "kamis": ["Jam ke-1"], "jumat": ["Jam ke-1"]}`),
	}
	svc := newSearchFixture(t, class, nil, nil)

	result, err := svc.NearestSlots(context.Background(), dto.NearestSlotsQuery{
		ClassID:  "c1",
		ExamKind: models.ExamKindMultiPart,
	})
	require.NoError(t, err)
	assert.Equal(t, 10, result.DistinctDates)
}

func TestNearestSlotsSkipsOccupiedSlots(t *testing.T) {
	class := &models.Class{
		ID:       "c1",
		Schedule: types.JSONText(`{"senin": ["Jam ke-1", "Jam ke-2"]}`),
	}
	// Another class already holds Monday Jam ke-1 exclusively under the
	// default examiner.
	booked := []models.Booking{
		{ID: "b1", ClassID: "c2", DateKey: "2026-09-07", Period: "Jam ke-1", PortionClass: models.PortionExclusive},
	}
	svc := newSearchFixture(t, class, nil, booked)

	result, err := svc.NearestSlots(context.Background(), dto.NearestSlotsQuery{
		ClassID:    "c1",
		ExamKind:   models.ExamKindSingle,
		JuzPortion: "full",
	})
	require.NoError(t, err)
	for _, slot := range result.Slots {
		if slot.DateKey == "2026-09-07" {
			assert.NotEqual(t, "Jam ke-1", slot.Period)
		}
	}
}

func TestNearestSlotsHalfJoinsPartiallySharedSlot(t *testing.T) {
	class := &models.Class{
		ID:       "c1",
		Schedule: types.JSONText(`{"senin": ["Jam ke-1"]}`),
	}
	booked := []models.Booking{
		{ID: "b1", ClassID: "c2", DateKey: "2026-09-07", Period: "Jam ke-1", PortionClass: models.PortionSharedHalf},
	}
	svc := newSearchFixture(t, class, nil, booked)

	half, err := svc.NearestSlots(context.Background(), dto.NearestSlotsQuery{
		ClassID:    "c1",
		ExamKind:   models.ExamKindSingle,
		JuzPortion: "half",
	})
	require.NoError(t, err)
	require.NotEmpty(t, half.Slots)
	assert.Equal(t, "2026-09-07", half.Slots[0].DateKey)

	full, err := svc.NearestSlots(context.Background(), dto.NearestSlotsQuery{
		ClassID:    "c1",
		ExamKind:   models.ExamKindSingle,
		JuzPortion: "full",
	})
	require.NoError(t, err)
	for _, slot := range full.Slots {
		assert.NotEqual(t, "2026-09-07", slot.DateKey)
	}
}

func TestNearestSlotsUnsupportedPortionReturnsEmpty(t *testing.T) {
	class := &models.Class{
		ID:       "c1",
		Schedule: types.JSONText(`{"senin": ["Jam ke-1"]}`),
	}
	examiner := &models.Examiner{
		ID:                "ex-1",
		Schedule:          types.JSONText(`{"senin": ["Jam ke-1"]}`),
		SupportedPortions: types.JSONText(`["shared_half"]`),
	}
	svc := newSearchFixture(t, class, examiner, nil)

	result, err := svc.NearestSlots(context.Background(), dto.NearestSlotsQuery{
		ClassID:    "c1",
		ExamKind:   models.ExamKindSingle,
		JuzPortion: "full",
		ExaminerID: "ex-1",
	})
	require.NoError(t, err)
	assert.Empty(t, result.Slots)
}

func TestNearestSlotsExclusiveSupportCoversMultiPart(t *testing.T) {
	class := &models.Class{
		ID:       "c1",
		Schedule: types.JSONText(`{"senin": ["Jam ke-1", "Jam ke-2"]}`),
	}
	examiner := &models.Examiner{
		ID:                "ex-1",
		Schedule:          types.JSONText(`{"senin": ["Jam ke-1", "Jam ke-2"]}`),
		SupportedPortions: types.JSONText(`["exclusive"]`),
	}
	svc := newSearchFixture(t, class, examiner, nil)

	result, err := svc.NearestSlots(context.Background(), dto.NearestSlotsQuery{
		ClassID:    "c1",
		ExamKind:   models.ExamKindMultiPart,
		ExaminerID: "ex-1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Slots)
}

func TestNearestSlotsHonorsExaminerDailyQuota(t *testing.T) {
	quota := 1
	class := &models.Class{
		ID:       "c1",
		Schedule: types.JSONText(`{"senin": ["Jam ke-1", "Jam ke-2"]}`),
	}
	examiner := &models.Examiner{
		ID:             "ex-1",
		Schedule:       types.JSONText(`{"senin": ["Jam ke-1", "Jam ke-2"]}`),
		MaxExamsPerDay: &quota,
	}
	examinerID := "ex-1"
	booked := []models.Booking{
		{ID: "b1", DateKey: "2026-09-07", Period: "Jam ke-1", PortionClass: models.PortionExclusive, ExaminerID: &examinerID},
	}
	svc := newSearchFixture(t, class, examiner, booked)

	result, err := svc.NearestSlots(context.Background(), dto.NearestSlotsQuery{
		ClassID:    "c1",
		ExamKind:   models.ExamKindSingle,
		JuzPortion: "full",
		ExaminerID: "ex-1",
	})
	require.NoError(t, err)
	for _, slot := range result.Slots {
		assert.NotEqual(t, "2026-09-07", slot.DateKey)
	}
}
