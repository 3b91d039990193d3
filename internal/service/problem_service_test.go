package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amirulmuuminin/tahfidz-exam-api/internal/models"
	"github.com/amirulmuuminin/tahfidz-exam-api/pkg/config"
	appErrors "github.com/amirulmuuminin/tahfidz-exam-api/pkg/errors"
)

type stubExaminerRoster struct {
	examiners []models.Examiner
}

func (s *stubExaminerRoster) ListAll(ctx context.Context) ([]models.Examiner, error) {
	return s.examiners, nil
}

func newProblemFixture(bookings []models.Booking, examiners []models.Examiner) *ProblemService {
	svc := NewProblemService(
		&stubBookingRange{bookings: bookings},
		&stubExaminerRoster{examiners: examiners},
		nil,
		testEngineConfig(),
		config.DetectorConfig{RangeDays: 60},
		nil,
		nil,
	)
	svc.now = func() time.Time {
		return time.Date(2026, time.September, 6, 12, 0, 0, 0, time.UTC)
	}
	return svc
}

func TestDetectExcessExclusive(t *testing.T) {
	bookings := []models.Booking{
		{ID: "b1", StudentID: "s1", DateKey: "2026-09-07", Period: "Jam ke-1", PortionClass: models.PortionExclusive},
		{ID: "b2", StudentID: "s2", DateKey: "2026-09-07", Period: "Jam ke-1", PortionClass: models.PortionMultiPartExclusive},
	}
	svc := newProblemFixture(bookings, nil)

	problems, err := svc.Detect(context.Background(), "", "")
	require.NoError(t, err)
	require.Len(t, problems, 1)
	assert.Equal(t, models.ProblemExcessExclusive, problems[0].Kind)
	assert.Equal(t, "2026-09-07", problems[0].DateKey)
	assert.Equal(t, "ex-default", problems[0].ExaminerID)
	assert.Equal(t, 2, problems[0].BookingCount)
	assert.Len(t, problems[0].Students, 2)
}

func TestDetectExclusiveSharingWithHalf(t *testing.T) {
	bookings := []models.Booking{
		{ID: "b1", DateKey: "2026-09-07", Period: "Jam ke-1", PortionClass: models.PortionExclusive},
		{ID: "b2", DateKey: "2026-09-07", Period: "Jam ke-1", PortionClass: models.PortionSharedHalf},
	}
	svc := newProblemFixture(bookings, nil)

	problems, err := svc.Detect(context.Background(), "", "")
	require.NoError(t, err)
	require.Len(t, problems, 1)
	assert.Equal(t, models.ProblemExcessExclusive, problems[0].Kind)
}

func TestDetectExcessHalf(t *testing.T) {
	bookings := []models.Booking{
		{ID: "b1", DateKey: "2026-09-07", Period: "Jam ke-2", PortionClass: models.PortionSharedHalf},
		{ID: "b2", DateKey: "2026-09-07", Period: "Jam ke-2", PortionClass: models.PortionSharedHalf},
		{ID: "b3", DateKey: "2026-09-07", Period: "Jam ke-2", PortionClass: models.PortionSharedHalf},
	}
	svc := newProblemFixture(bookings, nil)

	problems, err := svc.Detect(context.Background(), "", "")
	require.NoError(t, err)
	require.Len(t, problems, 1)
	assert.Equal(t, models.ProblemExcessHalf, problems[0].Kind)
	assert.Equal(t, 3, problems[0].BookingCount)
	assert.Equal(t, 2, problems[0].MaxAllowed)
}

func TestDetectTwoHalvesAreFine(t *testing.T) {
	bookings := []models.Booking{
		{ID: "b1", DateKey: "2026-09-07", Period: "Jam ke-2", PortionClass: models.PortionSharedHalf},
		{ID: "b2", DateKey: "2026-09-07", Period: "Jam ke-2", PortionClass: models.PortionSharedHalf},
	}
	svc := newProblemFixture(bookings, nil)

	problems, err := svc.Detect(context.Background(), "", "")
	require.NoError(t, err)
	assert.Empty(t, problems)
}

func TestDetectDailyLimitSingleViolationPerDay(t *testing.T) {
	quota := 2
	examinerID := "ex-1"
	examiners := []models.Examiner{{ID: "ex-1", Name: "Ustadz A", MaxExamsPerDay: &quota}}
	bookings := []models.Booking{
		{ID: "b1", DateKey: "2026-09-07", Period: "Jam ke-1", PortionClass: models.PortionExclusive, ExaminerID: &examinerID},
		{ID: "b2", DateKey: "2026-09-07", Period: "Jam ke-2", PortionClass: models.PortionExclusive, ExaminerID: &examinerID},
		{ID: "b3", DateKey: "2026-09-07", Period: "Jam ke-3", PortionClass: models.PortionExclusive, ExaminerID: &examinerID},
	}
	svc := newProblemFixture(bookings, examiners)

	problems, err := svc.Detect(context.Background(), "", "")
	require.NoError(t, err)
	require.Len(t, problems, 1)
	assert.Equal(t, models.ProblemDailyLimit, problems[0].Kind)
	assert.Equal(t, "Ustadz A", problems[0].ExaminerName)
	assert.Equal(t, 3, problems[0].BookingCount)
	assert.Equal(t, 2, problems[0].MaxAllowed)
}

func TestDetectDailyLimitAtQuota(t *testing.T) {
	quota := 3
	examinerID := "ex-1"
	examiners := []models.Examiner{{ID: "ex-1", Name: "Ustadz A", MaxExamsPerDay: &quota}}
	bookings := []models.Booking{
		{ID: "b1", DateKey: "2026-09-07", Period: "Jam ke-1", PortionClass: models.PortionExclusive, ExaminerID: &examinerID},
		{ID: "b2", DateKey: "2026-09-07", Period: "Jam ke-2", PortionClass: models.PortionExclusive, ExaminerID: &examinerID},
		{ID: "b3", DateKey: "2026-09-07", Period: "Jam ke-3", PortionClass: models.PortionExclusive, ExaminerID: &examinerID},
	}
	svc := newProblemFixture(bookings, examiners)

	problems, err := svc.Detect(context.Background(), "", "")
	require.NoError(t, err)
	require.Len(t, problems, 1)
	assert.Equal(t, models.ProblemDailyLimit, problems[0].Kind)
	assert.Equal(t, "2026-09-07", problems[0].DateKey)
	assert.Equal(t, 3, problems[0].BookingCount)
	assert.Equal(t, 3, problems[0].MaxAllowed)
}

func TestDetectBelowQuotaIsFine(t *testing.T) {
	quota := 3
	examinerID := "ex-1"
	examiners := []models.Examiner{{ID: "ex-1", Name: "Ustadz A", MaxExamsPerDay: &quota}}
	bookings := []models.Booking{
		{ID: "b1", DateKey: "2026-09-07", Period: "Jam ke-1", PortionClass: models.PortionExclusive, ExaminerID: &examinerID},
		{ID: "b2", DateKey: "2026-09-07", Period: "Jam ke-2", PortionClass: models.PortionExclusive, ExaminerID: &examinerID},
	}
	svc := newProblemFixture(bookings, examiners)

	problems, err := svc.Detect(context.Background(), "", "")
	require.NoError(t, err)
	assert.Empty(t, problems)
}

func TestDetectSkipsExaminersWithoutQuota(t *testing.T) {
	examinerID := "ex-1"
	examiners := []models.Examiner{{ID: "ex-1", Name: "Ustadz A"}}
	bookings := []models.Booking{
		{ID: "b1", DateKey: "2026-09-07", Period: "Jam ke-1", PortionClass: models.PortionExclusive, ExaminerID: &examinerID},
		{ID: "b2", DateKey: "2026-09-07", Period: "Jam ke-2", PortionClass: models.PortionExclusive, ExaminerID: &examinerID},
		{ID: "b3", DateKey: "2026-09-07", Period: "Jam ke-3", PortionClass: models.PortionExclusive, ExaminerID: &examinerID},
	}
	svc := newProblemFixture(bookings, examiners)

	problems, err := svc.Detect(context.Background(), "", "")
	require.NoError(t, err)
	assert.Empty(t, problems)
}

func TestDetectRejectsMalformedWindow(t *testing.T) {
	svc := newProblemFixture(nil, nil)

	_, err := svc.Detect(context.Background(), "07-09-2026", "")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestDetectIsIdempotentAndOrdered(t *testing.T) {
	examinerID := "ex-1"
	bookings := []models.Booking{
		{ID: "b5", DateKey: "2026-09-09", Period: "Jam ke-1", PortionClass: models.PortionExclusive},
		{ID: "b6", DateKey: "2026-09-09", Period: "Jam ke-1", PortionClass: models.PortionExclusive},
		{ID: "b1", DateKey: "2026-09-07", Period: "Jam ke-3", PortionClass: models.PortionExclusive, ExaminerID: &examinerID},
		{ID: "b2", DateKey: "2026-09-07", Period: "Jam ke-3", PortionClass: models.PortionExclusive, ExaminerID: &examinerID},
		{ID: "b3", DateKey: "2026-09-07", Period: "Jam ke-1", PortionClass: models.PortionExclusive},
		{ID: "b4", DateKey: "2026-09-07", Period: "Jam ke-1", PortionClass: models.PortionExclusive},
	}
	svc := newProblemFixture(bookings, nil)

	first, err := svc.Detect(context.Background(), "", "")
	require.NoError(t, err)
	second, err := svc.Detect(context.Background(), "", "")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	require.Len(t, first, 3)
	assert.Equal(t, "2026-09-07", first[0].DateKey)
	assert.Equal(t, "Jam ke-1", first[0].Period)
	assert.Equal(t, "2026-09-07", first[1].DateKey)
	assert.Equal(t, "Jam ke-3", first[1].Period)
	assert.Equal(t, "2026-09-09", first[2].DateKey)
}
