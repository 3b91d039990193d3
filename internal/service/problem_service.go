package service

import (
	"context"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/amirulmuuminin/tahfidz-exam-api/internal/dto"
	"github.com/amirulmuuminin/tahfidz-exam-api/internal/models"
	"github.com/amirulmuuminin/tahfidz-exam-api/pkg/config"
	appErrors "github.com/amirulmuuminin/tahfidz-exam-api/pkg/errors"
)

type problemBookingRepository interface {
	ListByDateRange(ctx context.Context, startKey, endKey string) ([]models.Booking, error)
}

type problemExaminerRepository interface {
	ListAll(ctx context.Context) ([]models.Examiner, error)
}

type detectorMetrics interface {
	ObserveDetectorRun(problems int)
}

// ProblemService scans a window of bookings for capacity violations. It is
// a pure read: the same snapshot always produces the same report, and the
// scan never mutates bookings.
type ProblemService struct {
	bookings  problemBookingRepository
	examiners problemExaminerRepository
	metrics   detectorMetrics
	engine    config.EngineConfig
	detector  config.DetectorConfig
	validator *validator.Validate
	logger    *zap.Logger

	now func() time.Time
}

// NewProblemService constructs the problem detector.
func NewProblemService(bookings problemBookingRepository, examiners problemExaminerRepository, metrics detectorMetrics, engine config.EngineConfig, detector config.DetectorConfig, validate *validator.Validate, logger *zap.Logger) *ProblemService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProblemService{
		bookings:  bookings,
		examiners: examiners,
		metrics:   metrics,
		engine:    engine,
		detector:  detector,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// DefaultRange returns the detector's configured scan window starting today.
func (s *ProblemService) DefaultRange() (string, string) {
	start := s.now()
	end := start.AddDate(0, 0, s.detector.RangeDays)
	return start.Format(models.DateKeyFormat), end.Format(models.DateKeyFormat)
}

// Detect scans bookings between fromKey and toKey inclusive. Empty bounds
// fall back to the configured window; malformed bounds are rejected rather
// than silently scanning an empty window.
func (s *ProblemService) Detect(ctx context.Context, fromKey, toKey string) ([]models.ProblemReport, error) {
	window := dto.ProblemScanQuery{FromDateKey: fromKey, ToDateKey: toKey}
	if err := s.validator.Struct(window); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid scan window")
	}

	defaultFrom, defaultTo := s.DefaultRange()
	if fromKey == "" {
		fromKey = defaultFrom
	}
	if toKey == "" {
		toKey = defaultTo
	}

	bookings, err := s.bookings.ListByDateRange(ctx, fromKey, toKey)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load bookings for scan")
	}

	roster := map[string]models.Examiner{}
	if s.examiners != nil {
		examiners, err := s.examiners.ListAll(ctx)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load examiner roster")
		}
		for _, e := range examiners {
			roster[e.ID] = e
		}
	}

	problems := append(s.slotViolations(bookings, roster), s.dailyLimitViolations(bookings, roster)...)
	sort.Slice(problems, func(i, j int) bool {
		a, b := problems[i], problems[j]
		if a.DateKey != b.DateKey {
			return a.DateKey < b.DateKey
		}
		if oa, ob := models.PeriodOrdinal(a.Period), models.PeriodOrdinal(b.Period); oa != ob {
			return oa < ob
		}
		if a.ExaminerID != b.ExaminerID {
			return a.ExaminerID < b.ExaminerID
		}
		return a.Kind < b.Kind
	})

	if s.metrics != nil {
		s.metrics.ObserveDetectorRun(len(problems))
	}
	s.logger.Info("problem scan completed",
		zap.String("from", fromKey),
		zap.String("to", toKey),
		zap.Int("bookings", len(bookings)),
		zap.Int("problems", len(problems)))
	return problems, nil
}

// slotViolations finds slot groups holding more exams than capacity allows.
func (s *ProblemService) slotViolations(bookings []models.Booking, roster map[string]models.Examiner) []models.ProblemReport {
	type slotKey struct {
		dateKey    string
		period     string
		examinerID string
	}
	groups := map[slotKey][]models.Booking{}
	for _, b := range bookings {
		key := slotKey{
			dateKey:    b.DateKey,
			period:     b.Period,
			examinerID: resolveExaminerID(b.ExaminerID, s.engine.DefaultExaminerID),
		}
		groups[key] = append(groups[key], b)
	}

	var problems []models.ProblemReport
	for key, group := range groups {
		var exclusives, halves []models.Booking
		for _, b := range group {
			if b.PortionClass.IsExclusive() {
				exclusives = append(exclusives, b)
			} else if b.PortionClass == models.PortionSharedHalf {
				halves = append(halves, b)
			}
		}

		// A lone exclusive sharing the slot with halves is also an
		// overbooked slot, not just exclusive-vs-exclusive.
		if len(exclusives) > 1 || (len(exclusives) == 1 && len(halves) > 0) {
			problems = append(problems, models.ProblemReport{
				Kind:         models.ProblemExcessExclusive,
				DateKey:      key.dateKey,
				Period:       key.period,
				ExaminerID:   key.examinerID,
				ExaminerName: roster[key.examinerID].Name,
				BookingCount: len(group),
				MaxAllowed:   1,
				Students:     studentRefs(group),
			})
			continue
		}
		if len(halves) > maxSharedHalfPerSlot {
			problems = append(problems, models.ProblemReport{
				Kind:         models.ProblemExcessHalf,
				DateKey:      key.dateKey,
				Period:       key.period,
				ExaminerID:   key.examinerID,
				ExaminerName: roster[key.examinerID].Name,
				BookingCount: len(halves),
				MaxAllowed:   maxSharedHalfPerSlot,
				Students:     studentRefs(halves),
			})
		}
	}
	return problems
}

// dailyLimitViolations flags examiners whose day has reached their quota:
// a quota of 3 means the third booking on a date is already a violation.
// Examiners without a quota are never flagged.
func (s *ProblemService) dailyLimitViolations(bookings []models.Booking, roster map[string]models.Examiner) []models.ProblemReport {
	type dayKey struct {
		examinerID string
		dateKey    string
	}
	days := map[dayKey][]models.Booking{}
	for _, b := range bookings {
		key := dayKey{
			examinerID: resolveExaminerID(b.ExaminerID, s.engine.DefaultExaminerID),
			dateKey:    b.DateKey,
		}
		days[key] = append(days[key], b)
	}

	var problems []models.ProblemReport
	for key, group := range days {
		examiner, known := roster[key.examinerID]
		if !known || examiner.MaxExamsPerDay == nil {
			continue
		}
		if len(group) < *examiner.MaxExamsPerDay {
			continue
		}
		problems = append(problems, models.ProblemReport{
			Kind:         models.ProblemDailyLimit,
			DateKey:      key.dateKey,
			ExaminerID:   key.examinerID,
			ExaminerName: examiner.Name,
			BookingCount: len(group),
			MaxAllowed:   *examiner.MaxExamsPerDay,
			Students:     studentRefs(group),
		})
	}
	return problems
}

func studentRefs(bookings []models.Booking) []models.ProblemStudentRef {
	refs := make([]models.ProblemStudentRef, 0, len(bookings))
	for _, b := range bookings {
		refs = append(refs, models.ProblemStudentRef{
			BookingID: b.ID,
			StudentID: b.StudentID,
			ClassID:   b.ClassID,
			JuzLabel:  b.JuzLabel,
		})
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].BookingID < refs[j].BookingID })
	return refs
}
