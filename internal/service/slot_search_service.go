package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/amirulmuuminin/tahfidz-exam-api/internal/dto"
	"github.com/amirulmuuminin/tahfidz-exam-api/internal/models"
	"github.com/amirulmuuminin/tahfidz-exam-api/pkg/config"
	appErrors "github.com/amirulmuuminin/tahfidz-exam-api/pkg/errors"
)

type slotSearchClassRepository interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

type slotSearchExaminerRepository interface {
	FindByID(ctx context.Context, id string) (*models.Examiner, error)
}

type slotSearchBookingRepository interface {
	ListByDateRange(ctx context.Context, startKey, endKey string) ([]models.Booking, error)
}

type examinerCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type searchMetrics interface {
	ObserveSlotSearch(examKind string, distinctDates int)
}

// SlotSearchService finds the nearest open slots for a class within the
// configured horizon.
type SlotSearchService struct {
	classes   slotSearchClassRepository
	examiners slotSearchExaminerRepository
	bookings  slotSearchBookingRepository
	cache     examinerCache
	metrics   searchMetrics
	engine    config.EngineConfig
	validator *validator.Validate
	logger    *zap.Logger

	// now is swappable in tests.
	now func() time.Time
}

// NewSlotSearchService constructs the search service.
func NewSlotSearchService(
	classes slotSearchClassRepository,
	examiners slotSearchExaminerRepository,
	bookings slotSearchBookingRepository,
	cache examinerCache,
	metrics searchMetrics,
	engine config.EngineConfig,
	validate *validator.Validate,
	logger *zap.Logger,
) *SlotSearchService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SlotSearchService{
		classes:   classes,
		examiners: examiners,
		bookings:  bookings,
		cache:     cache,
		metrics:   metrics,
		engine:    engine,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// NearestSlots walks the calendar from tomorrow and collects every open slot
// on the nearest dates that still have room for the requested exam. Finding
// nothing inside the horizon is a normal outcome, not an error.
func (s *SlotSearchService) NearestSlots(ctx context.Context, query dto.NearestSlotsQuery) (*dto.NearestSlotsResponse, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid slot search query")
	}

	proposed := classifyPortion(query.ExamKind, query.JuzPortion)

	class, err := s.classes.FindByID(ctx, query.ClassID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	classSchedule := parseWeeklySchedule(class.Schedule)

	var examinerSchedule WeeklySchedule
	var dailyQuota *int
	resolvedExaminerID := s.engine.DefaultExaminerID
	if query.ExaminerID != "" {
		examiner, err := s.loadExaminer(ctx, query.ExaminerID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "examiner not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load examiner")
		}
		if !examinerSupports(examiner, proposed) {
			return s.emptyResult(query), nil
		}
		examinerSchedule = parseWeeklySchedule(examiner.Schedule)
		dailyQuota = examiner.MaxExamsPerDay
		resolvedExaminerID = query.ExaminerID
	}

	start := s.now().AddDate(0, 0, 1)
	start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	end := start.AddDate(0, 0, s.engine.SearchHorizonDays-1)

	existing, err := s.bookings.ListByDateRange(ctx, start.Format(models.DateKeyFormat), end.Format(models.DateKeyFormat))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load horizon bookings")
	}

	target := s.engine.TargetDates
	if query.ExamKind == models.ExamKindMultiPart {
		target = s.engine.MultiTargetDates
	}

	slots := make([]models.AvailableSlot, 0)
	distinctDates := 0
	for day := 0; day < s.engine.SearchHorizonDays && distinctDates < target; day++ {
		date := start.AddDate(0, 0, day)
		weekday := models.WeekdayKey(date.Weekday())
		if weekday == "" {
			continue
		}

		periods := periodsFor(classSchedule, weekday)
		if examinerSchedule != nil {
			periods = intersectPeriods(periods, periodsFor(examinerSchedule, weekday))
		}
		periods = validPeriods(periods, weekday)
		if len(periods) == 0 {
			continue
		}

		dateKey := date.Format(models.DateKeyFormat)
		if dailyQuota != nil && countExaminerDay(existing, resolvedExaminerID, s.engine.DefaultExaminerID, dateKey) >= *dailyQuota {
			continue
		}
		found := false
		for _, period := range periods {
			occupants := filterSlot(existing, dateKey, period, resolvedExaminerID, s.engine.DefaultExaminerID)
			if decision := evaluateSlot(occupants, proposed); !decision.Allowed {
				continue
			}
			slots = append(slots, models.AvailableSlot{
				Date:           date,
				DateKey:        dateKey,
				Period:         period,
				Weekday:        weekday,
				DistanceInDays: day + 1,
			})
			found = true
		}
		if found {
			distinctDates++
		}
	}

	if s.metrics != nil {
		s.metrics.ObserveSlotSearch(string(query.ExamKind), distinctDates)
	}
	s.logger.Debug("nearest slot search completed",
		zap.String("class_id", query.ClassID),
		zap.String("exam_kind", string(query.ExamKind)),
		zap.Int("distinct_dates", distinctDates),
		zap.Int("slots", len(slots)))

	return &dto.NearestSlotsResponse{
		Slots:         slots,
		DistinctDates: distinctDates,
		HorizonDays:   s.engine.SearchHorizonDays,
	}, nil
}

func (s *SlotSearchService) emptyResult(query dto.NearestSlotsQuery) *dto.NearestSlotsResponse {
	return &dto.NearestSlotsResponse{
		Slots:       make([]models.AvailableSlot, 0),
		HorizonDays: s.engine.SearchHorizonDays,
	}
}

func (s *SlotSearchService) loadExaminer(ctx context.Context, id string) (*models.Examiner, error) {
	cacheKey := fmt.Sprintf("examiner:%s", id)
	if s.cache != nil {
		var cached models.Examiner
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("examiner cache read failed", zap.String("examiner_id", id), zap.Error(err))
		}
	}

	examiner, err := s.examiners.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, examiner, s.engine.ExaminerCacheTTL); err != nil {
			s.logger.Warn("examiner cache write failed", zap.String("examiner_id", id), zap.Error(err))
		}
	}
	return examiner, nil
}

// countExaminerDay counts the bookings an examiner already holds on a date.
func countExaminerDay(bookings []models.Booking, examinerID, defaultID, dateKey string) int {
	count := 0
	for _, b := range bookings {
		if b.DateKey == dateKey && resolveExaminerID(b.ExaminerID, defaultID) == examinerID {
			count++
		}
	}
	return count
}

// examinerSupports reports whether the examiner accepts the portion class.
// An absent or empty supported list means the examiner accepts everything.
// Multi-part exams occupy slots exclusively, so supporting exclusive exams
// covers them too.
func examinerSupports(examiner *models.Examiner, portion models.PortionClass) bool {
	if len(examiner.SupportedPortions) == 0 {
		return true
	}
	var supported []models.PortionClass
	if err := json.Unmarshal(examiner.SupportedPortions, &supported); err != nil {
		return true
	}
	if len(supported) == 0 {
		return true
	}
	want := portion
	if want.IsExclusive() {
		want = models.PortionExclusive
	}
	for _, p := range supported {
		if p.IsExclusive() {
			p = models.PortionExclusive
		}
		if p == want {
			return true
		}
	}
	return false
}
