package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/amirulmuuminin/tahfidz-exam-api/internal/dto"
	"github.com/amirulmuuminin/tahfidz-exam-api/internal/models"
	"github.com/amirulmuuminin/tahfidz-exam-api/internal/repository"
	"github.com/amirulmuuminin/tahfidz-exam-api/pkg/config"
	appErrors "github.com/amirulmuuminin/tahfidz-exam-api/pkg/errors"
)

type bookingStore interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
	List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, int, error)
	FindByID(ctx context.Context, id string) (*models.Booking, error)
	ListBySlotForUpdate(ctx context.Context, tx *sqlx.Tx, dateKey, period string) ([]models.Booking, error)
	CreateWithTx(ctx context.Context, tx *sqlx.Tx, booking *models.Booking) error
	BulkCreateWithTx(ctx context.Context, tx *sqlx.Tx, bookings []models.Booking) error
	CountByExaminerAndDate(ctx context.Context, examinerID, defaultExaminerID, dateKey string) (int, error)
	Complete(ctx context.Context, id string, score int) error
	Delete(ctx context.Context, id string) error
	DeleteGroup(ctx context.Context, groupID string) error
}

type bookingExaminerLookup interface {
	FindByID(ctx context.Context, id string) (*models.Examiner, error)
}

type slotLocker interface {
	Acquire(ctx context.Context, key, token string) error
	Release(ctx context.Context, key, token string) error
}

type bookingMetrics interface {
	ObserveBookingCreated(portion string)
	ObserveSlotConflict(reason string)
}

// multiPartCount is the fixed number of parts in a 5-juz exam.
const multiPartCount = 5

// BookingService owns the booking write path. Every insert re-validates slot
// capacity inside a transaction with the co-resident rows locked, so two
// racing requests for the last place in a slot cannot both succeed.
type BookingService struct {
	store     bookingStore
	examiners bookingExaminerLookup
	locks     slotLocker
	metrics   bookingMetrics
	engine    config.EngineConfig
	validator *validator.Validate
	logger    *zap.Logger
}

// NewBookingService constructs the booking service.
func NewBookingService(store bookingStore, examiners bookingExaminerLookup, locks slotLocker, metrics bookingMetrics, engine config.EngineConfig, validate *validator.Validate, logger *zap.Logger) *BookingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookingService{store: store, examiners: examiners, locks: locks, metrics: metrics, engine: engine, validator: validate, logger: logger}
}

// List returns bookings matching the filter with pagination metadata.
func (s *BookingService) List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, *models.Pagination, error) {
	bookings, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list bookings")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return bookings, pagination, nil
}

// Get loads a single booking.
func (s *BookingService) Get(ctx context.Context, id string) (*models.Booking, error) {
	booking, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booking")
	}
	return booking, nil
}

// Create registers a single-slot exam.
func (s *BookingService) Create(ctx context.Context, req dto.CreateBookingRequest) (*models.Booking, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking request")
	}
	if err := validateSlotSelection(req.Slot); err != nil {
		return nil, err
	}

	portion := classifyPortion(models.ExamKindSingle, req.JuzPortion)
	booking := &models.Booking{
		ClassID:      req.ClassID,
		StudentID:    req.StudentID,
		DateKey:      req.Slot.DateKey,
		Period:       req.Slot.Period,
		PortionClass: portion,
		JuzLabel:     req.JuzLabel,
		ExaminerID:   req.ExaminerID,
		Status:       models.BookingScheduled,
	}

	err := s.withRetries(ctx, func() error {
		return s.insertGuarded(ctx, []models.Booking{*booking}, func(ctx context.Context, tx *sqlx.Tx) error {
			return s.store.CreateWithTx(ctx, tx, booking)
		})
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.ObserveBookingCreated(string(portion))
	}
	s.warnIfOverQuota(ctx, booking.ExaminerID, booking.DateKey)
	return booking, nil
}

// CreateMultiPart registers a 5-juz exam as one atomic group: five parts,
// five distinct slots, all committed in a single transaction or none at all.
func (s *BookingService) CreateMultiPart(ctx context.Context, req dto.CreateMultiPartBookingRequest) ([]models.Booking, string, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid multi-part booking request")
	}

	seen := make(map[string]bool, multiPartCount)
	for _, slot := range req.Slots {
		if err := validateSlotSelection(slot); err != nil {
			return nil, "", err
		}
		key := slot.DateKey + "|" + slot.Period
		if seen[key] {
			conflict := &models.SlotConflictError{
				DateKey:    slot.DateKey,
				Period:     slot.Period,
				ExaminerID: resolveExaminerID(req.ExaminerID, s.engine.DefaultExaminerID),
				Reason:     models.ConflictDuplicatePart,
			}
			return nil, "", s.conflictError(conflict)
		}
		seen[key] = true
	}

	groupID := uuid.NewString()
	bookings := make([]models.Booking, 0, multiPartCount)
	for i, slot := range req.Slots {
		part := i + 1
		bookings = append(bookings, models.Booking{
			ClassID:      req.ClassID,
			StudentID:    req.StudentID,
			DateKey:      slot.DateKey,
			Period:       slot.Period,
			PortionClass: models.PortionMultiPartExclusive,
			JuzLabel:     req.JuzLabels[i],
			ExaminerID:   req.ExaminerID,
			GroupID:      &groupID,
			PartNumber:   &part,
			Status:       models.BookingScheduled,
		})
	}

	err := s.withRetries(ctx, func() error {
		return s.insertGuarded(ctx, bookings, func(ctx context.Context, tx *sqlx.Tx) error {
			return s.store.BulkCreateWithTx(ctx, tx, bookings)
		})
	})
	if err != nil {
		return nil, "", err
	}

	if s.metrics != nil {
		for range bookings {
			s.metrics.ObserveBookingCreated(string(models.PortionMultiPartExclusive))
		}
	}
	return bookings, groupID, nil
}

// Complete records a finished exam's score.
func (s *BookingService) Complete(ctx context.Context, id string, req dto.CompleteBookingRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid completion request")
	}
	if err := s.store.Complete(ctx, id, req.Score); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to complete booking")
	}
	return nil
}

// Delete cancels a booking. Cancelling any part of a multi-part group
// removes the whole group so no orphaned parts remain on the calendar.
func (s *BookingService) Delete(ctx context.Context, id string) error {
	booking, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booking")
	}

	if booking.GroupID != nil {
		if err := s.store.DeleteGroup(ctx, *booking.GroupID); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete booking group")
		}
		return nil
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete booking")
	}
	return nil
}

// insertGuarded takes the slot locks for every booking in the batch, then
// re-validates capacity against row-locked reads inside one transaction and
// runs the insert. Locks are taken in sorted key order so concurrent
// multi-part submissions touching overlapping slots cannot deadlock.
func (s *BookingService) insertGuarded(ctx context.Context, bookings []models.Booking, insert func(context.Context, *sqlx.Tx) error) error {
	token := uuid.NewString()
	lockKeys := make([]string, 0, len(bookings))
	for _, b := range bookings {
		lockKeys = append(lockKeys, repository.SlotLockKey(b.DateKey, b.Period))
	}
	sort.Strings(lockKeys)

	acquired := make([]string, 0, len(lockKeys))
	defer func() {
		for _, key := range acquired {
			if err := s.locks.Release(context.WithoutCancel(ctx), key, token); err != nil {
				s.logger.Warn("slot lock release failed", zap.String("key", key), zap.Error(err))
			}
		}
	}()
	for _, key := range lockKeys {
		if err := s.locks.Acquire(ctx, key, token); err != nil {
			return err
		}
		acquired = append(acquired, key)
	}

	tx, err := s.store.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin booking transaction")
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	for _, b := range bookings {
		occupants, err := s.store.ListBySlotForUpdate(ctx, tx, b.DateKey, b.Period)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read slot occupants")
		}
		examinerID := resolveExaminerID(b.ExaminerID, s.engine.DefaultExaminerID)
		group := filterSlot(occupants, b.DateKey, b.Period, examinerID, s.engine.DefaultExaminerID)
		if decision := evaluateSlot(group, b.PortionClass); !decision.Allowed {
			conflict := &models.SlotConflictError{
				DateKey:    b.DateKey,
				Period:     b.Period,
				ExaminerID: examinerID,
				Reason:     decision.Reason,
				Occupants:  group,
			}
			return s.conflictError(conflict)
		}
	}

	if err := insert(ctx, tx); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to insert booking")
	}
	if err := tx.Commit(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit booking")
	}
	committed = true
	return nil
}

// withRetries reruns fn on transient failures. Capacity conflicts and
// validation errors are final and returned immediately.
func (s *BookingService) withRetries(ctx context.Context, fn func() error) error {
	attempts := s.engine.InsertRetries
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if isFinalBookingError(err) {
			return err
		}
		if attempt < attempts {
			s.logger.Warn("booking attempt failed, retrying",
				zap.Int("attempt", attempt),
				zap.Error(err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * 50 * time.Millisecond):
			}
		}
	}
	return err
}

func (s *BookingService) conflictError(conflict *models.SlotConflictError) error {
	if s.metrics != nil {
		s.metrics.ObserveSlotConflict(string(conflict.Reason))
	}
	return appErrors.Wrap(conflict, appErrors.ErrSlotConflict.Code, appErrors.ErrSlotConflict.Status, conflict.Error())
}

// warnIfOverQuota logs when a date has reached the examiner's daily quota.
// The insert is already committed at this point: the quota limits what the
// search offers but never rejects an explicit booking.
func (s *BookingService) warnIfOverQuota(ctx context.Context, examinerID *string, dateKey string) {
	resolved := resolveExaminerID(examinerID, s.engine.DefaultExaminerID)
	count, err := s.store.CountByExaminerAndDate(ctx, resolved, s.engine.DefaultExaminerID, dateKey)
	if err != nil {
		s.logger.Warn("examiner day count failed", zap.String("examiner_id", resolved), zap.Error(err))
		return
	}

	if s.examiners != nil {
		examiner, err := s.examiners.FindByID(ctx, resolved)
		if err == nil && examiner.MaxExamsPerDay != nil {
			if count >= *examiner.MaxExamsPerDay {
				s.logger.Warn("examiner reached daily quota",
					zap.String("examiner_id", resolved),
					zap.String("date_key", dateKey),
					zap.Int("bookings", count),
					zap.Int("quota", *examiner.MaxExamsPerDay))
			}
			return
		}
	}
	if count > len(models.Periods) {
		s.logger.Warn("examiner booked beyond a full day",
			zap.String("examiner_id", resolved),
			zap.String("date_key", dateKey),
			zap.Int("bookings", count))
	}
}

// isFinalBookingError reports whether the error should never be retried.
func isFinalBookingError(err error) bool {
	var conflict *models.SlotConflictError
	if errors.As(err, &conflict) {
		return true
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case appErrors.ErrSlotConflict.Code, appErrors.ErrValidation.Code, appErrors.ErrNotFound.Code:
			return true
		}
	}
	return false
}

// validateSlotSelection checks the calendar-level rules a struct tag cannot:
// the date must fall on a working weekday and the period must exist within
// that day's cap.
func validateSlotSelection(slot dto.SlotSelection) error {
	date, err := time.Parse(models.DateKeyFormat, slot.DateKey)
	if err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "invalid slot date")
	}
	weekday := models.WeekdayKey(date.Weekday())
	if weekday == "" {
		return appErrors.Clone(appErrors.ErrValidation, "slot date falls on a weekend")
	}
	if !models.IsValidPeriod(slot.Period) {
		return appErrors.Clone(appErrors.ErrValidation, "unknown period label")
	}
	if models.PeriodOrdinal(slot.Period) > models.MaxPeriodsFor(weekday) {
		return appErrors.Clone(appErrors.ErrValidation, "period exceeds the day's schedule")
	}
	return nil
}
