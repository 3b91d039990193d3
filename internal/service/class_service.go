package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/amirulmuuminin/tahfidz-exam-api/internal/models"
	appErrors "github.com/amirulmuuminin/tahfidz-exam-api/pkg/errors"
)

type classRepository interface {
	List(ctx context.Context, filter models.ClassFilter) ([]models.Class, int, error)
	FindByID(ctx context.Context, id string) (*models.Class, error)
	Create(ctx context.Context, class *models.Class) error
	Update(ctx context.Context, class *models.Class) error
	Delete(ctx context.Context, id string) error
}

// SaveClassRequest holds payload for creating or updating classes. Schedule
// maps weekday keys to period labels.
type SaveClassRequest struct {
	Name     string              `json:"name" validate:"required"`
	Schedule map[string][]string `json:"schedule" validate:"required"`
}

// ClassService handles class use-cases.
type ClassService struct {
	repo      classRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassService constructs the class service.
func NewClassService(repo classRepository, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassService{repo: repo, validator: validate, logger: logger}
}

// List returns classes and pagination metadata.
func (s *ClassService) List(ctx context.Context, filter models.ClassFilter) ([]models.Class, *models.Pagination, error) {
	classes, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return classes, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get loads a single class.
func (s *ClassService) Get(ctx context.Context, id string) (*models.Class, error) {
	class, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return class, nil
}

// Create stores a new class.
func (s *ClassService) Create(ctx context.Context, req SaveClassRequest) (*models.Class, error) {
	schedule, err := s.validateRequest(req)
	if err != nil {
		return nil, err
	}
	class := &models.Class{Name: req.Name, Schedule: schedule}
	if err := s.repo.Create(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class")
	}
	return class, nil
}

// Update modifies an existing class.
func (s *ClassService) Update(ctx context.Context, id string, req SaveClassRequest) (*models.Class, error) {
	schedule, err := s.validateRequest(req)
	if err != nil {
		return nil, err
	}
	class, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	class.Name = req.Name
	class.Schedule = schedule
	if err := s.repo.Update(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update class")
	}
	return class, nil
}

// Delete removes a class together with its students and bookings.
func (s *ClassService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete class")
	}
	return nil
}

func (s *ClassService) validateRequest(req SaveClassRequest) (types.JSONText, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}
	if err := validateWeeklySchedule(req.Schedule); err != nil {
		return nil, err
	}
	raw, err := json.Marshal(req.Schedule)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode schedule")
	}
	return types.JSONText(raw), nil
}

// validateWeeklySchedule rejects schedules referencing unknown weekdays,
// unknown period labels, or periods past a day's cap.
func validateWeeklySchedule(schedule map[string][]string) error {
	known := map[string]bool{}
	for _, day := range models.Weekdays {
		known[day] = true
	}
	for day, periods := range schedule {
		if !known[day] {
			return appErrors.Clone(appErrors.ErrValidation, "unknown weekday in schedule: "+day)
		}
		max := models.MaxPeriodsFor(day)
		for _, period := range periods {
			ord := models.PeriodOrdinal(period)
			if ord == 0 {
				return appErrors.Clone(appErrors.ErrValidation, "unknown period in schedule: "+period)
			}
			if ord > max {
				return appErrors.Clone(appErrors.ErrValidation, "period past the day's schedule: "+period+" on "+day)
			}
		}
	}
	return nil
}
