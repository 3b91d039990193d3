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

type examinerRepository interface {
	List(ctx context.Context, filter models.ExaminerFilter) ([]models.Examiner, int, error)
	FindByID(ctx context.Context, id string) (*models.Examiner, error)
	Create(ctx context.Context, examiner *models.Examiner) error
	Update(ctx context.Context, examiner *models.Examiner) error
	Delete(ctx context.Context, id string) error
}

type examinerCacheInvalidator interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

// SaveExaminerRequest holds payload for creating or updating examiners.
type SaveExaminerRequest struct {
	Name              string              `json:"name" validate:"required"`
	Schedule          map[string][]string `json:"schedule" validate:"required"`
	SupportedPortions []string            `json:"supported_portions" validate:"omitempty,dive,oneof=exclusive shared_half"`
	MaxExamsPerDay    *int                `json:"max_exams_per_day" validate:"omitempty,min=1"`
}

// ExaminerService handles examiner use-cases.
type ExaminerService struct {
	repo      examinerRepository
	cache     examinerCacheInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewExaminerService constructs the examiner service.
func NewExaminerService(repo examinerRepository, cache examinerCacheInvalidator, validate *validator.Validate, logger *zap.Logger) *ExaminerService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExaminerService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// List returns examiners and pagination metadata.
func (s *ExaminerService) List(ctx context.Context, filter models.ExaminerFilter) ([]models.Examiner, *models.Pagination, error) {
	examiners, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list examiners")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return examiners, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get loads a single examiner.
func (s *ExaminerService) Get(ctx context.Context, id string) (*models.Examiner, error) {
	examiner, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "examiner not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load examiner")
	}
	return examiner, nil
}

// Create registers a new examiner.
func (s *ExaminerService) Create(ctx context.Context, req SaveExaminerRequest) (*models.Examiner, error) {
	examiner, err := s.buildExaminer(req)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, examiner); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create examiner")
	}
	return examiner, nil
}

// Update modifies an existing examiner and drops any cached snapshot.
func (s *ExaminerService) Update(ctx context.Context, id string, req SaveExaminerRequest) (*models.Examiner, error) {
	updated, err := s.buildExaminer(req)
	if err != nil {
		return nil, err
	}
	examiner, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	examiner.Name = updated.Name
	examiner.Schedule = updated.Schedule
	examiner.SupportedPortions = updated.SupportedPortions
	examiner.MaxExamsPerDay = updated.MaxExamsPerDay
	if err := s.repo.Update(ctx, examiner); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update examiner")
	}
	s.invalidate(ctx, id)
	return examiner, nil
}

// Delete removes an examiner. Their bookings are kept and fall back to the
// default examiner.
func (s *ExaminerService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete examiner")
	}
	s.invalidate(ctx, id)
	return nil
}

func (s *ExaminerService) buildExaminer(req SaveExaminerRequest) (*models.Examiner, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid examiner payload")
	}
	if err := validateWeeklySchedule(req.Schedule); err != nil {
		return nil, err
	}
	schedule, err := json.Marshal(req.Schedule)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode schedule")
	}
	portions := req.SupportedPortions
	if portions == nil {
		portions = []string{}
	}
	supported, err := json.Marshal(portions)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode supported portions")
	}
	return &models.Examiner{
		Name:              req.Name,
		Schedule:          types.JSONText(schedule),
		SupportedPortions: types.JSONText(supported),
		MaxExamsPerDay:    req.MaxExamsPerDay,
	}, nil
}

func (s *ExaminerService) invalidate(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "examiner:"+id); err != nil {
		s.logger.Warn("examiner cache invalidation failed", zap.String("examiner_id", id), zap.Error(err))
	}
}
