package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/amirulmuuminin/tahfidz-exam-api/internal/models"
)

const examinerColumns = "id, name, schedule, supported_portions, max_exams_per_day, created_at, updated_at"

// ExaminerRepository provides persistence for examiners.
type ExaminerRepository struct {
	db *sqlx.DB
}

// NewExaminerRepository creates a new examiner repository.
func NewExaminerRepository(db *sqlx.DB) *ExaminerRepository {
	return &ExaminerRepository{db: db}
}

// List returns examiners with optional filtering and pagination.
func (r *ExaminerRepository) List(ctx context.Context, filter models.ExaminerFilter) ([]models.Examiner, int, error) {
	base := "FROM examiners WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("name ILIKE $%d", len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{"name": true, "created_at": true}
	if !allowedSorts[sortBy] {
		sortBy = "name"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", examinerColumns, base, sortBy, order, size, offset)
	var examiners []models.Examiner
	if err := r.db.SelectContext(ctx, &examiners, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list examiners: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count examiners: %w", err)
	}

	return examiners, total, nil
}

// ListAll returns the full examiner roster ordered by name.
func (r *ExaminerRepository) ListAll(ctx context.Context) ([]models.Examiner, error) {
	query := fmt.Sprintf("SELECT %s FROM examiners ORDER BY name ASC", examinerColumns)
	var examiners []models.Examiner
	if err := r.db.SelectContext(ctx, &examiners, query); err != nil {
		return nil, fmt.Errorf("list all examiners: %w", err)
	}
	return examiners, nil
}

// FindByID loads an examiner by id.
func (r *ExaminerRepository) FindByID(ctx context.Context, id string) (*models.Examiner, error) {
	query := fmt.Sprintf("SELECT %s FROM examiners WHERE id = $1", examinerColumns)
	var examiner models.Examiner
	if err := r.db.GetContext(ctx, &examiner, query, id); err != nil {
		return nil, err
	}
	return &examiner, nil
}

// Create stores a new examiner record.
func (r *ExaminerRepository) Create(ctx context.Context, examiner *models.Examiner) error {
	if examiner.ID == "" {
		examiner.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if examiner.CreatedAt.IsZero() {
		examiner.CreatedAt = now
	}
	examiner.UpdatedAt = now

	const query = `INSERT INTO examiners (id, name, schedule, supported_portions, max_exams_per_day, created_at, updated_at) VALUES (:id, :name, :schedule, :supported_portions, :max_exams_per_day, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, examiner); err != nil {
		return fmt.Errorf("create examiner: %w", err)
	}
	return nil
}

// Update modifies an examiner record.
func (r *ExaminerRepository) Update(ctx context.Context, examiner *models.Examiner) error {
	examiner.UpdatedAt = time.Now().UTC()
	const query = `UPDATE examiners SET name = :name, schedule = :schedule, supported_portions = :supported_portions, max_exams_per_day = :max_exams_per_day, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, examiner); err != nil {
		return fmt.Errorf("update examiner: %w", err)
	}
	return nil
}

// Delete removes an examiner. Referencing bookings are detached, not
// deleted: they fall back to the default examiner.
func (r *ExaminerRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete examiner: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `UPDATE bookings SET examiner_id = NULL, updated_at = $2 WHERE examiner_id = $1`, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("detach examiner bookings: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM examiners WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete examiner: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete examiner: %w", err)
	}
	return nil
}
