package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/amirulmuuminin/tahfidz-exam-api/internal/models"
)

const bookingColumns = "id, class_id, student_id, date_key, period, portion_class, juz_label, examiner_id, group_id, part_number, status, score, created_at, updated_at"

// BookingRepository provides persistence for exam bookings.
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository creates a new booking repository.
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// BeginTxx starts a transaction on the underlying database.
func (r *BookingRepository) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return r.db.BeginTxx(ctx, opts)
}

// List returns bookings with optional filtering and pagination.
func (r *BookingRepository) List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, int, error) {
	base := "FROM bookings WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.ClassID != "" {
		conditions = append(conditions, fmt.Sprintf("class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.ExaminerID != "" {
		conditions = append(conditions, fmt.Sprintf("examiner_id = $%d", len(args)+1))
		args = append(args, filter.ExaminerID)
	}
	if filter.DateKey != "" {
		conditions = append(conditions, fmt.Sprintf("date_key = $%d", len(args)+1))
		args = append(args, filter.DateKey)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"date_key":   true,
		"period":     true,
		"status":     true,
		"created_at": true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "date_key"
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", bookingColumns, base, sortBy, order, size, offset)
	var bookings []models.Booking
	if err := r.db.SelectContext(ctx, &bookings, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list bookings: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count bookings: %w", err)
	}

	return bookings, total, nil
}

// FindByID loads a booking by id.
func (r *BookingRepository) FindByID(ctx context.Context, id string) (*models.Booking, error) {
	query := fmt.Sprintf("SELECT %s FROM bookings WHERE id = $1", bookingColumns)
	var booking models.Booking
	if err := r.db.GetContext(ctx, &booking, query, id); err != nil {
		return nil, err
	}
	return &booking, nil
}

// ListBySlotForUpdate reads the slot's co-residents inside a transaction with
// a row lock, so a concurrent insert for the same slot serialises behind it.
// Examiner scoping happens in the engine, not here, so the caller always
// sees the full co-resident set.
func (r *BookingRepository) ListBySlotForUpdate(ctx context.Context, tx *sqlx.Tx, dateKey, period string) ([]models.Booking, error) {
	query := fmt.Sprintf("SELECT %s FROM bookings WHERE date_key = $1 AND period = $2 FOR UPDATE", bookingColumns)
	var bookings []models.Booking
	if err := tx.SelectContext(ctx, &bookings, query, dateKey, period); err != nil {
		return nil, fmt.Errorf("list bookings by slot for update: %w", err)
	}
	return bookings, nil
}

// ListByDateRange returns all bookings between the two date keys inclusive,
// across all classes.
func (r *BookingRepository) ListByDateRange(ctx context.Context, startKey, endKey string) ([]models.Booking, error) {
	query := fmt.Sprintf("SELECT %s FROM bookings WHERE date_key >= $1 AND date_key <= $2 ORDER BY date_key ASC, period ASC", bookingColumns)
	var bookings []models.Booking
	if err := r.db.SelectContext(ctx, &bookings, query, startKey, endKey); err != nil {
		return nil, fmt.Errorf("list bookings by date range: %w", err)
	}
	return bookings, nil
}

// CountByExaminerAndDate counts bookings attributed to an examiner on a date.
// Bookings without an examiner are counted under the default examiner id.
func (r *BookingRepository) CountByExaminerAndDate(ctx context.Context, examinerID, defaultExaminerID, dateKey string) (int, error) {
	const query = `SELECT COUNT(*) FROM bookings WHERE date_key = $1 AND (examiner_id = $2 OR (examiner_id IS NULL AND $2 = $3))`
	var total int
	if err := r.db.GetContext(ctx, &total, query, dateKey, examinerID, defaultExaminerID); err != nil {
		return 0, fmt.Errorf("count bookings by examiner and date: %w", err)
	}
	return total, nil
}

// CreateWithTx inserts a booking using an existing transaction.
func (r *BookingRepository) CreateWithTx(ctx context.Context, tx *sqlx.Tx, booking *models.Booking) error {
	if tx == nil {
		return fmt.Errorf("nil transaction provided")
	}
	return r.insertBooking(ctx, tx, booking)
}

// BulkCreateWithTx inserts several bookings using an existing transaction.
func (r *BookingRepository) BulkCreateWithTx(ctx context.Context, tx *sqlx.Tx, bookings []models.Booking) error {
	if tx == nil {
		return fmt.Errorf("nil transaction provided")
	}
	for i := range bookings {
		if err := r.insertBooking(ctx, tx, &bookings[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *BookingRepository) insertBooking(ctx context.Context, exec sqlx.ExtContext, booking *models.Booking) error {
	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = now
	}
	booking.UpdatedAt = now

	const query = `INSERT INTO bookings (id, class_id, student_id, date_key, period, portion_class, juz_label, examiner_id, group_id, part_number, status, score, created_at, updated_at) VALUES (:id, :class_id, :student_id, :date_key, :period, :portion_class, :juz_label, :examiner_id, :group_id, :part_number, :status, :score, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, booking); err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

// Complete marks a booking finished and records its score.
func (r *BookingRepository) Complete(ctx context.Context, id string, score int) error {
	const query = `UPDATE bookings SET status = $2, score = $3, updated_at = $4 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, models.BookingCompleted, score, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("complete booking: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a booking by id.
func (r *BookingRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM bookings WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete booking: %w", err)
	}
	return nil
}

// DeleteGroup removes every part of a multi-part booking group.
func (r *BookingRepository) DeleteGroup(ctx context.Context, groupID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM bookings WHERE group_id = $1`, groupID); err != nil {
		return fmt.Errorf("delete booking group: %w", err)
	}
	return nil
}
