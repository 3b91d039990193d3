package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amirulmuuminin/tahfidz-exam-api/internal/models"
)

func newBookingRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func bookingRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "class_id", "student_id", "date_key", "period", "portion_class", "juz_label", "examiner_id", "group_id", "part_number", "status", "score", "created_at", "updated_at"})
}

func TestBookingRepositoryList(t *testing.T) {
	db, mock, cleanup := newBookingRepoMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	rows := bookingRows().
		AddRow("b1", "c1", "s1", "2026-09-07", "Jam ke-1", "exclusive", "Juz 30", nil, nil, nil, "scheduled", nil, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, class_id, student_id, date_key, period, portion_class, juz_label, examiner_id, group_id, part_number, status, score, created_at, updated_at FROM bookings WHERE 1=1 AND class_id = $1 ORDER BY date_key ASC LIMIT 20 OFFSET 0")).
		WithArgs("c1").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM bookings WHERE 1=1 AND class_id = $1")).
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	list, total, err := repo.List(context.Background(), models.BookingFilter{ClassID: "c1"})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, models.PortionExclusive, list[0].PortionClass)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryListByDateRange(t *testing.T) {
	db, mock, cleanup := newBookingRepoMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	rows := bookingRows().
		AddRow("b1", "c1", "s1", "2026-09-07", "Jam ke-1", "shared_half", "Juz 1", nil, nil, nil, "scheduled", nil, time.Now(), time.Now()).
		AddRow("b2", "c2", "s2", "2026-09-08", "Jam ke-2", "exclusive", "Juz 2", nil, nil, nil, "scheduled", nil, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, class_id, student_id, date_key, period, portion_class, juz_label, examiner_id, group_id, part_number, status, score, created_at, updated_at FROM bookings WHERE date_key >= $1 AND date_key <= $2 ORDER BY date_key ASC, period ASC")).
		WithArgs("2026-09-07", "2026-10-06").
		WillReturnRows(rows)

	list, err := repo.ListByDateRange(context.Background(), "2026-09-07", "2026-10-06")
	require.NoError(t, err)
	assert.Len(t, list, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryCountByExaminerAndDate(t *testing.T) {
	db, mock, cleanup := newBookingRepoMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM bookings WHERE date_key = $1 AND (examiner_id = $2 OR (examiner_id IS NULL AND $2 = $3))")).
		WithArgs("2026-09-07", "ex-default", "ex-default").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	total, err := repo.CountByExaminerAndDate(context.Background(), "ex-default", "ex-default", "2026-09-07")
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryCreateWithTx(t *testing.T) {
	db, mock, cleanup := newBookingRepoMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO bookings").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	tx, err := repo.BeginTxx(context.Background(), nil)
	require.NoError(t, err)

	booking := &models.Booking{
		ClassID:      "c1",
		StudentID:    "s1",
		DateKey:      "2026-09-07",
		Period:       "Jam ke-1",
		PortionClass: models.PortionExclusive,
		JuzLabel:     "Juz 30",
		Status:       models.BookingScheduled,
	}
	require.NoError(t, repo.CreateWithTx(context.Background(), tx, booking))
	assert.NotEmpty(t, booking.ID)
	assert.False(t, booking.CreatedAt.IsZero())
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryCompleteMissingRow(t *testing.T) {
	db, mock, cleanup := newBookingRepoMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	mock.ExpectExec("UPDATE bookings SET status").
		WithArgs("missing", string(models.BookingCompleted), 90, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Complete(context.Background(), "missing", 90)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryDeleteGroup(t *testing.T) {
	db, mock, cleanup := newBookingRepoMock(t)
	defer cleanup()
	repo := NewBookingRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM bookings WHERE group_id = $1")).
		WithArgs("g1").
		WillReturnResult(sqlmock.NewResult(0, 5))

	require.NoError(t, repo.DeleteGroup(context.Background(), "g1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
