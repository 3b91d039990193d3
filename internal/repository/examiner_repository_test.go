package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amirulmuuminin/tahfidz-exam-api/internal/models"
)

func TestExaminerRepositoryList(t *testing.T) {
	db, mock, cleanup := newBookingRepoMock(t)
	defer cleanup()
	repo := NewExaminerRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "schedule", "supported_portions", "max_exams_per_day", "created_at", "updated_at"}).
		AddRow("ex-1", "Ustadz A", []byte(`{}`), []byte(`[]`), nil, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, schedule, supported_portions, max_exams_per_day, created_at, updated_at FROM examiners WHERE 1=1 ORDER BY name ASC LIMIT 20 OFFSET 0")).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM examiners WHERE 1=1")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	list, total, err := repo.List(context.Background(), models.ExaminerFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExaminerRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newBookingRepoMock(t)
	defer cleanup()
	repo := NewExaminerRepository(db)

	mock.ExpectExec("INSERT INTO examiners").
		WillReturnResult(sqlmock.NewResult(1, 1))

	examiner := &models.Examiner{Name: "Ustadz A", Schedule: []byte(`{}`), SupportedPortions: []byte(`[]`)}
	require.NoError(t, repo.Create(context.Background(), examiner))
	assert.NotEmpty(t, examiner.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExaminerRepositoryDeleteDetachesBookings(t *testing.T) {
	db, mock, cleanup := newBookingRepoMock(t)
	defer cleanup()
	repo := NewExaminerRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET examiner_id = NULL, updated_at = $2 WHERE examiner_id = $1")).
		WithArgs("ex-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM examiners WHERE id = $1")).
		WithArgs("ex-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), "ex-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
