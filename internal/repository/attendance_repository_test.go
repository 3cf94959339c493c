package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-portal-api/internal/models"
)

func TestAttendanceBulkUpsertSingleTransaction(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	day := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	records := []models.Attendance{
		{SchoolID: "school-1", StudentID: "s1", ClassID: "c1", Date: day, Status: models.AttendanceStatusPresent},
		{SchoolID: "school-1", StudentID: "s2", ClassID: "c1", Date: day, Status: models.AttendanceStatusLate},
	}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO attendance .* ON CONFLICT \(student_id, date\) DO UPDATE`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO attendance .* ON CONFLICT \(student_id, date\) DO UPDATE`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.BulkUpsert(context.Background(), records))
	assert.NotEmpty(t, records[0].ID)
	assert.NotEqual(t, records[0].ID, records[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceBulkUpsertRollsBack(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO attendance").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO attendance").WillReturnError(errors.New("fk violation"))
	mock.ExpectRollback()

	err := repo.BulkUpsert(context.Background(), []models.Attendance{{StudentID: "s1"}, {StudentID: "s2"}})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceBulkUpsertEmptyIsNoop(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()

	require.NoError(t, NewAttendanceRepository(db).BulkUpsert(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttendanceCounts(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAttendanceRepository(db)

	from := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`FROM attendance a WHERE a.school_id = \$1 AND a.student_id = \$2 AND a.date BETWEEN \$3 AND \$4`).
		WithArgs("school-1", "s1", from, to).
		WillReturnRows(sqlmock.NewRows([]string{"present", "absent", "late", "leave"}).AddRow(15, 2, 3, 1))

	counts, err := repo.Counts(context.Background(), "school-1", "s1", from, to)
	require.NoError(t, err)
	assert.Equal(t, 21, counts.Marked())
	assert.Equal(t, 3, counts.Late)
	assert.NoError(t, mock.ExpectationsWereMet())
}
