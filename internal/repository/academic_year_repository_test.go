package repository

import (
	"context"
	"errors"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-portal-api/internal/models"
)

func TestAcademicYearSetCurrentUnsetsOthers(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAcademicYearRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE academic_years SET is_current = FALSE`).
		WithArgs(sqlmock.AnyArg(), "school-1", "year-2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE academic_years SET is_current = TRUE`).
		WithArgs(sqlmock.AnyArg(), "year-2", "school-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.SetCurrent(context.Background(), "school-1", "year-2"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAcademicYearSetCurrentRollsBack(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAcademicYearRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE academic_years SET is_current = FALSE`).
		WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	err := repo.SetCurrent(context.Background(), "school-1", "year-2")
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPromoteMovesActiveStudents(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAcademicYearRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, academic_year_id FROM students WHERE school_id = \$1 AND class_id = \$2 AND status = 'ACTIVE' ORDER BY roll_no, id FOR UPDATE`).
		WithArgs("school-1", "class-9").
		WillReturnRows(sqlmock.NewRows([]string{"id", "academic_year_id"}).
			AddRow("s1", "year-1").
			AddRow("s2", "year-1"))
	mock.ExpectQuery(`SELECT capacity FROM classes WHERE id = \$1 AND school_id = \$2 FOR UPDATE`).
		WithArgs("class-10", "school-1").
		WillReturnRows(sqlmock.NewRows([]string{"capacity"}).AddRow(32))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM students WHERE class_id = \$1 AND status = 'ACTIVE'`).
		WithArgs("class-10").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(30))
	for _, id := range []string{"s1", "s2"} {
		mock.ExpectExec(`UPDATE students SET class_id = \$1, academic_year_id = \$2`).
			WithArgs("class-10", "year-2", sqlmock.AnyArg(), id).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO student_promotions").
			WillReturnResult(sqlmock.NewResult(1, 1))
	}
	mock.ExpectCommit()

	toClass, toYear := "class-10", "year-2"
	result, err := repo.Promote(context.Background(), models.PromotionPlan{
		SchoolID:         "school-1",
		FromClassID:      "class-9",
		ToClassID:        &toClass,
		ToAcademicYearID: &toYear,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Promoted)
	assert.Equal(t, 0, result.Graduated)
	assert.Equal(t, []string{"s1", "s2"}, result.StudentIDs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPromoteGraduatesSelectedAndSkipsOthers(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAcademicYearRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`AND status = 'ACTIVE' AND id IN \(\$3, \$4\) ORDER BY`).
		WithArgs("school-1", "class-12", "s1", "s-left").
		WillReturnRows(sqlmock.NewRows([]string{"id", "academic_year_id"}).AddRow("s1", "year-1"))
	mock.ExpectExec(`UPDATE students SET status = 'GRADUATED'`).
		WithArgs(sqlmock.AnyArg(), "s1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO student_promotions").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	result, err := repo.Promote(context.Background(), models.PromotionPlan{
		SchoolID:    "school-1",
		FromClassID: "class-12",
		StudentIDs:  []string{"s1", "s-left"},
		Graduate:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Graduated)
	assert.Equal(t, 1, result.Skipped)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPromoteRollsBackOnHistoryFailure(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAcademicYearRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, academic_year_id FROM students`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "academic_year_id"}).AddRow("s1", nil))
	mock.ExpectQuery(`SELECT capacity FROM classes`).
		WillReturnRows(sqlmock.NewRows([]string{"capacity"}).AddRow(0))
	mock.ExpectExec(`UPDATE students SET class_id`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO student_promotions").
		WillReturnError(errors.New("constraint"))
	mock.ExpectRollback()

	toClass := "class-10"
	_, err := repo.Promote(context.Background(), models.PromotionPlan{SchoolID: "school-1", FromClassID: "class-9", ToClassID: &toClass})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPromoteRefusesWhenTargetClassIsFull(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAcademicYearRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`AND id IN \(\$3, \$4, \$5\) ORDER BY`).
		WithArgs("school-1", "class-9", "s1", "s2", "s3").
		WillReturnRows(sqlmock.NewRows([]string{"id", "academic_year_id"}).
			AddRow("s1", "year-1").
			AddRow("s2", "year-1").
			AddRow("s3", "year-1"))
	mock.ExpectQuery(`SELECT capacity FROM classes`).
		WithArgs("class-10", "school-1").
		WillReturnRows(sqlmock.NewRows([]string{"capacity"}).AddRow(1))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM students`).
		WithArgs("class-10").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectRollback()

	toClass := "class-10"
	result, err := repo.Promote(context.Background(), models.PromotionPlan{
		SchoolID:    "school-1",
		FromClassID: "class-9",
		ToClassID:   &toClass,
		StudentIDs:  []string{"s1", "s2", "s3"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrClassFull)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}
