package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-portal-api/internal/models"
)

func TestMarksheetUpsertReplacesSubjects(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewMarksheetRepository(db)

	created := time.Now().Add(-time.Hour)
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO marksheets .* ON CONFLICT \(student_id, examination_id\) DO UPDATE .* RETURNING id, created_at`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("existing", created))
	mock.ExpectExec(`DELETE FROM marksheet_subjects WHERE marksheet_id = \$1`).
		WithArgs("existing").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO marksheet_subjects").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO marksheet_subjects").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	sheet := &models.Marksheet{
		SchoolID:      "school-1",
		StudentID:     "s1",
		ExaminationID: "e1",
		Result:        models.ResultPass,
		Subjects: []models.MarksheetSubject{
			{Subject: "Math", MaxMarks: 100, ObtainedMarks: 90},
			{Subject: "Science", MaxMarks: 100, ObtainedMarks: 80},
		},
	}
	require.NoError(t, repo.Upsert(context.Background(), sheet))
	assert.Equal(t, "existing", sheet.ID)
	assert.Equal(t, "existing", sheet.Subjects[1].MarksheetID)
	assert.Equal(t, 1, sheet.Subjects[1].Position)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarksheetFindByIDLoadsSubjects(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewMarksheetRepository(db)

	now := time.Now()
	mock.ExpectQuery(`FROM marksheets m .* WHERE m.id = \$1 AND m.school_id = \$2`).
		WithArgs("m1", "school-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "school_id", "student_id", "examination_id", "class_id", "academic_year_id",
			"total_max", "total_obtained", "percentage", "grade", "result", "remarks", "created_by", "created_at", "updated_at",
			"student_name", "admission_no", "examination_name", "exam_type", "class_name",
		}).AddRow("m1", "school-1", "s1", "e1", nil, nil, 200.0, 170.0, 85.0, "A", "PASS", "", nil, now, now,
			"Ada Lovelace", "ADM-1", "Midterm", "MIDTERM", nil))
	mock.ExpectQuery(`FROM marksheet_subjects WHERE marksheet_id IN \(\$1\)`).
		WithArgs("m1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "marksheet_id", "subject", "max_marks", "obtained_marks", "pass_marks", "position"}).
			AddRow("sub1", "m1", "Math", 100.0, 90.0, 33.0, 0).
			AddRow("sub2", "m1", "Science", 100.0, 80.0, 33.0, 1))

	sheet, err := repo.FindByID(context.Background(), "school-1", "m1")
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", sheet.StudentName)
	require.Len(t, sheet.Subjects, 2)
	assert.Equal(t, "Science", sheet.Subjects[1].Subject)
	assert.NoError(t, mock.ExpectationsWereMet())
}
