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

func TestTeacherRepositoryListBySubject(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "school_id", "user_id", "employee_code", "full_name", "email", "phone", "subjects", "qualification", "joining_date", "active", "created_at", "updated_at"}).
		AddRow("t1", "school-1", nil, "EMP-1", "Grace Hopper", "grace@school.test", "", []byte("{Math,Physics}"), "PhD", nil, true, now, now)
	mock.ExpectQuery(`FROM teachers WHERE school_id = \$1 AND \$2 = ANY\(subjects\) ORDER BY full_name ASC LIMIT 20 OFFSET 0`).
		WithArgs("school-1", "Math").
		WillReturnRows(rows)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM teachers WHERE school_id = \$1 AND \$2 = ANY\(subjects\)`).
		WithArgs("school-1", "Math").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	teachers, total, err := repo.List(context.Background(), models.TeacherFilter{SchoolID: "school-1", Subject: "Math", SortBy: "full_name", SortOrder: "asc"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, teachers, 1)
	assert.Equal(t, []string{"Math", "Physics"}, []string(teachers[0].Subjects))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeacherRepositoryCreateDefaultsSubjects(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTeacherRepository(db)

	mock.ExpectExec("INSERT INTO teachers").WillReturnResult(sqlmock.NewResult(1, 1))

	teacher := &models.Teacher{SchoolID: "school-1", EmployeeCode: "EMP-2", FullName: "Alan Turing", Active: true}
	require.NoError(t, repo.Create(context.Background(), teacher))
	assert.NotNil(t, teacher.Subjects)
	assert.NotEmpty(t, teacher.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
