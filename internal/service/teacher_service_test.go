package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-portal-api/internal/models"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
)

type mockTeacherRepo struct {
	teachers    map[string]models.Teacher
	deactivated []string
}

func (m *mockTeacherRepo) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error) {
	return nil, 0, nil
}

func (m *mockTeacherRepo) FindByID(ctx context.Context, schoolID, id string) (*models.Teacher, error) {
	t, ok := m.teachers[id]
	if !ok || t.SchoolID != schoolID {
		return nil, sql.ErrNoRows
	}
	return &t, nil
}

func (m *mockTeacherRepo) ExistsByEmployeeCode(ctx context.Context, schoolID, code, excludeID string) (bool, error) {
	for _, t := range m.teachers {
		if t.SchoolID == schoolID && t.EmployeeCode == code && t.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockTeacherRepo) Create(ctx context.Context, teacher *models.Teacher) error {
	teacher.ID = "t-new"
	m.teachers[teacher.ID] = *teacher
	return nil
}

func (m *mockTeacherRepo) Update(ctx context.Context, teacher *models.Teacher) error {
	m.teachers[teacher.ID] = *teacher
	return nil
}

func (m *mockTeacherRepo) Deactivate(ctx context.Context, schoolID, id string) error {
	m.deactivated = append(m.deactivated, id)
	return nil
}

func TestTeacherCreateNormalizesSubjects(t *testing.T) {
	repo := &mockTeacherRepo{teachers: map[string]models.Teacher{}}
	svc := NewTeacherService(repo, nil, nil)

	teacher, err := svc.Create(context.Background(), "school-1", CreateTeacherRequest{
		EmployeeCode: "T-01",
		FullName:     "Rina",
		Email:        "Rina@School.ID",
		Subjects:     []string{"Math", " math ", "Physics"},
		JoiningDate:  "2024-07-15",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Math", "Physics"}, []string(teacher.Subjects))
	assert.Equal(t, "rina@school.id", teacher.Email)
	require.NotNil(t, teacher.JoiningDate)
	assert.Equal(t, 2024, teacher.JoiningDate.Year())
	assert.True(t, teacher.Active)
}

func TestTeacherDuplicateEmployeeCode(t *testing.T) {
	repo := &mockTeacherRepo{teachers: map[string]models.Teacher{"t1": {ID: "t1", SchoolID: "school-1", EmployeeCode: "T-01"}}}
	svc := NewTeacherService(repo, nil, nil)

	_, err := svc.Create(context.Background(), "school-1", CreateTeacherRequest{EmployeeCode: "T-01", FullName: "Budi"})
	assert.Equal(t, appErrors.ErrDuplicate.Code, appErrors.FromError(err).Code)

	_, err = svc.Create(context.Background(), "school-1", CreateTeacherRequest{EmployeeCode: "T-02", FullName: "Budi", JoiningDate: "15-07-2024"})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestTeacherUpdateAndDeactivate(t *testing.T) {
	repo := &mockTeacherRepo{teachers: map[string]models.Teacher{"t1": {ID: "t1", SchoolID: "school-1", EmployeeCode: "T-01", FullName: "Rina", Active: true}}}
	svc := NewTeacherService(repo, nil, nil)
	subjects := []string{"Biology"}

	updated, err := svc.Update(context.Background(), "school-1", "t1", UpdateTeacherRequest{Subjects: &subjects})
	require.NoError(t, err)
	assert.Equal(t, "Rina", updated.FullName)
	assert.Equal(t, []string{"Biology"}, []string(updated.Subjects))

	require.NoError(t, svc.Deactivate(context.Background(), "school-1", "t1"))
	assert.Equal(t, []string{"t1"}, repo.deactivated)

	err = svc.Deactivate(context.Background(), "school-1", "missing")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
