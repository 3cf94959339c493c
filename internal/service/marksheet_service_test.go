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

type mockMarksheetRepo struct {
	sheets map[string]models.MarksheetDetail
	byYear []models.MarksheetDetail
}

func (m *mockMarksheetRepo) Upsert(ctx context.Context, sheet *models.Marksheet) error {
	for id, existing := range m.sheets {
		if existing.StudentID == sheet.StudentID && existing.ExaminationID == sheet.ExaminationID {
			sheet.ID = id
		}
	}
	if sheet.ID == "" {
		sheet.ID = "ms-1"
	}
	m.sheets[sheet.ID] = models.MarksheetDetail{Marksheet: *sheet, StudentName: "Adi Putra", AdmissionNo: "ADM 001", ExaminationName: "Midterm 2026"}
	return nil
}

func (m *mockMarksheetRepo) Update(ctx context.Context, sheet *models.Marksheet) error {
	detail := m.sheets[sheet.ID]
	detail.Marksheet = *sheet
	m.sheets[sheet.ID] = detail
	return nil
}

func (m *mockMarksheetRepo) FindByID(ctx context.Context, schoolID, id string) (*models.MarksheetDetail, error) {
	sheet, ok := m.sheets[id]
	if !ok || sheet.SchoolID != schoolID {
		return nil, sql.ErrNoRows
	}
	return &sheet, nil
}

func (m *mockMarksheetRepo) List(ctx context.Context, filter models.MarksheetFilter) ([]models.MarksheetDetail, int, error) {
	return nil, 0, nil
}

func (m *mockMarksheetRepo) ListForStudentYear(ctx context.Context, schoolID, studentID, academicYearID string) ([]models.MarksheetDetail, error) {
	return m.byYear, nil
}

func (m *mockMarksheetRepo) Delete(ctx context.Context, schoolID, id string) error {
	delete(m.sheets, id)
	return nil
}

type stubStudentLookup map[string]models.StudentDetail

func (s stubStudentLookup) FindByID(ctx context.Context, schoolID, id string) (*models.StudentDetail, error) {
	if st, ok := s[id]; ok && st.SchoolID == schoolID {
		return &st, nil
	}
	return nil, sql.ErrNoRows
}

type stubExamLookup map[string]models.Examination

func (s stubExamLookup) FindByID(ctx context.Context, schoolID, id string) (*models.Examination, error) {
	if e, ok := s[id]; ok && e.SchoolID == schoolID {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

const examMid = "0b6c7a10-0000-4000-8000-00000000e001"

func newMarksheetFixture() (*MarksheetService, *mockMarksheetRepo) {
	repo := &mockMarksheetRepo{sheets: map[string]models.MarksheetDetail{}}
	class := classSeven
	students := stubStudentLookup{pupilOne: {Student: models.Student{ID: pupilOne, SchoolID: "school-1", ClassID: &class}}}
	exams := stubExamLookup{examMid: {ID: examMid, SchoolID: "school-1", AcademicYearID: yearNext, Name: "Midterm 2026"}}
	return NewMarksheetService(repo, students, exams, nil, nil, nil), repo
}

func TestMarksheetSaveDerivesGradeAndResult(t *testing.T) {
	svc, repo := newMarksheetFixture()

	sheet, err := svc.Save(context.Background(), schoolAdminActor, SaveMarksheetRequest{
		StudentID:     pupilOne,
		ExaminationID: examMid,
		Subjects: []SubjectMarks{
			{Subject: "Math", MaxMarks: 100, ObtainedMarks: 92},
			{Subject: "Science", MaxMarks: 100, ObtainedMarks: 86},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 200.0, sheet.TotalMax)
	assert.Equal(t, 178.0, sheet.TotalObtained)
	assert.Equal(t, 89.0, sheet.Percentage)
	assert.Equal(t, "A", sheet.Grade)
	assert.Equal(t, models.ResultPass, sheet.Result)
	assert.Equal(t, 33.0, sheet.Subjects[0].PassMarks)
	assert.Equal(t, "A+", sheet.Subjects[0].Grade)
	require.NotNil(t, sheet.AcademicYearID)
	assert.Equal(t, yearNext, *sheet.AcademicYearID)
	require.NotNil(t, sheet.ClassID)
	assert.Equal(t, classSeven, *sheet.ClassID)

	// saving again for the same student and exam replaces the marksheet
	again, err := svc.Save(context.Background(), schoolAdminActor, SaveMarksheetRequest{
		StudentID:     pupilOne,
		ExaminationID: examMid,
		Subjects: []SubjectMarks{
			{Subject: "Math", MaxMarks: 100, ObtainedMarks: 90},
			{Subject: "Science", MaxMarks: 100, ObtainedMarks: 20},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, sheet.ID, again.ID)
	assert.Len(t, repo.sheets, 1)
	assert.Equal(t, 55.0, again.Percentage)
	assert.Equal(t, models.ResultFail, again.Result)
	assert.False(t, again.Subjects[1].Passed)
}

func TestMarksheetSaveValidatesSubjects(t *testing.T) {
	svc, _ := newMarksheetFixture()
	pass := 120.0

	_, err := svc.Save(context.Background(), schoolAdminActor, SaveMarksheetRequest{
		StudentID:     pupilOne,
		ExaminationID: examMid,
		Subjects: []SubjectMarks{
			{Subject: "Math", MaxMarks: 100, ObtainedMarks: 101},
			{Subject: " math", MaxMarks: 100, ObtainedMarks: 50},
			{Subject: "Art", MaxMarks: 100, ObtainedMarks: 50, PassMarks: &pass},
		},
	})
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Contains(t, appErr.Details, "subjects[0].obtained_marks")
	assert.Contains(t, appErr.Details, "subjects[1].subject")
	assert.Contains(t, appErr.Details, "subjects[2].pass_marks")

	_, err = svc.Save(context.Background(), schoolAdminActor, SaveMarksheetRequest{
		StudentID:     pupilTwo,
		ExaminationID: examMid,
		Subjects:      []SubjectMarks{{Subject: "Math", MaxMarks: 100, ObtainedMarks: 50}},
	})
	assert.Contains(t, appErrors.FromError(err).Details, "student_id")
}

func TestMarksheetUpdateRecomputes(t *testing.T) {
	svc, _ := newMarksheetFixture()
	sheet, err := svc.Save(context.Background(), schoolAdminActor, SaveMarksheetRequest{
		StudentID:     pupilOne,
		ExaminationID: examMid,
		Subjects:      []SubjectMarks{{Subject: "Math", MaxMarks: 50, ObtainedMarks: 10}},
	})
	require.NoError(t, err)
	assert.Equal(t, models.ResultFail, sheet.Result)

	subjects := []SubjectMarks{{Subject: "Math", MaxMarks: 50, ObtainedMarks: 45}}
	remarks := " much better "
	updated, err := svc.Update(context.Background(), "school-1", sheet.ID, UpdateMarksheetRequest{Subjects: &subjects, Remarks: &remarks})
	require.NoError(t, err)
	assert.Equal(t, 90.0, updated.Percentage)
	assert.Equal(t, "A+", updated.Grade)
	assert.Equal(t, models.ResultPass, updated.Result)
	assert.Equal(t, "much better", updated.Remarks)

	file, err := svc.PDF(context.Background(), "school-1", sheet.ID)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)

	_, err = svc.Get(context.Background(), "school-2", sheet.ID)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestFinalMarksheetAveragesAcrossExams(t *testing.T) {
	svc, repo := newMarksheetFixture()
	repo.byYear = []models.MarksheetDetail{
		{
			StudentName: "Adi Putra",
			Marksheet: models.Marksheet{ExaminationID: "e1", Percentage: 80, Subjects: []models.MarksheetSubject{
				{Subject: "Math", MaxMarks: 100, ObtainedMarks: 90},
				{Subject: "Science", MaxMarks: 100, ObtainedMarks: 70},
			}},
		},
		{
			Marksheet: models.Marksheet{ExaminationID: "e2", Percentage: 60, Subjects: []models.MarksheetSubject{
				{Subject: "math", MaxMarks: 50, ObtainedMarks: 35},
			}},
		},
	}

	final, err := svc.Final(context.Background(), "school-1", pupilOne, yearNext)
	require.NoError(t, err)
	assert.Equal(t, "Adi Putra", final.StudentName)
	require.Len(t, final.Exams, 2)
	require.Len(t, final.Subjects, 2)
	assert.Equal(t, "Math", final.Subjects[0].Subject)
	assert.Equal(t, 2, final.Subjects[0].Exams)
	assert.Equal(t, 80.0, final.Subjects[0].AveragePercentage)
	assert.Equal(t, 150.0, final.Subjects[0].TotalMax)
	assert.Equal(t, 70.0, final.Subjects[1].AveragePercentage)
	assert.Equal(t, "B+", final.Subjects[1].Grade)
	assert.Equal(t, 70.0, final.Percentage)
	assert.Equal(t, "B+", final.Grade)
	assert.Equal(t, models.ResultPass, final.Result)

	repo.byYear = nil
	_, err = svc.Final(context.Background(), "school-1", pupilOne, yearNext)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	_, err = svc.Final(context.Background(), "school-1", "", "")
	appErr := appErrors.FromError(err)
	assert.Contains(t, appErr.Details, "student_id")
	assert.Contains(t, appErr.Details, "academic_year_id")
}

func TestExaminationCreateChecksYearAndDates(t *testing.T) {
	years := newMockAcademicYearRepo(models.AcademicYear{ID: yearNext, SchoolID: "school-1"})
	repo := &fakeExamRepo{exams: map[string]models.Examination{}}
	svc := NewExaminationService(repo, years, nil, nil)

	_, err := svc.Create(context.Background(), "school-1", CreateExaminationRequest{
		AcademicYearID: yearNext, Name: "Midterm", ExamType: "MIDTERM", StartDate: "2026-10-10", EndDate: "2026-10-01",
	})
	assert.Contains(t, appErrors.FromError(err).Details, "end_date")

	_, err = svc.Create(context.Background(), "school-2", CreateExaminationRequest{AcademicYearID: yearNext, Name: "Midterm", ExamType: "MIDTERM"})
	assert.Contains(t, appErrors.FromError(err).Details, "academic_year_id")

	_, err = svc.Create(context.Background(), "school-1", CreateExaminationRequest{AcademicYearID: yearNext, Name: "Quiz", ExamType: "QUIZ"})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	exam, err := svc.Create(context.Background(), "school-1", CreateExaminationRequest{
		AcademicYearID: yearNext, Name: " Midterm ", ExamType: "MIDTERM", StartDate: "2026-10-01", EndDate: "2026-10-10",
	})
	require.NoError(t, err)
	assert.Equal(t, "Midterm", exam.Name)
	assert.Equal(t, models.ExamTypeMidterm, exam.ExamType)

	name := "Final"
	updated, err := svc.Update(context.Background(), "school-1", exam.ID, UpdateExaminationRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Final", updated.Name)

	require.NoError(t, svc.Delete(context.Background(), "school-1", exam.ID))
	err = svc.Delete(context.Background(), "school-1", exam.ID)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

type fakeExamRepo struct {
	exams map[string]models.Examination
}

func (f *fakeExamRepo) List(ctx context.Context, filter models.ExaminationFilter) ([]models.Examination, error) {
	return nil, nil
}

func (f *fakeExamRepo) FindByID(ctx context.Context, schoolID, id string) (*models.Examination, error) {
	if e, ok := f.exams[id]; ok && e.SchoolID == schoolID {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeExamRepo) Create(ctx context.Context, exam *models.Examination) error {
	exam.ID = "exam-1"
	f.exams[exam.ID] = *exam
	return nil
}

func (f *fakeExamRepo) Update(ctx context.Context, exam *models.Examination) error {
	f.exams[exam.ID] = *exam
	return nil
}

func (f *fakeExamRepo) Delete(ctx context.Context, schoolID, id string) error {
	delete(f.exams, id)
	return nil
}
