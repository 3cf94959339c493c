package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/school-portal-api/internal/models"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
	"github.com/noah-isme/school-portal-api/pkg/grading"
	"github.com/noah-isme/school-portal-api/pkg/validation"
)

type marksheetRepository interface {
	Upsert(ctx context.Context, sheet *models.Marksheet) error
	Update(ctx context.Context, sheet *models.Marksheet) error
	FindByID(ctx context.Context, schoolID, id string) (*models.MarksheetDetail, error)
	List(ctx context.Context, filter models.MarksheetFilter) ([]models.MarksheetDetail, int, error)
	ListForStudentYear(ctx context.Context, schoolID, studentID, academicYearID string) ([]models.MarksheetDetail, error)
	Delete(ctx context.Context, schoolID, id string) error
}

type studentLookup interface {
	FindByID(ctx context.Context, schoolID, id string) (*models.StudentDetail, error)
}

type examinationLookup interface {
	FindByID(ctx context.Context, schoolID, id string) (*models.Examination, error)
}

// SubjectMarks is one subject line of a marksheet request. PassMarks
// defaults to 33% of MaxMarks.
type SubjectMarks struct {
	Subject       string   `json:"subject" validate:"required,max=100"`
	MaxMarks      float64  `json:"max_marks" validate:"gt=0"`
	ObtainedMarks float64  `json:"obtained_marks" validate:"gte=0"`
	PassMarks     *float64 `json:"pass_marks" validate:"omitempty,gte=0"`
}

// SaveMarksheetRequest creates or replaces the marksheet of a student for an exam.
type SaveMarksheetRequest struct {
	StudentID     string         `json:"student_id" validate:"required,uuid"`
	ExaminationID string         `json:"examination_id" validate:"required,uuid"`
	Subjects      []SubjectMarks `json:"subjects" validate:"required,min=1,max=30,dive"`
	Remarks       string         `json:"remarks" validate:"max=500"`
}

// UpdateMarksheetRequest replaces subjects and/or remarks.
type UpdateMarksheetRequest struct {
	Subjects *[]SubjectMarks `json:"subjects" validate:"omitempty,min=1,max=30,dive"`
	Remarks  *string         `json:"remarks" validate:"omitempty,max=500"`
}

// MarksheetService records exam marks and derives grades and results.
type MarksheetService struct {
	repo      marksheetRepository
	students  studentLookup
	exams     examinationLookup
	exporter  *ExportService
	validator *validation.Validator
	logger    *zap.Logger
}

func NewMarksheetService(repo marksheetRepository, students studentLookup, exams examinationLookup, exporter *ExportService, validate *validation.Validator, logger *zap.Logger) *MarksheetService {
	if validate == nil {
		validate = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if exporter == nil {
		exporter = NewExportService(nil, nil, logger)
	}
	return &MarksheetService{repo: repo, students: students, exams: exams, exporter: exporter, validator: validate, logger: logger}
}

// Save upserts the marksheet keyed by (student, examination).
func (s *MarksheetService) Save(ctx context.Context, actor Actor, req SaveMarksheetRequest) (*models.MarksheetDetail, error) {
	schoolID, err := requireSchool(actor)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Check(req, "invalid marksheet payload"); err != nil {
		return nil, err
	}
	subjects, err := buildSubjects(req.Subjects)
	if err != nil {
		return nil, err
	}

	student, err := s.students.FindByID(ctx, schoolID, req.StudentID)
	if err != nil {
		return nil, referenceError(err, "student_id", "student not found", "failed to load student")
	}
	exam, err := s.exams.FindByID(ctx, schoolID, req.ExaminationID)
	if err != nil {
		return nil, referenceError(err, "examination_id", "examination not found", "failed to load examination")
	}

	yearID := exam.AcademicYearID
	sheet := &models.Marksheet{
		SchoolID:       schoolID,
		StudentID:      student.ID,
		ExaminationID:  exam.ID,
		ClassID:        student.ClassID,
		AcademicYearID: &yearID,
		Remarks:        strings.TrimSpace(req.Remarks),
		CreatedBy:      actor.userID(),
		Subjects:       subjects,
	}
	computeMarksheet(sheet)

	if err := s.repo.Upsert(ctx, sheet); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save marksheet")
	}
	s.logger.Info("marksheet saved",
		zap.String("marksheet_id", sheet.ID),
		zap.String("student_id", sheet.StudentID),
		zap.String("examination_id", sheet.ExaminationID),
		zap.String("result", string(sheet.Result)),
	)
	return s.Get(ctx, schoolID, sheet.ID)
}

func (s *MarksheetService) Update(ctx context.Context, schoolID, id string, req UpdateMarksheetRequest) (*models.MarksheetDetail, error) {
	if err := s.validator.Check(req, "invalid marksheet payload"); err != nil {
		return nil, err
	}
	detail, err := s.Get(ctx, schoolID, id)
	if err != nil {
		return nil, err
	}
	sheet := detail.Marksheet
	if req.Subjects != nil {
		subjects, err := buildSubjects(*req.Subjects)
		if err != nil {
			return nil, err
		}
		sheet.Subjects = subjects
	}
	if req.Remarks != nil {
		sheet.Remarks = strings.TrimSpace(*req.Remarks)
	}
	computeMarksheet(&sheet)

	if err := s.repo.Update(ctx, &sheet); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update marksheet")
	}
	return s.Get(ctx, schoolID, id)
}

func (s *MarksheetService) Get(ctx context.Context, schoolID, id string) (*models.MarksheetDetail, error) {
	sheet, err := s.repo.FindByID(ctx, schoolID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "marksheet not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load marksheet")
	}
	decorateSubjects(sheet.Subjects)
	return sheet, nil
}

func (s *MarksheetService) List(ctx context.Context, filter models.MarksheetFilter) ([]models.MarksheetDetail, *models.Pagination, error) {
	sheets, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list marksheets")
	}
	if sheets == nil {
		sheets = []models.MarksheetDetail{}
	}
	for i := range sheets {
		decorateSubjects(sheets[i].Subjects)
	}
	return sheets, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

func (s *MarksheetService) Delete(ctx context.Context, schoolID, id string) error {
	if _, err := s.Get(ctx, schoolID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, schoolID, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete marksheet")
	}
	return nil
}

// PDF renders a single marksheet.
func (s *MarksheetService) PDF(ctx context.Context, schoolID, id string) (*ExportFile, error) {
	sheet, err := s.Get(ctx, schoolID, id)
	if err != nil {
		return nil, err
	}
	return s.exporter.Marksheet(sheet)
}

// Final aggregates every marksheet of a student in an academic year.
// Subjects are averaged across the exams they appear in; the overall
// percentage is the mean of the exam percentages.
func (s *MarksheetService) Final(ctx context.Context, schoolID, studentID, academicYearID string) (*models.FinalMarksheet, error) {
	details := map[string]string{}
	if strings.TrimSpace(studentID) == "" {
		details["student_id"] = "student_id is required"
	}
	if strings.TrimSpace(academicYearID) == "" {
		details["academic_year_id"] = "academic_year_id is required"
	}
	if len(details) > 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid final marksheet query").WithDetails(details)
	}

	sheets, err := s.repo.ListForStudentYear(ctx, schoolID, studentID, academicYearID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load marksheets")
	}
	if len(sheets) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no marksheets for this student and academic year")
	}
	return aggregateFinal(studentID, academicYearID, sheets), nil
}

func aggregateFinal(studentID, academicYearID string, sheets []models.MarksheetDetail) *models.FinalMarksheet {
	final := &models.FinalMarksheet{
		StudentID:      studentID,
		StudentName:    sheets[0].StudentName,
		AcademicYearID: academicYearID,
		Exams:          make([]models.FinalExam, 0, len(sheets)),
		Subjects:       []models.FinalSubject{},
	}

	type subjectAcc struct {
		models.FinalSubject
		percentages []float64
	}
	var order []string
	bySubject := map[string]*subjectAcc{}
	examPercentages := make([]float64, 0, len(sheets))

	for _, sheet := range sheets {
		final.Exams = append(final.Exams, models.FinalExam{
			ExaminationID:   sheet.ExaminationID,
			ExaminationName: sheet.ExaminationName,
			Percentage:      sheet.Percentage,
			Grade:           sheet.Grade,
			Result:          sheet.Result,
		})
		examPercentages = append(examPercentages, sheet.Percentage)

		for _, sub := range sheet.Subjects {
			key := strings.ToLower(strings.TrimSpace(sub.Subject))
			acc, ok := bySubject[key]
			if !ok {
				acc = &subjectAcc{FinalSubject: models.FinalSubject{Subject: strings.TrimSpace(sub.Subject)}}
				bySubject[key] = acc
				order = append(order, key)
			}
			acc.Exams++
			acc.TotalMax += sub.MaxMarks
			acc.TotalObtained += sub.ObtainedMarks
			acc.percentages = append(acc.percentages, grading.Percentage(sub.ObtainedMarks, sub.MaxMarks))
		}
	}

	passed := true
	for _, key := range order {
		acc := bySubject[key]
		acc.AveragePercentage = grading.Round2(grading.Mean(acc.percentages))
		acc.Grade = grading.Grade(acc.AveragePercentage)
		if acc.AveragePercentage < grading.PassPercentage {
			passed = false
		}
		final.Subjects = append(final.Subjects, acc.FinalSubject)
	}

	final.Percentage = grading.Round2(grading.Mean(examPercentages))
	final.Grade = grading.Grade(final.Percentage)
	final.Result = models.ResultFail
	if passed && final.Percentage >= grading.PassPercentage {
		final.Result = models.ResultPass
	}
	return final
}

// buildSubjects checks marks against their maxima and rejects repeated subjects.
func buildSubjects(in []SubjectMarks) ([]models.MarksheetSubject, error) {
	details := map[string]string{}
	seen := make(map[string]int, len(in))
	out := make([]models.MarksheetSubject, 0, len(in))
	for i, line := range in {
		name := strings.TrimSpace(line.Subject)
		key := strings.ToLower(name)
		if first, ok := seen[key]; ok {
			details[fmt.Sprintf("subjects[%d].subject", i)] = fmt.Sprintf("duplicates subjects[%d]", first)
			continue
		}
		seen[key] = i
		if line.ObtainedMarks > line.MaxMarks {
			details[fmt.Sprintf("subjects[%d].obtained_marks", i)] = "obtained_marks cannot exceed max_marks"
		}
		pass := grading.DefaultPassMarks(line.MaxMarks)
		if line.PassMarks != nil {
			pass = *line.PassMarks
			if pass > line.MaxMarks {
				details[fmt.Sprintf("subjects[%d].pass_marks", i)] = "pass_marks cannot exceed max_marks"
			}
		}
		out = append(out, models.MarksheetSubject{
			Subject:       name,
			MaxMarks:      line.MaxMarks,
			ObtainedMarks: line.ObtainedMarks,
			PassMarks:     pass,
		})
	}
	if len(details) > 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid marksheet payload").WithDetails(details)
	}
	return out, nil
}

// computeMarksheet derives totals, grade and result. A marksheet fails when
// any subject is below its pass mark or the percentage is below 33.
func computeMarksheet(sheet *models.Marksheet) {
	decorateSubjects(sheet.Subjects)
	sheet.TotalMax, sheet.TotalObtained = 0, 0
	passed := true
	for _, sub := range sheet.Subjects {
		sheet.TotalMax += sub.MaxMarks
		sheet.TotalObtained += sub.ObtainedMarks
		if !sub.Passed {
			passed = false
		}
	}
	sheet.TotalMax = grading.Round2(sheet.TotalMax)
	sheet.TotalObtained = grading.Round2(sheet.TotalObtained)
	sheet.Percentage = grading.Percentage(sheet.TotalObtained, sheet.TotalMax)
	sheet.Grade = grading.Grade(sheet.Percentage)
	sheet.Result = models.ResultFail
	if passed && sheet.Percentage >= grading.PassPercentage {
		sheet.Result = models.ResultPass
	}
}

func decorateSubjects(subjects []models.MarksheetSubject) {
	for i := range subjects {
		sub := &subjects[i]
		sub.Percentage = grading.Percentage(sub.ObtainedMarks, sub.MaxMarks)
		sub.Grade = grading.Grade(sub.Percentage)
		sub.Passed = sub.ObtainedMarks >= sub.PassMarks
	}
}

// referenceError turns a missing referenced row into a field validation error.
func referenceError(err error, field, missing, failed string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrValidation, missing).WithDetails(map[string]string{field: missing})
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, failed)
}
