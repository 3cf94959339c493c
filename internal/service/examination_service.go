package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/school-portal-api/internal/models"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
	"github.com/noah-isme/school-portal-api/pkg/validation"
)

type examinationRepository interface {
	List(ctx context.Context, filter models.ExaminationFilter) ([]models.Examination, error)
	FindByID(ctx context.Context, schoolID, id string) (*models.Examination, error)
	Create(ctx context.Context, exam *models.Examination) error
	Update(ctx context.Context, exam *models.Examination) error
	Delete(ctx context.Context, schoolID, id string) error
}

// CreateExaminationRequest schedules an exam in an academic year.
type CreateExaminationRequest struct {
	AcademicYearID string `json:"academic_year_id" validate:"required,uuid"`
	Name           string `json:"name" validate:"required,max=100"`
	ExamType       string `json:"exam_type" validate:"required,oneof=UNIT_TEST MIDTERM FINAL OTHER"`
	StartDate      string `json:"start_date" validate:"omitempty,isodate"`
	EndDate        string `json:"end_date" validate:"omitempty,isodate"`
}

// UpdateExaminationRequest changes the fields present in the body.
type UpdateExaminationRequest struct {
	AcademicYearID *string `json:"academic_year_id" validate:"omitempty,uuid"`
	Name           *string `json:"name" validate:"omitempty,min=1,max=100"`
	ExamType       *string `json:"exam_type" validate:"omitempty,oneof=UNIT_TEST MIDTERM FINAL OTHER"`
	StartDate      *string `json:"start_date" validate:"omitempty,isodate"`
	EndDate        *string `json:"end_date" validate:"omitempty,isodate"`
}

// ExaminationService manages exam sittings.
type ExaminationService struct {
	repo      examinationRepository
	years     academicYearLookup
	validator *validation.Validator
	logger    *zap.Logger
}

func NewExaminationService(repo examinationRepository, years academicYearLookup, validate *validation.Validator, logger *zap.Logger) *ExaminationService {
	if validate == nil {
		validate = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExaminationService{repo: repo, years: years, validator: validate, logger: logger}
}

func (s *ExaminationService) List(ctx context.Context, filter models.ExaminationFilter) ([]models.Examination, error) {
	exams, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list examinations")
	}
	if exams == nil {
		exams = []models.Examination{}
	}
	return exams, nil
}

func (s *ExaminationService) Get(ctx context.Context, schoolID, id string) (*models.Examination, error) {
	exam, err := s.repo.FindByID(ctx, schoolID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "examination not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load examination")
	}
	return exam, nil
}

func (s *ExaminationService) Create(ctx context.Context, schoolID string, req CreateExaminationRequest) (*models.Examination, error) {
	if err := s.validator.Check(req, "invalid examination payload"); err != nil {
		return nil, err
	}
	if err := s.checkYear(ctx, schoolID, req.AcademicYearID); err != nil {
		return nil, err
	}
	exam := &models.Examination{
		SchoolID:       schoolID,
		AcademicYearID: req.AcademicYearID,
		Name:           strings.TrimSpace(req.Name),
		ExamType:       models.ExamType(req.ExamType),
		StartDate:      parseDatePtr(req.StartDate),
		EndDate:        parseDatePtr(req.EndDate),
	}
	if err := checkExamDates(exam); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, exam); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create examination")
	}
	return exam, nil
}

func (s *ExaminationService) Update(ctx context.Context, schoolID, id string, req UpdateExaminationRequest) (*models.Examination, error) {
	if err := s.validator.Check(req, "invalid examination payload"); err != nil {
		return nil, err
	}
	exam, err := s.Get(ctx, schoolID, id)
	if err != nil {
		return nil, err
	}
	if req.AcademicYearID != nil && *req.AcademicYearID != exam.AcademicYearID {
		if err := s.checkYear(ctx, schoolID, *req.AcademicYearID); err != nil {
			return nil, err
		}
		exam.AcademicYearID = *req.AcademicYearID
	}
	if req.Name != nil {
		exam.Name = strings.TrimSpace(*req.Name)
	}
	if req.ExamType != nil {
		exam.ExamType = models.ExamType(*req.ExamType)
	}
	if req.StartDate != nil {
		exam.StartDate = parseDatePtr(*req.StartDate)
	}
	if req.EndDate != nil {
		exam.EndDate = parseDatePtr(*req.EndDate)
	}
	if err := checkExamDates(exam); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, exam); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update examination")
	}
	return exam, nil
}

// Delete removes the examination together with its marksheets.
func (s *ExaminationService) Delete(ctx context.Context, schoolID, id string) error {
	if _, err := s.Get(ctx, schoolID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, schoolID, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete examination")
	}
	s.logger.Info("examination deleted", zap.String("school_id", schoolID), zap.String("examination_id", id))
	return nil
}

func (s *ExaminationService) checkYear(ctx context.Context, schoolID, yearID string) error {
	if _, err := s.years.FindByID(ctx, schoolID, yearID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrValidation, "invalid examination payload").
				WithDetails(map[string]string{"academic_year_id": "academic year not found"})
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load academic year")
	}
	return nil
}

func checkExamDates(exam *models.Examination) error {
	if exam.StartDate != nil && exam.EndDate != nil && exam.EndDate.Before(*exam.StartDate) {
		return appErrors.Clone(appErrors.ErrValidation, "invalid examination payload").
			WithDetails(map[string]string{"end_date": "end_date must not be before start_date"})
	}
	return nil
}
