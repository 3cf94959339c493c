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

type teacherRepository interface {
	List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error)
	FindByID(ctx context.Context, schoolID, id string) (*models.Teacher, error)
	ExistsByEmployeeCode(ctx context.Context, schoolID, code, excludeID string) (bool, error)
	Create(ctx context.Context, teacher *models.Teacher) error
	Update(ctx context.Context, teacher *models.Teacher) error
	Deactivate(ctx context.Context, schoolID, id string) error
}

// CreateTeacherRequest is the payload for hiring a teacher.
type CreateTeacherRequest struct {
	EmployeeCode  string   `json:"employee_code" validate:"required,max=50"`
	FullName      string   `json:"full_name" validate:"required,max=150"`
	Email         string   `json:"email" validate:"omitempty,email"`
	Phone         string   `json:"phone" validate:"omitempty,phone"`
	Subjects      []string `json:"subjects" validate:"omitempty,dive,required,max=100"`
	Qualification string   `json:"qualification" validate:"max=200"`
	JoiningDate   string   `json:"joining_date" validate:"omitempty,isodate"`
	UserID        *string  `json:"user_id" validate:"omitempty,uuid"`
}

// UpdateTeacherRequest changes the fields present in the body.
type UpdateTeacherRequest struct {
	EmployeeCode  *string   `json:"employee_code" validate:"omitempty,min=1,max=50"`
	FullName      *string   `json:"full_name" validate:"omitempty,min=1,max=150"`
	Email         *string   `json:"email" validate:"omitempty,email"`
	Phone         *string   `json:"phone" validate:"omitempty,phone"`
	Subjects      *[]string `json:"subjects" validate:"omitempty,dive,required,max=100"`
	Qualification *string   `json:"qualification" validate:"omitempty,max=200"`
	JoiningDate   *string   `json:"joining_date" validate:"omitempty,isodate"`
	UserID        *string   `json:"user_id" validate:"omitempty,uuid"`
	Active        *bool     `json:"active"`
}

// TeacherService handles teacher records of a school.
type TeacherService struct {
	repo      teacherRepository
	validator *validation.Validator
	logger    *zap.Logger
}

func NewTeacherService(repo teacherRepository, validate *validation.Validator, logger *zap.Logger) *TeacherService {
	if validate == nil {
		validate = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeacherService{repo: repo, validator: validate, logger: logger}
}

func (s *TeacherService) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, *models.Pagination, error) {
	teachers, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teachers")
	}
	if teachers == nil {
		teachers = []models.Teacher{}
	}
	return teachers, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

func (s *TeacherService) Get(ctx context.Context, schoolID, id string) (*models.Teacher, error) {
	teacher, err := s.repo.FindByID(ctx, schoolID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	return teacher, nil
}

func (s *TeacherService) Create(ctx context.Context, schoolID string, req CreateTeacherRequest) (*models.Teacher, error) {
	if err := s.validator.Check(req, "invalid teacher payload"); err != nil {
		return nil, err
	}
	code := strings.TrimSpace(req.EmployeeCode)
	if err := s.ensureUniqueCode(ctx, schoolID, code, ""); err != nil {
		return nil, err
	}

	teacher := &models.Teacher{
		SchoolID:      schoolID,
		UserID:        blankToNil(req.UserID),
		EmployeeCode:  code,
		FullName:      strings.TrimSpace(req.FullName),
		Email:         strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:         req.Phone,
		Subjects:      normalizeSubjects(req.Subjects),
		Qualification: req.Qualification,
		JoiningDate:   parseDatePtr(req.JoiningDate),
		Active:        true,
	}
	if err := s.repo.Create(ctx, teacher); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create teacher")
	}
	return teacher, nil
}

func (s *TeacherService) Update(ctx context.Context, schoolID, id string, req UpdateTeacherRequest) (*models.Teacher, error) {
	if err := s.validator.Check(req, "invalid teacher payload"); err != nil {
		return nil, err
	}
	teacher, err := s.Get(ctx, schoolID, id)
	if err != nil {
		return nil, err
	}

	if req.EmployeeCode != nil {
		code := strings.TrimSpace(*req.EmployeeCode)
		if code != teacher.EmployeeCode {
			if err := s.ensureUniqueCode(ctx, schoolID, code, id); err != nil {
				return nil, err
			}
			teacher.EmployeeCode = code
		}
	}
	if req.FullName != nil {
		teacher.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.Email != nil {
		teacher.Email = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.Phone != nil {
		teacher.Phone = *req.Phone
	}
	if req.Subjects != nil {
		teacher.Subjects = normalizeSubjects(*req.Subjects)
	}
	if req.Qualification != nil {
		teacher.Qualification = *req.Qualification
	}
	if req.JoiningDate != nil {
		teacher.JoiningDate = parseDatePtr(*req.JoiningDate)
	}
	if req.UserID != nil {
		teacher.UserID = blankToNil(req.UserID)
	}
	if req.Active != nil {
		teacher.Active = *req.Active
	}

	if err := s.repo.Update(ctx, teacher); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update teacher")
	}
	return teacher, nil
}

// Deactivate soft deletes a teacher.
func (s *TeacherService) Deactivate(ctx context.Context, schoolID, id string) error {
	if _, err := s.Get(ctx, schoolID, id); err != nil {
		return err
	}
	if err := s.repo.Deactivate(ctx, schoolID, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate teacher")
	}
	return nil
}

func (s *TeacherService) ensureUniqueCode(ctx context.Context, schoolID, code, excludeID string) error {
	exists, err := s.repo.ExistsByEmployeeCode(ctx, schoolID, code, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check employee code")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrDuplicate, "employee code already exists")
	}
	return nil
}

// normalizeSubjects trims names and drops case-insensitive duplicates.
func normalizeSubjects(subjects []string) []string {
	seen := make(map[string]struct{}, len(subjects))
	out := make([]string, 0, len(subjects))
	for _, subject := range subjects {
		name := strings.TrimSpace(subject)
		key := strings.ToLower(name)
		if name == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, name)
	}
	return out
}
