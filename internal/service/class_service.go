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

type classRepository interface {
	List(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, int, error)
	FindByID(ctx context.Context, schoolID, id string) (*models.ClassDetail, error)
	ExistsByName(ctx context.Context, class models.Class, excludeID string) (bool, error)
	Create(ctx context.Context, class *models.Class) error
	Update(ctx context.Context, class *models.Class) error
	CountStudents(ctx context.Context, id string) (int, error)
	Delete(ctx context.Context, schoolID, id string) error
}

type teacherLookup interface {
	FindByID(ctx context.Context, schoolID, id string) (*models.Teacher, error)
}

type academicYearLookup interface {
	FindByID(ctx context.Context, schoolID, id string) (*models.AcademicYear, error)
}

// CreateClassRequest captures creation payload.
type CreateClassRequest struct {
	Name           string  `json:"name" validate:"required,max=50"`
	Section        string  `json:"section" validate:"max=20"`
	AcademicYearID *string `json:"academic_year_id" validate:"omitempty,uuid"`
	ClassTeacherID *string `json:"class_teacher_id" validate:"omitempty,uuid"`
	Capacity       int     `json:"capacity" validate:"gte=0,lte=500"`
}

// UpdateClassRequest modifies the fields present in the body.
type UpdateClassRequest struct {
	Name           *string `json:"name" validate:"omitempty,min=1,max=50"`
	Section        *string `json:"section" validate:"omitempty,max=20"`
	AcademicYearID *string `json:"academic_year_id" validate:"omitempty,uuid"`
	ClassTeacherID *string `json:"class_teacher_id" validate:"omitempty,uuid"`
	Capacity       *int    `json:"capacity" validate:"omitempty,gte=0,lte=500"`
}

// ClassService coordinates class operations.
type ClassService struct {
	repo      classRepository
	teachers  teacherLookup
	years     academicYearLookup
	validator *validation.Validator
	logger    *zap.Logger
}

// NewClassService constructs ClassService. teachers and years may be nil,
// in which case references are not checked.
func NewClassService(repo classRepository, teachers teacherLookup, years academicYearLookup, validate *validation.Validator, logger *zap.Logger) *ClassService {
	if validate == nil {
		validate = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassService{repo: repo, teachers: teachers, years: years, validator: validate, logger: logger}
}

// List returns classes with pagination metadata.
func (s *ClassService) List(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, *models.Pagination, error) {
	classes, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	if classes == nil {
		classes = []models.ClassDetail{}
	}
	return classes, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns detailed class information.
func (s *ClassService) Get(ctx context.Context, schoolID, id string) (*models.ClassDetail, error) {
	detail, err := s.repo.FindByID(ctx, schoolID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return detail, nil
}

// Create adds a new class.
func (s *ClassService) Create(ctx context.Context, schoolID string, req CreateClassRequest) (*models.Class, error) {
	if err := s.validator.Check(req, "invalid class payload"); err != nil {
		return nil, err
	}

	class := &models.Class{
		SchoolID:       schoolID,
		AcademicYearID: blankToNil(req.AcademicYearID),
		ClassTeacherID: blankToNil(req.ClassTeacherID),
		Name:           strings.TrimSpace(req.Name),
		Section:        strings.TrimSpace(req.Section),
		Capacity:       req.Capacity,
	}
	if err := s.checkReferences(ctx, class); err != nil {
		return nil, err
	}
	if err := s.ensureUniqueName(ctx, *class, ""); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class")
	}
	return class, nil
}

// Update modifies a class record.
func (s *ClassService) Update(ctx context.Context, schoolID, id string, req UpdateClassRequest) (*models.Class, error) {
	if err := s.validator.Check(req, "invalid class payload"); err != nil {
		return nil, err
	}

	detail, err := s.Get(ctx, schoolID, id)
	if err != nil {
		return nil, err
	}
	class := detail.Class

	if req.Name != nil {
		class.Name = strings.TrimSpace(*req.Name)
	}
	if req.Section != nil {
		class.Section = strings.TrimSpace(*req.Section)
	}
	if req.AcademicYearID != nil {
		class.AcademicYearID = blankToNil(req.AcademicYearID)
	}
	if req.ClassTeacherID != nil {
		class.ClassTeacherID = blankToNil(req.ClassTeacherID)
	}
	if req.Capacity != nil {
		class.Capacity = *req.Capacity
	}

	if err := s.checkReferences(ctx, &class); err != nil {
		return nil, err
	}
	if err := s.ensureUniqueName(ctx, class, id); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, &class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update class")
	}
	return &class, nil
}

// Delete removes a class. Classes still referenced by students are kept.
func (s *ClassService) Delete(ctx context.Context, schoolID, id string) error {
	if _, err := s.Get(ctx, schoolID, id); err != nil {
		return err
	}

	count, err := s.repo.CountStudents(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check class students")
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "class still has students")
	}

	if err := s.repo.Delete(ctx, schoolID, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete class")
	}
	return nil
}

func (s *ClassService) checkReferences(ctx context.Context, class *models.Class) error {
	if class.ClassTeacherID != nil && s.teachers != nil {
		if _, err := s.teachers.FindByID(ctx, class.SchoolID, *class.ClassTeacherID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrValidation, "class teacher not found").WithDetails(map[string]string{"class_teacher_id": "class_teacher_id does not exist"})
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate class teacher")
		}
	}
	if class.AcademicYearID != nil && s.years != nil {
		if _, err := s.years.FindByID(ctx, class.SchoolID, *class.AcademicYearID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrValidation, "academic year not found").WithDetails(map[string]string{"academic_year_id": "academic_year_id does not exist"})
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate academic year")
		}
	}
	return nil
}

func (s *ClassService) ensureUniqueName(ctx context.Context, class models.Class, excludeID string) error {
	exists, err := s.repo.ExistsByName(ctx, class, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check class name")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrDuplicate, "class already exists")
	}
	return nil
}

// blankToNil treats an explicit empty string as clearing an optional reference.
func blankToNil(v *string) *string {
	if v == nil || strings.TrimSpace(*v) == "" {
		return nil
	}
	id := strings.TrimSpace(*v)
	return &id
}
