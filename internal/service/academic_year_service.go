package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/internal/repository"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
	"github.com/noah-isme/school-portal-api/pkg/validation"
)

type academicYearRepository interface {
	List(ctx context.Context, schoolID string) ([]models.AcademicYear, error)
	FindByID(ctx context.Context, schoolID, id string) (*models.AcademicYear, error)
	FindCurrent(ctx context.Context, schoolID string) (*models.AcademicYear, error)
	ExistsByName(ctx context.Context, schoolID, name, excludeID string) (bool, error)
	Create(ctx context.Context, year *models.AcademicYear) error
	Update(ctx context.Context, year *models.AcademicYear) error
	SetCurrent(ctx context.Context, schoolID, id string) error
	CountReferences(ctx context.Context, id string) (int, error)
	Delete(ctx context.Context, schoolID, id string) error
	Promote(ctx context.Context, plan models.PromotionPlan) (*models.PromotionResult, error)
	History(ctx context.Context, schoolID, studentID string) ([]models.StudentPromotion, error)
}

// CreateAcademicYearRequest defines a teaching year.
type CreateAcademicYearRequest struct {
	Name      string `json:"name" validate:"required,max=50"`
	StartDate string `json:"start_date" validate:"required,isodate"`
	EndDate   string `json:"end_date" validate:"required,isodate"`
	IsCurrent bool   `json:"is_current"`
}

// UpdateAcademicYearRequest changes the fields present in the body.
type UpdateAcademicYearRequest struct {
	Name      *string `json:"name" validate:"omitempty,min=1,max=50"`
	StartDate *string `json:"start_date" validate:"omitempty,isodate"`
	EndDate   *string `json:"end_date" validate:"omitempty,isodate"`
}

// PromoteRequest moves a class to the next class and year, or graduates it.
// An empty StudentIDs promotes every ACTIVE student of the source class.
type PromoteRequest struct {
	FromClassID      string   `json:"from_class_id" validate:"required,uuid"`
	ToClassID        *string  `json:"to_class_id" validate:"omitempty,uuid"`
	ToAcademicYearID *string  `json:"to_academic_year_id" validate:"omitempty,uuid"`
	StudentIDs       []string `json:"student_ids" validate:"omitempty,dive,uuid"`
	Graduate         bool     `json:"graduate"`
}

// AcademicYearService manages academic years and year-end promotion.
type AcademicYearService struct {
	repo      academicYearRepository
	classes   classLookup
	audit     auditRecorder
	validator *validation.Validator
	logger    *zap.Logger
}

func NewAcademicYearService(repo academicYearRepository, classes classLookup, auditRepo auditRecorder, validate *validation.Validator, logger *zap.Logger) *AcademicYearService {
	if validate == nil {
		validate = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AcademicYearService{repo: repo, classes: classes, audit: auditRepo, validator: validate, logger: logger}
}

func (s *AcademicYearService) List(ctx context.Context, schoolID string) ([]models.AcademicYear, error) {
	years, err := s.repo.List(ctx, schoolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list academic years")
	}
	if years == nil {
		years = []models.AcademicYear{}
	}
	return years, nil
}

func (s *AcademicYearService) Get(ctx context.Context, schoolID, id string) (*models.AcademicYear, error) {
	year, err := s.repo.FindByID(ctx, schoolID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "academic year not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load academic year")
	}
	return year, nil
}

// Current returns the school's current year.
func (s *AcademicYearService) Current(ctx context.Context, schoolID string) (*models.AcademicYear, error) {
	year, err := s.repo.FindCurrent(ctx, schoolID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no current academic year")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load current academic year")
	}
	return year, nil
}

func (s *AcademicYearService) Create(ctx context.Context, actor Actor, req CreateAcademicYearRequest) (*models.AcademicYear, error) {
	schoolID, err := requireSchool(actor)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Check(req, "invalid academic year payload"); err != nil {
		return nil, err
	}

	year := &models.AcademicYear{SchoolID: schoolID, Name: strings.TrimSpace(req.Name)}
	if year.StartDate, err = parseDate("start_date", req.StartDate); err != nil {
		return nil, err
	}
	if year.EndDate, err = parseDate("end_date", req.EndDate); err != nil {
		return nil, err
	}
	if err := checkYearRange(year); err != nil {
		return nil, err
	}
	if err := s.ensureUniqueName(ctx, schoolID, year.Name, ""); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, year); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create academic year")
	}
	if req.IsCurrent {
		if err := s.repo.SetCurrent(ctx, schoolID, year.ID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to set current academic year")
		}
		year.IsCurrent = true
	}
	audit(ctx, s.audit, s.logger, actor, "CREATE", "academic_years", year.ID, nil, year)
	return year, nil
}

func (s *AcademicYearService) Update(ctx context.Context, actor Actor, id string, req UpdateAcademicYearRequest) (*models.AcademicYear, error) {
	schoolID, err := requireSchool(actor)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Check(req, "invalid academic year payload"); err != nil {
		return nil, err
	}
	year, err := s.Get(ctx, schoolID, id)
	if err != nil {
		return nil, err
	}
	before := *year

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if !strings.EqualFold(name, year.Name) {
			if err := s.ensureUniqueName(ctx, schoolID, name, id); err != nil {
				return nil, err
			}
		}
		year.Name = name
	}
	if req.StartDate != nil {
		if year.StartDate, err = parseDate("start_date", *req.StartDate); err != nil {
			return nil, err
		}
	}
	if req.EndDate != nil {
		if year.EndDate, err = parseDate("end_date", *req.EndDate); err != nil {
			return nil, err
		}
	}
	if err := checkYearRange(year); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, year); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update academic year")
	}
	audit(ctx, s.audit, s.logger, actor, "UPDATE", "academic_years", id, before, year)
	return year, nil
}

// SetCurrent makes id the only current year of the school.
func (s *AcademicYearService) SetCurrent(ctx context.Context, actor Actor, id string) (*models.AcademicYear, error) {
	schoolID, err := requireSchool(actor)
	if err != nil {
		return nil, err
	}
	year, err := s.Get(ctx, schoolID, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetCurrent(ctx, schoolID, id); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to set current academic year")
	}
	year.IsCurrent = true
	audit(ctx, s.audit, s.logger, actor, "SET_CURRENT", "academic_years", id, nil, map[string]string{"name": year.Name})
	return year, nil
}

// Delete removes a year nothing refers to.
func (s *AcademicYearService) Delete(ctx context.Context, actor Actor, id string) error {
	schoolID, err := requireSchool(actor)
	if err != nil {
		return err
	}
	year, err := s.Get(ctx, schoolID, id)
	if err != nil {
		return err
	}
	refs, err := s.repo.CountReferences(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check academic year usage")
	}
	if refs > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "academic year is still used by classes or examinations")
	}
	if err := s.repo.Delete(ctx, schoolID, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete academic year")
	}
	audit(ctx, s.audit, s.logger, actor, "DELETE", "academic_years", id, year, nil)
	return nil
}

// Promote moves the selected students of a class to the target class and
// year, or graduates them, in one transaction.
func (s *AcademicYearService) Promote(ctx context.Context, actor Actor, req PromoteRequest) (*models.PromotionResult, error) {
	schoolID, err := requireSchool(actor)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Check(req, "invalid promotion payload"); err != nil {
		return nil, err
	}
	if !req.Graduate && blankToNil(req.ToClassID) == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid promotion payload").
			WithDetails(map[string]string{"to_class_id": "to_class_id is required unless graduating"})
	}

	if _, err := s.loadClass(ctx, schoolID, req.FromClassID, "from_class_id"); err != nil {
		return nil, err
	}

	plan := models.PromotionPlan{
		SchoolID:    schoolID,
		FromClassID: req.FromClassID,
		StudentIDs:  uniqueStrings(req.StudentIDs),
		Graduate:    req.Graduate,
		PromotedBy:  actor.userID(),
	}
	if !req.Graduate {
		toClassID := *blankToNil(req.ToClassID)
		if toClassID == req.FromClassID {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid promotion payload").
				WithDetails(map[string]string{"to_class_id": "to_class_id must differ from from_class_id"})
		}
		target, err := s.loadClass(ctx, schoolID, toClassID, "to_class_id")
		if err != nil {
			return nil, err
		}
		plan.ToClassID = &toClassID
		plan.ToAcademicYearID = blankToNil(req.ToAcademicYearID)
		if plan.ToAcademicYearID == nil {
			plan.ToAcademicYearID = target.AcademicYearID
		}
		if plan.ToAcademicYearID != nil {
			if _, err := s.repo.FindByID(ctx, schoolID, *plan.ToAcademicYearID); err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return nil, appErrors.Clone(appErrors.ErrValidation, "academic year not found").
						WithDetails(map[string]string{"to_academic_year_id": "to_academic_year_id does not exist"})
				}
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load academic year")
			}
		}
	}

	result, err := s.repo.Promote(ctx, plan)
	if err != nil {
		if errors.Is(err, repository.ErrClassFull) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "target class does not have enough seats")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to promote students")
	}
	s.logger.Info("students promoted",
		zap.String("school_id", schoolID),
		zap.String("from_class_id", req.FromClassID),
		zap.Int("promoted", result.Promoted),
		zap.Int("graduated", result.Graduated),
		zap.Int("skipped", result.Skipped),
	)
	audit(ctx, s.audit, s.logger, actor, "PROMOTE", "students", req.FromClassID, nil, result)
	return result, nil
}

// History lists the promotions of one student, newest first.
func (s *AcademicYearService) History(ctx context.Context, schoolID, studentID string) ([]models.StudentPromotion, error) {
	history, err := s.repo.History(ctx, schoolID, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load promotion history")
	}
	if history == nil {
		history = []models.StudentPromotion{}
	}
	return history, nil
}

func (s *AcademicYearService) loadClass(ctx context.Context, schoolID, id, field string) (*models.ClassDetail, error) {
	class, err := s.classes.FindByID(ctx, schoolID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "class not found").
				WithDetails(map[string]string{field: field + " does not exist"})
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return class, nil
}

func (s *AcademicYearService) ensureUniqueName(ctx context.Context, schoolID, name, excludeID string) error {
	exists, err := s.repo.ExistsByName(ctx, schoolID, name, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check academic year name")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrDuplicate, "academic year already exists")
	}
	return nil
}

func checkYearRange(year *models.AcademicYear) error {
	if !year.EndDate.After(year.StartDate) {
		return appErrors.Clone(appErrors.ErrValidation, "invalid academic year payload").
			WithDetails(map[string]string{"end_date": "end_date must be after start_date"})
	}
	return nil
}

func uniqueStrings(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
