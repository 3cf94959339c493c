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

type schoolRepository interface {
	List(ctx context.Context, filter models.SchoolFilter) ([]models.School, int, error)
	FindByID(ctx context.Context, id string) (*models.School, error)
	ExistsByCode(ctx context.Context, code, excludeID string) (bool, error)
	Create(ctx context.Context, school *models.School) error
	Update(ctx context.Context, school *models.School) error
	Deactivate(ctx context.Context, id string) error
}

// CreateSchoolRequest is the payload for registering a school.
type CreateSchoolRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	Code    string `json:"code" validate:"required,alphanum,max=32"`
	Address string `json:"address"`
	Phone   string `json:"phone" validate:"omitempty,phone"`
	Email   string `json:"email" validate:"omitempty,email"`
	LogoURL string `json:"logo_url"`
}

// UpdateSchoolRequest carries optional field updates.
type UpdateSchoolRequest struct {
	Name    *string `json:"name" validate:"omitempty,min=1,max=200"`
	Code    *string `json:"code" validate:"omitempty,alphanum,max=32"`
	Address *string `json:"address"`
	Phone   *string `json:"phone" validate:"omitempty,phone"`
	Email   *string `json:"email" validate:"omitempty,email"`
	LogoURL *string `json:"logo_url"`
	Active  *bool   `json:"active"`
}

// SchoolService manages tenants.
type SchoolService struct {
	repo      schoolRepository
	validator *validation.Validator
	logger    *zap.Logger
}

func NewSchoolService(repo schoolRepository, validate *validation.Validator, logger *zap.Logger) *SchoolService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validation.New()
	}
	return &SchoolService{repo: repo, validator: validate, logger: logger}
}

func (s *SchoolService) List(ctx context.Context, filter models.SchoolFilter) ([]models.School, *models.Pagination, error) {
	schools, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schools")
	}
	if schools == nil {
		schools = []models.School{}
	}
	return schools, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

func (s *SchoolService) Get(ctx context.Context, id string) (*models.School, error) {
	school, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "school not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load school")
	}
	return school, nil
}

func (s *SchoolService) Create(ctx context.Context, req CreateSchoolRequest) (*models.School, error) {
	if err := s.validator.Check(req, "invalid school payload"); err != nil {
		return nil, err
	}
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if err := s.ensureUniqueCode(ctx, code, ""); err != nil {
		return nil, err
	}

	school := &models.School{
		Name:    strings.TrimSpace(req.Name),
		Code:    code,
		Address: req.Address,
		Phone:   req.Phone,
		Email:   req.Email,
		LogoURL: req.LogoURL,
		Active:  true,
	}
	if err := s.repo.Create(ctx, school); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create school")
	}
	s.logger.Info("school created", zap.String("school_id", school.ID), zap.String("code", school.Code))
	return school, nil
}

func (s *SchoolService) Update(ctx context.Context, id string, req UpdateSchoolRequest) (*models.School, error) {
	if err := s.validator.Check(req, "invalid school payload"); err != nil {
		return nil, err
	}
	school, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Code != nil {
		code := strings.ToUpper(strings.TrimSpace(*req.Code))
		if code != school.Code {
			if err := s.ensureUniqueCode(ctx, code, id); err != nil {
				return nil, err
			}
			school.Code = code
		}
	}
	if req.Name != nil {
		school.Name = strings.TrimSpace(*req.Name)
	}
	if req.Address != nil {
		school.Address = *req.Address
	}
	if req.Phone != nil {
		school.Phone = *req.Phone
	}
	if req.Email != nil {
		school.Email = *req.Email
	}
	if req.LogoURL != nil {
		school.LogoURL = *req.LogoURL
	}
	if req.Active != nil {
		school.Active = *req.Active
	}

	if err := s.repo.Update(ctx, school); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update school")
	}
	return school, nil
}

// Deactivate soft deletes a school.
func (s *SchoolService) Deactivate(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate school")
	}
	return nil
}

func (s *SchoolService) ensureUniqueCode(ctx context.Context, code, excludeID string) error {
	exists, err := s.repo.ExistsByCode(ctx, code, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check school code")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrDuplicate, "school code already exists")
	}
	return nil
}
