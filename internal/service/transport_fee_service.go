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
	"github.com/noah-isme/school-portal-api/pkg/grading"
	"github.com/noah-isme/school-portal-api/pkg/validation"
)

const monthsPerYear = 12

type transportFeeRepository interface {
	List(ctx context.Context, filter models.TransportFeeFilter) ([]models.TransportFee, error)
	FindByID(ctx context.Context, schoolID, id string) (*models.TransportFee, error)
	ExistsByLocation(ctx context.Context, schoolID, location, excludeID string) (bool, error)
	Create(ctx context.Context, fee *models.TransportFee) error
	Update(ctx context.Context, fee *models.TransportFee) error
	Toggle(ctx context.Context, schoolID, id string) (*models.TransportFee, error)
	Delete(ctx context.Context, schoolID, id string) (bool, error)
}

// CreateTransportFeeRequest configures the fee of one pickup location.
type CreateTransportFeeRequest struct {
	LocationName string   `json:"location_name" validate:"required,notblank,max=150"`
	MonthlyFee   *float64 `json:"monthly_fee" validate:"required,gte=0"`
	AnnualFee    *float64 `json:"annual_fee" validate:"omitempty,gte=0"`
	Description  string   `json:"description" validate:"max=500"`
	IsActive     *bool    `json:"is_active"`
}

// UpdateTransportFeeRequest updates only the fields present in the body.
type UpdateTransportFeeRequest struct {
	LocationName *string  `json:"location_name" validate:"omitempty,notblank,max=150"`
	MonthlyFee   *float64 `json:"monthly_fee" validate:"omitempty,gte=0"`
	AnnualFee    *float64 `json:"annual_fee" validate:"omitempty,gte=0"`
	Description  *string  `json:"description" validate:"omitempty,max=500"`
	IsActive     *bool    `json:"is_active"`
}

// TransportFeeService manages per-location bus fees of a school.
type TransportFeeService struct {
	repo      transportFeeRepository
	validator *validation.Validator
	logger    *zap.Logger
}

func NewTransportFeeService(repo transportFeeRepository, validate *validation.Validator, logger *zap.Logger) *TransportFeeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validation.New()
	}
	return &TransportFeeService{repo: repo, validator: validate, logger: logger}
}

func (s *TransportFeeService) List(ctx context.Context, schoolID string, active *bool) ([]models.TransportFee, error) {
	fees, err := s.repo.List(ctx, models.TransportFeeFilter{SchoolID: schoolID, Active: active})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list transport fees")
	}
	return fees, nil
}

func (s *TransportFeeService) Get(ctx context.Context, schoolID, id string) (*models.TransportFee, error) {
	fee, err := s.repo.FindByID(ctx, schoolID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "transport fee not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load transport fee")
	}
	return fee, nil
}

// Create stores a new location fee. The annual fee defaults to twelve monthly fees.
func (s *TransportFeeService) Create(ctx context.Context, schoolID string, req CreateTransportFeeRequest) (*models.TransportFee, error) {
	if err := s.validator.Check(req, "invalid transport fee payload"); err != nil {
		return nil, err
	}
	location := strings.TrimSpace(req.LocationName)
	if err := s.ensureUniqueLocation(ctx, schoolID, location, ""); err != nil {
		return nil, err
	}

	fee := &models.TransportFee{
		SchoolID:     schoolID,
		LocationName: location,
		MonthlyFee:   grading.Round2(*req.MonthlyFee),
		Description:  req.Description,
		IsActive:     true,
	}
	if req.AnnualFee != nil {
		fee.AnnualFee = grading.Round2(*req.AnnualFee)
	} else {
		fee.AnnualFee = grading.Round2(fee.MonthlyFee * monthsPerYear)
	}
	if req.IsActive != nil {
		fee.IsActive = *req.IsActive
	}

	if err := s.repo.Create(ctx, fee); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrDuplicate, "location already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create transport fee")
	}
	return fee, nil
}

// Update merges the present fields. Changing the monthly fee without an
// annual fee re-derives the annual fee.
func (s *TransportFeeService) Update(ctx context.Context, schoolID, id string, req UpdateTransportFeeRequest) (*models.TransportFee, error) {
	if err := s.validator.Check(req, "invalid transport fee payload"); err != nil {
		return nil, err
	}
	fee, err := s.Get(ctx, schoolID, id)
	if err != nil {
		return nil, err
	}

	if req.LocationName != nil {
		location := strings.TrimSpace(*req.LocationName)
		if location == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid transport fee payload").
				WithDetails(map[string]string{"location_name": "location_name must not be blank"})
		}
		if !strings.EqualFold(location, fee.LocationName) {
			if err := s.ensureUniqueLocation(ctx, schoolID, location, id); err != nil {
				return nil, err
			}
		}
		fee.LocationName = location
	}
	if req.MonthlyFee != nil {
		fee.MonthlyFee = grading.Round2(*req.MonthlyFee)
		if req.AnnualFee == nil {
			fee.AnnualFee = grading.Round2(fee.MonthlyFee * monthsPerYear)
		}
	}
	if req.AnnualFee != nil {
		fee.AnnualFee = grading.Round2(*req.AnnualFee)
	}
	if req.Description != nil {
		fee.Description = *req.Description
	}
	if req.IsActive != nil {
		fee.IsActive = *req.IsActive
	}

	if err := s.repo.Update(ctx, fee); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrDuplicate, "location already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update transport fee")
	}
	return fee, nil
}

// Toggle flips is_active.
func (s *TransportFeeService) Toggle(ctx context.Context, schoolID, id string) (*models.TransportFee, error) {
	fee, err := s.repo.Toggle(ctx, schoolID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "transport fee not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to toggle transport fee")
	}
	return fee, nil
}

// Delete removes the fee permanently.
func (s *TransportFeeService) Delete(ctx context.Context, schoolID, id string) error {
	deleted, err := s.repo.Delete(ctx, schoolID, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete transport fee")
	}
	if !deleted {
		return appErrors.Clone(appErrors.ErrNotFound, "transport fee not found")
	}
	return nil
}

func (s *TransportFeeService) ensureUniqueLocation(ctx context.Context, schoolID, location, excludeID string) error {
	exists, err := s.repo.ExistsByLocation(ctx, schoolID, location, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check location")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrDuplicate, "location already exists")
	}
	return nil
}
