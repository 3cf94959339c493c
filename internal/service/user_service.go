package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/school-portal-api/internal/models"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
	"github.com/noah-isme/school-portal-api/pkg/validation"
)

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
}

// CreateUserRequest represents payload for creating users.
type CreateUserRequest struct {
	Email    string          `json:"email" validate:"required,email"`
	FullName string          `json:"full_name" validate:"required"`
	Phone    string          `json:"phone" validate:"omitempty,phone"`
	Role     models.UserRole `json:"role" validate:"required,oneof=SUPERADMIN SCHOOL_ADMIN TEACHER STUDENT"`
	SchoolID *string         `json:"school_id" validate:"omitempty,uuid"`
	Active   *bool           `json:"active"`
	Password string          `json:"password" validate:"required,min=8"`
}

// UpdateUserRequest payload for updating users. Absent fields are kept.
type UpdateUserRequest struct {
	FullName *string          `json:"full_name" validate:"omitempty,min=1"`
	Phone    *string          `json:"phone" validate:"omitempty,phone"`
	Role     *models.UserRole `json:"role" validate:"omitempty,oneof=SUPERADMIN SCHOOL_ADMIN TEACHER STUDENT"`
	Active   *bool            `json:"active"`
}

// UserService handles user management workflows. SUPERADMIN manages every
// user; SCHOOL_ADMIN only the users of its own school.
type UserService struct {
	repo      userRepository
	audit     auditRecorder
	validator *validation.Validator
	logger    *zap.Logger
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, auditRepo auditRecorder, validate *validation.Validator, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validation.New()
	}
	return &UserService{repo: repo, audit: auditRepo, validator: validate, logger: logger}
}

// List returns paginated users and pagination metadata.
func (s *UserService) List(ctx context.Context, actor Actor, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	if actor.Role != models.RoleSuperAdmin {
		filter.SchoolID = actor.SchoolID
	}
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	if users == nil {
		users = []models.User{}
	}
	return users, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a user by ID.
func (s *UserService) Get(ctx context.Context, actor Actor, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if !canSee(actor, user) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
	}
	return user, nil
}

// Create adds a new user.
func (s *UserService) Create(ctx context.Context, actor Actor, req CreateUserRequest) (*models.User, error) {
	if err := s.validator.Check(req, "invalid create user payload"); err != nil {
		return nil, err
	}

	schoolID := req.SchoolID
	if actor.Role != models.RoleSuperAdmin {
		if req.Role == models.RoleSuperAdmin {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "school admins cannot create platform admins")
		}
		own := actor.SchoolID
		schoolID = &own
	}
	if req.Role == models.RoleSuperAdmin {
		schoolID = nil
	} else if schoolID == nil || *schoolID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "school_id is required for this role").
			WithDetails(map[string]string{"school_id": "school_id is required for this role"})
	}

	if _, err := s.repo.FindByEmail(ctx, req.Email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrDuplicate, "email already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email uniqueness")
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		ID:           uuid.NewString(),
		SchoolID:     schoolID,
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		FullName:     strings.TrimSpace(req.FullName),
		Phone:        req.Phone,
		Role:         req.Role,
		Active:       true,
		PasswordHash: string(passwordHash),
	}
	if req.Active != nil {
		user.Active = *req.Active
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	audit(ctx, s.audit, s.logger, actor, models.AuditActionUserCreate, "users", user.ID, nil,
		map[string]interface{}{"id": user.ID, "email": user.Email, "role": user.Role})
	return user, nil
}

// Update modifies the user attributes.
func (s *UserService) Update(ctx context.Context, actor Actor, id string, req UpdateUserRequest) (*models.User, error) {
	if err := s.validator.Check(req, "invalid update payload"); err != nil {
		return nil, err
	}

	user, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleSuperAdmin && (user.Role == models.RoleSuperAdmin || (req.Role != nil && *req.Role == models.RoleSuperAdmin)) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "school admins cannot manage platform admins")
	}

	oldPayload := map[string]interface{}{"role": user.Role, "active": user.Active}

	if req.FullName != nil {
		user.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.Phone != nil {
		user.Phone = *req.Phone
	}
	if req.Role != nil {
		user.Role = *req.Role
	}
	if req.Active != nil {
		user.Active = *req.Active
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update user")
	}

	audit(ctx, s.audit, s.logger, actor, models.AuditActionUserUpdate, "users", user.ID, oldPayload,
		map[string]interface{}{"role": user.Role, "active": user.Active})
	return user, nil
}

// Delete performs a soft delete (inactive) on a user.
func (s *UserService) Delete(ctx context.Context, actor Actor, id string) error {
	user, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	if user.ID == actor.UserID {
		return appErrors.Clone(appErrors.ErrConflict, "cannot deactivate your own account")
	}
	if actor.Role != models.RoleSuperAdmin && user.Role == models.RoleSuperAdmin {
		return appErrors.Clone(appErrors.ErrForbidden, "school admins cannot manage platform admins")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete user")
	}

	audit(ctx, s.audit, s.logger, actor, models.AuditActionUserDelete, "users", user.ID,
		map[string]interface{}{"active": user.Active}, map[string]interface{}{"active": false})
	return nil
}

func canSee(actor Actor, user *models.User) bool {
	if actor.Role == models.RoleSuperAdmin {
		return true
	}
	return user.SchoolID != nil && *user.SchoolID == actor.SchoolID
}
