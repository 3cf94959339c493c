package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/noah-isme/school-portal-api/internal/models"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
)

// Actor is the authenticated caller of a mutation.
type Actor struct {
	UserID    string
	Role      models.UserRole
	SchoolID  string
	IP        string
	UserAgent string
}

// CanManageSchool reports whether the actor may administer schoolID.
func (a Actor) CanManageSchool(schoolID string) bool {
	switch a.Role {
	case models.RoleSuperAdmin:
		return true
	case models.RoleSchoolAdmin:
		return a.SchoolID != "" && a.SchoolID == schoolID
	default:
		return false
	}
}

func (a Actor) userID() *string {
	if a.UserID == "" {
		return nil
	}
	id := a.UserID
	return &id
}

type auditRecorder interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// audit writes a trail row. Failures are logged and never surface to the caller.
func audit(ctx context.Context, rec auditRecorder, logger *zap.Logger, actor Actor, action, resource, resourceID string, oldValues, newValues interface{}) {
	if rec == nil {
		return
	}
	entry := &models.AuditLog{
		UserID:    actor.userID(),
		Action:    action,
		Resource:  resource,
		IPAddress: actor.IP,
		UserAgent: actor.UserAgent,
	}
	if actor.SchoolID != "" {
		schoolID := actor.SchoolID
		entry.SchoolID = &schoolID
	}
	if resourceID != "" {
		entry.ResourceID = &resourceID
	}
	if oldValues != nil {
		entry.OldValues, _ = json.Marshal(oldValues)
	}
	if newValues != nil {
		entry.NewValues, _ = json.Marshal(newValues)
	}
	if err := rec.CreateAuditLog(ctx, entry); err != nil {
		logger.Warn("failed to record audit log", zap.String("action", action), zap.String("resource", resource), zap.Error(err))
	}
}

// requireSchool returns the school an actor operates on, rejecting tokens without one.
func requireSchool(actor Actor) (string, error) {
	if actor.SchoolID == "" {
		return "", appErrors.Clone(appErrors.ErrForbidden, "a school scope is required")
	}
	return actor.SchoolID, nil
}
