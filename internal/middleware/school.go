package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/noah-isme/school-portal-api/internal/models"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
	"github.com/noah-isme/school-portal-api/pkg/response"
)

const (
	// SchoolHeader lets a SUPERADMIN pick the school a request operates on.
	SchoolHeader     = "X-School-ID"
	contextSchoolKey = "schoolID"
)

// SchoolScope resolves the tenant of the request. School users are pinned
// to the school in their token; a SUPERADMIN must name one in X-School-ID.
func SchoolScope() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := Claims(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		schoolID := claims.SchoolID
		if claims.Role == models.RoleSuperAdmin {
			schoolID = strings.TrimSpace(c.GetHeader(SchoolHeader))
			if schoolID != "" {
				if _, err := uuid.Parse(schoolID); err != nil {
					response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid school scope").
						WithDetails(map[string]string{"school_id": "X-School-ID must be a uuid"}))
					c.Abort()
					return
				}
			}
		}
		if schoolID == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "a school scope is required"))
			c.Abort()
			return
		}

		c.Set(contextSchoolKey, schoolID)
		c.Next()
	}
}

// SchoolID returns the tenant resolved by SchoolScope, falling back to the
// token's school.
func SchoolID(c *gin.Context) string {
	if v, ok := c.Get(contextSchoolKey); ok {
		if id, ok := v.(string); ok {
			return id
		}
	}
	if claims := Claims(c); claims != nil {
		return claims.SchoolID
	}
	return ""
}
