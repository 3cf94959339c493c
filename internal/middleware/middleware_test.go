package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-portal-api/internal/models"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
)

const testSchool = "5a0f1c7e-3b1d-4f7a-9c2e-000000000001"

type stubTokens map[string]*models.JWTClaims

func (s stubTokens) ValidateToken(token string) (*models.JWTClaims, error) {
	if claims, ok := s[token]; ok {
		return claims, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
}

type recordingAudit struct {
	logs []*models.AuditLog
}

func (r *recordingAudit) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	r.logs = append(r.logs, log)
	return nil
}

var testTokens = stubTokens{
	"admin": {UserID: "admin-1", Role: models.RoleSchoolAdmin, SchoolID: testSchool},
	"root":  {UserID: "root-1", Role: models.RoleSuperAdmin},
	"teach": {UserID: "teacher-1", Role: models.RoleTeacher, SchoolID: testSchool},
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	chain := append([]gin.HandlerFunc{JWT(testTokens)}, handlers...)
	chain = append(chain, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"school_id": SchoolID(c), "user_id": Claims(c).UserID})
	})
	r.GET("/things/:id", chain...)
	return r
}

func do(r http.Handler, token string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/things/admin-1", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTRejectsMissingAndInvalidTokens(t *testing.T) {
	r := newRouter()

	assert.Equal(t, http.StatusUnauthorized, do(r, "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "nope", nil).Code)

	w := do(r, "admin", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_id":"admin-1"`)
}

func TestRBACAllowsRolesAndSelf(t *testing.T) {
	r := newRouter(RBAC(string(models.RoleSuperAdmin), "SELF"))

	assert.Equal(t, http.StatusOK, do(r, "root", nil).Code)
	assert.Equal(t, http.StatusOK, do(r, "admin", nil).Code)
	assert.Equal(t, http.StatusForbidden, do(r, "teach", nil).Code)
}

func TestSchoolScope(t *testing.T) {
	r := newRouter(SchoolScope())

	w := do(r, "admin", map[string]string{SchoolHeader: "5a0f1c7e-3b1d-4f7a-9c2e-000000000999"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), testSchool, "school users cannot switch tenants")

	assert.Equal(t, http.StatusForbidden, do(r, "root", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, "root", map[string]string{SchoolHeader: "abc"}).Code)

	w = do(r, "root", map[string]string{SchoolHeader: testSchool})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), testSchool)
}

func TestAuditRecordsSuccessfulRequests(t *testing.T) {
	rec := &recordingAudit{}
	r := newRouter(SchoolScope(), Audit(rec, nil, "UPDATE", "things"))

	require.Equal(t, http.StatusOK, do(r, "admin", nil).Code)
	require.Len(t, rec.logs, 1)
	assert.Equal(t, "admin-1", *rec.logs[0].UserID)
	assert.Equal(t, testSchool, *rec.logs[0].SchoolID)
	assert.Equal(t, "admin-1", *rec.logs[0].ResourceID)

	assert.Equal(t, http.StatusUnauthorized, do(r, "", nil).Code)
	assert.Len(t, rec.logs, 1)
}
