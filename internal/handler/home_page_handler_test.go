package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/internal/repository"
	"github.com/noah-isme/school-portal-api/internal/service"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
)

type stubTokens map[string]*models.JWTClaims

func (s stubTokens) ValidateToken(token string) (*models.JWTClaims, error) {
	if claims, ok := s[token]; ok {
		return claims, nil
	}
	return nil, appErrors.ErrUnauthorized
}

var testTokens = stubTokens{
	"admin-1": {UserID: "user-1", Role: models.RoleSchoolAdmin, SchoolID: "school-1"},
	"admin-2": {UserID: "user-2", Role: models.RoleSchoolAdmin, SchoolID: "school-2"},
	"teacher": {UserID: "user-3", Role: models.RoleTeacher, SchoolID: "school-1"},
	"root":    {UserID: "user-0", Role: models.RoleSuperAdmin},
}

// memoryHomePages keeps documents as JSON so field updates behave like $set.
type memoryHomePages struct {
	docs map[string][]byte
}

func (m *memoryHomePages) FindBySchool(ctx context.Context, schoolID string) (*models.HomePageContent, error) {
	raw, ok := m.docs[schoolID]
	if !ok {
		return nil, repository.ErrDocumentNotFound
	}
	var doc models.HomePageContent
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (m *memoryHomePages) Save(ctx context.Context, content *models.HomePageContent) error {
	raw, err := json.Marshal(content)
	m.docs[content.SchoolID] = raw
	return err
}

func (m *memoryHomePages) fields(schoolID string) (map[string]json.RawMessage, error) {
	raw, ok := m.docs[schoolID]
	if !ok {
		return nil, repository.ErrDocumentNotFound
	}
	var generic map[string]json.RawMessage
	return generic, json.Unmarshal(raw, &generic)
}

func (m *memoryHomePages) SetField(ctx context.Context, schoolID, field string, value interface{}, updatedBy string) error {
	generic, err := m.fields(schoolID)
	if err != nil {
		return err
	}
	generic[field], _ = json.Marshal(value)
	m.docs[schoolID], err = json.Marshal(generic)
	return err
}

func (m *memoryHomePages) PullItem(ctx context.Context, schoolID, field, itemID, updatedBy string) (bool, error) {
	generic, err := m.fields(schoolID)
	if err != nil {
		return false, nil
	}
	var items []map[string]interface{}
	_ = json.Unmarshal(generic[field], &items)
	kept := make([]map[string]interface{}, 0, len(items))
	for _, item := range items {
		if item["id"] != itemID {
			kept = append(kept, item)
		}
	}
	if len(kept) == len(items) {
		return false, nil
	}
	generic[field], _ = json.Marshal(kept)
	m.docs[schoolID], err = json.Marshal(generic)
	return true, err
}

func (m *memoryHomePages) Delete(ctx context.Context, schoolID string) (*models.HomePageContent, error) {
	doc, err := m.FindBySchool(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	delete(m.docs, schoolID)
	return doc, nil
}

func newHomePageRouter(t *testing.T) (*gin.Engine, *memoryHomePages) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	repo := &memoryHomePages{docs: map[string][]byte{}}
	pages := service.NewHomePageService(repo, nil, nil, nil, service.HomePageOptions{}, nil, nil)

	return newTestRouter(Handlers{HomePage: NewHomePageHandler(pages, 1<<20)}), repo
}

// newTestRouter mounts h the way main does. Handlers left nil are never reached.
func newTestRouter(h Handlers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	if h.HomePage == nil {
		h.HomePage = NewHomePageHandler(service.NewHomePageService(&memoryHomePages{docs: map[string][]byte{}}, nil, nil, nil, service.HomePageOptions{}, nil, nil), 0)
	}
	r := gin.New()
	RegisterRoutes(r.Group("/api"), h, testTokens, nil, nil)
	return r
}

func call(r http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	return callWithHeaders(r, method, path, token, body, nil)
}

func callWithHeaders(r http.Handler, method, path, token string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
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

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string            `json:"code"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func TestHomePageRoutesGuardWrites(t *testing.T) {
	r, _ := newHomePageRouter(t)
	path := "/api/home-page-content/school-1"

	assert.Equal(t, http.StatusNotFound, call(r, http.MethodGet, path, "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, call(r, http.MethodPost, path, "", map[string]interface{}{}).Code)
	assert.Equal(t, http.StatusForbidden, call(r, http.MethodPost, path, "teacher", map[string]interface{}{}).Code)
	assert.Equal(t, http.StatusForbidden, call(r, http.MethodPost, path, "admin-2", map[string]interface{}{}).Code)

	w := call(r, http.MethodPost, path, "admin-1", map[string]interface{}{
		"header": map[string]interface{}{"school_name": "SMA Harapan"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = call(r, http.MethodGet, path, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var doc models.HomePageContent
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &doc))
	assert.Equal(t, "SMA Harapan", doc.Header.SchoolName)
}

func TestHomePageSliderRoutes(t *testing.T) {
	r, repo := newHomePageRouter(t)
	base := "/api/home-page-content/school-1"
	require.Equal(t, http.StatusOK, call(r, http.MethodPost, base, "admin-1", map[string]interface{}{}).Code)

	var ids []string
	for _, title := range []string{"Welcome", "Campus", "Alumni"} {
		w := call(r, http.MethodPost, base+"/sliders", "admin-1", map[string]interface{}{"title": title})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var slider models.Slider
		require.NoError(t, json.Unmarshal(decode(t, w).Data, &slider))
		assert.NotEmpty(t, slider.ID)
		assert.Equal(t, len(ids), slider.Order)
		ids = append(ids, slider.ID)
	}

	w := call(r, http.MethodPut, base+"/sliders/"+ids[1], "admin-1", map[string]interface{}{"subtitle": "Green campus"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated models.Slider
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &updated))
	assert.Equal(t, "Campus", updated.Title)
	assert.Equal(t, "Green campus", updated.Subtitle)

	w = call(r, http.MethodPut, base+"/sliders/reorder", "admin-1", map[string]interface{}{"ids": []string{ids[2], ids[0], ids[1]}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, http.StatusNoContent, call(r, http.MethodDelete, base+"/sliders/"+ids[0], "admin-1", nil).Code)
	assert.Equal(t, http.StatusNotFound, call(r, http.MethodDelete, base+"/sliders/"+ids[0], "admin-1", nil).Code)

	doc, err := repo.FindBySchool(context.Background(), "school-1")
	require.NoError(t, err)
	require.Len(t, doc.Sliders, 2)
	assert.Equal(t, ids[2], doc.Sliders[0].ID)
	assert.Equal(t, ids[1], doc.Sliders[1].ID)
}

func TestHomePageUploadRejectsOversizedBody(t *testing.T) {
	r, _ := newHomePageRouter(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("files", "banner.png")
	require.NoError(t, err)
	_, err = part.Write(bytes.Repeat([]byte("x"), 2<<20))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/home-page-content/school-1/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer admin-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code, w.Body.String())
	assert.Equal(t, appErrors.ErrPayloadTooLarge.Code, decode(t, w).Error.Code)
}
