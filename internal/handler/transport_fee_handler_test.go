package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/internal/service"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
)

type transportFeeServiceMock struct {
	lastSchool string
	lastActive *bool
	lastCreate service.CreateTransportFeeRequest
	createErr  error
}

func (m *transportFeeServiceMock) List(ctx context.Context, schoolID string, active *bool) ([]models.TransportFee, error) {
	m.lastSchool, m.lastActive = schoolID, active
	return []models.TransportFee{{ID: "fee-1", SchoolID: schoolID, LocationName: "Depok"}}, nil
}

func (m *transportFeeServiceMock) Get(ctx context.Context, schoolID, id string) (*models.TransportFee, error) {
	m.lastSchool = schoolID
	return nil, appErrors.Clone(appErrors.ErrNotFound, "transport fee not found")
}

func (m *transportFeeServiceMock) Create(ctx context.Context, schoolID string, req service.CreateTransportFeeRequest) (*models.TransportFee, error) {
	m.lastSchool, m.lastCreate = schoolID, req
	if m.createErr != nil {
		return nil, m.createErr
	}
	return &models.TransportFee{ID: "fee-2", SchoolID: schoolID, LocationName: req.LocationName, MonthlyFee: *req.MonthlyFee, AnnualFee: *req.MonthlyFee * 12}, nil
}

func (m *transportFeeServiceMock) Update(ctx context.Context, schoolID, id string, req service.UpdateTransportFeeRequest) (*models.TransportFee, error) {
	return &models.TransportFee{ID: id, SchoolID: schoolID}, nil
}

func (m *transportFeeServiceMock) Toggle(ctx context.Context, schoolID, id string) (*models.TransportFee, error) {
	m.lastSchool = schoolID
	return &models.TransportFee{ID: id, SchoolID: schoolID, IsActive: false}, nil
}

func (m *transportFeeServiceMock) Delete(ctx context.Context, schoolID, id string) error {
	m.lastSchool = schoolID
	return nil
}

func TestTransportFeeRoutesUseSchoolScope(t *testing.T) {
	mock := &transportFeeServiceMock{}
	r := newTestRouter(Handlers{TransportFees: NewTransportFeeHandler(mock)})

	w := call(r, http.MethodGet, "/api/transport-fees?active=true", "admin-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "school-1", mock.lastSchool)
	require.NotNil(t, mock.lastActive)
	assert.True(t, *mock.lastActive)

	assert.Equal(t, http.StatusForbidden, call(r, http.MethodGet, "/api/transport-fees", "root", nil).Code)

	req := call(r, http.MethodGet, "/api/transport-fees/fee-9", "admin-2", nil)
	assert.Equal(t, http.StatusNotFound, req.Code)
	assert.Equal(t, "school-2", mock.lastSchool)
}

func TestTransportFeeSuperadminPicksSchool(t *testing.T) {
	mock := &transportFeeServiceMock{}
	r := newTestRouter(Handlers{TransportFees: NewTransportFeeHandler(mock)})
	school := "0b6c7a10-0000-4000-8000-000000000001"

	w := callWithHeaders(r, http.MethodPatch, "/api/transport-fees/fee-1/toggle", "root", nil, map[string]string{"X-School-ID": school})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, school, mock.lastSchool)

	w = callWithHeaders(r, http.MethodDelete, "/api/transport-fees/fee-1", "root", nil, map[string]string{"X-School-ID": "school-1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTransportFeeCreate(t *testing.T) {
	mock := &transportFeeServiceMock{}
	r := newTestRouter(Handlers{TransportFees: NewTransportFeeHandler(mock)})

	assert.Equal(t, http.StatusForbidden, call(r, http.MethodPost, "/api/transport-fees", "teacher", map[string]interface{}{}).Code)

	w := call(r, http.MethodPost, "/api/transport-fees", "admin-1", map[string]interface{}{"location_name": "Depok", "monthly_fee": 150000})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "Depok", mock.lastCreate.LocationName)
	assert.Contains(t, w.Body.String(), `"annual_fee":1800000`)

	mock.createErr = appErrors.Clone(appErrors.ErrDuplicate, "location already has a fee")
	w = call(r, http.MethodPost, "/api/transport-fees", "admin-1", map[string]interface{}{"location_name": "Depok", "monthly_fee": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, appErrors.ErrDuplicate.Code, decode(t, w).Error.Code)
}
