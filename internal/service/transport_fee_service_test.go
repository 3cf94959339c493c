package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/school-portal-api/internal/models"
	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
	"github.com/noah-isme/school-portal-api/pkg/validation"
)

type fakeTransportFeeRepo struct {
	fees map[string]*models.TransportFee
}

func newFakeTransportFeeRepo() *fakeTransportFeeRepo {
	return &fakeTransportFeeRepo{fees: map[string]*models.TransportFee{}}
}

func (f *fakeTransportFeeRepo) List(ctx context.Context, filter models.TransportFeeFilter) ([]models.TransportFee, error) {
	out := []models.TransportFee{}
	for _, fee := range f.fees {
		if fee.SchoolID != filter.SchoolID {
			continue
		}
		if filter.Active != nil && fee.IsActive != *filter.Active {
			continue
		}
		out = append(out, *fee)
	}
	return out, nil
}

func (f *fakeTransportFeeRepo) FindByID(ctx context.Context, schoolID, id string) (*models.TransportFee, error) {
	fee, ok := f.fees[id]
	if !ok || fee.SchoolID != schoolID {
		return nil, sql.ErrNoRows
	}
	copy := *fee
	return &copy, nil
}

func (f *fakeTransportFeeRepo) ExistsByLocation(ctx context.Context, schoolID, location, excludeID string) (bool, error) {
	for _, fee := range f.fees {
		if fee.SchoolID == schoolID && strings.EqualFold(fee.LocationName, location) && fee.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeTransportFeeRepo) Create(ctx context.Context, fee *models.TransportFee) error {
	fee.ID = uuid.NewString()
	copy := *fee
	f.fees[fee.ID] = &copy
	return nil
}

func (f *fakeTransportFeeRepo) Update(ctx context.Context, fee *models.TransportFee) error {
	copy := *fee
	f.fees[fee.ID] = &copy
	return nil
}

func (f *fakeTransportFeeRepo) Toggle(ctx context.Context, schoolID, id string) (*models.TransportFee, error) {
	fee, ok := f.fees[id]
	if !ok || fee.SchoolID != schoolID {
		return nil, sql.ErrNoRows
	}
	fee.IsActive = !fee.IsActive
	copy := *fee
	return &copy, nil
}

func (f *fakeTransportFeeRepo) Delete(ctx context.Context, schoolID, id string) (bool, error) {
	fee, ok := f.fees[id]
	if !ok || fee.SchoolID != schoolID {
		return false, nil
	}
	delete(f.fees, id)
	return true, nil
}

func floatPtr(v float64) *float64 { return &v }

func newTransportFeeService(repo *fakeTransportFeeRepo) *TransportFeeService {
	return NewTransportFeeService(repo, validation.New(), zap.NewNop())
}

func TestTransportFeeCreateDerivesAnnualFee(t *testing.T) {
	svc := newTransportFeeService(newFakeTransportFeeRepo())

	fee, err := svc.Create(context.Background(), "school-1", CreateTransportFeeRequest{LocationName: "Downtown", MonthlyFee: floatPtr(100)})
	require.NoError(t, err)
	assert.Equal(t, 1200.0, fee.AnnualFee)
	assert.True(t, fee.IsActive)

	explicit, err := svc.Create(context.Background(), "school-1", CreateTransportFeeRequest{LocationName: "Harbor", MonthlyFee: floatPtr(100), AnnualFee: floatPtr(1000)})
	require.NoError(t, err)
	assert.Equal(t, 1000.0, explicit.AnnualFee)
}

func TestTransportFeeCreateRequiresMonthlyFee(t *testing.T) {
	svc := newTransportFeeService(newFakeTransportFeeRepo())

	_, err := svc.Create(context.Background(), "school-1", CreateTransportFeeRequest{LocationName: "Downtown"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Contains(t, appErr.Details, "monthly_fee")
}

func TestTransportFeeRejectsBlankLocation(t *testing.T) {
	repo := newFakeTransportFeeRepo()
	svc := newTransportFeeService(repo)

	_, err := svc.Create(context.Background(), "school-1", CreateTransportFeeRequest{LocationName: "   ", MonthlyFee: floatPtr(100)})
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Contains(t, appErr.Details, "location_name")
	assert.Empty(t, repo.fees)

	fee, err := svc.Create(context.Background(), "school-1", CreateTransportFeeRequest{LocationName: "Downtown", MonthlyFee: floatPtr(100)})
	require.NoError(t, err)
	for _, blank := range []string{"   ", ""} {
		_, err = svc.Update(context.Background(), "school-1", fee.ID, UpdateTransportFeeRequest{LocationName: strPtr(blank)})
		assert.Contains(t, appErrors.FromError(err).Details, "location_name", "location %q", blank)
	}
	assert.Equal(t, "Downtown", repo.fees[fee.ID].LocationName)
}

func TestTransportFeeDuplicateLocationRejected(t *testing.T) {
	svc := newTransportFeeService(newFakeTransportFeeRepo())

	_, err := svc.Create(context.Background(), "school-1", CreateTransportFeeRequest{LocationName: "Downtown", MonthlyFee: floatPtr(100)})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), "school-1", CreateTransportFeeRequest{LocationName: "downtown", MonthlyFee: floatPtr(80)})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrDuplicate.Code, appErr.Code)
	assert.Equal(t, 400, appErr.Status)

	_, err = svc.Create(context.Background(), "school-2", CreateTransportFeeRequest{LocationName: "Downtown", MonthlyFee: floatPtr(80)})
	assert.NoError(t, err)
}

func TestTransportFeeUpdateRederivesAnnual(t *testing.T) {
	repo := newFakeTransportFeeRepo()
	svc := newTransportFeeService(repo)
	fee, err := svc.Create(context.Background(), "school-1", CreateTransportFeeRequest{LocationName: "Downtown", MonthlyFee: floatPtr(100), Description: "Route A"})
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), "school-1", fee.ID, UpdateTransportFeeRequest{MonthlyFee: floatPtr(150)})
	require.NoError(t, err)
	assert.Equal(t, 1800.0, updated.AnnualFee)
	assert.Equal(t, "Route A", updated.Description)

	updated, err = svc.Update(context.Background(), "school-1", fee.ID, UpdateTransportFeeRequest{MonthlyFee: floatPtr(200), AnnualFee: floatPtr(2000)})
	require.NoError(t, err)
	assert.Equal(t, 2000.0, updated.AnnualFee)
}

func TestTransportFeeToggleTwiceRestores(t *testing.T) {
	svc := newTransportFeeService(newFakeTransportFeeRepo())
	fee, err := svc.Create(context.Background(), "school-1", CreateTransportFeeRequest{LocationName: "Downtown", MonthlyFee: floatPtr(100)})
	require.NoError(t, err)

	first, err := svc.Toggle(context.Background(), "school-1", fee.ID)
	require.NoError(t, err)
	assert.False(t, first.IsActive)

	second, err := svc.Toggle(context.Background(), "school-1", fee.ID)
	require.NoError(t, err)
	assert.Equal(t, fee.IsActive, second.IsActive)
}

func TestTransportFeeCrossSchoolIsNotFound(t *testing.T) {
	svc := newTransportFeeService(newFakeTransportFeeRepo())
	fee, err := svc.Create(context.Background(), "school-1", CreateTransportFeeRequest{LocationName: "Downtown", MonthlyFee: floatPtr(100)})
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), "school-2", fee.ID)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	err = svc.Delete(context.Background(), "school-2", fee.ID)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	require.NoError(t, svc.Delete(context.Background(), "school-1", fee.ID))
}
