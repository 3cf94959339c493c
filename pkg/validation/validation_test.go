package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
)

type sample struct {
	Location string  `json:"location_name" validate:"required"`
	Monthly  float64 `json:"monthly_fee" validate:"gte=0"`
	Phone    string  `json:"phone" validate:"omitempty,phone"`
	Date     string  `json:"date" validate:"omitempty,isodate"`
}

func TestCheckReturnsFieldDetails(t *testing.T) {
	v := New()
	err := v.Check(sample{Monthly: -1, Phone: "abc", Date: "12/01/2024"}, "invalid transport fee")
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Equal(t, "invalid transport fee", appErr.Message)
	assert.Contains(t, appErr.Details, "location_name")
	assert.Contains(t, appErr.Details["location_name"], "required")
	assert.Equal(t, "phone must be a valid phone number", appErr.Details["phone"])
	assert.Contains(t, appErr.Details, "date")
	assert.Contains(t, appErr.Details, "monthly_fee")
}

func TestCheckPasses(t *testing.T) {
	assert.NoError(t, New().Check(sample{Location: "North", Monthly: 10, Phone: "+628123456789", Date: "2024-07-01"}, ""))
}

func TestCheckRejectsBlankStrings(t *testing.T) {
	type named struct {
		Name string `json:"name" validate:"required,notblank"`
	}
	v := New()

	err := v.Check(named{Name: "   "}, "")
	require.Error(t, err)
	details := appErrors.FromError(err).Details
	assert.Equal(t, "name must not be blank", details["name"])

	assert.NoError(t, v.Check(named{Name: " Depok "}, ""))
}
