package service

import (
	"strings"
	"time"

	appErrors "github.com/noah-isme/school-portal-api/pkg/errors"
)

const dateLayout = "2006-01-02"

// parseDatePtr parses an already validated YYYY-MM-DD value; blank means nil.
func parseDatePtr(value string) *time.Time {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return nil
	}
	return &t
}

// parseDate parses a YYYY-MM-DD field, reporting calendar-invalid values
// such as 2024-02-30 against field.
func parseDate(field, value string) (time.Time, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "invalid date").
			WithDetails(map[string]string{field: field + " must be a valid date formatted YYYY-MM-DD"})
	}
	return t, nil
}
