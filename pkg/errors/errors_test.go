package errors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorKeepsTypedErrors(t *testing.T) {
	dup := Clone(ErrDuplicate, "location already configured")
	wrapped := Wrap(dup, ErrValidation.Code, http.StatusBadRequest, "invalid payload")

	got := FromError(wrapped)
	assert.Equal(t, ErrValidation.Code, got.Code)
	assert.True(t, errors.Is(wrapped, ErrDuplicate))
}

func TestFromErrorDefaultsToInternal(t *testing.T) {
	got := FromError(errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, got.Status)
	assert.Equal(t, ErrInternal.Message, got.Message)
	assert.EqualError(t, got, "internal server error: boom")
}

func TestCloneDoesNotMutateTemplate(t *testing.T) {
	clone := Clone(ErrNotFound, "student not found")
	assert.Equal(t, "student not found", clone.Message)
	assert.Equal(t, "resource not found", ErrNotFound.Message)
	assert.Nil(t, Clone(nil, "x"))
}
