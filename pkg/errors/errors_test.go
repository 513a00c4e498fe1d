package errors

import (
	"database/sql"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorWrapsUnknown(t *testing.T) {
	appErr := FromError(sql.ErrConnDone)
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.True(t, errors.Is(appErr, sql.ErrConnDone))
}

func TestCloneMatchesSentinel(t *testing.T) {
	err := Clone(ErrNotFound, "assignment not found")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrConflict))
	assert.Equal(t, "assignment not found", err.Error())
	assert.Equal(t, "resource not found", ErrNotFound.Message)
}

func TestWithDetails(t *testing.T) {
	err := WithDetails(ErrValidation, "unknown roll numbers", []string{"R9"})
	assert.Equal(t, []string{"R9"}, err.Details)
	assert.Nil(t, ErrValidation.Details)
}
