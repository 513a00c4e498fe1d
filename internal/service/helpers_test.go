package service

import (
	"database/sql"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hard4j/bvp-attendance-api/internal/models"
	appErrors "github.com/hard4j/bvp-attendance-api/pkg/errors"
)

func TestPercentage(t *testing.T) {
	assert.Equal(t, 0.0, percentage(0, 0))
	assert.Equal(t, 0.0, percentage(3, 0))
	assert.Equal(t, 100.0, percentage(4, 4))
	assert.Equal(t, 33.33, percentage(1, 3))
	assert.Equal(t, 66.67, percentage(2, 3))
}

func TestNormaliseRolls(t *testing.T) {
	assert.Equal(t, []string{"CO01", "CO02"}, normaliseRolls([]string{" co01", "", "CO02", "co01 "}))
	assert.Empty(t, normaliseRolls(nil))
}

func TestParseDayUsesLocation(t *testing.T) {
	kolkata := time.FixedZone("IST", 5*60*60+30*60)
	lateUTC := func() time.Time { return time.Date(2024, 7, 1, 20, 0, 0, 0, time.UTC) }

	day, err := parseDay("", kolkata, lateUTC)
	require.NoError(t, err)
	assert.Equal(t, "2024-07-02", day.Format(models.DateLayout))

	day, err = parseDay("", time.UTC, lateUTC)
	require.NoError(t, err)
	assert.Equal(t, "2024-07-01", day.Format(models.DateLayout))

	_, err = parseDay("01/07/2024", time.UTC, lateUTC)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestStoreError(t *testing.T) {
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(storeError(sql.ErrNoRows, "x", "y")).Code)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(storeError(&pq.Error{Code: "23505"}, "x", "y")).Code)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(storeError(&pq.Error{Code: "23503"}, "x", "y")).Code)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(storeError(assert.AnError, "x", "y")).Code)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(storeError(appErrors.Clone(appErrors.ErrConflict, "taken"), "x", "y")).Code)
}

func TestCanAccessAssignment(t *testing.T) {
	assignment := &models.AssignmentDetail{Assignment: models.Assignment{StaffID: "s1"}, DeptCode: "CO"}

	assert.True(t, canAccessAssignment(&models.JWTClaims{Role: models.RoleAdmin}, assignment))
	assert.True(t, canAccessAssignment(&models.JWTClaims{Role: models.RoleStaff, StaffID: "s1"}, assignment))
	assert.False(t, canAccessAssignment(&models.JWTClaims{Role: models.RoleStaff, StaffID: "s2"}, assignment))
	assert.True(t, canAccessAssignment(&models.JWTClaims{Role: models.RoleHOD, StaffID: "s9", DeptCode: "CO"}, assignment))
	assert.False(t, canAccessAssignment(&models.JWTClaims{Role: models.RoleHOD, StaffID: "s9", DeptCode: "ME"}, assignment))
	assert.False(t, canAccessAssignment(nil, assignment))
}
