package service

import (
	"database/sql"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/hard4j/bvp-attendance-api/internal/models"
	"github.com/hard4j/bvp-attendance-api/pkg/database"
	appErrors "github.com/hard4j/bvp-attendance-api/pkg/errors"
)

// NewValidator returns a validator with the attendance specific rules
// registered.
func NewValidator() *validator.Validate {
	v := validator.New()
	registerValidations(v)
	return v
}

func registerValidations(v *validator.Validate) {
	_ = v.RegisterValidation("lecture_type", func(fl validator.FieldLevel) bool {
		return models.LectureType(strings.ToUpper(fl.Field().String())).Valid()
	})
}

// storeError translates repository failures into typed API errors.
func storeError(err error, notFound, internal string) error {
	var appErr *appErrors.Error
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	case database.IsUniqueViolation(err):
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "record already exists")
	case database.IsForeignKeyViolation(err):
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "record is referenced by other data")
	default:
		return appErrors.Internal(err, internal)
	}
}

func validationError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}

// parseDay parses a YYYY-MM-DD date. An empty value resolves to today in loc.
func parseDay(raw string, loc *time.Location, now func() time.Time) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return today(loc, now), nil
	}
	t, err := time.Parse(models.DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, validationError(err, "date must use YYYY-MM-DD")
	}
	return t, nil
}

func today(loc *time.Location, now func() time.Time) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := now().In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

func percentage(attended, total int) float64 {
	if total <= 0 {
		return 0
	}
	p := float64(attended) / float64(total) * 100
	return math.Round(p*100) / 100
}

// normaliseRolls trims, upper-cases and de-duplicates roll numbers keeping
// first-seen order.
func normaliseRolls(rolls []string) []string {
	seen := make(map[string]struct{}, len(rolls))
	out := make([]string, 0, len(rolls))
	for _, roll := range rolls {
		r := strings.ToUpper(strings.TrimSpace(roll))
		if r == "" {
			continue
		}
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}

// canAccessAssignment enforces ownership: staff only their own assignments,
// HODs their department's and their own, administrators everything.
func canAccessAssignment(claims *models.JWTClaims, assignment *models.AssignmentDetail) bool {
	if claims == nil || assignment == nil {
		return false
	}
	switch claims.Role {
	case models.RoleAdmin:
		return true
	case models.RoleHOD:
		return assignment.DeptCode == claims.DeptCode || assignment.StaffID == claims.StaffID
	default:
		return assignment.StaffID == claims.StaffID
	}
}
