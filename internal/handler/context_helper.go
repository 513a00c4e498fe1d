package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/hard4j/bvp-attendance-api/internal/middleware"
	"github.com/hard4j/bvp-attendance-api/internal/models"
	appErrors "github.com/hard4j/bvp-attendance-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	claims, ok := middleware.Claims(c)
	if !ok {
		return nil
	}
	return claims
}

func bindError(err error, message string) *appErrors.Error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}

// optionalIntQuery parses an optional positive integer query parameter.
func optionalIntQuery(c *gin.Context, key string) (*int, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return nil, appErrors.Clone(appErrors.ErrValidation, key+" must be a positive integer")
	}
	return &n, nil
}

func optionalFloatQuery(c *gin.Context, key string) (*float64, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, key+" must be a number")
	}
	return &f, nil
}
