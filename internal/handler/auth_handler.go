package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hard4j/bvp-attendance-api/internal/models"
	appErrors "github.com/hard4j/bvp-attendance-api/pkg/errors"
	"github.com/hard4j/bvp-attendance-api/pkg/response"
)

type authenticator interface {
	AdminLogin(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error)
	StaffLogin(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error)
	HODLogin(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error)
}

// AuthHandler wires HTTP endpoints to the auth service.
type AuthHandler struct {
	service authenticator
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc authenticator) *AuthHandler {
	return &AuthHandler{service: svc}
}

// AdminLogin godoc
// @Summary Administrator login
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/admin/login [post]
func (h *AuthHandler) AdminLogin(c *gin.Context) {
	h.login(c, h.service.AdminLogin)
}

// StaffLogin godoc
// @Summary Staff login
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/staff/login [post]
func (h *AuthHandler) StaffLogin(c *gin.Context) {
	h.login(c, h.service.StaffLogin)
}

// HODLogin godoc
// @Summary Head of department login
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/hod/login [post]
func (h *AuthHandler) HODLogin(c *gin.Context) {
	h.login(c, h.service.HODLogin)
}

func (h *AuthHandler) login(c *gin.Context, fn func(context.Context, models.LoginRequest) (*models.LoginResponse, error)) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid login payload"))
		return
	}

	res, err := fn(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res, nil)
}

// Me godoc
// @Summary Get current principal
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	response.OK(c, models.UserInfo{
		ID:       claims.StaffID,
		Username: claims.Username,
		Role:     claims.Role,
		DeptCode: claims.DeptCode,
	})
}
