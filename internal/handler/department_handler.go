package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hard4j/bvp-attendance-api/internal/models"
	"github.com/hard4j/bvp-attendance-api/internal/service"
	"github.com/hard4j/bvp-attendance-api/pkg/response"
)

// DepartmentHandler handles department endpoints.
type DepartmentHandler struct {
	service *service.DepartmentService
}

// NewDepartmentHandler constructs a department handler.
func NewDepartmentHandler(svc *service.DepartmentService) *DepartmentHandler {
	return &DepartmentHandler{service: svc}
}

// List godoc
// @Summary List departments
// @Tags Departments
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /departments [get]
func (h *DepartmentHandler) List(c *gin.Context) {
	items, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, items)
}

// Create godoc
// @Summary Create department
// @Tags Departments
// @Accept json
// @Produce json
// @Param payload body models.DepartmentRequest true "Department payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /departments [post]
func (h *DepartmentHandler) Create(c *gin.Context) {
	var req models.DepartmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid department payload"))
		return
	}
	dept, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dept)
}

// Update godoc
// @Summary Rename department
// @Tags Departments
// @Accept json
// @Produce json
// @Param code path string true "Department code"
// @Param payload body models.DepartmentRequest true "Department payload"
// @Success 200 {object} response.Envelope
// @Router /departments/{code} [put]
func (h *DepartmentHandler) Update(c *gin.Context) {
	var req models.DepartmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid department payload"))
		return
	}
	dept, err := h.service.Update(c.Request.Context(), c.Param("code"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dept, nil)
}

// Delete godoc
// @Summary Delete department
// @Tags Departments
// @Param code path string true "Department code"
// @Success 204
// @Router /departments/{code} [delete]
func (h *DepartmentHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("code")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
