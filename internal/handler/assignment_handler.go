package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/hard4j/bvp-attendance-api/internal/models"
	"github.com/hard4j/bvp-attendance-api/internal/service"
	"github.com/hard4j/bvp-attendance-api/pkg/response"
)

// AssignmentHandler handles teaching assignment endpoints.
type AssignmentHandler struct {
	service *service.AssignmentService
}

// NewAssignmentHandler constructs an assignment handler.
func NewAssignmentHandler(svc *service.AssignmentService) *AssignmentHandler {
	return &AssignmentHandler{service: svc}
}

// List godoc
// @Summary List assignments
// @Tags Assignments
// @Produce json
// @Param batch_id query string false "Batch ID"
// @Param subject_id query string false "Subject ID"
// @Param staff_id query string false "Staff ID"
// @Param lecture_type query string false "TH, PR or TU"
// @Success 200 {object} response.Envelope
// @Router /assignments [get]
func (h *AssignmentHandler) List(c *gin.Context) {
	subBatch, err := optionalIntQuery(c, "sub_batch")
	if err != nil {
		response.Error(c, err)
		return
	}
	filter := models.AssignmentFilter{
		BatchID:     strings.TrimSpace(c.Query("batch_id")),
		SubjectID:   strings.TrimSpace(c.Query("subject_id")),
		StaffID:     strings.TrimSpace(c.Query("staff_id")),
		LectureType: models.LectureType(strings.ToUpper(strings.TrimSpace(c.Query("lecture_type")))),
		SubBatch:    subBatch,
	}
	items, err := h.service.List(c.Request.Context(), filter, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, items)
}

// Get godoc
// @Summary Get assignment
// @Tags Assignments
// @Produce json
// @Param id path string true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Router /assignments/{id} [get]
func (h *AssignmentHandler) Get(c *gin.Context) {
	item, err := h.service.Get(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, item)
}

// Create godoc
// @Summary Assign a staff member to teach a subject to a batch
// @Tags Assignments
// @Accept json
// @Produce json
// @Param payload body models.AssignmentRequest true "Assignment payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /assignments [post]
func (h *AssignmentHandler) Create(c *gin.Context) {
	var req models.AssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid assignment payload"))
		return
	}
	item, err := h.service.Create(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Delete godoc
// @Summary Delete assignment with its attendance
// @Tags Assignments
// @Param id path string true "Assignment ID"
// @Success 204
// @Router /assignments/{id} [delete]
func (h *AssignmentHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Mine godoc
// @Summary Assignments of the signed-in staff member grouped by subject
// @Tags Assignments
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /staff/assignments [get]
func (h *AssignmentHandler) Mine(c *gin.Context) {
	groups, err := h.service.ForStaff(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, groups)
}

// Overview godoc
// @Summary Every staff member with their assignments
// @Tags Assignments
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/staff-assignments [get]
func (h *AssignmentHandler) Overview(c *gin.Context) {
	items, err := h.service.Overview(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, items)
}
