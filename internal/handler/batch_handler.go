package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/hard4j/bvp-attendance-api/internal/models"
	"github.com/hard4j/bvp-attendance-api/internal/service"
	appErrors "github.com/hard4j/bvp-attendance-api/pkg/errors"
	"github.com/hard4j/bvp-attendance-api/pkg/response"
)

const maxRosterUpload = 5 << 20

// BatchHandler handles batch and roster endpoints.
type BatchHandler struct {
	service *service.BatchService
}

// NewBatchHandler constructs a batch handler.
func NewBatchHandler(svc *service.BatchService) *BatchHandler {
	return &BatchHandler{service: svc}
}

// List godoc
// @Summary List batches with student counts
// @Tags Batches
// @Produce json
// @Param dept_code query string false "Department"
// @Param academic_year query string false "Academic year"
// @Param semester query int false "Semester"
// @Success 200 {object} response.Envelope
// @Router /batches [get]
func (h *BatchHandler) List(c *gin.Context) {
	filter := models.BatchFilter{
		DeptCode:     strings.ToUpper(strings.TrimSpace(c.Query("dept_code"))),
		AcademicYear: strings.TrimSpace(c.Query("academic_year")),
	}
	if sem, err := strconv.Atoi(c.Query("semester")); err == nil {
		filter.Semester = sem
	}
	batches, err := h.service.List(c.Request.Context(), filter, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, batches)
}

// Get godoc
// @Summary Get batch with students
// @Tags Batches
// @Produce json
// @Param id path string true "Batch ID"
// @Success 200 {object} response.Envelope
// @Router /batches/{id} [get]
func (h *BatchHandler) Get(c *gin.Context) {
	batch, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, batch)
}

// Create godoc
// @Summary Create batch
// @Tags Batches
// @Accept json
// @Produce json
// @Param payload body models.BatchRequest true "Batch payload"
// @Success 201 {object} response.Envelope
// @Router /batches [post]
func (h *BatchHandler) Create(c *gin.Context) {
	var req models.BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid batch payload"))
		return
	}
	batch, err := h.service.Create(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, batch)
}

// Delete godoc
// @Summary Delete batch
// @Tags Batches
// @Param id path string true "Batch ID"
// @Success 204
// @Router /batches/{id} [delete]
func (h *BatchHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AddStudent godoc
// @Summary Add a student to a batch
// @Tags Batches
// @Accept json
// @Produce json
// @Param id path string true "Batch ID"
// @Param payload body models.StudentRequest true "Student payload"
// @Success 201 {object} response.Envelope
// @Router /batches/{id}/students [post]
func (h *BatchHandler) AddStudent(c *gin.Context) {
	var req models.StudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid student payload"))
		return
	}
	student, err := h.service.AddStudent(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}

// RemoveStudent godoc
// @Summary Remove a student from a batch
// @Tags Batches
// @Param id path string true "Batch ID"
// @Param studentId path string true "Student ID"
// @Success 204
// @Router /batches/{id}/students/{studentId} [delete]
func (h *BatchHandler) RemoveStudent(c *gin.Context) {
	if err := h.service.RemoveStudent(c.Request.Context(), c.Param("id"), c.Param("studentId"), claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ImportStudents godoc
// @Summary Bulk import a roster from CSV or XLSX
// @Tags Batches
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Batch ID"
// @Param file formData file true "Roster file"
// @Success 200 {object} response.Envelope
// @Router /batches/{id}/students/import [post]
func (h *BatchHandler) ImportStudents(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, bindError(err, "file is required"))
		return
	}
	if header.Size > maxRosterUpload {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "roster file exceeds 5MB"))
		return
	}
	file, err := header.Open()
	if err != nil {
		response.Error(c, bindError(err, "unable to read upload"))
		return
	}
	defer file.Close()

	result, err := h.service.ImportStudents(c.Request.Context(), c.Param("id"), header.Filename, file, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}
