package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/hard4j/bvp-attendance-api/internal/models"
	"github.com/hard4j/bvp-attendance-api/internal/service"
	"github.com/hard4j/bvp-attendance-api/pkg/response"
)

// StaffHandler handles staff accounts and HOD appointments.
type StaffHandler struct {
	staff *service.StaffService
	hods  *service.HODService
}

// NewStaffHandler constructs a staff handler.
func NewStaffHandler(staff *service.StaffService, hods *service.HODService) *StaffHandler {
	return &StaffHandler{staff: staff, hods: hods}
}

// List godoc
// @Summary List staff
// @Tags Staff
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /staff [get]
func (h *StaffHandler) List(c *gin.Context) {
	items, err := h.staff.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, items)
}

// Get godoc
// @Summary Get staff member
// @Tags Staff
// @Produce json
// @Param id path string true "Staff ID"
// @Success 200 {object} response.Envelope
// @Router /staff/{id} [get]
func (h *StaffHandler) Get(c *gin.Context) {
	member, err := h.staff.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, member)
}

// Create godoc
// @Summary Create staff member
// @Tags Staff
// @Accept json
// @Produce json
// @Param payload body models.StaffRequest true "Staff payload"
// @Success 201 {object} response.Envelope
// @Router /staff [post]
func (h *StaffHandler) Create(c *gin.Context) {
	var req models.StaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid staff payload"))
		return
	}
	member, err := h.staff.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, member)
}

// Update godoc
// @Summary Update staff member
// @Tags Staff
// @Accept json
// @Produce json
// @Param id path string true "Staff ID"
// @Param payload body models.StaffRequest true "Staff payload"
// @Success 200 {object} response.Envelope
// @Router /staff/{id} [put]
func (h *StaffHandler) Update(c *gin.Context) {
	var req models.StaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid staff payload"))
		return
	}
	member, err := h.staff.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, member)
}

// Delete godoc
// @Summary Delete staff member
// @Tags Staff
// @Param id path string true "Staff ID"
// @Success 204
// @Router /staff/{id} [delete]
func (h *StaffHandler) Delete(c *gin.Context) {
	if err := h.staff.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListHODs godoc
// @Summary List heads of department
// @Tags HODs
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /hods [get]
func (h *StaffHandler) ListHODs(c *gin.Context) {
	items, err := h.hods.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, items)
}

// AppointHOD godoc
// @Summary Appoint a head of department
// @Tags HODs
// @Accept json
// @Produce json
// @Param payload body models.HODRequest true "Appointment"
// @Success 201 {object} response.Envelope
// @Router /hods [post]
func (h *StaffHandler) AppointHOD(c *gin.Context) {
	var req models.HODRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid hod payload"))
		return
	}
	hod, err := h.hods.Appoint(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, hod)
}

// RemoveHOD godoc
// @Summary Remove a head of department
// @Tags HODs
// @Param id path string true "HOD ID"
// @Success 204
// @Router /hods/{id} [delete]
func (h *StaffHandler) RemoveHOD(c *gin.Context) {
	if err := h.hods.Remove(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
