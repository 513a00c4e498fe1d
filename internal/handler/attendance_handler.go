package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/hard4j/bvp-attendance-api/internal/dto"
	"github.com/hard4j/bvp-attendance-api/internal/models"
	"github.com/hard4j/bvp-attendance-api/pkg/response"
)

type attendanceService interface {
	MarkLecture(ctx context.Context, req dto.MarkLectureRequest, claims *models.JWTClaims) (*dto.MarkLectureResponse, error)
	ValidateAbsentees(ctx context.Context, req dto.ValidateAbsenteesRequest, claims *models.JWTClaims) (*dto.ValidateAbsenteesResponse, error)
	Roster(ctx context.Context, assignmentID string, claims *models.JWTClaims) (*dto.RosterResponse, error)
	Session(ctx context.Context, query dto.SessionQuery, claims *models.JWTClaims) (*dto.SessionResponse, error)
	UpdateSession(ctx context.Context, req dto.SessionUpdateRequest, claims *models.JWTClaims) (*dto.SessionUpdateResponse, error)
}

// AttendanceHandler exposes lecture marking endpoints.
type AttendanceHandler struct {
	service attendanceService
}

// NewAttendanceHandler constructs the handler.
func NewAttendanceHandler(svc attendanceService) *AttendanceHandler {
	return &AttendanceHandler{service: svc}
}

// Mark godoc
// @Summary Record one lecture for an assignment
// @Description Every roster student not listed as absent is marked present.
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body dto.MarkLectureRequest true "Lecture payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /attendance [post]
func (h *AttendanceHandler) Mark(c *gin.Context) {
	var req dto.MarkLectureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid attendance payload"))
		return
	}
	res, err := h.service.MarkLecture(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, res)
}

// Validate godoc
// @Summary Check absent rolls against the roster
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body dto.ValidateAbsenteesRequest true "Rolls"
// @Success 200 {object} response.Envelope
// @Router /attendance/validate [post]
func (h *AttendanceHandler) Validate(c *gin.Context) {
	var req dto.ValidateAbsenteesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid payload"))
		return
	}
	res, err := h.service.ValidateAbsentees(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res)
}

// Roster godoc
// @Summary Resolve the roster of an assignment
// @Tags Attendance
// @Produce json
// @Param id path string true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Router /assignments/{id}/roster [get]
func (h *AttendanceHandler) Roster(c *gin.Context) {
	res, err := h.service.Roster(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res)
}

// Session godoc
// @Summary View the ledger of one day
// @Tags Attendance
// @Produce json
// @Param batch_id query string true "Batch ID"
// @Param subject_id query string true "Subject ID"
// @Param lecture_type query string true "TH, PR or TU"
// @Param date query string false "YYYY-MM-DD, defaults to today"
// @Success 200 {object} response.Envelope
// @Router /attendance/session [get]
func (h *AttendanceHandler) Session(c *gin.Context) {
	query := dto.SessionQuery{
		BatchID:     strings.TrimSpace(c.Query("batch_id")),
		SubjectID:   strings.TrimSpace(c.Query("subject_id")),
		LectureType: models.LectureType(strings.ToUpper(strings.TrimSpace(c.Query("lecture_type")))),
		Date:        strings.TrimSpace(c.Query("date")),
	}
	res, err := h.service.Session(c.Request.Context(), query, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res)
}

// UpdateSession godoc
// @Summary Correct the ledger of one day
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body dto.SessionUpdateRequest true "Corrections"
// @Success 200 {object} response.Envelope
// @Router /attendance/session [post]
func (h *AttendanceHandler) UpdateSession(c *gin.Context) {
	var req dto.SessionUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid session payload"))
		return
	}
	res, err := h.service.UpdateSession(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}
