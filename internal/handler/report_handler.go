package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/hard4j/bvp-attendance-api/internal/dto"
	"github.com/hard4j/bvp-attendance-api/internal/middleware"
	"github.com/hard4j/bvp-attendance-api/internal/models"
	"github.com/hard4j/bvp-attendance-api/pkg/export"
	"github.com/hard4j/bvp-attendance-api/pkg/response"
)

type reportService interface {
	Attendance(ctx context.Context, query dto.AttendanceReportQuery, claims *models.JWTClaims) (*models.AttendanceReport, bool, error)
	Defaulters(ctx context.Context, query dto.DefaulterQuery, claims *models.JWTClaims) (*models.DefaulterReport, bool, error)
	Historical(ctx context.Context, query dto.AttendanceReportQuery, claims *models.JWTClaims) (*models.HistoricalMatrix, bool, error)
}

type reportExporter interface {
	AttendanceReport(report *models.AttendanceReport, format string) (*export.Document, error)
	Defaulters(report *models.DefaulterReport, format string) (*export.Document, error)
	Historical(matrix *models.HistoricalMatrix, format string) (*export.Document, error)
}

// ReportHandler exposes attendance reporting endpoints. Passing a format
// query parameter streams the report as a file instead of JSON.
type ReportHandler struct {
	reports  reportService
	exporter reportExporter
}

// NewReportHandler constructs handler.
func NewReportHandler(reports reportService, exporter reportExporter) *ReportHandler {
	return &ReportHandler{reports: reports, exporter: exporter}
}

// Attendance godoc
// @Summary Attendance percentage per student
// @Tags Reports
// @Produce json
// @Param assignment_id query string false "Assignment ID"
// @Param batch_id query string false "Batch ID"
// @Param subject_id query string false "Subject ID"
// @Param lecture_type query string false "TH, PR or TU"
// @Param sub_batch query int false "Sub-batch"
// @Param from query string false "YYYY-MM-DD"
// @Param to query string false "YYYY-MM-DD"
// @Param format query string false "csv, xlsx or pdf"
// @Success 200 {object} response.Envelope
// @Router /reports/attendance [get]
func (h *ReportHandler) Attendance(c *gin.Context) {
	query, err := reportQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	report, cached, err := h.reports.Attendance(c.Request.Context(), query, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	if format := c.Query("format"); format != "" {
		h.attach(c, func() (*export.Document, error) { return h.exporter.AttendanceReport(report, format) })
		return
	}
	middleware.SetCacheHit(c, cached)
	response.JSON(c, http.StatusOK, report, nil, middleware.ExtractMeta(c))
}

// Defaulters godoc
// @Summary Students below the attendance threshold
// @Tags Reports
// @Produce json
// @Param batch_id query string true "Batch ID"
// @Param threshold query number false "Percentage threshold"
// @Param from query string false "YYYY-MM-DD"
// @Param to query string false "YYYY-MM-DD"
// @Param format query string false "csv, xlsx or pdf"
// @Success 200 {object} response.Envelope
// @Router /reports/defaulters [get]
func (h *ReportHandler) Defaulters(c *gin.Context) {
	threshold, err := optionalFloatQuery(c, "threshold")
	if err != nil {
		response.Error(c, err)
		return
	}
	query := dto.DefaulterQuery{
		BatchID:   strings.TrimSpace(c.Query("batch_id")),
		Threshold: threshold,
		From:      c.Query("from"),
		To:        c.Query("to"),
	}
	report, cached, err := h.reports.Defaulters(c.Request.Context(), query, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	if format := c.Query("format"); format != "" {
		h.attach(c, func() (*export.Document, error) { return h.exporter.Defaulters(report, format) })
		return
	}
	middleware.SetCacheHit(c, cached)
	response.JSON(c, http.StatusOK, report, nil, middleware.ExtractMeta(c))
}

// Historical godoc
// @Summary Day by day attendance matrix
// @Tags Reports
// @Produce json
// @Param assignment_id query string false "Assignment ID"
// @Param batch_id query string false "Batch ID"
// @Param subject_id query string false "Subject ID"
// @Param lecture_type query string false "TH, PR or TU"
// @Param sub_batch query int false "Sub-batch"
// @Param from query string false "YYYY-MM-DD"
// @Param to query string false "YYYY-MM-DD"
// @Param format query string false "csv, xlsx or pdf"
// @Success 200 {object} response.Envelope
// @Router /reports/historical [get]
func (h *ReportHandler) Historical(c *gin.Context) {
	query, err := reportQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	matrix, cached, err := h.reports.Historical(c.Request.Context(), query, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	if format := c.Query("format"); format != "" {
		h.attach(c, func() (*export.Document, error) { return h.exporter.Historical(matrix, format) })
		return
	}
	middleware.SetCacheHit(c, cached)
	response.JSON(c, http.StatusOK, matrix, nil, middleware.ExtractMeta(c))
}

func (h *ReportHandler) attach(c *gin.Context, render func() (*export.Document, error)) {
	doc, err := render()
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, doc.Filename, doc.ContentType, doc.Payload)
}

func reportQuery(c *gin.Context) (dto.AttendanceReportQuery, error) {
	subBatch, err := optionalIntQuery(c, "sub_batch")
	if err != nil {
		return dto.AttendanceReportQuery{}, err
	}
	return dto.AttendanceReportQuery{
		AssignmentID: strings.TrimSpace(c.Query("assignment_id")),
		BatchID:      strings.TrimSpace(c.Query("batch_id")),
		SubjectID:    strings.TrimSpace(c.Query("subject_id")),
		LectureType:  strings.ToUpper(strings.TrimSpace(c.Query("lecture_type"))),
		SubBatch:     subBatch,
		From:         c.Query("from"),
		To:           c.Query("to"),
	}, nil
}
