package service

import (
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/hard4j/bvp-attendance-api/internal/models"
	appErrors "github.com/hard4j/bvp-attendance-api/pkg/errors"
	"github.com/hard4j/bvp-attendance-api/pkg/export"
)

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// ExportService renders attendance reports into downloadable files.
type ExportService struct {
	renderers map[export.Format]datasetRenderer
	logger    *zap.Logger
}

// NewExportService constructs an ExportService with the CSV, XLSX and PDF
// renderers.
func NewExportService(logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		renderers: map[export.Format]datasetRenderer{
			export.FormatCSV:  export.NewCSVExporter(),
			export.FormatXLSX: export.NewXLSXExporter("Attendance"),
			export.FormatPDF:  export.NewPDFExporter(),
		},
		logger: logger,
	}
}

const (
	colRoll       = "Roll No"
	colName       = "Name"
	colSubBatch   = "Sub-batch"
	colAttended   = "Attended"
	colTotal      = "Total"
	colPercentage = "Percentage"
)

// AttendanceReport renders an attendance report.
func (s *ExportService) AttendanceReport(report *models.AttendanceReport, rawFormat string) (*export.Document, error) {
	dataset := export.Dataset{
		Title:   fmt.Sprintf("Attendance %s to %s", report.From, report.To),
		Headers: []string{colRoll, colName, colSubBatch, colAttended, colTotal, colPercentage},
		Rows:    studentRows(report.Students),
	}
	return s.render(dataset, fmt.Sprintf("attendance_%s_%s", report.From, report.To), rawFormat)
}

// Defaulters renders a defaulter list.
func (s *ExportService) Defaulters(report *models.DefaulterReport, rawFormat string) (*export.Document, error) {
	dataset := export.Dataset{
		Title:   fmt.Sprintf("Defaulters below %s%% (%s to %s)", strconv.FormatFloat(report.Threshold, 'f', -1, 64), report.From, report.To),
		Headers: []string{colRoll, colName, colSubBatch, colAttended, colTotal, colPercentage},
		Rows:    studentRows(report.Defaulters),
	}
	return s.render(dataset, fmt.Sprintf("defaulters_%s_%s", report.From, report.To), rawFormat)
}

// Historical renders the day-by-day matrix, one column per lecture date
// holding "attended/held".
func (s *ExportService) Historical(matrix *models.HistoricalMatrix, rawFormat string) (*export.Document, error) {
	headers := []string{colRoll, colName}
	headers = append(headers, matrix.Dates...)
	headers = append(headers, colAttended, colTotal, colPercentage)

	rows := make([]map[string]string, 0, len(matrix.Students))
	for _, st := range matrix.Students {
		row := map[string]string{
			colRoll:       st.RollNo,
			colName:       st.Name,
			colAttended:   strconv.Itoa(st.Attended),
			colTotal:      strconv.Itoa(st.Total),
			colPercentage: formatPercentage(st.Percentage),
		}
		for _, day := range matrix.Dates {
			cell, ok := st.Days[day]
			if !ok {
				row[day] = "-"
				continue
			}
			row[day] = fmt.Sprintf("%d/%d", cell.Attended, cell.Held)
		}
		rows = append(rows, row)
	}

	dataset := export.Dataset{
		Title:   fmt.Sprintf("Historical attendance %s to %s", matrix.From, matrix.To),
		Headers: headers,
		Rows:    rows,
	}
	return s.render(dataset, fmt.Sprintf("historical_%s_%s", matrix.From, matrix.To), rawFormat)
}

func (s *ExportService) render(dataset export.Dataset, basename, rawFormat string) (*export.Document, error) {
	format, err := export.ParseFormat(rawFormat)
	if err != nil {
		return nil, validationError(err, "format must be csv, xlsx or pdf")
	}
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv, xlsx or pdf")
	}
	payload, err := renderer.Render(dataset)
	if err != nil {
		s.logger.Error("render export", zap.String("format", string(format)), zap.Error(err))
		return nil, appErrors.Internal(err, "failed to render export")
	}
	return &export.Document{
		Filename:    basename + "." + string(format),
		ContentType: format.ContentType(),
		Payload:     payload,
	}, nil
}

func studentRows(students []models.StudentAttendance) []map[string]string {
	rows := make([]map[string]string, 0, len(students))
	for _, st := range students {
		subBatch := ""
		if st.SubBatch != nil {
			subBatch = strconv.Itoa(*st.SubBatch)
		}
		rows = append(rows, map[string]string{
			colRoll:       st.RollNo,
			colName:       st.Name,
			colSubBatch:   subBatch,
			colAttended:   strconv.Itoa(st.Attended),
			colTotal:      strconv.Itoa(st.Total),
			colPercentage: formatPercentage(st.Percentage),
		})
	}
	return rows
}

func formatPercentage(p float64) string {
	return strconv.FormatFloat(p, 'f', 2, 64)
}
