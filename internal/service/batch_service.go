package service

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/hard4j/bvp-attendance-api/internal/models"
	appErrors "github.com/hard4j/bvp-attendance-api/pkg/errors"
	"github.com/hard4j/bvp-attendance-api/pkg/export"
)

type batchRepository interface {
	List(ctx context.Context, filter models.BatchFilter) ([]models.BatchSummary, error)
	FindByID(ctx context.Context, id string) (*models.Batch, error)
	Create(ctx context.Context, batch *models.Batch) error
	Delete(ctx context.Context, id string) error
	ListStudents(ctx context.Context, batchID string) ([]models.Student, error)
	RemoveStudent(ctx context.Context, batchID, studentID string) error
}

type studentImporter interface {
	ImportIntoBatch(ctx context.Context, batchID string, students []models.Student) (created, updated int, err error)
}

// importColumns is the expected column order of a roster upload when the
// file carries no header row.
var importColumns = []string{"roll_no", "enrollment_no", "name", "batch_number"}

// BatchService manages batches and their rosters.
type BatchService struct {
	repo      batchRepository
	students  studentImporter
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewBatchService creates a batch service.
func NewBatchService(repo batchRepository, students studentImporter, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *BatchService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchService{repo: repo, students: students, cache: cache, validator: validate, logger: logger}
}

// List returns batches with their student counts.
func (s *BatchService) List(ctx context.Context, filter models.BatchFilter, claims *models.JWTClaims) ([]models.BatchSummary, error) {
	if claims.IsHOD() {
		filter.DeptCode = claims.DeptCode
	}
	batches, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list batches")
	}
	return batches, nil
}

// Get returns a batch with its roster.
func (s *BatchService) Get(ctx context.Context, id string) (*models.BatchDetail, error) {
	batch, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "batch not found", "failed to load batch")
	}
	students, err := s.repo.ListStudents(ctx, id)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load batch students")
	}
	return &models.BatchDetail{Batch: *batch, Students: students}, nil
}

// Create adds a batch.
func (s *BatchService) Create(ctx context.Context, req models.BatchRequest, claims *models.JWTClaims) (*models.Batch, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid batch payload")
	}
	batch := &models.Batch{
		DeptCode:     strings.ToUpper(strings.TrimSpace(req.DeptCode)),
		ClassName:    strings.TrimSpace(req.ClassName),
		AcademicYear: strings.TrimSpace(req.AcademicYear),
		Semester:     req.Semester,
	}
	if !canManageDept(claims, batch.DeptCode) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "batch belongs to another department")
	}
	if err := s.repo.Create(ctx, batch); err != nil {
		return nil, storeError(err, "batch not found", "failed to create batch")
	}
	return batch, nil
}

// Delete removes a batch.
func (s *BatchService) Delete(ctx context.Context, id string, claims *models.JWTClaims) error {
	if _, err := s.managedBatch(ctx, id, claims); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return storeError(err, "batch not found", "failed to delete batch")
	}
	s.cache.Invalidate(ctx, reportCachePattern(id))
	return nil
}

// AddStudent links a student to the batch, creating the student when the
// enrollment number is unknown and refreshing their details otherwise.
func (s *BatchService) AddStudent(ctx context.Context, batchID string, req models.StudentRequest, claims *models.JWTClaims) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid student payload")
	}
	if _, err := s.managedBatch(ctx, batchID, claims); err != nil {
		return nil, err
	}
	students := []models.Student{{
		RollNo:       strings.ToUpper(strings.TrimSpace(req.RollNo)),
		EnrollmentNo: strings.TrimSpace(req.EnrollmentNo),
		Name:         strings.TrimSpace(req.Name),
		SubBatch:     req.SubBatch,
	}}
	if _, _, err := s.students.ImportIntoBatch(ctx, batchID, students); err != nil {
		return nil, storeError(err, "batch not found", "failed to add student")
	}
	s.cache.Invalidate(ctx, reportCachePattern(batchID))
	return &students[0], nil
}

// RemoveStudent unlinks a student from the batch.
func (s *BatchService) RemoveStudent(ctx context.Context, batchID, studentID string, claims *models.JWTClaims) error {
	if _, err := s.managedBatch(ctx, batchID, claims); err != nil {
		return err
	}
	if err := s.repo.RemoveStudent(ctx, batchID, studentID); err != nil {
		return storeError(err, "student is not in the batch", "failed to remove student")
	}
	s.cache.Invalidate(ctx, reportCachePattern(batchID))
	return nil
}

// ImportStudents loads a CSV or XLSX roster into the batch. Rows that cannot
// be used are reported back and the rest are imported in one transaction.
func (s *BatchService) ImportStudents(ctx context.Context, batchID, filename string, r io.Reader, claims *models.JWTClaims) (*models.StudentImportResult, error) {
	if _, err := s.managedBatch(ctx, batchID, claims); err != nil {
		return nil, err
	}
	rows, err := export.ReadTable(r, export.FormatFromFilename(filename))
	if err != nil {
		return nil, validationError(err, "could not read the uploaded roster")
	}

	students, skipped := ParseRosterRows(rows)
	result := &models.StudentImportResult{Skipped: skipped}
	if len(students) == 0 {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, "uploaded roster has no usable rows", skipped)
	}

	created, updated, err := s.students.ImportIntoBatch(ctx, batchID, students)
	if err != nil {
		return nil, storeError(err, "batch not found", "failed to import students")
	}
	result.Created = created
	result.Updated = updated
	result.Linked = len(students)

	s.cache.Invalidate(ctx, reportCachePattern(batchID))
	s.logger.Info("students imported",
		zap.String("batch_id", batchID),
		zap.Int("created", created),
		zap.Int("updated", updated),
		zap.Int("skipped", len(skipped)),
	)
	return result, nil
}

func (s *BatchService) managedBatch(ctx context.Context, id string, claims *models.JWTClaims) (*models.Batch, error) {
	batch, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "batch not found", "failed to load batch")
	}
	if !canManageDept(claims, batch.DeptCode) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "batch belongs to another department")
	}
	return batch, nil
}

// ParseRosterRows converts uploaded rows into students. A first row naming
// the columns is honoured; otherwise columns are read as roll_no,
// enrollment_no, name and an optional batch_number. Row numbers in the
// returned issues are 1-based and count the header.
func ParseRosterRows(rows [][]string) ([]models.Student, []models.ImportRowIssue) {
	if len(rows) == 0 {
		return nil, nil
	}
	index := make(map[string]int, len(importColumns))
	for i, col := range importColumns {
		index[col] = i
	}
	start := 0
	if header := headerIndex(rows[0]); header != nil {
		index = header
		start = 1
	}

	cell := func(row []string, col string) string {
		i, ok := index[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	students := make([]models.Student, 0, len(rows)-start)
	issues := make([]models.ImportRowIssue, 0)
	seen := make(map[string]int)
	seenRoll := make(map[string]int)
	for i := start; i < len(rows); i++ {
		rowNo := i + 1
		row := rows[i]
		st := models.Student{
			RollNo:       strings.ToUpper(cell(row, "roll_no")),
			EnrollmentNo: cell(row, "enrollment_no"),
			Name:         cell(row, "name"),
		}
		if st.RollNo == "" || st.EnrollmentNo == "" || st.Name == "" {
			issues = append(issues, models.ImportRowIssue{Row: rowNo, Reason: "roll_no, enrollment_no and name are required"})
			continue
		}
		if raw := cell(row, "batch_number"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				issues = append(issues, models.ImportRowIssue{Row: rowNo, Reason: fmt.Sprintf("invalid batch_number %q", raw)})
				continue
			}
			st.SubBatch = &n
		}
		if first, dup := seen[st.EnrollmentNo]; dup {
			issues = append(issues, models.ImportRowIssue{Row: rowNo, Reason: fmt.Sprintf("duplicate enrollment_no, first seen on row %d", first)})
			continue
		}
		if first, dup := seenRoll[rollKey(st.RollNo)]; dup {
			issues = append(issues, models.ImportRowIssue{Row: rowNo, Reason: fmt.Sprintf("duplicate roll_no, first seen on row %d", first)})
			continue
		}
		seen[st.EnrollmentNo] = rowNo
		seenRoll[rollKey(st.RollNo)] = rowNo
		students = append(students, st)
	}
	return students, issues
}

func headerIndex(row []string) map[string]int {
	index := make(map[string]int)
	for i, raw := range row {
		name := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(raw), " ", "_"))
		for _, col := range importColumns {
			if name == col {
				index[col] = i
			}
		}
	}
	if _, ok := index["roll_no"]; !ok {
		return nil
	}
	return index
}
