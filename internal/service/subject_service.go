package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/hard4j/bvp-attendance-api/internal/models"
	appErrors "github.com/hard4j/bvp-attendance-api/pkg/errors"
)

type subjectRepository interface {
	List(ctx context.Context, filter models.SubjectFilter) ([]models.Subject, error)
	ListByBatch(ctx context.Context, batchID string) ([]models.Subject, error)
	FindByID(ctx context.Context, id string) (*models.Subject, error)
	Create(ctx context.Context, subject *models.Subject) error
	Update(ctx context.Context, subject *models.Subject) error
	Delete(ctx context.Context, id string) error
}

// SubjectService handles subject workflows. HODs only manage subjects of
// their own department.
type SubjectService struct {
	repo      subjectRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSubjectService creates a new subject service.
func NewSubjectService(repo subjectRepository, validate *validator.Validate, logger *zap.Logger) *SubjectService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubjectService{repo: repo, validator: validate, logger: logger}
}

// List returns subjects. HOD listings are pinned to their department.
func (s *SubjectService) List(ctx context.Context, filter models.SubjectFilter, claims *models.JWTClaims) ([]models.Subject, error) {
	if claims.IsHOD() {
		filter.DeptCode = claims.DeptCode
	}
	subjects, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list subjects")
	}
	return subjects, nil
}

// ListByBatch returns the subjects taught to a batch.
func (s *SubjectService) ListByBatch(ctx context.Context, batchID string) ([]models.Subject, error) {
	subjects, err := s.repo.ListByBatch(ctx, batchID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list batch subjects")
	}
	return subjects, nil
}

// Get returns subject by identifier.
func (s *SubjectService) Get(ctx context.Context, id string) (*models.Subject, error) {
	subject, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "subject not found", "failed to load subject")
	}
	return subject, nil
}

// Create adds a new subject.
func (s *SubjectService) Create(ctx context.Context, req models.SubjectRequest, claims *models.JWTClaims) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid subject payload")
	}
	req = normaliseSubject(req)
	if !canManageDept(claims, req.DeptCode) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "subject belongs to another department")
	}

	subject := &models.Subject{
		CourseCode:     req.CourseCode,
		DeptCode:       req.DeptCode,
		SemesterNumber: req.SemesterNumber,
		SubjectCode:    req.SubjectCode,
		SubjectName:    req.SubjectName,
	}
	if err := s.repo.Create(ctx, subject); err != nil {
		return nil, storeError(err, "subject not found", "failed to create subject")
	}
	return subject, nil
}

// Update modifies an existing subject.
func (s *SubjectService) Update(ctx context.Context, id string, req models.SubjectRequest, claims *models.JWTClaims) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid subject payload")
	}
	req = normaliseSubject(req)

	subject, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "subject not found", "failed to load subject")
	}
	if !canManageDept(claims, subject.DeptCode) || !canManageDept(claims, req.DeptCode) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "subject belongs to another department")
	}

	subject.CourseCode = req.CourseCode
	subject.DeptCode = req.DeptCode
	subject.SemesterNumber = req.SemesterNumber
	subject.SubjectCode = req.SubjectCode
	subject.SubjectName = req.SubjectName
	if err := s.repo.Update(ctx, subject); err != nil {
		return nil, storeError(err, "subject not found", "failed to update subject")
	}
	return subject, nil
}

// Delete removes a subject that no assignment references.
func (s *SubjectService) Delete(ctx context.Context, id string, claims *models.JWTClaims) error {
	subject, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return storeError(err, "subject not found", "failed to load subject")
	}
	if !canManageDept(claims, subject.DeptCode) {
		return appErrors.Clone(appErrors.ErrForbidden, "subject belongs to another department")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return storeError(err, "subject not found", "failed to delete subject")
	}
	return nil
}

func normaliseSubject(req models.SubjectRequest) models.SubjectRequest {
	req.CourseCode = strings.ToUpper(strings.TrimSpace(req.CourseCode))
	req.DeptCode = strings.ToUpper(strings.TrimSpace(req.DeptCode))
	req.SubjectCode = strings.ToUpper(strings.TrimSpace(req.SubjectCode))
	req.SubjectName = strings.TrimSpace(req.SubjectName)
	return req
}

// canManageDept allows administrators everywhere and HODs in their own
// department.
func canManageDept(claims *models.JWTClaims, deptCode string) bool {
	switch {
	case claims.IsAdmin():
		return true
	case claims.IsHOD():
		return claims.DeptCode == deptCode
	default:
		return false
	}
}
