package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/hard4j/bvp-attendance-api/internal/models"
	appErrors "github.com/hard4j/bvp-attendance-api/pkg/errors"
)

type departmentRepository interface {
	List(ctx context.Context) ([]models.Department, error)
	FindByCode(ctx context.Context, code string) (*models.Department, error)
	Create(ctx context.Context, department *models.Department) error
	Update(ctx context.Context, department *models.Department) error
	Delete(ctx context.Context, code string) error
}

// DepartmentService manages departments.
type DepartmentService struct {
	repo      departmentRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewDepartmentService creates a department service.
func NewDepartmentService(repo departmentRepository, validate *validator.Validate, logger *zap.Logger) *DepartmentService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DepartmentService{repo: repo, validator: validate, logger: logger}
}

// List returns all departments ordered by code.
func (s *DepartmentService) List(ctx context.Context) ([]models.Department, error) {
	departments, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list departments")
	}
	return departments, nil
}

// Create adds a department.
func (s *DepartmentService) Create(ctx context.Context, req models.DepartmentRequest) (*models.Department, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid department payload")
	}
	department := &models.Department{
		DeptCode: strings.ToUpper(strings.TrimSpace(req.DeptCode)),
		DeptName: strings.TrimSpace(req.DeptName),
	}
	if err := s.repo.Create(ctx, department); err != nil {
		return nil, storeError(err, "department not found", "failed to create department")
	}
	return department, nil
}

// Update renames a department. The code is immutable.
func (s *DepartmentService) Update(ctx context.Context, code string, req models.DepartmentRequest) (*models.Department, error) {
	req.DeptCode = code
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid department payload")
	}
	department, err := s.repo.FindByCode(ctx, strings.ToUpper(code))
	if err != nil {
		return nil, storeError(err, "department not found", "failed to load department")
	}
	department.DeptName = strings.TrimSpace(req.DeptName)
	if err := s.repo.Update(ctx, department); err != nil {
		return nil, storeError(err, "department not found", "failed to update department")
	}
	return department, nil
}

// Delete removes a department that nothing references.
func (s *DepartmentService) Delete(ctx context.Context, code string) error {
	if err := s.repo.Delete(ctx, strings.ToUpper(code)); err != nil {
		return storeError(err, "department not found", "failed to delete department")
	}
	return nil
}
