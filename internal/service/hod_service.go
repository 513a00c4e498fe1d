package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/hard4j/bvp-attendance-api/internal/models"
	appErrors "github.com/hard4j/bvp-attendance-api/pkg/errors"
)

type hodRepository interface {
	List(ctx context.Context) ([]models.HODDetail, error)
	Create(ctx context.Context, hod *models.HOD) error
	Delete(ctx context.Context, id string) error
}

type staffFinder interface {
	FindByID(ctx context.Context, id string) (*models.Staff, error)
}

type departmentFinder interface {
	FindByCode(ctx context.Context, code string) (*models.Department, error)
}

// HODService appoints and removes heads of department.
type HODService struct {
	repo        hodRepository
	staff       staffFinder
	departments departmentFinder
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewHODService creates a HOD service.
func NewHODService(repo hodRepository, staff staffFinder, departments departmentFinder, validate *validator.Validate, logger *zap.Logger) *HODService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HODService{repo: repo, staff: staff, departments: departments, validator: validate, logger: logger}
}

// List returns current appointments.
func (s *HODService) List(ctx context.Context) ([]models.HODDetail, error) {
	hods, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list hods")
	}
	return hods, nil
}

// Appoint makes a staff member head of a department. A department has at
// most one head and a staff member heads at most one department.
func (s *HODService) Appoint(ctx context.Context, req models.HODRequest) (*models.HOD, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid hod payload")
	}
	deptCode := strings.ToUpper(strings.TrimSpace(req.DeptCode))
	if _, err := s.staff.FindByID(ctx, req.StaffID); err != nil {
		return nil, storeError(err, "staff not found", "failed to load staff")
	}
	if _, err := s.departments.FindByCode(ctx, deptCode); err != nil {
		return nil, storeError(err, "department not found", "failed to load department")
	}

	hod := &models.HOD{StaffID: req.StaffID, DeptCode: deptCode}
	if err := s.repo.Create(ctx, hod); err != nil {
		return nil, storeError(err, "hod not found", "failed to appoint hod")
	}
	s.logger.Info("hod appointed", zap.String("staff_id", hod.StaffID), zap.String("dept_code", hod.DeptCode))
	return hod, nil
}

// Remove ends an appointment.
func (s *HODService) Remove(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return storeError(err, "hod not found", "failed to remove hod")
	}
	return nil
}
