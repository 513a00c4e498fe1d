package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/hard4j/bvp-attendance-api/internal/models"
	appErrors "github.com/hard4j/bvp-attendance-api/pkg/errors"
)

type staffRepository interface {
	List(ctx context.Context) ([]models.Staff, error)
	FindByID(ctx context.Context, id string) (*models.Staff, error)
	Create(ctx context.Context, staff *models.Staff) error
	Update(ctx context.Context, staff *models.Staff) error
	Delete(ctx context.Context, id string) error
}

// StaffService manages staff accounts.
type StaffService struct {
	repo            staffRepository
	validator       *validator.Validate
	logger          *zap.Logger
	defaultPassword string
}

// NewStaffService creates a staff service. defaultPassword is used when a
// staff member is created without one.
func NewStaffService(repo staffRepository, validate *validator.Validate, logger *zap.Logger, defaultPassword string) *StaffService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultPassword == "" {
		defaultPassword = "changeme"
	}
	return &StaffService{repo: repo, validator: validate, logger: logger, defaultPassword: defaultPassword}
}

// List returns all staff members.
func (s *StaffService) List(ctx context.Context) ([]models.Staff, error) {
	staff, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list staff")
	}
	return staff, nil
}

// Get returns one staff member.
func (s *StaffService) Get(ctx context.Context, id string) (*models.Staff, error) {
	staff, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "staff not found", "failed to load staff")
	}
	return staff, nil
}

// Create adds a staff account.
func (s *StaffService) Create(ctx context.Context, req models.StaffRequest) (*models.Staff, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid staff payload")
	}
	password := req.Password
	if password == "" {
		password = s.defaultPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to hash password")
	}

	staff := &models.Staff{
		Username:     strings.ToLower(strings.TrimSpace(req.Username)),
		FullName:     strings.TrimSpace(req.FullName),
		PasswordHash: string(hash),
	}
	if err := s.repo.Create(ctx, staff); err != nil {
		return nil, storeError(err, "staff not found", "failed to create staff")
	}
	return staff, nil
}

// Update changes a staff profile. An empty password keeps the current one.
func (s *StaffService) Update(ctx context.Context, id string, req models.StaffRequest) (*models.Staff, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid staff payload")
	}
	staff, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "staff not found", "failed to load staff")
	}

	staff.Username = strings.ToLower(strings.TrimSpace(req.Username))
	staff.FullName = strings.TrimSpace(req.FullName)
	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to hash password")
		}
		staff.PasswordHash = string(hash)
	}
	if err := s.repo.Update(ctx, staff); err != nil {
		return nil, storeError(err, "staff not found", "failed to update staff")
	}
	return staff, nil
}

// Delete removes a staff member who has no assignments.
func (s *StaffService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return storeError(err, "staff not found", "failed to delete staff")
	}
	return nil
}
