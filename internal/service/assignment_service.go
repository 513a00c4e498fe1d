package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/hard4j/bvp-attendance-api/internal/dto"
	"github.com/hard4j/bvp-attendance-api/internal/models"
	appErrors "github.com/hard4j/bvp-attendance-api/pkg/errors"
)

type assignmentRepository interface {
	FindByID(ctx context.Context, id string) (*models.AssignmentDetail, error)
	List(ctx context.Context, filter models.AssignmentFilter) ([]models.AssignmentDetail, error)
	Exists(ctx context.Context, subjectID, batchID string, lectureType models.LectureType, subBatch *int) (bool, error)
	Create(ctx context.Context, assignment *models.Assignment) error
	DeleteCascade(ctx context.Context, id string) error
}

type batchFinder interface {
	FindByID(ctx context.Context, id string) (*models.Batch, error)
}

type subjectFinder interface {
	FindByID(ctx context.Context, id string) (*models.Subject, error)
}

type staffLister interface {
	List(ctx context.Context) ([]models.Staff, error)
	FindByID(ctx context.Context, id string) (*models.Staff, error)
}

// AssignmentService binds staff to the subjects and batches they teach.
type AssignmentService struct {
	repo      assignmentRepository
	batches   batchFinder
	subjects  subjectFinder
	staff     staffLister
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAssignmentService creates an assignment service.
func NewAssignmentService(repo assignmentRepository, batches batchFinder, subjects subjectFinder, staff staffLister, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *AssignmentService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{
		repo:      repo,
		batches:   batches,
		subjects:  subjects,
		staff:     staff,
		cache:     cache,
		validator: validate,
		logger:    logger,
	}
}

// List returns assignments. HODs see their department, staff their own.
func (s *AssignmentService) List(ctx context.Context, filter models.AssignmentFilter, claims *models.JWTClaims) ([]models.AssignmentDetail, error) {
	switch {
	case claims.IsAdmin():
	case claims.IsHOD():
		filter.DeptCode = claims.DeptCode
	default:
		filter.StaffID = claims.StaffID
	}
	assignments, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list assignments")
	}
	return assignments, nil
}

// Get returns one assignment the caller may see.
func (s *AssignmentService) Get(ctx context.Context, id string, claims *models.JWTClaims) (*models.AssignmentDetail, error) {
	assignment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "assignment not found", "failed to load assignment")
	}
	if !canAccessAssignment(claims, assignment) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "assignment belongs to another staff member")
	}
	return assignment, nil
}

// Create assigns a staff member. Practical and tutorial assignments name a
// sub-batch, theory assignments must not. Each (subject, batch, lecture
// type, sub-batch) is taught by one staff member.
func (s *AssignmentService) Create(ctx context.Context, req models.AssignmentRequest, claims *models.JWTClaims) (*models.AssignmentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid assignment payload")
	}
	lectureType := models.LectureType(strings.ToUpper(req.LectureType))
	if lectureType.RequiresSubBatch() && req.SubBatch == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "sub_batch is required for practical and tutorial assignments")
	}
	if !lectureType.RequiresSubBatch() && req.SubBatch != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "sub_batch does not apply to theory assignments")
	}

	batch, err := s.batches.FindByID(ctx, req.BatchID)
	if err != nil {
		return nil, storeError(err, "batch not found", "failed to load batch")
	}
	if !canManageDept(claims, batch.DeptCode) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "batch belongs to another department")
	}
	if _, err := s.subjects.FindByID(ctx, req.SubjectID); err != nil {
		return nil, storeError(err, "subject not found", "failed to load subject")
	}
	if _, err := s.staff.FindByID(ctx, req.StaffID); err != nil {
		return nil, storeError(err, "staff not found", "failed to load staff")
	}

	exists, err := s.repo.Exists(ctx, req.SubjectID, req.BatchID, lectureType, req.SubBatch)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to check assignment")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "assignment already exists for this subject, batch and lecture type")
	}

	assignment := &models.Assignment{
		StaffID:     req.StaffID,
		SubjectID:   req.SubjectID,
		BatchID:     req.BatchID,
		LectureType: lectureType,
		SubBatch:    req.SubBatch,
	}
	if err := s.repo.Create(ctx, assignment); err != nil {
		return nil, storeError(err, "assignment not found", "failed to create assignment")
	}
	detail, err := s.repo.FindByID(ctx, assignment.ID)
	if err != nil {
		return nil, storeError(err, "assignment not found", "failed to load assignment")
	}
	return detail, nil
}

// Delete removes an assignment with its lecture counts and ledger rows.
func (s *AssignmentService) Delete(ctx context.Context, id string, claims *models.JWTClaims) error {
	assignment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return storeError(err, "assignment not found", "failed to load assignment")
	}
	if !canManageDept(claims, assignment.DeptCode) {
		return appErrors.Clone(appErrors.ErrForbidden, "assignment belongs to another department")
	}
	if err := s.repo.DeleteCascade(ctx, id); err != nil {
		return storeError(err, "assignment not found", "failed to delete assignment")
	}
	s.cache.Invalidate(ctx, reportCachePattern(assignment.BatchID))
	s.logger.Info("assignment deleted", zap.String("assignment_id", id))
	return nil
}

// ForStaff groups the caller's assignments by subject and batch.
func (s *AssignmentService) ForStaff(ctx context.Context, claims *models.JWTClaims) ([]dto.StaffSubjectAssignments, error) {
	if claims == nil || claims.StaffID == "" {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only staff accounts have assignments")
	}
	assignments, err := s.repo.List(ctx, models.AssignmentFilter{StaffID: claims.StaffID})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list assignments")
	}
	return GroupAssignments(assignments), nil
}

// Overview lists every staff member with their assignments.
func (s *AssignmentService) Overview(ctx context.Context) ([]dto.StaffAssignmentsOverview, error) {
	staff, err := s.staff.List(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list staff")
	}
	assignments, err := s.repo.List(ctx, models.AssignmentFilter{})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list assignments")
	}

	byStaff := make(map[string][]models.AssignmentDetail)
	for _, a := range assignments {
		byStaff[a.StaffID] = append(byStaff[a.StaffID], a)
	}
	overview := make([]dto.StaffAssignmentsOverview, 0, len(staff))
	for _, member := range staff {
		list := byStaff[member.ID]
		if list == nil {
			list = []models.AssignmentDetail{}
		}
		overview = append(overview, dto.StaffAssignmentsOverview{
			StaffID:     member.ID,
			Username:    member.Username,
			FullName:    member.FullName,
			Assignments: list,
		})
	}
	return overview, nil
}

// GroupAssignments folds assignments into one entry per subject and batch,
// keeping first-seen order.
func GroupAssignments(assignments []models.AssignmentDetail) []dto.StaffSubjectAssignments {
	groups := make([]dto.StaffSubjectAssignments, 0)
	index := make(map[string]int)
	for _, a := range assignments {
		key := a.SubjectID + "|" + a.BatchID
		i, ok := index[key]
		if !ok {
			batch := models.Batch{DeptCode: a.DeptCode, ClassName: a.ClassName, AcademicYear: a.AcademicYear, Semester: a.Semester}
			groups = append(groups, dto.StaffSubjectAssignments{
				SubjectID:    a.SubjectID,
				SubjectCode:  a.SubjectCode,
				SubjectName:  a.SubjectName,
				BatchID:      a.BatchID,
				BatchName:    batch.Label(),
				LectureTypes: make(map[models.LectureType][]dto.LectureSlot),
			})
			i = len(groups) - 1
			index[key] = i
		}
		groups[i].LectureTypes[a.LectureType] = append(groups[i].LectureTypes[a.LectureType], dto.LectureSlot{
			AssignmentID: a.ID,
			SubBatch:     a.SubBatch,
		})
	}
	return groups
}
