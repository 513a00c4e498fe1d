package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/hard4j/bvp-attendance-api/internal/models"
	appErrors "github.com/hard4j/bvp-attendance-api/pkg/errors"
)

type rosterBatchReader interface {
	FindByID(ctx context.Context, id string) (*models.Batch, error)
	ListStudents(ctx context.Context, batchID string) ([]models.Student, error)
}

// RosterService resolves which students a lecture is taught to.
type RosterService struct {
	batches rosterBatchReader
	logger  *zap.Logger
}

// NewRosterService constructs the roster resolver.
func NewRosterService(batches rosterBatchReader, logger *zap.Logger) *RosterService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RosterService{batches: batches, logger: logger}
}

// Resolve returns the students of a batch that attend the given lecture
// type, ordered by roll number.
func (s *RosterService) Resolve(ctx context.Context, batchID string, lectureType models.LectureType, subBatch *int) ([]models.Student, error) {
	if !lectureType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "lecture_type must be TH, PR or TU")
	}
	if lectureType.RequiresSubBatch() && subBatch == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "sub_batch is required for practical and tutorial lectures")
	}
	if _, err := s.batches.FindByID(ctx, batchID); err != nil {
		return nil, storeError(err, "batch not found", "failed to load batch")
	}
	students, err := s.batches.ListStudents(ctx, batchID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load batch students")
	}
	return FilterRoster(students, lectureType, subBatch), nil
}

// ResolveForAssignment resolves the roster an assignment is taught to.
func (s *RosterService) ResolveForAssignment(ctx context.Context, assignment models.Assignment) ([]models.Student, error) {
	return s.Resolve(ctx, assignment.BatchID, assignment.LectureType, assignment.SubBatch)
}

// FilterRoster applies the lecture type rule to an ordered batch roster.
// Theory lectures include everyone; practicals and tutorials only the
// members of the requested sub-batch.
func FilterRoster(students []models.Student, lectureType models.LectureType, subBatch *int) []models.Student {
	if !lectureType.RequiresSubBatch() {
		out := make([]models.Student, len(students))
		copy(out, students)
		return out
	}
	out := make([]models.Student, 0, len(students))
	if subBatch == nil {
		return out
	}
	for _, st := range students {
		if st.InSubBatch(*subBatch) {
			out = append(out, st)
		}
	}
	return out
}
