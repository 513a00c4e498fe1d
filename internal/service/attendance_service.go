package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/hard4j/bvp-attendance-api/internal/dto"
	"github.com/hard4j/bvp-attendance-api/internal/models"
	"github.com/hard4j/bvp-attendance-api/internal/repository"
	appErrors "github.com/hard4j/bvp-attendance-api/pkg/errors"
)

type attendanceAssignmentReader interface {
	FindByID(ctx context.Context, id string) (*models.AssignmentDetail, error)
	List(ctx context.Context, filter models.AssignmentFilter) ([]models.AssignmentDetail, error)
}

type attendanceStore interface {
	WithinTx(ctx context.Context, fn func(repository.AttendanceLedger) error) error
	LectureCountsOn(ctx context.Context, assignmentIDs []string, date time.Time) ([]models.DailyLectureCount, error)
	RecordsOn(ctx context.Context, assignmentIDs []string, date time.Time) ([]models.AttendanceRecord, error)
}

type assignmentRosterResolver interface {
	ResolveForAssignment(ctx context.Context, assignment models.Assignment) ([]models.Student, error)
}

// AttendanceService records lecture instances and reconciles the per-student
// ledger.
type AttendanceService struct {
	assignments attendanceAssignmentReader
	store       attendanceStore
	roster      assignmentRosterResolver
	cache       *CacheService
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	loc         *time.Location
	now         func() time.Time
}

// NewAttendanceService constructs the attendance service. loc is the
// timezone that decides which calendar day "today" is.
func NewAttendanceService(assignments attendanceAssignmentReader, store attendanceStore, roster assignmentRosterResolver, cache *CacheService, metrics *MetricsService, validate *validator.Validate, loc *time.Location, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &AttendanceService{
		assignments: assignments,
		store:       store,
		roster:      roster,
		cache:       cache,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
		loc:         loc,
		now:         time.Now,
	}
}

// MarkLecture records one lecture instance. Every roster student is marked
// present unless their roll number is listed as absent. The lecture counter
// and all ledger rows are written in a single transaction.
func (s *AttendanceService) MarkLecture(ctx context.Context, req dto.MarkLectureRequest, claims *models.JWTClaims) (*dto.MarkLectureResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid attendance payload")
	}
	date, err := parseDay(req.Date, s.loc, s.now)
	if err != nil {
		return nil, err
	}

	assignment, roster, err := s.loadAssignment(ctx, req.AssignmentID, claims)
	if err != nil {
		return nil, err
	}

	absent, invalid := splitRolls(roster, req.AbsentRolls)
	if len(invalid) > 0 {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, "absent rolls are not on the roster", map[string]interface{}{"invalid_rolls": invalid})
	}

	resp := &dto.MarkLectureResponse{
		AssignmentID: assignment.ID,
		Date:         date.Format(models.DateLayout),
		AbsentRolls:  make([]string, 0, len(absent)),
	}
	err = s.store.WithinTx(ctx, func(ledger repository.AttendanceLedger) error {
		count, err := ledger.IncrementLectureCount(ctx, assignment.ID, date)
		if err != nil {
			return err
		}
		resp.LectureNumber = count

		for _, st := range roster {
			mark := models.MarkPresent
			if _, ok := absent[rollKey(st.RollNo)]; ok {
				mark = models.MarkAbsent
			}
			if _, err := ledger.ApplyMark(ctx, assignment.ID, st.ID, date, mark); err != nil {
				return err
			}
			if mark == models.MarkAbsent {
				resp.Absent++
				resp.AbsentRolls = append(resp.AbsentRolls, st.RollNo)
				continue
			}
			resp.Present++
		}
		return nil
	})
	if err != nil {
		return nil, txError(err, "failed to record attendance")
	}

	s.cache.Invalidate(ctx, reportCachePattern(assignment.BatchID))
	s.metrics.RecordLectureMarked(string(assignment.LectureType), resp.Present, resp.Absent)
	s.logger.Info("lecture marked",
		zap.String("assignment_id", assignment.ID),
		zap.String("date", resp.Date),
		zap.Int("lecture_number", resp.LectureNumber),
		zap.Int("present", resp.Present),
		zap.Int("absent", resp.Absent),
	)
	return resp, nil
}

// ValidateAbsentees splits roll numbers into those on the assignment's
// roster and those that are not. Nothing is written.
func (s *AttendanceService) ValidateAbsentees(ctx context.Context, req dto.ValidateAbsenteesRequest, claims *models.JWTClaims) (*dto.ValidateAbsenteesResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid absentee payload")
	}
	_, roster, err := s.loadAssignment(ctx, req.AssignmentID, claims)
	if err != nil {
		return nil, err
	}

	absent, invalid := splitRolls(roster, req.AbsentRolls)
	valid := make([]string, 0, len(absent))
	for _, roll := range normaliseRolls(req.AbsentRolls) {
		if _, ok := absent[roll]; ok {
			valid = append(valid, roll)
		}
	}
	return &dto.ValidateAbsenteesResponse{Valid: valid, Invalid: invalid}, nil
}

// Roster returns the students an assignment is taught to.
func (s *AttendanceService) Roster(ctx context.Context, assignmentID string, claims *models.JWTClaims) (*dto.RosterResponse, error) {
	assignment, roster, err := s.loadAssignment(ctx, assignmentID, claims)
	if err != nil {
		return nil, err
	}
	return &dto.RosterResponse{Assignment: *assignment, Students: roster}, nil
}

// Session lists the ledger of every student for the assignments of a batch,
// subject and lecture type on one date.
func (s *AttendanceService) Session(ctx context.Context, query dto.SessionQuery, claims *models.JWTClaims) (*dto.SessionResponse, error) {
	if query.BatchID == "" || query.SubjectID == "" || !query.LectureType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "batch_id, subject_id and a valid lecture_type are required")
	}
	date, err := parseDay(query.Date, s.loc, s.now)
	if err != nil {
		return nil, err
	}
	all, err := s.assignments.List(ctx, models.AssignmentFilter{
		BatchID:     query.BatchID,
		SubjectID:   query.SubjectID,
		LectureType: query.LectureType,
	})
	if err != nil {
		return nil, storeError(err, "assignment not found", "failed to load assignments")
	}
	if len(all) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no assignments match the session")
	}

	visible := make([]models.AssignmentDetail, 0, len(all))
	ids := make([]string, 0, len(all))
	for i := range all {
		if canAccessAssignment(claims, &all[i]) {
			visible = append(visible, all[i])
			ids = append(ids, all[i].ID)
		}
	}
	if len(visible) == 0 {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "assignment belongs to another staff member")
	}

	counts, err := s.store.LectureCountsOn(ctx, ids, date)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load lecture counts")
	}
	records, err := s.store.RecordsOn(ctx, ids, date)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load attendance records")
	}

	held := make(map[string]int, len(ids))
	for _, id := range ids {
		held[id] = 0
	}
	for _, c := range counts {
		held[c.AssignmentID] = c.Count
	}
	byKey := make(map[string]models.AttendanceRecord, len(records))
	for _, r := range records {
		byKey[r.AssignmentID+"|"+r.StudentID] = r
	}

	resp := &dto.SessionResponse{
		Date:         date.Format(models.DateLayout),
		LecturesHeld: held,
		Rows:         make([]models.SessionRow, 0),
	}
	for _, assignment := range visible {
		students, err := s.roster.ResolveForAssignment(ctx, assignment.Assignment)
		if err != nil {
			return nil, err
		}
		for _, st := range students {
			row := models.SessionRow{
				StudentID:    st.ID,
				RollNo:       st.RollNo,
				Name:         st.Name,
				SubBatch:     st.SubBatch,
				AssignmentID: assignment.ID,
			}
			if rec, ok := byKey[assignment.ID+"|"+st.ID]; ok {
				status := rec.Status
				row.Status = &status
				row.LectureCount = rec.LectureCount
			}
			resp.Rows = append(resp.Rows, row)
		}
	}
	return resp, nil
}

// UpdateSession applies administrator corrections for a date. A present
// correction credits every lecture held that day, an absent one none.
func (s *AttendanceService) UpdateSession(ctx context.Context, req dto.SessionUpdateRequest, claims *models.JWTClaims) (*dto.SessionUpdateResponse, error) {
	if claims == nil || !claims.IsAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators can correct attendance")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid session payload")
	}
	date, err := parseDay(req.Date, s.loc, s.now)
	if err != nil {
		return nil, err
	}

	members := make(map[string]map[string]struct{})
	batches := make(map[string]struct{})
	for _, change := range req.Changes {
		if _, ok := members[change.AssignmentID]; ok {
			continue
		}
		assignment, roster, err := s.loadAssignment(ctx, change.AssignmentID, claims)
		if err != nil {
			return nil, err
		}
		set := make(map[string]struct{}, len(roster))
		for _, st := range roster {
			set[st.ID] = struct{}{}
		}
		members[change.AssignmentID] = set
		batches[assignment.BatchID] = struct{}{}
	}
	for _, change := range req.Changes {
		if _, ok := members[change.AssignmentID][change.StudentID]; !ok {
			return nil, appErrors.WithDetails(appErrors.ErrValidation, "student is not on the assignment roster", map[string]string{
				"student_id":    change.StudentID,
				"assignment_id": change.AssignmentID,
			})
		}
	}

	updated := 0
	err = s.store.WithinTx(ctx, func(ledger repository.AttendanceLedger) error {
		for _, change := range req.Changes {
			held, err := ledger.LectureCount(ctx, change.AssignmentID, date)
			if err != nil {
				return err
			}
			if held == 0 {
				return appErrors.WithDetails(appErrors.ErrValidation, "no lectures were held on this date", map[string]string{
					"assignment_id": change.AssignmentID,
					"date":          date.Format(models.DateLayout),
				})
			}
			mark := models.AttendanceMark(change.Status)
			count := 0
			if mark == models.MarkPresent {
				count = held
			}
			if _, err := ledger.OverwriteMark(ctx, change.AssignmentID, change.StudentID, date, mark, count); err != nil {
				return err
			}
			updated++
		}
		return nil
	})
	if err != nil {
		return nil, txError(err, "failed to apply attendance corrections")
	}

	for batchID := range batches {
		s.cache.Invalidate(ctx, reportCachePattern(batchID))
	}
	s.metrics.RecordCorrections(updated)
	s.logger.Info("attendance corrected",
		zap.String("date", date.Format(models.DateLayout)),
		zap.Int("updated", updated),
		zap.String("by", claims.Username),
	)
	return &dto.SessionUpdateResponse{Date: date.Format(models.DateLayout), Updated: updated}, nil
}

func (s *AttendanceService) loadAssignment(ctx context.Context, id string, claims *models.JWTClaims) (*models.AssignmentDetail, []models.Student, error) {
	assignment, err := s.assignments.FindByID(ctx, id)
	if err != nil {
		return nil, nil, storeError(err, "assignment not found", "failed to load assignment")
	}
	if !canAccessAssignment(claims, assignment) {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "assignment belongs to another staff member")
	}
	roster, err := s.roster.ResolveForAssignment(ctx, assignment.Assignment)
	if err != nil {
		return nil, nil, err
	}
	return assignment, roster, nil
}

// splitRolls matches normalised roll numbers against the roster. It returns
// the set of rolls present on the roster and, in input order, those that
// are not.
func splitRolls(roster []models.Student, rolls []string) (map[string]struct{}, []string) {
	onRoster := make(map[string]struct{}, len(roster))
	for _, st := range roster {
		onRoster[rollKey(st.RollNo)] = struct{}{}
	}
	matched := make(map[string]struct{})
	invalid := make([]string, 0)
	for _, roll := range normaliseRolls(rolls) {
		if _, ok := onRoster[roll]; ok {
			matched[roll] = struct{}{}
			continue
		}
		invalid = append(invalid, roll)
	}
	return matched, invalid
}

func rollKey(roll string) string {
	return strings.ToUpper(strings.TrimSpace(roll))
}

// txError keeps typed errors raised inside a transaction and wraps store
// failures as internal errors.
func txError(err error, message string) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.Internal(err, message)
}
