package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hard4j/bvp-attendance-api/internal/dto"
	"github.com/hard4j/bvp-attendance-api/internal/models"
	appErrors "github.com/hard4j/bvp-attendance-api/pkg/errors"
)

type reportStore interface {
	LectureTotals(ctx context.Context, assignmentIDs []string, from, to time.Time) ([]models.AssignmentLectureTotal, error)
	AttendedTotals(ctx context.Context, assignmentIDs []string, from, to time.Time) ([]models.StudentAssignmentAttended, error)
	LectureDays(ctx context.Context, assignmentIDs []string, from, to time.Time) ([]models.LectureDay, error)
	StudentDays(ctx context.Context, assignmentIDs []string, from, to time.Time) ([]models.StudentLectureDay, error)
}

// ReportServiceConfig holds reporting defaults.
type ReportServiceConfig struct {
	Location           *time.Location
	DefaultWindow      time.Duration
	DefaulterThreshold float64
	CacheTTL           time.Duration
}

// ReportService aggregates the attendance ledger into percentages.
type ReportService struct {
	assignments attendanceAssignmentReader
	batches     rosterBatchReader
	store       reportStore
	cache       *CacheService
	metrics     *MetricsService
	logger      *zap.Logger
	cfg         ReportServiceConfig
	now         func() time.Time
}

// NewReportService constructs the report aggregator.
func NewReportService(assignments attendanceAssignmentReader, batches rosterBatchReader, store reportStore, cache *CacheService, metrics *MetricsService, cfg ReportServiceConfig, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.DefaultWindow < 24*time.Hour {
		cfg.DefaultWindow = 30 * 24 * time.Hour
	}
	if cfg.DefaulterThreshold <= 0 {
		cfg.DefaulterThreshold = 75
	}
	return &ReportService{
		assignments: assignments,
		batches:     batches,
		store:       store,
		cache:       cache,
		metrics:     metrics,
		logger:      logger,
		cfg:         cfg,
		now:         time.Now,
	}
}

// ResolveScope validates report filters and fills in the default range,
// the window of days ending today.
func (s *ReportService) ResolveScope(query dto.AttendanceReportQuery) (models.AttendanceScope, error) {
	scope := models.AttendanceScope{
		AssignmentID: strings.TrimSpace(query.AssignmentID),
		BatchID:      strings.TrimSpace(query.BatchID),
		SubjectID:    strings.TrimSpace(query.SubjectID),
		LectureType:  models.LectureType(strings.ToUpper(strings.TrimSpace(query.LectureType))),
		SubBatch:     query.SubBatch,
	}
	if scope.AssignmentID == "" {
		if scope.BatchID == "" || scope.SubjectID == "" || !scope.LectureType.Valid() {
			return scope, appErrors.Clone(appErrors.ErrValidation, "assignment_id or batch_id, subject_id and lecture_type are required")
		}
		if scope.LectureType == models.LectureTheory && scope.SubBatch != nil {
			return scope, appErrors.Clone(appErrors.ErrValidation, "sub_batch does not apply to theory lectures")
		}
	}

	from, to, err := s.resolveRange(query.From, query.To)
	if err != nil {
		return scope, err
	}
	scope.From, scope.To = from, to
	return scope, nil
}

func (s *ReportService) resolveRange(rawFrom, rawTo string) (time.Time, time.Time, error) {
	to, err := parseDay(rawTo, s.cfg.Location, s.now)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	var from time.Time
	if strings.TrimSpace(rawFrom) == "" {
		days := int(s.cfg.DefaultWindow / (24 * time.Hour))
		if days < 1 {
			days = 1
		}
		from = to.AddDate(0, 0, -(days - 1))
	} else if from, err = parseDay(rawFrom, s.cfg.Location, s.now); err != nil {
		return time.Time{}, time.Time{}, err
	}
	if from.After(to) {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "from must not be after to")
	}
	return from, to, nil
}

// ComputeAttendance returns per-student attended/total/percentage for every
// assignment matched by scope.
func (s *ReportService) ComputeAttendance(ctx context.Context, scope models.AttendanceScope) (*models.AttendanceReport, error) {
	assignments, err := s.resolveAssignments(ctx, scope, nil)
	if err != nil {
		return nil, err
	}
	return s.compute(ctx, assignments, scope.From, scope.To)
}

// Attendance resolves the query, restricts it to the assignments the caller
// may see and serves the report from cache when possible.
func (s *ReportService) Attendance(ctx context.Context, query dto.AttendanceReportQuery, claims *models.JWTClaims) (*models.AttendanceReport, bool, error) {
	scope, err := s.ResolveScope(query)
	if err != nil {
		return nil, false, err
	}
	assignments, err := s.resolveAssignments(ctx, scope, claims)
	if err != nil {
		return nil, false, err
	}

	key := reportCacheKey(assignments[0].BatchID, "attendance", assignmentIDs(assignments), scope.From, scope.To)
	var cached models.AttendanceReport
	if s.cache.Get(ctx, key, &cached) {
		return &cached, true, nil
	}
	report, err := s.compute(ctx, assignments, scope.From, scope.To)
	if err != nil {
		return nil, false, err
	}
	s.cache.Set(ctx, key, report, s.cfg.CacheTTL)
	return report, false, nil
}

// Defaulters lists the students of a batch whose overall attendance across
// every assignment applicable to them is below the threshold.
func (s *ReportService) Defaulters(ctx context.Context, query dto.DefaulterQuery, claims *models.JWTClaims) (*models.DefaulterReport, bool, error) {
	threshold := s.cfg.DefaulterThreshold
	if query.Threshold != nil {
		threshold = *query.Threshold
	}
	if threshold <= 0 || threshold > 100 {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "threshold must be between 0 and 100")
	}
	from, to, err := s.resolveRange(query.From, query.To)
	if err != nil {
		return nil, false, err
	}

	batch, err := s.batches.FindByID(ctx, query.BatchID)
	if err != nil {
		return nil, false, storeError(err, "batch not found", "failed to load batch")
	}
	if !canViewBatch(claims, batch) {
		return nil, false, appErrors.Clone(appErrors.ErrForbidden, "batch belongs to another department")
	}

	result := &models.DefaulterReport{
		BatchID:    batch.ID,
		Threshold:  threshold,
		From:       from.Format(models.DateLayout),
		To:         to.Format(models.DateLayout),
		Defaulters: make([]models.StudentAttendance, 0),
	}
	assignments, err := s.assignments.List(ctx, models.AssignmentFilter{BatchID: batch.ID})
	if err != nil {
		return nil, false, storeError(err, "assignment not found", "failed to load assignments")
	}
	if len(assignments) == 0 {
		return result, false, nil
	}

	key := reportCacheKey(batch.ID, fmt.Sprintf("defaulters:%g", threshold), assignmentIDs(assignments), from, to)
	var cached models.DefaulterReport
	if s.cache.Get(ctx, key, &cached) {
		return &cached, true, nil
	}

	report, err := s.compute(ctx, assignments, from, to)
	if err != nil {
		return nil, false, err
	}
	for _, st := range report.Students {
		if st.Total > 0 && st.Percentage < threshold {
			result.Defaulters = append(result.Defaulters, st)
		}
	}
	s.cache.Set(ctx, key, result, s.cfg.CacheTTL)
	return result, false, nil
}

// Historical returns the day-by-day attendance matrix of a scope.
func (s *ReportService) Historical(ctx context.Context, query dto.AttendanceReportQuery, claims *models.JWTClaims) (*models.HistoricalMatrix, bool, error) {
	scope, err := s.ResolveScope(query)
	if err != nil {
		return nil, false, err
	}
	assignments, err := s.resolveAssignments(ctx, scope, claims)
	if err != nil {
		return nil, false, err
	}

	ids := assignmentIDs(assignments)
	key := reportCacheKey(assignments[0].BatchID, "historical", ids, scope.From, scope.To)
	var cached models.HistoricalMatrix
	if s.cache.Get(ctx, key, &cached) {
		return &cached, true, nil
	}

	populations, order, err := s.populations(ctx, assignments)
	if err != nil {
		return nil, false, err
	}

	start := time.Now()
	lectureDays, err := s.store.LectureDays(ctx, ids, scope.From, scope.To)
	if err != nil {
		return nil, false, appErrors.Internal(err, "failed to load lecture days")
	}
	studentDays, err := s.store.StudentDays(ctx, ids, scope.From, scope.To)
	if err != nil {
		return nil, false, appErrors.Internal(err, "failed to load student days")
	}
	s.metrics.ObserveDBQuery("report_historical", time.Since(start))

	held := make(map[string]map[string]int)
	dateHeld := make(map[string]int)
	for _, d := range lectureDays {
		day := d.Date.Format(models.DateLayout)
		if held[d.AssignmentID] == nil {
			held[d.AssignmentID] = make(map[string]int)
		}
		held[d.AssignmentID][day] += d.Held
		dateHeld[day] += d.Held
	}
	attended := make(map[string]int, len(studentDays))
	for _, d := range studentDays {
		attended[d.StudentID+"|"+d.AssignmentID+"|"+d.Date.Format(models.DateLayout)] += d.Attended
	}

	dates := make([]string, 0, len(dateHeld))
	for day := range dateHeld {
		dates = append(dates, day)
	}
	sort.Strings(dates)

	matrix := &models.HistoricalMatrix{
		From:     scope.From.Format(models.DateLayout),
		To:       scope.To.Format(models.DateLayout),
		Dates:    dates,
		Held:     dateHeld,
		Students: make([]models.HistoricalRow, 0, len(order)),
	}
	for _, st := range order {
		row := models.HistoricalRow{
			StudentAttendance: models.StudentAttendance{StudentID: st.ID, RollNo: st.RollNo, Name: st.Name, SubBatch: st.SubBatch},
			Days:              make(map[string]models.HistoricalCell),
		}
		for _, assignmentID := range populations[st.ID] {
			for day, n := range held[assignmentID] {
				cell := row.Days[day]
				cell.Held += n
				cell.Attended += attended[st.ID+"|"+assignmentID+"|"+day]
				row.Days[day] = cell
				row.Total += n
				row.Attended += attended[st.ID+"|"+assignmentID+"|"+day]
			}
		}
		row.Percentage = percentage(row.Attended, row.Total)
		matrix.Students = append(matrix.Students, row)
	}

	s.cache.Set(ctx, key, matrix, s.cfg.CacheTTL)
	return matrix, false, nil
}

// resolveAssignments returns the assignments matched by scope. With claims
// set, assignments the caller may not see are dropped.
func (s *ReportService) resolveAssignments(ctx context.Context, scope models.AttendanceScope, claims *models.JWTClaims) ([]models.AssignmentDetail, error) {
	var assignments []models.AssignmentDetail
	if scope.AssignmentID != "" {
		assignment, err := s.assignments.FindByID(ctx, scope.AssignmentID)
		if err != nil {
			return nil, storeError(err, "assignment not found", "failed to load assignment")
		}
		assignments = []models.AssignmentDetail{*assignment}
	} else {
		list, err := s.assignments.List(ctx, models.AssignmentFilter{
			BatchID:     scope.BatchID,
			SubjectID:   scope.SubjectID,
			LectureType: scope.LectureType,
			SubBatch:    scope.SubBatch,
		})
		if err != nil {
			return nil, storeError(err, "assignment not found", "failed to load assignments")
		}
		assignments = list
	}
	if len(assignments) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no assignments match the report scope")
	}
	if claims == nil {
		return assignments, nil
	}

	visible := assignments[:0]
	for i := range assignments {
		if canAccessAssignment(claims, &assignments[i]) {
			visible = append(visible, assignments[i])
		}
	}
	if len(visible) == 0 {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "assignment belongs to another staff member")
	}
	return visible, nil
}

// populations maps every student to the assignments applicable to them and
// returns the students with at least one, in roll number order.
func (s *ReportService) populations(ctx context.Context, assignments []models.AssignmentDetail) (map[string][]string, []models.Student, error) {
	rosters := make(map[string][]models.Student)
	applicable := make(map[string][]string)
	order := make([]models.Student, 0)
	for _, assignment := range assignments {
		students, ok := rosters[assignment.BatchID]
		if !ok {
			var err error
			students, err = s.batches.ListStudents(ctx, assignment.BatchID)
			if err != nil {
				return nil, nil, appErrors.Internal(err, "failed to load batch students")
			}
			rosters[assignment.BatchID] = students
		}
		for _, st := range FilterRoster(students, assignment.LectureType, assignment.SubBatch) {
			if _, seen := applicable[st.ID]; !seen {
				order = append(order, st)
			}
			applicable[st.ID] = append(applicable[st.ID], assignment.ID)
		}
	}
	sort.SliceStable(order, func(i, j int) bool { return order[i].RollNo < order[j].RollNo })
	return applicable, order, nil
}

func (s *ReportService) compute(ctx context.Context, assignments []models.AssignmentDetail, from, to time.Time) (*models.AttendanceReport, error) {
	ids := assignmentIDs(assignments)
	populations, order, err := s.populations(ctx, assignments)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	totals, err := s.store.LectureTotals(ctx, ids, from, to)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load lecture totals")
	}
	attended, err := s.store.AttendedTotals(ctx, ids, from, to)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load attended totals")
	}
	s.metrics.ObserveDBQuery("report_attendance", time.Since(start))

	held := make(map[string]int, len(totals))
	for _, t := range totals {
		held[t.AssignmentID] += t.Total
	}
	present := make(map[string]int, len(attended))
	for _, a := range attended {
		present[a.StudentID+"|"+a.AssignmentID] += a.Attended
	}

	report := &models.AttendanceReport{
		Assignments: ids,
		From:        from.Format(models.DateLayout),
		To:          to.Format(models.DateLayout),
		Students:    make([]models.StudentAttendance, 0, len(order)),
	}
	for _, st := range order {
		line := models.StudentAttendance{StudentID: st.ID, RollNo: st.RollNo, Name: st.Name, SubBatch: st.SubBatch}
		for _, assignmentID := range populations[st.ID] {
			line.Total += held[assignmentID]
			line.Attended += present[st.ID+"|"+assignmentID]
		}
		line.Percentage = percentage(line.Attended, line.Total)
		report.Students = append(report.Students, line)
	}
	return report, nil
}

func canViewBatch(claims *models.JWTClaims, batch *models.Batch) bool {
	if claims == nil {
		return false
	}
	switch claims.Role {
	case models.RoleAdmin:
		return true
	case models.RoleHOD:
		return batch.DeptCode == claims.DeptCode
	default:
		return false
	}
}

func assignmentIDs(assignments []models.AssignmentDetail) []string {
	ids := make([]string, 0, len(assignments))
	for _, a := range assignments {
		ids = append(ids, a.ID)
	}
	return ids
}

func reportCacheKey(batchID, kind string, ids []string, from, to time.Time) string {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	return fmt.Sprintf("report:%s:%s:%s:%s:%s", batchID, kind, strings.Join(sorted, ","), from.Format(models.DateLayout), to.Format(models.DateLayout))
}

func reportCachePattern(batchID string) string {
	return "report:" + batchID + ":*"
}
