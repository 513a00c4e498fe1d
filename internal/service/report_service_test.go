package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hard4j/bvp-attendance-api/internal/dto"
	"github.com/hard4j/bvp-attendance-api/internal/models"
	appErrors "github.com/hard4j/bvp-attendance-api/pkg/errors"
)

type memoryCacheRepo struct {
	items map[string][]byte
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{items: make(map[string][]byte)}
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.items[key] = raw
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range m.items {
		if strings.HasPrefix(key, prefix) {
			delete(m.items, key)
		}
	}
	return nil
}

func markTheory(t *testing.T, f *attendanceFixture, date string, absent ...string) {
	t.Helper()
	_, err := f.attendanceService().MarkLecture(context.Background(), dto.MarkLectureRequest{
		AssignmentID: f.theory.ID,
		Date:         date,
		AbsentRolls:  absent,
	}, f.staffClaims())
	require.NoError(t, err)
}

func theoryQuery(f *attendanceFixture) dto.AttendanceReportQuery {
	return dto.AttendanceReportQuery{BatchID: f.batchID, SubjectID: f.subjectID, LectureType: "th", From: "2024-06-01", To: "2024-07-31"}
}

func TestComputeAttendanceTheory(t *testing.T) {
	f := newAttendanceFixture()
	markTheory(t, f, "2024-06-30")
	markTheory(t, f, "2024-07-01", "R2")
	svc := f.reportService()

	scope, err := svc.ResolveScope(theoryQuery(f))
	require.NoError(t, err)
	report, err := svc.ComputeAttendance(context.Background(), scope)
	require.NoError(t, err)

	require.Len(t, report.Students, 3)
	assert.Equal(t, []string{f.theory.ID}, report.Assignments)
	assert.Equal(t, models.StudentAttendance{StudentID: f.students[0].ID, RollNo: "R1", Name: "Asha", SubBatch: intPtr(1), Attended: 2, Total: 2, Percentage: 100}, report.Students[0])
	assert.Equal(t, 1, report.Students[1].Attended)
	assert.Equal(t, 2, report.Students[1].Total)
	assert.Equal(t, 50.0, report.Students[1].Percentage)
}

func TestComputeAttendanceRoundsPercentage(t *testing.T) {
	f := newAttendanceFixture()
	markTheory(t, f, "2024-07-01", "R1")
	markTheory(t, f, "2024-07-01")
	markTheory(t, f, "2024-07-01")
	svc := f.reportService()

	scope, err := svc.ResolveScope(theoryQuery(f))
	require.NoError(t, err)
	report, err := svc.ComputeAttendance(context.Background(), scope)
	require.NoError(t, err)
	assert.Equal(t, 66.67, report.Students[0].Percentage)
}

func TestComputeAttendanceZeroTotal(t *testing.T) {
	f := newAttendanceFixture()
	svc := f.reportService()

	scope, err := svc.ResolveScope(theoryQuery(f))
	require.NoError(t, err)
	report, err := svc.ComputeAttendance(context.Background(), scope)
	require.NoError(t, err)
	require.Len(t, report.Students, 3)
	for _, st := range report.Students {
		assert.Zero(t, st.Total)
		assert.Zero(t, st.Percentage)
	}
}

func TestComputeAttendanceExcludesStudentsWithoutSubBatch(t *testing.T) {
	f := newAttendanceFixture()
	f.batches.students[f.batchID] = append(f.batches.students[f.batchID], models.Student{ID: uuid.NewString(), RollNo: "R4", Name: "Dev"})
	svc := f.reportService()

	scope, err := svc.ResolveScope(dto.AttendanceReportQuery{BatchID: f.batchID, SubjectID: f.subjectID, LectureType: "PR"})
	require.NoError(t, err)
	report, err := svc.ComputeAttendance(context.Background(), scope)
	require.NoError(t, err)

	rolls := make([]string, 0, len(report.Students))
	for _, st := range report.Students {
		rolls = append(rolls, st.RollNo)
	}
	assert.Equal(t, []string{"R1", "R2", "R3"}, rolls)
	assert.Len(t, report.Assignments, 2)

	scope, err = svc.ResolveScope(theoryQuery(f))
	require.NoError(t, err)
	report, err = svc.ComputeAttendance(context.Background(), scope)
	require.NoError(t, err)
	assert.Len(t, report.Students, 4)
}

func TestComputeAttendanceNoAssignments(t *testing.T) {
	f := newAttendanceFixture()
	svc := f.reportService()

	scope, err := svc.ResolveScope(dto.AttendanceReportQuery{BatchID: f.batchID, SubjectID: uuid.NewString(), LectureType: "TH"})
	require.NoError(t, err)
	_, err = svc.ComputeAttendance(context.Background(), scope)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestResolveScopeDefaultsAndValidation(t *testing.T) {
	f := newAttendanceFixture()
	svc := f.reportService()

	scope, err := svc.ResolveScope(dto.AttendanceReportQuery{AssignmentID: f.theory.ID})
	require.NoError(t, err)
	assert.Equal(t, "2024-07-01", scope.To.Format(models.DateLayout))
	assert.Equal(t, "2024-06-02", scope.From.Format(models.DateLayout))

	_, err = svc.ResolveScope(dto.AttendanceReportQuery{AssignmentID: f.theory.ID, From: "2024-07-02", To: "2024-07-01"})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.ResolveScope(dto.AttendanceReportQuery{BatchID: f.batchID})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.ResolveScope(dto.AttendanceReportQuery{BatchID: f.batchID, SubjectID: f.subjectID, LectureType: "TH", SubBatch: intPtr(1)})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAttendanceRestrictsToVisibleAssignments(t *testing.T) {
	f := newAttendanceFixture()
	svc := f.reportService()

	_, _, err := svc.Attendance(context.Background(), theoryQuery(f), &models.JWTClaims{StaffID: uuid.NewString(), Role: models.RoleStaff})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, _, err = svc.Attendance(context.Background(), theoryQuery(f), &models.JWTClaims{Role: models.RoleHOD, DeptCode: "ME"})
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestAttendanceCachesUntilLectureMarked(t *testing.T) {
	f := newAttendanceFixture()
	cache := NewCacheService(newMemoryCacheRepo(), NewMetricsService(), time.Minute, nil, true)
	reports := NewReportService(f.assignments, f.batches, f.store, cache, nil, ReportServiceConfig{Location: time.UTC}, nil)
	reports.now = fixedNow
	marks := NewAttendanceService(f.assignments, f.store, NewRosterService(f.batches, nil), cache, nil, nil, time.UTC, nil)
	marks.now = fixedNow
	ctx := context.Background()

	first, cached, err := reports.Attendance(ctx, theoryQuery(f), f.staffClaims())
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Zero(t, first.Students[0].Total)

	_, cached, err = reports.Attendance(ctx, theoryQuery(f), f.staffClaims())
	require.NoError(t, err)
	assert.True(t, cached)

	_, err = marks.MarkLecture(ctx, dto.MarkLectureRequest{AssignmentID: f.theory.ID, Date: markDate}, f.staffClaims())
	require.NoError(t, err)

	fresh, cached, err := reports.Attendance(ctx, theoryQuery(f), f.staffClaims())
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 1, fresh.Students[0].Total)
}

func TestDefaulters(t *testing.T) {
	f := newAttendanceFixture()
	markTheory(t, f, "2024-07-01", "R2")
	markTheory(t, f, "2024-07-01", "R2")
	markTheory(t, f, "2024-07-01")
	markTheory(t, f, "2024-07-01")
	svc := f.reportService()
	admin := &models.JWTClaims{Role: models.RoleAdmin}

	report, _, err := svc.Defaulters(context.Background(), dto.DefaulterQuery{BatchID: f.batchID, From: "2024-07-01", To: "2024-07-01"}, admin)
	require.NoError(t, err)
	assert.Equal(t, 75.0, report.Threshold)
	require.Len(t, report.Defaulters, 1)
	assert.Equal(t, "R2", report.Defaulters[0].RollNo)
	assert.Equal(t, 50.0, report.Defaulters[0].Percentage)

	lenient := 40.0
	report, _, err = svc.Defaulters(context.Background(), dto.DefaulterQuery{BatchID: f.batchID, Threshold: &lenient, From: "2024-07-01", To: "2024-07-01"}, admin)
	require.NoError(t, err)
	assert.Empty(t, report.Defaulters)

	_, _, err = svc.Defaulters(context.Background(), dto.DefaulterQuery{BatchID: f.batchID}, f.staffClaims())
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, _, err = svc.Defaulters(context.Background(), dto.DefaulterQuery{BatchID: uuid.NewString()}, admin)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestDefaultersCombinesTheoryAndPractical(t *testing.T) {
	f := newAttendanceFixture()
	markTheory(t, f, "2024-07-01")
	_, err := f.attendanceService().MarkLecture(context.Background(), dto.MarkLectureRequest{
		AssignmentID: f.practical1.ID,
		Date:         "2024-07-01",
		AbsentRolls:  []string{"R1"},
	}, f.staffClaims())
	require.NoError(t, err)
	svc := f.reportService()

	report, _, err := svc.Defaulters(context.Background(), dto.DefaulterQuery{BatchID: f.batchID, From: "2024-07-01", To: "2024-07-01"}, &models.JWTClaims{Role: models.RoleHOD, DeptCode: "CO"})
	require.NoError(t, err)
	require.Len(t, report.Defaulters, 1)
	assert.Equal(t, "R1", report.Defaulters[0].RollNo)
	assert.Equal(t, 1, report.Defaulters[0].Attended)
	assert.Equal(t, 2, report.Defaulters[0].Total)
}

func TestHistoricalMatrix(t *testing.T) {
	f := newAttendanceFixture()
	markTheory(t, f, "2024-06-30")
	markTheory(t, f, "2024-06-30", "R1")
	markTheory(t, f, "2024-07-01", "R2")
	svc := f.reportService()

	matrix, cached, err := svc.Historical(context.Background(), theoryQuery(f), f.staffClaims())
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, []string{"2024-06-30", "2024-07-01"}, matrix.Dates)
	assert.Equal(t, map[string]int{"2024-06-30": 2, "2024-07-01": 1}, matrix.Held)

	require.Len(t, matrix.Students, 3)
	r1 := matrix.Students[0]
	assert.Equal(t, models.HistoricalCell{Attended: 1, Held: 2}, r1.Days["2024-06-30"])
	assert.Equal(t, models.HistoricalCell{Attended: 1, Held: 1}, r1.Days["2024-07-01"])
	assert.Equal(t, 2, r1.Attended)
	assert.Equal(t, 3, r1.Total)
	assert.Equal(t, 66.67, r1.Percentage)

	r2 := matrix.Students[1]
	assert.Equal(t, models.HistoricalCell{Attended: 0, Held: 1}, r2.Days["2024-07-01"])
}
