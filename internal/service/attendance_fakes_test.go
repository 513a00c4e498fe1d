package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/hard4j/bvp-attendance-api/internal/models"
	"github.com/hard4j/bvp-attendance-api/internal/repository"
)

type dayKey struct {
	assignmentID string
	date         string
}

type ledgerKey struct {
	assignmentID string
	studentID    string
	date         string
}

// memoryLedgerStore keeps lecture counts and ledger rows in maps. A
// transaction works on copies that replace the originals only on success.
type memoryLedgerStore struct {
	counts    map[dayKey]int
	records   map[ledgerKey]models.AttendanceRecord
	failOn    string
	txCount   int
	increment int
}

func newMemoryLedgerStore() *memoryLedgerStore {
	return &memoryLedgerStore{
		counts:  make(map[dayKey]int),
		records: make(map[ledgerKey]models.AttendanceRecord),
	}
}

func (m *memoryLedgerStore) WithinTx(ctx context.Context, fn func(repository.AttendanceLedger) error) error {
	m.txCount++
	tx := &memoryLedgerTx{
		counts:  make(map[dayKey]int, len(m.counts)),
		records: make(map[ledgerKey]models.AttendanceRecord, len(m.records)),
		failOn:  m.failOn,
	}
	for k, v := range m.counts {
		tx.counts[k] = v
	}
	for k, v := range m.records {
		tx.records[k] = v
	}
	if err := fn(tx); err != nil {
		return err
	}
	m.counts = tx.counts
	m.records = tx.records
	m.increment += tx.increments
	return nil
}

func (m *memoryLedgerStore) LectureCountsOn(ctx context.Context, assignmentIDs []string, date time.Time) ([]models.DailyLectureCount, error) {
	out := make([]models.DailyLectureCount, 0)
	for _, id := range assignmentIDs {
		if n, ok := m.counts[dayKey{id, date.Format(models.DateLayout)}]; ok {
			out = append(out, models.DailyLectureCount{AssignmentID: id, Date: date, Count: n})
		}
	}
	return out, nil
}

func (m *memoryLedgerStore) RecordsOn(ctx context.Context, assignmentIDs []string, date time.Time) ([]models.AttendanceRecord, error) {
	wanted := toSet(assignmentIDs)
	out := make([]models.AttendanceRecord, 0)
	for k, rec := range m.records {
		if _, ok := wanted[k.assignmentID]; ok && k.date == date.Format(models.DateLayout) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *memoryLedgerStore) LectureTotals(ctx context.Context, assignmentIDs []string, from, to time.Time) ([]models.AssignmentLectureTotal, error) {
	wanted := toSet(assignmentIDs)
	totals := make(map[string]int)
	for k, n := range m.counts {
		if _, ok := wanted[k.assignmentID]; ok && inRange(k.date, from, to) {
			totals[k.assignmentID] += n
		}
	}
	out := make([]models.AssignmentLectureTotal, 0, len(totals))
	for id, n := range totals {
		out = append(out, models.AssignmentLectureTotal{AssignmentID: id, Total: n})
	}
	return out, nil
}

func (m *memoryLedgerStore) AttendedTotals(ctx context.Context, assignmentIDs []string, from, to time.Time) ([]models.StudentAssignmentAttended, error) {
	wanted := toSet(assignmentIDs)
	out := make([]models.StudentAssignmentAttended, 0)
	for k, rec := range m.records {
		if _, ok := wanted[k.assignmentID]; ok && inRange(k.date, from, to) {
			out = append(out, models.StudentAssignmentAttended{StudentID: k.studentID, AssignmentID: k.assignmentID, Attended: rec.LectureCount})
		}
	}
	return out, nil
}

func (m *memoryLedgerStore) LectureDays(ctx context.Context, assignmentIDs []string, from, to time.Time) ([]models.LectureDay, error) {
	wanted := toSet(assignmentIDs)
	out := make([]models.LectureDay, 0)
	for k, n := range m.counts {
		if _, ok := wanted[k.assignmentID]; ok && inRange(k.date, from, to) {
			d, _ := time.Parse(models.DateLayout, k.date)
			out = append(out, models.LectureDay{AssignmentID: k.assignmentID, Date: d, Held: n})
		}
	}
	return out, nil
}

func (m *memoryLedgerStore) StudentDays(ctx context.Context, assignmentIDs []string, from, to time.Time) ([]models.StudentLectureDay, error) {
	wanted := toSet(assignmentIDs)
	out := make([]models.StudentLectureDay, 0)
	for k, rec := range m.records {
		if _, ok := wanted[k.assignmentID]; ok && inRange(k.date, from, to) {
			d, _ := time.Parse(models.DateLayout, k.date)
			out = append(out, models.StudentLectureDay{StudentID: k.studentID, AssignmentID: k.assignmentID, Date: d, Attended: rec.LectureCount})
		}
	}
	return out, nil
}

func (m *memoryLedgerStore) record(assignmentID, studentID, date string) (models.AttendanceRecord, bool) {
	rec, ok := m.records[ledgerKey{assignmentID, studentID, date}]
	return rec, ok
}

type memoryLedgerTx struct {
	counts     map[dayKey]int
	records    map[ledgerKey]models.AttendanceRecord
	failOn     string
	increments int
}

func (t *memoryLedgerTx) IncrementLectureCount(ctx context.Context, assignmentID string, date time.Time) (int, error) {
	k := dayKey{assignmentID, date.Format(models.DateLayout)}
	t.counts[k]++
	t.increments++
	return t.counts[k], nil
}

func (t *memoryLedgerTx) LectureCount(ctx context.Context, assignmentID string, date time.Time) (int, error) {
	return t.counts[dayKey{assignmentID, date.Format(models.DateLayout)}], nil
}

func (t *memoryLedgerTx) ApplyMark(ctx context.Context, assignmentID, studentID string, date time.Time, mark models.AttendanceMark) (*models.AttendanceRecord, error) {
	if studentID == t.failOn {
		return nil, errors.New("connection reset")
	}
	k := ledgerKey{assignmentID, studentID, date.Format(models.DateLayout)}
	var prev *models.LedgerEntry
	rec, ok := t.records[k]
	if ok {
		entry := rec.Ledger()
		prev = &entry
	} else {
		rec = models.AttendanceRecord{ID: uuid.NewString(), AssignmentID: assignmentID, StudentID: studentID, Date: date}
	}
	next := models.NextLedgerEntry(prev, mark)
	rec.Status = next.LastMark
	rec.LectureCount = next.Attended
	t.records[k] = rec
	return &rec, nil
}

func (t *memoryLedgerTx) OverwriteMark(ctx context.Context, assignmentID, studentID string, date time.Time, mark models.AttendanceMark, lectureCount int) (*models.AttendanceRecord, error) {
	k := ledgerKey{assignmentID, studentID, date.Format(models.DateLayout)}
	rec, ok := t.records[k]
	if !ok {
		rec = models.AttendanceRecord{ID: uuid.NewString(), AssignmentID: assignmentID, StudentID: studentID, Date: date}
	}
	rec.Status = mark
	rec.LectureCount = lectureCount
	t.records[k] = rec
	return &rec, nil
}

type assignmentDirectoryStub struct {
	items []models.AssignmentDetail
}

func (s *assignmentDirectoryStub) FindByID(ctx context.Context, id string) (*models.AssignmentDetail, error) {
	for _, a := range s.items {
		if a.ID == id {
			cp := a
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *assignmentDirectoryStub) List(ctx context.Context, filter models.AssignmentFilter) ([]models.AssignmentDetail, error) {
	out := make([]models.AssignmentDetail, 0)
	for _, a := range s.items {
		switch {
		case filter.BatchID != "" && a.BatchID != filter.BatchID,
			filter.SubjectID != "" && a.SubjectID != filter.SubjectID,
			filter.LectureType != "" && a.LectureType != filter.LectureType,
			filter.StaffID != "" && a.StaffID != filter.StaffID,
			filter.DeptCode != "" && a.DeptCode != filter.DeptCode,
			filter.SubBatch != nil && (a.SubBatch == nil || *a.SubBatch != *filter.SubBatch):
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

type batchRosterStub struct {
	batches  map[string]models.Batch
	students map[string][]models.Student
}

func (s *batchRosterStub) FindByID(ctx context.Context, id string) (*models.Batch, error) {
	b, ok := s.batches[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &b, nil
}

func (s *batchRosterStub) ListStudents(ctx context.Context, batchID string) ([]models.Student, error) {
	students := append([]models.Student(nil), s.students[batchID]...)
	sort.Slice(students, func(i, j int) bool { return students[i].RollNo < students[j].RollNo })
	return students, nil
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func inRange(day string, from, to time.Time) bool {
	return day >= from.Format(models.DateLayout) && day <= to.Format(models.DateLayout)
}

func intPtr(n int) *int { return &n }

// attendanceFixture is a CO batch with three students. R1 and R3 form
// sub-batch 1, R2 sub-batch 2.
type attendanceFixture struct {
	staffID     string
	batchID     string
	subjectID   string
	theory      models.AssignmentDetail
	practical1  models.AssignmentDetail
	practical2  models.AssignmentDetail
	students    []models.Student
	assignments *assignmentDirectoryStub
	batches     *batchRosterStub
	store       *memoryLedgerStore
}

func newAttendanceFixture() *attendanceFixture {
	f := &attendanceFixture{
		staffID:   uuid.NewString(),
		batchID:   uuid.NewString(),
		subjectID: uuid.NewString(),
		store:     newMemoryLedgerStore(),
	}
	f.students = []models.Student{
		{ID: uuid.NewString(), RollNo: "R1", Name: "Asha", SubBatch: intPtr(1)},
		{ID: uuid.NewString(), RollNo: "R2", Name: "Bhavin", SubBatch: intPtr(2)},
		{ID: uuid.NewString(), RollNo: "R3", Name: "Chitra", SubBatch: intPtr(1)},
	}
	detail := func(lt models.LectureType, subBatch *int) models.AssignmentDetail {
		return models.AssignmentDetail{
			Assignment: models.Assignment{
				ID:          uuid.NewString(),
				StaffID:     f.staffID,
				SubjectID:   f.subjectID,
				BatchID:     f.batchID,
				LectureType: lt,
				SubBatch:    subBatch,
			},
			SubjectCode: "CO501",
			DeptCode:    "CO",
			ClassName:   "TY",
		}
	}
	f.theory = detail(models.LectureTheory, nil)
	f.practical1 = detail(models.LecturePractical, intPtr(1))
	f.practical2 = detail(models.LecturePractical, intPtr(2))
	f.assignments = &assignmentDirectoryStub{items: []models.AssignmentDetail{f.theory, f.practical1, f.practical2}}
	f.batches = &batchRosterStub{
		batches:  map[string]models.Batch{f.batchID: {ID: f.batchID, DeptCode: "CO", ClassName: "TY"}},
		students: map[string][]models.Student{f.batchID: f.students},
	}
	return f
}

func (f *attendanceFixture) staffClaims() *models.JWTClaims {
	return &models.JWTClaims{StaffID: f.staffID, Username: "teacher", Role: models.RoleStaff}
}

var fixedNow = func() time.Time { return time.Date(2024, 7, 1, 10, 0, 0, 0, time.UTC) }

func (f *attendanceFixture) attendanceService() *AttendanceService {
	svc := NewAttendanceService(f.assignments, f.store, NewRosterService(f.batches, nil), nil, nil, nil, time.UTC, nil)
	svc.now = fixedNow
	return svc
}

func (f *attendanceFixture) reportService() *ReportService {
	svc := NewReportService(f.assignments, f.batches, f.store, nil, nil, ReportServiceConfig{Location: time.UTC}, nil)
	svc.now = fixedNow
	return svc
}
