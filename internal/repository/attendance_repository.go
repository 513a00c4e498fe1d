package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/hard4j/bvp-attendance-api/internal/models"
)

const attendanceRecordColumns = `id, assignment_id, student_id, date, status, lecture_count, updated_at`

// AttendanceLedger is the set of writes available inside an attendance
// transaction. Every method runs against the same transaction.
type AttendanceLedger interface {
	// IncrementLectureCount records one more lecture held for the assignment
	// on date and returns the new count.
	IncrementLectureCount(ctx context.Context, assignmentID string, date time.Time) (int, error)
	// LectureCount returns the lectures held on date, 0 when none.
	LectureCount(ctx context.Context, assignmentID string, date time.Time) (int, error)
	// ApplyMark folds one lecture's mark into the student's ledger row.
	ApplyMark(ctx context.Context, assignmentID, studentID string, date time.Time, mark models.AttendanceMark) (*models.AttendanceRecord, error)
	// OverwriteMark replaces the student's ledger row for the day.
	OverwriteMark(ctx context.Context, assignmentID, studentID string, date time.Time, mark models.AttendanceMark, lectureCount int) (*models.AttendanceRecord, error)
}

// AttendanceRepository persists lecture counters and the attendance ledger.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// WithinTx runs fn inside a transaction. The transaction commits only when
// fn returns nil.
func (r *AttendanceRepository) WithinTx(ctx context.Context, fn func(AttendanceLedger) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin attendance tx: %w", err)
	}
	commit := false
	defer func() {
		if !commit {
			_ = tx.Rollback()
		}
	}()

	if err := fn(&txLedger{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit attendance tx: %w", err)
	}
	commit = true
	return nil
}

// LectureCountsOn returns the counters of the given assignments for a date.
func (r *AttendanceRepository) LectureCountsOn(ctx context.Context, assignmentIDs []string, date time.Time) ([]models.DailyLectureCount, error) {
	if len(assignmentIDs) == 0 {
		return nil, nil
	}
	const query = `SELECT assignment_id, date, count FROM lecture_counts WHERE assignment_id = ANY($1) AND date = $2`
	var counts []models.DailyLectureCount
	if err := r.db.SelectContext(ctx, &counts, query, pq.Array(assignmentIDs), date); err != nil {
		return nil, fmt.Errorf("list lecture counts: %w", err)
	}
	return counts, nil
}

// RecordsOn returns the ledger rows of the given assignments for a date.
func (r *AttendanceRepository) RecordsOn(ctx context.Context, assignmentIDs []string, date time.Time) ([]models.AttendanceRecord, error) {
	if len(assignmentIDs) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf("SELECT %s FROM attendance_records WHERE assignment_id = ANY($1) AND date = $2", attendanceRecordColumns)
	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, query, pq.Array(assignmentIDs), date); err != nil {
		return nil, fmt.Errorf("list attendance records: %w", err)
	}
	return records, nil
}

type txLedger struct {
	tx *sqlx.Tx
}

func (l *txLedger) IncrementLectureCount(ctx context.Context, assignmentID string, date time.Time) (int, error) {
	const query = `INSERT INTO lecture_counts (assignment_id, date, count, updated_at)
VALUES ($1, $2, 1, $3)
ON CONFLICT (assignment_id, date) DO UPDATE SET count = lecture_counts.count + 1, updated_at = EXCLUDED.updated_at
RETURNING count`
	var count int
	if err := l.tx.GetContext(ctx, &count, query, assignmentID, date, time.Now().UTC()); err != nil {
		return 0, fmt.Errorf("increment lecture count: %w", err)
	}
	return count, nil
}

func (l *txLedger) LectureCount(ctx context.Context, assignmentID string, date time.Time) (int, error) {
	const query = `SELECT count FROM lecture_counts WHERE assignment_id = $1 AND date = $2`
	var count int
	if err := l.tx.GetContext(ctx, &count, query, assignmentID, date); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("get lecture count: %w", err)
	}
	return count, nil
}

// ApplyMark is the SQL form of models.NextLedgerEntry: the row takes the new
// status and its lecture_count grows by mark.Credit().
func (l *txLedger) ApplyMark(ctx context.Context, assignmentID, studentID string, date time.Time, mark models.AttendanceMark) (*models.AttendanceRecord, error) {
	const query = `INSERT INTO attendance_records (id, assignment_id, student_id, date, status, lecture_count, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (assignment_id, student_id, date) DO UPDATE SET status = EXCLUDED.status,
    lecture_count = attendance_records.lecture_count + EXCLUDED.lecture_count, updated_at = EXCLUDED.updated_at
RETURNING ` + attendanceRecordColumns
	var record models.AttendanceRecord
	if err := l.tx.GetContext(ctx, &record, query, uuid.NewString(), assignmentID, studentID, date, mark, mark.Credit(), time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("apply attendance mark: %w", err)
	}
	return &record, nil
}

func (l *txLedger) OverwriteMark(ctx context.Context, assignmentID, studentID string, date time.Time, mark models.AttendanceMark, lectureCount int) (*models.AttendanceRecord, error) {
	const query = `INSERT INTO attendance_records (id, assignment_id, student_id, date, status, lecture_count, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (assignment_id, student_id, date) DO UPDATE SET status = EXCLUDED.status,
    lecture_count = EXCLUDED.lecture_count, updated_at = EXCLUDED.updated_at
RETURNING ` + attendanceRecordColumns
	var record models.AttendanceRecord
	if err := l.tx.GetContext(ctx, &record, query, uuid.NewString(), assignmentID, studentID, date, mark, lectureCount, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("overwrite attendance mark: %w", err)
	}
	return &record, nil
}
