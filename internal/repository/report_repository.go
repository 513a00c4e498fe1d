package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/hard4j/bvp-attendance-api/internal/models"
)

// ReportRepository runs the aggregate queries behind attendance reports.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository constructs the repository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// LectureTotals sums the lectures held per assignment within [from, to].
func (r *ReportRepository) LectureTotals(ctx context.Context, assignmentIDs []string, from, to time.Time) ([]models.AssignmentLectureTotal, error) {
	if len(assignmentIDs) == 0 {
		return nil, nil
	}
	const query = `SELECT assignment_id, COALESCE(SUM(count), 0) AS total
FROM lecture_counts
WHERE assignment_id = ANY($1) AND date BETWEEN $2 AND $3
GROUP BY assignment_id`
	var totals []models.AssignmentLectureTotal
	if err := r.db.SelectContext(ctx, &totals, query, pq.Array(assignmentIDs), from, to); err != nil {
		return nil, fmt.Errorf("sum lecture counts: %w", err)
	}
	return totals, nil
}

// AttendedTotals sums each student's attended lectures per assignment within
// [from, to]. The last mark of the day does not affect the sum.
func (r *ReportRepository) AttendedTotals(ctx context.Context, assignmentIDs []string, from, to time.Time) ([]models.StudentAssignmentAttended, error) {
	if len(assignmentIDs) == 0 {
		return nil, nil
	}
	// No status filter: a student present earlier in the day keeps that
	// credit after a later absent mark.
	const query = `SELECT student_id, assignment_id, COALESCE(SUM(lecture_count), 0) AS attended
FROM attendance_records
WHERE assignment_id = ANY($1) AND date BETWEEN $2 AND $3
GROUP BY student_id, assignment_id`
	var totals []models.StudentAssignmentAttended
	if err := r.db.SelectContext(ctx, &totals, query, pq.Array(assignmentIDs), from, to); err != nil {
		return nil, fmt.Errorf("sum attended lectures: %w", err)
	}
	return totals, nil
}

// LectureDays lists the lectures held per assignment and date.
func (r *ReportRepository) LectureDays(ctx context.Context, assignmentIDs []string, from, to time.Time) ([]models.LectureDay, error) {
	if len(assignmentIDs) == 0 {
		return nil, nil
	}
	const query = `SELECT assignment_id, date, count AS held
FROM lecture_counts
WHERE assignment_id = ANY($1) AND date BETWEEN $2 AND $3
ORDER BY date`
	var days []models.LectureDay
	if err := r.db.SelectContext(ctx, &days, query, pq.Array(assignmentIDs), from, to); err != nil {
		return nil, fmt.Errorf("list lecture days: %w", err)
	}
	return days, nil
}

// StudentDays lists each student's attended lectures per assignment and date.
func (r *ReportRepository) StudentDays(ctx context.Context, assignmentIDs []string, from, to time.Time) ([]models.StudentLectureDay, error) {
	if len(assignmentIDs) == 0 {
		return nil, nil
	}
	const query = `SELECT student_id, assignment_id, date, lecture_count AS attended
FROM attendance_records
WHERE assignment_id = ANY($1) AND date BETWEEN $2 AND $3
ORDER BY date`
	var days []models.StudentLectureDay
	if err := r.db.SelectContext(ctx, &days, query, pq.Array(assignmentIDs), from, to); err != nil {
		return nil, fmt.Errorf("list student lecture days: %w", err)
	}
	return days, nil
}
