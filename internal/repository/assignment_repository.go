package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/hard4j/bvp-attendance-api/internal/models"
)

const assignmentDetailSelect = `SELECT a.id, a.staff_id, a.subject_id, a.batch_id, a.lecture_type, a.sub_batch, a.created_at,
       sub.subject_code, sub.subject_name, b.dept_code, b.class_name, b.academic_year, b.semester, st.full_name AS staff_name
FROM assignments a
JOIN subjects sub ON sub.id = a.subject_id
JOIN batches b ON b.id = a.batch_id
JOIN staff st ON st.id = a.staff_id`

// AssignmentRepository persists staff teaching assignments.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs the repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// FindByID fetches an assignment with descriptive fields.
func (r *AssignmentRepository) FindByID(ctx context.Context, id string) (*models.AssignmentDetail, error) {
	query := assignmentDetailSelect + "\nWHERE a.id = $1"
	var assignment models.AssignmentDetail
	if err := r.db.GetContext(ctx, &assignment, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find assignment: %w", err)
	}
	return &assignment, nil
}

// List returns assignments matching the filter.
func (r *AssignmentRepository) List(ctx context.Context, filter models.AssignmentFilter) ([]models.AssignmentDetail, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	add := func(clause string, value interface{}) {
		args = append(args, value)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if filter.DeptCode != "" {
		add("b.dept_code = $%d", filter.DeptCode)
	}
	if filter.StaffID != "" {
		add("a.staff_id = $%d", filter.StaffID)
	}
	if filter.BatchID != "" {
		add("a.batch_id = $%d", filter.BatchID)
	}
	if filter.SubjectID != "" {
		add("a.subject_id = $%d", filter.SubjectID)
	}
	if filter.LectureType != "" {
		add("a.lecture_type = $%d", filter.LectureType)
	}
	if filter.SubBatch != nil {
		add("a.sub_batch = $%d", *filter.SubBatch)
	}
	query := fmt.Sprintf("%s\nWHERE %s\nORDER BY b.dept_code, b.class_name, sub.subject_code, a.lecture_type, a.sub_batch NULLS FIRST",
		assignmentDetailSelect, strings.Join(where, " AND "))
	var assignments []models.AssignmentDetail
	if err := r.db.SelectContext(ctx, &assignments, query, args...); err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	return assignments, nil
}

// Exists checks whether the subject/batch/type/sub-batch tuple is taken.
// A nil sub-batch matches only assignments without one.
func (r *AssignmentRepository) Exists(ctx context.Context, subjectID, batchID string, lectureType models.LectureType, subBatch *int) (bool, error) {
	const query = `SELECT 1 FROM assignments
WHERE subject_id = $1 AND batch_id = $2 AND lecture_type = $3 AND COALESCE(sub_batch, 0) = COALESCE($4::INTEGER, 0) LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, subjectID, batchID, lectureType, subBatch); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check assignment: %w", err)
	}
	return true, nil
}

// Create inserts an assignment.
func (r *AssignmentRepository) Create(ctx context.Context, assignment *models.Assignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	if assignment.CreatedAt.IsZero() {
		assignment.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO assignments (id, staff_id, subject_id, batch_id, lecture_type, sub_batch, created_at)
VALUES (:id, :staff_id, :subject_id, :batch_id, :lecture_type, :sub_batch, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, assignment); err != nil {
		return fmt.Errorf("create assignment: %w", err)
	}
	return nil
}

// DeleteCascade removes the assignment's ledger rows, lecture counters and
// the assignment itself in one transaction.
func (r *AssignmentRepository) DeleteCascade(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete assignment: %w", err)
	}
	commit := false
	defer func() {
		if !commit {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM attendance_records WHERE assignment_id = $1`, id); err != nil {
		return fmt.Errorf("delete assignment records: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM lecture_counts WHERE assignment_id = $1`, id); err != nil {
		return fmt.Errorf("delete assignment lecture counts: %w", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM assignments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	if err := expectAffected(result, "delete assignment"); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete assignment: %w", err)
	}
	commit = true
	return nil
}
