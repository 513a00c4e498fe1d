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

// BatchRepository persists batches and their rosters.
type BatchRepository struct {
	db *sqlx.DB
}

// NewBatchRepository constructs the repository.
func NewBatchRepository(db *sqlx.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

// List returns batches with their student counts.
func (r *BatchRepository) List(ctx context.Context, filter models.BatchFilter) ([]models.BatchSummary, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.DeptCode != "" {
		args = append(args, filter.DeptCode)
		where = append(where, fmt.Sprintf("b.dept_code = $%d", len(args)))
	}
	if filter.AcademicYear != "" {
		args = append(args, filter.AcademicYear)
		where = append(where, fmt.Sprintf("b.academic_year = $%d", len(args)))
	}
	if filter.Semester > 0 {
		args = append(args, filter.Semester)
		where = append(where, fmt.Sprintf("b.semester = $%d", len(args)))
	}
	query := fmt.Sprintf(`SELECT b.id, b.dept_code, b.class_name, b.academic_year, b.semester, b.created_at, b.updated_at,
       COUNT(bs.student_id) AS student_count
FROM batches b
LEFT JOIN batch_students bs ON bs.batch_id = b.id
WHERE %s
GROUP BY b.id
ORDER BY b.academic_year DESC, b.dept_code, b.class_name`, strings.Join(where, " AND "))
	var batches []models.BatchSummary
	if err := r.db.SelectContext(ctx, &batches, query, args...); err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	return batches, nil
}

// FindByID fetches a batch.
func (r *BatchRepository) FindByID(ctx context.Context, id string) (*models.Batch, error) {
	const query = `SELECT id, dept_code, class_name, academic_year, semester, created_at, updated_at FROM batches WHERE id = $1`
	var batch models.Batch
	if err := r.db.GetContext(ctx, &batch, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find batch: %w", err)
	}
	return &batch, nil
}

// Create inserts a batch.
func (r *BatchRepository) Create(ctx context.Context, batch *models.Batch) error {
	if batch.ID == "" {
		batch.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	batch.CreatedAt = now
	batch.UpdatedAt = now
	const query = `INSERT INTO batches (id, dept_code, class_name, academic_year, semester, created_at, updated_at)
VALUES (:id, :dept_code, :class_name, :academic_year, :semester, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, batch); err != nil {
		return fmt.Errorf("create batch: %w", err)
	}
	return nil
}

// Delete removes a batch and its roster links.
func (r *BatchRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM batches WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete batch: %w", err)
	}
	return expectAffected(result, "delete batch")
}

// ListStudents returns the batch roster ordered by roll number.
func (r *BatchRepository) ListStudents(ctx context.Context, batchID string) ([]models.Student, error) {
	const query = `SELECT s.id, s.roll_no, s.enrollment_no, s.name, s.sub_batch, s.created_at, s.updated_at
FROM students s
JOIN batch_students bs ON bs.student_id = s.id
WHERE bs.batch_id = $1
ORDER BY s.roll_no`
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, batchID); err != nil {
		return nil, fmt.Errorf("list batch students: %w", err)
	}
	return students, nil
}

// RemoveStudent unlinks a student from a batch.
func (r *BatchRepository) RemoveStudent(ctx context.Context, batchID, studentID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM batch_students WHERE batch_id = $1 AND student_id = $2`, batchID, studentID)
	if err != nil {
		return fmt.Errorf("remove batch student: %w", err)
	}
	return expectAffected(result, "remove batch student")
}
