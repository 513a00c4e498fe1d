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

const subjectColumns = `id, course_code, dept_code, semester_number, subject_code, subject_name, created_at, updated_at`

// SubjectRepository persists subjects.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository constructs the repository.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

// List returns subjects matching the filter ordered by semester and code.
func (r *SubjectRepository) List(ctx context.Context, filter models.SubjectFilter) ([]models.Subject, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.DeptCode != "" {
		args = append(args, filter.DeptCode)
		where = append(where, fmt.Sprintf("dept_code = $%d", len(args)))
	}
	if filter.SemesterNumber > 0 {
		args = append(args, filter.SemesterNumber)
		where = append(where, fmt.Sprintf("semester_number = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		where = append(where, fmt.Sprintf("(LOWER(subject_name) LIKE $%d OR LOWER(subject_code) LIKE $%d)", len(args), len(args)))
	}
	query := fmt.Sprintf("SELECT %s FROM subjects WHERE %s ORDER BY semester_number, subject_code", subjectColumns, strings.Join(where, " AND "))
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query, args...); err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return subjects, nil
}

// ListByBatch returns the distinct subjects that have an assignment for a batch.
func (r *SubjectRepository) ListByBatch(ctx context.Context, batchID string) ([]models.Subject, error) {
	const query = `SELECT DISTINCT s.id, s.course_code, s.dept_code, s.semester_number, s.subject_code, s.subject_name, s.created_at, s.updated_at
FROM subjects s
JOIN assignments a ON a.subject_id = s.id
WHERE a.batch_id = $1
ORDER BY s.subject_code`
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query, batchID); err != nil {
		return nil, fmt.Errorf("list subjects by batch: %w", err)
	}
	return subjects, nil
}

// FindByID fetches a subject.
func (r *SubjectRepository) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	query := fmt.Sprintf("SELECT %s FROM subjects WHERE id = $1", subjectColumns)
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find subject: %w", err)
	}
	return &subject, nil
}

// Create inserts a subject.
func (r *SubjectRepository) Create(ctx context.Context, subject *models.Subject) error {
	if subject.ID == "" {
		subject.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	subject.CreatedAt = now
	subject.UpdatedAt = now
	const query = `INSERT INTO subjects (id, course_code, dept_code, semester_number, subject_code, subject_name, created_at, updated_at)
VALUES (:id, :course_code, :dept_code, :semester_number, :subject_code, :subject_name, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, subject); err != nil {
		return fmt.Errorf("create subject: %w", err)
	}
	return nil
}

// Update rewrites a subject.
func (r *SubjectRepository) Update(ctx context.Context, subject *models.Subject) error {
	subject.UpdatedAt = time.Now().UTC()
	const query = `UPDATE subjects SET course_code = :course_code, dept_code = :dept_code, semester_number = :semester_number,
subject_code = :subject_code, subject_name = :subject_name, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, subject)
	if err != nil {
		return fmt.Errorf("update subject: %w", err)
	}
	return expectAffected(result, "update subject")
}

// Delete removes a subject.
func (r *SubjectRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM subjects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete subject: %w", err)
	}
	return expectAffected(result, "delete subject")
}
