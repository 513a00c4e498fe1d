package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/hard4j/bvp-attendance-api/internal/models"
	appErrors "github.com/hard4j/bvp-attendance-api/pkg/errors"
)

// StudentRepository persists students and their batch membership.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// ImportIntoBatch finds or creates each student by enrollment number,
// refreshes their details and links them to the batch in one transaction.
// A roll number already held in the batch by another student aborts the
// import with a conflict.
func (r *StudentRepository) ImportIntoBatch(ctx context.Context, batchID string, students []models.Student) (created, updated int, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("begin student import: %w", err)
	}
	commit := false
	defer func() {
		if !commit {
			_ = tx.Rollback()
		}
	}()

	const upsert = `INSERT INTO students (id, roll_no, enrollment_no, name, sub_batch, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $6)
ON CONFLICT (enrollment_no) DO UPDATE SET roll_no = EXCLUDED.roll_no, name = EXCLUDED.name,
    sub_batch = EXCLUDED.sub_batch, updated_at = EXCLUDED.updated_at
RETURNING id, (xmax = 0) AS inserted`
	const link = `INSERT INTO batch_students (batch_id, student_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	const rollTaken = `SELECT s.enrollment_no FROM students s
JOIN batch_students bs ON bs.student_id = s.id
WHERE bs.batch_id = $1 AND UPPER(TRIM(s.roll_no)) = UPPER(TRIM($2)) AND s.enrollment_no <> $3
LIMIT 1`

	now := time.Now().UTC()
	for i := range students {
		s := &students[i]
		var holder string
		err := tx.GetContext(ctx, &holder, rollTaken, batchID, s.RollNo, s.EnrollmentNo)
		switch {
		case err == nil:
			return 0, 0, appErrors.WithDetails(appErrors.ErrConflict, "roll number already used in the batch", map[string]string{
				"roll_no":       s.RollNo,
				"enrollment_no": holder,
			})
		case !errors.Is(err, sql.ErrNoRows):
			return 0, 0, fmt.Errorf("check roll %s: %w", s.RollNo, err)
		}
		var row struct {
			ID       string `db:"id"`
			Inserted bool   `db:"inserted"`
		}
		if err := tx.QueryRowxContext(ctx, upsert, uuid.NewString(), s.RollNo, s.EnrollmentNo, s.Name, s.SubBatch, now).StructScan(&row); err != nil {
			return 0, 0, fmt.Errorf("import student %s: %w", s.EnrollmentNo, err)
		}
		s.ID = row.ID
		if row.Inserted {
			created++
		} else {
			updated++
		}
		if _, err := tx.ExecContext(ctx, link, batchID, s.ID); err != nil {
			return 0, 0, fmt.Errorf("link student %s: %w", s.EnrollmentNo, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("commit student import: %w", err)
	}
	commit = true
	return created, updated, nil
}
