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
)

// HODRepository persists head-of-department appointments.
type HODRepository struct {
	db *sqlx.DB
}

// NewHODRepository constructs the repository.
func NewHODRepository(db *sqlx.DB) *HODRepository {
	return &HODRepository{db: db}
}

// List returns all appointments with staff and department names.
func (r *HODRepository) List(ctx context.Context) ([]models.HODDetail, error) {
	const query = `SELECT h.id, h.staff_id, h.dept_code, h.created_at, s.username, s.full_name, d.dept_name
FROM hods h
JOIN staff s ON s.id = h.staff_id
JOIN departments d ON d.dept_code = h.dept_code
ORDER BY h.dept_code`
	var hods []models.HODDetail
	if err := r.db.SelectContext(ctx, &hods, query); err != nil {
		return nil, fmt.Errorf("list hods: %w", err)
	}
	return hods, nil
}

// FindAccountByUsername loads the staff credential together with the
// department the staff member heads.
func (r *HODRepository) FindAccountByUsername(ctx context.Context, username string) (*models.HODAccount, error) {
	const query = `SELECT s.id, s.username, s.password_hash, s.full_name, s.created_at, s.updated_at, h.dept_code
FROM staff s
JOIN hods h ON h.staff_id = s.id
WHERE s.username = $1`
	var account models.HODAccount
	if err := r.db.GetContext(ctx, &account, query, username); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find hod account: %w", err)
	}
	return &account, nil
}

// Create appoints a HOD.
func (r *HODRepository) Create(ctx context.Context, hod *models.HOD) error {
	if hod.ID == "" {
		hod.ID = uuid.NewString()
	}
	hod.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO hods (id, staff_id, dept_code, created_at) VALUES (:id, :staff_id, :dept_code, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, hod); err != nil {
		return fmt.Errorf("create hod: %w", err)
	}
	return nil
}

// Delete removes an appointment.
func (r *HODRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM hods WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete hod: %w", err)
	}
	return expectAffected(result, "delete hod")
}
