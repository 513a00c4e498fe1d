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

const staffColumns = `id, username, password_hash, full_name, created_at, updated_at`

// StaffRepository persists staff accounts.
type StaffRepository struct {
	db *sqlx.DB
}

// NewStaffRepository constructs the repository.
func NewStaffRepository(db *sqlx.DB) *StaffRepository {
	return &StaffRepository{db: db}
}

// List returns staff ordered by name.
func (r *StaffRepository) List(ctx context.Context) ([]models.Staff, error) {
	query := fmt.Sprintf("SELECT %s FROM staff ORDER BY full_name, username", staffColumns)
	var staff []models.Staff
	if err := r.db.SelectContext(ctx, &staff, query); err != nil {
		return nil, fmt.Errorf("list staff: %w", err)
	}
	return staff, nil
}

// FindByID fetches a staff member.
func (r *StaffRepository) FindByID(ctx context.Context, id string) (*models.Staff, error) {
	return r.findOne(ctx, "id", id)
}

// FindByUsername fetches a staff member by login name.
func (r *StaffRepository) FindByUsername(ctx context.Context, username string) (*models.Staff, error) {
	return r.findOne(ctx, "username", username)
}

func (r *StaffRepository) findOne(ctx context.Context, column, value string) (*models.Staff, error) {
	query := fmt.Sprintf("SELECT %s FROM staff WHERE %s = $1", staffColumns, column)
	var staff models.Staff
	if err := r.db.GetContext(ctx, &staff, query, value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find staff: %w", err)
	}
	return &staff, nil
}

// Create inserts a staff member.
func (r *StaffRepository) Create(ctx context.Context, staff *models.Staff) error {
	if staff.ID == "" {
		staff.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	staff.CreatedAt = now
	staff.UpdatedAt = now
	const query = `INSERT INTO staff (id, username, password_hash, full_name, created_at, updated_at)
VALUES (:id, :username, :password_hash, :full_name, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, staff); err != nil {
		return fmt.Errorf("create staff: %w", err)
	}
	return nil
}

// Update rewrites the staff profile and password hash.
func (r *StaffRepository) Update(ctx context.Context, staff *models.Staff) error {
	staff.UpdatedAt = time.Now().UTC()
	const query = `UPDATE staff SET username = :username, password_hash = :password_hash, full_name = :full_name, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, staff)
	if err != nil {
		return fmt.Errorf("update staff: %w", err)
	}
	return expectAffected(result, "update staff")
}

// Delete removes a staff member.
func (r *StaffRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM staff WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete staff: %w", err)
	}
	return expectAffected(result, "delete staff")
}
