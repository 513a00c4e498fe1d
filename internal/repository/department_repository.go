package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/hard4j/bvp-attendance-api/internal/models"
)

// DepartmentRepository persists departments.
type DepartmentRepository struct {
	db *sqlx.DB
}

// NewDepartmentRepository constructs the repository.
func NewDepartmentRepository(db *sqlx.DB) *DepartmentRepository {
	return &DepartmentRepository{db: db}
}

// List returns every department ordered by code.
func (r *DepartmentRepository) List(ctx context.Context) ([]models.Department, error) {
	const query = `SELECT dept_code, dept_name, created_at, updated_at FROM departments ORDER BY dept_code`
	var departments []models.Department
	if err := r.db.SelectContext(ctx, &departments, query); err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	return departments, nil
}

// FindByCode fetches a department by its code.
func (r *DepartmentRepository) FindByCode(ctx context.Context, code string) (*models.Department, error) {
	const query = `SELECT dept_code, dept_name, created_at, updated_at FROM departments WHERE dept_code = $1`
	var department models.Department
	if err := r.db.GetContext(ctx, &department, query, code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find department: %w", err)
	}
	return &department, nil
}

// Create inserts a department.
func (r *DepartmentRepository) Create(ctx context.Context, department *models.Department) error {
	now := time.Now().UTC()
	department.CreatedAt = now
	department.UpdatedAt = now
	const query = `INSERT INTO departments (dept_code, dept_name, created_at, updated_at)
VALUES (:dept_code, :dept_name, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, department); err != nil {
		return fmt.Errorf("create department: %w", err)
	}
	return nil
}

// Update renames a department.
func (r *DepartmentRepository) Update(ctx context.Context, department *models.Department) error {
	department.UpdatedAt = time.Now().UTC()
	const query = `UPDATE departments SET dept_name = $2, updated_at = $3 WHERE dept_code = $1`
	result, err := r.db.ExecContext(ctx, query, department.DeptCode, department.DeptName, department.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update department: %w", err)
	}
	return expectAffected(result, "update department")
}

// Delete removes a department. Referenced departments fail with a foreign
// key violation.
func (r *DepartmentRepository) Delete(ctx context.Context, code string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM departments WHERE dept_code = $1`, code)
	if err != nil {
		return fmt.Errorf("delete department: %w", err)
	}
	return expectAffected(result, "delete department")
}

func expectAffected(result sql.Result, op string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows: %w", op, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
