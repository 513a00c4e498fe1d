package models

import "time"

// Department is keyed by its short code (CO, ME, ...).
type Department struct {
	DeptCode  string    `db:"dept_code" json:"dept_code"`
	DeptName  string    `db:"dept_name" json:"dept_name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// DepartmentRequest creates or renames a department.
type DepartmentRequest struct {
	DeptCode string `json:"dept_code" validate:"required,alphanum,max=16"`
	DeptName string `json:"dept_name" validate:"required,max=128"`
}
