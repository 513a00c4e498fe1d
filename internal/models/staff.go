package models

import "time"

// Staff is a teaching staff member who marks attendance.
type Staff struct {
	ID           string    `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	FullName     string    `db:"full_name" json:"full_name"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// StaffRequest creates or updates a staff member. An empty password keeps
// the current one on update and falls back to the default on create.
type StaffRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	FullName string `json:"full_name" validate:"required,max=255"`
	Password string `json:"password" validate:"omitempty,min=6"`
}

// HOD marks a staff member as head of a department.
type HOD struct {
	ID        string    `db:"id" json:"id"`
	StaffID   string    `db:"staff_id" json:"staff_id"`
	DeptCode  string    `db:"dept_code" json:"dept_code"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// HODDetail enriches the appointment with staff and department names.
type HODDetail struct {
	HOD
	Username string `db:"username" json:"username"`
	FullName string `db:"full_name" json:"full_name"`
	DeptName string `db:"dept_name" json:"dept_name"`
}

// HODAccount carries what the HOD login flow needs in a single row.
type HODAccount struct {
	Staff
	DeptCode string `db:"dept_code"`
}

// HODRequest appoints a staff member as head of a department.
type HODRequest struct {
	StaffID  string `json:"staff_id" validate:"required,uuid4"`
	DeptCode string `json:"dept_code" validate:"required,max=16"`
}
