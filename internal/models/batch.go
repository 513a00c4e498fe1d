package models

import (
	"fmt"
	"time"
)

// Batch is a cohort identified by department, class, academic year and semester.
type Batch struct {
	ID           string    `db:"id" json:"id"`
	DeptCode     string    `db:"dept_code" json:"dept_code"`
	ClassName    string    `db:"class_name" json:"class_name"`
	AcademicYear string    `db:"academic_year" json:"academic_year"`
	Semester     int       `db:"semester" json:"semester"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Label renders the human friendly batch name, e.g. "CO 3 (2024-25 Sem 5)".
func (b Batch) Label() string {
	return fmt.Sprintf("%s %s (%s Sem %d)", b.DeptCode, b.ClassName, b.AcademicYear, b.Semester)
}

// BatchSummary adds the roster size to a batch for list views.
type BatchSummary struct {
	Batch
	StudentCount int `db:"student_count" json:"student_count"`
}

// BatchDetail is a batch together with its ordered roster.
type BatchDetail struct {
	Batch
	Students []Student `json:"students"`
}

// BatchFilter scopes batch listings.
type BatchFilter struct {
	DeptCode     string
	AcademicYear string
	Semester     int
}

// BatchRequest creates a batch.
type BatchRequest struct {
	DeptCode     string `json:"dept_code" validate:"required,max=16"`
	ClassName    string `json:"class_name" validate:"required,max=64"`
	AcademicYear string `json:"academic_year" validate:"required,max=16"`
	Semester     int    `json:"semester" validate:"required,min=1,max=12"`
}
