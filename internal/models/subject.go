package models

import "time"

// Subject is a course offered by a department in a given semester.
type Subject struct {
	ID             string    `db:"id" json:"id"`
	CourseCode     string    `db:"course_code" json:"course_code"`
	DeptCode       string    `db:"dept_code" json:"dept_code"`
	SemesterNumber int       `db:"semester_number" json:"semester_number"`
	SubjectCode    string    `db:"subject_code" json:"subject_code"`
	SubjectName    string    `db:"subject_name" json:"subject_name"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// SubjectFilter scopes subject listings.
type SubjectFilter struct {
	DeptCode       string
	SemesterNumber int
	Search         string
}

// SubjectRequest creates or updates a subject.
type SubjectRequest struct {
	CourseCode     string `json:"course_code" validate:"required,max=32"`
	DeptCode       string `json:"dept_code" validate:"required,max=16"`
	SemesterNumber int    `json:"semester_number" validate:"required,min=1,max=12"`
	SubjectCode    string `json:"subject_code" validate:"required,max=32"`
	SubjectName    string `json:"subject_name" validate:"required,max=255"`
}
