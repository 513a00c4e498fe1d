package models

import "time"

// LectureType distinguishes theory from practical and tutorial sessions.
type LectureType string

const (
	LectureTheory    LectureType = "TH"
	LecturePractical LectureType = "PR"
	LectureTutorial  LectureType = "TU"
)

// Valid returns true when the lecture type is supported.
func (t LectureType) Valid() bool {
	switch t {
	case LectureTheory, LecturePractical, LectureTutorial:
		return true
	default:
		return false
	}
}

// RequiresSubBatch is true for lecture types taught to a single group.
func (t LectureType) RequiresSubBatch() bool {
	return t == LecturePractical || t == LectureTutorial
}

// Assignment binds a staff member to teach a subject to a batch.
type Assignment struct {
	ID          string      `db:"id" json:"id"`
	StaffID     string      `db:"staff_id" json:"staff_id"`
	SubjectID   string      `db:"subject_id" json:"subject_id"`
	BatchID     string      `db:"batch_id" json:"batch_id"`
	LectureType LectureType `db:"lecture_type" json:"lecture_type"`
	SubBatch    *int        `db:"sub_batch" json:"sub_batch,omitempty"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
}

// AssignmentDetail enriches assignments with descriptive fields.
type AssignmentDetail struct {
	Assignment
	SubjectCode  string `db:"subject_code" json:"subject_code"`
	SubjectName  string `db:"subject_name" json:"subject_name"`
	DeptCode     string `db:"dept_code" json:"dept_code"`
	ClassName    string `db:"class_name" json:"class_name"`
	AcademicYear string `db:"academic_year" json:"academic_year"`
	Semester     int    `db:"semester" json:"semester"`
	StaffName    string `db:"staff_name" json:"staff_name"`
}

// AssignmentFilter scopes assignment listings.
type AssignmentFilter struct {
	DeptCode    string
	StaffID     string
	BatchID     string
	SubjectID   string
	LectureType LectureType
	SubBatch    *int
}

// AssignmentRequest creates an assignment.
type AssignmentRequest struct {
	StaffID     string `json:"staff_id" validate:"required,uuid4"`
	SubjectID   string `json:"subject_id" validate:"required,uuid4"`
	BatchID     string `json:"batch_id" validate:"required,uuid4"`
	LectureType string `json:"lecture_type" validate:"required,lecture_type"`
	SubBatch    *int   `json:"sub_batch" validate:"omitempty,min=1"`
}
