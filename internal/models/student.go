package models

import "time"

// Student represents a learner. SubBatch is the practical/tutorial group
// number and is nil for students not split into groups.
type Student struct {
	ID           string    `db:"id" json:"id"`
	RollNo       string    `db:"roll_no" json:"roll_no"`
	EnrollmentNo string    `db:"enrollment_no" json:"enrollment_no"`
	Name         string    `db:"name" json:"name"`
	SubBatch     *int      `db:"sub_batch" json:"sub_batch,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// InSubBatch reports whether the student belongs to the given group.
func (s Student) InSubBatch(n int) bool {
	return s.SubBatch != nil && *s.SubBatch == n
}

// StudentRequest adds a student to a batch, creating the student when the
// enrollment number is new.
type StudentRequest struct {
	RollNo       string `json:"roll_no" validate:"required,max=32"`
	EnrollmentNo string `json:"enrollment_no" validate:"required,max=64"`
	Name         string `json:"name" validate:"required,max=255"`
	SubBatch     *int   `json:"sub_batch" validate:"omitempty,min=1"`
}

// StudentImportResult summarises a bulk roster upload.
type StudentImportResult struct {
	Created int              `json:"created"`
	Updated int              `json:"updated"`
	Linked  int              `json:"linked"`
	Skipped []ImportRowIssue `json:"skipped,omitempty"`
}

// ImportRowIssue explains why an uploaded row was ignored.
type ImportRowIssue struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}
