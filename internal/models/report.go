package models

import "time"

// AttendanceScope selects the assignments a report aggregates over. Either
// AssignmentID is set, or BatchID, SubjectID and LectureType are.
type AttendanceScope struct {
	AssignmentID string
	BatchID      string
	SubjectID    string
	LectureType  LectureType
	SubBatch     *int
	From         time.Time
	To           time.Time
}

// StudentAttendance is one line of an attendance report.
type StudentAttendance struct {
	StudentID  string  `db:"student_id" json:"student_id"`
	RollNo     string  `db:"roll_no" json:"roll_no"`
	Name       string  `db:"name" json:"name"`
	SubBatch   *int    `db:"sub_batch" json:"sub_batch,omitempty"`
	Attended   int     `db:"attended" json:"attended"`
	Total      int     `db:"total" json:"total"`
	Percentage float64 `json:"percentage"`
}

// AttendanceReport wraps report lines with the resolved scope.
type AttendanceReport struct {
	Assignments []string            `json:"assignment_ids"`
	From        string              `json:"from"`
	To          string              `json:"to"`
	Students    []StudentAttendance `json:"students"`
}

// AssignmentLectureTotal is the lectures held for one assignment in a range.
type AssignmentLectureTotal struct {
	AssignmentID string `db:"assignment_id"`
	Total        int    `db:"total"`
}

// StudentAssignmentAttended is the lectures a student attended for one
// assignment in a range.
type StudentAssignmentAttended struct {
	StudentID    string `db:"student_id"`
	AssignmentID string `db:"assignment_id"`
	Attended     int    `db:"attended"`
}

// DefaulterReport lists students below the attendance threshold.
type DefaulterReport struct {
	BatchID    string              `json:"batch_id"`
	Threshold  float64             `json:"threshold"`
	From       string              `json:"from"`
	To         string              `json:"to"`
	Defaulters []StudentAttendance `json:"defaulters"`
}

// LectureDay is the number of lectures held for an assignment on a date.
type LectureDay struct {
	AssignmentID string    `db:"assignment_id"`
	Date         time.Time `db:"date"`
	Held         int       `db:"held"`
}

// StudentLectureDay is the number of lectures a student attended for an
// assignment on a date.
type StudentLectureDay struct {
	StudentID    string    `db:"student_id"`
	AssignmentID string    `db:"assignment_id"`
	Date         time.Time `db:"date"`
	Attended     int       `db:"attended"`
}

// HistoricalCell is a student's attendance on a single date.
type HistoricalCell struct {
	Attended int `json:"attended"`
	Held     int `json:"held"`
}

// HistoricalRow is a student's line in the day-by-day matrix.
type HistoricalRow struct {
	StudentAttendance
	Days map[string]HistoricalCell `json:"days"`
}

// HistoricalMatrix is the day-by-day attendance of a scope.
type HistoricalMatrix struct {
	From     string          `json:"from"`
	To       string          `json:"to"`
	Dates    []string        `json:"dates"`
	Held     map[string]int  `json:"held"`
	Students []HistoricalRow `json:"students"`
}
