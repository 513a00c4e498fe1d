package models

import "time"

// AttendanceMark is the outcome recorded for one student in one lecture.
type AttendanceMark string

const (
	MarkPresent AttendanceMark = "present"
	MarkAbsent  AttendanceMark = "absent"
)

// Valid returns true when the mark is a supported value.
func (m AttendanceMark) Valid() bool {
	return m == MarkPresent || m == MarkAbsent
}

// Credit is the number of lecture instances the mark contributes.
func (m AttendanceMark) Credit() int {
	if m == MarkPresent {
		return 1
	}
	return 0
}

// DateLayout is the wire and storage layout for attendance dates.
const DateLayout = "2006-01-02"

// DailyLectureCount is the number of lecture instances held for an
// assignment on a given date.
type DailyLectureCount struct {
	AssignmentID string    `db:"assignment_id" json:"assignment_id"`
	Date         time.Time `db:"date" json:"date"`
	Count        int       `db:"count" json:"count"`
}

// AttendanceRecord is the per-student ledger row for an assignment and date.
// Status holds the most recent mark only; LectureCount is the number of
// instances the student attended that day.
type AttendanceRecord struct {
	ID           string         `db:"id" json:"id"`
	AssignmentID string         `db:"assignment_id" json:"assignment_id"`
	StudentID    string         `db:"student_id" json:"student_id"`
	Date         time.Time      `db:"date" json:"date"`
	Status       AttendanceMark `db:"status" json:"status"`
	LectureCount int            `db:"lecture_count" json:"lecture_count"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// Ledger returns the reconciliation state held by the record.
func (r AttendanceRecord) Ledger() LedgerEntry {
	return LedgerEntry{LastMark: r.Status, Attended: r.LectureCount}
}

// LedgerEntry is the reconciliation state of one student for one assignment
// and date.
type LedgerEntry struct {
	LastMark AttendanceMark
	Attended int
}

// NextLedgerEntry applies a mark to the previous state. A nil previous
// state means no lecture has been recorded for the student yet that day.
// The attendance_records upsert in the repository applies the same rule.
func NextLedgerEntry(prev *LedgerEntry, mark AttendanceMark) LedgerEntry {
	if prev == nil {
		return LedgerEntry{LastMark: mark, Attended: mark.Credit()}
	}
	return LedgerEntry{LastMark: mark, Attended: prev.Attended + mark.Credit()}
}

// SessionRow is one student's ledger for a day, used by the session view.
type SessionRow struct {
	StudentID    string          `db:"student_id" json:"student_id"`
	RollNo       string          `db:"roll_no" json:"roll_no"`
	Name         string          `db:"name" json:"name"`
	SubBatch     *int            `db:"sub_batch" json:"sub_batch,omitempty"`
	AssignmentID string          `db:"assignment_id" json:"assignment_id"`
	Status       *AttendanceMark `db:"status" json:"status,omitempty"`
	LectureCount int             `db:"lecture_count" json:"lecture_count"`
}
