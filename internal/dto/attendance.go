package dto

import "github.com/hard4j/bvp-attendance-api/internal/models"

// MarkLectureRequest records one lecture instance for an assignment. Every
// roster student not listed in AbsentRolls is marked present.
type MarkLectureRequest struct {
	AssignmentID string   `json:"assignment_id" validate:"required,uuid4"`
	Date         string   `json:"date" validate:"omitempty,datetime=2006-01-02"`
	AbsentRolls  []string `json:"absent_rolls" validate:"omitempty,dive,max=32"`
}

// MarkLectureResponse summarises a reconciled marking event.
type MarkLectureResponse struct {
	AssignmentID  string   `json:"assignment_id"`
	Date          string   `json:"date"`
	LectureNumber int      `json:"lecture_number"`
	Present       int      `json:"present"`
	Absent        int      `json:"absent"`
	AbsentRolls   []string `json:"absent_rolls"`
}

// ValidateAbsenteesRequest checks roll numbers against an assignment roster.
type ValidateAbsenteesRequest struct {
	AssignmentID string   `json:"assignment_id" validate:"required,uuid4"`
	AbsentRolls  []string `json:"absent_rolls" validate:"omitempty,dive,max=32"`
}

// ValidateAbsenteesResponse splits the submitted rolls.
type ValidateAbsenteesResponse struct {
	Valid   []string `json:"valid"`
	Invalid []string `json:"invalid"`
}

// SessionQuery selects the ledger of a batch/subject/type on one date. An
// empty Date means today.
type SessionQuery struct {
	BatchID     string
	SubjectID   string
	LectureType models.LectureType
	Date        string
}

// SessionResponse lists each student's ledger for the day.
type SessionResponse struct {
	Date         string              `json:"date"`
	LecturesHeld map[string]int      `json:"lectures_held"`
	Rows         []models.SessionRow `json:"rows"`
}

// SessionCorrection overrides a student's result for a day.
type SessionCorrection struct {
	StudentID    string `json:"student_id" validate:"required,uuid4"`
	AssignmentID string `json:"assignment_id" validate:"required,uuid4"`
	Status       string `json:"status" validate:"required,oneof=present absent"`
}

// SessionUpdateRequest applies administrator corrections for one date.
type SessionUpdateRequest struct {
	Date    string              `json:"date" validate:"required,datetime=2006-01-02"`
	Changes []SessionCorrection `json:"changes" validate:"required,min=1,dive"`
}

// SessionUpdateResponse reports how many ledger rows were rewritten.
type SessionUpdateResponse struct {
	Date    string `json:"date"`
	Updated int    `json:"updated"`
}
