package dto

import "github.com/hard4j/bvp-attendance-api/internal/models"

// LectureSlot is one assignment of a lecture type in a grouped listing.
type LectureSlot struct {
	AssignmentID string `json:"assignment_id"`
	SubBatch     *int   `json:"sub_batch,omitempty"`
}

// StaffSubjectAssignments groups a staff member's assignments by subject and
// batch for the marking screen.
type StaffSubjectAssignments struct {
	SubjectID    string                               `json:"subject_id"`
	SubjectCode  string                               `json:"subject_code"`
	SubjectName  string                               `json:"subject_name"`
	BatchID      string                               `json:"batch_id"`
	BatchName    string                               `json:"batch_name"`
	LectureTypes map[models.LectureType][]LectureSlot `json:"lecture_types"`
}

// StaffAssignmentsOverview lists every assignment of one staff member.
type StaffAssignmentsOverview struct {
	StaffID     string                    `json:"staff_id"`
	Username    string                    `json:"username"`
	FullName    string                    `json:"full_name"`
	Assignments []models.AssignmentDetail `json:"assignments"`
}

// RosterResponse is the resolved roster of an assignment.
type RosterResponse struct {
	Assignment models.AssignmentDetail `json:"assignment"`
	Students   []models.Student        `json:"students"`
}
