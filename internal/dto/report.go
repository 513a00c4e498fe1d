package dto

// AttendanceReportQuery captures report filters from the query string.
type AttendanceReportQuery struct {
	AssignmentID string
	BatchID      string
	SubjectID    string
	LectureType  string
	SubBatch     *int
	From         string
	To           string
}

// DefaulterQuery selects a batch and threshold for the defaulter list.
type DefaulterQuery struct {
	BatchID   string
	Threshold *float64
	From      string
	To        string
}
