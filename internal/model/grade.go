package model

import "time"

// Grade is a single subject score for one student.
type Grade struct {
	ID        int       `json:"id"`
	StudentID int       `json:"student_id"`
	Subject   string    `json:"subject"`
	Grade     int       `json:"grade"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GradeRecord is an untyped grade row as it arrives from a JSON body or an
// uploaded spreadsheet. Values are validated before they become a Grade.
type GradeRecord map[string]any

// UpdateGradeRequest is the payload for changing a grade value.
// The value is left untyped so that the grade validator reports type errors,
// including a missing value.
type UpdateGradeRequest struct {
	Grade any `json:"grade"`
}

// UploadRangeQuery carries the optional grade range for bulk uploads and templates.
type UploadRangeQuery struct {
	MinGrade *int   `form:"min_grade"`
	MaxGrade *int   `form:"max_grade"`
	Format   string `form:"format" binding:"omitempty,oneof=csv excel"`
}

// BulkUploadResponse summarizes a bulk grade import.
type BulkUploadResponse struct {
	TotalProcessed int      `json:"total_processed"`
	Successful     int      `json:"successful"`
	Failed         int      `json:"failed"`
	Errors         []string `json:"errors,omitempty"`
}
