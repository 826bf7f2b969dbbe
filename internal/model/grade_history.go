package model

import "time"

// HistoryAction is the kind of grade mutation a history entry records.
type HistoryAction string

const (
	HistoryCreate HistoryAction = "create"
	HistoryUpdate HistoryAction = "update"
	HistoryDelete HistoryAction = "delete"
)

// Valid reports whether a is one of the known actions.
func (a HistoryAction) Valid() bool {
	switch a {
	case HistoryCreate, HistoryUpdate, HistoryDelete:
		return true
	}
	return false
}

// GradeHistory is an immutable audit record of one grade mutation.
// OldValue is nil for creates and NewValue is nil for deletes.
type GradeHistory struct {
	ID        int64         `json:"id"`
	GradeID   int           `json:"grade_id"`
	StudentID int           `json:"student_id"`
	Subject   string        `json:"subject"`
	OldValue  *int          `json:"old_value"`
	NewValue  *int          `json:"new_value"`
	Action    HistoryAction `json:"action"`
	Timestamp time.Time     `json:"timestamp"`
	ChangedBy *string       `json:"changed_by"`
}

// StudentHistoryQuery filters one student's history.
type StudentHistoryQuery struct {
	Subject   string     `form:"subject" binding:"omitempty,max=100"`
	StartDate *time.Time `form:"start_date" time_format:"2006-01-02T15:04:05Z07:00"`
	EndDate   *time.Time `form:"end_date" time_format:"2006-01-02T15:04:05Z07:00"`
}

// MaxHistoryPage caps the page number so the OFFSET stays in range.
const MaxHistoryPage = 100000

// HistoryListQuery is the admin-wide history listing filter.
type HistoryListQuery struct {
	Page      int           `form:"page,default=1" binding:"min=1,max=100000"`
	Limit     int           `form:"limit,default=25" binding:"min=1,max=100"`
	StartDate *time.Time    `form:"start_date" time_format:"2006-01-02T15:04:05Z07:00"`
	EndDate   *time.Time    `form:"end_date" time_format:"2006-01-02T15:04:05Z07:00"`
	Action    HistoryAction `form:"action" binding:"omitempty,oneof=create update delete"`
	StudentID *int          `form:"student_id" binding:"omitempty,gt=0"`
}

// Offset is the number of rows skipped before this page.
func (q HistoryListQuery) Offset() int {
	return (min(max(q.Page, 1), MaxHistoryPage) - 1) * q.Limit
}

// HistoryPage is one page of the admin history listing.
type HistoryPage struct {
	Items []GradeHistory `json:"items"`
	Total int            `json:"total"`
	Page  int            `json:"page"`
	Pages int            `json:"pages"`
	Limit int            `json:"limit"`
}
