package model

import "time"

// Enrollment links a student to a course. A (student, course) pair is unique.
type Enrollment struct {
	ID        int       `json:"id"`
	StudentID int       `json:"student_id"`
	CourseID  int       `json:"course_id"`
	JoinedAt  time.Time `json:"joined_at"`
	AddedBy   *string   `json:"added_by"`
}

// EnrollmentResponse wraps a single enrollment with a confirmation message.
type EnrollmentResponse struct {
	Message    string     `json:"message"`
	Enrollment Enrollment `json:"enrollment"`
}

// BatchEnrollRequest adds several students to one course.
type BatchEnrollRequest struct {
	StudentIDs []int `json:"student_ids" binding:"required,min=1,max=1000,dive,gt=0"`
}

// EnrollFailure explains why one student of a batch was not enrolled.
type EnrollFailure struct {
	StudentID int    `json:"student_id"`
	Reason    string `json:"reason"`
}

// BatchEnrollResult is the outcome of a batch enrollment.
type BatchEnrollResult struct {
	Message    string          `json:"message"`
	Successful []int           `json:"successful"`
	Failed     []EnrollFailure `json:"failed"`
}
