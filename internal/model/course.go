package model

import "time"

// Course is a teaching unit students enroll in.
type Course struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	TeacherID   *int      `json:"teacher_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreateCourseRequest is the payload for creating a course.
type CreateCourseRequest struct {
	Name        string  `json:"name" binding:"required,min=1,max=100"`
	Description *string `json:"description" binding:"omitempty,max=1000"`
	TeacherID   *int    `json:"teacher_id" binding:"omitempty,gt=0"`
}

// ListCoursesQuery is the skip/limit window for listing courses.
type ListCoursesQuery struct {
	Skip  int `form:"skip,default=0" binding:"min=0"`
	Limit int `form:"limit,default=100" binding:"min=1,max=500"`
}
