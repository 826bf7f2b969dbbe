package model

// StudentAverages is the per-subject and overall average of one student.
// OverallAverage is nil when the student has no grades.
type StudentAverages struct {
	StudentID       int                `json:"student_id"`
	SubjectAverages map[string]float64 `json:"subject_averages"`
	OverallAverage  *float64           `json:"overall_average"`
	TotalGrades     int                `json:"total_grades"`
}

// StudentAverage is one row of a course's per-student breakdown.
type StudentAverage struct {
	StudentID int      `json:"student_id"`
	Average   *float64 `json:"average"`
}

// CourseAverages aggregates the averages of every enrolled student.
type CourseAverages struct {
	CourseID        int                `json:"course_id"`
	CourseName      string             `json:"course_name"`
	StudentAverages []StudentAverage   `json:"student_averages"`
	SubjectAverages map[string]float64 `json:"subject_averages"`
	OverallAverage  *float64           `json:"overall_average"`
	TotalStudents   int                `json:"total_students"`
}
