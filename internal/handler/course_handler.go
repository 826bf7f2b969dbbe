package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/gradebook-backend/internal/model"
	"github.com/stemsi/gradebook-backend/internal/response"
	"github.com/stemsi/gradebook-backend/internal/service"
	"github.com/stemsi/gradebook-backend/internal/validator"
)

// CourseHandler handles courses and enrollments.
type CourseHandler struct {
	courseService *service.CourseService
	errs          *ErrorWriter
}

// NewCourseHandler creates a new CourseHandler.
func NewCourseHandler(courseService *service.CourseService, errs *ErrorWriter) *CourseHandler {
	return &CourseHandler{courseService: courseService, errs: errs}
}

// CreateCourse godoc
// POST /api/v1/courses
func (h *CourseHandler) CreateCourse(c *gin.Context) {
	var req model.CreateCourseRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	course, err := h.courseService.CreateCourse(c.Request.Context(), req)
	if err != nil {
		h.errs.Write(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"course": course})
}

// ListCourses godoc
// GET /api/v1/courses?skip=&limit=
func (h *CourseHandler) ListCourses(c *gin.Context) {
	var q model.ListCoursesQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	courses, err := h.courseService.ListCourses(c.Request.Context(), q.Skip, q.Limit)
	if err != nil {
		h.errs.Write(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"courses": nonNil(courses)})
}

// GetCourse godoc
// GET /api/v1/courses/:id
func (h *CourseHandler) GetCourse(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	course, err := h.courseService.GetCourse(c.Request.Context(), id)
	if err != nil {
		h.errs.Write(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"course": course})
}

// Enroll godoc
// POST /api/v1/courses/:id/students/:student_id
func (h *CourseHandler) Enroll(c *gin.Context) {
	courseID, ok := paramID(c, "id")
	if !ok {
		return
	}
	studentID, ok := paramID(c, "student_id")
	if !ok {
		return
	}

	e, err := h.courseService.Enroll(c.Request.Context(), studentID, courseID, actor(c))
	if err != nil {
		h.errs.Write(c, err)
		return
	}

	response.Success(c, http.StatusCreated, model.EnrollmentResponse{
		Message:    fmt.Sprintf("Student %d enrolled in course %d", studentID, courseID),
		Enrollment: *e,
	})
}

// EnrollMany godoc
// POST /api/v1/courses/:id/students
// Enrolls a batch of students; per-student failures do not stop the batch.
func (h *CourseHandler) EnrollMany(c *gin.Context) {
	courseID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req model.BatchEnrollRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.courseService.EnrollMany(c.Request.Context(), courseID, req.StudentIDs, actor(c))
	if err != nil {
		h.errs.Write(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// Unenroll godoc
// DELETE /api/v1/courses/:id/students/:student_id
func (h *CourseHandler) Unenroll(c *gin.Context) {
	courseID, ok := paramID(c, "id")
	if !ok {
		return
	}
	studentID, ok := paramID(c, "student_id")
	if !ok {
		return
	}

	if err := h.courseService.Unenroll(c.Request.Context(), studentID, courseID); err != nil {
		h.errs.Write(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"message": fmt.Sprintf("Student %d removed from course %d", studentID, courseID),
	})
}

// ListCourseStudents godoc
// GET /api/v1/courses/:id/students
func (h *CourseHandler) ListCourseStudents(c *gin.Context) {
	courseID, ok := paramID(c, "id")
	if !ok {
		return
	}
	if _, err := h.courseService.GetCourse(c.Request.Context(), courseID); err != nil {
		h.errs.Write(c, err)
		return
	}

	ids, err := h.courseService.ListStudents(c.Request.Context(), courseID)
	if err != nil {
		h.errs.Write(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"course_id": courseID, "student_ids": nonNil(ids)})
}

// ListStudentCourses godoc
// GET /api/v1/students/:id/courses
// Students may only list their own courses.
func (h *CourseHandler) ListStudentCourses(c *gin.Context) {
	studentID, ok := paramID(c, "id")
	if !ok {
		return
	}

	courses, err := h.courseService.ListCoursesForStudent(c.Request.Context(), studentID)
	if err != nil {
		h.errs.Write(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"courses": nonNil(courses)})
}
