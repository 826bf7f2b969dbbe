package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/gradebook-backend/internal/response"
	"github.com/stemsi/gradebook-backend/internal/service"
)

// StatisticsHandler serves grade averages.
type StatisticsHandler struct {
	statsService *service.StatisticsService
	errs         *ErrorWriter
}

// NewStatisticsHandler creates a new StatisticsHandler.
func NewStatisticsHandler(statsService *service.StatisticsService, errs *ErrorWriter) *StatisticsHandler {
	return &StatisticsHandler{statsService: statsService, errs: errs}
}

// StudentAverages godoc
// GET /api/v1/students/:id/averages?course_id=
// Per-subject and overall averages for one student, optionally narrowed to
// the subjects of a course.
func (h *StatisticsHandler) StudentAverages(c *gin.Context) {
	studentID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var courseID *int
	if raw := c.Query("course_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil || id <= 0 {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
			return
		}
		courseID = &id
	}

	avg, err := h.statsService.StudentAverages(c.Request.Context(), studentID, courseID)
	if err != nil {
		h.errs.Write(c, err)
		return
	}

	response.Success(c, http.StatusOK, avg)
}

// CourseAverages godoc
// GET /api/v1/courses/:id/averages
func (h *StatisticsHandler) CourseAverages(c *gin.Context) {
	courseID, ok := paramID(c, "id")
	if !ok {
		return
	}

	avg, err := h.statsService.CourseAverages(c.Request.Context(), courseID)
	if err != nil {
		h.errs.Write(c, err)
		return
	}

	response.Success(c, http.StatusOK, avg)
}
