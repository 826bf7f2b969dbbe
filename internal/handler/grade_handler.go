package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/gradebook-backend/internal/model"
	"github.com/stemsi/gradebook-backend/internal/response"
	"github.com/stemsi/gradebook-backend/internal/service"
)

// GradeHandler handles single-grade CRUD.
type GradeHandler struct {
	gradeService *service.GradeService
	errs         *ErrorWriter
}

// NewGradeHandler creates a new GradeHandler.
func NewGradeHandler(gradeService *service.GradeService, errs *ErrorWriter) *GradeHandler {
	return &GradeHandler{gradeService: gradeService, errs: errs}
}

// CreateGrade godoc
// POST /api/v1/grades
// Creates a grade and records its create history entry.
func (h *GradeHandler) CreateGrade(c *gin.Context) {
	var rec model.GradeRecord
	if err := c.ShouldBindJSON(&rec); err != nil || rec == nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return
	}

	grade, err := h.gradeService.CreateFromRecord(c.Request.Context(), rec, actor(c))
	if err != nil {
		h.errs.Write(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"grade": grade})
}

// GetGrade godoc
// GET /api/v1/grades/:id
func (h *GradeHandler) GetGrade(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	grade, err := h.gradeService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.errs.Write(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"grade": grade})
}

// UpdateGrade godoc
// PUT /api/v1/grades/:id
// Changes a grade's value. An unchanged value writes no history.
func (h *GradeHandler) UpdateGrade(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req model.UpdateGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
		return
	}

	grade, err := h.gradeService.Update(c.Request.Context(), id, req.Grade, actor(c))
	if err != nil {
		h.errs.Write(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"grade": grade})
}

// DeleteGrade godoc
// DELETE /api/v1/grades/:id
// Deletes a grade and returns its last state.
func (h *GradeHandler) DeleteGrade(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	grade, err := h.gradeService.Delete(c.Request.Context(), id, actor(c))
	if err != nil {
		h.errs.Write(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "grade deleted", "grade": grade})
}

// ListStudentGrades godoc
// GET /api/v1/grades/student/:student_id
func (h *GradeHandler) ListStudentGrades(c *gin.Context) {
	studentID, ok := paramID(c, "student_id")
	if !ok {
		return
	}

	grades, err := h.gradeService.ListByStudent(c.Request.Context(), studentID)
	if err != nil {
		h.errs.Write(c, err)
		return
	}
	if grades == nil {
		grades = []model.Grade{}
	}

	response.Success(c, http.StatusOK, gin.H{"grades": grades})
}
