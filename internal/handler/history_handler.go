package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/gradebook-backend/internal/model"
	"github.com/stemsi/gradebook-backend/internal/response"
	"github.com/stemsi/gradebook-backend/internal/service"
	"github.com/stemsi/gradebook-backend/internal/validator"
)

// HistoryHandler serves grade audit history.
type HistoryHandler struct {
	historyService *service.HistoryService
	errs           *ErrorWriter
}

// NewHistoryHandler creates a new HistoryHandler.
func NewHistoryHandler(historyService *service.HistoryService, errs *ErrorWriter) *HistoryHandler {
	return &HistoryHandler{historyService: historyService, errs: errs}
}

// GradeHistory godoc
// GET /api/v1/grades/:id/history
// Returns every change to one grade, newest first. Entries outlive the grade.
func (h *HistoryHandler) GradeHistory(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	entries, err := h.historyService.ForGrade(c.Request.Context(), id)
	if err != nil {
		h.errs.Write(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"history": nonNil(entries)})
}

// StudentHistory godoc
// GET /api/v1/students/:id/grades/history?subject=&start_date=&end_date=
func (h *HistoryHandler) StudentHistory(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var q model.StudentHistoryQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	entries, err := h.historyService.ForStudent(c.Request.Context(), id, q)
	if err != nil {
		h.errs.Write(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"history": nonNil(entries)})
}

// ListHistory godoc
// GET /api/v1/admin/grades/history?page=&limit=&start_date=&end_date=&action=&student_id=
// Pages through the whole audit trail.
func (h *HistoryHandler) ListHistory(c *gin.Context) {
	var q model.HistoryListQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	page, err := h.historyService.Page(c.Request.Context(), q)
	if err != nil {
		h.errs.Write(c, err)
		return
	}
	page.Items = nonNil(page.Items)

	response.Success(c, http.StatusOK, page)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
