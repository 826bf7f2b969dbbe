package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/gradebook-backend/internal/model"
	"github.com/stemsi/gradebook-backend/internal/response"
	"github.com/stemsi/gradebook-backend/internal/service"
	"github.com/stemsi/gradebook-backend/internal/validator"
)

// AdminHandler serves the admin-only activity log and backup endpoints.
type AdminHandler struct {
	activityService *service.ActivityService
	backupService   *service.BackupService
	errs            *ErrorWriter
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(activityService *service.ActivityService, backupService *service.BackupService, errs *ErrorWriter) *AdminHandler {
	return &AdminHandler{activityService: activityService, backupService: backupService, errs: errs}
}

// ListActivity godoc
// GET /api/v1/admin/activity?page=&per_page=&user_id=&action=&resource_type=&start_date=&end_date=
func (h *AdminHandler) ListActivity(c *gin.Context) {
	var q model.ActivityQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	logs, pagination, err := h.activityService.List(c.Request.Context(), q)
	if err != nil {
		h.errs.Write(c, err)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"activity": nonNil(logs)}, pagination)
}

// CreateBackup godoc
// POST /api/v1/admin/backups
// Runs a backup now. Fails with 409 while another backup is running.
func (h *AdminHandler) CreateBackup(c *gin.Context) {
	info, err := h.backupService.Create(c.Request.Context())
	if err != nil {
		h.errs.Write(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"backup": info})
}

// ListBackups godoc
// GET /api/v1/admin/backups
func (h *AdminHandler) ListBackups(c *gin.Context) {
	backups, err := h.backupService.List()
	if err != nil {
		h.errs.Write(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"backups": backups})
}
