package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/gradebook-backend/internal/config"
	"github.com/stemsi/gradebook-backend/internal/model"
	"github.com/stemsi/gradebook-backend/internal/response"
	"github.com/stemsi/gradebook-backend/internal/service"
	"github.com/stemsi/gradebook-backend/internal/spreadsheet"
	"github.com/stemsi/gradebook-backend/internal/validator"
)

// multipartOverhead is the slack allowed on top of the file limit for
// multipart boundaries and part headers.
const multipartOverhead = 64 << 10

// UploadHandler handles bulk grade upload and template download.
type UploadHandler struct {
	importService *service.ImportService
	cfg           *config.Config
	errs          *ErrorWriter
}

// NewUploadHandler creates a new UploadHandler.
func NewUploadHandler(importService *service.ImportService, cfg *config.Config, errs *ErrorWriter) *UploadHandler {
	return &UploadHandler{importService: importService, cfg: cfg, errs: errs}
}

// UploadGrades godoc
// POST /api/v1/grades/upload?min_grade=&max_grade=
// Imports grades from a CSV or XLSX file. Invalid rows are reported and
// skipped; valid rows are stored together.
func (h *UploadHandler) UploadGrades(c *gin.Context) {
	v, ok := h.rangeValidator(c)
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.MaxUploadBytes+multipartOverhead)
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.failTooLarge(c)
			return
		}
		response.Fail(c, http.StatusBadRequest, response.ErrFileRequired)
		return
	}
	defer file.Close()

	if header.Size > h.cfg.MaxUploadBytes {
		h.failTooLarge(c)
		return
	}
	if spreadsheet.DetectKind(header.Filename) == spreadsheet.KindUnknown {
		response.Fail(c, http.StatusBadRequest, response.ErrUnsupportedFile)
		return
	}

	table, err := spreadsheet.Parse(header.Filename, file)
	if err != nil {
		h.errs.Write(c, err)
		return
	}
	if missing := table.MissingColumns(spreadsheet.Columns...); len(missing) > 0 {
		response.FailWithMessage(c, http.StatusBadRequest, response.ErrParse,
			"Missing required columns: "+strings.Join(missing, ", "))
		return
	}
	if len(table.Rows) == 0 {
		response.FailWithMessage(c, http.StatusBadRequest, response.ErrParse, "File contains no data rows")
		return
	}
	if len(table.Rows) > h.cfg.MaxUploadRows {
		response.FailWithMessage(c, http.StatusBadRequest, response.ErrTooManyRows,
			fmt.Sprintf("File has %d rows; the limit is %d", len(table.Rows), h.cfg.MaxUploadRows))
		return
	}

	rows := make([]model.GradeRecord, len(table.Rows))
	for i, row := range table.Rows {
		rec := make(model.GradeRecord, len(row))
		for k, val := range row {
			rec[k] = val
		}
		rows[i] = rec
	}

	result, err := h.importService.BulkCreate(c.Request.Context(), rows, v, actor(c))
	if err != nil {
		h.errs.Write(c, err)
		return
	}

	response.Success(c, http.StatusOK, model.BulkUploadResponse{
		TotalProcessed: result.Total,
		Successful:     len(result.Created),
		Failed:         result.Failed(),
		Errors:         result.Errors,
	})
}

// DownloadTemplate godoc
// GET /api/v1/grades/upload/template?format=csv|excel&min_grade=&max_grade=
// Streams an upload template with the required header and sample rows.
func (h *UploadHandler) DownloadTemplate(c *gin.Context) {
	v, ok := h.rangeValidator(c)
	if !ok {
		return
	}

	format := spreadsheet.TemplateFormat(c.DefaultQuery("format", string(spreadsheet.TemplateCSV)))
	if format != spreadsheet.TemplateCSV && format != spreadsheet.TemplateExcel {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
			map[string]string{"format": "format must be one of [csv excel]"})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, format.Filename()))
	c.Header("Content-Type", format.ContentType())
	c.Status(http.StatusOK)
	if err := spreadsheet.WriteTemplate(c.Writer, format, v.Min(), v.Max()); err != nil {
		// Headers are already sent.
		_ = c.Error(err)
	}
}

// rangeValidator builds the validator for the request's min_grade/max_grade,
// falling back to the configured range for each bound left unset.
func (h *UploadHandler) rangeValidator(c *gin.Context) (*service.GradeValidator, bool) {
	var q model.UploadRangeQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return nil, false
	}

	lo, hi := h.cfg.MinGrade, h.cfg.MaxGrade
	if q.MinGrade != nil {
		lo = *q.MinGrade
	}
	if q.MaxGrade != nil {
		hi = *q.MaxGrade
	}
	v, err := service.NewGradeValidator(lo, hi)
	if err != nil {
		h.errs.Write(c, err)
		return nil, false
	}
	return v, true
}

func (h *UploadHandler) failTooLarge(c *gin.Context) {
	response.FailWithMessage(c, http.StatusRequestEntityTooLarge, response.ErrFileTooLarge,
		fmt.Sprintf("File exceeds the limit of %d bytes", h.cfg.MaxUploadBytes))
}
