package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/gradebook-backend/internal/response"
	"github.com/stemsi/gradebook-backend/internal/service"
	"github.com/stemsi/gradebook-backend/internal/spreadsheet"
)

// ErrorWriter translates service errors into response envelopes.
type ErrorWriter struct {
	// Expose attaches internal error text to 5xx responses.
	Expose bool
	log    zerolog.Logger
}

// NewErrorWriter creates a new ErrorWriter.
func NewErrorWriter(expose bool, log zerolog.Logger) *ErrorWriter {
	return &ErrorWriter{Expose: expose, log: log.With().Str("component", "http").Logger()}
}

// Write sends the response matching err.
func (w *ErrorWriter) Write(c *gin.Context, err error) {
	if ve, ok := service.AsValidation(err); ok {
		fields := map[string]string{}
		if ve.Field != "" {
			fields[ve.Field] = ve.Message
		}
		response.FailWithDetails(c, http.StatusBadRequest, response.ErrValidation, ve.Message, fields)
		return
	}

	switch {
	case errors.Is(err, service.ErrInvalidRange):
		response.FailWithMessage(c, http.StatusBadRequest, response.ErrInvalidRange, service.ErrInvalidRange.Error())
	case errors.Is(err, service.ErrNotFound):
		response.FailWithMessage(c, http.StatusNotFound, response.ErrNotFound, detail(err, service.ErrNotFound, response.ErrNotFound))
	case errors.Is(err, service.ErrAlreadyEnrolled):
		response.FailWithMessage(c, http.StatusConflict, response.ErrAlreadyEnrolled, detail(err, service.ErrAlreadyEnrolled, response.ErrAlreadyEnrolled))
	case errors.Is(err, service.ErrConflict):
		response.FailWithMessage(c, http.StatusConflict, response.ErrConflict, detail(err, service.ErrConflict, response.ErrConflict))
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
	case errors.Is(err, service.ErrTokenExpired):
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenExpired)
	case errors.Is(err, service.ErrTokenRevoked):
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRevoked)
	case errors.Is(err, service.ErrTokenInvalid):
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
	case errors.Is(err, service.ErrBackupInProgress):
		response.Fail(c, http.StatusConflict, response.ErrBackupBusy)
	case errors.Is(err, spreadsheet.ErrUnsupportedFormat):
		response.Fail(c, http.StatusBadRequest, response.ErrUnsupportedFile)
	case errors.Is(err, spreadsheet.ErrParse):
		response.FailWithMessage(c, http.StatusBadRequest, response.ErrParse, err.Error())
	case errors.Is(err, service.ErrStorage):
		w.internal(c, response.ErrStorage, err)
	default:
		w.internal(c, response.ErrInternal, err)
	}
}

func (w *ErrorWriter) internal(c *gin.Context, code response.ErrCode, err error) {
	w.log.Error().Err(err).Str("route", c.FullPath()).Msg("Request failed")
	_ = c.Error(err)
	var debug string
	if w.Expose {
		debug = err.Error()
	}
	response.FailInternal(c, http.StatusInternalServerError, code, debug)
}

// detail strips the sentinel suffix from a wrapped domain error, falling
// back to the code's default message for a bare sentinel.
func detail(err, sentinel error, code response.ErrCode) string {
	if err == sentinel {
		return response.GetMessage(code)
	}
	return strings.TrimSuffix(err.Error(), ": "+sentinel.Error())
}
