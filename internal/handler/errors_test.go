package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/gradebook-backend/internal/response"
	"github.com/stemsi/gradebook-backend/internal/service"
	"github.com/stemsi/gradebook-backend/internal/spreadsheet"
)

func writeErr(w *ErrorWriter, err error) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	w.Write(c, err)
	return rec
}

func TestErrorWriterMapping(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		code    response.ErrCode
		message string
	}{
		{"validation", &service.ValidationError{Kind: service.OutOfRange, Field: "grade", Message: "Grade must be between 0 and 100, got: 101"},
			http.StatusBadRequest, response.ErrValidation, "Grade must be between 0 and 100, got: 101"},
		{"invalid range", fmt.Errorf("%w: 5 > 1", service.ErrInvalidRange), http.StatusBadRequest, response.ErrInvalidRange, service.ErrInvalidRange.Error()},
		{"not found detail", fmt.Errorf("course 99 not found: %w", service.ErrNotFound), http.StatusNotFound, response.ErrNotFound, "course 99 not found"},
		{"bare not found", service.ErrNotFound, http.StatusNotFound, response.ErrNotFound, response.GetMessage(response.ErrNotFound)},
		{"already enrolled", fmt.Errorf("student 2 is already enrolled in course 1: %w", service.ErrAlreadyEnrolled),
			http.StatusConflict, response.ErrAlreadyEnrolled, "student 2 is already enrolled in course 1"},
		{"conflict", fmt.Errorf("create user: %w", service.ErrConflict), http.StatusConflict, response.ErrConflict, "create user"},
		{"credentials", service.ErrInvalidCredentials, http.StatusUnauthorized, response.ErrInvalidCredentials, ""},
		{"expired", service.ErrTokenExpired, http.StatusUnauthorized, response.ErrTokenExpired, ""},
		{"revoked", service.ErrTokenRevoked, http.StatusUnauthorized, response.ErrTokenRevoked, ""},
		{"backup busy", service.ErrBackupInProgress, http.StatusConflict, response.ErrBackupBusy, ""},
		{"unsupported file", spreadsheet.ErrUnsupportedFormat, http.StatusBadRequest, response.ErrUnsupportedFile, ""},
		{"parse", &spreadsheet.ParseError{Msg: "Invalid CSV format: bare quote"}, http.StatusBadRequest, response.ErrParse, "Invalid CSV format: bare quote"},
		{"storage", fmt.Errorf("bulk create: %w: %v", service.ErrStorage, errConnReset), http.StatusInternalServerError, response.ErrStorage, ""},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, response.ErrInternal, ""},
	}
	w := NewErrorWriter(false, zerolog.Nop())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := writeErr(w, tt.err)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			env := decode[any](t, rec)
			if env.Error == nil || env.Error.Code != tt.code {
				t.Fatalf("error = %+v, want code %s", env.Error, tt.code)
			}
			if tt.message != "" && env.Error.Message != tt.message {
				t.Errorf("message = %q, want %q", env.Error.Message, tt.message)
			}
			if env.Error.Debug != "" {
				t.Errorf("debug leaked: %q", env.Error.Debug)
			}
		})
	}
}

func TestErrorWriterExpose(t *testing.T) {
	w := NewErrorWriter(true, zerolog.Nop())

	rec := writeErr(w, errors.New("relation \"grades\" does not exist"))
	env := decode[any](t, rec)
	if env.Error.Debug != `relation "grades" does not exist` {
		t.Errorf("debug = %q", env.Error.Debug)
	}

	rec = writeErr(w, service.ErrNotFound)
	if decode[any](t, rec).Error.Debug != "" {
		t.Error("4xx responses never carry debug text")
	}
}
