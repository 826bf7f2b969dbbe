package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stemsi/gradebook-backend/internal/config"
	"github.com/stemsi/gradebook-backend/internal/database"
	"github.com/stemsi/gradebook-backend/internal/handler"
	"github.com/stemsi/gradebook-backend/internal/model"
	"github.com/stemsi/gradebook-backend/internal/repository"
	"github.com/stemsi/gradebook-backend/internal/service"
)

type tokens map[string]*service.Claims

func (t tokens) ValidateToken(_ context.Context, token string) (*service.Claims, error) {
	if c, ok := t[token]; ok {
		return c, nil
	}
	return nil, service.ErrTokenInvalid
}

type discardActivity struct{}

func (discardActivity) Enqueue(context.Context, *model.ActivityLog) error { return nil }

// emptyGrades is a GradeStore with no grades.
type emptyGrades struct{}

func (emptyGrades) InTx(context.Context, func(tx repository.GradeTx) error) error {
	return repository.ErrNotFound
}

func (emptyGrades) GetByID(context.Context, int) (*model.Grade, error) {
	return nil, repository.ErrNotFound
}

func (emptyGrades) ListByStudent(context.Context, int) ([]model.Grade, error) {
	return nil, nil
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	errs := handler.NewErrorWriter(false, zerolog.Nop())
	grades := service.NewGradeService(emptyGrades{}, service.NewHistoryRecorder(), nil, nil, zerolog.Nop())
	handlers := &Handlers{
		Grade: handler.NewGradeHandler(grades, errs),
		System: handler.NewSystemHandler(func(context.Context) database.HealthStatus {
			return database.HealthStatus{Postgres: "ok", Redis: "ok"}
		}),
	}
	deps := Dependencies{
		Tokens: tokens{
			"admin":    {UserID: 1, Email: "admin@school.test", Roles: []string{"admin"}},
			"teacher":  {UserID: 2, Email: "teacher@school.test", Roles: []string{"teacher"}},
			"student5": {UserID: 5, Email: "s5@school.test", Roles: []string{"student"}},
			"no-roles": {UserID: 9, Email: "none@school.test"},
		},
		Activity: discardActivity{},
		Log:      zerolog.Nop(),
	}
	return SetupRouter(ctx, deps, handlers, &config.Config{GinMode: "test"})
}

func TestRouteAuthorization(t *testing.T) {
	r := newTestRouter(t)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		status int
	}{
		{"health is public", http.MethodGet, "/health", "", http.StatusOK},
		{"no token", http.MethodGet, "/api/v1/grades/1", "", http.StatusUnauthorized},
		{"bad token", http.MethodGet, "/api/v1/grades/1", "forged", http.StatusUnauthorized},
		{"teacher reads grade", http.MethodGet, "/api/v1/grades/1", "teacher", http.StatusNotFound},
		{"admin reads grade", http.MethodGet, "/api/v1/grades/1", "admin", http.StatusNotFound},
		{"student cannot read grade by id", http.MethodGet, "/api/v1/grades/1", "student5", http.StatusForbidden},
		{"student cannot update grade", http.MethodPut, "/api/v1/grades/1", "student5", http.StatusForbidden},
		{"student cannot upload", http.MethodPost, "/api/v1/grades/upload", "student5", http.StatusForbidden},
		{"student reads own grades", http.MethodGet, "/api/v1/grades/student/5", "student5", http.StatusOK},
		{"student cannot read others", http.MethodGet, "/api/v1/grades/student/6", "student5", http.StatusForbidden},
		{"teacher reads any student", http.MethodGet, "/api/v1/grades/student/6", "teacher", http.StatusOK},
		{"roleless user", http.MethodGet, "/api/v1/grades/student/9", "no-roles", http.StatusForbidden},
		{"teacher cannot use admin", http.MethodGet, "/api/v1/admin/activity", "teacher", http.StatusForbidden},
		{"student cannot create students", http.MethodPost, "/api/v1/students", "student5", http.StatusForbidden},
		{"teacher cannot delete students", http.MethodDelete, "/api/v1/students/5", "teacher", http.StatusForbidden},
		{"student cannot stream history", http.MethodGet, "/ws/v1/grades/history?token=student5", "", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.status {
				t.Errorf("status = %d, want %d: %s", w.Code, tt.status, w.Body)
			}
		})
	}
}

func TestAuthRoutesAreNotCached(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", w.Code)
	}
	if got := w.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("Cache-Control = %q", got)
	}
}
