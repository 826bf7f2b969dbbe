package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/gradebook-backend/internal/model"
	"github.com/stemsi/gradebook-backend/internal/response"
	"github.com/stemsi/gradebook-backend/internal/service"
)

type memCourseStore struct {
	created []model.Course
}

func (m *memCourseStore) Create(_ context.Context, c *model.Course) error {
	c.ID = len(m.created) + 1
	m.created = append(m.created, *c)
	return nil
}

func (*memCourseStore) GetByID(context.Context, int) (*model.Course, error) { return nil, nil }

func (*memCourseStore) List(context.Context, int, int) ([]model.Course, error) { return nil, nil }

func (*memCourseStore) ListByStudent(context.Context, int) ([]model.Course, error) { return nil, nil }

type noEnrollments struct{}

func (noEnrollments) Create(context.Context, *model.Enrollment) error { return nil }
func (noEnrollments) Delete(context.Context, int, int) error          { return nil }
func (noEnrollments) StudentIDs(context.Context, int) ([]int, error)  { return nil, nil }

func TestCreateCourseName(t *testing.T) {
	store := &memCourseStore{}
	h := NewCourseHandler(service.NewCourseService(store, noEnrollments{}, zerolog.Nop()), testErrors())
	r := gin.New()
	r.POST("/courses", h.CreateCourse)

	w := doJSON(r, http.MethodPost, "/courses", map[string]any{"name": "   "})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("blank name: status = %d, want 400: %s", w.Code, w.Body.String())
	}
	if code := errCode(t, w); code != response.ErrValidation {
		t.Errorf("blank name: code = %s, want %s", code, response.ErrValidation)
	}
	if len(store.created) != 0 {
		t.Fatal("blank course stored")
	}

	w = doJSON(r, http.MethodPost, "/courses", map[string]any{"name": " Physics "})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	env := decode[struct {
		Course model.Course `json:"course"`
	}](t, w)
	if env.Data.Course.Name != "Physics" {
		t.Errorf("name = %q, want %q", env.Data.Course.Name, "Physics")
	}
}
