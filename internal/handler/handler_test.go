package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"maps"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/gradebook-backend/internal/model"
	"github.com/stemsi/gradebook-backend/internal/repository"
	"github.com/stemsi/gradebook-backend/internal/response"
	"github.com/stemsi/gradebook-backend/internal/validator"
)

func init() {
	gin.SetMode(gin.TestMode)
	validator.Setup()
}

var errConnReset = errors.New("connection reset")

// memGrades is an in-memory GradeStore with all-or-nothing transactions.
type memGrades struct {
	mu      sync.Mutex
	grades  map[int]model.Grade
	history []model.GradeHistory
	nextID  int
	fail    bool
}

func newMemGrades() *memGrades {
	return &memGrades{grades: map[int]model.Grade{}}
}

func (m *memGrades) InTx(ctx context.Context, fn func(tx repository.GradeTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errConnReset
	}
	tx := &memGradesTx{grades: maps.Clone(m.grades), history: slices.Clone(m.history), nextID: m.nextID}
	if err := fn(tx); err != nil {
		return err
	}
	m.grades, m.history, m.nextID = tx.grades, tx.history, tx.nextID
	return nil
}

func (m *memGrades) GetByID(_ context.Context, id int) (*model.Grade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.grades[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &g, nil
}

func (m *memGrades) ListByStudent(_ context.Context, studentID int) ([]model.Grade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Grade
	for _, id := range slices.Sorted(maps.Keys(m.grades)) {
		if g := m.grades[id]; g.StudentID == studentID {
			out = append(out, g)
		}
	}
	return out, nil
}

type memGradesTx struct {
	grades  map[int]model.Grade
	history []model.GradeHistory
	nextID  int
}

func (t *memGradesTx) InsertGrade(_ context.Context, g *model.Grade) error {
	t.nextID++
	g.ID = t.nextID
	t.grades[g.ID] = *g
	return nil
}

func (t *memGradesTx) LockGrade(_ context.Context, id int) (*model.Grade, error) {
	g, ok := t.grades[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &g, nil
}

func (t *memGradesTx) UpdateGradeValue(_ context.Context, id, value int) (*model.Grade, error) {
	g := t.grades[id]
	g.Grade = value
	t.grades[id] = g
	return &g, nil
}

func (t *memGradesTx) DeleteGrade(_ context.Context, id int) error {
	delete(t.grades, id)
	return nil
}

func (t *memGradesTx) AppendHistory(_ context.Context, h *model.GradeHistory) error {
	h.ID = int64(len(t.history) + 1)
	t.history = append(t.history, *h)
	return nil
}

// envelope decodes the response wrapper with a typed data payload.
type envelope[T any] struct {
	Data  T                   `json:"data"`
	Error *response.ErrorBody `json:"error"`
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) envelope[T] {
	t.Helper()
	var env envelope[T]
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return env
}

func errCode(t *testing.T, w *httptest.ResponseRecorder) response.ErrCode {
	t.Helper()
	env := decode[json.RawMessage](t, w)
	if env.Error == nil {
		return ""
	}
	return env.Error.Code
}

func doJSON(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			_ = json.NewEncoder(&buf).Encode(body)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func doUpload(r http.Handler, path, filename string, content []byte) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile("file", filename)
	_, _ = part.Write(content)
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func testErrors() *ErrorWriter {
	return NewErrorWriter(false, zerolog.Nop())
}
