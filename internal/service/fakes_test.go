package service

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/stemsi/gradebook-backend/internal/model"
	"github.com/stemsi/gradebook-backend/internal/repository"
)

var errDiskFull = errors.New("disk full")

// memGradeStore is an in-memory GradeStore with transactional rollback.
type memGradeStore struct {
	mu      sync.Mutex
	grades  map[int]model.Grade
	history []model.GradeHistory
	nextID  int
	nextHID int64

	// failInsertAt makes the Nth InsertGrade of a transaction fail (1-based).
	failInsertAt int
	// failHistory makes every AppendHistory fail.
	failHistory bool
}

func newMemGradeStore() *memGradeStore {
	return &memGradeStore{grades: map[int]model.Grade{}}
}

func (m *memGradeStore) InTx(ctx context.Context, fn func(tx repository.GradeTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memGradeTx{
		store:   m,
		grades:  maps.Clone(m.grades),
		history: slices.Clone(m.history),
		nextID:  m.nextID,
		nextHID: m.nextHID,
	}
	if err := fn(tx); err != nil {
		return err
	}
	m.grades, m.history, m.nextID, m.nextHID = tx.grades, tx.history, tx.nextID, tx.nextHID
	return nil
}

func (m *memGradeStore) GetByID(_ context.Context, id int) (*model.Grade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.grades[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &g, nil
}

func (m *memGradeStore) ListByStudent(_ context.Context, studentID int) ([]model.Grade, error) {
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

func (m *memGradeStore) historyFor(gradeID int) []model.GradeHistory {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.GradeHistory
	for _, h := range m.history {
		if h.GradeID == gradeID {
			out = append(out, h)
		}
	}
	return out
}

type memGradeTx struct {
	store   *memGradeStore
	grades  map[int]model.Grade
	history []model.GradeHistory
	nextID  int
	nextHID int64
	inserts int
}

func (t *memGradeTx) InsertGrade(_ context.Context, g *model.Grade) error {
	t.inserts++
	if t.store.failInsertAt > 0 && t.inserts == t.store.failInsertAt {
		return errDiskFull
	}
	t.nextID++
	g.ID = t.nextID
	g.CreatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	g.UpdatedAt = g.CreatedAt
	t.grades[g.ID] = *g
	return nil
}

func (t *memGradeTx) LockGrade(_ context.Context, id int) (*model.Grade, error) {
	g, ok := t.grades[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &g, nil
}

func (t *memGradeTx) UpdateGradeValue(_ context.Context, id, value int) (*model.Grade, error) {
	g, ok := t.grades[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	g.Grade = value
	t.grades[id] = g
	return &g, nil
}

func (t *memGradeTx) DeleteGrade(_ context.Context, id int) error {
	if _, ok := t.grades[id]; !ok {
		return repository.ErrNotFound
	}
	delete(t.grades, id)
	return nil
}

func (t *memGradeTx) AppendHistory(_ context.Context, h *model.GradeHistory) error {
	if t.store.failHistory {
		return errDiskFull
	}
	t.nextHID++
	h.ID = t.nextHID
	t.history = append(t.history, *h)
	return nil
}

// recordingPublisher captures published entries.
type recordingPublisher struct {
	mu      sync.Mutex
	entries []model.GradeHistory
}

func (p *recordingPublisher) Publish(_ context.Context, entries ...model.GradeHistory) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries = append(p.entries, entries...)
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// memCourses implements CourseStore, EnrollmentStore and the statistics readers.
type memCourses struct {
	mu          sync.Mutex
	courses     map[int]model.Course
	enrollments []model.Enrollment
	nextID      int
}

func newMemCourses(courses ...model.Course) *memCourses {
	m := &memCourses{courses: map[int]model.Course{}}
	for _, c := range courses {
		m.courses[c.ID] = c
		m.nextID = max(m.nextID, c.ID)
	}
	return m
}

func (m *memCourses) Create(_ context.Context, c *model.Course) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	c.ID = m.nextID
	m.courses[c.ID] = *c
	return nil
}

func (m *memCourses) GetByID(_ context.Context, id int) (*model.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.courses[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (m *memCourses) List(_ context.Context, skip, limit int) ([]model.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Course
	for _, id := range slices.Sorted(maps.Keys(m.courses)) {
		out = append(out, m.courses[id])
	}
	if skip >= len(out) {
		return []model.Course{}, nil
	}
	return out[skip:min(len(out), skip+limit)], nil
}

func (m *memCourses) ListByStudent(_ context.Context, studentID int) ([]model.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Course
	for _, e := range m.enrollments {
		if e.StudentID == studentID {
			out = append(out, m.courses[e.CourseID])
		}
	}
	return out, nil
}

// enrollments implements EnrollmentStore over the same memCourses.
type memEnrollments struct{ *memCourses }

func (m memEnrollments) Create(_ context.Context, e *model.Enrollment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.courses[e.CourseID]; !ok {
		return repository.ErrReferenceMissing
	}
	for _, ex := range m.enrollments {
		if ex.StudentID == e.StudentID && ex.CourseID == e.CourseID {
			return repository.ErrDuplicate
		}
	}
	e.ID = len(m.enrollments) + 1
	m.enrollments = append(m.enrollments, *e)
	return nil
}

func (m memEnrollments) Delete(_ context.Context, studentID, courseID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, ex := range m.enrollments {
		if ex.StudentID == studentID && ex.CourseID == courseID {
			m.enrollments = slices.Delete(m.enrollments, i, i+1)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m memEnrollments) StudentIDs(_ context.Context, courseID int) ([]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := []int{}
	for _, e := range m.enrollments {
		if e.CourseID == courseID {
			ids = append(ids, e.StudentID)
		}
	}
	return ids, nil
}

func ptr[T any](v T) *T { return &v }
