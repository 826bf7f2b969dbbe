package service

import (
	"context"
	"strings"
	"time"

	"github.com/stemsi/gradebook-backend/internal/model"
	"github.com/stemsi/gradebook-backend/internal/response"
)

// StudentStore persists students.
type StudentStore interface {
	GetByID(ctx context.Context, id int) (*model.Student, error)
	ListPaginated(ctx context.Context, search string, limit, offset int) ([]model.Student, int, error)
	Create(ctx context.Context, s *model.Student) error
	Update(ctx context.Context, s *model.Student) error
	Delete(ctx context.Context, id int) error
}

// StudentService handles student business logic.
type StudentService struct {
	studentRepo StudentStore
}

// NewStudentService creates a new StudentService.
func NewStudentService(studentRepo StudentStore) *StudentService {
	return &StudentService{studentRepo: studentRepo}
}

// GetByID retrieves a student by ID.
func (s *StudentService) GetByID(ctx context.Context, id int) (*model.Student, error) {
	st, err := s.studentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, storageErr("get student", err)
	}
	return st, nil
}

// ListStudents retrieves students with pagination and optional search.
func (s *StudentService) ListStudents(ctx context.Context, q model.ListStudentsQuery) ([]model.Student, *response.Pagination, error) {
	offset := (q.Page - 1) * q.PerPage
	students, total, err := s.studentRepo.ListPaginated(ctx, strings.TrimSpace(q.Search), q.PerPage, offset)
	if err != nil {
		return nil, nil, storageErr("list students", err)
	}
	return students, response.NewPagination(q.Page, q.PerPage, total), nil
}

// Create inserts a new student. A taken email yields ErrConflict.
func (s *StudentService) Create(ctx context.Context, req model.CreateStudentRequest) (*model.Student, error) {
	st := &model.Student{Name: strings.TrimSpace(req.Name), Email: strings.ToLower(req.Email)}
	if req.DateOfBirth != "" {
		dob, err := parseDate(req.DateOfBirth)
		if err != nil {
			return nil, err
		}
		st.DateOfBirth = &dob
	}
	if err := s.studentRepo.Create(ctx, st); err != nil {
		return nil, storageErr("create student", err)
	}
	return st, nil
}

// Update applies the non-nil fields of req.
func (s *StudentService) Update(ctx context.Context, id int, req model.UpdateStudentRequest) (*model.Student, error) {
	st, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		st.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		st.Email = strings.ToLower(*req.Email)
	}
	if req.DateOfBirth != nil {
		if *req.DateOfBirth == "" {
			st.DateOfBirth = nil
		} else {
			dob, err := parseDate(*req.DateOfBirth)
			if err != nil {
				return nil, err
			}
			st.DateOfBirth = &dob
		}
	}
	if err := s.studentRepo.Update(ctx, st); err != nil {
		return nil, storageErr("update student", err)
	}
	return st, nil
}

// Delete removes a student record.
func (s *StudentService) Delete(ctx context.Context, id int) error {
	if err := s.studentRepo.Delete(ctx, id); err != nil {
		return storageErr("delete student", err)
	}
	return nil
}

func parseDate(raw string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, &ValidationError{Kind: InvalidType, Field: "date_of_birth",
			Message: "date_of_birth must be formatted as YYYY-MM-DD"}
	}
	return t, nil
}
