package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/stemsi/gradebook-backend/internal/model"
	"github.com/stemsi/gradebook-backend/internal/repository"
)

// CourseStore persists courses.
type CourseStore interface {
	Create(ctx context.Context, c *model.Course) error
	GetByID(ctx context.Context, id int) (*model.Course, error)
	List(ctx context.Context, skip, limit int) ([]model.Course, error)
	ListByStudent(ctx context.Context, studentID int) ([]model.Course, error)
}

// EnrollmentStore persists student-course membership.
type EnrollmentStore interface {
	Create(ctx context.Context, e *model.Enrollment) error
	Delete(ctx context.Context, studentID, courseID int) error
	StudentIDs(ctx context.Context, courseID int) ([]int, error)
}

// CourseService manages courses and enrollments.
type CourseService struct {
	courses     CourseStore
	enrollments EnrollmentStore
	log         zerolog.Logger
}

// NewCourseService creates a new CourseService.
func NewCourseService(courses CourseStore, enrollments EnrollmentStore, log zerolog.Logger) *CourseService {
	return &CourseService{
		courses:     courses,
		enrollments: enrollments,
		log:         log.With().Str("component", "course_service").Logger(),
	}
}

// CreateCourse stores a new course. The name is trimmed and must not be blank.
func (s *CourseService) CreateCourse(ctx context.Context, req model.CreateCourseRequest) (*model.Course, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, &ValidationError{Kind: EmptyField, Field: "name", Message: "Course name cannot be empty"}
	}
	c := &model.Course{Name: name, Description: req.Description, TeacherID: req.TeacherID}
	if err := s.courses.Create(ctx, c); err != nil {
		return nil, storageErr("create course", err)
	}
	s.log.Info().Int("course_id", c.ID).Str("name", c.Name).Msg("Course created")
	return c, nil
}

// GetCourse returns one course or ErrNotFound.
func (s *CourseService) GetCourse(ctx context.Context, id int) (*model.Course, error) {
	c, err := s.courses.GetByID(ctx, id)
	if err != nil {
		return nil, storageErr("get course", err)
	}
	return c, nil
}

// ListCourses returns a skip/limit window of courses.
func (s *CourseService) ListCourses(ctx context.Context, skip, limit int) ([]model.Course, error) {
	courses, err := s.courses.List(ctx, skip, limit)
	if err != nil {
		return nil, storageErr("list courses", err)
	}
	return courses, nil
}

// Enroll adds a student to a course. Fails with ErrNotFound for an unknown
// course and ErrAlreadyEnrolled for a repeated pair.
func (s *CourseService) Enroll(ctx context.Context, studentID, courseID int, addedBy *string) (*model.Enrollment, error) {
	if _, err := s.courses.GetByID(ctx, courseID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("course with ID %d does not exist: %w", courseID, ErrNotFound)
		}
		return nil, storageErr("get course", err)
	}

	e := &model.Enrollment{StudentID: studentID, CourseID: courseID, AddedBy: addedBy}
	if err := s.enrollments.Create(ctx, e); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return nil, fmt.Errorf("student %d is already enrolled in course %d: %w", studentID, courseID, ErrAlreadyEnrolled)
		case errors.Is(err, repository.ErrReferenceMissing):
			// Course deleted between the lookup and the insert.
			return nil, fmt.Errorf("course with ID %d does not exist: %w", courseID, ErrNotFound)
		}
		return nil, storageErr("enroll", err)
	}
	return e, nil
}

// EnrollMany enrolls each student independently and reports per-student failures.
func (s *CourseService) EnrollMany(ctx context.Context, courseID int, studentIDs []int, addedBy *string) (*model.BatchEnrollResult, error) {
	if _, err := s.courses.GetByID(ctx, courseID); err != nil {
		return nil, storageErr("get course", err)
	}

	result := &model.BatchEnrollResult{Successful: []int{}, Failed: []model.EnrollFailure{}}
	for _, id := range studentIDs {
		if _, err := s.Enroll(ctx, id, courseID, addedBy); err != nil {
			if errors.Is(err, ErrStorage) {
				return nil, err
			}
			result.Failed = append(result.Failed, model.EnrollFailure{StudentID: id, Reason: reason(err)})
			continue
		}
		result.Successful = append(result.Successful, id)
	}
	result.Message = fmt.Sprintf("Added %d students to course %d", len(result.Successful), courseID)
	return result, nil
}

// Unenroll removes a student from a course, or fails with ErrNotFound.
func (s *CourseService) Unenroll(ctx context.Context, studentID, courseID int) error {
	if err := s.enrollments.Delete(ctx, studentID, courseID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("student %d is not enrolled in course %d: %w", studentID, courseID, ErrNotFound)
		}
		return storageErr("unenroll", err)
	}
	return nil
}

// ListStudents returns the IDs of students enrolled in a course.
func (s *CourseService) ListStudents(ctx context.Context, courseID int) ([]int, error) {
	ids, err := s.enrollments.StudentIDs(ctx, courseID)
	if err != nil {
		return nil, storageErr("list students", err)
	}
	return ids, nil
}

// ListCoursesForStudent returns the courses a student is enrolled in.
func (s *CourseService) ListCoursesForStudent(ctx context.Context, studentID int) ([]model.Course, error) {
	courses, err := s.courses.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, storageErr("list student courses", err)
	}
	return courses, nil
}

// reason strips the sentinel suffix from a wrapped domain error.
func reason(err error) string {
	msg := err.Error()
	for _, sentinel := range []error{ErrAlreadyEnrolled, ErrNotFound} {
		msg = strings.TrimSuffix(msg, ": "+sentinel.Error())
	}
	return msg
}
