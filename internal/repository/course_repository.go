package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/gradebook-backend/internal/model"
)

// CourseRepository handles course data access.
type CourseRepository struct {
	pool *pgxpool.Pool
}

// NewCourseRepository creates a new CourseRepository.
func NewCourseRepository(pool *pgxpool.Pool) *CourseRepository {
	return &CourseRepository{pool: pool}
}

const courseColumns = `c.id, c.name, c.description, c.teacher_id, c.created_at`

func scanCourses(rows pgx.Rows) ([]model.Course, error) {
	defer rows.Close()
	courses := make([]model.Course, 0)
	for rows.Next() {
		var c model.Course
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.TeacherID, &c.CreatedAt); err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}

// Create inserts a new course.
func (r *CourseRepository) Create(ctx context.Context, c *model.Course) error {
	return mapErr(r.pool.QueryRow(ctx,
		`INSERT INTO courses (name, description, teacher_id)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		c.Name, c.Description, c.TeacherID,
	).Scan(&c.ID, &c.CreatedAt))
}

// GetByID retrieves a course by ID.
func (r *CourseRepository) GetByID(ctx context.Context, id int) (*model.Course, error) {
	c := &model.Course{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+courseColumns+` FROM courses c WHERE c.id = $1`, id,
	).Scan(&c.ID, &c.Name, &c.Description, &c.TeacherID, &c.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return c, nil
}

// List returns a skip/limit window of courses ordered by ID.
func (r *CourseRepository) List(ctx context.Context, skip, limit int) ([]model.Course, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+courseColumns+` FROM courses c ORDER BY c.id LIMIT $1 OFFSET $2`, limit, skip)
	if err != nil {
		return nil, err
	}
	return scanCourses(rows)
}

// ListByStudent returns the courses a student is enrolled in, in enrollment order.
func (r *CourseRepository) ListByStudent(ctx context.Context, studentID int) ([]model.Course, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+courseColumns+`
		 FROM courses c
		 JOIN student_courses sc ON sc.course_id = c.id
		 WHERE sc.student_id = $1
		 ORDER BY sc.joined_at, sc.id`, studentID)
	if err != nil {
		return nil, err
	}
	return scanCourses(rows)
}
