package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/gradebook-backend/internal/model"
)

// EnrollmentRepository manages student-course membership rows.
type EnrollmentRepository struct {
	pool *pgxpool.Pool
}

// NewEnrollmentRepository creates a new EnrollmentRepository.
func NewEnrollmentRepository(pool *pgxpool.Pool) *EnrollmentRepository {
	return &EnrollmentRepository{pool: pool}
}

// Create inserts an enrollment. A repeated (student, course) pair yields
// ErrDuplicate; a missing course yields ErrReferenceMissing.
func (r *EnrollmentRepository) Create(ctx context.Context, e *model.Enrollment) error {
	return mapErr(r.pool.QueryRow(ctx,
		`INSERT INTO student_courses (student_id, course_id, added_by)
		 VALUES ($1, $2, $3)
		 RETURNING id, joined_at`,
		e.StudentID, e.CourseID, e.AddedBy,
	).Scan(&e.ID, &e.JoinedAt))
}

// Delete removes an enrollment and reports ErrNotFound when none existed.
func (r *EnrollmentRepository) Delete(ctx context.Context, studentID, courseID int) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM student_courses WHERE student_id = $1 AND course_id = $2`, studentID, courseID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// StudentIDs lists the students enrolled in a course, in enrollment order.
func (r *EnrollmentRepository) StudentIDs(ctx context.Context, courseID int) ([]int, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT student_id FROM student_courses WHERE course_id = $1 ORDER BY joined_at, id`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]int, 0)
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
