package repository

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/gradebook-backend/internal/model"
)

// StudentRepository handles student data access.
type StudentRepository struct {
	pool *pgxpool.Pool
}

// NewStudentRepository creates a new StudentRepository.
func NewStudentRepository(pool *pgxpool.Pool) *StudentRepository {
	return &StudentRepository{pool: pool}
}

const studentColumns = `id, name, email, date_of_birth, created_at, updated_at`

// GetByID retrieves a student by ID.
func (r *StudentRepository) GetByID(ctx context.Context, id int) (*model.Student, error) {
	s := &model.Student{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+studentColumns+` FROM students WHERE id = $1`, id,
	).Scan(&s.ID, &s.Name, &s.Email, &s.DateOfBirth, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return s, nil
}

// ListPaginated retrieves students with pagination and an optional
// case-insensitive search over name and email.
func (r *StudentRepository) ListPaginated(ctx context.Context, search string, limit, offset int) ([]model.Student, int, error) {
	var w whereBuilder
	if search != "" {
		w.add("(name ILIKE $%[1]d OR email ILIKE $%[1]d)", "%"+search+"%")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM students`+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	idx := w.next()
	args := append(w.args, limit, offset)
	rows, err := r.pool.Query(ctx,
		`SELECT `+studentColumns+` FROM students`+w.sql()+
			` ORDER BY name, id LIMIT $`+strconv.Itoa(idx)+` OFFSET $`+strconv.Itoa(idx+1), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	students := make([]model.Student, 0)
	for rows.Next() {
		var s model.Student
		if err := rows.Scan(&s.ID, &s.Name, &s.Email, &s.DateOfBirth, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, 0, err
		}
		students = append(students, s)
	}
	return students, total, rows.Err()
}

// Create inserts a new student. A taken email yields ErrDuplicate.
func (r *StudentRepository) Create(ctx context.Context, s *model.Student) error {
	return mapErr(r.pool.QueryRow(ctx,
		`INSERT INTO students (name, email, date_of_birth)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at, updated_at`,
		s.Name, s.Email, s.DateOfBirth,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt))
}

// Update overwrites a student's fields.
func (r *StudentRepository) Update(ctx context.Context, s *model.Student) error {
	return mapErr(r.pool.QueryRow(ctx,
		`UPDATE students SET name = $2, email = $3, date_of_birth = $4, updated_at = now()
		 WHERE id = $1
		 RETURNING updated_at`,
		s.ID, s.Name, s.Email, s.DateOfBirth,
	).Scan(&s.UpdatedAt))
}

// Delete removes a student. Grades keep their student_id.
func (r *StudentRepository) Delete(ctx context.Context, id int) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
