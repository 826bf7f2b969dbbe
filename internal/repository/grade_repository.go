package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/gradebook-backend/internal/model"
)

// GradeTx is the set of writes available inside a grade transaction.
// Every grade mutation and its history entry go through the same GradeTx.
type GradeTx interface {
	InsertGrade(ctx context.Context, g *model.Grade) error
	LockGrade(ctx context.Context, id int) (*model.Grade, error)
	UpdateGradeValue(ctx context.Context, id, value int) (*model.Grade, error)
	DeleteGrade(ctx context.Context, id int) error
	AppendHistory(ctx context.Context, h *model.GradeHistory) error
}

// GradeRepository handles grade data access.
type GradeRepository struct {
	pool *pgxpool.Pool
}

// NewGradeRepository creates a new GradeRepository.
func NewGradeRepository(pool *pgxpool.Pool) *GradeRepository {
	return &GradeRepository{pool: pool}
}

// InTx runs fn in a single transaction. The transaction commits when fn
// returns nil and rolls back otherwise, including on panic.
func (r *GradeRepository) InTx(ctx context.Context, fn func(tx GradeTx) error) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(&gradeTx{q: tx})
	})
}

const gradeColumns = `id, student_id, subject, grade, created_at, updated_at`

func scanGrade(row pgx.Row) (*model.Grade, error) {
	g := &model.Grade{}
	if err := row.Scan(&g.ID, &g.StudentID, &g.Subject, &g.Grade, &g.CreatedAt, &g.UpdatedAt); err != nil {
		return nil, mapErr(err)
	}
	return g, nil
}

// GetByID retrieves a grade by ID.
func (r *GradeRepository) GetByID(ctx context.Context, id int) (*model.Grade, error) {
	return scanGrade(r.pool.QueryRow(ctx,
		`SELECT `+gradeColumns+` FROM grades WHERE id = $1`, id))
}

// ListByStudent returns every grade of a student in insertion order.
func (r *GradeRepository) ListByStudent(ctx context.Context, studentID int) ([]model.Grade, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+gradeColumns+` FROM grades WHERE student_id = $1 ORDER BY id`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	grades := make([]model.Grade, 0)
	for rows.Next() {
		g, err := scanGrade(rows)
		if err != nil {
			return nil, err
		}
		grades = append(grades, *g)
	}
	return grades, rows.Err()
}

// gradeTx implements GradeTx over a pgx transaction.
type gradeTx struct {
	q DBTX
}

func (t *gradeTx) InsertGrade(ctx context.Context, g *model.Grade) error {
	err := t.q.QueryRow(ctx,
		`INSERT INTO grades (student_id, subject, grade)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at, updated_at`,
		g.StudentID, g.Subject, g.Grade,
	).Scan(&g.ID, &g.CreatedAt, &g.UpdatedAt)
	return mapErr(err)
}

// LockGrade reads a grade with a row lock held until the transaction ends.
func (t *gradeTx) LockGrade(ctx context.Context, id int) (*model.Grade, error) {
	return scanGrade(t.q.QueryRow(ctx,
		`SELECT `+gradeColumns+` FROM grades WHERE id = $1 FOR UPDATE`, id))
}

func (t *gradeTx) UpdateGradeValue(ctx context.Context, id, value int) (*model.Grade, error) {
	return scanGrade(t.q.QueryRow(ctx,
		`UPDATE grades SET grade = $2, updated_at = now()
		 WHERE id = $1
		 RETURNING `+gradeColumns, id, value))
}

func (t *gradeTx) DeleteGrade(ctx context.Context, id int) error {
	tag, err := t.q.Exec(ctx, `DELETE FROM grades WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *gradeTx) AppendHistory(ctx context.Context, h *model.GradeHistory) error {
	return insertHistory(ctx, t.q, h)
}
