package repository

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/gradebook-backend/internal/model"
)

// HistoryRepository reads the grade audit trail. Writes happen only through
// GradeTx.AppendHistory so that they share the grade transaction.
type HistoryRepository struct {
	pool *pgxpool.Pool
}

// NewHistoryRepository creates a new HistoryRepository.
func NewHistoryRepository(pool *pgxpool.Pool) *HistoryRepository {
	return &HistoryRepository{pool: pool}
}

const historyColumns = `id, grade_id, student_id, subject, old_value, new_value, action, timestamp, changed_by`

func insertHistory(ctx context.Context, q DBTX, h *model.GradeHistory) error {
	return mapErr(q.QueryRow(ctx,
		`INSERT INTO grade_history (grade_id, student_id, subject, old_value, new_value, action, timestamp, changed_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id`,
		h.GradeID, h.StudentID, h.Subject, h.OldValue, h.NewValue, string(h.Action), h.Timestamp, h.ChangedBy,
	).Scan(&h.ID))
}

func collectHistory(rows pgx.Rows) ([]model.GradeHistory, error) {
	defer rows.Close()
	out := make([]model.GradeHistory, 0)
	for rows.Next() {
		var h model.GradeHistory
		var action string
		if err := rows.Scan(&h.ID, &h.GradeID, &h.StudentID, &h.Subject, &h.OldValue, &h.NewValue,
			&action, &h.Timestamp, &h.ChangedBy); err != nil {
			return nil, err
		}
		h.Action = model.HistoryAction(action)
		h.Timestamp = h.Timestamp.UTC()
		out = append(out, h)
	}
	return out, rows.Err()
}

// ListByGrade returns the history of one grade, newest first.
func (r *HistoryRepository) ListByGrade(ctx context.Context, gradeID int) ([]model.GradeHistory, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+historyColumns+` FROM grade_history WHERE grade_id = $1 ORDER BY id DESC`, gradeID)
	if err != nil {
		return nil, err
	}
	return collectHistory(rows)
}

// ListByStudent returns a student's history, newest first, optionally
// narrowed to one subject and a timestamp window.
func (r *HistoryRepository) ListByStudent(ctx context.Context, studentID int, q model.StudentHistoryQuery) ([]model.GradeHistory, error) {
	var w whereBuilder
	w.add("student_id = $%d", studentID)
	if q.Subject != "" {
		w.add("subject = $%d", q.Subject)
	}
	if q.StartDate != nil {
		w.add("timestamp >= $%d", *q.StartDate)
	}
	if q.EndDate != nil {
		w.add("timestamp <= $%d", *q.EndDate)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+historyColumns+` FROM grade_history`+w.sql()+` ORDER BY timestamp DESC, id DESC`, w.args...)
	if err != nil {
		return nil, err
	}
	return collectHistory(rows)
}

// List returns one page of the global history plus the total match count.
func (r *HistoryRepository) List(ctx context.Context, q model.HistoryListQuery) ([]model.GradeHistory, int, error) {
	var w whereBuilder
	if q.StartDate != nil {
		w.add("timestamp >= $%d", *q.StartDate)
	}
	if q.EndDate != nil {
		w.add("timestamp <= $%d", *q.EndDate)
	}
	if q.Action != "" {
		w.add("action = $%d", string(q.Action))
	}
	if q.StudentID != nil {
		w.add("student_id = $%d", *q.StudentID)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM grade_history`+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limitIdx := w.next()
	args := append(w.args, q.Limit, q.Offset())
	rows, err := r.pool.Query(ctx,
		`SELECT `+historyColumns+` FROM grade_history`+w.sql()+
			` ORDER BY timestamp DESC, id DESC LIMIT $`+strconv.Itoa(limitIdx)+` OFFSET $`+strconv.Itoa(limitIdx+1),
		args...)
	if err != nil {
		return nil, 0, err
	}
	items, err := collectHistory(rows)
	return items, total, err
}
