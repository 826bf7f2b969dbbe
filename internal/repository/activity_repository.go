package repository

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/gradebook-backend/internal/model"
)

// ActivityRepository persists and queries request audit records.
type ActivityRepository struct {
	pool *pgxpool.Pool
}

// NewActivityRepository creates a new ActivityRepository.
func NewActivityRepository(pool *pgxpool.Pool) *ActivityRepository {
	return &ActivityRepository{pool: pool}
}

var activityCopyColumns = []string{
	"user_id", "user_email", "timestamp", "action", "resource_type",
	"resource_id", "details", "ip_address", "user_agent", "status_code",
}

func activityValues(a *model.ActivityLog) []any {
	var details any
	if len(a.Details) > 0 {
		details = string(a.Details)
	}
	return []any{
		a.UserID, a.UserEmail, a.Timestamp, a.Action, a.ResourceType,
		a.ResourceID, details, a.IPAddress, a.UserAgent, a.StatusCode,
	}
}

// CopyMany bulk-inserts a batch with the COPY protocol.
func (r *ActivityRepository) CopyMany(ctx context.Context, batch []*model.ActivityLog) (int64, error) {
	return r.pool.CopyFrom(ctx,
		pgx.Identifier{"activity_logs"},
		activityCopyColumns,
		pgx.CopyFromSlice(len(batch), func(i int) ([]any, error) {
			return activityValues(batch[i]), nil
		}),
	)
}

// Insert writes a single record. Used when a COPY batch fails.
func (r *ActivityRepository) Insert(ctx context.Context, a *model.ActivityLog) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO activity_logs (user_id, user_email, timestamp, action, resource_type,
		                            resource_id, details, ip_address, user_agent, status_code)
		 VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8, $9, $10)`,
		activityValues(a)...,
	)
	return err
}

// List returns one page of activity, newest first, with the total match count.
func (r *ActivityRepository) List(ctx context.Context, q model.ActivityQuery) ([]model.ActivityLog, int, error) {
	var w whereBuilder
	if q.UserID != nil {
		w.add("user_id = $%d", *q.UserID)
	}
	if q.Action != "" {
		w.add("action = $%d", q.Action)
	}
	if q.ResourceType != "" {
		w.add("resource_type = $%d", q.ResourceType)
	}
	if q.StartDate != nil {
		w.add("timestamp >= $%d", *q.StartDate)
	}
	if q.EndDate != nil {
		w.add("timestamp <= $%d", *q.EndDate)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM activity_logs`+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	idx := w.next()
	args := append(w.args, q.PerPage, (q.Page-1)*q.PerPage)
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, user_email, timestamp, action, resource_type, resource_id,
		        details, COALESCE(ip_address, ''), COALESCE(user_agent, ''), COALESCE(status_code, 0)
		 FROM activity_logs`+w.sql()+
			` ORDER BY timestamp DESC, id DESC LIMIT $`+strconv.Itoa(idx)+` OFFSET $`+strconv.Itoa(idx+1),
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	logs := make([]model.ActivityLog, 0)
	for rows.Next() {
		var a model.ActivityLog
		var details []byte
		if err := rows.Scan(&a.ID, &a.UserID, &a.UserEmail, &a.Timestamp, &a.Action, &a.ResourceType,
			&a.ResourceID, &details, &a.IPAddress, &a.UserAgent, &a.StatusCode); err != nil {
			return nil, 0, err
		}
		a.Details = details
		logs = append(logs, a)
	}
	return logs, total, rows.Err()
}
