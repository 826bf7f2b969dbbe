package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/stemsi/gradebook-backend/internal/config"
	"github.com/stemsi/gradebook-backend/internal/model"
	"github.com/stemsi/gradebook-backend/internal/response"
)

// ActivityStore queries persisted activity records.
type ActivityStore interface {
	List(ctx context.Context, q model.ActivityQuery) ([]model.ActivityLog, int, error)
}

// ActivityService queues request audit records and serves the admin listing.
// Records are persisted asynchronously by worker.ActivityWorker.
type ActivityService struct {
	rdb  *redis.Client
	repo ActivityStore
}

// NewActivityService creates a new ActivityService.
func NewActivityService(rdb *redis.Client, repo ActivityStore) *ActivityService {
	return &ActivityService{rdb: rdb, repo: repo}
}

// Enqueue pushes a record onto the persistence queue.
func (s *ActivityService) Enqueue(ctx context.Context, entry *model.ActivityLog) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode activity: %w", err)
	}
	return s.rdb.RPush(ctx, config.WorkerKey.PersistActivityQueue, data).Err()
}

// List returns one page of activity records.
func (s *ActivityService) List(ctx context.Context, q model.ActivityQuery) ([]model.ActivityLog, *response.Pagination, error) {
	logs, total, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, nil, storageErr("list activity", err)
	}
	return logs, response.NewPagination(q.Page, q.PerPage, total), nil
}
