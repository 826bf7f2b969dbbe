package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/gradebook-backend/internal/config"
	"github.com/stemsi/gradebook-backend/internal/model"
)

// HistoryWriter appends audit entries. Implemented by repository.GradeTx so
// the entry shares the grade write's transaction.
type HistoryWriter interface {
	AppendHistory(ctx context.Context, h *model.GradeHistory) error
}

// HistoryRecorder builds and appends grade history entries.
type HistoryRecorder struct {
	now func() time.Time
}

// NewHistoryRecorder creates a recorder that stamps entries with the wall clock.
func NewHistoryRecorder() *HistoryRecorder {
	return &HistoryRecorder{now: time.Now}
}

// WithClock returns a recorder using now for timestamps. Tests use it to pin time.
func (r *HistoryRecorder) WithClock(now func() time.Time) *HistoryRecorder {
	return &HistoryRecorder{now: now}
}

// Record appends one entry describing a mutation of grade. The recorder
// never overwrites: every call is a new row. Callers skip no-op updates.
func (r *HistoryRecorder) Record(ctx context.Context, w HistoryWriter, grade model.Grade,
	oldValue, newValue *int, action model.HistoryAction, changedBy *string) (*model.GradeHistory, error) {

	if !action.Valid() {
		return nil, fmt.Errorf("record history: unknown action %q", action)
	}
	switch action {
	case model.HistoryCreate:
		oldValue = nil
	case model.HistoryDelete:
		newValue = nil
	}

	entry := &model.GradeHistory{
		GradeID:   grade.ID,
		StudentID: grade.StudentID,
		Subject:   grade.Subject,
		OldValue:  oldValue,
		NewValue:  newValue,
		Action:    action,
		Timestamp: r.now().UTC(),
		ChangedBy: changedBy,
	}
	if err := w.AppendHistory(ctx, entry); err != nil {
		return nil, fmt.Errorf("append history: %w", err)
	}
	return entry, nil
}

// HistoryPublisher fans committed history entries out to live listeners.
// Publish is called only after the owning transaction commits.
type HistoryPublisher interface {
	Publish(ctx context.Context, entries ...model.GradeHistory)
}

// NopHistoryPublisher discards entries.
type NopHistoryPublisher struct{}

func (NopHistoryPublisher) Publish(context.Context, ...model.GradeHistory) {}

// RedisHistoryPublisher publishes entries as JSON on the grade history channel.
type RedisHistoryPublisher struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewRedisHistoryPublisher creates a new RedisHistoryPublisher.
func NewRedisHistoryPublisher(rdb *redis.Client, log zerolog.Logger) *RedisHistoryPublisher {
	return &RedisHistoryPublisher{
		rdb: rdb,
		log: log.With().Str("component", "history_publisher").Logger(),
	}
}

// Publish sends entries in one pipeline. Failures are logged, not returned:
// the audit row is already committed and the live feed is best effort.
func (p *RedisHistoryPublisher) Publish(ctx context.Context, entries ...model.GradeHistory) {
	if len(entries) == 0 {
		return
	}
	channel := config.CacheKey.GradeHistoryChannel()
	pipe := p.rdb.Pipeline()
	for i := range entries {
		data, err := json.Marshal(entries[i])
		if err != nil {
			p.log.Error().Err(err).Int64("history_id", entries[i].ID).Msg("Failed to encode history entry")
			continue
		}
		pipe.Publish(ctx, channel, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		p.log.Warn().Err(err).Int("count", len(entries)).Msg("Failed to publish history entries")
	}
}
