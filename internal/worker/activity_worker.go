package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/gradebook-backend/internal/config"
	"github.com/stemsi/gradebook-backend/internal/metrics"
	"github.com/stemsi/gradebook-backend/internal/model"
)

const (
	BatchSize    = 50
	BatchTimeout = 2 * time.Second
	PollTimeout  = 1 * time.Second // Must be >= 1s to satisfy Redis
)

// ActivitySink persists audit records. Implemented by repository.ActivityRepository.
type ActivitySink interface {
	CopyMany(ctx context.Context, batch []*model.ActivityLog) (int64, error)
	Insert(ctx context.Context, a *model.ActivityLog) error
}

// ActivityWorker drains the activity queue into Postgres in batches.
type ActivityWorker struct {
	sink ActivitySink
	rdb  *redis.Client
	log  zerolog.Logger

	// requeue pushes failed records back; replaced in tests.
	requeue func(ctx context.Context, items []*model.ActivityLog)
}

func NewActivityWorker(sink ActivitySink, rdb *redis.Client, log zerolog.Logger) *ActivityWorker {
	w := &ActivityWorker{
		sink: sink,
		rdb:  rdb,
		log:  log.With().Str("component", "activity_worker").Logger(),
	}
	w.requeue = w.requeueRedis
	return w
}

func (w *ActivityWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ActivityWorker started")

	buffer := make([]*model.ActivityLog, 0, BatchSize)
	lastFlushTime := time.Now()

	for {
		// 1. Flush on size or age
		if len(buffer) > 0 {
			if len(buffer) >= BatchSize || time.Since(lastFlushTime) >= BatchTimeout {
				w.flushSafe(ctx, buffer)
				buffer = buffer[:0]
				lastFlushTime = time.Now()
			}
		}

		// 2. Graceful shutdown
		select {
		case <-ctx.Done():
			w.shutdown(buffer)
			return
		default:
		}

		// 3. Fetch from Redis. BLPop returns immediately if data exists.
		result, err := w.rdb.BLPop(ctx, PollTimeout, config.WorkerKey.PersistActivityQueue).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue // Queue empty, loop back to check the flush timer
			}
			if ctx.Err() != nil {
				w.shutdown(buffer)
				return
			}
			w.log.Error().Err(err).Msg("Redis connection error, sleeping 3s")
			sleep(ctx, 3*time.Second)
			continue
		}

		// 4. Decode
		if len(result) < 2 {
			continue
		}
		entry, err := decodeActivity(result[1])
		if err != nil {
			// Malformed payloads can never succeed; drop them.
			w.log.Error().Err(err).Str("data", result[1]).Msg("Discarding malformed activity record")
			continue
		}
		buffer = append(buffer, entry)
	}
}

func decodeActivity(raw string) (*model.ActivityLog, error) {
	var entry model.ActivityLog
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return nil, err
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	return &entry, nil
}

// flushSafe attempts a COPY, then row inserts, then requeues what is left.
func (w *ActivityWorker) flushSafe(ctx context.Context, batch []*model.ActivityLog) {
	n, err := w.sink.CopyMany(ctx, batch)
	if err == nil {
		metrics.ActivityFlushed.WithLabelValues("copy").Add(float64(n))
		return
	}
	w.log.Warn().Err(err).Int("count", len(batch)).Msg("Bulk insert failed, attempting row-by-row recovery")
	w.fallbackInsert(ctx, batch)
}

func (w *ActivityWorker) fallbackInsert(ctx context.Context, batch []*model.ActivityLog) {
	var failed []*model.ActivityLog
	for _, entry := range batch {
		if err := w.sink.Insert(ctx, entry); err != nil {
			w.log.Error().Err(err).Str("action", entry.Action).Msg("Insert failed, requeueing")
			failed = append(failed, entry)
			continue
		}
		metrics.ActivityFlushed.WithLabelValues("fallback").Inc()
	}
	if len(failed) > 0 {
		metrics.ActivityFlushed.WithLabelValues("requeued").Add(float64(len(failed)))
		w.requeue(ctx, failed)
	}
}

func (w *ActivityWorker) requeueRedis(ctx context.Context, items []*model.ActivityLog) {
	// Requeue must outlive a cancelled worker context.
	ctx = context.WithoutCancel(ctx)
	pipe := w.rdb.Pipeline()
	for _, entry := range items {
		data, err := json.Marshal(entry)
		if err != nil {
			continue
		}
		pipe.RPush(ctx, config.WorkerKey.PersistActivityQueue, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		w.log.Error().Err(err).Int("count", len(items)).Msg("CRITICAL: Failed to requeue activity records. Data loss occurred.")
		return
	}
	w.log.Info().Int("count", len(items)).Msg("Requeued failed items back to Redis")
	// Back off if the DB is down hard.
	sleep(ctx, 2*time.Second)
}

func (w *ActivityWorker) shutdown(buffer []*model.ActivityLog) {
	w.log.Info().Msg("Worker stopping, flushing remaining buffer...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if len(buffer) > 0 {
		w.flushSafe(shutdownCtx, buffer)
	}
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
