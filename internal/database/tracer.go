package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

type queryStartKey struct{}

type queryStart struct {
	sql string
	at  time.Time
}

// SlowQueryTracer logs statements slower than Threshold. A zero threshold
// disables it.
type SlowQueryTracer struct {
	Threshold time.Duration
	log       zerolog.Logger
	now       func() time.Time
}

// NewSlowQueryTracer creates a tracer logging through log.
func NewSlowQueryTracer(threshold time.Duration, log zerolog.Logger) *SlowQueryTracer {
	return &SlowQueryTracer{
		Threshold: threshold,
		log:       log.With().Str("component", "postgres").Logger(),
		now:       time.Now,
	}
}

func (t *SlowQueryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	if t.Threshold <= 0 {
		return ctx
	}
	return context.WithValue(ctx, queryStartKey{}, queryStart{sql: data.SQL, at: t.now()})
}

func (t *SlowQueryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	start, ok := ctx.Value(queryStartKey{}).(queryStart)
	if !ok {
		return
	}
	elapsed := t.now().Sub(start.at)
	if elapsed < t.Threshold {
		return
	}
	ev := t.log.Warn()
	if data.Err != nil {
		ev = ev.Err(data.Err)
	}
	ev.Dur("elapsed", elapsed).
		Str("sql", start.sql).
		Str("command", data.CommandTag.String()).
		Msg("Slow query")
}
