package database

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Startup connection retry. Compose brings Postgres and Redis up alongside
// the server, so the first dial often races their readiness.
const (
	connectAttempts = 5
	connectBackoff  = 500 * time.Millisecond
)

// withRetry runs fn until it succeeds, ctx ends or attempts run out,
// doubling the wait between tries.
func withRetry(ctx context.Context, log zerolog.Logger, what string, fn func(context.Context) error) error {
	wait := connectBackoff
	var err error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if attempt == connectAttempts {
			break
		}
		log.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", wait).Msgf("%s not ready", what)

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		wait *= 2
	}
	return err
}
