package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/stemsi/gradebook-backend/internal/model"
)

// BackupRunner takes one backup. Implemented by service.BackupService.
type BackupRunner interface {
	Create(ctx context.Context) (*model.BackupInfo, error)
}

// BackupScheduler runs backups on a cron schedule, never overlapping.
type BackupScheduler struct {
	cron   *cron.Cron
	runner BackupRunner
	log    zerolog.Logger
}

// NewBackupScheduler validates spec (standard five-field cron syntax or a
// descriptor such as @daily) and prepares the schedule.
func NewBackupScheduler(spec string, runner BackupRunner, log zerolog.Logger) (*BackupScheduler, error) {
	log = log.With().Str("component", "backup_scheduler").Logger()
	s := &BackupScheduler{
		runner: runner,
		log:    log,
		cron:   cron.New(cron.WithChain(cron.Recover(cronLogger{log}), cron.SkipIfStillRunning(cronLogger{log}))),
	}
	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return nil, fmt.Errorf("invalid backup schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start runs the schedule until ctx is done, then waits for a running backup.
func (s *BackupScheduler) Start(ctx context.Context) {
	s.log.Info().Time("next_run", s.next()).Msg("BackupScheduler started")
	s.cron.Start()
	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.log.Info().Msg("BackupScheduler stopped")
}

func (s *BackupScheduler) next() (t time.Time) {
	if entries := s.cron.Entries(); len(entries) > 0 {
		return entries[0].Schedule.Next(time.Now())
	}
	return t
}

func (s *BackupScheduler) run() {
	info, err := s.runner.Create(context.Background())
	if err != nil {
		s.log.Error().Err(err).Msg("Scheduled backup failed")
		return
	}
	s.log.Info().Str("file", info.Name).Msg("Scheduled backup completed")
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
