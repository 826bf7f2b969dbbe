package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/gradebook-backend/internal/config"
	"github.com/stemsi/gradebook-backend/internal/database"
	"github.com/stemsi/gradebook-backend/internal/handler"
	"github.com/stemsi/gradebook-backend/internal/logger"
	"github.com/stemsi/gradebook-backend/internal/repository"
	"github.com/stemsi/gradebook-backend/internal/router"
	"github.com/stemsi/gradebook-backend/internal/service"
	"github.com/stemsi/gradebook-backend/internal/validator"
	"github.com/stemsi/gradebook-backend/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting Gradebook Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	gradeValidator, err := service.NewGradeValidator(cfg.MinGrade, cfg.MaxGrade)
	if err != nil {
		log.Fatal().Err(err).Int("min", cfg.MinGrade).Int("max", cfg.MaxGrade).Msg("Invalid grade range")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	userRepo := repository.NewUserRepository(pool)
	studentRepo := repository.NewStudentRepository(pool)
	gradeRepo := repository.NewGradeRepository(pool)
	historyRepo := repository.NewHistoryRepository(pool)
	courseRepo := repository.NewCourseRepository(pool)
	enrollmentRepo := repository.NewEnrollmentRepository(pool)
	activityRepo := repository.NewActivityRepository(pool)
	backupRepo := repository.NewBackupRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	recorder := service.NewHistoryRecorder()
	publisher := service.NewRedisHistoryPublisher(rdb, log)

	authService := service.NewAuthService(cfg, userRepo, service.NewRedisRevocations(rdb))
	userService := service.NewUserService(userRepo, authService, log)
	gradeService := service.NewGradeService(gradeRepo, recorder, publisher, gradeValidator, log)
	importService := service.NewImportService(gradeRepo, recorder, publisher, log)
	historyService := service.NewHistoryService(historyRepo)
	courseService := service.NewCourseService(courseRepo, enrollmentRepo, log)
	statisticsService := service.NewStatisticsService(gradeRepo, courseRepo, enrollmentRepo)
	studentService := service.NewStudentService(studentRepo)
	activityService := service.NewActivityService(rdb, activityRepo)
	backupService := service.NewBackupService(cfg.BackupDir, cfg.BackupRetain, backupRepo, service.NewRedisBackupLock(rdb), log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	errs := handler.NewErrorWriter(cfg.ExposeErrors, log)
	handlers := &router.Handlers{
		Auth:       handler.NewAuthHandler(authService, errs),
		User:       handler.NewUserHandler(userService, errs),
		Grade:      handler.NewGradeHandler(gradeService, errs),
		Upload:     handler.NewUploadHandler(importService, cfg, errs),
		History:    handler.NewHistoryHandler(historyService, errs),
		Course:     handler.NewCourseHandler(courseService, errs),
		Statistics: handler.NewStatisticsHandler(statisticsService, errs),
		Student:    handler.NewStudentHandler(studentService, errs),
		Admin:      handler.NewAdminHandler(activityService, backupService, errs),
		System: handler.NewSystemHandler(func(ctx context.Context) database.HealthStatus {
			return database.Check(ctx, pool, rdb)
		}),
		WS: handler.NewWSHandler(rdb, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	activityWorker := worker.NewActivityWorker(activityRepo, rdb, log)
	workers.Go(func() { activityWorker.Start(workerCtx) })

	scheduler, err := worker.NewBackupScheduler(cfg.BackupSchedule, backupService, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to configure backup schedule")
	}
	workers.Go(func() { scheduler.Start(workerCtx) })

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(ctx, router.Dependencies{
		Tokens:   authService,
		Activity: activityService,
		Log:      log,
	}, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background workers and wait for the activity buffer to flush
	// and any running backup to finish.
	workerCancel()
	workers.Wait()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
