package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/stemsi/gradebook-backend/internal/config"
	"github.com/stemsi/gradebook-backend/internal/database"
	"github.com/stemsi/gradebook-backend/internal/logger"
	"github.com/stemsi/gradebook-backend/internal/repository"
	"github.com/stemsi/gradebook-backend/internal/service"
)

func main() {
	var list bool
	flag.BoolVar(&list, "list", false, "List existing backups instead of creating one")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	backupService := service.NewBackupService(cfg.BackupDir, cfg.BackupRetain,
		repository.NewBackupRepository(pool), service.NewRedisBackupLock(rdb), log)

	if list {
		backups, err := backupService.List()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to list backups")
		}
		for _, b := range backups {
			fmt.Printf("%s\t%d\t%s\n", b.Name, b.SizeBytes, b.CreatedAt.Format(time.RFC3339))
		}
		return
	}

	info, err := backupService.Create(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Backup failed")
		os.Exit(1)
	}
	fmt.Printf("Backup written: %s (%d bytes)\n", info.Name, info.SizeBytes)
}
