package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/sma-events-api/internal/repository"
	"github.com/noah-isme/sma-events-api/internal/service"
	"github.com/noah-isme/sma-events-api/pkg/config"
	"github.com/noah-isme/sma-events-api/pkg/database"
	"github.com/noah-isme/sma-events-api/pkg/logger"
	"github.com/noah-isme/sma-events-api/pkg/storage"
)

// events-files moves submissions between local disk and the database.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("database unavailable", "error", err, "host", cfg.Database.Host)
	}
	defer db.Close() //nolint:errcheck

	files, err := storage.NewLocalStorage(cfg.Files.DownloadDir, cfg.Files.MaxUploadBytes)
	if err != nil {
		logr.Sugar().Fatalw("storage unavailable", "error", err, "dir", cfg.Files.DownloadDir)
	}

	eventRepo := repository.NewEventRepository(db)
	fileRepo := repository.NewFileRepository(db)
	feedbackRepo := repository.NewFeedbackRepository(db)
	ids := service.NewIDAllocator(eventRepo, fileRepo, feedbackRepo)
	fileSvc := service.NewFileService(db, fileRepo, feedbackRepo, eventRepo,
		repository.NewUserRepository(db), repository.NewParticipationRepository(db),
		ids, files, cfg.Files.MaxUploadBytes, validator.New(), logr)

	cli := &commandLine{files: fileSvc, out: os.Stdout}
	if err := cli.run(ctx, os.Args); err != nil {
		if errors.Is(err, errHelp) {
			os.Exit(2)
		}
		logr.Sugar().Errorw("command failed", "error", err)
		os.Exit(1)
	}
}
