package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gravadigital/eventsoft-api/internal/config"
	"github.com/gravadigital/eventsoft-api/internal/logger"
	"github.com/gravadigital/eventsoft-api/internal/mail"
	"github.com/gravadigital/eventsoft-api/internal/server"
	"github.com/gravadigital/eventsoft-api/internal/storage"
)

// cleanup removes registrations whose confirmation link was never followed
func main() {
	cfg := config.Load()

	logger.Initialize(cfg.Log.Level)
	log := logger.Scheduler()

	loop := flag.Bool("loop", false, "Keep sweeping every CLEANUP_INTERVAL until interrupted")
	maxAge := flag.Duration("max-age", cfg.Cleanup.MaxAge, "Age after which an unconfirmed registration is removed")
	flag.Parse()
	cfg.Cleanup.MaxAge = *maxAge

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	factory := storage.DefaultFactory()
	container, err := factory.CreateContainer(cfg)
	if err != nil {
		log.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer container.Close()

	store, err := factory.CreateFileStore(ctx, cfg)
	if err != nil {
		log.Error("Failed to initialize file store", "error", err)
		os.Exit(1)
	}
	mailer, err := mail.New(cfg)
	if err != nil {
		log.Error("Failed to initialize mailer", "error", err)
		os.Exit(1)
	}

	sweeper := server.NewServices(cfg, container, store, mailer).Sweeper

	if *loop {
		log.Info("Starting cleanup loop", "interval", cfg.Cleanup.Interval, "max_age", cfg.Cleanup.MaxAge)
		sweeper.Run(ctx)
		return
	}

	removed, err := sweeper.Sweep(ctx, time.Now())
	if err != nil {
		log.Error("Cleanup failed", "error", err)
		os.Exit(1)
	}
	log.Info("Cleanup completed", "removed", removed)
}
