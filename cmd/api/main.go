package main

import (
	"context"
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

func main() {
	cfg := config.Load()

	logger.Initialize(cfg.Log.Level)
	log := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	factory := storage.DefaultFactory()
	container, err := factory.CreateContainer(cfg)
	if err != nil {
		log.Fatal("Failed to initialize storage", "error", err)
	}
	defer func() {
		if err := container.Close(); err != nil {
			log.Error("Failed to close storage", "error", err)
		}
	}()

	store, err := factory.CreateFileStore(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to initialize file store", "driver", cfg.Storage.Driver, "error", err)
	}

	mailer, err := mail.New(cfg)
	if err != nil {
		log.Fatal("Failed to initialize mailer", "error", err)
	}

	svc := server.NewServices(cfg, container, store, mailer)

	if cfg.Cleanup.Enabled {
		go svc.Sweeper.Run(ctx)
	}

	srv := server.New(cfg, svc)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error("HTTP server stopped", "error", err)
		}
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		log.Error("Graceful shutdown failed", "error", err)
	}
	log.Info("Eventsoft API stopped")
}
