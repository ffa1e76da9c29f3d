package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/gravadigital/eventsoft-api/internal/config"
	"github.com/gravadigital/eventsoft-api/internal/logger"
	"github.com/gravadigital/eventsoft-api/internal/storage/migrations"
	"github.com/gravadigital/eventsoft-api/internal/storage/postgres"
)

func main() {
	cfg := config.Load()

	logger.Initialize(cfg.Log.Level)
	log := logger.Migration()

	rollback := flag.Bool("rollback", false, "Rollback the last migration")
	report := flag.Bool("report", false, "Print index and table statistics instead of migrating")
	status := flag.Bool("status", false, "Print which migrations have been applied")
	flag.Parse()

	log.Info("Starting migration process", "rollback", *rollback)

	db, err := postgres.Connect(cfg)
	if err != nil {
		log.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if *report {
		out, err := json.MarshalIndent(postgres.NewDiagnostics(db).Run(context.Background()), "", "  ")
		if err != nil {
			log.Error("Failed to encode diagnostics", "error", err)
			os.Exit(1)
		}
		fmt.Println(string(out))
		return
	}

	migrator := migrations.NewMigrator(db)

	if *status {
		list, err := migrator.Status()
		if err != nil {
			log.Error("Failed to read migration status", "error", err)
			os.Exit(1)
		}
		for _, m := range list {
			applied := "pending"
			if m.AppliedAt != nil {
				applied = m.AppliedAt.Format("2006-01-02 15:04:05")
			}
			fmt.Printf("%s  %-34s %s\n", m.ID, m.Name, applied)
		}
		return
	}

	if *rollback {
		log.Info("Rolling back migrations...")
		if err := migrator.Down(); err != nil {
			log.Error("Migration rollback failed", "error", err)
			os.Exit(1)
		}
		log.Info("Migration rollback completed successfully")
	} else {
		log.Info("Running migrations...")
		if err := migrator.Up(); err != nil {
			log.Error("Migration failed", "error", err)
			os.Exit(1)
		}
		log.Info("Migrations completed successfully")
	}

	fmt.Println("Migration process completed!")
}
