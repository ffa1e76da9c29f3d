package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/gravadigital/eventsoft-api/internal/config"
	"github.com/gravadigital/eventsoft-api/internal/logger"
	"github.com/gravadigital/eventsoft-api/internal/storage/migrations"
)

// HealthTimeout bounds a ping when the caller's context has no deadline
const HealthTimeout = 3 * time.Second

// PoolStats is a snapshot of the connection pool
type PoolStats struct {
	MaxOpen int   `json:"max_open"`
	Open    int   `json:"open"`
	InUse   int   `json:"in_use"`
	Idle    int   `json:"idle"`
	Waits   int64 `json:"waits"`
}

// Connect opens the PostgreSQL pool described by cfg.DB, retrying with backoff
func Connect(cfg *config.Config) (*gorm.DB, error) {
	log := logger.Database()

	if err := validateDatabaseConfig(cfg); err != nil {
		log.Error("Database configuration validation failed", "error", err)
		return nil, fmt.Errorf("invalid database configuration: %w", err)
	}

	log.Debug("Connecting to database", "host", cfg.DB.Host, "port", cfg.DB.Port, "database", cfg.DB.Name)

	gormConfig := &gorm.Config{
		Logger: newGormLogger(cfg, gormWriter()),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		PrepareStmt: true,
	}

	attempts := max(cfg.DB.ConnectRetries, 1)
	delay := 2 * time.Second

	var db *gorm.DB
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		db, err = gorm.Open(postgres.Open(cfg.GetDatabaseURL()), gormConfig)
		if err == nil {
			break
		}
		log.Warn("Database connection failed", "attempt", attempt, "of", attempts, "error", err)
		if attempt < attempts {
			time.Sleep(delay)
			delay *= 2
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", attempts, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.DB.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.DB.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.DB.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.DB.ConnMaxIdleTime)

	if err := Ping(context.Background(), db); err != nil {
		return nil, err
	}

	stats := Stats(db)
	log.Info("Connected to PostgreSQL",
		"host", cfg.DB.Host,
		"database", cfg.DB.Name,
		"max_open", stats.MaxOpen,
		"open", stats.Open)

	return db, nil
}

// newGormLogger routes gorm's slow-query and error lines through the database logger.
// Lookups that find nothing are expected (duplicate checks, optional rows) and stay quiet.
func newGormLogger(cfg *config.Config, out gormLogger.Writer) gormLogger.Interface {
	level := gormLogger.Warn
	if cfg.IsDebug() {
		level = gormLogger.Info
	}
	return gormLogger.New(out, gormLogger.Config{
		SlowThreshold:             cfg.DB.SlowQuery,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

func gormWriter() gormLogger.Writer {
	return logger.Database().StandardLog(log.StandardLogOptions{ForceLevel: log.WarnLevel})
}

func validateDatabaseConfig(cfg *config.Config) error {
	if cfg == nil {
		return errors.New("config cannot be nil")
	}
	switch {
	case cfg.DB.Host == "":
		return errors.New("database host cannot be empty")
	case cfg.DB.Port == "":
		return errors.New("database port cannot be empty")
	case cfg.DB.Name == "":
		return errors.New("database name cannot be empty")
	case cfg.DB.User == "":
		return errors.New("database user cannot be empty")
	}
	return nil
}

// Ping checks the connection, bounded by HealthTimeout unless ctx already has a deadline
func Ping(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return errors.New("database connection is nil")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, HealthTimeout)
		defer cancel()
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}

// Stats reads the pool counters; a closed or unusable handle reports zeros
func Stats(db *gorm.DB) PoolStats {
	sqlDB, err := db.DB()
	if err != nil {
		return PoolStats{}
	}
	s := sqlDB.Stats()
	return PoolStats{
		MaxOpen: s.MaxOpenConnections,
		Open:    s.OpenConnections,
		InUse:   s.InUse,
		Idle:    s.Idle,
		Waits:   s.WaitCount,
	}
}

// AutoMigrate applies every pending schema migration
func AutoMigrate(db *gorm.DB) error {
	log := logger.Migration()

	if err := Ping(context.Background(), db); err != nil {
		log.Error("Database unavailable before migrations", "error", err)
		return err
	}

	start := time.Now()
	if err := migrations.NewMigrator(db).Up(); err != nil {
		log.Error("Database migrations failed", "error", err, "duration", time.Since(start))
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info("Database migrations completed", "duration", time.Since(start))
	return nil
}
