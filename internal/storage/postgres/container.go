package postgres

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"gorm.io/gorm"

	"github.com/gravadigital/eventsoft-api/internal/config"
	"github.com/gravadigital/eventsoft-api/internal/logger"
)

// Container implements RepositoryContainer
type Container struct {
	db               *gorm.DB
	log              *log.Logger
	uow              *UnitOfWork
	accountRepo      *PostgresAccountRepository
	eventRepo        *PostgresEventRepository
	enrollmentRepo   *PostgresEnrollmentRepository
	criterionRepo    *PostgresCriterionRepository
	scoreRepo        *PostgresScoreRepository
	invitationRepo   *PostgresInvitationRepository
	certificateRepo  *PostgresCertificateRepository
	notificationRepo *PostgresNotificationRepository
}

// NewContainer connects, migrates and wires every repository
func NewContainer(cfg *config.Config) (*Container, error) {
	log := logger.Repository("postgres_container")
	log.Info("Initializing PostgreSQL repository container...")

	db, err := Connect(cfg)
	if err != nil {
		log.Error("Failed to connect to database", "error", err)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := AutoMigrate(db); err != nil {
		log.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	container := NewContainerWithDB(db)

	if err := container.Health(context.Background()); err != nil {
		log.Error("Container health check failed", "error", err)
		return nil, fmt.Errorf("container health check failed: %w", err)
	}

	log.Info("PostgreSQL repository container initialized successfully")
	return container, nil
}

// NewContainerWithDB creates a container over an existing connection
func NewContainerWithDB(db *gorm.DB) *Container {
	return &Container{
		db:               db,
		log:              logger.Repository("postgres_container"),
		uow:              NewUnitOfWork(db),
		accountRepo:      NewPostgresAccountRepository(db),
		eventRepo:        NewPostgresEventRepository(db),
		enrollmentRepo:   NewPostgresEnrollmentRepository(db),
		criterionRepo:    NewPostgresCriterionRepository(db),
		scoreRepo:        NewPostgresScoreRepository(db),
		invitationRepo:   NewPostgresInvitationRepository(db),
		certificateRepo:  NewPostgresCertificateRepository(db),
		notificationRepo: NewPostgresNotificationRepository(db),
	}
}

func (c *Container) UnitOfWork() *UnitOfWork                        { return c.uow }
func (c *Container) Accounts() *PostgresAccountRepository           { return c.accountRepo }
func (c *Container) Events() *PostgresEventRepository               { return c.eventRepo }
func (c *Container) Enrollments() *PostgresEnrollmentRepository     { return c.enrollmentRepo }
func (c *Container) Criteria() *PostgresCriterionRepository         { return c.criterionRepo }
func (c *Container) Scores() *PostgresScoreRepository               { return c.scoreRepo }
func (c *Container) Invitations() *PostgresInvitationRepository     { return c.invitationRepo }
func (c *Container) Certificates() *PostgresCertificateRepository   { return c.certificateRepo }
func (c *Container) Notifications() *PostgresNotificationRepository { return c.notificationRepo }

// Health checks the connection and that every table answers a count
func (c *Container) Health(ctx context.Context) error {
	c.log.Debug("Performing container health check...")

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, HealthTimeout)
		defer cancel()
	}

	if err := Ping(ctx, c.db); err != nil {
		c.log.Error("Database health check failed", "error", err)
		return fmt.Errorf("database health check failed: %w", err)
	}

	stats := Stats(c.db)
	c.log.Debug("Database pool", "open", stats.Open, "in_use", stats.InUse, "idle", stats.Idle)

	for _, table := range tableNames {
		var count int64
		if err := c.db.WithContext(ctx).Table(table).Count(&count).Error; err != nil {
			c.log.Error("Repository health check failed", "table", table, "error", err)
			return fmt.Errorf("repository %s health check failed: %w", table, err)
		}
		c.log.Debug("Repository health check passed", "table", table)
	}

	c.log.Debug("Container health check completed successfully")
	return nil
}

var tableNames = []string{
	"users", "profiles", "role_bindings", "events", "enrollments", "capacity_adjustments",
	"criteria", "scores", "invitation_codes", "certificate_templates", "notifications",
}

// Close shuts down the container and its database connection
func (c *Container) Close() error {
	c.log.Info("Closing PostgreSQL repository container...")

	if c.db == nil {
		c.log.Warn("Database connection is nil, nothing to close")
		return nil
	}

	sqlDB, err := c.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		c.log.Error("Failed to close database connection", "error", err)
		return fmt.Errorf("failed to close database connection: %w", err)
	}
	c.db = nil

	c.log.Info("PostgreSQL repository container closed successfully")
	return nil
}
