package postgres

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gravadigital/eventsoft-api/internal/domain/notification"
	"github.com/gravadigital/eventsoft-api/internal/logger"
)

// PostgresNotificationRepository keeps the bulk message log
type PostgresNotificationRepository struct {
	db  *gorm.DB
	log *log.Logger
}

func NewPostgresNotificationRepository(db *gorm.DB) *PostgresNotificationRepository {
	return &PostgresNotificationRepository{
		db:  db,
		log: logger.Repository("notification"),
	}
}

func (r *PostgresNotificationRepository) Create(ctx context.Context, n *notification.Notification) error {
	if err := dbFromContext(ctx, r.db).Create(n).Error; err != nil {
		r.log.Error("Failed to log notification", "event_id", n.EventID, "error", err)
		return fmt.Errorf("PostgresNotificationRepository.Create -> %w", err)
	}
	r.log.Info("Notification logged", "id", n.ID, "event_id", n.EventID, "sent", n.SentCount)
	return nil
}

func (r *PostgresNotificationRepository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]*notification.Notification, error) {
	var rows []*notification.Notification
	err := dbFromContext(ctx, r.db).Where("event_id = ?", eventID).Order("created_at DESC").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("PostgresNotificationRepository.ListByEvent -> %w", err)
	}
	return rows, nil
}
