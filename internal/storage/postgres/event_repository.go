package postgres

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gravadigital/eventsoft-api/internal/domain/event"
	"github.com/gravadigital/eventsoft-api/internal/logger"
)

// PostgresEventRepository implements event storage using GORM
type PostgresEventRepository struct {
	db  *gorm.DB
	log *log.Logger
}

func NewPostgresEventRepository(db *gorm.DB) *PostgresEventRepository {
	return &PostgresEventRepository{
		db:  db,
		log: logger.Repository("event"),
	}
}

func (r *PostgresEventRepository) Create(ctx context.Context, e *event.Event) error {
	r.log.Debug("Creating event", "name", e.Name, "administrator_id", e.AdministratorID)

	if err := dbFromContext(ctx, r.db).Create(e).Error; err != nil {
		r.log.Error("Failed to create event", "name", e.Name, "error", err)
		return fmt.Errorf("PostgresEventRepository.Create -> %w", err)
	}

	r.log.Info("Event created successfully", "id", e.ID, "name", e.Name)
	return nil
}

func (r *PostgresEventRepository) GetByID(ctx context.Context, id uuid.UUID) (*event.Event, error) {
	var e event.Event
	if err := dbFromContext(ctx, r.db).First(&e, "id = ?", id).Error; err != nil {
		return nil, mapError(err, event.ErrNotFound, nil)
	}
	return &e, nil
}

// GetForUpdate reads the event under a row lock
func (r *PostgresEventRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*event.Event, error) {
	var e event.Event
	if err := forUpdate(dbFromContext(ctx, r.db)).First(&e, "id = ?", id).Error; err != nil {
		return nil, mapError(err, event.ErrNotFound, nil)
	}
	return &e, nil
}

func (r *PostgresEventRepository) Update(ctx context.Context, e *event.Event) error {
	if err := dbFromContext(ctx, r.db).Save(e).Error; err != nil {
		r.log.Error("Failed to update event", "id", e.ID, "error", err)
		return fmt.Errorf("PostgresEventRepository.Update -> %w", err)
	}
	r.log.Debug("Event updated", "id", e.ID, "state", e.State)
	return nil
}

func (r *PostgresEventRepository) UpdateCapacity(ctx context.Context, id uuid.UUID, capacity int) error {
	res := dbFromContext(ctx, r.db).
		Model(&event.Event{}).
		Where("id = ?", id).
		Update("capacity", capacity)
	if res.Error != nil {
		r.log.Error("Failed to update capacity", "id", id, "error", res.Error)
		return fmt.Errorf("PostgresEventRepository.UpdateCapacity -> %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return event.ErrNotFound
	}
	r.log.Debug("Capacity updated", "id", id, "capacity", capacity)
	return nil
}

func (r *PostgresEventRepository) List(ctx context.Context, filter event.Filter) ([]*event.Event, error) {
	q := dbFromContext(ctx, r.db).Order("start_date DESC")
	if filter.State != nil {
		q = q.Where("state = ?", *filter.State)
	}
	if filter.AdministratorID != nil {
		q = q.Where("administrator_id = ?", *filter.AdministratorID)
	}

	var events []*event.Event
	if err := q.Find(&events).Error; err != nil {
		r.log.Error("Failed to list events", "error", err)
		return nil, fmt.Errorf("PostgresEventRepository.List -> %w", err)
	}
	return events, nil
}
