package postgres

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gravadigital/eventsoft-api/internal/domain/criterion"
	"github.com/gravadigital/eventsoft-api/internal/logger"
)

type PostgresCriterionRepository struct {
	db  *gorm.DB
	log *log.Logger
}

func NewPostgresCriterionRepository(db *gorm.DB) *PostgresCriterionRepository {
	return &PostgresCriterionRepository{
		db:  db,
		log: logger.Repository("criterion"),
	}
}

func (r *PostgresCriterionRepository) Create(ctx context.Context, c *criterion.Criterion) error {
	if err := dbFromContext(ctx, r.db).Create(c).Error; err != nil {
		r.log.Error("Failed to create criterion", "event_id", c.EventID, "error", err)
		return fmt.Errorf("PostgresCriterionRepository.Create -> %w", err)
	}
	return nil
}

func (r *PostgresCriterionRepository) GetByID(ctx context.Context, id uuid.UUID) (*criterion.Criterion, error) {
	var c criterion.Criterion
	if err := dbFromContext(ctx, r.db).First(&c, "id = ?", id).Error; err != nil {
		return nil, mapError(err, criterion.ErrNotFound, nil)
	}
	return &c, nil
}

func (r *PostgresCriterionRepository) Update(ctx context.Context, c *criterion.Criterion) error {
	if err := dbFromContext(ctx, r.db).Save(c).Error; err != nil {
		r.log.Error("Failed to update criterion", "id", c.ID, "error", err)
		return fmt.Errorf("PostgresCriterionRepository.Update -> %w", err)
	}
	return nil
}

func (r *PostgresCriterionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := dbFromContext(ctx, r.db).Delete(&criterion.Criterion{}, "id = ?", id)
	if res.Error != nil {
		r.log.Error("Failed to delete criterion", "id", id, "error", res.Error)
		return fmt.Errorf("PostgresCriterionRepository.Delete -> %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return criterion.ErrNotFound
	}
	return nil
}

func (r *PostgresCriterionRepository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]*criterion.Criterion, error) {
	var rows []*criterion.Criterion
	err := dbFromContext(ctx, r.db).Where("event_id = ?", eventID).Order("created_at, id").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("PostgresCriterionRepository.ListByEvent -> %w", err)
	}
	return rows, nil
}

func (r *PostgresCriterionRepository) SumWeights(ctx context.Context, eventID, excluding uuid.UUID) (float64, error) {
	var sum float64
	err := dbFromContext(ctx, r.db).
		Model(&criterion.Criterion{}).
		Select("COALESCE(SUM(weight), 0)").
		Where("event_id = ? AND id <> ?", eventID, excluding).
		Scan(&sum).Error
	if err != nil {
		return 0, fmt.Errorf("PostgresCriterionRepository.SumWeights -> %w", err)
	}
	return sum, nil
}
