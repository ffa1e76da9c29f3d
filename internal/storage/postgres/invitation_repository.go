package postgres

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gravadigital/eventsoft-api/internal/domain/invitation"
	"github.com/gravadigital/eventsoft-api/internal/logger"
)

type PostgresInvitationRepository struct {
	db  *gorm.DB
	log *log.Logger
}

func NewPostgresInvitationRepository(db *gorm.DB) *PostgresInvitationRepository {
	return &PostgresInvitationRepository{
		db:  db,
		log: logger.Repository("invitation"),
	}
}

func (r *PostgresInvitationRepository) Create(ctx context.Context, c *invitation.Code) error {
	if err := dbFromContext(ctx, r.db).Create(c).Error; err != nil {
		r.log.Error("Failed to create invitation code", "kind", c.Kind, "email", c.Email, "error", err)
		return fmt.Errorf("PostgresInvitationRepository.Create -> %w", err)
	}
	r.log.Info("Invitation code created", "id", c.ID, "kind", c.Kind)
	return nil
}

func (r *PostgresInvitationRepository) GetByID(ctx context.Context, id uuid.UUID) (*invitation.Code, error) {
	var c invitation.Code
	if err := forUpdate(dbFromContext(ctx, r.db)).First(&c, "id = ?", id).Error; err != nil {
		return nil, mapError(err, invitation.ErrNotFound, nil)
	}
	return &c, nil
}

func (r *PostgresInvitationRepository) GetByCode(ctx context.Context, code string) (*invitation.Code, error) {
	var c invitation.Code
	if err := forUpdate(dbFromContext(ctx, r.db)).Where("code = ?", code).First(&c).Error; err != nil {
		return nil, mapError(err, invitation.ErrNotFound, nil)
	}
	return &c, nil
}

func (r *PostgresInvitationRepository) LatestGrant(ctx context.Context, userID uuid.UUID) (*invitation.Code, error) {
	var c invitation.Code
	err := forUpdate(dbFromContext(ctx, r.db)).
		Where("user_id = ? AND kind = ?", userID, invitation.KindEventQuota).
		Order("created_at DESC").
		First(&c).Error
	if err != nil {
		return nil, mapError(err, invitation.ErrNotFound, nil)
	}
	return &c, nil
}

func (r *PostgresInvitationRepository) Update(ctx context.Context, c *invitation.Code) error {
	if err := dbFromContext(ctx, r.db).Save(c).Error; err != nil {
		r.log.Error("Failed to update invitation code", "id", c.ID, "error", err)
		return fmt.Errorf("PostgresInvitationRepository.Update -> %w", err)
	}
	return nil
}

func (r *PostgresInvitationRepository) List(ctx context.Context) ([]*invitation.Code, error) {
	var rows []*invitation.Code
	if err := dbFromContext(ctx, r.db).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("PostgresInvitationRepository.List -> %w", err)
	}
	return rows, nil
}
