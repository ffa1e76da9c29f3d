package postgres

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gravadigital/eventsoft-api/internal/domain/certificate"
	"github.com/gravadigital/eventsoft-api/internal/logger"
)

type PostgresCertificateRepository struct {
	db  *gorm.DB
	log *log.Logger
}

func NewPostgresCertificateRepository(db *gorm.DB) *PostgresCertificateRepository {
	return &PostgresCertificateRepository{
		db:  db,
		log: logger.Repository("certificate"),
	}
}

func (r *PostgresCertificateRepository) Get(ctx context.Context, eventID uuid.UUID, kind certificate.Kind) (*certificate.Template, error) {
	var t certificate.Template
	err := dbFromContext(ctx, r.db).Where("event_id = ? AND kind = ?", eventID, kind).First(&t).Error
	if err != nil {
		return nil, mapError(err, certificate.ErrNotFound, nil)
	}
	return &t, nil
}

// Save stores the template, replacing the one configured for the same event and kind
func (r *PostgresCertificateRepository) Save(ctx context.Context, t *certificate.Template) error {
	err := dbFromContext(ctx, r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_id"}, {Name: "kind"}},
			DoUpdates: clause.AssignmentColumns([]string{"title", "body", "updated_at"}),
		}).
		Create(t).Error
	if err != nil {
		r.log.Error("Failed to save certificate template", "event_id", t.EventID, "kind", t.Kind, "error", err)
		return fmt.Errorf("PostgresCertificateRepository.Save -> %w", err)
	}
	r.log.Info("Certificate template saved", "event_id", t.EventID, "kind", t.Kind)
	return nil
}
