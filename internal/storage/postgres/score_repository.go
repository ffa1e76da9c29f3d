package postgres

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gravadigital/eventsoft-api/internal/domain/common"
	"github.com/gravadigital/eventsoft-api/internal/domain/enrollment"
	"github.com/gravadigital/eventsoft-api/internal/domain/scoring"
	"github.com/gravadigital/eventsoft-api/internal/logger"
)

// PostgresScoreRepository stores evaluator grades and keeps the
// persisted aggregates of participant enrollments consistent with them
type PostgresScoreRepository struct {
	db  *gorm.DB
	log *log.Logger
}

func NewPostgresScoreRepository(db *gorm.DB) *PostgresScoreRepository {
	return &PostgresScoreRepository{
		db:  db,
		log: logger.Repository("score"),
	}
}

// Upsert inserts the grade or overwrites the one already given for the same
// evaluator, criterion and participant
func (r *PostgresScoreRepository) Upsert(ctx context.Context, s *scoring.Score) error {
	r.log.Debug("Upserting score", "evaluator_id", s.EvaluatorID, "participant_id", s.ParticipantID, "criterion_id", s.CriterionID)

	err := dbFromContext(ctx, r.db).
		Omit("Criterion").
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "evaluator_id"}, {Name: "criterion_id"}, {Name: "participant_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "note", "updated_at"}),
		}).
		Create(s).Error
	if err != nil {
		r.log.Error("Failed to upsert score", "error", err)
		return fmt.Errorf("PostgresScoreRepository.Upsert -> %w", err)
	}
	return nil
}

func (r *PostgresScoreRepository) ListByParticipant(ctx context.Context, participantID, eventID uuid.UUID) ([]*scoring.Score, error) {
	var rows []*scoring.Score
	err := dbFromContext(ctx, r.db).
		Preload("Criterion").
		Where("participant_id = ? AND event_id = ?", participantID, eventID).
		Order("created_at, id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("PostgresScoreRepository.ListByParticipant -> %w", err)
	}
	return rows, nil
}

// ListByEvaluator returns the grades an evaluator gave in an event
func (r *PostgresScoreRepository) ListByEvaluator(ctx context.Context, evaluatorID, eventID uuid.UUID) ([]*scoring.Score, error) {
	var rows []*scoring.Score
	err := dbFromContext(ctx, r.db).
		Preload("Criterion").
		Where("evaluator_id = ? AND event_id = ?", evaluatorID, eventID).
		Order("participant_id, created_at").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("PostgresScoreRepository.ListByEvaluator -> %w", err)
	}
	return rows, nil
}

func (r *PostgresScoreRepository) CountByEvaluator(ctx context.Context, evaluatorID, participantID, eventID uuid.UUID) (int64, error) {
	var n int64
	err := dbFromContext(ctx, r.db).
		Model(&scoring.Score{}).
		Where("evaluator_id = ? AND participant_id = ? AND event_id = ?", evaluatorID, participantID, eventID).
		Count(&n).Error
	return n, err
}

func (r *PostgresScoreRepository) DeleteByCriterion(ctx context.Context, criterionID uuid.UUID) error {
	res := dbFromContext(ctx, r.db).Where("criterion_id = ?", criterionID).Delete(&scoring.Score{})
	if res.Error != nil {
		return fmt.Errorf("PostgresScoreRepository.DeleteByCriterion -> %w", res.Error)
	}
	r.log.Debug("Scores deleted with criterion", "criterion_id", criterionID, "count", res.RowsAffected)
	return nil
}

// InvalidateAggregates clears the persisted aggregates of every participant in the event
func (r *PostgresScoreRepository) InvalidateAggregates(ctx context.Context, eventID uuid.UUID) error {
	err := dbFromContext(ctx, r.db).
		Model(&enrollment.Enrollment{}).
		Where("event_id = ? AND kind = ?", eventID, common.KindParticipant).
		Update("aggregate_score", nil).Error
	if err != nil {
		return fmt.Errorf("PostgresScoreRepository.InvalidateAggregates -> %w", err)
	}
	return nil
}

// PurgeProfile deletes every grade given or received by the profile and clears
// the aggregates of the participants that lost grades
func (r *PostgresScoreRepository) PurgeProfile(ctx context.Context, profileID uuid.UUID) error {
	db := dbFromContext(ctx, r.db)

	var affected []struct {
		ParticipantID uuid.UUID
		EventID       uuid.UUID
	}
	err := db.Model(&scoring.Score{}).
		Distinct("participant_id", "event_id").
		Where("evaluator_id = ?", profileID).
		Scan(&affected).Error
	if err != nil {
		return fmt.Errorf("PostgresScoreRepository.PurgeProfile -> %w", err)
	}

	res := db.Where("evaluator_id = ? OR participant_id = ?", profileID, profileID).Delete(&scoring.Score{})
	if res.Error != nil {
		return fmt.Errorf("PostgresScoreRepository.PurgeProfile -> %w", res.Error)
	}

	for _, a := range affected {
		err := db.Model(&enrollment.Enrollment{}).
			Where("kind = ? AND profile_id = ? AND event_id = ?", common.KindParticipant, a.ParticipantID, a.EventID).
			Update("aggregate_score", nil).Error
		if err != nil {
			return fmt.Errorf("PostgresScoreRepository.PurgeProfile -> %w", err)
		}
	}

	r.log.Debug("Profile scores purged", "profile_id", profileID, "deleted", res.RowsAffected, "invalidated", len(affected))
	return nil
}
