package scoring

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gravadigital/eventsoft-api/internal/domain/criterion"
)

const (
	MinValue = 1
	MaxValue = 5
)

var (
	ErrOutOfRange  = errors.New("score value must be an integer between 1 and 5")
	ErrNotEligible = errors.New("participant or evaluator is not approved for this event")
	ErrNotFound    = errors.New("score not found")
)

// Score is one evaluator's grade of one participant on one criterion
type Score struct {
	ID            uuid.UUID            `json:"id" gorm:"type:uuid;primaryKey"`
	EventID       uuid.UUID            `json:"event_id" gorm:"type:uuid;not null;index"`
	EvaluatorID   uuid.UUID            `json:"evaluator_id" gorm:"type:uuid;not null;uniqueIndex:idx_scores_evaluator_criterion_participant,priority:1"`
	CriterionID   uuid.UUID            `json:"criterion_id" gorm:"type:uuid;not null;uniqueIndex:idx_scores_evaluator_criterion_participant,priority:2"`
	ParticipantID uuid.UUID            `json:"participant_id" gorm:"type:uuid;not null;index;uniqueIndex:idx_scores_evaluator_criterion_participant,priority:3"`
	Value         int                  `json:"value" gorm:"not null"`
	Note          string               `json:"note,omitempty"`
	Criterion     *criterion.Criterion `json:"criterion,omitempty" gorm:"foreignKey:CriterionID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time            `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time            `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName overrides the table name used by GORM
func (Score) TableName() string {
	return "scores"
}

// BeforeCreate sets a UUID before creating the record
func (s *Score) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// CheckValue validates a score value
func CheckValue(value int) error {
	if value < MinValue || value > MaxValue {
		return ErrOutOfRange
	}
	return nil
}
