package scoring

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/gravadigital/eventsoft-api/internal/domain/common"
	"github.com/gravadigital/eventsoft-api/internal/domain/criterion"
	"github.com/gravadigital/eventsoft-api/internal/domain/enrollment"
	"github.com/gravadigital/eventsoft-api/internal/logger"
)

type Repository interface {
	Upsert(ctx context.Context, s *Score) error
	// ListByParticipant returns the participant's scores in the event with their criterion preloaded
	ListByParticipant(ctx context.Context, participantID, eventID uuid.UUID) ([]*Score, error)
	CountByEvaluator(ctx context.Context, evaluatorID, participantID, eventID uuid.UUID) (int64, error)
}

type Criteria interface {
	GetByID(ctx context.Context, id uuid.UUID) (*criterion.Criterion, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]*criterion.Criterion, error)
}

type Enrollments interface {
	Find(ctx context.Context, kind common.Kind, profileID, eventID uuid.UUID) (*enrollment.Enrollment, error)
	FindForUpdate(ctx context.Context, kind common.Kind, profileID, eventID uuid.UUID) (*enrollment.Enrollment, error)
	SetAggregate(ctx context.Context, enrollmentID uuid.UUID, value float64) error
	List(ctx context.Context, filter enrollment.Filter) ([]*enrollment.Member, error)
}

// SubmitInput is one evaluator's grade submission
type SubmitInput struct {
	EvaluatorID   uuid.UUID `json:"evaluator_id"`
	ParticipantID uuid.UUID `json:"participant_id"`
	CriterionID   uuid.UUID `json:"criterion_id"`
	Value         int       `json:"value"`
	Note          string    `json:"note"`
}

// Progress tells how many criteria an evaluator has graded for a participant
type Progress struct {
	Scored int `json:"scored"`
	Total  int `json:"total"`
}

// Complete reports whether every criterion was graded
func (p Progress) Complete() bool {
	return p.Scored == p.Total
}

// Engine records scores and maintains the persisted participant aggregates
type Engine struct {
	uow         common.UnitOfWork
	scores      Repository
	criteria    Criteria
	enrollments Enrollments
	log         *log.Logger
}

func NewEngine(uow common.UnitOfWork, scores Repository, criteria Criteria, enrollments Enrollments) *Engine {
	return &Engine{
		uow:         uow,
		scores:      scores,
		criteria:    criteria,
		enrollments: enrollments,
		log:         logger.Scoring(),
	}
}

// SubmitScore upserts a grade and returns the participant's new aggregate
func (e *Engine) SubmitScore(ctx context.Context, in SubmitInput) (float64, error) {
	e.log.Debug("Submitting score",
		"evaluator_id", in.EvaluatorID,
		"participant_id", in.ParticipantID,
		"criterion_id", in.CriterionID,
		"value", in.Value)

	if err := CheckValue(in.Value); err != nil {
		return 0, err
	}

	var aggregate float64
	err := e.uow.WithTx(ctx, func(ctx context.Context) error {
		c, err := e.criteria.GetByID(ctx, in.CriterionID)
		if err != nil {
			return err
		}

		participant, err := e.approved(ctx, common.KindParticipant, in.ParticipantID, c.EventID, true)
		if err != nil {
			return err
		}
		if _, err := e.approved(ctx, common.KindEvaluator, in.EvaluatorID, c.EventID, false); err != nil {
			return err
		}

		score := &Score{
			EventID:       c.EventID,
			EvaluatorID:   in.EvaluatorID,
			CriterionID:   in.CriterionID,
			ParticipantID: in.ParticipantID,
			Value:         in.Value,
			Note:          in.Note,
		}
		if err := e.scores.Upsert(ctx, score); err != nil {
			return err
		}

		aggregate, err = e.recompute(ctx, participant)
		return err
	})
	if err != nil {
		e.log.Error("Failed to submit score", "participant_id", in.ParticipantID, "error", err)
		return 0, fmt.Errorf("Engine.SubmitScore -> %w", err)
	}

	e.log.Info("Score submitted", "participant_id", in.ParticipantID, "aggregate", aggregate)
	return aggregate, nil
}

// RecomputeAggregate recalculates and stores the aggregate of a participant in an event
func (e *Engine) RecomputeAggregate(ctx context.Context, participantID, eventID uuid.UUID) (float64, error) {
	var aggregate float64
	err := e.uow.WithTx(ctx, func(ctx context.Context) error {
		pe, err := e.enrollments.FindForUpdate(ctx, common.KindParticipant, participantID, eventID)
		if err != nil {
			return err
		}
		aggregate, err = e.recompute(ctx, pe)
		return err
	})
	if err != nil {
		e.log.Error("Failed to recompute aggregate", "participant_id", participantID, "event_id", eventID, "error", err)
		return 0, fmt.Errorf("Engine.RecomputeAggregate -> %w", err)
	}
	return aggregate, nil
}

// EvaluationProgress counts the criteria an evaluator has graded for a participant
func (e *Engine) EvaluationProgress(ctx context.Context, evaluatorID, participantID, eventID uuid.UUID) (Progress, error) {
	crits, err := e.criteria.ListByEvent(ctx, eventID)
	if err != nil {
		return Progress{}, fmt.Errorf("Engine.EvaluationProgress -> %w", err)
	}
	scored, err := e.scores.CountByEvaluator(ctx, evaluatorID, participantID, eventID)
	if err != nil {
		return Progress{}, fmt.Errorf("Engine.EvaluationProgress -> %w", err)
	}
	return Progress{Scored: int(scored), Total: len(crits)}, nil
}

// approved loads an enrollment and requires it to be approved
func (e *Engine) approved(ctx context.Context, kind common.Kind, profileID, eventID uuid.UUID, lock bool) (*enrollment.Enrollment, error) {
	find := e.enrollments.Find
	if lock {
		find = e.enrollments.FindForUpdate
	}

	en, err := find(ctx, kind, profileID, eventID)
	if errors.Is(err, enrollment.ErrNotFound) {
		return nil, fmt.Errorf("%w: no %s enrollment", ErrNotEligible, kind)
	}
	if err != nil {
		return nil, err
	}
	if en.State != enrollment.StateApproved {
		return nil, fmt.Errorf("%w: %s enrollment is %s", ErrNotEligible, kind, en.State)
	}
	return en, nil
}

func (e *Engine) recompute(ctx context.Context, pe *enrollment.Enrollment) (float64, error) {
	crits, err := e.criteria.ListByEvent(ctx, pe.EventID)
	if err != nil {
		return 0, err
	}
	weights := make(map[uuid.UUID]float64, len(crits))
	var total float64
	for _, c := range crits {
		weights[c.ID] = c.Weight
		total += c.Weight
	}

	scores, err := e.scores.ListByParticipant(ctx, pe.ProfileID, pe.EventID)
	if err != nil {
		return 0, err
	}
	weighted := make([]Weighted, 0, len(scores))
	for _, s := range scores {
		w, ok := weights[s.CriterionID]
		if !ok {
			continue
		}
		weighted = append(weighted, Weighted{EvaluatorID: s.EvaluatorID, Value: s.Value, Weight: w})
	}

	aggregate := Aggregate(weighted, total)
	if err := e.enrollments.SetAggregate(ctx, pe.ID, aggregate); err != nil {
		return 0, err
	}
	pe.AggregateScore = &aggregate
	return aggregate, nil
}
