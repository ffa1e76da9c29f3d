package services

import (
	"context"
	"errors"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/google/uuid"

	"github.com/gravadigital/eventsoft-api/internal/domain/account"
	"github.com/gravadigital/eventsoft-api/internal/domain/common"
	"github.com/gravadigital/eventsoft-api/internal/domain/criterion"
	"github.com/gravadigital/eventsoft-api/internal/domain/enrollment"
	"github.com/gravadigital/eventsoft-api/internal/domain/ranking"
	"github.com/gravadigital/eventsoft-api/internal/domain/scoring"
)

// CriterionInput is a criterion description and weight
type CriterionInput struct {
	Description string  `json:"description"`
	Weight      float64 `json:"weight"`
}

func (in CriterionInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Description, validation.Required, validation.Length(1, 500)),
		validation.Field(&in.Weight, validation.Min(0.0)),
	)
}

// ScoreInput is one grade submitted by the acting evaluator
type ScoreInput struct {
	ParticipantID uuid.UUID `json:"participant_id"`
	CriterionID   uuid.UUID `json:"criterion_id"`
	Value         int       `json:"value"`
	Note          string    `json:"note"`
}

// EvaluationService puts role checks in front of the criterion store, the scoring engine and the ranking board
type EvaluationService struct {
	accounts    Accounts
	events      Events
	enrollments Enrollments
	criteria    *criterion.Store
	engine      *scoring.Engine
	board       *ranking.Board
}

func NewEvaluationService(accounts Accounts, events Events, enrollments Enrollments, criteria *criterion.Store, engine *scoring.Engine, board *ranking.Board) *EvaluationService {
	return &EvaluationService{
		accounts:    accounts,
		events:      events,
		enrollments: enrollments,
		criteria:    criteria,
		engine:      engine,
		board:       board,
	}
}

func (s *EvaluationService) AddCriterion(ctx context.Context, actor account.ActiveRole, eventID uuid.UUID, in CriterionInput) (*criterion.Criterion, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := s.requireCriteriaEditor(ctx, actor, eventID); err != nil {
		return nil, err
	}
	return s.criteria.Add(ctx, eventID, in.Description, in.Weight)
}

func (s *EvaluationService) EditCriterion(ctx context.Context, actor account.ActiveRole, id uuid.UUID, in CriterionInput) (*criterion.Criterion, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	c, err := s.criteria.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireCriteriaEditor(ctx, actor, c.EventID); err != nil {
		return nil, err
	}
	return s.criteria.Edit(ctx, id, in.Description, in.Weight)
}

func (s *EvaluationService) RemoveCriterion(ctx context.Context, actor account.ActiveRole, id uuid.UUID) error {
	c, err := s.criteria.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.requireCriteriaEditor(ctx, actor, c.EventID); err != nil {
		return err
	}
	return s.criteria.Remove(ctx, id)
}

// Criteria lists the criteria of an event with their total weight
func (s *EvaluationService) Criteria(ctx context.Context, eventID uuid.UUID) ([]*criterion.Criterion, float64, error) {
	if _, err := s.events.GetByID(ctx, eventID); err != nil {
		return nil, 0, err
	}
	list, err := s.criteria.List(ctx, eventID)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.criteria.TotalWeight(ctx, eventID)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// Submit records the acting evaluator's grade and returns the participant's new aggregate
func (s *EvaluationService) Submit(ctx context.Context, actor account.ActiveRole, in ScoreInput) (float64, error) {
	evaluatorID, err := s.profileOf(ctx, actor, common.KindEvaluator)
	if err != nil {
		return 0, err
	}
	return s.engine.SubmitScore(ctx, scoring.SubmitInput{
		EvaluatorID:   evaluatorID,
		ParticipantID: in.ParticipantID,
		CriterionID:   in.CriterionID,
		Value:         in.Value,
		Note:          in.Note,
	})
}

// Progress tells the acting evaluator how many criteria remain for a participant
func (s *EvaluationService) Progress(ctx context.Context, actor account.ActiveRole, eventID, participantID uuid.UUID) (scoring.Progress, error) {
	evaluatorID, err := s.profileOf(ctx, actor, common.KindEvaluator)
	if err != nil {
		return scoring.Progress{}, err
	}
	return s.engine.EvaluationProgress(ctx, evaluatorID, participantID, eventID)
}

// Sheet lists the participants of an event with the acting evaluator's grades
func (s *EvaluationService) Sheet(ctx context.Context, actor account.ActiveRole, eventID uuid.UUID) ([]*scoring.SheetRow, error) {
	evaluatorID, err := s.profileOf(ctx, actor, common.KindEvaluator)
	if err != nil {
		return nil, err
	}
	return s.engine.EvaluatorSheet(ctx, evaluatorID, eventID)
}

// MyScores is the acting participant's own breakdown
func (s *EvaluationService) MyScores(ctx context.Context, actor account.ActiveRole, eventID uuid.UUID) (*scoring.ParticipantBreakdown, error) {
	participantID, err := s.profileOf(ctx, actor, common.KindParticipant)
	if err != nil {
		return nil, err
	}
	return s.engine.ParticipantScores(ctx, participantID, eventID)
}

// Breakdown lists every approved participant's grades, for the event's overseers
func (s *EvaluationService) Breakdown(ctx context.Context, actor account.ActiveRole, eventID uuid.UUID) ([]*scoring.ParticipantBreakdown, error) {
	if _, err := requireOverseer(ctx, s.events, actor, eventID); err != nil {
		return nil, err
	}
	return s.engine.Breakdown(ctx, eventID)
}

// Ranking orders the approved participants of an event; the event's approved evaluators see it as well
func (s *EvaluationService) Ranking(ctx context.Context, actor account.ActiveRole, eventID uuid.UUID) ([]ranking.Standing, error) {
	if actor.Allows(account.RoleEvaluator) {
		if err := s.requireAssignedEvaluator(ctx, actor, eventID); err != nil {
			return nil, err
		}
	} else if _, err := requireOverseer(ctx, s.events, actor, eventID); err != nil {
		return nil, err
	}
	return s.board.Rank(ctx, eventID)
}

// requireCriteriaEditor admits the event's administrator or one of its approved evaluators
func (s *EvaluationService) requireCriteriaEditor(ctx context.Context, actor account.ActiveRole, eventID uuid.UUID) error {
	if actor.Allows(account.RoleEvaluator) {
		return s.requireAssignedEvaluator(ctx, actor, eventID)
	}
	_, err := requireAdministrator(ctx, s.events, actor, eventID)
	return err
}

// requireAssignedEvaluator checks that the acting evaluator holds an approved registration in the event
func (s *EvaluationService) requireAssignedEvaluator(ctx context.Context, actor account.ActiveRole, eventID uuid.UUID) error {
	if _, err := s.events.GetByID(ctx, eventID); err != nil {
		return err
	}
	evaluatorID, err := s.profileOf(ctx, actor, common.KindEvaluator)
	if errors.Is(err, scoring.ErrNotEligible) {
		return ErrForbidden
	}
	if err != nil {
		return err
	}
	en, err := s.enrollments.Find(ctx, common.KindEvaluator, evaluatorID, eventID)
	if errors.Is(err, enrollment.ErrNotFound) {
		return ErrForbidden
	}
	if err != nil {
		return err
	}
	if en.State != enrollment.StateApproved {
		return ErrForbidden
	}
	return nil
}

// profileOf resolves the identity wrapper behind the active role
func (s *EvaluationService) profileOf(ctx context.Context, actor account.ActiveRole, kind common.Kind) (uuid.UUID, error) {
	if !actor.Allows(account.RoleForKind(kind)) {
		return uuid.Nil, ErrForbidden
	}
	p, err := s.accounts.GetProfileByUser(ctx, actor.UserID, kind)
	if errors.Is(err, account.ErrNotFound) {
		return uuid.Nil, scoring.ErrNotEligible
	}
	if err != nil {
		return uuid.Nil, err
	}
	return p.ID, nil
}
