package scoring

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/gravadigital/eventsoft-api/internal/domain/common"
	"github.com/gravadigital/eventsoft-api/internal/domain/enrollment"
)

// Line is one graded criterion as shown to administrators and evaluators
type Line struct {
	EvaluatorID  uuid.UUID `json:"evaluator_id"`
	CriterionID  uuid.UUID `json:"criterion_id"`
	Criterion    string    `json:"criterion"`
	Weight       float64   `json:"weight"`
	Value        int       `json:"value"`
	Contribution float64   `json:"contribution"`
	Note         string    `json:"note,omitempty"`
}

// ParticipantBreakdown is the administrator view of one participant's grades
type ParticipantBreakdown struct {
	ParticipantID  uuid.UUID `json:"participant_id"`
	Name           string    `json:"name"`
	Document       string    `json:"document"`
	CriteriaScored int       `json:"criteria_scored"`
	TotalCriteria  int       `json:"total_criteria"`
	Evaluators     int       `json:"evaluators"`
	Lines          []Line    `json:"scores"`
	DisplayAverage *float64  `json:"display_average"`
	Aggregate      *float64  `json:"aggregate_score"`
}

// SheetRow is an evaluator's own view of one participant
type SheetRow struct {
	ParticipantID uuid.UUID `json:"participant_id"`
	Name          string    `json:"name"`
	Progress      Progress  `json:"progress"`
	Evaluated     bool      `json:"evaluated"`
	Lines         []Line    `json:"scores"`
	Weighted      *float64  `json:"weighted_total"`
}

// Breakdown lists every approved participant of an event with their grades and display average
func (e *Engine) Breakdown(ctx context.Context, eventID uuid.UUID) ([]*ParticipantBreakdown, error) {
	total, err := e.criteriaCount(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("Engine.Breakdown -> %w", err)
	}

	members, err := e.approvedParticipants(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("Engine.Breakdown -> %w", err)
	}

	out := make([]*ParticipantBreakdown, 0, len(members))
	for _, m := range members {
		b, err := e.breakdown(ctx, m, total)
		if err != nil {
			return nil, fmt.Errorf("Engine.Breakdown -> %w", err)
		}
		out = append(out, b)
	}
	return out, nil
}

// ParticipantScores returns the breakdown of a single approved participant
func (e *Engine) ParticipantScores(ctx context.Context, participantID, eventID uuid.UUID) (*ParticipantBreakdown, error) {
	total, err := e.criteriaCount(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("Engine.ParticipantScores -> %w", err)
	}

	members, err := e.approvedParticipants(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("Engine.ParticipantScores -> %w", err)
	}
	for _, m := range members {
		if m.Enrollment.ProfileID == participantID {
			b, err := e.breakdown(ctx, m, total)
			if err != nil {
				return nil, fmt.Errorf("Engine.ParticipantScores -> %w", err)
			}
			return b, nil
		}
	}
	return nil, fmt.Errorf("Engine.ParticipantScores -> %w", ErrNotEligible)
}

// EvaluatorSheet shows an approved evaluator the participants of the event with their own grades only
func (e *Engine) EvaluatorSheet(ctx context.Context, evaluatorID, eventID uuid.UUID) ([]*SheetRow, error) {
	if _, err := e.approved(ctx, common.KindEvaluator, evaluatorID, eventID, false); err != nil {
		return nil, fmt.Errorf("Engine.EvaluatorSheet -> %w", err)
	}

	total, err := e.criteriaCount(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("Engine.EvaluatorSheet -> %w", err)
	}
	members, err := e.approvedParticipants(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("Engine.EvaluatorSheet -> %w", err)
	}

	rows := make([]*SheetRow, 0, len(members))
	for _, m := range members {
		scores, err := e.scores.ListByParticipant(ctx, m.Enrollment.ProfileID, eventID)
		if err != nil {
			return nil, fmt.Errorf("Engine.EvaluatorSheet -> %w", err)
		}

		row := &SheetRow{ParticipantID: m.Enrollment.ProfileID, Name: m.User.FullName()}
		var sum float64
		for _, s := range scores {
			if s.EvaluatorID != evaluatorID {
				continue
			}
			line := toLine(s)
			sum += Contribution(s.Value, line.Weight)
			row.Lines = append(row.Lines, line)
		}
		row.Progress = Progress{Scored: len(row.Lines), Total: total}
		row.Evaluated = row.Progress.Complete()
		if len(row.Lines) > 0 {
			w := Round2(sum)
			row.Weighted = &w
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (e *Engine) breakdown(ctx context.Context, m *enrollment.Member, total int) (*ParticipantBreakdown, error) {
	scores, err := e.scores.ListByParticipant(ctx, m.Enrollment.ProfileID, m.Enrollment.EventID)
	if err != nil {
		return nil, err
	}

	evaluators := make(map[uuid.UUID]struct{})
	criteria := make(map[uuid.UUID]struct{})
	var contributions float64
	lines := make([]Line, 0, len(scores))
	for _, s := range scores {
		evaluators[s.EvaluatorID] = struct{}{}
		criteria[s.CriterionID] = struct{}{}
		line := toLine(s)
		contributions += Contribution(s.Value, line.Weight)
		lines = append(lines, line)
	}

	return &ParticipantBreakdown{
		ParticipantID:  m.Enrollment.ProfileID,
		Name:           m.User.FullName(),
		Document:       m.User.Document,
		CriteriaScored: len(criteria),
		TotalCriteria:  total,
		Evaluators:     len(evaluators),
		Lines:          lines,
		DisplayAverage: DisplayAverage(contributions, len(evaluators)),
		Aggregate:      m.Enrollment.AggregateScore,
	}, nil
}

func (e *Engine) approvedParticipants(ctx context.Context, eventID uuid.UUID) ([]*enrollment.Member, error) {
	approved := enrollment.StateApproved
	return e.enrollments.List(ctx, enrollment.Filter{
		EventID: eventID,
		Kind:    common.KindParticipant,
		State:   &approved,
	})
}

func (e *Engine) criteriaCount(ctx context.Context, eventID uuid.UUID) (int, error) {
	crits, err := e.criteria.ListByEvent(ctx, eventID)
	if err != nil {
		return 0, err
	}
	return len(crits), nil
}

func toLine(s *Score) Line {
	line := Line{
		EvaluatorID: s.EvaluatorID,
		CriterionID: s.CriterionID,
		Value:       s.Value,
		Note:        s.Note,
	}
	if s.Criterion != nil {
		line.Criterion = s.Criterion.Description
		line.Weight = s.Criterion.Weight
	}
	line.Contribution = Round2(Contribution(s.Value, line.Weight))
	return line
}
