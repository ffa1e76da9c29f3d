package criterion

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/gravadigital/eventsoft-api/internal/domain/common"
	"github.com/gravadigital/eventsoft-api/internal/domain/event"
	"github.com/gravadigital/eventsoft-api/internal/logger"
)

type Repository interface {
	Create(ctx context.Context, c *Criterion) error
	GetByID(ctx context.Context, id uuid.UUID) (*Criterion, error)
	Update(ctx context.Context, c *Criterion) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]*Criterion, error)
	// SumWeights totals the event's weights, leaving out the criterion named by excluding
	SumWeights(ctx context.Context, eventID, excluding uuid.UUID) (float64, error)
}

type EventLocker interface {
	GetForUpdate(ctx context.Context, id uuid.UUID) (*event.Event, error)
}

// ScoreStore is the part of the score storage a criterion change touches
type ScoreStore interface {
	DeleteByCriterion(ctx context.Context, criterionID uuid.UUID) error
	InvalidateAggregates(ctx context.Context, eventID uuid.UUID) error
}

// Store keeps the criteria of every event within the weight ceiling
type Store struct {
	uow    common.UnitOfWork
	repo   Repository
	events EventLocker
	scores ScoreStore
	log    *log.Logger
}

func NewStore(uow common.UnitOfWork, repo Repository, events EventLocker, scores ScoreStore) *Store {
	return &Store{
		uow:    uow,
		repo:   repo,
		events: events,
		scores: scores,
		log:    logger.Service("criterion_store"),
	}
}

// Add creates a criterion when the event's total weight allows it
func (s *Store) Add(ctx context.Context, eventID uuid.UUID, description string, weight float64) (*Criterion, error) {
	s.log.Debug("Adding criterion", "event_id", eventID, "weight", weight)

	if err := checkDescription(description); err != nil {
		return nil, err
	}
	if err := CheckWeight(weight); err != nil {
		return nil, err
	}

	c := &Criterion{EventID: eventID, Description: strings.TrimSpace(description), Weight: weight}
	err := s.uow.WithTx(ctx, func(ctx context.Context) error {
		if _, err := s.events.GetForUpdate(ctx, eventID); err != nil {
			return err
		}
		total, err := s.repo.SumWeights(ctx, eventID, uuid.Nil)
		if err != nil {
			return err
		}
		if err := CheckTotal(total, weight); err != nil {
			return err
		}
		if err := s.repo.Create(ctx, c); err != nil {
			return err
		}
		return s.scores.InvalidateAggregates(ctx, eventID)
	})
	if err != nil {
		s.log.Error("Failed to add criterion", "event_id", eventID, "error", err)
		return nil, fmt.Errorf("Store.Add -> %w", err)
	}

	s.log.Info("Criterion added", "criterion_id", c.ID, "event_id", eventID)
	return c, nil
}

// Edit replaces description and weight. The edited criterion's old weight does not count against the ceiling.
func (s *Store) Edit(ctx context.Context, id uuid.UUID, description string, weight float64) (*Criterion, error) {
	s.log.Debug("Editing criterion", "criterion_id", id, "weight", weight)

	if err := checkDescription(description); err != nil {
		return nil, err
	}
	if err := CheckWeight(weight); err != nil {
		return nil, err
	}

	var c *Criterion
	err := s.uow.WithTx(ctx, func(ctx context.Context) error {
		current, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if _, err := s.events.GetForUpdate(ctx, current.EventID); err != nil {
			return err
		}
		others, err := s.repo.SumWeights(ctx, current.EventID, current.ID)
		if err != nil {
			return err
		}
		if err := CheckTotal(others, weight); err != nil {
			return err
		}

		current.Description = strings.TrimSpace(description)
		current.Weight = weight
		if err := s.repo.Update(ctx, current); err != nil {
			return err
		}
		c = current
		return s.scores.InvalidateAggregates(ctx, current.EventID)
	})
	if err != nil {
		s.log.Error("Failed to edit criterion", "criterion_id", id, "error", err)
		return nil, fmt.Errorf("Store.Edit -> %w", err)
	}

	s.log.Info("Criterion edited", "criterion_id", id)
	return c, nil
}

// Remove deletes a criterion and its scores. Remaining weights are left as they are.
func (s *Store) Remove(ctx context.Context, id uuid.UUID) error {
	s.log.Debug("Removing criterion", "criterion_id", id)

	err := s.uow.WithTx(ctx, func(ctx context.Context) error {
		current, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if _, err := s.events.GetForUpdate(ctx, current.EventID); err != nil {
			return err
		}
		if err := s.scores.DeleteByCriterion(ctx, id); err != nil {
			return err
		}
		if err := s.repo.Delete(ctx, id); err != nil {
			return err
		}
		return s.scores.InvalidateAggregates(ctx, current.EventID)
	})
	if err != nil {
		s.log.Error("Failed to remove criterion", "criterion_id", id, "error", err)
		return fmt.Errorf("Store.Remove -> %w", err)
	}

	s.log.Info("Criterion removed", "criterion_id", id)
	return nil
}

// Get returns a single criterion
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Criterion, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns the criteria of an event
func (s *Store) List(ctx context.Context, eventID uuid.UUID) ([]*Criterion, error) {
	return s.repo.ListByEvent(ctx, eventID)
}

// TotalWeight returns the sum of the event's criterion weights
func (s *Store) TotalWeight(ctx context.Context, eventID uuid.UUID) (float64, error) {
	return s.repo.SumWeights(ctx, eventID, uuid.Nil)
}
