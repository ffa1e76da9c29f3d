package services

import (
	"context"
	"errors"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/gravadigital/eventsoft-api/internal/domain/account"
	"github.com/gravadigital/eventsoft-api/internal/domain/enrollment"
	"github.com/gravadigital/eventsoft-api/internal/logger"
	"github.com/gravadigital/eventsoft-api/internal/storage/files"
)

// EnrollmentService exposes the registration state machine to event administrators
// and the stored files to their owners
type EnrollmentService struct {
	accounts    Accounts
	events      Events
	enrollments Enrollments
	machine     *enrollment.Machine
	files       files.Store
	log         *log.Logger
}

func NewEnrollmentService(accounts Accounts, events Events, enrollments Enrollments, machine *enrollment.Machine, store files.Store) *EnrollmentService {
	return &EnrollmentService{
		accounts:    accounts,
		events:      events,
		enrollments: enrollments,
		machine:     machine,
		files:       store,
		log:         logger.Service("enrollment"),
	}
}

// List returns the enrollments of an event matching filter
func (s *EnrollmentService) List(ctx context.Context, actor account.ActiveRole, filter enrollment.Filter) ([]*enrollment.Member, error) {
	if _, err := requireOverseer(ctx, s.events, actor, filter.EventID); err != nil {
		return nil, err
	}
	return s.enrollments.List(ctx, filter)
}

// Transition moves an enrollment of one of the actor's events to state
func (s *EnrollmentService) Transition(ctx context.Context, actor account.ActiveRole, id uuid.UUID, to enrollment.State) (*enrollment.Enrollment, error) {
	e, err := s.enrollments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := requireAdministrator(ctx, s.events, actor, e.EventID); err != nil {
		return nil, err
	}
	return s.machine.Transition(ctx, id, to)
}

// Mine lists the enrollments of the actor's user across every kind
func (s *EnrollmentService) Mine(ctx context.Context, actor account.ActiveRole) ([]*enrollment.Enrollment, error) {
	return s.enrollments.ListByUser(ctx, actor.UserID)
}

// QR returns the QR image of an approved enrollment
func (s *EnrollmentService) QR(ctx context.Context, actor account.ActiveRole, id uuid.UUID) ([]byte, string, error) {
	e, err := s.readable(ctx, actor, id)
	if err != nil {
		return nil, "", err
	}
	return fetch(ctx, s.files, e.QRKey)
}

// Document returns the support document uploaded with a registration
func (s *EnrollmentService) Document(ctx context.Context, actor account.ActiveRole, id uuid.UUID) ([]byte, string, error) {
	e, err := s.readable(ctx, actor, id)
	if err != nil {
		return nil, "", err
	}
	return fetch(ctx, s.files, e.DocumentKey)
}

// readable loads an enrollment the actor owns or administers
func (s *EnrollmentService) readable(ctx context.Context, actor account.ActiveRole, id uuid.UUID) (*enrollment.Enrollment, error) {
	e, err := s.enrollments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	profile, err := s.accounts.GetProfileByUser(ctx, actor.UserID, e.Kind)
	if err == nil && profile.ID == e.ProfileID {
		return e, nil
	}
	if err != nil && !errors.Is(err, account.ErrNotFound) {
		return nil, err
	}

	if _, err := requireOverseer(ctx, s.events, actor, e.EventID); err != nil {
		return nil, err
	}
	return e, nil
}
