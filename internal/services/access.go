package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/gravadigital/eventsoft-api/internal/domain/account"
	"github.com/gravadigital/eventsoft-api/internal/domain/event"
)

type eventReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*event.Event, error)
}

// requireAdministrator loads the event when actor is its event administrator
func requireAdministrator(ctx context.Context, events eventReader, actor account.ActiveRole, eventID uuid.UUID) (*event.Event, error) {
	if !actor.Allows(account.RoleEventAdmin) {
		return nil, ErrForbidden
	}
	ev, err := events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !ev.IsAdministrator(actor.UserID) {
		return nil, event.ErrNotAdministrator
	}
	return ev, nil
}

// requireOverseer also lets superadmins through, for read-only views
func requireOverseer(ctx context.Context, events eventReader, actor account.ActiveRole, eventID uuid.UUID) (*event.Event, error) {
	if actor.Allows(account.RoleSuperadmin) {
		return events.GetByID(ctx, eventID)
	}
	return requireAdministrator(ctx, events, actor, eventID)
}
