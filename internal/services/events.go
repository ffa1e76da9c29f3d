package services

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/gravadigital/eventsoft-api/internal/domain/account"
	"github.com/gravadigital/eventsoft-api/internal/domain/common"
	"github.com/gravadigital/eventsoft-api/internal/domain/enrollment"
	"github.com/gravadigital/eventsoft-api/internal/domain/event"
	"github.com/gravadigital/eventsoft-api/internal/domain/scoring"
	"github.com/gravadigital/eventsoft-api/internal/logger"
	"github.com/gravadigital/eventsoft-api/internal/storage/files"
)

// Asset is a file an administrator attaches to an event
type Asset string

const (
	AssetImage    Asset = "image"
	AssetSchedule Asset = "schedule"
)

// KindCounts counts the enrollments of one kind
type KindCounts struct {
	Total    int64 `json:"total"`
	Approved int64 `json:"approved"`
	Pending  int64 `json:"pending"`
}

// Statistics summarizes registrations and occupancy of an event
type Statistics struct {
	EventID       uuid.UUID  `json:"event_id"`
	Attendees     KindCounts `json:"attendees"`
	Participants  KindCounts `json:"participants"`
	Evaluators    KindCounts `json:"evaluators"`
	Capacity      int        `json:"capacity"`
	CapacityTotal int        `json:"capacity_total"`
	Occupancy     float64    `json:"occupancy_percentage"`
	Availability  float64    `json:"availability_percentage"`
}

// EventService drives the event lifecycle after creation
type EventService struct {
	uow         common.UnitOfWork
	events      Events
	enrollments Enrollments
	files       files.Store
	log         *log.Logger
}

func NewEventService(uow common.UnitOfWork, events Events, enrollments Enrollments, store files.Store) *EventService {
	return &EventService{
		uow:         uow,
		events:      events,
		enrollments: enrollments,
		files:       store,
		log:         logger.Service("event"),
	}
}

func (s *EventService) Get(ctx context.Context, id uuid.UUID) (*event.Event, error) {
	return s.events.GetByID(ctx, id)
}

// List returns events matching filter. Only approved events are public.
func (s *EventService) List(ctx context.Context, actor *account.ActiveRole, filter event.Filter) ([]*event.Event, error) {
	switch {
	case actor != nil && actor.Allows(account.RoleSuperadmin):
	case actor != nil && actor.Allows(account.RoleEventAdmin):
		filter.AdministratorID = &actor.UserID
	default:
		approved := event.StateApproved
		filter.State = &approved
		filter.AdministratorID = nil
	}
	return s.events.List(ctx, filter)
}

// ChangeState applies a lifecycle transition. Superadmins decide on pending events;
// the event's administrator closes, reopens and finishes it.
func (s *EventService) ChangeState(ctx context.Context, actor account.ActiveRole, id uuid.UUID, next event.State) (*event.Event, error) {
	s.log.Debug("Changing event state", "id", id, "to", next, "user_id", actor.UserID)

	var result *event.Event
	err := s.uow.WithTx(ctx, func(ctx context.Context) error {
		ev, err := s.events.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := authorizeStateChange(actor, ev); err != nil {
			return err
		}
		if err := ev.UpdateState(next); err != nil {
			return err
		}
		if err := s.events.Update(ctx, ev); err != nil {
			return err
		}
		result = ev
		return nil
	})
	if err != nil {
		s.log.Error("Event state change failed", "id", id, "to", next, "error", err)
		return nil, err
	}

	s.log.Info("Event state changed", "id", id, "state", next)
	return result, nil
}

func authorizeStateChange(actor account.ActiveRole, ev *event.Event) error {
	if ev.State == event.StatePending {
		if !actor.Allows(account.RoleSuperadmin) {
			return ErrForbidden
		}
		return nil
	}
	if !actor.Allows(account.RoleEventAdmin) {
		return ErrForbidden
	}
	if !ev.IsAdministrator(actor.UserID) {
		return event.ErrNotAdministrator
	}
	return nil
}

// Statistics counts enrollments per kind and derives occupancy. Approved attendees already
// took their seat out of the capacity, so the original capacity is capacity plus them.
func (s *EventService) Statistics(ctx context.Context, actor account.ActiveRole, id uuid.UUID) (*Statistics, error) {
	ev, err := requireOverseer(ctx, s.events, actor, id)
	if err != nil {
		return nil, err
	}

	stats := &Statistics{EventID: ev.ID, Capacity: ev.Capacity}
	for _, kind := range common.Kinds() {
		counts, err := s.count(ctx, ev.ID, kind)
		if err != nil {
			return nil, err
		}
		switch kind {
		case common.KindAttendee:
			stats.Attendees = counts
		case common.KindParticipant:
			stats.Participants = counts
		case common.KindEvaluator:
			stats.Evaluators = counts
		}
	}

	stats.CapacityTotal = ev.Capacity + int(stats.Attendees.Approved)
	if stats.CapacityTotal > 0 {
		total := float64(stats.CapacityTotal)
		stats.Occupancy = scoring.Round2(float64(stats.Attendees.Approved) / total * 100)
		stats.Availability = scoring.Round2(float64(ev.Capacity) / total * 100)
	}
	return stats, nil
}

func (s *EventService) count(ctx context.Context, eventID uuid.UUID, kind common.Kind) (KindCounts, error) {
	var c KindCounts
	var err error
	if c.Total, err = s.enrollments.Count(ctx, eventID, kind, nil); err != nil {
		return c, fmt.Errorf("EventService.count -> %w", err)
	}
	approved := enrollment.StateApproved
	if c.Approved, err = s.enrollments.Count(ctx, eventID, kind, &approved); err != nil {
		return c, fmt.Errorf("EventService.count -> %w", err)
	}
	pending := enrollment.StatePending
	if c.Pending, err = s.enrollments.Count(ctx, eventID, kind, &pending); err != nil {
		return c, fmt.Errorf("EventService.count -> %w", err)
	}
	return c, nil
}

// CapacityLedger lists the capacity adjustments made by enrollment transitions
func (s *EventService) CapacityLedger(ctx context.Context, actor account.ActiveRole, id uuid.UUID) ([]*enrollment.CapacityAdjustment, error) {
	if _, err := requireOverseer(ctx, s.events, actor, id); err != nil {
		return nil, err
	}
	return s.enrollments.ListCapacityAdjustments(ctx, id)
}

// SetAsset stores the event image or schedule, replacing any previous file
func (s *EventService) SetAsset(ctx context.Context, actor account.ActiveRole, id uuid.UUID, asset Asset, upload Upload) (*event.Event, error) {
	if asset != AssetImage && asset != AssetSchedule {
		return nil, ErrUnknownAsset
	}
	ev, err := requireAdministrator(ctx, s.events, actor, id)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("events/%s/%s_%s", ev.ID, asset, filepath.Base(upload.Filename))
	if err := s.files.Put(ctx, key, upload.Data, upload.ContentType); err != nil {
		return nil, fmt.Errorf("EventService.SetAsset -> %w", err)
	}

	previous := ev.ImageKey
	if asset == AssetSchedule {
		previous = ev.ScheduleKey
		ev.ScheduleKey = key
	} else {
		ev.ImageKey = key
	}
	if err := s.events.Update(ctx, ev); err != nil {
		_ = s.files.Delete(ctx, key)
		return nil, err
	}
	if previous != "" && previous != key {
		if err := s.files.Delete(ctx, previous); err != nil {
			s.log.Warn("Failed to delete replaced asset", "key", previous, "error", err)
		}
	}

	s.log.Info("Event asset stored", "id", ev.ID, "asset", asset, "key", key)
	return ev, nil
}

// Asset returns the stored image or schedule of an event
func (s *EventService) Asset(ctx context.Context, id uuid.UUID, asset Asset) ([]byte, string, error) {
	if asset != AssetImage && asset != AssetSchedule {
		return nil, "", ErrUnknownAsset
	}
	ev, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, "", err
	}
	key := ev.ImageKey
	if asset == AssetSchedule {
		key = ev.ScheduleKey
	}
	return fetch(ctx, s.files, key)
}

// fetch reads a stored file after checking that it exists
func fetch(ctx context.Context, store files.Store, key string) ([]byte, string, error) {
	if key == "" {
		return nil, "", files.ErrFileNotFound
	}
	ok, err := store.Exists(ctx, key)
	if err != nil {
		return nil, "", err
	}
	if !ok {
		return nil, "", files.ErrFileNotFound
	}
	data, err := store.Get(ctx, key)
	if err != nil {
		return nil, "", err
	}
	return data, filepath.Base(key), nil
}
