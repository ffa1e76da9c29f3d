package event

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gravadigital/eventsoft-api/internal/domain/common"
)

var (
	ErrNotFound          = errors.New("event not found")
	ErrInvalidTransition = errors.New("invalid event state transition")
	ErrNotAdministrator  = errors.New("user does not administer this event")
	ErrClosed            = errors.New("event does not accept registrations")
)

// Event is a proposed or running event that attendees, participants and evaluators register to
type Event struct {
	ID              uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	Name            string     `json:"name" gorm:"size:200;not null"`
	Description     string     `json:"description" gorm:"not null"`
	City            string     `json:"city" gorm:"size:120"`
	Venue           string     `json:"venue" gorm:"size:200"`
	StartDate       time.Time  `json:"start_date" gorm:"not null"`
	EndDate         time.Time  `json:"end_date" gorm:"not null"`
	Capacity        int        `json:"capacity" gorm:"not null;default:0"`
	HasCost         bool       `json:"has_cost" gorm:"not null;default:false"`
	State           State      `json:"state" gorm:"type:varchar(32);not null;index"`
	AdministratorID uuid.UUID  `json:"administrator_id" gorm:"type:uuid;not null;index"`
	InvitationID    *uuid.UUID `json:"invitation_id,omitempty" gorm:"type:uuid"`
	ImageKey        string     `json:"image_key,omitempty" gorm:"size:255"`
	ScheduleKey     string     `json:"schedule_key,omitempty" gorm:"size:255"`
	CreatedAt       time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt       time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

// Filter narrows event listings; nil fields match everything
type Filter struct {
	State           *State
	AdministratorID *uuid.UUID
}

// TableName overrides the table name used by GORM
func (Event) TableName() string {
	return "events"
}

// BeforeCreate sets a UUID before creating the record
func (e *Event) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// NewEvent creates a pending event owned by administratorID
func NewEvent(name, description string, administratorID uuid.UUID, startDate, endDate time.Time, capacity int, hasCost bool) *Event {
	return &Event{
		ID:              uuid.New(),
		Name:            name,
		Description:     description,
		AdministratorID: administratorID,
		StartDate:       startDate,
		EndDate:         endDate,
		Capacity:        capacity,
		HasCost:         hasCost,
		State:           StatePending,
	}
}

// IsAdministrator checks if the given user ID administers this event
func (e *Event) IsAdministrator(userID uuid.UUID) bool {
	return e.AdministratorID == userID
}

// AcceptsRegistrations reports whether new enrollments may be created
func (e *Event) AcceptsRegistrations() bool {
	return e.State == StateApproved
}

// IsFree reports whether the event has no attendance cost
func (e *Event) IsFree() bool {
	return !e.HasCost
}

// CanTransitionTo checks if the event can move to a new state
func (e *Event) CanTransitionTo(next State) bool {
	transitions := map[State][]State{
		StatePending:             {StateApproved, StateRejected},
		StateApproved:            {StateRegistrationsClosed, StateFinished},
		StateRegistrationsClosed: {StateApproved, StateFinished},
		StateRejected:            {},
		StateFinished:            {},
	}

	allowed, exists := transitions[e.State]
	if !exists {
		return false
	}

	return slices.Contains(allowed, next)
}

// UpdateState updates the state if the transition is valid
func (e *Event) UpdateState(next State) error {
	if !e.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, e.State, next)
	}
	e.State = next
	return nil
}

// AdjustCapacity adds delta to the capacity, never going below zero, and
// returns the delta that was actually applied.
func (e *Event) AdjustCapacity(delta int) int {
	next := e.Capacity + delta
	if next < 0 {
		next = 0
	}
	applied := next - e.Capacity
	e.Capacity = next
	return applied
}

// Validate checks if the event data is valid
func (e *Event) Validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if strings.TrimSpace(e.Description) == "" {
		return fmt.Errorf("description is required")
	}
	if e.AdministratorID == uuid.Nil {
		return fmt.Errorf("administrator_id is required")
	}
	if e.EndDate.Before(e.StartDate) {
		return fmt.Errorf("end_date must be after start_date")
	}
	if e.Capacity < 0 {
		return fmt.Errorf("capacity cannot be negative")
	}
	return nil
}

// State represents where an event is in its approval lifecycle
type State byte

const (
	StatePending State = iota + 1
	StateApproved
	StateRejected
	StateRegistrationsClosed
	StateFinished
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateApproved:
		return "approved"
	case StateRejected:
		return "rejected"
	case StateRegistrationsClosed:
		return "registrations_closed"
	case StateFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// MarshalJSON implements the json.Marshaler interface
func (s State) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON implements the json.Unmarshaler interface
func (s *State) UnmarshalJSON(data []byte) error {
	str := string(data)
	if len(str) >= 2 && str[0] == '"' && str[len(str)-1] == '"' {
		str = str[1 : len(str)-1]
	}

	state, valid := StateFromString(str)
	if !valid {
		return fmt.Errorf("invalid state: %s", str)
	}
	*s = state
	return nil
}

// StateFromString converts a string to a State
func StateFromString(s string) (State, bool) {
	switch s {
	case "pending":
		return StatePending, true
	case "approved":
		return StateApproved, true
	case "rejected":
		return StateRejected, true
	case "registrations_closed":
		return StateRegistrationsClosed, true
	case "finished":
		return StateFinished, true
	default:
		return 0, false
	}
}

// Scan implements the sql.Scanner interface for database deserialization
func (s *State) Scan(value any) error {
	str, err := common.ScanString(value)
	if err != nil {
		return fmt.Errorf("cannot scan %T into State", value)
	}

	state, valid := StateFromString(str)
	if !valid {
		return fmt.Errorf("invalid state value: %s", str)
	}
	*s = state
	return nil
}

// Value implements the driver.Valuer interface for database serialization
func (s State) Value() (driver.Value, error) {
	return s.String(), nil
}
