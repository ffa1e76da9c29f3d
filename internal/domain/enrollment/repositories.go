package enrollment

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/gravadigital/eventsoft-api/internal/domain/account"
	"github.com/gravadigital/eventsoft-api/internal/domain/common"
	"github.com/gravadigital/eventsoft-api/internal/domain/event"
)

// Repository interfaces for the registration state machine

type Repository interface {
	Create(ctx context.Context, e *Enrollment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Enrollment, error)
	// GetForUpdate reads the row under a write lock when the driver supports it
	GetForUpdate(ctx context.Context, id uuid.UUID) (*Enrollment, error)
	Find(ctx context.Context, kind common.Kind, profileID, eventID uuid.UUID) (*Enrollment, error)
	Update(ctx context.Context, e *Enrollment) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountByProfile(ctx context.Context, profileID uuid.UUID) (int64, error)
	ListUnconfirmedBefore(ctx context.Context, cutoff time.Time) ([]*Enrollment, error)
	List(ctx context.Context, filter Filter) ([]*Member, error)
	RecordCapacity(ctx context.Context, adj *CapacityAdjustment) error
}

type EventStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*event.Event, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*event.Event, error)
	UpdateCapacity(ctx context.Context, id uuid.UUID, capacity int) error
}

type AccountStore interface {
	GetUser(ctx context.Context, id uuid.UUID) (*account.User, error)
	GetProfile(ctx context.Context, id uuid.UUID) (*account.Profile, error)
	GetUserByProfile(ctx context.Context, profileID uuid.UUID) (*account.User, error)
	CountProfiles(ctx context.Context, userID uuid.UUID) (int64, error)
	CountRoleBindings(ctx context.Context, userID uuid.UUID) (int64, error)
	DeleteProfile(ctx context.Context, id uuid.UUID) error
	DeleteRoleBinding(ctx context.Context, userID uuid.UUID, role account.Role) error
	DeleteUser(ctx context.Context, id uuid.UUID) error
}

// ScorePurger removes the scores given or received by a profile and clears
// the aggregates that depended on them.
type ScorePurger interface {
	PurgeProfile(ctx context.Context, profileID uuid.UUID) error
}

type QREncoder interface {
	Encode(payload string) ([]byte, error)
}

type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Delete(ctx context.Context, key string) error
}

// Notifier tells the enrollee about a state change. Failures never affect the transition.
type Notifier interface {
	StateChanged(ctx context.Context, notice StateNotice) error
}

// StateNotice carries everything needed to mail the enrollee, captured before the row may be deleted
type StateNotice struct {
	Email     string
	FullName  string
	Kind      common.Kind
	EventID   uuid.UUID
	EventName string
	State     State
	QRPNG     []byte
}

// Filter narrows the enrollments of one event
type Filter struct {
	EventID   uuid.UUID
	Kind      common.Kind
	State     *State
	Confirmed *bool
	Name      string
	Document  string
	Email     string
}

// Member is an enrollment joined with the user behind its profile
type Member struct {
	Enrollment *Enrollment   `json:"enrollment"`
	User       *account.User `json:"user"`
}
