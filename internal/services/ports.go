package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/gravadigital/eventsoft-api/internal/domain/account"
	"github.com/gravadigital/eventsoft-api/internal/domain/common"
	"github.com/gravadigital/eventsoft-api/internal/domain/enrollment"
	"github.com/gravadigital/eventsoft-api/internal/domain/event"
)

// Storage contracts the services depend on. The postgres container satisfies all of them.

type Accounts interface {
	enrollment.AccountStore
	CreateUser(ctx context.Context, user *account.User) error
	UpdateUser(ctx context.Context, user *account.User) error
	GetUserByEmail(ctx context.Context, email string) (*account.User, error)
	FindUserByEmailOrDocument(ctx context.Context, email, document string) (*account.User, error)
	GetProfileByUser(ctx context.Context, userID uuid.UUID, kind common.Kind) (*account.Profile, error)
	EnsureProfile(ctx context.Context, userID uuid.UUID, kind common.Kind) (*account.Profile, error)
	EnsureRoleBinding(ctx context.Context, userID uuid.UUID, role account.Role) error
	GetAccount(ctx context.Context, userID uuid.UUID) (*account.Account, error)
	ListUsersByRole(ctx context.Context, role account.Role) ([]*account.User, error)
}

type Events interface {
	enrollment.EventStore
	Create(ctx context.Context, e *event.Event) error
	Update(ctx context.Context, e *event.Event) error
	List(ctx context.Context, filter event.Filter) ([]*event.Event, error)
}

type Enrollments interface {
	enrollment.Repository
	FindForUpdate(ctx context.Context, kind common.Kind, profileID, eventID uuid.UUID) (*enrollment.Enrollment, error)
	Count(ctx context.Context, eventID uuid.UUID, kind common.Kind, state *enrollment.State) (int64, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*enrollment.Enrollment, error)
	ListCapacityAdjustments(ctx context.Context, eventID uuid.UUID) ([]*enrollment.CapacityAdjustment, error)
}

// Upload is a file received with a request
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}
