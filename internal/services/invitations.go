package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/google/uuid"

	"github.com/gravadigital/eventsoft-api/internal/domain/account"
	"github.com/gravadigital/eventsoft-api/internal/domain/common"
	"github.com/gravadigital/eventsoft-api/internal/domain/event"
	"github.com/gravadigital/eventsoft-api/internal/domain/invitation"
	"github.com/gravadigital/eventsoft-api/internal/logger"
	"github.com/gravadigital/eventsoft-api/internal/mail"
	rules "github.com/gravadigital/eventsoft-api/internal/validation"
)

// IssueInput asks for a new administrator invitation
type IssueInput struct {
	Email            string     `json:"email"`
	EventQuota       int        `json:"event_quota"`
	ExpiresAt        time.Time  `json:"expires_at"`
	CreationDeadline *time.Time `json:"creation_deadline"`
}

func (in IssueInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Email, rules.Email...),
		validation.Field(&in.EventQuota, validation.Required, validation.Min(1)),
		validation.Field(&in.ExpiresAt, validation.Required),
	)
}

// AdminSignupInput is the account an invited administrator creates
type AdminSignupInput struct {
	Email     string `json:"email"`
	Document  string `json:"document"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Password  string `json:"password"`
}

func (in AdminSignupInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Email, rules.Email...),
		validation.Field(&in.Document, rules.Document...),
		validation.Field(&in.FirstName, rules.Name...),
		validation.Field(&in.LastName, rules.Name...),
		validation.Field(&in.Phone, rules.Phone...),
		validation.Field(&in.Password, rules.Password...),
	)
}

// EventInput describes an event proposed by its administrator
type EventInput struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	City        string    `json:"city"`
	Venue       string    `json:"venue"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	Capacity    int       `json:"capacity"`
	HasCost     bool      `json:"has_cost"`
}

func (in EventInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required, validation.Length(3, 200)),
		validation.Field(&in.Description, validation.Required, validation.Length(1, 2000)),
		validation.Field(&in.City, validation.Length(0, 120)),
		validation.Field(&in.Venue, validation.Length(0, 200)),
		validation.Field(&in.StartDate, validation.Required),
		validation.Field(&in.EndDate, validation.Required, rules.After(in.StartDate, "start date")),
		validation.Field(&in.Capacity, validation.Min(0)),
	)
}

// InvitationService issues administrator invitations and enforces their event quota
type InvitationService struct {
	uow         common.UnitOfWork
	invitations invitation.Repository
	accounts    Accounts
	events      Events
	mailer      mail.Mailer
	messages    *Composer
	links       Links
	now         func() time.Time
	log         *log.Logger
}

func NewInvitationService(uow common.UnitOfWork, invitations invitation.Repository, accounts Accounts, events Events, mailer mail.Mailer, messages *Composer, links Links) *InvitationService {
	return &InvitationService{
		uow:         uow,
		invitations: invitations,
		accounts:    accounts,
		events:      events,
		mailer:      mailer,
		messages:    messages,
		links:       links,
		now:         time.Now,
		log:         logger.Service("invitation"),
	}
}

// WithClock replaces the time source, for tests
func (s *InvitationService) WithClock(now func() time.Time) *InvitationService {
	s.now = now
	return s
}

// Issue creates a registration code and mails its link. The code is not kept when the mail fails.
func (s *InvitationService) Issue(ctx context.Context, actor account.ActiveRole, in IssueInput) (*invitation.Code, error) {
	if !actor.Allows(account.RoleSuperadmin) {
		return nil, ErrForbidden
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	code, err := invitation.NewRegistrationCode(in.Email, in.EventQuota, in.ExpiresAt, in.CreationDeadline, s.now())
	if err != nil {
		return nil, err
	}

	err = s.uow.WithTx(ctx, func(ctx context.Context) error {
		if err := s.invitations.Create(ctx, code); err != nil {
			return err
		}
		msg := s.messages.Message([]string{code.Email}, "invitation", map[string]any{
			"Quota":     code.EventQuota,
			"ExpiresAt": code.ExpiresAt.Format("02/01/2006 15:04"),
			"Link":      s.links.Invitation(code.Code),
		})
		return s.mailer.Send(ctx, msg)
	})
	if err != nil {
		s.log.Error("Failed to issue invitation", "email", in.Email, "error", err)
		return nil, err
	}

	s.log.Info("Invitation issued", "id", code.ID, "email", code.Email, "quota", code.EventQuota)
	return code, nil
}

// RegisterAdmin redeems a registration code into an active event administrator account
// holding an event quota grant with the same limits
func (s *InvitationService) RegisterAdmin(ctx context.Context, raw string, in AdminSignupInput) (*account.User, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var user *account.User
	err := s.uow.WithTx(ctx, func(ctx context.Context) error {
		now := s.now()
		code, err := s.invitations.GetByCode(ctx, raw)
		if err != nil {
			return err
		}
		if err := code.CheckRedeemable(now); err != nil {
			return err
		}

		_, err = s.accounts.FindUserByEmailOrDocument(ctx, in.Email, in.Document)
		if err == nil {
			return account.ErrDuplicate
		}
		if !errors.Is(err, account.ErrNotFound) {
			return err
		}

		u := &account.User{
			Email:     strings.TrimSpace(in.Email),
			Document:  strings.TrimSpace(in.Document),
			FirstName: strings.TrimSpace(in.FirstName),
			LastName:  strings.TrimSpace(in.LastName),
			Phone:     strings.TrimSpace(in.Phone),
			Active:    true,
		}
		if err := u.SetPassword(in.Password); err != nil {
			return err
		}
		if err := s.accounts.CreateUser(ctx, u); err != nil {
			return err
		}
		if err := s.accounts.EnsureRoleBinding(ctx, u.ID, account.RoleEventAdmin); err != nil {
			return err
		}

		grant, err := code.Redeem(u.ID, now)
		if err != nil {
			return err
		}
		if err := s.invitations.Update(ctx, code); err != nil {
			return err
		}
		if err := s.invitations.Create(ctx, grant); err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		s.log.Error("Administrator registration failed", "email", in.Email, "error", err)
		return nil, err
	}

	s.log.Info("Event administrator registered", "user_id", user.ID, "email", user.Email)
	return user, nil
}

// CreateEvent proposes an event on behalf of an administrator, consuming one event
// from the administrator's latest quota grant
func (s *InvitationService) CreateEvent(ctx context.Context, actor account.ActiveRole, in EventInput) (*event.Event, error) {
	if !actor.Allows(account.RoleEventAdmin) {
		return nil, ErrForbidden
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var created *event.Event
	err := s.uow.WithTx(ctx, func(ctx context.Context) error {
		grant, err := s.invitations.LatestGrant(ctx, actor.UserID)
		if errors.Is(err, invitation.ErrNotFound) {
			return invitation.ErrInvitationInactive
		}
		if err != nil {
			return err
		}
		if err := grant.ConsumeQuota(s.now()); err != nil {
			return err
		}

		ev := event.NewEvent(in.Name, in.Description, actor.UserID, in.StartDate, in.EndDate, in.Capacity, in.HasCost)
		ev.City = strings.TrimSpace(in.City)
		ev.Venue = strings.TrimSpace(in.Venue)
		ev.InvitationID = &grant.ID
		if err := ev.Validate(); err != nil {
			return validation.Errors{"event": err}
		}
		if err := s.events.Create(ctx, ev); err != nil {
			return err
		}
		if err := s.invitations.Update(ctx, grant); err != nil {
			return err
		}
		created = ev
		return nil
	})
	if err != nil {
		s.log.Error("Event creation failed", "administrator_id", actor.UserID, "error", err)
		return nil, err
	}

	s.log.Info("Event created", "id", created.ID, "name", created.Name, "administrator_id", actor.UserID)
	s.notifySuperadmins(ctx, created)
	return created, nil
}

// notifySuperadmins tells every superadmin that an event awaits approval. Errors are logged only.
func (s *InvitationService) notifySuperadmins(ctx context.Context, ev *event.Event) {
	admins, err := s.accounts.ListUsersByRole(ctx, account.RoleSuperadmin)
	if err != nil {
		s.log.Warn("Failed to list superadmins", "error", err)
		return
	}
	if len(admins) == 0 {
		return
	}

	name := ev.AdministratorID.String()
	if owner, err := s.accounts.GetUser(ctx, ev.AdministratorID); err == nil {
		name = owner.FullName()
	}

	to := make([]string, 0, len(admins))
	for _, a := range admins {
		to = append(to, a.Email)
	}
	msg := s.messages.Message(to, "event_created", map[string]any{
		"Admin":     name,
		"Event":     ev.Name,
		"City":      ev.City,
		"StartDate": ev.StartDate.Format("02/01/2006"),
	})
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.log.Warn("Failed to notify superadmins", "event_id", ev.ID, "error", err)
	}
}

// SetState suspends, reactivates or cancels a code
func (s *InvitationService) SetState(ctx context.Context, actor account.ActiveRole, id uuid.UUID, next invitation.State) (*invitation.Code, error) {
	if !actor.Allows(account.RoleSuperadmin) {
		return nil, ErrForbidden
	}

	var code *invitation.Code
	err := s.uow.WithTx(ctx, func(ctx context.Context) error {
		c, err := s.invitations.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := c.SetState(next); err != nil {
			return err
		}
		if err := s.invitations.Update(ctx, c); err != nil {
			return err
		}
		code = c
		return nil
	})
	if err != nil {
		s.log.Error("Failed to change invitation state", "id", id, "state", next, "error", err)
		return nil, err
	}

	s.log.Info("Invitation state changed", "id", id, "state", next)
	return code, nil
}

// List returns every code with its effective state
func (s *InvitationService) List(ctx context.Context, actor account.ActiveRole) ([]*invitation.Code, error) {
	if !actor.Allows(account.RoleSuperadmin) {
		return nil, ErrForbidden
	}
	codes, err := s.invitations.List(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	for _, c := range codes {
		c.State = c.EffectiveState(now)
	}
	return codes, nil
}
