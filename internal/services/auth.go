package services

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/gravadigital/eventsoft-api/internal/domain/account"
	"github.com/gravadigital/eventsoft-api/internal/domain/common"
	"github.com/gravadigital/eventsoft-api/internal/domain/enrollment"
	"github.com/gravadigital/eventsoft-api/internal/logger"
	"github.com/gravadigital/eventsoft-api/internal/token"
)

// LoginInput carries credentials and, for accounts with several roles, the role to act as
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (in LoginInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Email, validation.Required, is.Email),
		validation.Field(&in.Password, validation.Required),
	)
}

// Session is an issued session token with the role it carries
type Session struct {
	Token     string             `json:"token"`
	ExpiresAt time.Time          `json:"expires_at"`
	Active    account.ActiveRole `json:"active_role"`
	Roles     []account.Role     `json:"roles"`
}

// AuthService logs users in as one of their roles
type AuthService struct {
	accounts    Accounts
	enrollments Enrollments
	sessions    *token.Sessions
	log         *log.Logger
}

func NewAuthService(accounts Accounts, enrollments Enrollments, sessions *token.Sessions) *AuthService {
	return &AuthService{
		accounts:    accounts,
		enrollments: enrollments,
		sessions:    sessions,
		log:         logger.Service("auth"),
	}
}

// Login checks the credentials and issues a session for the selected role.
// Attendees need at least one approved registration.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*Session, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	user, err := s.accounts.GetUserByEmail(ctx, in.Email)
	if errors.Is(err, account.ErrNotFound) {
		return nil, account.ErrInvalidPassword
	}
	if err != nil {
		return nil, err
	}
	if !user.CheckPassword(in.Password) {
		s.log.Warn("Login rejected", "email", in.Email)
		return nil, account.ErrInvalidPassword
	}
	if !user.Active {
		return nil, account.ErrInactive
	}

	acc, err := s.accounts.GetAccount(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	role, err := pickRole(acc, in.Role)
	if err != nil {
		return nil, err
	}
	if role == account.RoleAttendee {
		if err := s.checkApprovedAttendee(ctx, acc); err != nil {
			return nil, err
		}
	}

	active := account.ActiveRole{UserID: user.ID, Role: role}
	raw, expires, err := s.sessions.Issue(active)
	if err != nil {
		return nil, err
	}

	s.log.Info("User logged in", "user_id", user.ID, "role", role)
	return &Session{Token: raw, ExpiresAt: expires, Active: active, Roles: acc.Roles}, nil
}

func pickRole(acc *account.Account, requested string) (account.Role, error) {
	if requested == "" {
		if len(acc.Roles) != 1 {
			return 0, account.ErrRoleSelection
		}
		return acc.Roles[0], nil
	}
	role, ok := account.RoleFromString(requested)
	if !ok || !acc.HasRole(role) {
		return 0, account.ErrRoleNotGranted
	}
	return role, nil
}

func (s *AuthService) checkApprovedAttendee(ctx context.Context, acc *account.Account) error {
	if acc.AttendeeID == nil {
		return ErrAttendeeNotApproved
	}
	list, err := s.enrollments.ListByUser(ctx, acc.User.ID)
	if err != nil {
		return err
	}
	for _, e := range list {
		if e.Kind == common.KindAttendee && e.State == enrollment.StateApproved {
			return nil
		}
	}
	return ErrAttendeeNotApproved
}

// Authenticate decodes a session token
func (s *AuthService) Authenticate(raw string) (account.ActiveRole, error) {
	return s.sessions.Parse(raw)
}

// Me returns the account behind the active role
func (s *AuthService) Me(ctx context.Context, actor account.ActiveRole) (*account.Account, error) {
	return s.accounts.GetAccount(ctx, actor.UserID)
}
