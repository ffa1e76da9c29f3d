package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/google/uuid"

	"github.com/gravadigital/eventsoft-api/internal/domain/account"
	"github.com/gravadigital/eventsoft-api/internal/domain/common"
	"github.com/gravadigital/eventsoft-api/internal/domain/enrollment"
	"github.com/gravadigital/eventsoft-api/internal/domain/event"
	"github.com/gravadigital/eventsoft-api/internal/logger"
	"github.com/gravadigital/eventsoft-api/internal/mail"
	"github.com/gravadigital/eventsoft-api/internal/storage/files"
	"github.com/gravadigital/eventsoft-api/internal/token"
	rules "github.com/gravadigital/eventsoft-api/internal/validation"
)

// Outcome tells the caller what a registration or confirmation did
type Outcome string

const (
	OutcomePreRegistered    Outcome = "pre_registered"
	OutcomeConfirmationSent Outcome = "confirmation_sent"
	OutcomeLinkExpired      Outcome = "link_expired"
	OutcomeCleanedUp        Outcome = "cleaned_up"
	OutcomeAlreadyActive    Outcome = "already_active"
	OutcomeConfirmed        Outcome = "confirmed"
)

// RegistrationResult carries the outcome and, when one survives, the enrollment
type RegistrationResult struct {
	Outcome    Outcome                `json:"outcome"`
	Enrollment *enrollment.Enrollment `json:"enrollment,omitempty"`
}

// RegisterInput is a self-registration request
type RegisterInput struct {
	Kind      common.Kind `json:"kind"`
	EventID   uuid.UUID   `json:"event_id"`
	Email     string      `json:"email"`
	Document  string      `json:"document"`
	FirstName string      `json:"first_name"`
	LastName  string      `json:"last_name"`
	Phone     string      `json:"phone"`
	Upload    *Upload     `json:"-"`
}

func (in RegisterInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Kind, rules.Kind),
		validation.Field(&in.EventID, rules.ID),
		validation.Field(&in.Email, rules.Email...),
		validation.Field(&in.Document, rules.Document...),
		validation.Field(&in.FirstName, rules.Name...),
		validation.Field(&in.LastName, rules.Name...),
		validation.Field(&in.Phone, rules.Phone...),
	)
}

// RegistrationDeps groups the collaborators of a RegistrationService
type RegistrationDeps struct {
	UnitOfWork    common.UnitOfWork
	Accounts      Accounts
	Events        Events
	Enrollments   Enrollments
	Orphans       *enrollment.OrphanCollector
	Machine       *enrollment.Machine
	Confirmations *token.Confirmations
	Files         files.Store
	Mailer        mail.Mailer
	Messages      *Composer
	Links         Links
	MaxUploadSize int64
}

// RegistrationService runs self-registration, email confirmation and cancellation
type RegistrationService struct {
	uow           common.UnitOfWork
	accounts      Accounts
	events        Events
	enrollments   Enrollments
	orphans       *enrollment.OrphanCollector
	machine       *enrollment.Machine
	confirmations *token.Confirmations
	files         files.Store
	mailer        mail.Mailer
	messages      *Composer
	links         Links
	maxUpload     int64
	now           func() time.Time
	log           *log.Logger
}

func NewRegistrationService(deps RegistrationDeps) *RegistrationService {
	return &RegistrationService{
		uow:           deps.UnitOfWork,
		accounts:      deps.Accounts,
		events:        deps.Events,
		enrollments:   deps.Enrollments,
		orphans:       deps.Orphans,
		machine:       deps.Machine,
		confirmations: deps.Confirmations,
		files:         deps.Files,
		mailer:        deps.Mailer,
		messages:      deps.Messages,
		links:         deps.Links,
		maxUpload:     deps.MaxUploadSize,
		now:           time.Now,
		log:           logger.Service("registration"),
	}
}

// WithClock replaces the time source, for tests
func (s *RegistrationService) WithClock(now func() time.Time) *RegistrationService {
	s.now = now
	return s
}

// Register enrolls the submitted identity in an event. Known active users are enrolled
// right away; everyone else gets an unconfirmed enrollment and a confirmation mail, and a
// failure to send that mail rolls the whole registration back.
func (s *RegistrationService) Register(ctx context.Context, in RegisterInput) (*RegistrationResult, error) {
	s.log.Debug("Registering", "kind", in.Kind, "event_id", in.EventID, "email", in.Email)

	if err := in.Validate(); err != nil {
		return nil, err
	}
	if in.Kind != common.KindAttendee && in.Upload == nil {
		return nil, ErrDocumentRequired
	}
	if in.Upload != nil && s.maxUpload > 0 && int64(len(in.Upload.Data)) > s.maxUpload {
		return nil, validation.Errors{"document": errors.New("file is too large")}
	}

	fx := &enrollment.Effects{}
	var stored []string
	var result *RegistrationResult

	err := s.uow.WithTx(ctx, func(ctx context.Context) error {
		ev, err := s.events.GetByID(ctx, in.EventID)
		if err != nil {
			return err
		}
		if !ev.AcceptsRegistrations() {
			return event.ErrClosed
		}

		user, err := s.accounts.FindUserByEmailOrDocument(ctx, in.Email, in.Document)
		switch {
		case errors.Is(err, account.ErrNotFound):
			user = nil
		case err != nil:
			return err
		case !user.MatchesIdentity(in.Email, in.Document, in.FirstName, in.LastName):
			return ErrIdentityMismatch
		default:
			if err := s.checkExisting(ctx, user.ID, in.Kind, ev.ID); err != nil {
				return err
			}
		}

		active := user != nil && user.Active
		if user == nil {
			user = &account.User{
				Email:     strings.TrimSpace(in.Email),
				Document:  strings.TrimSpace(in.Document),
				FirstName: strings.TrimSpace(in.FirstName),
				LastName:  strings.TrimSpace(in.LastName),
				Phone:     strings.TrimSpace(in.Phone),
			}
			if err := s.accounts.CreateUser(ctx, user); err != nil {
				return err
			}
		}
		if err := s.accounts.EnsureRoleBinding(ctx, user.ID, account.RoleForKind(in.Kind)); err != nil {
			return err
		}
		profile, err := s.accounts.EnsureProfile(ctx, user.ID, in.Kind)
		if err != nil {
			return err
		}

		en := enrollment.New(in.Kind, profile.ID, ev.ID, active, s.now())
		if in.Upload != nil && (in.Kind != common.KindAttendee || ev.HasCost) {
			key := enrollment.DocumentObjectKey(in.Kind, ev.ID, user.Document, filepath.Base(in.Upload.Filename))
			if err := s.files.Put(ctx, key, in.Upload.Data, in.Upload.ContentType); err != nil {
				return fmt.Errorf("RegistrationService.Register -> %w", err)
			}
			stored = append(stored, key)
			en.DocumentKey = key
		}
		if err := s.enrollments.Create(ctx, en); err != nil {
			return err
		}

		if active {
			result = &RegistrationResult{Outcome: OutcomePreRegistered, Enrollment: en}
			if in.Kind == common.KindAttendee && ev.IsFree() {
				approved, err := s.machine.Apply(ctx, fx, en.ID, enrollment.StateApproved, "")
				if err != nil {
					return err
				}
				result.Enrollment = approved
			}
			return nil
		}

		result = &RegistrationResult{Outcome: OutcomeConfirmationSent, Enrollment: en}
		return s.sendConfirmation(ctx, user, in.Kind, ev)
	})
	if err != nil {
		s.machine.Abort(ctx, fx)
		s.deleteBlobs(ctx, stored)
		s.log.Error("Registration failed", "kind", in.Kind, "event_id", in.EventID, "email", in.Email, "error", err)
		return nil, err
	}

	s.machine.Commit(ctx, fx)
	s.log.Info("Registration stored", "kind", in.Kind, "event_id", in.EventID, "outcome", result.Outcome)
	return result, nil
}

// checkExisting refuses a second enrollment of the same kind in the same event
func (s *RegistrationService) checkExisting(ctx context.Context, userID uuid.UUID, kind common.Kind, eventID uuid.UUID) error {
	profile, err := s.accounts.GetProfileByUser(ctx, userID, kind)
	if errors.Is(err, account.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	existing, err := s.enrollments.Find(ctx, kind, profile.ID, eventID)
	if errors.Is(err, enrollment.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !existing.Confirmed {
		return ErrConfirmationPending
	}
	return ErrAlreadyEnrolled
}

func (s *RegistrationService) sendConfirmation(ctx context.Context, user *account.User, kind common.Kind, ev *event.Event) error {
	raw, err := s.confirmations.Issue(user.Email, ev.ID, kind.String())
	if err != nil {
		return fmt.Errorf("RegistrationService.sendConfirmation -> %w", err)
	}
	msg := s.messages.Message([]string{user.Email}, "confirmation", map[string]any{
		"Name":    user.FullName(),
		"Role":    s.messages.RoleName(kind),
		"Event":   ev.Name,
		"Minutes": int(s.confirmations.Window().Minutes()),
		"Link":    s.links.Confirmation(raw),
	})
	if err := s.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("RegistrationService.sendConfirmation -> %w", err)
	}
	return nil
}

// Confirm finalizes the registration behind a confirmation link. Expired links never
// return an error: the outcome says what happened.
func (s *RegistrationService) Confirm(ctx context.Context, raw string) (*RegistrationResult, error) {
	conf, status, err := s.confirmations.Parse(raw)
	if err != nil {
		s.log.Debug("Confirmation link rejected", "error", err)
		return &RegistrationResult{Outcome: OutcomeLinkExpired}, nil
	}
	kind, ok := common.KindFromString(conf.Role)
	if !ok {
		return &RegistrationResult{Outcome: OutcomeLinkExpired}, nil
	}

	if status == token.StatusStale {
		return s.cleanupStale(ctx, conf.Email, kind, conf.EventID)
	}
	return s.activate(ctx, conf.Email, kind, conf.EventID)
}

// findEnrollment locks the enrollment of kind that email holds in eventID
func (s *RegistrationService) findEnrollment(ctx context.Context, userID uuid.UUID, kind common.Kind, eventID uuid.UUID) (*enrollment.Enrollment, error) {
	profile, err := s.accounts.GetProfileByUser(ctx, userID, kind)
	if errors.Is(err, account.ErrNotFound) {
		return nil, enrollment.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.enrollments.FindForUpdate(ctx, kind, profile.ID, eventID)
}

func (s *RegistrationService) cleanupStale(ctx context.Context, email string, kind common.Kind, eventID uuid.UUID) (*RegistrationResult, error) {
	outcome := OutcomeLinkExpired
	var documentKey string

	err := s.uow.WithTx(ctx, func(ctx context.Context) error {
		user, err := s.accounts.GetUserByEmail(ctx, email)
		if errors.Is(err, account.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		en, err := s.findEnrollment(ctx, user.ID, kind, eventID)
		if errors.Is(err, enrollment.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if en.Confirmed {
			return nil
		}

		if err := s.enrollments.Delete(ctx, en.ID); err != nil {
			return err
		}
		if _, err := s.orphans.Collect(ctx, en.ProfileID, enrollment.PolicyUnconfirmed); err != nil {
			return err
		}
		documentKey = en.DocumentKey
		outcome = OutcomeCleanedUp
		return nil
	})
	if err != nil {
		s.log.Error("Failed to clean up stale registration", "email", email, "event_id", eventID, "error", err)
		return nil, err
	}

	if documentKey != "" {
		s.deleteBlobs(ctx, []string{documentKey})
	}
	s.log.Info("Stale confirmation link used", "email", email, "event_id", eventID, "outcome", outcome)
	return &RegistrationResult{Outcome: outcome}, nil
}

func (s *RegistrationService) activate(ctx context.Context, email string, kind common.Kind, eventID uuid.UUID) (*RegistrationResult, error) {
	fx := &enrollment.Effects{}
	result := &RegistrationResult{Outcome: OutcomeLinkExpired}
	var user *account.User
	var ev *event.Event
	var password string

	err := s.uow.WithTx(ctx, func(ctx context.Context) error {
		u, err := s.accounts.GetUserByEmail(ctx, email)
		if errors.Is(err, account.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if u.Active {
			result.Outcome = OutcomeAlreadyActive
			return nil
		}

		en, err := s.findEnrollment(ctx, u.ID, kind, eventID)
		if errors.Is(err, enrollment.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		ev, err = s.events.GetByID(ctx, eventID)
		if err != nil {
			return err
		}

		password, err = account.GeneratePassword(account.GeneratedPasswordLen)
		if err != nil {
			return err
		}
		if err := u.SetPassword(password); err != nil {
			return err
		}
		u.Active = true
		if err := s.accounts.UpdateUser(ctx, u); err != nil {
			return err
		}
		if err := s.accounts.EnsureRoleBinding(ctx, u.ID, account.RoleForKind(kind)); err != nil {
			return err
		}

		en.Confirmed = true
		if err := s.enrollments.Update(ctx, en); err != nil {
			return err
		}
		if kind == common.KindAttendee && ev.IsFree() && en.State == enrollment.StatePending {
			en, err = s.machine.Apply(ctx, fx, en.ID, enrollment.StateApproved, password)
			if err != nil {
				return err
			}
		}

		user = u
		result = &RegistrationResult{Outcome: OutcomeConfirmed, Enrollment: en}
		return nil
	})
	if err != nil {
		s.machine.Abort(ctx, fx)
		s.log.Error("Confirmation failed", "email", email, "event_id", eventID, "error", err)
		return nil, err
	}

	notices := fx.TakeNotices()
	s.machine.Commit(ctx, fx)
	if result.Outcome == OutcomeConfirmed {
		s.sendCredentials(ctx, user, ev, password, notices)
		s.log.Info("Registration confirmed", "user_id", user.ID, "kind", kind, "event_id", eventID)
	}
	return result, nil
}

// sendCredentials mails the generated password, with the QR image of an auto-approved enrollment
func (s *RegistrationService) sendCredentials(ctx context.Context, user *account.User, ev *event.Event, password string, notices []enrollment.StateNotice) {
	msg := s.messages.Message([]string{user.Email}, "credentials", map[string]any{
		"Name":     user.FullName(),
		"Event":    ev.Name,
		"Email":    user.Email,
		"Password": password,
		"LoginURL": s.links.Login(),
	})
	for _, n := range notices {
		if len(n.QRPNG) > 0 {
			msg.Attachments = append(msg.Attachments, qrAttachment(n.QRPNG))
		}
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.log.Warn("Failed to send credentials", "user_id", user.ID, "error", err)
	}
}

// Cancel withdraws the actor's own pending enrollment of kind in eventID
func (s *RegistrationService) Cancel(ctx context.Context, actor account.ActiveRole, kind common.Kind, eventID uuid.UUID) error {
	if !actor.Allows(account.RoleForKind(kind)) {
		return ErrForbidden
	}

	var documentKey string
	err := s.uow.WithTx(ctx, func(ctx context.Context) error {
		en, err := s.findEnrollment(ctx, actor.UserID, kind, eventID)
		if err != nil {
			return err
		}
		if en.State != enrollment.StatePending {
			return ErrNotCancellable
		}
		if err := s.enrollments.Delete(ctx, en.ID); err != nil {
			return err
		}
		if _, err := s.orphans.Collect(ctx, en.ProfileID, enrollment.PolicyRejection); err != nil {
			return err
		}
		documentKey = en.DocumentKey
		return nil
	})
	if err != nil {
		s.log.Error("Cancellation failed", "user_id", actor.UserID, "kind", kind, "event_id", eventID, "error", err)
		return err
	}

	if documentKey != "" {
		s.deleteBlobs(ctx, []string{documentKey})
	}
	s.log.Info("Registration cancelled", "user_id", actor.UserID, "kind", kind, "event_id", eventID)
	return nil
}

func (s *RegistrationService) deleteBlobs(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := s.files.Delete(ctx, key); err != nil {
			s.log.Warn("Failed to delete stored file", "key", key, "error", err)
		}
	}
}
