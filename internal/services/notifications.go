package services

import (
	"context"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/gravadigital/eventsoft-api/internal/domain/account"
	"github.com/gravadigital/eventsoft-api/internal/domain/enrollment"
	"github.com/gravadigital/eventsoft-api/internal/domain/notification"
	"github.com/gravadigital/eventsoft-api/internal/logger"
	"github.com/gravadigital/eventsoft-api/internal/mail"
)

// SendInput is a message to a filtered, optionally hand-picked, set of enrollees
type SendInput struct {
	Filter        enrollment.Filter `json:"-"`
	EnrollmentIDs []uuid.UUID       `json:"enrollment_ids"`
	Subject       string            `json:"subject"`
	Body          string            `json:"body"`
}

// NotificationService sends bulk messages to the enrollees of an event
type NotificationService struct {
	events        Events
	enrollments   Enrollments
	notifications notification.Repository
	mailer        mail.Mailer
	log           *log.Logger
}

func NewNotificationService(events Events, enrollments Enrollments, notifications notification.Repository, mailer mail.Mailer) *NotificationService {
	return &NotificationService{
		events:        events,
		enrollments:   enrollments,
		notifications: notifications,
		mailer:        mailer,
		log:           logger.Service("notification"),
	}
}

// Send mails every selected enrollee and logs the dispatch. A failed recipient is skipped.
func (s *NotificationService) Send(ctx context.Context, actor account.ActiveRole, in SendInput) (*notification.Notification, error) {
	if strings.TrimSpace(in.Subject) == "" || strings.TrimSpace(in.Body) == "" {
		return nil, notification.ErrEmptyMessage
	}
	if _, err := requireAdministrator(ctx, s.events, actor, in.Filter.EventID); err != nil {
		return nil, err
	}

	members, err := s.enrollments.List(ctx, in.Filter)
	if err != nil {
		return nil, err
	}
	members = selectMembers(members, in.EnrollmentIDs)
	if len(members) == 0 {
		return nil, notification.ErrNoRecipients
	}

	n := &notification.Notification{
		EventID: in.Filter.EventID,
		Kind:    in.Filter.Kind,
		Subject: in.Subject,
		Body:    in.Body,
	}
	for _, m := range members {
		err := s.mailer.Send(ctx, mail.Message{
			To:      []string{m.User.Email},
			Subject: in.Subject,
			HTML:    in.Body,
		})
		if err != nil {
			s.log.Warn("Failed to deliver notification", "email", m.User.Email, "error", err)
			continue
		}
		n.Recipients = append(n.Recipients, m.User.Email)
		n.SentCount++
	}

	if err := s.notifications.Create(ctx, n); err != nil {
		s.log.Error("Failed to log notification", "event_id", n.EventID, "error", err)
		return nil, err
	}

	s.log.Info("Notification sent", "event_id", n.EventID, "selected", len(members), "sent", n.SentCount)
	return n, nil
}

// History lists the notifications sent for an event
func (s *NotificationService) History(ctx context.Context, actor account.ActiveRole, eventID uuid.UUID) ([]*notification.Notification, error) {
	if _, err := requireOverseer(ctx, s.events, actor, eventID); err != nil {
		return nil, err
	}
	return s.notifications.ListByEvent(ctx, eventID)
}

// selectMembers keeps the members whose enrollment is in ids; an empty ids keeps all
func selectMembers(members []*enrollment.Member, ids []uuid.UUID) []*enrollment.Member {
	if len(ids) == 0 {
		return members
	}
	wanted := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}
	out := members[:0:0]
	for _, m := range members {
		if _, ok := wanted[m.Enrollment.ID]; ok {
			out = append(out, m)
		}
	}
	return out
}
