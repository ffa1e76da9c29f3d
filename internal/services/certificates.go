package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/google/uuid"

	"github.com/gravadigital/eventsoft-api/internal/domain/account"
	"github.com/gravadigital/eventsoft-api/internal/domain/certificate"
	"github.com/gravadigital/eventsoft-api/internal/domain/enrollment"
	"github.com/gravadigital/eventsoft-api/internal/domain/event"
	"github.com/gravadigital/eventsoft-api/internal/domain/ranking"
	"github.com/gravadigital/eventsoft-api/internal/logger"
	"github.com/gravadigital/eventsoft-api/internal/mail"
)

// AwardedPositions is how many ranked participants receive an award certificate
const AwardedPositions = 3

// TemplateInput is the text of a certificate template
type TemplateInput struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

func (in TemplateInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&in.Body, validation.Required),
	)
}

// recipient is one person a certificate is issued to
type recipient struct {
	email  string
	name   string
	fields certificate.Fields
}

// CertificateService configures certificate templates and mails the rendered certificates
type CertificateService struct {
	events      Events
	enrollments Enrollments
	templates   certificate.Repository
	board       *ranking.Board
	renderer    certificate.Renderer
	mailer      mail.Mailer
	messages    *Composer
	log         *log.Logger
}

func NewCertificateService(events Events, enrollments Enrollments, templates certificate.Repository, board *ranking.Board, renderer certificate.Renderer, mailer mail.Mailer, messages *Composer) *CertificateService {
	return &CertificateService{
		events:      events,
		enrollments: enrollments,
		templates:   templates,
		board:       board,
		renderer:    renderer,
		mailer:      mailer,
		messages:    messages,
		log:         logger.Service("certificate"),
	}
}

// Template returns the configured template of kind or the default one
func (s *CertificateService) Template(ctx context.Context, actor account.ActiveRole, eventID uuid.UUID, kind certificate.Kind) (*certificate.Template, error) {
	if _, err := requireOverseer(ctx, s.events, actor, eventID); err != nil {
		return nil, err
	}
	return s.template(ctx, eventID, kind)
}

func (s *CertificateService) template(ctx context.Context, eventID uuid.UUID, kind certificate.Kind) (*certificate.Template, error) {
	t, err := s.templates.Get(ctx, eventID, kind)
	if errors.Is(err, certificate.ErrNotFound) {
		return certificate.DefaultTemplate(eventID, kind), nil
	}
	return t, err
}

// SaveTemplate stores the text of a certificate kind for an event
func (s *CertificateService) SaveTemplate(ctx context.Context, actor account.ActiveRole, eventID uuid.UUID, kind certificate.Kind, in TemplateInput) (*certificate.Template, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if _, err := requireAdministrator(ctx, s.events, actor, eventID); err != nil {
		return nil, err
	}

	t, err := s.template(ctx, eventID, kind)
	if err != nil {
		return nil, err
	}
	t.Title = in.Title
	t.Body = in.Body
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if err := s.templates.Save(ctx, t); err != nil {
		s.log.Error("Failed to save certificate template", "event_id", eventID, "kind", kind, "error", err)
		return nil, err
	}

	s.log.Info("Certificate template saved", "event_id", eventID, "kind", kind)
	return t, nil
}

// Preview renders the template of kind filled with sample values
func (s *CertificateService) Preview(ctx context.Context, actor account.ActiveRole, eventID uuid.UUID, kind certificate.Kind) ([]byte, string, error) {
	ev, err := requireOverseer(ctx, s.events, actor, eventID)
	if err != nil {
		return nil, "", err
	}
	t, err := s.template(ctx, eventID, kind)
	if err != nil {
		return nil, "", err
	}

	fields := eventFields(ev)
	fields[certificate.PlaceholderName] = "Nombre de ejemplo"
	fields[certificate.PlaceholderDocument] = "0000000000"
	fields[certificate.PlaceholderPosition] = "1"
	fields[certificate.PlaceholderScore] = "5.00"

	data, err := s.renderer.Render(t.Fill(fields))
	if err != nil {
		return nil, "", fmt.Errorf("CertificateService.Preview -> %w", err)
	}
	return data, "preview_" + kind.String() + s.renderer.Extension(), nil
}

// Send renders and mails the certificates of kind. Delivery failures are logged and skipped;
// the number of certificates sent is returned.
func (s *CertificateService) Send(ctx context.Context, actor account.ActiveRole, eventID uuid.UUID, kind certificate.Kind) (int, error) {
	ev, err := requireAdministrator(ctx, s.events, actor, eventID)
	if err != nil {
		return 0, err
	}
	t, err := s.template(ctx, eventID, kind)
	if err != nil {
		return 0, err
	}
	recipients, err := s.recipients(ctx, ev, kind)
	if err != nil {
		return 0, err
	}
	if len(recipients) == 0 {
		return 0, certificate.ErrNoRecipients
	}

	sent := 0
	for _, r := range recipients {
		data, err := s.renderer.Render(t.Fill(r.fields))
		if err != nil {
			s.log.Warn("Failed to render certificate", "email", r.email, "kind", kind, "error", err)
			continue
		}
		msg := s.messages.Message([]string{r.email}, "certificate", map[string]any{
			"Name":  r.name,
			"Kind":  s.messages.Text("certificate_kind_" + kind.String()),
			"Event": ev.Name,
		})
		msg.Attachments = []mail.Attachment{{
			Name:        "certificado_" + kind.String() + s.renderer.Extension(),
			ContentType: s.renderer.ContentType(),
			Data:        data,
		}}
		if err := s.mailer.Send(ctx, msg); err != nil {
			s.log.Warn("Failed to mail certificate", "email", r.email, "kind", kind, "error", err)
			continue
		}
		sent++
	}

	s.log.Info("Certificates sent", "event_id", eventID, "kind", kind, "recipients", len(recipients), "sent", sent)
	return sent, nil
}

func (s *CertificateService) recipients(ctx context.Context, ev *event.Event, kind certificate.Kind) ([]recipient, error) {
	if kind == certificate.KindAward {
		standings, err := s.board.Rank(ctx, ev.ID)
		if err != nil {
			return nil, err
		}
		var out []recipient
		for _, st := range standings {
			if st.Rank > AwardedPositions {
				break
			}
			fields := eventFields(ev)
			fields[certificate.PlaceholderName] = st.Name
			fields[certificate.PlaceholderDocument] = st.Document
			fields[certificate.PlaceholderPosition] = fmt.Sprintf("%d", st.Rank)
			fields[certificate.PlaceholderScore] = fmt.Sprintf("%.2f", st.Score)
			out = append(out, recipient{email: st.Email, name: st.Name, fields: fields})
		}
		return out, nil
	}

	approved := enrollment.StateApproved
	members, err := s.enrollments.List(ctx, enrollment.Filter{
		EventID: ev.ID,
		Kind:    kind.Recipients(),
		State:   &approved,
	})
	if err != nil {
		return nil, err
	}
	out := make([]recipient, 0, len(members))
	for _, m := range members {
		fields := eventFields(ev)
		fields[certificate.PlaceholderName] = m.User.FullName()
		fields[certificate.PlaceholderDocument] = m.User.Document
		out = append(out, recipient{email: m.User.Email, name: m.User.FullName(), fields: fields})
	}
	return out, nil
}

func eventFields(ev *event.Event) certificate.Fields {
	return certificate.Fields{
		certificate.PlaceholderEvent: ev.Name,
		certificate.PlaceholderDate:  ev.StartDate.Format("02/01/2006"),
		certificate.PlaceholderCity:  ev.City,
		certificate.PlaceholderVenue: ev.Venue,
	}
}
