package mail

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	gomail "github.com/wneessen/go-mail"

	"github.com/gravadigital/eventsoft-api/internal/config"
	"github.com/gravadigital/eventsoft-api/internal/logger"
)

// Attachment is a file sent along with a message
type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

// Message is an HTML email
type Message struct {
	To          []string
	Subject     string
	HTML        string
	Attachments []Attachment
}

// Mailer delivers messages
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// New builds the mailer selected by configuration
func New(cfg *config.Config) (Mailer, error) {
	switch cfg.Mail.Driver {
	case "smtp":
		return NewSMTPMailer(cfg.Mail.Host, cfg.Mail.Port, cfg.Mail.Username, cfg.Mail.Password, cfg.Mail.From), nil
	case "log", "":
		return NewLogMailer(), nil
	default:
		return nil, fmt.Errorf("unsupported mail driver: %s", cfg.Mail.Driver)
	}
}

// SMTPMailer sends through an SMTP relay
type SMTPMailer struct {
	host     string
	port     int
	username string
	password string
	from     string
	log      *log.Logger
}

func NewSMTPMailer(host string, port int, username, password, from string) *SMTPMailer {
	return &SMTPMailer{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		log:      logger.Service("smtp_mailer"),
	}
}

func (s *SMTPMailer) Send(ctx context.Context, msg Message) error {
	s.log.Debug("Sending mail", "to", msg.To, "subject", msg.Subject)

	m := gomail.NewMsg()
	if err := m.From(s.from); err != nil {
		return fmt.Errorf("SMTPMailer.Send -> %w", err)
	}
	if err := m.To(msg.To...); err != nil {
		return fmt.Errorf("SMTPMailer.Send -> %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(gomail.TypeTextHTML, msg.HTML)
	for _, a := range msg.Attachments {
		m.AttachReadSeeker(a.Name, bytes.NewReader(a.Data))
	}

	opts := []gomail.Option{
		gomail.WithPort(s.port),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	}
	if s.username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.username),
			gomail.WithPassword(s.password),
		)
	}

	client, err := gomail.NewClient(s.host, opts...)
	if err != nil {
		return fmt.Errorf("SMTPMailer.Send -> %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		s.log.Error("Failed to send mail", "to", msg.To, "error", err)
		return fmt.Errorf("SMTPMailer.Send -> %w", err)
	}

	s.log.Info("Mail sent", "to", msg.To, "subject", msg.Subject)
	return nil
}

// LogMailer writes messages to the log instead of sending them and keeps them for inspection
type LogMailer struct {
	mu   sync.Mutex
	sent []Message
	err  error
	log  *log.Logger
}

func NewLogMailer() *LogMailer {
	return &LogMailer{log: logger.Service("log_mailer")}
}

// FailWith makes every following Send return err
func (l *LogMailer) FailWith(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.err = err
}

func (l *LogMailer) Send(_ context.Context, msg Message) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.err != nil {
		return l.err
	}
	l.sent = append(l.sent, msg)
	l.log.Info("Mail captured", "to", msg.To, "subject", msg.Subject, "attachments", len(msg.Attachments))
	return nil
}

// Sent returns a copy of the captured messages
func (l *LogMailer) Sent() []Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Message, len(l.sent))
	copy(out, l.sent)
	return out
}
