package services

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/gravadigital/eventsoft-api/internal/domain/common"
	"github.com/gravadigital/eventsoft-api/internal/domain/enrollment"
	"github.com/gravadigital/eventsoft-api/internal/i18n"
	"github.com/gravadigital/eventsoft-api/internal/logger"
	"github.com/gravadigital/eventsoft-api/internal/mail"
)

// Composer renders catalog messages into mails. Every key has a _subject and a _body entry.
type Composer struct {
	tr     *i18n.Translator
	locale string
}

func NewComposer(tr *i18n.Translator, locale string) *Composer {
	return &Composer{tr: tr, locale: locale}
}

// Message builds the mail for key
func (c *Composer) Message(to []string, key string, data map[string]any) mail.Message {
	return mail.Message{
		To:      to,
		Subject: c.tr.T(c.locale, key+"_subject", data),
		HTML:    c.tr.T(c.locale, key+"_body", data),
	}
}

// Text renders a single catalog entry
func (c *Composer) Text(key string) string {
	return c.tr.T(c.locale, key, nil)
}

// RoleName is the localized name of an enrollment kind
func (c *Composer) RoleName(kind common.Kind) string {
	return c.Text("role_" + kind.String())
}

// MailNotifier mails enrollees when an administrator changes their state
type MailNotifier struct {
	mailer   mail.Mailer
	messages *Composer
	log      *log.Logger
}

func NewMailNotifier(mailer mail.Mailer, messages *Composer) *MailNotifier {
	return &MailNotifier{
		mailer:   mailer,
		messages: messages,
		log:      logger.Service("notifier"),
	}
}

func (n *MailNotifier) StateChanged(ctx context.Context, notice enrollment.StateNotice) error {
	msg := n.messages.Message([]string{notice.Email}, "state_"+notice.State.String(), map[string]any{
		"Name":  notice.FullName,
		"Role":  n.messages.RoleName(notice.Kind),
		"Event": notice.EventName,
	})
	if len(notice.QRPNG) > 0 {
		msg.Attachments = append(msg.Attachments, qrAttachment(notice.QRPNG))
	}

	n.log.Debug("Sending state notice", "email", notice.Email, "state", notice.State)
	return n.mailer.Send(ctx, msg)
}

func qrAttachment(png []byte) mail.Attachment {
	return mail.Attachment{Name: "qr.png", ContentType: "image/png", Data: png}
}
