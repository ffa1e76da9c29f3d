package server

import (
	"context"

	"github.com/gravadigital/eventsoft-api/internal/config"
	"github.com/gravadigital/eventsoft-api/internal/domain/certificate"
	"github.com/gravadigital/eventsoft-api/internal/domain/criterion"
	"github.com/gravadigital/eventsoft-api/internal/domain/enrollment"
	"github.com/gravadigital/eventsoft-api/internal/domain/ranking"
	"github.com/gravadigital/eventsoft-api/internal/domain/scoring"
	"github.com/gravadigital/eventsoft-api/internal/i18n"
	"github.com/gravadigital/eventsoft-api/internal/mail"
	"github.com/gravadigital/eventsoft-api/internal/qr"
	"github.com/gravadigital/eventsoft-api/internal/services"
	"github.com/gravadigital/eventsoft-api/internal/storage/files"
	"github.com/gravadigital/eventsoft-api/internal/storage/postgres"
	"github.com/gravadigital/eventsoft-api/internal/token"
)

// Services bundles the application services behind the HTTP routes
type Services struct {
	Auth          *services.AuthService
	Registration  *services.RegistrationService
	Enrollments   *services.EnrollmentService
	Events        *services.EventService
	Invitations   *services.InvitationService
	Evaluation    *services.EvaluationService
	Notifications *services.NotificationService
	Certificates  *services.CertificateService
	Sweeper       *services.Sweeper

	health func(context.Context) error
}

// NewServices wires every service over one repository container and blob store
func NewServices(cfg *config.Config, c postgres.RepositoryContainer, store files.Store, mailer mail.Mailer) *Services {
	messages := services.NewComposer(i18n.NewTranslator(cfg.App.Locale), cfg.App.Locale)
	links := services.NewLinks(cfg.Server.BaseURL)
	confirmations := token.NewConfirmations(cfg.Token.Secret, cfg.Token.ConfirmWindow, cfg.Token.RetentionWindow)
	sessions := token.NewSessions(cfg.Token.Secret, cfg.Token.SessionTTL)

	orphans := enrollment.NewOrphanCollector(c.Enrollments(), c.Accounts(), c.Scores())
	machine := enrollment.NewMachine(enrollment.Deps{
		UnitOfWork:  c.UnitOfWork(),
		Enrollments: c.Enrollments(),
		Events:      c.Events(),
		Accounts:    c.Accounts(),
		Orphans:     orphans,
		QR:          qr.NewEncoder(),
		Blobs:       store,
		Notifier:    services.NewMailNotifier(mailer, messages),
	})
	engine := scoring.NewEngine(c.UnitOfWork(), c.Scores(), c.Criteria(), c.Enrollments())
	board := ranking.NewBoard(c.Enrollments(), engine)
	criteria := criterion.NewStore(c.UnitOfWork(), c.Criteria(), c.Events(), c.Scores())

	return &Services{
		Auth: services.NewAuthService(c.Accounts(), c.Enrollments(), sessions),
		Registration: services.NewRegistrationService(services.RegistrationDeps{
			UnitOfWork:    c.UnitOfWork(),
			Accounts:      c.Accounts(),
			Events:        c.Events(),
			Enrollments:   c.Enrollments(),
			Orphans:       orphans,
			Machine:       machine,
			Confirmations: confirmations,
			Files:         store,
			Mailer:        mailer,
			Messages:      messages,
			Links:         links,
			MaxUploadSize: cfg.Upload.MaxFileSize,
		}),
		Enrollments:   services.NewEnrollmentService(c.Accounts(), c.Events(), c.Enrollments(), machine, store),
		Events:        services.NewEventService(c.UnitOfWork(), c.Events(), c.Enrollments(), store),
		Invitations:   services.NewInvitationService(c.UnitOfWork(), c.Invitations(), c.Accounts(), c.Events(), mailer, messages, links),
		Evaluation:    services.NewEvaluationService(c.Accounts(), c.Events(), c.Enrollments(), criteria, engine, board),
		Notifications: services.NewNotificationService(c.Events(), c.Enrollments(), c.Notifications(), mailer),
		Certificates:  services.NewCertificateService(c.Events(), c.Enrollments(), c.Certificates(), board, certificate.NewPDFRenderer(), mailer, messages),
		Sweeper:       services.NewSweeper(c.UnitOfWork(), c.Enrollments(), orphans, store, cfg.Cleanup.MaxAge, cfg.Cleanup.Interval),
		health:        c.Health,
	}
}
