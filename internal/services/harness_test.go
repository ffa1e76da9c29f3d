package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/gravadigital/eventsoft-api/internal/domain/account"
	"github.com/gravadigital/eventsoft-api/internal/domain/certificate"
	"github.com/gravadigital/eventsoft-api/internal/domain/common"
	"github.com/gravadigital/eventsoft-api/internal/domain/criterion"
	"github.com/gravadigital/eventsoft-api/internal/domain/enrollment"
	"github.com/gravadigital/eventsoft-api/internal/domain/event"
	"github.com/gravadigital/eventsoft-api/internal/domain/notification"
	"github.com/gravadigital/eventsoft-api/internal/domain/ranking"
	"github.com/gravadigital/eventsoft-api/internal/domain/scoring"
	"github.com/gravadigital/eventsoft-api/internal/i18n"
	"github.com/gravadigital/eventsoft-api/internal/mail"
	"github.com/gravadigital/eventsoft-api/internal/qr"
	"github.com/gravadigital/eventsoft-api/internal/storage/files"
	"github.com/gravadigital/eventsoft-api/internal/storage/migrations"
	"github.com/gravadigital/eventsoft-api/internal/storage/postgres"
	"github.com/gravadigital/eventsoft-api/internal/token"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type memoryNotifications struct {
	mu   sync.Mutex
	rows []*notification.Notification
}

func (m *memoryNotifications) Create(_ context.Context, n *notification.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	m.rows = append(m.rows, n)
	return nil
}

func (m *memoryNotifications) ListByEvent(_ context.Context, eventID uuid.UUID) ([]*notification.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*notification.Notification
	for _, n := range m.rows {
		if n.EventID == eventID {
			out = append(out, n)
		}
	}
	return out, nil
}

type harness struct {
	t             *testing.T
	ctx           context.Context
	clock         *clock
	c             *postgres.Container
	mailer        *mail.LogMailer
	store         *files.LocalStore
	confirmations *token.Confirmations
	sessions      *token.Sessions
	machine       *enrollment.Machine
	engine        *scoring.Engine
	notifications *memoryNotifications

	registration *RegistrationService
	sweeper      *Sweeper
	invitations  *InvitationService
	events       *EventService
	enrollments  *EnrollmentService
	evaluation   *EvaluationService
	notifier     *NotificationService
	certificates *CertificateService
	auth         *AuthService
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	db, err := gorm.Open(gormsqlite.Open(filepath.Join(t.TempDir(), "eventsoft.sqlite")), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	require.NoError(t, db.AutoMigrate(migrations.PortableModels()...))

	store, err := files.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	h := &harness{
		t:             t,
		ctx:           context.Background(),
		clock:         &clock{t: time.Now().UTC().Truncate(time.Second)},
		c:             postgres.NewContainerWithDB(db),
		mailer:        mail.NewLogMailer(),
		store:         store,
		notifications: &memoryNotifications{},
	}
	h.confirmations = token.NewConfirmations("test-secret", time.Minute, 24*time.Hour).WithClock(h.clock.now)
	h.sessions = token.NewSessions("test-secret", time.Hour)

	c := h.c
	messages := NewComposer(i18n.NewTranslator("es"), "es")
	orphans := enrollment.NewOrphanCollector(c.Enrollments(), c.Accounts(), c.Scores())
	h.machine = enrollment.NewMachine(enrollment.Deps{
		UnitOfWork:  c.UnitOfWork(),
		Enrollments: c.Enrollments(),
		Events:      c.Events(),
		Accounts:    c.Accounts(),
		Orphans:     orphans,
		QR:          qr.NewEncoder(),
		Blobs:       store,
		Notifier:    NewMailNotifier(h.mailer, messages),
	})
	h.engine = scoring.NewEngine(c.UnitOfWork(), c.Scores(), c.Criteria(), c.Enrollments())
	board := ranking.NewBoard(c.Enrollments(), h.engine)
	links := NewLinks("http://eventsoft.test")

	h.registration = NewRegistrationService(RegistrationDeps{
		UnitOfWork:    c.UnitOfWork(),
		Accounts:      c.Accounts(),
		Events:        c.Events(),
		Enrollments:   c.Enrollments(),
		Orphans:       orphans,
		Machine:       h.machine,
		Confirmations: h.confirmations,
		Files:         store,
		Mailer:        h.mailer,
		Messages:      messages,
		Links:         links,
		MaxUploadSize: 1 << 20,
	}).WithClock(h.clock.now)
	h.sweeper = NewSweeper(c.UnitOfWork(), c.Enrollments(), orphans, store, 24*time.Hour, time.Minute)
	h.invitations = NewInvitationService(c.UnitOfWork(), c.Invitations(), c.Accounts(), c.Events(), h.mailer, messages, links).WithClock(h.clock.now)
	h.events = NewEventService(c.UnitOfWork(), c.Events(), c.Enrollments(), store)
	h.enrollments = NewEnrollmentService(c.Accounts(), c.Events(), c.Enrollments(), h.machine, store)
	criteria := criterion.NewStore(c.UnitOfWork(), c.Criteria(), c.Events(), c.Scores())
	h.evaluation = NewEvaluationService(c.Accounts(), c.Events(), c.Enrollments(), criteria, h.engine, board)
	h.notifier = NewNotificationService(c.Events(), c.Enrollments(), h.notifications, h.mailer)
	h.certificates = NewCertificateService(c.Events(), c.Enrollments(), c.Certificates(), board, certificate.NewPDFRenderer(), h.mailer, messages)
	h.auth = NewAuthService(c.Accounts(), c.Enrollments(), h.sessions)
	return h
}

// seedEvent stores an approved event administered by a fresh event admin
func (h *harness) seedEvent(capacity int, hasCost bool) (*event.Event, account.ActiveRole) {
	h.t.Helper()
	admin := h.seedUser("admin-"+uuid.NewString()[:8]+"@example.com", uuid.NewString()[:12], "Eva", "Admin", true)
	require.NoError(h.t, h.c.Accounts().EnsureRoleBinding(h.ctx, admin.ID, account.RoleEventAdmin))

	start := h.clock.now().Add(7 * 24 * time.Hour)
	ev := event.NewEvent("Congreso", "Congreso anual", admin.ID, start, start.Add(48*time.Hour), capacity, hasCost)
	ev.City = "Manizales"
	ev.Venue = "Teatro"
	ev.State = event.StateApproved
	require.NoError(h.t, h.c.Events().Create(h.ctx, ev))
	return ev, account.ActiveRole{UserID: admin.ID, Role: account.RoleEventAdmin}
}

func (h *harness) seedUser(email, document, first, last string, active bool) *account.User {
	h.t.Helper()
	u := &account.User{Email: email, Document: document, FirstName: first, LastName: last, Active: active}
	if active {
		require.NoError(h.t, u.SetPassword("secret-password"))
	}
	require.NoError(h.t, h.c.Accounts().CreateUser(h.ctx, u))
	return u
}

func (h *harness) input(ev *event.Event, email, document string) RegisterInput {
	return RegisterInput{
		EventID:   ev.ID,
		Email:     email,
		Document:  document,
		FirstName: "Ana",
		LastName:  "Gómez",
		Phone:     "3001234567",
	}
}

func (h *harness) reloadEvent(id uuid.UUID) *event.Event {
	h.t.Helper()
	ev, err := h.c.Events().GetByID(h.ctx, id)
	require.NoError(h.t, err)
	return ev
}

// withUpload sets kind and attaches the support document non-attendees need
func (h *harness) withUpload(in RegisterInput, kind common.Kind) RegisterInput {
	in.Kind = kind
	if kind != common.KindAttendee {
		in.Upload = &Upload{Filename: "soporte.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.4")}
	}
	return in
}

// enroll registers an active user of kind in ev and has the event admin approve it
func (h *harness) enroll(ev *event.Event, admin account.ActiveRole, kind common.Kind, email, document string) (*enrollment.Enrollment, account.ActiveRole) {
	h.t.Helper()
	u := h.seedUser(email, document, "Ana", "Gómez", true)

	res, err := h.registration.Register(h.ctx, h.withUpload(h.input(ev, email, document), kind))
	require.NoError(h.t, err)

	en := res.Enrollment
	if en.State != enrollment.StateApproved {
		en, err = h.enrollments.Transition(h.ctx, admin, en.ID, enrollment.StateApproved)
		require.NoError(h.t, err)
	}
	return en, account.ActiveRole{UserID: u.ID, Role: account.RoleForKind(kind)}
}
