package postgres

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/gravadigital/eventsoft-api/internal/domain/account"
	"github.com/gravadigital/eventsoft-api/internal/domain/common"
	"github.com/gravadigital/eventsoft-api/internal/domain/criterion"
	"github.com/gravadigital/eventsoft-api/internal/domain/enrollment"
	"github.com/gravadigital/eventsoft-api/internal/domain/event"
	"github.com/gravadigital/eventsoft-api/internal/domain/invitation"
	"github.com/gravadigital/eventsoft-api/internal/domain/scoring"
	"github.com/gravadigital/eventsoft-api/internal/storage/migrations"
)

func setupContainer(t *testing.T) *Container {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "eventsoft.sqlite")
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	require.NoError(t, db.AutoMigrate(migrations.PortableModels()...))
	return NewContainerWithDB(db)
}

func seedUser(t *testing.T, c *Container, email, document string, kind common.Kind) (*account.User, *account.Profile) {
	t.Helper()
	ctx := context.Background()

	u := &account.User{Email: email, Document: document, FirstName: "Ana", LastName: "Gómez"}
	require.NoError(t, c.Accounts().CreateUser(ctx, u))
	p, err := c.Accounts().EnsureProfile(ctx, u.ID, kind)
	require.NoError(t, err)
	require.NoError(t, c.Accounts().EnsureRoleBinding(ctx, u.ID, account.RoleForKind(kind)))
	return u, p
}

func seedEvent(t *testing.T, c *Container, capacity int) *event.Event {
	t.Helper()
	start := time.Now().Add(24 * time.Hour)
	e := event.NewEvent("Congreso", "Anual", uuid.New(), start, start.Add(48*time.Hour), capacity, false)
	e.State = event.StateApproved
	require.NoError(t, c.Events().Create(context.Background(), e))
	return e
}

func TestUnitOfWorkRollsBack(t *testing.T) {
	c := setupContainer(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := c.UnitOfWork().WithTx(ctx, func(ctx context.Context) error {
		u := &account.User{Email: "tx@example.com", Document: "1", FirstName: "T", LastName: "X"}
		if err := c.Accounts().CreateUser(ctx, u); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = c.Accounts().GetUserByEmail(ctx, "tx@example.com")
	assert.ErrorIs(t, err, account.ErrNotFound)
}

func TestUnitOfWorkJoinsOuterTransaction(t *testing.T) {
	c := setupContainer(t)
	ctx := context.Background()

	err := c.UnitOfWork().WithTx(ctx, func(ctx context.Context) error {
		return c.UnitOfWork().WithTx(ctx, func(ctx context.Context) error {
			return c.Accounts().CreateUser(ctx, &account.User{Email: "inner@example.com", Document: "2", FirstName: "I", LastName: "N"})
		})
	})
	require.NoError(t, err)

	_, err = c.Accounts().GetUserByEmail(ctx, "INNER@example.com")
	assert.NoError(t, err)
}

func TestAccountRepository(t *testing.T) {
	c := setupContainer(t)
	ctx := context.Background()
	u, p := seedUser(t, c, "ana@example.com", "1020", common.KindParticipant)

	err := c.Accounts().CreateUser(ctx, &account.User{Email: "ana@example.com", Document: "999", FirstName: "X", LastName: "Y"})
	assert.ErrorIs(t, err, account.ErrDuplicate)

	found, err := c.Accounts().FindUserByEmailOrDocument(ctx, "other@example.com", "1020")
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)

	again, err := c.Accounts().EnsureProfile(ctx, u.ID, common.KindParticipant)
	require.NoError(t, err)
	assert.Equal(t, p.ID, again.ID)
	require.NoError(t, c.Accounts().EnsureRoleBinding(ctx, u.ID, account.RoleParticipant))

	n, err := c.Accounts().CountRoleBindings(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	byProfile, err := c.Accounts().GetUserByProfile(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, u.ID, byProfile.ID)

	acc, err := c.Accounts().GetAccount(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, acc.ParticipantID)
	assert.Equal(t, p.ID, *acc.ParticipantID)
	assert.Nil(t, acc.AttendeeID)
	assert.True(t, acc.HasRole(account.RoleParticipant))

	users, err := c.Accounts().ListUsersByRole(ctx, account.RoleParticipant)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestEnrollmentRepositoryListFilters(t *testing.T) {
	c := setupContainer(t)
	ctx := context.Background()
	ev := seedEvent(t, c, 10)
	now := time.Now()

	_, ana := seedUser(t, c, "ana@example.com", "1020", common.KindAttendee)
	u2 := &account.User{Email: "luis@example.com", Document: "3040", FirstName: "Luis", LastName: "Pérez"}
	require.NoError(t, c.Accounts().CreateUser(ctx, u2))
	luis, err := c.Accounts().EnsureProfile(ctx, u2.ID, common.KindAttendee)
	require.NoError(t, err)

	first := enrollment.New(common.KindAttendee, ana.ID, ev.ID, true, now.Add(-time.Hour))
	second := enrollment.New(common.KindAttendee, luis.ID, ev.ID, false, now)
	require.NoError(t, c.Enrollments().Create(ctx, first))
	require.NoError(t, c.Enrollments().Create(ctx, second))
	assert.NotEmpty(t, first.AccessKey)

	dup := enrollment.New(common.KindAttendee, ana.ID, ev.ID, true, now)
	assert.ErrorIs(t, c.Enrollments().Create(ctx, dup), enrollment.ErrDuplicate)

	all, err := c.Enrollments().List(ctx, enrollment.Filter{EventID: ev.ID, Kind: common.KindAttendee})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, first.ID, all[0].Enrollment.ID)
	assert.Equal(t, "ana@example.com", all[0].User.Email)

	byName, err := c.Enrollments().List(ctx, enrollment.Filter{EventID: ev.ID, Name: "pérez"})
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, second.ID, byName[0].Enrollment.ID)

	confirmed := true
	byConfirmation, err := c.Enrollments().List(ctx, enrollment.Filter{EventID: ev.ID, Confirmed: &confirmed})
	require.NoError(t, err)
	require.Len(t, byConfirmation, 1)
	assert.Equal(t, first.ID, byConfirmation[0].Enrollment.ID)

	stale, err := c.Enrollments().ListUnconfirmedBefore(ctx, now.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, second.ID, stale[0].ID)

	pending := enrollment.StatePending
	n, err := c.Enrollments().Count(ctx, ev.ID, common.KindAttendee, &pending)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = c.Enrollments().GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, enrollment.ErrNotFound)
}

func TestEventRepositoryCapacity(t *testing.T) {
	c := setupContainer(t)
	ctx := context.Background()
	ev := seedEvent(t, c, 3)

	locked, err := c.Events().GetForUpdate(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, locked.Capacity)

	require.NoError(t, c.Events().UpdateCapacity(ctx, ev.ID, 2))
	got, err := c.Events().GetByID(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Capacity)

	assert.ErrorIs(t, c.Events().UpdateCapacity(ctx, uuid.New(), 1), event.ErrNotFound)

	approved := event.StateApproved
	listed, err := c.Events().List(ctx, event.Filter{State: &approved})
	require.NoError(t, err)
	assert.Len(t, listed, 1)
}

// scoringFixture builds an event with two criteria (60 and 40 points),
// one approved participant and two approved evaluators
type scoringFixture struct {
	c           *Container
	event       *event.Event
	criteria    []*criterion.Criterion
	participant *account.Profile
	evaluators  []*account.Profile
}

func newScoringFixture(t *testing.T) *scoringFixture {
	t.Helper()
	c := setupContainer(t)
	ctx := context.Background()
	ev := seedEvent(t, c, 10)
	store := criterion.NewStore(c.UnitOfWork(), c.Criteria(), c.Events(), c.Scores())

	c1, err := store.Add(ctx, ev.ID, "Originalidad", 60)
	require.NoError(t, err)
	c2, err := store.Add(ctx, ev.ID, "Presentación", 40)
	require.NoError(t, err)

	_, participant := seedUser(t, c, "p@example.com", "1", common.KindParticipant)
	_, ev1 := seedUser(t, c, "e1@example.com", "2", common.KindEvaluator)
	_, ev2 := seedUser(t, c, "e2@example.com", "3", common.KindEvaluator)

	for _, p := range []*account.Profile{participant, ev1, ev2} {
		en := enrollment.New(p.Kind, p.ID, ev.ID, true, time.Now())
		en.State = enrollment.StateApproved
		require.NoError(t, c.Enrollments().Create(ctx, en))
	}

	return &scoringFixture{
		c:           c,
		event:       ev,
		criteria:    []*criterion.Criterion{c1, c2},
		participant: participant,
		evaluators:  []*account.Profile{ev1, ev2},
	}
}

func (f *scoringFixture) engine() *scoring.Engine {
	return scoring.NewEngine(f.c.UnitOfWork(), f.c.Scores(), f.c.Criteria(), f.c.Enrollments())
}

func (f *scoringFixture) submit(t *testing.T, evaluator *account.Profile, crit *criterion.Criterion, value int) float64 {
	t.Helper()
	agg, err := f.engine().SubmitScore(context.Background(), scoring.SubmitInput{
		EvaluatorID:   evaluator.ID,
		ParticipantID: f.participant.ID,
		CriterionID:   crit.ID,
		Value:         value,
	})
	require.NoError(t, err)
	return agg
}

func TestScoreRepositoryWithEngine(t *testing.T) {
	f := newScoringFixture(t)
	ctx := context.Background()

	f.submit(t, f.evaluators[0], f.criteria[0], 5)
	assert.Equal(t, 4.20, f.submit(t, f.evaluators[0], f.criteria[1], 3))

	// resubmitting overwrites instead of adding a row
	assert.Equal(t, 4.20, f.submit(t, f.evaluators[0], f.criteria[1], 3))

	f.submit(t, f.evaluators[1], f.criteria[0], 4)
	assert.Equal(t, 4.10, f.submit(t, f.evaluators[1], f.criteria[1], 4))

	scores, err := f.c.Scores().ListByParticipant(ctx, f.participant.ID, f.event.ID)
	require.NoError(t, err)
	require.Len(t, scores, 4)
	require.NotNil(t, scores[0].Criterion)

	progress, err := f.engine().EvaluationProgress(ctx, f.evaluators[0].ID, f.participant.ID, f.event.ID)
	require.NoError(t, err)
	assert.True(t, progress.Complete())

	pe, err := f.c.Enrollments().Find(ctx, common.KindParticipant, f.participant.ID, f.event.ID)
	require.NoError(t, err)
	require.NotNil(t, pe.AggregateScore)
	assert.Equal(t, 4.10, *pe.AggregateScore)
}

func TestPurgeProfileInvalidatesAggregates(t *testing.T) {
	f := newScoringFixture(t)
	ctx := context.Background()

	f.submit(t, f.evaluators[0], f.criteria[0], 5)
	f.submit(t, f.evaluators[1], f.criteria[0], 1)

	require.NoError(t, f.c.Scores().PurgeProfile(ctx, f.evaluators[1].ID))

	pe, err := f.c.Enrollments().Find(ctx, common.KindParticipant, f.participant.ID, f.event.ID)
	require.NoError(t, err)
	assert.Nil(t, pe.AggregateScore)

	agg, err := f.engine().RecomputeAggregate(ctx, f.participant.ID, f.event.ID)
	require.NoError(t, err)
	assert.Equal(t, 3.00, agg)
}

func TestCriterionChangesInvalidateAggregates(t *testing.T) {
	f := newScoringFixture(t)
	ctx := context.Background()
	store := criterion.NewStore(f.c.UnitOfWork(), f.c.Criteria(), f.c.Events(), f.c.Scores())

	f.submit(t, f.evaluators[0], f.criteria[0], 5)

	_, err := store.Add(ctx, f.event.ID, "Extra", 0.5)
	assert.ErrorIs(t, err, criterion.ErrWeightExceeded)

	require.NoError(t, store.Remove(ctx, f.criteria[0].ID))

	total, err := store.TotalWeight(ctx, f.event.ID)
	require.NoError(t, err)
	assert.Equal(t, 40.0, total)

	scores, err := f.c.Scores().ListByParticipant(ctx, f.participant.ID, f.event.ID)
	require.NoError(t, err)
	assert.Empty(t, scores)

	pe, err := f.c.Enrollments().Find(ctx, common.KindParticipant, f.participant.ID, f.event.ID)
	require.NoError(t, err)
	assert.Nil(t, pe.AggregateScore)
}

func TestInvitationRepositoryLatestGrant(t *testing.T) {
	c := setupContainer(t)
	ctx := context.Background()
	now := time.Now()
	userID := uuid.New()

	code, err := invitation.NewRegistrationCode("admin@example.com", 2, now.Add(time.Hour), nil, now)
	require.NoError(t, err)
	require.NoError(t, c.Invitations().Create(ctx, code))

	grant, err := code.Redeem(userID, now)
	require.NoError(t, err)
	require.NoError(t, c.Invitations().Update(ctx, code))
	require.NoError(t, c.Invitations().Create(ctx, grant))

	got, err := c.Invitations().LatestGrant(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, grant.ID, got.ID)
	assert.Equal(t, 2, got.EventQuota)

	used, err := c.Invitations().GetByCode(ctx, code.Code)
	require.NoError(t, err)
	assert.Equal(t, invitation.StateUsed, used.State)

	_, err = c.Invitations().LatestGrant(ctx, uuid.New())
	assert.ErrorIs(t, err, invitation.ErrNotFound)
}
