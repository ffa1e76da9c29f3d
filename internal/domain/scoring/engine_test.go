package scoring

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gravadigital/eventsoft-api/internal/domain/account"
	"github.com/gravadigital/eventsoft-api/internal/domain/common"
	"github.com/gravadigital/eventsoft-api/internal/domain/criterion"
	"github.com/gravadigital/eventsoft-api/internal/domain/enrollment"
)

type fakeUoW struct{}

func (fakeUoW) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type memScores struct {
	rows     []*Score
	criteria *memCriteria
}

func (m *memScores) Upsert(_ context.Context, s *Score) error {
	for _, r := range m.rows {
		if r.EvaluatorID == s.EvaluatorID && r.CriterionID == s.CriterionID && r.ParticipantID == s.ParticipantID {
			r.Value = s.Value
			r.Note = s.Note
			return nil
		}
	}
	cp := *s
	m.rows = append(m.rows, &cp)
	return nil
}

func (m *memScores) ListByParticipant(_ context.Context, participantID, eventID uuid.UUID) ([]*Score, error) {
	var out []*Score
	for _, r := range m.rows {
		if r.ParticipantID == participantID && r.EventID == eventID {
			cp := *r
			cp.Criterion = m.criteria.rows[r.CriterionID]
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memScores) CountByEvaluator(_ context.Context, evaluatorID, participantID, eventID uuid.UUID) (int64, error) {
	var n int64
	for _, r := range m.rows {
		if r.EvaluatorID == evaluatorID && r.ParticipantID == participantID && r.EventID == eventID {
			n++
		}
	}
	return n, nil
}

type memCriteria struct {
	rows  map[uuid.UUID]*criterion.Criterion
	order []uuid.UUID
}

func (m *memCriteria) add(eventID uuid.UUID, description string, weight float64) *criterion.Criterion {
	c := &criterion.Criterion{ID: uuid.New(), EventID: eventID, Description: description, Weight: weight}
	m.rows[c.ID] = c
	m.order = append(m.order, c.ID)
	return c
}

func (m *memCriteria) GetByID(_ context.Context, id uuid.UUID) (*criterion.Criterion, error) {
	c, ok := m.rows[id]
	if !ok {
		return nil, criterion.ErrNotFound
	}
	return c, nil
}

func (m *memCriteria) ListByEvent(_ context.Context, eventID uuid.UUID) ([]*criterion.Criterion, error) {
	var out []*criterion.Criterion
	for _, id := range m.order {
		if c := m.rows[id]; c.EventID == eventID {
			out = append(out, c)
		}
	}
	return out, nil
}

type memEnrollments struct {
	members []*enrollment.Member
}

func (m *memEnrollments) add(kind common.Kind, eventID uuid.UUID, state enrollment.State, name string) *enrollment.Enrollment {
	e := &enrollment.Enrollment{ID: uuid.New(), Kind: kind, ProfileID: uuid.New(), EventID: eventID, State: state, Confirmed: true}
	m.members = append(m.members, &enrollment.Member{
		Enrollment: e,
		User:       &account.User{FirstName: name, LastName: "Test", Document: name},
	})
	return e
}

func (m *memEnrollments) Find(_ context.Context, kind common.Kind, profileID, eventID uuid.UUID) (*enrollment.Enrollment, error) {
	for _, mem := range m.members {
		e := mem.Enrollment
		if e.Kind == kind && e.ProfileID == profileID && e.EventID == eventID {
			return e, nil
		}
	}
	return nil, enrollment.ErrNotFound
}

func (m *memEnrollments) FindForUpdate(ctx context.Context, kind common.Kind, profileID, eventID uuid.UUID) (*enrollment.Enrollment, error) {
	return m.Find(ctx, kind, profileID, eventID)
}

func (m *memEnrollments) SetAggregate(_ context.Context, enrollmentID uuid.UUID, value float64) error {
	for _, mem := range m.members {
		if mem.Enrollment.ID == enrollmentID {
			v := value
			mem.Enrollment.AggregateScore = &v
			return nil
		}
	}
	return enrollment.ErrNotFound
}

func (m *memEnrollments) List(_ context.Context, f enrollment.Filter) ([]*enrollment.Member, error) {
	var out []*enrollment.Member
	for _, mem := range m.members {
		e := mem.Enrollment
		if e.EventID != f.EventID || e.Kind != f.Kind {
			continue
		}
		if f.State != nil && e.State != *f.State {
			continue
		}
		out = append(out, mem)
	}
	return out, nil
}

type engineFixture struct {
	engine      *Engine
	scores      *memScores
	criteria    *memCriteria
	enrollments *memEnrollments
	eventID     uuid.UUID
}

func newEngineFixture() *engineFixture {
	criteria := &memCriteria{rows: map[uuid.UUID]*criterion.Criterion{}}
	scores := &memScores{criteria: criteria}
	enrollments := &memEnrollments{}
	return &engineFixture{
		engine:      NewEngine(fakeUoW{}, scores, criteria, enrollments),
		scores:      scores,
		criteria:    criteria,
		enrollments: enrollments,
		eventID:     uuid.New(),
	}
}

func TestSubmitScorePinnedScenario(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()
	c1 := f.criteria.add(f.eventID, "Originalidad", 60)
	c2 := f.criteria.add(f.eventID, "Claridad", 40)
	p := f.enrollments.add(common.KindParticipant, f.eventID, enrollment.StateApproved, "Pablo")
	a := f.enrollments.add(common.KindEvaluator, f.eventID, enrollment.StateApproved, "Ana")
	b := f.enrollments.add(common.KindEvaluator, f.eventID, enrollment.StateApproved, "Beto")

	submit := func(ev *enrollment.Enrollment, c *criterion.Criterion, v int) float64 {
		got, err := f.engine.SubmitScore(ctx, SubmitInput{EvaluatorID: ev.ProfileID, ParticipantID: p.ProfileID, CriterionID: c.ID, Value: v})
		require.NoError(t, err)
		return got
	}

	submit(a, c1, 5)
	assert.Equal(t, 4.20, submit(a, c2, 3))
	submit(b, c1, 1)
	assert.Equal(t, 2.60, submit(b, c2, 1))

	require.NotNil(t, p.AggregateScore)
	assert.Equal(t, 2.60, *p.AggregateScore)
}

func TestSubmitScoreIsIdempotentUpsert(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()
	c := f.criteria.add(f.eventID, "Originalidad", 100)
	p := f.enrollments.add(common.KindParticipant, f.eventID, enrollment.StateApproved, "Pablo")
	a := f.enrollments.add(common.KindEvaluator, f.eventID, enrollment.StateApproved, "Ana")
	in := SubmitInput{EvaluatorID: a.ProfileID, ParticipantID: p.ProfileID, CriterionID: c.ID, Value: 4}

	_, err := f.engine.SubmitScore(ctx, in)
	require.NoError(t, err)
	_, err = f.engine.SubmitScore(ctx, in)
	require.NoError(t, err)
	in.Value = 2
	got, err := f.engine.SubmitScore(ctx, in)
	require.NoError(t, err)

	assert.Len(t, f.scores.rows, 1)
	assert.Equal(t, 2, f.scores.rows[0].Value)
	assert.Equal(t, 2.0, got)
}

func TestSubmitScoreRejectsOutOfRangeBeforeWriting(t *testing.T) {
	f := newEngineFixture()
	c := f.criteria.add(f.eventID, "Originalidad", 100)
	p := f.enrollments.add(common.KindParticipant, f.eventID, enrollment.StateApproved, "Pablo")
	a := f.enrollments.add(common.KindEvaluator, f.eventID, enrollment.StateApproved, "Ana")

	for _, v := range []int{0, 6, -1} {
		_, err := f.engine.SubmitScore(context.Background(), SubmitInput{EvaluatorID: a.ProfileID, ParticipantID: p.ProfileID, CriterionID: c.ID, Value: v})
		assert.True(t, errors.Is(err, ErrOutOfRange))
	}
	assert.Empty(t, f.scores.rows)
	assert.Nil(t, p.AggregateScore)
}

func TestSubmitScoreRequiresApprovedEnrollments(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()
	c := f.criteria.add(f.eventID, "Originalidad", 100)
	pending := f.enrollments.add(common.KindParticipant, f.eventID, enrollment.StatePending, "Pablo")
	approved := f.enrollments.add(common.KindParticipant, f.eventID, enrollment.StateApproved, "Paula")
	a := f.enrollments.add(common.KindEvaluator, f.eventID, enrollment.StateApproved, "Ana")
	pendingEvaluator := f.enrollments.add(common.KindEvaluator, f.eventID, enrollment.StatePending, "Beto")

	_, err := f.engine.SubmitScore(ctx, SubmitInput{EvaluatorID: a.ProfileID, ParticipantID: pending.ProfileID, CriterionID: c.ID, Value: 3})
	assert.True(t, errors.Is(err, ErrNotEligible))

	_, err = f.engine.SubmitScore(ctx, SubmitInput{EvaluatorID: a.ProfileID, ParticipantID: uuid.New(), CriterionID: c.ID, Value: 3})
	assert.True(t, errors.Is(err, ErrNotEligible))

	_, err = f.engine.SubmitScore(ctx, SubmitInput{EvaluatorID: pendingEvaluator.ProfileID, ParticipantID: approved.ProfileID, CriterionID: c.ID, Value: 3})
	assert.True(t, errors.Is(err, ErrNotEligible))

	assert.Empty(t, f.scores.rows)
}

func TestRecomputeAggregateWithoutScores(t *testing.T) {
	f := newEngineFixture()
	f.criteria.add(f.eventID, "Originalidad", 100)
	p := f.enrollments.add(common.KindParticipant, f.eventID, enrollment.StateApproved, "Pablo")

	got, err := f.engine.RecomputeAggregate(context.Background(), p.ProfileID, f.eventID)

	require.NoError(t, err)
	assert.Equal(t, 0.0, got)
	require.NotNil(t, p.AggregateScore)
}

func TestEvaluationProgress(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()
	c1 := f.criteria.add(f.eventID, "Originalidad", 60)
	f.criteria.add(f.eventID, "Claridad", 40)
	p := f.enrollments.add(common.KindParticipant, f.eventID, enrollment.StateApproved, "Pablo")
	a := f.enrollments.add(common.KindEvaluator, f.eventID, enrollment.StateApproved, "Ana")

	_, err := f.engine.SubmitScore(ctx, SubmitInput{EvaluatorID: a.ProfileID, ParticipantID: p.ProfileID, CriterionID: c1.ID, Value: 5})
	require.NoError(t, err)

	progress, err := f.engine.EvaluationProgress(ctx, a.ProfileID, p.ProfileID, f.eventID)
	require.NoError(t, err)
	assert.Equal(t, Progress{Scored: 1, Total: 2}, progress)
	assert.False(t, progress.Complete())
}

func TestBreakdownAndSheet(t *testing.T) {
	f := newEngineFixture()
	ctx := context.Background()
	c1 := f.criteria.add(f.eventID, "Originalidad", 60)
	c2 := f.criteria.add(f.eventID, "Claridad", 40)
	p := f.enrollments.add(common.KindParticipant, f.eventID, enrollment.StateApproved, "Pablo")
	idle := f.enrollments.add(common.KindParticipant, f.eventID, enrollment.StateApproved, "Paula")
	f.enrollments.add(common.KindParticipant, f.eventID, enrollment.StatePending, "Pedro")
	a := f.enrollments.add(common.KindEvaluator, f.eventID, enrollment.StateApproved, "Ana")
	b := f.enrollments.add(common.KindEvaluator, f.eventID, enrollment.StateApproved, "Beto")

	for _, s := range []struct {
		ev *enrollment.Enrollment
		c  *criterion.Criterion
		v  int
	}{{a, c1, 5}, {a, c2, 3}, {b, c1, 1}} {
		_, err := f.engine.SubmitScore(ctx, SubmitInput{EvaluatorID: s.ev.ProfileID, ParticipantID: p.ProfileID, CriterionID: s.c.ID, Value: s.v})
		require.NoError(t, err)
	}

	rows, err := f.engine.Breakdown(ctx, f.eventID)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	scored := rows[0]
	assert.Equal(t, p.ProfileID, scored.ParticipantID)
	assert.Equal(t, 2, scored.CriteriaScored)
	assert.Equal(t, 2, scored.TotalCriteria)
	assert.Equal(t, 2, scored.Evaluators)
	require.NotNil(t, scored.DisplayAverage)
	// (3.0 + 1.2 + 0.6) / 2
	assert.Equal(t, 2.40, *scored.DisplayAverage)

	assert.Equal(t, idle.ProfileID, rows[1].ParticipantID)
	assert.Nil(t, rows[1].DisplayAverage)

	sheet, err := f.engine.EvaluatorSheet(ctx, b.ProfileID, f.eventID)
	require.NoError(t, err)
	require.Len(t, sheet, 2)
	assert.False(t, sheet[0].Evaluated)
	require.NotNil(t, sheet[0].Weighted)
	assert.Equal(t, 0.6, *sheet[0].Weighted)
	assert.Nil(t, sheet[1].Weighted)

	single, err := f.engine.ParticipantScores(ctx, p.ProfileID, f.eventID)
	require.NoError(t, err)
	assert.Len(t, single.Lines, 3)
}
