package ranking

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gravadigital/eventsoft-api/internal/domain/account"
	"github.com/gravadigital/eventsoft-api/internal/domain/common"
	"github.com/gravadigital/eventsoft-api/internal/domain/enrollment"
)

func ranks(standings []Standing) []int {
	out := make([]int, len(standings))
	for i, s := range standings {
		out[i] = s.Rank
	}
	return out
}

func TestRankCompetitionStyle(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	entries := []Entry{
		{ParticipantID: uuid.New(), Score: 80, RegisteredAt: base},
		{ParticipantID: uuid.New(), Score: 90, RegisteredAt: base},
		{ParticipantID: uuid.New(), Score: 70, RegisteredAt: base},
		{ParticipantID: uuid.New(), Score: 90, RegisteredAt: base},
	}

	got := Rank(entries)

	assert.Equal(t, []int{1, 1, 3, 4}, ranks(got))
	assert.Equal(t, []float64{90, 90, 80, 70}, []float64{got[0].Score, got[1].Score, got[2].Score, got[3].Score})
}

func TestRankComparesAtTwoDecimals(t *testing.T) {
	got := Rank([]Entry{
		{ParticipantID: uuid.New(), Score: 4.201},
		{ParticipantID: uuid.New(), Score: 4.199},
		{ParticipantID: uuid.New(), Score: 4.1},
	})

	assert.Equal(t, []int{1, 1, 3}, ranks(got))
}

func TestRankTieBreakIsDeterministic(t *testing.T) {
	early := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	late := early.Add(time.Hour)
	first := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	second := uuid.MustParse("00000000-0000-0000-0000-000000000002")
	third := uuid.MustParse("00000000-0000-0000-0000-000000000003")

	entries := []Entry{
		{ParticipantID: third, Score: 3, RegisteredAt: late},
		{ParticipantID: second, Score: 3, RegisteredAt: early},
		{ParticipantID: first, Score: 3, RegisteredAt: early},
	}

	for i := 0; i < 5; i++ {
		got := Rank(entries)
		assert.Equal(t, []uuid.UUID{first, second, third}, []uuid.UUID{got[0].ParticipantID, got[1].ParticipantID, got[2].ParticipantID})
		assert.Equal(t, []int{1, 1, 1}, ranks(got))
	}
}

func TestRankEmpty(t *testing.T) {
	assert.Empty(t, Rank(nil))
}

type fakeParticipants struct {
	members []*enrollment.Member
	filter  enrollment.Filter
}

func (f *fakeParticipants) List(_ context.Context, filter enrollment.Filter) ([]*enrollment.Member, error) {
	f.filter = filter
	return f.members, nil
}

type fakeBackfiller struct {
	calls  []uuid.UUID
	values map[uuid.UUID]float64
}

func (f *fakeBackfiller) RecomputeAggregate(_ context.Context, participantID, _ uuid.UUID) (float64, error) {
	f.calls = append(f.calls, participantID)
	return f.values[participantID], nil
}

func TestBoardBackfillsMissingAggregates(t *testing.T) {
	eventID := uuid.New()
	stored := 3.5
	withScore := &enrollment.Member{
		Enrollment: &enrollment.Enrollment{ProfileID: uuid.New(), EventID: eventID, AggregateScore: &stored},
		User:       &account.User{FirstName: "Ana", LastName: "Rojas"},
	}
	missing := &enrollment.Member{
		Enrollment: &enrollment.Enrollment{ProfileID: uuid.New(), EventID: eventID},
		User:       &account.User{FirstName: "Beto", LastName: "Diaz"},
	}
	participants := &fakeParticipants{members: []*enrollment.Member{withScore, missing}}
	backfill := &fakeBackfiller{values: map[uuid.UUID]float64{missing.Enrollment.ProfileID: 4.2}}

	got, err := NewBoard(participants, backfill).Rank(context.Background(), eventID)

	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{missing.Enrollment.ProfileID}, backfill.calls)
	require.Len(t, got, 2)
	assert.Equal(t, "Beto Diaz", got[0].Name)
	assert.Equal(t, 1, got[0].Rank)
	assert.Equal(t, 2, got[1].Rank)

	assert.Equal(t, common.KindParticipant, participants.filter.Kind)
	require.NotNil(t, participants.filter.State)
	assert.Equal(t, enrollment.StateApproved, *participants.filter.State)
}
