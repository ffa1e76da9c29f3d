package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gravadigital/eventsoft-api/internal/domain/account"
	"github.com/gravadigital/eventsoft-api/internal/domain/common"
	"github.com/gravadigital/eventsoft-api/internal/domain/criterion"
	"github.com/gravadigital/eventsoft-api/internal/domain/enrollment"
	"github.com/gravadigital/eventsoft-api/internal/domain/event"
	"github.com/gravadigital/eventsoft-api/internal/domain/scoring"
)

func TestCriteriaRespectWeightCeiling(t *testing.T) {
	h := newHarness(t)
	ev, admin := h.seedEvent(10, false)
	_, other := h.seedEvent(10, false)

	c1, err := h.evaluation.AddCriterion(h.ctx, admin, ev.ID, CriterionInput{Description: "Originalidad", Weight: 60})
	require.NoError(t, err)
	_, err = h.evaluation.AddCriterion(h.ctx, admin, ev.ID, CriterionInput{Description: "Claridad", Weight: 40})
	require.NoError(t, err)

	_, err = h.evaluation.AddCriterion(h.ctx, admin, ev.ID, CriterionInput{Description: "Extra", Weight: 0.5})
	assert.ErrorIs(t, err, criterion.ErrWeightExceeded)
	_, err = h.evaluation.EditCriterion(h.ctx, admin, c1.ID, CriterionInput{Description: "Originalidad", Weight: 70})
	assert.ErrorIs(t, err, criterion.ErrWeightExceeded)
	edited, err := h.evaluation.EditCriterion(h.ctx, admin, c1.ID, CriterionInput{Description: "Originalidad", Weight: 50})
	require.NoError(t, err)
	assert.InDelta(t, 50.0, edited.Weight, 0.0001)

	_, err = h.evaluation.AddCriterion(h.ctx, other, ev.ID, CriterionInput{Description: "Ajeno", Weight: 5})
	assert.ErrorIs(t, err, event.ErrNotAdministrator)

	list, total, err := h.evaluation.Criteria(h.ctx, ev.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)
	assert.InDelta(t, 90.0, total, 0.0001)

	require.NoError(t, h.evaluation.RemoveCriterion(h.ctx, admin, c1.ID))
	_, total, err = h.evaluation.Criteria(h.ctx, ev.ID)
	require.NoError(t, err)
	assert.InDelta(t, 40.0, total, 0.0001)
}

func TestCriterionInputAcceptsZeroWeight(t *testing.T) {
	assert.NoError(t, CriterionInput{Description: "Presentación", Weight: 0}.Validate())
	assert.Error(t, CriterionInput{Description: "Presentación", Weight: -1}.Validate())
	assert.Error(t, CriterionInput{Weight: 10}.Validate())
}

func TestScoringAndRanking(t *testing.T) {
	h := newHarness(t)
	ev, admin := h.seedEvent(10, false)

	c1, err := h.evaluation.AddCriterion(h.ctx, admin, ev.ID, CriterionInput{Description: "Originalidad", Weight: 60})
	require.NoError(t, err)
	c2, err := h.evaluation.AddCriterion(h.ctx, admin, ev.ID, CriterionInput{Description: "Claridad", Weight: 40})
	require.NoError(t, err)

	p1, p1Actor := h.enroll(ev, admin, common.KindParticipant, "p1@example.com", "2001")
	p2, _ := h.enroll(ev, admin, common.KindParticipant, "p2@example.com", "2002")
	_, e1 := h.enroll(ev, admin, common.KindEvaluator, "e1@example.com", "3001")
	_, e2 := h.enroll(ev, admin, common.KindEvaluator, "e2@example.com", "3002")

	submit := func(actor account.ActiveRole, participant, crit uuid.UUID, value int) float64 {
		t.Helper()
		agg, err := h.evaluation.Submit(h.ctx, actor, ScoreInput{ParticipantID: participant, CriterionID: crit, Value: value})
		require.NoError(t, err)
		return agg
	}

	submit(e1, p1.ProfileID, c1.ID, 5)
	assert.InDelta(t, 4.6, submit(e1, p1.ProfileID, c2.ID, 4), 0.001)
	submit(e2, p1.ProfileID, c1.ID, 3)
	assert.InDelta(t, 3.8, submit(e2, p1.ProfileID, c2.ID, 3), 0.001)
	submit(e1, p2.ProfileID, c1.ID, 4)
	assert.InDelta(t, 4.0, submit(e1, p2.ProfileID, c2.ID, 4), 0.001)

	_, err = h.evaluation.Submit(h.ctx, e1, ScoreInput{ParticipantID: p1.ProfileID, CriterionID: c1.ID, Value: 6})
	assert.ErrorIs(t, err, scoring.ErrOutOfRange)
	_, err = h.evaluation.Submit(h.ctx, p1Actor, ScoreInput{ParticipantID: p2.ProfileID, CriterionID: c1.ID, Value: 3})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = h.evaluation.Submit(h.ctx, account.ActiveRole{UserID: admin.UserID, Role: account.RoleEvaluator}, ScoreInput{ParticipantID: p1.ProfileID, CriterionID: c1.ID, Value: 3})
	assert.ErrorIs(t, err, scoring.ErrNotEligible)

	progress, err := h.evaluation.Progress(h.ctx, e2, ev.ID, p2.ProfileID)
	require.NoError(t, err)
	assert.Equal(t, scoring.Progress{Scored: 0, Total: 2}, progress)

	sheet, err := h.evaluation.Sheet(h.ctx, e2, ev.ID)
	require.NoError(t, err)
	require.Len(t, sheet, 2)
	for _, row := range sheet {
		if row.ParticipantID == p1.ProfileID {
			assert.True(t, row.Evaluated)
			require.NotNil(t, row.Weighted)
			assert.InDelta(t, 3.0, *row.Weighted, 0.001)
		} else {
			assert.False(t, row.Evaluated)
			assert.Nil(t, row.Weighted)
		}
	}

	mine, err := h.evaluation.MyScores(h.ctx, p1Actor, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, mine.Evaluators)
	require.NotNil(t, mine.DisplayAverage)
	assert.InDelta(t, 3.8, *mine.DisplayAverage, 0.001)

	standings, err := h.evaluation.Ranking(h.ctx, e1, ev.ID)
	require.NoError(t, err)
	require.Len(t, standings, 2)
	assert.Equal(t, p2.ProfileID, standings[0].ParticipantID)
	assert.Equal(t, 1, standings[0].Rank)
	assert.Equal(t, p1.ProfileID, standings[1].ParticipantID)
	assert.Equal(t, 2, standings[1].Rank)

	_, err = h.evaluation.Ranking(h.ctx, p1Actor, ev.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	breakdown, err := h.evaluation.Breakdown(h.ctx, admin, ev.ID)
	require.NoError(t, err)
	assert.Len(t, breakdown, 2)
}

func TestAssignedEvaluatorsManageCriteria(t *testing.T) {
	h := newHarness(t)
	ev, admin := h.seedEvent(10, false)
	elsewhere, otherAdmin := h.seedEvent(10, false)

	_, e1 := h.enroll(ev, admin, common.KindEvaluator, "e1@example.com", "3001")
	_, outsider := h.enroll(elsewhere, otherAdmin, common.KindEvaluator, "e2@example.com", "3002")

	c, err := h.evaluation.AddCriterion(h.ctx, e1, ev.ID, CriterionInput{Description: "Originalidad", Weight: 60})
	require.NoError(t, err)
	edited, err := h.evaluation.EditCriterion(h.ctx, e1, c.ID, CriterionInput{Description: "Originalidad", Weight: 55})
	require.NoError(t, err)
	assert.InDelta(t, 55.0, edited.Weight, 0.0001)

	_, err = h.evaluation.AddCriterion(h.ctx, outsider, ev.ID, CriterionInput{Description: "Ajeno", Weight: 5})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = h.evaluation.EditCriterion(h.ctx, outsider, c.ID, CriterionInput{Description: "Ajeno", Weight: 5})
	assert.ErrorIs(t, err, ErrForbidden)
	assert.ErrorIs(t, h.evaluation.RemoveCriterion(h.ctx, outsider, c.ID), ErrForbidden)

	require.NoError(t, h.evaluation.RemoveCriterion(h.ctx, e1, c.ID))
	_, total, err := h.evaluation.Criteria(h.ctx, ev.ID)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, total, 0.0001)
}

func TestRankingRequiresApprovedEvaluatorOfTheEvent(t *testing.T) {
	h := newHarness(t)
	ev, admin := h.seedEvent(10, false)
	elsewhere, otherAdmin := h.seedEvent(10, false)

	h.enroll(ev, admin, common.KindParticipant, "p1@example.com", "2001")
	_, assigned := h.enroll(ev, admin, common.KindEvaluator, "e1@example.com", "3001")
	_, outsider := h.enroll(elsewhere, otherAdmin, common.KindEvaluator, "e2@example.com", "3002")

	standings, err := h.evaluation.Ranking(h.ctx, assigned, ev.ID)
	require.NoError(t, err)
	assert.Len(t, standings, 1)

	_, err = h.evaluation.Ranking(h.ctx, outsider, ev.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	pending, err := h.registration.Register(h.ctx, h.withUpload(h.input(ev, "e2@example.com", "3002"), common.KindEvaluator))
	require.NoError(t, err)
	require.Equal(t, enrollment.StatePending, pending.Enrollment.State)
	_, err = h.evaluation.Ranking(h.ctx, outsider, ev.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}
