package invitation

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

func issued(t *testing.T, quota int, deadline *time.Time) *Code {
	t.Helper()
	c, err := NewRegistrationCode("admin@example.com", quota, now.Add(72*time.Hour), deadline, now)
	require.NoError(t, err)
	return c
}

func TestNewRegistrationCodeValidates(t *testing.T) {
	_, err := NewRegistrationCode("a@example.com", 0, now.Add(time.Hour), nil, now)
	assert.ErrorIs(t, err, ErrInvalidQuota)

	_, err = NewRegistrationCode("a@example.com", 1, now, nil, now)
	assert.ErrorIs(t, err, ErrInvalidExpiry)

	c := issued(t, 2, nil)
	assert.Equal(t, KindRegistration, c.Kind)
	assert.Equal(t, StateActive, c.State)
	assert.Len(t, c.Code, 24)
}

func TestRedeemGrantsQuotaOnce(t *testing.T) {
	deadline := now.Add(24 * time.Hour)
	c := issued(t, 3, &deadline)
	userID := uuid.New()

	grant, err := c.Redeem(userID, now)
	require.NoError(t, err)

	assert.Equal(t, StateUsed, c.State)
	require.NotNil(t, c.UserID)
	assert.Equal(t, userID, *c.UserID)
	assert.Equal(t, KindEventQuota, grant.Kind)
	assert.Equal(t, 3, grant.EventQuota)
	assert.Equal(t, c.ExpiresAt, grant.ExpiresAt)
	assert.Equal(t, &deadline, grant.CreationDeadline)
	assert.NotEqual(t, c.Code, grant.Code)

	_, err = c.Redeem(uuid.New(), now)
	assert.ErrorIs(t, err, ErrInvitationInactive)

	_, err = grant.Redeem(uuid.New(), now)
	assert.ErrorIs(t, err, ErrWrongKind)
}

func TestExpiredCodeIsNotRedeemable(t *testing.T) {
	c := issued(t, 1, nil)

	_, err := c.Redeem(uuid.New(), now.Add(73*time.Hour))

	assert.ErrorIs(t, err, ErrInvitationInactive)
	assert.Equal(t, StateExpired, c.EffectiveState(now.Add(73*time.Hour)))
}

func TestQuotaScenario(t *testing.T) {
	grant, err := issued(t, 1, nil).Redeem(uuid.New(), now)
	require.NoError(t, err)

	require.NoError(t, grant.ConsumeQuota(now))
	assert.Equal(t, 0, grant.EventQuota)

	err = grant.ConsumeQuota(now)
	assert.True(t, errors.Is(err, ErrQuotaExhausted))
	assert.Equal(t, 0, grant.EventQuota)
}

func TestCheckEventCreationOrder(t *testing.T) {
	deadline := now.Add(-time.Hour)
	grant, err := issued(t, 1, &deadline).Redeem(uuid.New(), now.Add(-2*time.Hour))
	require.NoError(t, err)
	grant.EventQuota = 0

	// deadline is checked before quota
	assert.ErrorIs(t, grant.CheckEventCreation(now), ErrCreationDeadlinePassed)

	// an inactive grant fails before anything else
	grant.State = StateSuspended
	assert.ErrorIs(t, grant.CheckEventCreation(now), ErrInvitationInactive)

	var missing *Code
	assert.ErrorIs(t, missing.CheckEventCreation(now), ErrInvitationInactive)
}

func TestGrantOutlivesLinkExpiry(t *testing.T) {
	deadline := now.Add(30 * 24 * time.Hour)
	c, err := NewRegistrationCode("admin@example.com", 3, now.Add(48*time.Hour), &deadline, now)
	require.NoError(t, err)
	grant, err := c.Redeem(uuid.New(), now)
	require.NoError(t, err)

	day5 := now.Add(5 * 24 * time.Hour)
	assert.Equal(t, StateActive, grant.EffectiveState(day5))
	require.NoError(t, grant.ConsumeQuota(day5))
	assert.Equal(t, 2, grant.EventQuota)

	assert.ErrorIs(t, grant.CheckEventCreation(deadline.Add(time.Minute)), ErrCreationDeadlinePassed)
}

func TestSetState(t *testing.T) {
	c := issued(t, 1, nil)

	require.NoError(t, c.SetState(StateSuspended))
	require.NoError(t, c.SetState(StateActive))
	require.NoError(t, c.SetState(StateCancelled))
	assert.ErrorIs(t, c.SetState(StateActive), ErrInvalidState)
	assert.ErrorIs(t, c.SetState(StateUsed), ErrInvalidState)
}
