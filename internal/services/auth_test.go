package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gravadigital/eventsoft-api/internal/domain/account"
	"github.com/gravadigital/eventsoft-api/internal/domain/common"
	"github.com/gravadigital/eventsoft-api/internal/token"
)

func TestLoginWithSingleRole(t *testing.T) {
	h := newHarness(t)
	ev, admin := h.seedEvent(10, false)
	_, attendee := h.enroll(ev, admin, common.KindAttendee, "ana@example.com", "8001")

	session, err := h.auth.Login(h.ctx, LoginInput{Email: "ana@example.com", Password: "secret-password"})
	require.NoError(t, err)
	assert.Equal(t, attendee, session.Active)
	assert.NotEmpty(t, session.Token)

	active, err := h.auth.Authenticate(session.Token)
	require.NoError(t, err)
	assert.Equal(t, attendee, active)

	acc, err := h.auth.Me(h.ctx, active)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", acc.User.Email)

	_, err = h.auth.Authenticate(session.Token + "x")
	assert.ErrorIs(t, err, token.ErrTokenInvalid)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	h := newHarness(t)
	h.seedUser("ana@example.com", "8001", "Ana", "Gómez", true)

	_, err := h.auth.Login(h.ctx, LoginInput{Email: "ana@example.com", Password: "wrong-password"})
	assert.ErrorIs(t, err, account.ErrInvalidPassword)
	_, err = h.auth.Login(h.ctx, LoginInput{Email: "nadie@example.com", Password: "secret-password"})
	assert.ErrorIs(t, err, account.ErrInvalidPassword)

	inactive := &account.User{Email: "luis@example.com", Document: "8002", FirstName: "Luis", LastName: "Pérez"}
	require.NoError(t, inactive.SetPassword("secret-password"))
	require.NoError(t, h.c.Accounts().CreateUser(h.ctx, inactive))
	_, err = h.auth.Login(h.ctx, LoginInput{Email: "luis@example.com", Password: "secret-password"})
	assert.ErrorIs(t, err, account.ErrInactive)
}

func TestLoginRoleSelection(t *testing.T) {
	h := newHarness(t)
	ev, admin := h.seedEvent(10, false)
	h.enroll(ev, admin, common.KindParticipant, "ana@example.com", "8001")

	in := h.input(ev, "ana@example.com", "8001")
	in.Kind = common.KindEvaluator
	in.Upload = &Upload{Filename: "cv.pdf", Data: []byte("%PDF")}
	_, err := h.registration.Register(h.ctx, in)
	require.NoError(t, err)

	_, err = h.auth.Login(h.ctx, LoginInput{Email: "ana@example.com", Password: "secret-password"})
	assert.ErrorIs(t, err, account.ErrRoleSelection)

	session, err := h.auth.Login(h.ctx, LoginInput{Email: "ana@example.com", Password: "secret-password", Role: "evaluator"})
	require.NoError(t, err)
	assert.Equal(t, account.RoleEvaluator, session.Active.Role)
	assert.Len(t, session.Roles, 2)

	_, err = h.auth.Login(h.ctx, LoginInput{Email: "ana@example.com", Password: "secret-password", Role: "superadmin"})
	assert.ErrorIs(t, err, account.ErrRoleNotGranted)
}

func TestAttendeeLoginNeedsApproval(t *testing.T) {
	h := newHarness(t)
	ev, _ := h.seedEvent(10, true)
	h.seedUser("ana@example.com", "8001", "Ana", "Gómez", true)

	in := h.input(ev, "ana@example.com", "8001")
	in.Kind = common.KindAttendee
	in.Upload = &Upload{Filename: "pago.png", Data: []byte("png")}
	_, err := h.registration.Register(h.ctx, in)
	require.NoError(t, err)

	_, err = h.auth.Login(h.ctx, LoginInput{Email: "ana@example.com", Password: "secret-password"})
	assert.ErrorIs(t, err, ErrAttendeeNotApproved)
}
