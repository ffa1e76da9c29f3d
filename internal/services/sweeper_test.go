package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gravadigital/eventsoft-api/internal/domain/account"
	"github.com/gravadigital/eventsoft-api/internal/domain/common"
	"github.com/gravadigital/eventsoft-api/internal/domain/enrollment"
)

func TestSweepRemovesOnlyStaleUnconfirmedRegistrations(t *testing.T) {
	h := newHarness(t)
	ev, _ := h.seedEvent(10, false)

	stale := h.input(ev, "stale@example.com", "1111")
	stale.Kind = common.KindParticipant
	stale.Upload = &Upload{Filename: "ponencia.pdf", Data: []byte("%PDF")}
	staleRes, err := h.registration.Register(h.ctx, stale)
	require.NoError(t, err)

	h.clock.advance(25 * time.Hour)

	fresh := h.input(ev, "fresh@example.com", "2222")
	fresh.Kind = common.KindAttendee
	freshRes, err := h.registration.Register(h.ctx, fresh)
	require.NoError(t, err)

	h.seedUser("active@example.com", "3333", "Ana", "Gómez", true)
	active := h.input(ev, "active@example.com", "3333")
	active.Kind = common.KindEvaluator
	active.Upload = &Upload{Filename: "cv.pdf", Data: []byte("%PDF")}
	_, err = h.registration.Register(h.ctx, active)
	require.NoError(t, err)

	removed, err := h.sweeper.Sweep(h.ctx, h.clock.now())
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = h.c.Enrollments().GetByID(h.ctx, staleRes.Enrollment.ID)
	assert.ErrorIs(t, err, enrollment.ErrNotFound)
	_, err = h.c.Accounts().GetUserByEmail(h.ctx, "stale@example.com")
	assert.ErrorIs(t, err, account.ErrNotFound)
	ok, err := h.store.Exists(h.ctx, staleRes.Enrollment.DocumentKey)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = h.c.Enrollments().GetByID(h.ctx, freshRes.Enrollment.ID)
	assert.NoError(t, err)

	again, err := h.sweeper.Sweep(h.ctx, h.clock.now())
	require.NoError(t, err)
	assert.Zero(t, again)
}

func TestRunStopsWithContext(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(h.ctx)

	done := make(chan struct{})
	go func() {
		h.sweeper.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("sweeper did not stop")
	}
}
