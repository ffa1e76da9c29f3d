package enrollment

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gravadigital/eventsoft-api/internal/domain/common"
)

func TestPlan(t *testing.T) {
	tests := []struct {
		name string
		kind common.Kind
		from State
		to   State
		want Transition
	}{
		{
			name: "attendee approval consumes capacity",
			kind: common.KindAttendee, from: StatePending, to: StateApproved,
			want: Transition{From: StatePending, To: StateApproved, CapacityDelta: -1, IssueQR: true},
		},
		{
			name: "participant approval leaves capacity",
			kind: common.KindParticipant, from: StatePending, to: StateApproved,
			want: Transition{From: StatePending, To: StateApproved, IssueQR: true},
		},
		{
			name: "re-approval only ensures the QR",
			kind: common.KindAttendee, from: StateApproved, to: StateApproved,
			want: Transition{From: StateApproved, To: StateApproved, IssueQR: true},
		},
		{
			name: "attendee back to pending releases capacity",
			kind: common.KindAttendee, from: StateApproved, to: StatePending,
			want: Transition{From: StateApproved, To: StatePending, CapacityDelta: 1, RevokeQR: true},
		},
		{
			name: "pending to pending is a no-op",
			kind: common.KindEvaluator, from: StatePending, to: StatePending,
			want: Transition{From: StatePending, To: StatePending},
		},
		{
			name: "rejecting an approved attendee releases capacity",
			kind: common.KindAttendee, from: StateApproved, to: StateRejected,
			want: Transition{From: StateApproved, To: StateRejected, CapacityDelta: 1, RevokeQR: true, Delete: true},
		},
		{
			name: "rejecting a pending attendee keeps capacity",
			kind: common.KindAttendee, from: StatePending, to: StateRejected,
			want: Transition{From: StatePending, To: StateRejected, RevokeQR: true, Delete: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Plan(tt.kind, tt.from, tt.to)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPlanRejectsUnknownTransitions(t *testing.T) {
	for _, to := range []State{StatePending, StateApproved, StateRejected} {
		_, err := Plan(common.KindAttendee, StateRejected, to)
		assert.True(t, errors.Is(err, ErrInvalidTransition), "rejected -> %s", to)
	}
}

func TestQRFormats(t *testing.T) {
	eventID := uuid.MustParse("6f1c2f6e-3d0a-4b8e-9d43-3c1b6a2f9e10")
	enrollmentID := uuid.MustParse("0b5e8f1a-7c2d-4e3f-8a9b-1c2d3e4f5a6b")

	assert.Equal(t,
		"attendee:1020|event:6f1c2f6e-3d0a-4b8e-9d43-3c1b6a2f9e10|secret:abc",
		Payload(common.KindAttendee, "1020", eventID, "abc"))
	assert.Equal(t,
		"qr/participant/1020_0b5e8f1a-7c2d-4e3f-8a9b-1c2d3e4f5a6b.png",
		QRObjectKey(common.KindParticipant, "1020", enrollmentID))
}

func TestNewAccessKeyIsRandom(t *testing.T) {
	a, err := NewAccessKey()
	require.NoError(t, err)
	b, err := NewAccessKey()
	require.NoError(t, err)

	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}
