package enrollment

import (
	"fmt"

	"github.com/gravadigital/eventsoft-api/internal/domain/common"
)

// Transition is the set of side effects a state change requires
type Transition struct {
	From          State
	To            State
	CapacityDelta int
	IssueQR       bool
	RevokeQR      bool
	Delete        bool
}

// Changed reports whether the stored state moves
func (t Transition) Changed() bool {
	return t.From != t.To
}

// Reason labels the capacity ledger entry
func (t Transition) Reason() string {
	return t.From.String() + "->" + t.To.String()
}

// Plan computes the effects of moving an enrollment of kind from one state to another.
// Only attendee enrollments consume event capacity.
func Plan(kind common.Kind, from, to State) (Transition, error) {
	t := Transition{From: from, To: to}
	attendee := kind == common.KindAttendee

	switch {
	case from == StatePending && to == StateApproved:
		if attendee {
			t.CapacityDelta = -1
		}
		t.IssueQR = true
	case from == StateApproved && to == StateApproved:
		t.IssueQR = true
	case from == StateApproved && to == StatePending:
		if attendee {
			t.CapacityDelta = 1
		}
		t.RevokeQR = true
	case from == StatePending && to == StatePending:
	case (from == StatePending || from == StateApproved) && to == StateRejected:
		if attendee && from == StateApproved {
			t.CapacityDelta = 1
		}
		t.RevokeQR = true
		t.Delete = true
	default:
		return Transition{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}

	return t, nil
}
