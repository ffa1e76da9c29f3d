package enrollment

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/gravadigital/eventsoft-api/internal/domain/common"
	"github.com/gravadigital/eventsoft-api/internal/logger"
)

// Effects collects the work that must happen outside the database transaction.
// Blobs in stored are removed on Abort, blobs in revoked are removed on Commit,
// notices are sent on Commit.
type Effects struct {
	stored  []string
	revoked []string
	notices []StateNotice
}

// Notices returns the notifications queued so far
func (fx *Effects) Notices() []StateNotice {
	return fx.notices
}

// TakeNotices removes the queued notices so the caller can deliver them itself
func (fx *Effects) TakeNotices() []StateNotice {
	out := fx.notices
	fx.notices = nil
	return out
}

// Deps groups the collaborators of a Machine
type Deps struct {
	UnitOfWork  common.UnitOfWork
	Enrollments Repository
	Events      EventStore
	Accounts    AccountStore
	Orphans     *OrphanCollector
	QR          QREncoder
	Blobs       BlobStore
	Notifier    Notifier
}

// Machine applies enrollment state transitions with their capacity, QR and cleanup effects
type Machine struct {
	uow         common.UnitOfWork
	enrollments Repository
	events      EventStore
	accounts    AccountStore
	orphans     *OrphanCollector
	qr          QREncoder
	blobs       BlobStore
	notifier    Notifier
	log         *log.Logger
}

func NewMachine(deps Deps) *Machine {
	return &Machine{
		uow:         deps.UnitOfWork,
		enrollments: deps.Enrollments,
		events:      deps.Events,
		accounts:    deps.Accounts,
		orphans:     deps.Orphans,
		qr:          deps.QR,
		blobs:       deps.Blobs,
		notifier:    deps.Notifier,
		log:         logger.Service("enrollment_machine"),
	}
}

// Transition moves an enrollment to state in a single transaction
func (m *Machine) Transition(ctx context.Context, id uuid.UUID, to State) (*Enrollment, error) {
	m.log.Debug("Transitioning enrollment", "enrollment_id", id, "to", to)

	fx := &Effects{}
	var result *Enrollment
	err := m.uow.WithTx(ctx, func(ctx context.Context) error {
		e, err := m.Apply(ctx, fx, id, to, "")
		result = e
		return err
	})
	if err != nil {
		m.Abort(ctx, fx)
		m.log.Error("Enrollment transition failed", "enrollment_id", id, "to", to, "error", err)
		return nil, err
	}

	m.Commit(ctx, fx)
	m.log.Info("Enrollment transitioned", "enrollment_id", id, "to", to)
	return result, nil
}

// Apply performs the transition inside the caller's transaction. secret overrides the
// enrollment access key in a newly issued QR payload when not empty.
// The returned enrollment reflects the final row, or the deleted row on rejection.
func (m *Machine) Apply(ctx context.Context, fx *Effects, id uuid.UUID, to State, secret string) (*Enrollment, error) {
	e, err := m.enrollments.GetForUpdate(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("Machine.Apply -> %w", err)
	}

	plan, err := Plan(e.Kind, e.State, to)
	if err != nil {
		return nil, err
	}

	ev, err := m.events.GetForUpdate(ctx, e.EventID)
	if err != nil {
		return nil, fmt.Errorf("Machine.Apply -> %w", err)
	}
	user, err := m.accounts.GetUserByProfile(ctx, e.ProfileID)
	if err != nil {
		return nil, fmt.Errorf("Machine.Apply -> %w", err)
	}

	if plan.CapacityDelta != 0 {
		applied := ev.AdjustCapacity(plan.CapacityDelta)
		if applied != 0 {
			if err := m.events.UpdateCapacity(ctx, ev.ID, ev.Capacity); err != nil {
				return nil, fmt.Errorf("Machine.Apply -> %w", err)
			}
		}
		adj := &CapacityAdjustment{
			EventID:      ev.ID,
			EnrollmentID: e.ID,
			Requested:    plan.CapacityDelta,
			Applied:      applied,
			Reason:       plan.Reason(),
		}
		if err := m.enrollments.RecordCapacity(ctx, adj); err != nil {
			return nil, fmt.Errorf("Machine.Apply -> %w", err)
		}
	}

	var png []byte
	if plan.IssueQR && !e.HasQR() {
		if secret == "" {
			secret = e.AccessKey
		}
		png, err = m.qr.Encode(Payload(e.Kind, user.Document, ev.ID, secret))
		if err != nil {
			return nil, fmt.Errorf("Machine.Apply -> %w", err)
		}
		key := QRObjectKey(e.Kind, user.Document, e.ID)
		if err := m.blobs.Put(ctx, key, png, "image/png"); err != nil {
			return nil, fmt.Errorf("Machine.Apply -> %w", err)
		}
		fx.stored = append(fx.stored, key)
		e.QRKey = key
	}

	if plan.RevokeQR && e.HasQR() {
		fx.revoked = append(fx.revoked, e.QRKey)
		e.QRKey = ""
	}

	e.State = to
	if plan.Delete {
		if err := m.enrollments.Delete(ctx, e.ID); err != nil {
			return nil, fmt.Errorf("Machine.Apply -> %w", err)
		}
		if _, err := m.orphans.Collect(ctx, e.ProfileID, PolicyRejection); err != nil {
			return nil, fmt.Errorf("Machine.Apply -> %w", err)
		}
	} else if err := m.enrollments.Update(ctx, e); err != nil {
		return nil, fmt.Errorf("Machine.Apply -> %w", err)
	}

	if plan.Changed() {
		fx.notices = append(fx.notices, StateNotice{
			Email:     user.Email,
			FullName:  user.FullName(),
			Kind:      e.Kind,
			EventID:   ev.ID,
			EventName: ev.Name,
			State:     to,
			QRPNG:     png,
		})
	}

	return e, nil
}

// Commit removes revoked QR blobs and sends queued notices. Errors are logged only.
func (m *Machine) Commit(ctx context.Context, fx *Effects) {
	for _, key := range fx.revoked {
		if err := m.blobs.Delete(ctx, key); err != nil {
			m.log.Warn("Failed to delete revoked QR", "key", key, "error", err)
		}
	}
	for _, n := range fx.notices {
		if m.notifier == nil {
			break
		}
		if err := m.notifier.StateChanged(ctx, n); err != nil {
			m.log.Warn("Failed to notify state change", "email", n.Email, "state", n.State, "error", err)
		}
	}
}

// Abort removes QR blobs written by a transaction that did not commit
func (m *Machine) Abort(ctx context.Context, fx *Effects) {
	for _, key := range fx.stored {
		if err := m.blobs.Delete(ctx, key); err != nil {
			m.log.Warn("Failed to delete orphaned QR", "key", key, "error", err)
		}
	}
}
