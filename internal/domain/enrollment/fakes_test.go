package enrollment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/gravadigital/eventsoft-api/internal/domain/account"
	"github.com/gravadigital/eventsoft-api/internal/domain/common"
	"github.com/gravadigital/eventsoft-api/internal/domain/event"
)

type fakeUoW struct{}

func (fakeUoW) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeEnrollments struct {
	rows        map[uuid.UUID]*Enrollment
	adjustments []*CapacityAdjustment
	failUpdate  error
}

func newFakeEnrollments() *fakeEnrollments {
	return &fakeEnrollments{rows: map[uuid.UUID]*Enrollment{}}
}

func (f *fakeEnrollments) Create(_ context.Context, e *Enrollment) error {
	cp := *e
	f.rows[e.ID] = &cp
	return nil
}

func (f *fakeEnrollments) GetByID(_ context.Context, id uuid.UUID) (*Enrollment, error) {
	e, ok := f.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (f *fakeEnrollments) GetForUpdate(ctx context.Context, id uuid.UUID) (*Enrollment, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeEnrollments) Find(_ context.Context, kind common.Kind, profileID, eventID uuid.UUID) (*Enrollment, error) {
	for _, e := range f.rows {
		if e.Kind == kind && e.ProfileID == profileID && e.EventID == eventID {
			cp := *e
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakeEnrollments) Update(_ context.Context, e *Enrollment) error {
	if f.failUpdate != nil {
		return f.failUpdate
	}
	cp := *e
	f.rows[e.ID] = &cp
	return nil
}

func (f *fakeEnrollments) Delete(_ context.Context, id uuid.UUID) error {
	delete(f.rows, id)
	return nil
}

func (f *fakeEnrollments) CountByProfile(_ context.Context, profileID uuid.UUID) (int64, error) {
	var n int64
	for _, e := range f.rows {
		if e.ProfileID == profileID {
			n++
		}
	}
	return n, nil
}

func (f *fakeEnrollments) ListUnconfirmedBefore(_ context.Context, cutoff time.Time) ([]*Enrollment, error) {
	var out []*Enrollment
	for _, e := range f.rows {
		if !e.Confirmed && e.RegisteredAt.Before(cutoff) {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeEnrollments) List(context.Context, Filter) ([]*Member, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeEnrollments) RecordCapacity(_ context.Context, adj *CapacityAdjustment) error {
	f.adjustments = append(f.adjustments, adj)
	return nil
}

type fakeEvents struct {
	rows map[uuid.UUID]*event.Event
}

func (f *fakeEvents) GetByID(_ context.Context, id uuid.UUID) (*event.Event, error) {
	e, ok := f.rows[id]
	if !ok {
		return nil, event.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (f *fakeEvents) GetForUpdate(ctx context.Context, id uuid.UUID) (*event.Event, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeEvents) UpdateCapacity(_ context.Context, id uuid.UUID, capacity int) error {
	f.rows[id].Capacity = capacity
	return nil
}

type fakeAccounts struct {
	users    map[uuid.UUID]*account.User
	profiles map[uuid.UUID]*account.Profile
	bindings map[uuid.UUID][]account.Role
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{
		users:    map[uuid.UUID]*account.User{},
		profiles: map[uuid.UUID]*account.Profile{},
		bindings: map[uuid.UUID][]account.Role{},
	}
}

func (f *fakeAccounts) add(user *account.User, kind common.Kind) *account.Profile {
	f.users[user.ID] = user
	p := &account.Profile{ID: uuid.New(), Kind: kind, UserID: user.ID}
	f.profiles[p.ID] = p
	f.bindings[user.ID] = append(f.bindings[user.ID], account.RoleForKind(kind))
	return p
}

func (f *fakeAccounts) GetUser(_ context.Context, id uuid.UUID) (*account.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, account.ErrNotFound
	}
	return u, nil
}

func (f *fakeAccounts) GetProfile(_ context.Context, id uuid.UUID) (*account.Profile, error) {
	p, ok := f.profiles[id]
	if !ok {
		return nil, account.ErrNotFound
	}
	return p, nil
}

func (f *fakeAccounts) GetUserByProfile(ctx context.Context, profileID uuid.UUID) (*account.User, error) {
	p, err := f.GetProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}
	return f.GetUser(ctx, p.UserID)
}

func (f *fakeAccounts) CountProfiles(_ context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	for _, p := range f.profiles {
		if p.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (f *fakeAccounts) CountRoleBindings(_ context.Context, userID uuid.UUID) (int64, error) {
	return int64(len(f.bindings[userID])), nil
}

func (f *fakeAccounts) DeleteProfile(_ context.Context, id uuid.UUID) error {
	delete(f.profiles, id)
	return nil
}

func (f *fakeAccounts) DeleteRoleBinding(_ context.Context, userID uuid.UUID, role account.Role) error {
	var kept []account.Role
	for _, r := range f.bindings[userID] {
		if r != role {
			kept = append(kept, r)
		}
	}
	f.bindings[userID] = kept
	return nil
}

func (f *fakeAccounts) DeleteUser(_ context.Context, id uuid.UUID) error {
	delete(f.users, id)
	delete(f.bindings, id)
	return nil
}

type fakeScores struct {
	purged []uuid.UUID
}

func (f *fakeScores) PurgeProfile(_ context.Context, profileID uuid.UUID) error {
	f.purged = append(f.purged, profileID)
	return nil
}

type fakeQR struct {
	payloads []string
}

func (f *fakeQR) Encode(payload string) ([]byte, error) {
	f.payloads = append(f.payloads, payload)
	return []byte("png:" + payload), nil
}

type fakeBlobs struct {
	objects map[string][]byte
	deleted []string
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{objects: map[string][]byte{}}
}

func (f *fakeBlobs) Put(_ context.Context, key string, data []byte, _ string) error {
	f.objects[key] = data
	return nil
}

func (f *fakeBlobs) Delete(_ context.Context, key string) error {
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

type fakeNotifier struct {
	notices []StateNotice
	err     error
}

func (f *fakeNotifier) StateChanged(_ context.Context, n StateNotice) error {
	f.notices = append(f.notices, n)
	return f.err
}
