package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gravadigital/eventsoft-api/internal/domain/account"
	"github.com/gravadigital/eventsoft-api/internal/domain/common"
	"github.com/gravadigital/eventsoft-api/internal/domain/enrollment"
	"github.com/gravadigital/eventsoft-api/internal/logger"
)

// PostgresEnrollmentRepository stores the enrollments of every kind and the capacity ledger
type PostgresEnrollmentRepository struct {
	db  *gorm.DB
	log *log.Logger
}

func NewPostgresEnrollmentRepository(db *gorm.DB) *PostgresEnrollmentRepository {
	return &PostgresEnrollmentRepository{
		db:  db,
		log: logger.Repository("enrollment"),
	}
}

func (r *PostgresEnrollmentRepository) Create(ctx context.Context, e *enrollment.Enrollment) error {
	r.log.Debug("Creating enrollment", "kind", e.Kind, "profile_id", e.ProfileID, "event_id", e.EventID)

	if err := dbFromContext(ctx, r.db).Create(e).Error; err != nil {
		r.log.Error("Failed to create enrollment", "kind", e.Kind, "event_id", e.EventID, "error", err)
		return fmt.Errorf("PostgresEnrollmentRepository.Create -> %w", mapError(err, nil, enrollment.ErrDuplicate))
	}

	r.log.Info("Enrollment created", "id", e.ID, "kind", e.Kind, "state", e.State)
	return nil
}

func (r *PostgresEnrollmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*enrollment.Enrollment, error) {
	var e enrollment.Enrollment
	if err := dbFromContext(ctx, r.db).First(&e, "id = ?", id).Error; err != nil {
		return nil, mapError(err, enrollment.ErrNotFound, nil)
	}
	return &e, nil
}

func (r *PostgresEnrollmentRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*enrollment.Enrollment, error) {
	var e enrollment.Enrollment
	if err := forUpdate(dbFromContext(ctx, r.db)).First(&e, "id = ?", id).Error; err != nil {
		return nil, mapError(err, enrollment.ErrNotFound, nil)
	}
	return &e, nil
}

func (r *PostgresEnrollmentRepository) Find(ctx context.Context, kind common.Kind, profileID, eventID uuid.UUID) (*enrollment.Enrollment, error) {
	return r.find(dbFromContext(ctx, r.db), kind, profileID, eventID)
}

func (r *PostgresEnrollmentRepository) FindForUpdate(ctx context.Context, kind common.Kind, profileID, eventID uuid.UUID) (*enrollment.Enrollment, error) {
	return r.find(forUpdate(dbFromContext(ctx, r.db)), kind, profileID, eventID)
}

func (r *PostgresEnrollmentRepository) find(db *gorm.DB, kind common.Kind, profileID, eventID uuid.UUID) (*enrollment.Enrollment, error) {
	var e enrollment.Enrollment
	err := db.Where("kind = ? AND profile_id = ? AND event_id = ?", kind, profileID, eventID).First(&e).Error
	if err != nil {
		return nil, mapError(err, enrollment.ErrNotFound, nil)
	}
	return &e, nil
}

func (r *PostgresEnrollmentRepository) Update(ctx context.Context, e *enrollment.Enrollment) error {
	if err := dbFromContext(ctx, r.db).Save(e).Error; err != nil {
		r.log.Error("Failed to update enrollment", "id", e.ID, "error", err)
		return fmt.Errorf("PostgresEnrollmentRepository.Update -> %w", err)
	}
	r.log.Debug("Enrollment updated", "id", e.ID, "state", e.State, "confirmed", e.Confirmed)
	return nil
}

func (r *PostgresEnrollmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := dbFromContext(ctx, r.db).Delete(&enrollment.Enrollment{}, "id = ?", id).Error; err != nil {
		r.log.Error("Failed to delete enrollment", "id", id, "error", err)
		return fmt.Errorf("PostgresEnrollmentRepository.Delete -> %w", err)
	}
	r.log.Info("Enrollment deleted", "id", id)
	return nil
}

func (r *PostgresEnrollmentRepository) CountByProfile(ctx context.Context, profileID uuid.UUID) (int64, error) {
	var n int64
	err := dbFromContext(ctx, r.db).Model(&enrollment.Enrollment{}).Where("profile_id = ?", profileID).Count(&n).Error
	return n, err
}

// Count totals the enrollments of kind in an event, optionally restricted to one state
func (r *PostgresEnrollmentRepository) Count(ctx context.Context, eventID uuid.UUID, kind common.Kind, state *enrollment.State) (int64, error) {
	q := dbFromContext(ctx, r.db).Model(&enrollment.Enrollment{}).Where("event_id = ? AND kind = ?", eventID, kind)
	if state != nil {
		q = q.Where("state = ?", *state)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, fmt.Errorf("PostgresEnrollmentRepository.Count -> %w", err)
	}
	return n, nil
}

func (r *PostgresEnrollmentRepository) ListUnconfirmedBefore(ctx context.Context, cutoff time.Time) ([]*enrollment.Enrollment, error) {
	var rows []*enrollment.Enrollment
	err := dbFromContext(ctx, r.db).
		Where("confirmed = ? AND registered_at < ?", false, cutoff).
		Order("registered_at").
		Find(&rows).Error
	if err != nil {
		r.log.Error("Failed to list unconfirmed enrollments", "cutoff", cutoff, "error", err)
		return nil, fmt.Errorf("PostgresEnrollmentRepository.ListUnconfirmedBefore -> %w", err)
	}
	return rows, nil
}

// ListByUser returns the enrollments held by any profile of the user
func (r *PostgresEnrollmentRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*enrollment.Enrollment, error) {
	var rows []*enrollment.Enrollment
	err := dbFromContext(ctx, r.db).
		Joins("JOIN profiles ON profiles.id = enrollments.profile_id").
		Where("profiles.user_id = ?", userID).
		Order("enrollments.registered_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("PostgresEnrollmentRepository.ListByUser -> %w", err)
	}
	return rows, nil
}

type memberRow struct {
	account.User
	ProfileID uuid.UUID
}

func (r *PostgresEnrollmentRepository) List(ctx context.Context, filter enrollment.Filter) ([]*enrollment.Member, error) {
	r.log.Debug("Listing enrollments", "event_id", filter.EventID, "kind", filter.Kind)
	db := dbFromContext(ctx, r.db)

	q := db.Model(&enrollment.Enrollment{}).
		Select("enrollments.*").
		Joins("JOIN profiles ON profiles.id = enrollments.profile_id").
		Joins("JOIN users ON users.id = profiles.user_id").
		Where("enrollments.event_id = ?", filter.EventID)
	if filter.Kind != 0 {
		q = q.Where("enrollments.kind = ?", filter.Kind)
	}
	if filter.State != nil {
		q = q.Where("enrollments.state = ?", *filter.State)
	}
	if filter.Confirmed != nil {
		q = q.Where("enrollments.confirmed = ?", *filter.Confirmed)
	}
	if name := strings.TrimSpace(filter.Name); name != "" {
		q = q.Where("LOWER(users.first_name || ' ' || users.last_name) LIKE ?", "%"+strings.ToLower(name)+"%")
	}
	if doc := strings.TrimSpace(filter.Document); doc != "" {
		q = q.Where("users.document LIKE ?", "%"+doc+"%")
	}
	if email := strings.TrimSpace(filter.Email); email != "" {
		q = q.Where("LOWER(users.email) LIKE ?", "%"+strings.ToLower(email)+"%")
	}

	var rows []*enrollment.Enrollment
	if err := q.Order("enrollments.registered_at, enrollments.id").Find(&rows).Error; err != nil {
		r.log.Error("Failed to list enrollments", "event_id", filter.EventID, "error", err)
		return nil, fmt.Errorf("PostgresEnrollmentRepository.List -> %w", err)
	}
	if len(rows) == 0 {
		return []*enrollment.Member{}, nil
	}

	profileIDs := make([]uuid.UUID, 0, len(rows))
	for _, e := range rows {
		profileIDs = append(profileIDs, e.ProfileID)
	}

	var users []memberRow
	err := db.Table("users").
		Select("users.*, profiles.id AS profile_id").
		Joins("JOIN profiles ON profiles.user_id = users.id").
		Where("profiles.id IN ?", profileIDs).
		Scan(&users).Error
	if err != nil {
		return nil, fmt.Errorf("PostgresEnrollmentRepository.List -> %w", err)
	}

	byProfile := make(map[uuid.UUID]*account.User, len(users))
	for i := range users {
		u := users[i].User
		byProfile[users[i].ProfileID] = &u
	}

	members := make([]*enrollment.Member, 0, len(rows))
	for _, e := range rows {
		members = append(members, &enrollment.Member{Enrollment: e, User: byProfile[e.ProfileID]})
	}
	r.log.Debug("Enrollments listed", "event_id", filter.EventID, "count", len(members))
	return members, nil
}

func (r *PostgresEnrollmentRepository) RecordCapacity(ctx context.Context, adj *enrollment.CapacityAdjustment) error {
	if err := dbFromContext(ctx, r.db).Create(adj).Error; err != nil {
		r.log.Error("Failed to record capacity adjustment", "event_id", adj.EventID, "error", err)
		return fmt.Errorf("PostgresEnrollmentRepository.RecordCapacity -> %w", err)
	}
	return nil
}

// ListCapacityAdjustments returns the ledger of an event, oldest first
func (r *PostgresEnrollmentRepository) ListCapacityAdjustments(ctx context.Context, eventID uuid.UUID) ([]*enrollment.CapacityAdjustment, error) {
	var rows []*enrollment.CapacityAdjustment
	err := dbFromContext(ctx, r.db).Where("event_id = ?", eventID).Order("created_at").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("PostgresEnrollmentRepository.ListCapacityAdjustments -> %w", err)
	}
	return rows, nil
}

func (r *PostgresEnrollmentRepository) SetAggregate(ctx context.Context, enrollmentID uuid.UUID, value float64) error {
	err := dbFromContext(ctx, r.db).
		Model(&enrollment.Enrollment{}).
		Where("id = ?", enrollmentID).
		Update("aggregate_score", value).Error
	if err != nil {
		r.log.Error("Failed to store aggregate", "enrollment_id", enrollmentID, "error", err)
		return fmt.Errorf("PostgresEnrollmentRepository.SetAggregate -> %w", err)
	}
	return nil
}
