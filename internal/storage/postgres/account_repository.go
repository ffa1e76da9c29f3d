package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gravadigital/eventsoft-api/internal/domain/account"
	"github.com/gravadigital/eventsoft-api/internal/domain/common"
	"github.com/gravadigital/eventsoft-api/internal/logger"
)

// PostgresAccountRepository stores users, their identity wrappers and role bindings
type PostgresAccountRepository struct {
	db  *gorm.DB
	log *log.Logger
}

func NewPostgresAccountRepository(db *gorm.DB) *PostgresAccountRepository {
	return &PostgresAccountRepository{
		db:  db,
		log: logger.Repository("account"),
	}
}

func (r *PostgresAccountRepository) CreateUser(ctx context.Context, user *account.User) error {
	r.log.Debug("Creating user", "email", user.Email)

	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if err := dbFromContext(ctx, r.db).Create(user).Error; err != nil {
		r.log.Error("Failed to create user", "email", user.Email, "error", err)
		return fmt.Errorf("PostgresAccountRepository.CreateUser -> %w", mapError(err, nil, account.ErrDuplicate))
	}

	r.log.Info("User created successfully", "id", user.ID, "email", user.Email)
	return nil
}

func (r *PostgresAccountRepository) UpdateUser(ctx context.Context, user *account.User) error {
	if err := dbFromContext(ctx, r.db).Save(user).Error; err != nil {
		r.log.Error("Failed to update user", "id", user.ID, "error", err)
		return fmt.Errorf("PostgresAccountRepository.UpdateUser -> %w", mapError(err, nil, account.ErrDuplicate))
	}
	return nil
}

func (r *PostgresAccountRepository) GetUser(ctx context.Context, id uuid.UUID) (*account.User, error) {
	var user account.User
	if err := dbFromContext(ctx, r.db).First(&user, "id = ?", id).Error; err != nil {
		return nil, mapError(err, account.ErrNotFound, nil)
	}
	return &user, nil
}

func (r *PostgresAccountRepository) GetUserByEmail(ctx context.Context, email string) (*account.User, error) {
	var user account.User
	err := dbFromContext(ctx, r.db).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&user).Error
	if err != nil {
		return nil, mapError(err, account.ErrNotFound, nil)
	}
	return &user, nil
}

// FindUserByEmailOrDocument returns the first user holding either identifier
func (r *PostgresAccountRepository) FindUserByEmailOrDocument(ctx context.Context, email, document string) (*account.User, error) {
	r.log.Debug("Looking up user", "email", email, "document", document)

	q := dbFromContext(ctx, r.db).Where("email = ?", strings.ToLower(strings.TrimSpace(email)))
	if document = strings.TrimSpace(document); document != "" {
		q = q.Or("document = ?", document)
	}

	var user account.User
	if err := q.Order("created_at").First(&user).Error; err != nil {
		return nil, mapError(err, account.ErrNotFound, nil)
	}
	return &user, nil
}

func (r *PostgresAccountRepository) DeleteUser(ctx context.Context, id uuid.UUID) error {
	if err := dbFromContext(ctx, r.db).Delete(&account.User{}, "id = ?", id).Error; err != nil {
		r.log.Error("Failed to delete user", "id", id, "error", err)
		return fmt.Errorf("PostgresAccountRepository.DeleteUser -> %w", err)
	}
	r.log.Info("User deleted", "id", id)
	return nil
}

func (r *PostgresAccountRepository) GetProfile(ctx context.Context, id uuid.UUID) (*account.Profile, error) {
	var p account.Profile
	if err := dbFromContext(ctx, r.db).First(&p, "id = ?", id).Error; err != nil {
		return nil, mapError(err, account.ErrNotFound, nil)
	}
	return &p, nil
}

func (r *PostgresAccountRepository) GetProfileByUser(ctx context.Context, userID uuid.UUID, kind common.Kind) (*account.Profile, error) {
	var p account.Profile
	err := dbFromContext(ctx, r.db).
		Where("user_id = ? AND kind = ?", userID, kind).
		First(&p).Error
	if err != nil {
		return nil, mapError(err, account.ErrNotFound, nil)
	}
	return &p, nil
}

// EnsureProfile returns the user's profile of kind, creating it when missing
func (r *PostgresAccountRepository) EnsureProfile(ctx context.Context, userID uuid.UUID, kind common.Kind) (*account.Profile, error) {
	p, err := r.GetProfileByUser(ctx, userID, kind)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, account.ErrNotFound) {
		return nil, fmt.Errorf("PostgresAccountRepository.EnsureProfile -> %w", err)
	}

	p = &account.Profile{Kind: kind, UserID: userID}
	if err := dbFromContext(ctx, r.db).Create(p).Error; err != nil {
		r.log.Error("Failed to create profile", "user_id", userID, "kind", kind, "error", err)
		return nil, fmt.Errorf("PostgresAccountRepository.EnsureProfile -> %w", mapError(err, nil, account.ErrDuplicate))
	}
	r.log.Debug("Profile created", "id", p.ID, "kind", kind)
	return p, nil
}

func (r *PostgresAccountRepository) GetUserByProfile(ctx context.Context, profileID uuid.UUID) (*account.User, error) {
	var user account.User
	err := dbFromContext(ctx, r.db).
		Joins("JOIN profiles ON profiles.user_id = users.id").
		Where("profiles.id = ?", profileID).
		First(&user).Error
	if err != nil {
		return nil, mapError(err, account.ErrNotFound, nil)
	}
	return &user, nil
}

func (r *PostgresAccountRepository) CountProfiles(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	err := dbFromContext(ctx, r.db).Model(&account.Profile{}).Where("user_id = ?", userID).Count(&n).Error
	return n, err
}

func (r *PostgresAccountRepository) DeleteProfile(ctx context.Context, id uuid.UUID) error {
	if err := dbFromContext(ctx, r.db).Delete(&account.Profile{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("PostgresAccountRepository.DeleteProfile -> %w", err)
	}
	r.log.Debug("Profile deleted", "id", id)
	return nil
}

// EnsureRoleBinding grants role to the user unless it already holds it
func (r *PostgresAccountRepository) EnsureRoleBinding(ctx context.Context, userID uuid.UUID, role account.Role) error {
	db := dbFromContext(ctx, r.db)

	var n int64
	if err := db.Model(&account.RoleBinding{}).Where("user_id = ? AND role = ?", userID, role).Count(&n).Error; err != nil {
		return fmt.Errorf("PostgresAccountRepository.EnsureRoleBinding -> %w", err)
	}
	if n > 0 {
		return nil
	}

	if err := db.Create(&account.RoleBinding{UserID: userID, Role: role}).Error; err != nil {
		return fmt.Errorf("PostgresAccountRepository.EnsureRoleBinding -> %w", mapError(err, nil, account.ErrDuplicate))
	}
	r.log.Debug("Role granted", "user_id", userID, "role", role)
	return nil
}

func (r *PostgresAccountRepository) CountRoleBindings(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	err := dbFromContext(ctx, r.db).Model(&account.RoleBinding{}).Where("user_id = ?", userID).Count(&n).Error
	return n, err
}

func (r *PostgresAccountRepository) DeleteRoleBinding(ctx context.Context, userID uuid.UUID, role account.Role) error {
	err := dbFromContext(ctx, r.db).
		Where("user_id = ? AND role = ?", userID, role).
		Delete(&account.RoleBinding{}).Error
	if err != nil {
		return fmt.Errorf("PostgresAccountRepository.DeleteRoleBinding -> %w", err)
	}
	return nil
}

// GetAccount loads the user with its profiles and role bindings
func (r *PostgresAccountRepository) GetAccount(ctx context.Context, userID uuid.UUID) (*account.Account, error) {
	user, err := r.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	db := dbFromContext(ctx, r.db)
	var profiles []*account.Profile
	if err := db.Where("user_id = ?", userID).Find(&profiles).Error; err != nil {
		return nil, fmt.Errorf("PostgresAccountRepository.GetAccount -> %w", err)
	}
	var bindings []*account.RoleBinding
	if err := db.Where("user_id = ?", userID).Order("role").Find(&bindings).Error; err != nil {
		return nil, fmt.Errorf("PostgresAccountRepository.GetAccount -> %w", err)
	}

	return account.NewAccount(user, profiles, bindings), nil
}

func (r *PostgresAccountRepository) ListUsersByRole(ctx context.Context, role account.Role) ([]*account.User, error) {
	var users []*account.User
	err := dbFromContext(ctx, r.db).
		Joins("JOIN role_bindings ON role_bindings.user_id = users.id").
		Where("role_bindings.role = ?", role).
		Order("users.email").
		Find(&users).Error
	if err != nil {
		r.log.Error("Failed to list users by role", "role", role, "error", err)
		return nil, fmt.Errorf("PostgresAccountRepository.ListUsersByRole -> %w", err)
	}
	return users, nil
}
