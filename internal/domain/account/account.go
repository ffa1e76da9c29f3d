package account

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/gravadigital/eventsoft-api/internal/domain/common"
)

var (
	ErrNotFound         = errors.New("account not found")
	ErrDuplicate        = errors.New("account already exists")
	ErrIdentityMismatch = errors.New("the submitted data does not match the registered user")
	ErrInvalidPassword  = errors.New("invalid email or password")
	ErrInactive         = errors.New("account is not active")
	ErrRoleNotGranted   = errors.New("account does not hold the requested role")
	ErrRoleSelection    = errors.New("account holds several roles, one must be selected")
)

// GeneratedPasswordLen is the length of passwords issued on registration confirmation
const GeneratedPasswordLen = 10

const passwordAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// User is the login account behind every identity wrapper
type User struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Email        string    `json:"email" gorm:"size:255;not null;uniqueIndex"`
	Document     string    `json:"document" gorm:"size:64;not null;uniqueIndex"`
	FirstName    string    `json:"first_name" gorm:"size:120;not null"`
	LastName     string    `json:"last_name" gorm:"size:120;not null"`
	Phone        string    `json:"phone" gorm:"size:40"`
	PasswordHash string    `json:"-" gorm:"not null"`
	Active       bool      `json:"active" gorm:"not null;default:false"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName overrides the table name used by GORM
func (User) TableName() string {
	return "users"
}

// BeforeCreate sets a UUID before creating the record
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// FullName joins first and last name
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// MatchesIdentity reports whether the submitted identity data is the one on file.
// Registration refuses to reuse an account when any of the four fields differ.
func (u *User) MatchesIdentity(email, document, firstName, lastName string) bool {
	return strings.EqualFold(strings.TrimSpace(u.Email), strings.TrimSpace(email)) &&
		strings.TrimSpace(u.Document) == strings.TrimSpace(document) &&
		strings.EqualFold(strings.TrimSpace(u.FirstName), strings.TrimSpace(firstName)) &&
		strings.EqualFold(strings.TrimSpace(u.LastName), strings.TrimSpace(lastName))
}

// SetPassword stores a bcrypt hash of the plain password
func (u *User) SetPassword(plain string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("account.SetPassword -> %w", err)
	}
	u.PasswordHash = string(hash)
	return nil
}

// CheckPassword compares a plain password against the stored hash
func (u *User) CheckPassword(plain string) bool {
	if u.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(plain)) == nil
}

// Profile is the identity wrapper binding a user to one enrollment kind
type Profile struct {
	ID        uuid.UUID   `json:"id" gorm:"type:uuid;primaryKey"`
	Kind      common.Kind `json:"kind" gorm:"type:varchar(16);not null;uniqueIndex:idx_profiles_kind_user,priority:1"`
	UserID    uuid.UUID   `json:"user_id" gorm:"type:uuid;not null;uniqueIndex:idx_profiles_kind_user,priority:2"`
	CreatedAt time.Time   `json:"created_at" gorm:"autoCreateTime"`
}

// TableName overrides the table name used by GORM
func (Profile) TableName() string {
	return "profiles"
}

// BeforeCreate sets a UUID before creating the record
func (p *Profile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// RoleBinding grants a role to a user
type RoleBinding struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;not null;uniqueIndex:idx_role_bindings_user_role,priority:1"`
	Role      Role      `json:"role" gorm:"type:varchar(24);not null;uniqueIndex:idx_role_bindings_user_role,priority:2"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName overrides the table name used by GORM
func (RoleBinding) TableName() string {
	return "role_bindings"
}

// BeforeCreate sets a UUID before creating the record
func (rb *RoleBinding) BeforeCreate(tx *gorm.DB) error {
	if rb.ID == uuid.Nil {
		rb.ID = uuid.New()
	}
	return nil
}

// Account aggregates a user with explicit references to its identity wrappers
type Account struct {
	User          *User      `json:"user"`
	AttendeeID    *uuid.UUID `json:"attendee_id,omitempty"`
	ParticipantID *uuid.UUID `json:"participant_id,omitempty"`
	EvaluatorID   *uuid.UUID `json:"evaluator_id,omitempty"`
	Roles         []Role     `json:"roles"`
}

// NewAccount builds the aggregate from its stored parts
func NewAccount(user *User, profiles []*Profile, bindings []*RoleBinding) *Account {
	acc := &Account{User: user}
	for _, p := range profiles {
		id := p.ID
		switch p.Kind {
		case common.KindAttendee:
			acc.AttendeeID = &id
		case common.KindParticipant:
			acc.ParticipantID = &id
		case common.KindEvaluator:
			acc.EvaluatorID = &id
		}
	}
	for _, b := range bindings {
		acc.Roles = append(acc.Roles, b.Role)
	}
	return acc
}

// ProfileID returns the identity wrapper id for kind, nil when absent
func (a *Account) ProfileID(kind common.Kind) *uuid.UUID {
	switch kind {
	case common.KindAttendee:
		return a.AttendeeID
	case common.KindParticipant:
		return a.ParticipantID
	case common.KindEvaluator:
		return a.EvaluatorID
	default:
		return nil
	}
}

// HasRole reports whether the account is bound to role
func (a *Account) HasRole(role Role) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// GeneratePassword returns a random alphanumeric password of length n
func GeneratePassword(n int) (string, error) {
	var sb strings.Builder
	limit := big.NewInt(int64(len(passwordAlphabet)))
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("account.GeneratePassword -> %w", err)
		}
		sb.WriteByte(passwordAlphabet[idx.Int64()])
	}
	return sb.String(), nil
}
