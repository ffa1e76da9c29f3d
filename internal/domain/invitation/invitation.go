package invitation

import (
	"context"
	"crypto/rand"
	"database/sql/driver"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gravadigital/eventsoft-api/internal/domain/common"
)

var (
	ErrNotFound               = errors.New("invitation code not found")
	ErrInvitationInactive     = errors.New("invitation code is not active")
	ErrCreationDeadlinePassed = errors.New("the deadline to create events with this invitation has passed")
	ErrQuotaExhausted         = errors.New("the event quota of this invitation is exhausted")
	ErrWrongKind              = errors.New("invitation code cannot be used for this operation")
	ErrInvalidState           = errors.New("invalid invitation state change")
	ErrInvalidQuota           = errors.New("event quota must be at least 1")
	ErrInvalidExpiry          = errors.New("expiration must be in the future")
)

// Code is an administrator invitation. A registration code is redeemed once to create an
// event administrator account, which then holds an event_quota code with the same limits.
type Code struct {
	ID               uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	Code             string     `json:"code" gorm:"size:64;not null;uniqueIndex"`
	Kind             Kind       `json:"kind" gorm:"type:varchar(16);not null"`
	Email            string     `json:"email" gorm:"size:255;not null"`
	EventQuota       int        `json:"event_quota" gorm:"not null"`
	ExpiresAt        time.Time  `json:"expires_at" gorm:"not null"`
	CreationDeadline *time.Time `json:"creation_deadline,omitempty"`
	State            State      `json:"state" gorm:"type:varchar(16);not null"`
	UserID           *uuid.UUID `json:"user_id,omitempty" gorm:"type:uuid;index"`
	UsedAt           *time.Time `json:"used_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt        time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName overrides the table name used by GORM
func (Code) TableName() string {
	return "invitation_codes"
}

// BeforeCreate sets a UUID before creating the record
func (c *Code) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// NewRegistrationCode issues a code that lets email sign up as an event administrator
func NewRegistrationCode(email string, quota int, expiresAt time.Time, deadline *time.Time, now time.Time) (*Code, error) {
	if quota < 1 {
		return nil, ErrInvalidQuota
	}
	if !expiresAt.After(now) {
		return nil, ErrInvalidExpiry
	}

	code, err := GenerateCode()
	if err != nil {
		return nil, err
	}
	return &Code{
		ID:               uuid.New(),
		Code:             code,
		Kind:             KindRegistration,
		Email:            strings.TrimSpace(email),
		EventQuota:       quota,
		ExpiresAt:        expiresAt,
		CreationDeadline: deadline,
		State:            StateActive,
	}, nil
}

// GenerateCode returns a random URL-safe code
func GenerateCode() (string, error) {
	buf := make([]byte, 18)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("invitation.GenerateCode -> %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// EffectiveState reports Expired for active registration codes past their expiration.
// Expiry gates only the sign-up link; a quota grant is limited by its creation deadline.
func (c *Code) EffectiveState(now time.Time) State {
	if c.State == StateActive && c.Kind == KindRegistration && now.After(c.ExpiresAt) {
		return StateExpired
	}
	return c.State
}

// CheckRedeemable verifies that a registration code can still create an account
func (c *Code) CheckRedeemable(now time.Time) error {
	if c.Kind != KindRegistration {
		return ErrWrongKind
	}
	if c.EffectiveState(now) != StateActive {
		return ErrInvitationInactive
	}
	return nil
}

// Redeem marks a registration code as used by userID and returns the event quota grant
// carrying the same limits.
func (c *Code) Redeem(userID uuid.UUID, now time.Time) (*Code, error) {
	if err := c.CheckRedeemable(now); err != nil {
		return nil, err
	}

	code, err := GenerateCode()
	if err != nil {
		return nil, err
	}

	c.State = StateUsed
	c.UsedAt = &now
	c.UserID = &userID

	return &Code{
		ID:               uuid.New(),
		Code:             code,
		Kind:             KindEventQuota,
		Email:            c.Email,
		EventQuota:       c.EventQuota,
		ExpiresAt:        c.ExpiresAt,
		CreationDeadline: c.CreationDeadline,
		State:            StateActive,
		UserID:           &userID,
	}, nil
}

// CheckEventCreation applies, in order, the active, deadline and quota checks of a quota grant
func (c *Code) CheckEventCreation(now time.Time) error {
	if c == nil || c.Kind != KindEventQuota || c.EffectiveState(now) != StateActive {
		return ErrInvitationInactive
	}
	if c.CreationDeadline != nil && now.After(*c.CreationDeadline) {
		return ErrCreationDeadlinePassed
	}
	if c.EventQuota < 1 {
		return ErrQuotaExhausted
	}
	return nil
}

// ConsumeQuota takes one event from the grant
func (c *Code) ConsumeQuota(now time.Time) error {
	if err := c.CheckEventCreation(now); err != nil {
		return err
	}
	c.EventQuota--
	return nil
}

// CanSetState reports whether a superadmin may move the code to next
func (c *Code) CanSetState(next State) bool {
	switch next {
	case StateSuspended:
		return c.State == StateActive
	case StateActive:
		return c.State == StateSuspended
	case StateCancelled:
		return c.State == StateActive || c.State == StateSuspended
	default:
		return false
	}
}

// SetState applies a superadmin state change
func (c *Code) SetState(next State) error {
	if !c.CanSetState(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidState, c.State, next)
	}
	c.State = next
	return nil
}

type Repository interface {
	Create(ctx context.Context, c *Code) error
	GetByID(ctx context.Context, id uuid.UUID) (*Code, error)
	// GetByCode locks the row when the driver supports it
	GetByCode(ctx context.Context, code string) (*Code, error)
	// LatestGrant returns the newest event_quota code bound to userID, locked for update
	LatestGrant(ctx context.Context, userID uuid.UUID) (*Code, error)
	Update(ctx context.Context, c *Code) error
	List(ctx context.Context) ([]*Code, error)
}

// Kind distinguishes account invitations from event quota grants
type Kind byte

const (
	KindRegistration Kind = iota + 1
	KindEventQuota
)

func (k Kind) String() string {
	switch k {
	case KindRegistration:
		return "registration"
	case KindEventQuota:
		return "event_quota"
	default:
		return "unknown"
	}
}

// KindFromString converts a string to a Kind
func KindFromString(s string) (Kind, bool) {
	switch s {
	case "registration":
		return KindRegistration, true
	case "event_quota":
		return KindEventQuota, true
	default:
		return 0, false
	}
}

// MarshalJSON implements the json.Marshaler interface
func (k Kind) MarshalJSON() ([]byte, error) {
	return []byte(`"` + k.String() + `"`), nil
}

// Scan implements the sql.Scanner interface for database deserialization
func (k *Kind) Scan(value any) error {
	str, err := common.ScanString(value)
	if err != nil {
		return fmt.Errorf("cannot scan %T into Kind", value)
	}
	kind, valid := KindFromString(str)
	if !valid {
		return fmt.Errorf("invalid kind value: %s", str)
	}
	*k = kind
	return nil
}

// Value implements the driver.Valuer interface for database serialization
func (k Kind) Value() (driver.Value, error) {
	return k.String(), nil
}

// State of an invitation code
type State byte

const (
	StateActive State = iota + 1
	StateUsed
	StateExpired
	StateSuspended
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateUsed:
		return "used"
	case StateExpired:
		return "expired"
	case StateSuspended:
		return "suspended"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// StateFromString converts a string to a State
func StateFromString(s string) (State, bool) {
	switch s {
	case "active":
		return StateActive, true
	case "used":
		return StateUsed, true
	case "expired":
		return StateExpired, true
	case "suspended":
		return StateSuspended, true
	case "cancelled":
		return StateCancelled, true
	default:
		return 0, false
	}
}

// MarshalJSON implements the json.Marshaler interface
func (s State) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON implements the json.Unmarshaler interface
func (s *State) UnmarshalJSON(data []byte) error {
	str := string(data)
	if len(str) >= 2 && str[0] == '"' && str[len(str)-1] == '"' {
		str = str[1 : len(str)-1]
	}

	state, valid := StateFromString(str)
	if !valid {
		return fmt.Errorf("invalid state: %s", str)
	}
	*s = state
	return nil
}

// Scan implements the sql.Scanner interface for database deserialization
func (s *State) Scan(value any) error {
	str, err := common.ScanString(value)
	if err != nil {
		return fmt.Errorf("cannot scan %T into State", value)
	}
	state, valid := StateFromString(str)
	if !valid {
		return fmt.Errorf("invalid state value: %s", str)
	}
	*s = state
	return nil
}

// Value implements the driver.Valuer interface for database serialization
func (s State) Value() (driver.Value, error) {
	return s.String(), nil
}
