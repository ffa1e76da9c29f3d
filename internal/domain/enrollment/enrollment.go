package enrollment

import (
	"crypto/rand"
	"database/sql/driver"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gravadigital/eventsoft-api/internal/domain/common"
)

var (
	ErrNotFound          = errors.New("enrollment not found")
	ErrDuplicate         = errors.New("enrollment already exists")
	ErrInvalidTransition = errors.New("invalid enrollment state transition")
)

// Enrollment binds one identity wrapper (attendee, participant or evaluator) to an event
type Enrollment struct {
	ID             uuid.UUID   `json:"id" gorm:"type:uuid;primaryKey"`
	Kind           common.Kind `json:"kind" gorm:"type:varchar(16);not null;uniqueIndex:idx_enrollments_kind_profile_event,priority:1"`
	ProfileID      uuid.UUID   `json:"profile_id" gorm:"type:uuid;not null;uniqueIndex:idx_enrollments_kind_profile_event,priority:2"`
	EventID        uuid.UUID   `json:"event_id" gorm:"type:uuid;not null;index;uniqueIndex:idx_enrollments_kind_profile_event,priority:3"`
	State          State       `json:"state" gorm:"type:varchar(16);not null"`
	Confirmed      bool        `json:"confirmed" gorm:"not null;default:false"`
	DocumentKey    string      `json:"document_key,omitempty" gorm:"size:255"`
	QRKey          string      `json:"qr_key,omitempty" gorm:"size:255"`
	AccessKey      string      `json:"-" gorm:"size:64;not null"`
	AggregateScore *float64    `json:"aggregate_score,omitempty"`
	RegisteredAt   time.Time   `json:"registered_at" gorm:"not null;index"`
	UpdatedAt      time.Time   `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName overrides the table name used by GORM
func (Enrollment) TableName() string {
	return "enrollments"
}

// BeforeCreate sets a UUID and an access key before creating the record
func (e *Enrollment) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.AccessKey == "" {
		key, err := NewAccessKey()
		if err != nil {
			return err
		}
		e.AccessKey = key
	}
	return nil
}

// New creates a pending enrollment registered at now
func New(kind common.Kind, profileID, eventID uuid.UUID, confirmed bool, now time.Time) *Enrollment {
	return &Enrollment{
		ID:           uuid.New(),
		Kind:         kind,
		ProfileID:    profileID,
		EventID:      eventID,
		State:        StatePending,
		Confirmed:    confirmed,
		RegisteredAt: now,
	}
}

// HasQR reports whether a QR image is currently issued
func (e *Enrollment) HasQR() bool {
	return e.QRKey != ""
}

// NewAccessKey returns the random secret embedded in QR payloads
func NewAccessKey() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("enrollment.NewAccessKey -> %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Payload is the text encoded in the QR image of an approved enrollment
func Payload(kind common.Kind, document string, eventID uuid.UUID, secret string) string {
	return fmt.Sprintf("%s:%s|event:%s|secret:%s", kind, document, eventID, secret)
}

// QRObjectKey is where the QR image of an enrollment is stored
func QRObjectKey(kind common.Kind, document string, enrollmentID uuid.UUID) string {
	return fmt.Sprintf("qr/%s/%s_%s.png", kind, document, enrollmentID)
}

// DocumentObjectKey is where a registration support document is stored
func DocumentObjectKey(kind common.Kind, eventID uuid.UUID, document, filename string) string {
	return fmt.Sprintf("documents/%s/%s/%s_%s", kind, eventID, document, filename)
}

// CapacityAdjustment records every capacity change caused by an enrollment transition.
// Applied may differ from Requested when the capacity was already at zero.
type CapacityAdjustment struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	EventID      uuid.UUID `json:"event_id" gorm:"type:uuid;not null;index"`
	EnrollmentID uuid.UUID `json:"enrollment_id" gorm:"type:uuid;not null"`
	Requested    int       `json:"requested" gorm:"not null"`
	Applied      int       `json:"applied" gorm:"not null"`
	Reason       string    `json:"reason" gorm:"size:64;not null"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName overrides the table name used by GORM
func (CapacityAdjustment) TableName() string {
	return "capacity_adjustments"
}

// BeforeCreate sets a UUID before creating the record
func (c *CapacityAdjustment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// State is the approval state of an enrollment
type State byte

const (
	StatePending State = iota + 1
	StateApproved
	StateRejected
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateApproved:
		return "approved"
	case StateRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// StateFromString converts a string to a State
func StateFromString(s string) (State, bool) {
	switch s {
	case "pending":
		return StatePending, true
	case "approved":
		return StateApproved, true
	case "rejected":
		return StateRejected, true
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
