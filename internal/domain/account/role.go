package account

import (
	"database/sql/driver"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/gravadigital/eventsoft-api/internal/domain/common"
)

// Role is a permission set a user can log in with
type Role byte

const (
	RoleSuperadmin Role = iota + 1
	RoleEventAdmin
	RoleAttendee
	RoleParticipant
	RoleEvaluator
)

func (r Role) String() string {
	switch r {
	case RoleSuperadmin:
		return "superadmin"
	case RoleEventAdmin:
		return "event_admin"
	case RoleAttendee:
		return "attendee"
	case RoleParticipant:
		return "participant"
	case RoleEvaluator:
		return "evaluator"
	default:
		return "unknown"
	}
}

// RoleFromString converts a string to a Role
func RoleFromString(s string) (Role, bool) {
	switch s {
	case "superadmin":
		return RoleSuperadmin, true
	case "event_admin":
		return RoleEventAdmin, true
	case "attendee":
		return RoleAttendee, true
	case "participant":
		return RoleParticipant, true
	case "evaluator":
		return RoleEvaluator, true
	default:
		return 0, false
	}
}

// RoleForKind maps an enrollment kind to the role it grants
func RoleForKind(kind common.Kind) Role {
	switch kind {
	case common.KindAttendee:
		return RoleAttendee
	case common.KindParticipant:
		return RoleParticipant
	case common.KindEvaluator:
		return RoleEvaluator
	default:
		return 0
	}
}

// Kind returns the enrollment kind behind a role, if any
func (r Role) Kind() (common.Kind, bool) {
	switch r {
	case RoleAttendee:
		return common.KindAttendee, true
	case RoleParticipant:
		return common.KindParticipant, true
	case RoleEvaluator:
		return common.KindEvaluator, true
	default:
		return 0, false
	}
}

// MarshalJSON implements the json.Marshaler interface
func (r Role) MarshalJSON() ([]byte, error) {
	return []byte(`"` + r.String() + `"`), nil
}

// UnmarshalJSON implements the json.Unmarshaler interface
func (r *Role) UnmarshalJSON(data []byte) error {
	str := string(data)
	if len(str) >= 2 && str[0] == '"' && str[len(str)-1] == '"' {
		str = str[1 : len(str)-1]
	}

	role, valid := RoleFromString(str)
	if !valid {
		return fmt.Errorf("invalid role: %s", str)
	}
	*r = role
	return nil
}

// Scan implements the sql.Scanner interface for database deserialization
func (r *Role) Scan(value any) error {
	str, err := common.ScanString(value)
	if err != nil {
		return fmt.Errorf("cannot scan %T into Role", value)
	}

	role, valid := RoleFromString(str)
	if !valid {
		return fmt.Errorf("invalid role value: %s", str)
	}
	*r = role
	return nil
}

// Value implements the driver.Valuer interface for database serialization
func (r Role) Value() (driver.Value, error) {
	return r.String(), nil
}

// ActiveRole is the role a user picked for the current session.
// It travels in the request context; nothing mutates it after login.
type ActiveRole struct {
	UserID uuid.UUID `json:"user_id"`
	Role   Role      `json:"role"`
}

// Allows reports whether the active role is one of roles
func (a ActiveRole) Allows(roles ...Role) bool {
	return slices.Contains(roles, a.Role)
}
