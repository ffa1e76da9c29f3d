package common

import (
	"context"
	"database/sql/driver"
	"fmt"
)

// UnitOfWork runs fn inside a single storage transaction. Implementations carry the
// transaction in the context so repositories called from fn join it.
type UnitOfWork interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Kind identifies which identity wrapper (attendee, participant, evaluator) a record belongs to
type Kind byte

const (
	KindAttendee Kind = iota + 1
	KindParticipant
	KindEvaluator
)

// Kinds lists every enrollment kind in display order
func Kinds() []Kind {
	return []Kind{KindAttendee, KindParticipant, KindEvaluator}
}

func (k Kind) String() string {
	switch k {
	case KindAttendee:
		return "attendee"
	case KindParticipant:
		return "participant"
	case KindEvaluator:
		return "evaluator"
	default:
		return "unknown"
	}
}

// KindFromString converts a string to a Kind
func KindFromString(s string) (Kind, bool) {
	switch s {
	case "attendee":
		return KindAttendee, true
	case "participant":
		return KindParticipant, true
	case "evaluator":
		return KindEvaluator, true
	default:
		return 0, false
	}
}

// MarshalJSON implements the json.Marshaler interface
func (k Kind) MarshalJSON() ([]byte, error) {
	return []byte(`"` + k.String() + `"`), nil
}

// UnmarshalJSON implements the json.Unmarshaler interface
func (k *Kind) UnmarshalJSON(data []byte) error {
	str := string(data)
	if len(str) >= 2 && str[0] == '"' && str[len(str)-1] == '"' {
		str = str[1 : len(str)-1]
	}

	kind, valid := KindFromString(str)
	if !valid {
		return fmt.Errorf("invalid kind: %s", str)
	}
	*k = kind
	return nil
}

// Scan implements the sql.Scanner interface for database deserialization
func (k *Kind) Scan(value any) error {
	str, err := ScanString(value)
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

// ScanString normalizes the text representations drivers hand to Scan.
// PostgreSQL returns string, SQLite may return []byte.
func ScanString(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("unsupported type %T", value)
	}
}
