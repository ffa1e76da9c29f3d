package certificate

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gravadigital/eventsoft-api/internal/domain/common"
)

// Placeholders recognised in certificate bodies, written as **TOKEN**
const (
	PlaceholderName     = "NOMBRE"
	PlaceholderDocument = "DOCUMENTO"
	PlaceholderEvent    = "EVENTO"
	PlaceholderDate     = "FECHA"
	PlaceholderCity     = "CIUDAD"
	PlaceholderVenue    = "LUGAR"
	PlaceholderPosition = "PUESTO"
	PlaceholderScore    = "PUNTUACION"
)

var (
	ErrNotFound     = errors.New("certificate template not found")
	ErrEmptyBody    = errors.New("certificate body is required")
	ErrNoRecipients = errors.New("no recipients for this certificate")
)

// Template is the configured text of one certificate kind for an event
type Template struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	EventID   uuid.UUID `json:"event_id" gorm:"type:uuid;not null;uniqueIndex:idx_certificate_templates_event_kind,priority:1"`
	Kind      Kind      `json:"kind" gorm:"type:varchar(16);not null;uniqueIndex:idx_certificate_templates_event_kind,priority:2"`
	Title     string    `json:"title" gorm:"size:200;not null"`
	Body      string    `json:"body" gorm:"not null"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName overrides the table name used by GORM
func (Template) TableName() string {
	return "certificate_templates"
}

// BeforeCreate sets a UUID before creating the record
func (t *Template) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// DefaultTemplate is used when the event administrator never configured one
func DefaultTemplate(eventID uuid.UUID, kind Kind) *Template {
	t := &Template{EventID: eventID, Kind: kind, Title: "Certificado"}
	switch kind {
	case KindAttendance:
		t.Body = "Se certifica que **NOMBRE**, identificado(a) con documento **DOCUMENTO**, asistió al evento **EVENTO** realizado en **LUGAR**, **CIUDAD**, el **FECHA**."
	case KindParticipation:
		t.Body = "Se certifica que **NOMBRE**, identificado(a) con documento **DOCUMENTO**, participó como expositor(a) en el evento **EVENTO** realizado en **LUGAR**, **CIUDAD**, el **FECHA**."
	case KindEvaluation:
		t.Body = "Se certifica que **NOMBRE**, identificado(a) con documento **DOCUMENTO**, actuó como evaluador(a) en el evento **EVENTO** realizado en **LUGAR**, **CIUDAD**, el **FECHA**."
	case KindAward:
		t.Title = "Reconocimiento"
		t.Body = "Se otorga a **NOMBRE**, identificado(a) con documento **DOCUMENTO**, el puesto **PUESTO** con una puntuación de **PUNTUACION** en el evento **EVENTO**, **CIUDAD**, **FECHA**."
	}
	return t
}

// Validate checks if the template data is valid
func (t *Template) Validate() error {
	if strings.TrimSpace(t.Body) == "" {
		return ErrEmptyBody
	}
	return nil
}

// Fields maps placeholder names to their values
type Fields map[string]string

// Apply replaces every **TOKEN** in text with its field value. Unknown tokens are left untouched.
func Apply(text string, fields Fields) string {
	pairs := make([]string, 0, len(fields)*2)
	for k, v := range fields {
		pairs = append(pairs, "**"+k+"**", v)
	}
	return strings.NewReplacer(pairs...).Replace(text)
}

// Document is a certificate ready to render
type Document struct {
	Title string
	Body  string
}

// Fill builds the document for one recipient
func (t *Template) Fill(fields Fields) Document {
	return Document{
		Title: Apply(t.Title, fields),
		Body:  Apply(t.Body, fields),
	}
}

// Renderer turns a document into a printable file
type Renderer interface {
	Render(doc Document) ([]byte, error)
	ContentType() string
	Extension() string
}

type Repository interface {
	Get(ctx context.Context, eventID uuid.UUID, kind Kind) (*Template, error)
	Save(ctx context.Context, t *Template) error
}

// Kind of certificate
type Kind byte

const (
	KindAttendance Kind = iota + 1
	KindParticipation
	KindEvaluation
	KindAward
)

func (k Kind) String() string {
	switch k {
	case KindAttendance:
		return "attendance"
	case KindParticipation:
		return "participation"
	case KindEvaluation:
		return "evaluation"
	case KindAward:
		return "award"
	default:
		return "unknown"
	}
}

// KindFromString converts a string to a Kind
func KindFromString(s string) (Kind, bool) {
	switch s {
	case "attendance":
		return KindAttendance, true
	case "participation":
		return KindParticipation, true
	case "evaluation":
		return KindEvaluation, true
	case "award":
		return KindAward, true
	default:
		return 0, false
	}
}

// Recipients is the enrollment kind a certificate kind is issued to
func (k Kind) Recipients() common.Kind {
	switch k {
	case KindAttendance:
		return common.KindAttendee
	case KindEvaluation:
		return common.KindEvaluator
	default:
		return common.KindParticipant
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
		return fmt.Errorf("invalid certificate kind: %s", str)
	}
	*k = kind
	return nil
}

// Scan implements the sql.Scanner interface for database deserialization
func (k *Kind) Scan(value any) error {
	str, err := common.ScanString(value)
	if err != nil {
		return fmt.Errorf("cannot scan %T into Kind", value)
	}
	kind, valid := KindFromString(str)
	if !valid {
		return fmt.Errorf("invalid certificate kind value: %s", str)
	}
	*k = kind
	return nil
}

// Value implements the driver.Valuer interface for database serialization
func (k Kind) Value() (driver.Value, error) {
	return k.String(), nil
}
