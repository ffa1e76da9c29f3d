package notification

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/gravadigital/eventsoft-api/internal/domain/common"
)

var (
	ErrNoRecipients = errors.New("no recipients selected")
	ErrEmptyMessage = errors.New("subject and body are required")
)

// Notification logs one bulk message sent to enrollees of an event
type Notification struct {
	ID         uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	EventID    uuid.UUID      `json:"event_id" gorm:"type:uuid;not null;index"`
	Kind       common.Kind    `json:"kind" gorm:"type:varchar(16);not null"`
	Subject    string         `json:"subject" gorm:"size:255;not null"`
	Body       string         `json:"body" gorm:"not null"`
	Recipients pq.StringArray `json:"recipients" gorm:"type:text[]"`
	SentCount  int            `json:"sent_count" gorm:"not null;default:0"`
	CreatedAt  time.Time      `json:"created_at" gorm:"autoCreateTime"`
}

// TableName overrides the table name used by GORM
func (Notification) TableName() string {
	return "notifications"
}

// BeforeCreate sets a UUID before creating the record
func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}

type Repository interface {
	Create(ctx context.Context, n *Notification) error
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]*Notification, error)
}
