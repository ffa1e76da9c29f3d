package criterion

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MaxTotalWeight is the ceiling for the sum of criterion weights of one event
const MaxTotalWeight = 100.0

// weightEpsilon absorbs float summation noise when comparing against MaxTotalWeight
const weightEpsilon = 1e-9

var (
	ErrNotFound           = errors.New("criterion not found")
	ErrInvalidWeight      = errors.New("weight must be a finite number greater than zero")
	ErrWeightExceeded     = errors.New("the sum of criterion weights cannot exceed 100")
	ErrDescriptionMissing = errors.New("description is required")
)

// Criterion is one weighted evaluation dimension of an event
type Criterion struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	EventID     uuid.UUID `json:"event_id" gorm:"type:uuid;not null;index"`
	Description string    `json:"description" gorm:"not null"`
	Weight      float64   `json:"weight" gorm:"not null"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName overrides the table name used by GORM
func (Criterion) TableName() string {
	return "criteria"
}

// BeforeCreate sets a UUID before creating the record
func (c *Criterion) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// CheckWeight validates a single weight. Zero is allowed: the criterion is graded but adds nothing to the aggregate.
func CheckWeight(weight float64) error {
	if math.IsNaN(weight) || math.IsInf(weight, 0) || weight < 0 {
		return ErrInvalidWeight
	}
	return nil
}

// CheckTotal verifies that adding weight to the existing sum stays within MaxTotalWeight
func CheckTotal(existing, weight float64) error {
	if existing+weight > MaxTotalWeight+weightEpsilon {
		return fmt.Errorf("%w: current %.2f, requested %.2f", ErrWeightExceeded, existing, weight)
	}
	return nil
}

func checkDescription(description string) error {
	if strings.TrimSpace(description) == "" {
		return ErrDescriptionMissing
	}
	return nil
}
