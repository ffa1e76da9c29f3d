package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrTokenInvalid = errors.New("token is invalid or expired")

// Status of a decoded confirmation token
type Status byte

const (
	// StatusValid tokens are within the confirmation window
	StatusValid Status = iota + 1
	// StatusStale tokens missed the confirmation window but are still retained for cleanup
	StatusStale
)

func (s Status) String() string {
	switch s {
	case StatusValid:
		return "valid"
	case StatusStale:
		return "stale"
	default:
		return "unknown"
	}
}

// Confirmation identifies the pending registration a confirmation link finalizes
type Confirmation struct {
	Email    string    `json:"email"`
	EventID  uuid.UUID `json:"event_id"`
	Role     string    `json:"role"`
	IssuedAt time.Time `json:"-"`
}

type confirmationClaims struct {
	Email   string `json:"email"`
	EventID string `json:"event_id"`
	Role    string `json:"role"`
	jwt.RegisteredClaims
}

// Confirmations signs and verifies HS256 confirmation tokens.
// A token is fully valid for the confirm window and remains decodable until the retention window ends.
type Confirmations struct {
	secret    []byte
	confirm   time.Duration
	retention time.Duration
	now       func() time.Time
}

func NewConfirmations(secret string, confirm, retention time.Duration) *Confirmations {
	if retention < confirm {
		retention = confirm
	}
	return &Confirmations{
		secret:    []byte(secret),
		confirm:   confirm,
		retention: retention,
		now:       time.Now,
	}
}

// WithClock replaces the time source
func (c *Confirmations) WithClock(now func() time.Time) *Confirmations {
	c.now = now
	return c
}

// Window is how long a token stays fully valid
func (c *Confirmations) Window() time.Duration {
	return c.confirm
}

// Issue signs a token for a pending registration
func (c *Confirmations) Issue(email string, eventID uuid.UUID, role string) (string, error) {
	issued := c.now().Truncate(time.Second)
	claims := confirmationClaims{
		Email:   email,
		EventID: eventID.String(),
		Role:    role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(issued.Add(c.retention)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("Confirmations.Issue -> %w", err)
	}
	return signed, nil
}

// Parse verifies a token and classifies it by age
func (c *Confirmations) Parse(raw string) (*Confirmation, Status, error) {
	claims := &confirmationClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if claims.IssuedAt == nil {
		return nil, 0, ErrTokenInvalid
	}

	eventID, err := uuid.Parse(claims.EventID)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: bad event id", ErrTokenInvalid)
	}

	out := &Confirmation{
		Email:    claims.Email,
		EventID:  eventID,
		Role:     claims.Role,
		IssuedAt: claims.IssuedAt.Time,
	}

	if c.now().Sub(out.IssuedAt) <= c.confirm {
		return out, StatusValid, nil
	}
	return out, StatusStale, nil
}
