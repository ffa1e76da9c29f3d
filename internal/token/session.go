package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/gravadigital/eventsoft-api/internal/domain/account"
)

type sessionClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Sessions issues the bearer tokens that carry a user's active role
type Sessions struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSessions(secret string, ttl time.Duration) *Sessions {
	return &Sessions{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// WithClock replaces the time source
func (s *Sessions) WithClock(now func() time.Time) *Sessions {
	s.now = now
	return s
}

// Issue signs a session for the active role and returns it with its expiry
func (s *Sessions) Issue(active account.ActiveRole) (string, time.Time, error) {
	issued := s.now()
	expires := issued.Add(s.ttl)
	claims := sessionClaims{
		Role: active.Role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   active.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("Sessions.Issue -> %w", err)
	}
	return signed, expires, nil
}

// Parse validates a session token and returns its active role
func (s *Sessions) Parse(raw string) (account.ActiveRole, error) {
	claims := &sessionClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return account.ActiveRole{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return account.ActiveRole{}, fmt.Errorf("%w: bad subject", ErrTokenInvalid)
	}
	role, ok := account.RoleFromString(claims.Role)
	if !ok {
		return account.ActiveRole{}, fmt.Errorf("%w: bad role", ErrTokenInvalid)
	}
	return account.ActiveRole{UserID: userID, Role: role}, nil
}
