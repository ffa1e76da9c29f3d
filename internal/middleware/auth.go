package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/gravadigital/eventsoft-api/internal/domain/account"
	"github.com/gravadigital/eventsoft-api/internal/logger"
	"github.com/gravadigital/eventsoft-api/internal/response"
)

// ActiveRoleKey is the gin context key holding the decoded account.ActiveRole
const ActiveRoleKey = "active_role"

// Authenticator decodes a session token
type Authenticator interface {
	Authenticate(raw string) (account.ActiveRole, error)
}

// RequireSession rejects requests without a valid bearer token
func RequireSession(auth Authenticator) gin.HandlerFunc {
	return session(auth, true)
}

// OptionalSession decodes the bearer token when one is sent
func OptionalSession(auth Authenticator) gin.HandlerFunc {
	return session(auth, false)
}

func session(auth Authenticator, required bool) gin.HandlerFunc {
	l := logger.HTTP()

	return func(c *gin.Context) {
		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			if required {
				response.UnauthorizedError(c, "a session token is required")
				return
			}
			c.Next()
			return
		}

		active, err := auth.Authenticate(raw)
		if err != nil {
			l.Warn("Session rejected", "path", c.Request.URL.Path, "error", err)
			response.UnauthorizedError(c, "the session token is invalid or expired")
			return
		}

		c.Set(ActiveRoleKey, active)
		c.Next()
	}
}

// RequireRole lets through sessions acting as one of roles
func RequireRole(roles ...account.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		active, ok := Actor(c)
		if !ok {
			response.UnauthorizedError(c, "a session token is required")
			return
		}
		if !active.Allows(roles...) {
			response.ForbiddenError(c, "the active role cannot access this resource")
			return
		}
		c.Next()
	}
}

// Actor returns the active role decoded for this request
func Actor(c *gin.Context) (account.ActiveRole, bool) {
	v, ok := c.Get(ActiveRoleKey)
	if !ok {
		return account.ActiveRole{}, false
	}
	active, ok := v.(account.ActiveRole)
	return active, ok
}

func bearerToken(header string) (string, bool) {
	scheme, raw, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	raw = strings.TrimSpace(raw)
	return raw, raw != ""
}
