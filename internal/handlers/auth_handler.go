package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/gravadigital/eventsoft-api/internal/config"
	"github.com/gravadigital/eventsoft-api/internal/logger"
	"github.com/gravadigital/eventsoft-api/internal/response"
	"github.com/gravadigital/eventsoft-api/internal/services"
)

type AuthHandler struct {
	base
	auth *services.AuthService
}

func NewAuthHandler(auth *services.AuthService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		base: base{config: cfg, log: logger.Handler("auth_handler")},
		auth: auth,
	}
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginInput
	if !bindJSON(c, &req) {
		return
	}

	session, err := h.auth.Login(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, session)
}

// Me handles GET /api/v1/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	active := actor(c)
	acc, err := h.auth.Me(c.Request.Context(), active)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, gin.H{
		"account":     acc,
		"active_role": active,
	})
}
