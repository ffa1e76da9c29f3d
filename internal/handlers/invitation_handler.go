package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gravadigital/eventsoft-api/internal/config"
	"github.com/gravadigital/eventsoft-api/internal/domain/invitation"
	"github.com/gravadigital/eventsoft-api/internal/logger"
	"github.com/gravadigital/eventsoft-api/internal/response"
	"github.com/gravadigital/eventsoft-api/internal/services"
)

type InvitationHandler struct {
	base
	invitations *services.InvitationService
}

func NewInvitationHandler(invitations *services.InvitationService, cfg *config.Config) *InvitationHandler {
	return &InvitationHandler{
		base:        base{config: cfg, log: logger.Handler("invitation_handler")},
		invitations: invitations,
	}
}

// Issue handles POST /api/v1/invitations
func (h *InvitationHandler) Issue(c *gin.Context) {
	var req services.IssueInput
	if !bindJSON(c, &req) {
		return
	}
	code, err := h.invitations.Issue(c.Request.Context(), actor(c), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Created(c, "Invitation sent", code)
}

// List handles GET /api/v1/invitations
func (h *InvitationHandler) List(c *gin.Context) {
	codes, err := h.invitations.List(c.Request.Context(), actor(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, gin.H{
		"invitations": codes,
		"count":       len(codes),
	})
}

// UpdateState handles PATCH /api/v1/invitations/:id/state
func (h *InvitationHandler) UpdateState(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req UpdateStateRequest
	if !bindJSON(c, &req) {
		return
	}
	next, ok := invitation.StateFromString(req.State)
	if !ok {
		response.BadRequestError(c, "state must be active, suspended or cancelled")
		return
	}

	code, err := h.invitations.SetState(c.Request.Context(), actor(c), id, next)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SuccessResponse(c, http.StatusOK, "Invitation updated", code)
}

// RegisterAdmin handles POST /api/v1/invitations/:id/register, where :id carries the
// invitation code sent by mail rather than the record ID
func (h *InvitationHandler) RegisterAdmin(c *gin.Context) {
	var req services.AdminSignupInput
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.invitations.RegisterAdmin(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Created(c, "Administrator account created", user)
}
