package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gravadigital/eventsoft-api/internal/config"
	"github.com/gravadigital/eventsoft-api/internal/domain/event"
	"github.com/gravadigital/eventsoft-api/internal/logger"
	"github.com/gravadigital/eventsoft-api/internal/response"
	"github.com/gravadigital/eventsoft-api/internal/services"
)

type EventHandler struct {
	base
	events      *services.EventService
	invitations *services.InvitationService
}

func NewEventHandler(events *services.EventService, invitations *services.InvitationService, cfg *config.Config) *EventHandler {
	return &EventHandler{
		base:        base{config: cfg, log: logger.Handler("event_handler")},
		events:      events,
		invitations: invitations,
	}
}

type UpdateStateRequest struct {
	State string `json:"state" binding:"required"`
}

// CreateEvent handles POST /api/v1/events
func (h *EventHandler) CreateEvent(c *gin.Context) {
	var req services.EventInput
	if !bindJSON(c, &req) {
		return
	}

	ev, err := h.invitations.CreateEvent(c.Request.Context(), actor(c), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Created(c, "Event created, waiting for approval", ev)
}

// GetAllEvents handles GET /api/v1/events?state=
func (h *EventHandler) GetAllEvents(c *gin.Context) {
	var filter event.Filter
	if v := c.Query("state"); v != "" {
		state, ok := event.StateFromString(v)
		if !ok {
			response.BadRequestError(c, "invalid state")
			return
		}
		filter.State = &state
	}

	events, err := h.events.List(c.Request.Context(), optionalActor(c), filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, gin.H{
		"events": events,
		"count":  len(events),
	})
}

// GetEvent handles GET /api/v1/events/:id
func (h *EventHandler) GetEvent(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	ev, err := h.events.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, ev)
}

// UpdateEventState handles PATCH /api/v1/events/:id/state
func (h *EventHandler) UpdateEventState(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req UpdateStateRequest
	if !bindJSON(c, &req) {
		return
	}
	next, ok := event.StateFromString(req.State)
	if !ok {
		response.Failure(c, http.StatusBadRequest, response.ErrorResponse{
			Error:   "invalid state",
			Code:    "BAD_REQUEST",
			Details: []string{"approved", "rejected", "registrations_closed", "finished"},
		})
		return
	}

	ev, err := h.events.ChangeState(c.Request.Context(), actor(c), id, next)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SuccessResponse(c, http.StatusOK, "Event state updated", ev)
}

// Statistics handles GET /api/v1/events/:id/statistics
func (h *EventHandler) Statistics(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	stats, err := h.events.Statistics(c.Request.Context(), actor(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, stats)
}

// CapacityLedger handles GET /api/v1/events/:id/capacity-ledger
func (h *EventHandler) CapacityLedger(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	ledger, err := h.events.CapacityLedger(c.Request.Context(), actor(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, ledger)
}

// UploadAsset handles PUT /api/v1/events/:id/assets/:asset with a multipart "file"
func (h *EventHandler) UploadAsset(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	upload, err := readUpload(c, "file", h.config.Upload.MaxFileSize)
	if err != nil || upload == nil {
		response.BadRequestError(c, "a file is required")
		return
	}
	if limit := h.config.Upload.MaxFileSize; limit > 0 && int64(len(upload.Data)) > limit {
		response.BadRequestError(c, "file is too large")
		return
	}

	ev, err := h.events.SetAsset(c.Request.Context(), actor(c), id, services.Asset(c.Param("asset")), *upload)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SuccessResponse(c, http.StatusOK, "Asset stored", ev)
}

// DownloadAsset handles GET /api/v1/events/:id/assets/:asset
func (h *EventHandler) DownloadAsset(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	data, name, err := h.events.Asset(c.Request.Context(), id, services.Asset(c.Param("asset")))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.File(c, name, http.DetectContentType(data), data)
}
