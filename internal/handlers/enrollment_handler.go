package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/gravadigital/eventsoft-api/internal/config"
	"github.com/gravadigital/eventsoft-api/internal/domain/common"
	"github.com/gravadigital/eventsoft-api/internal/domain/enrollment"
	"github.com/gravadigital/eventsoft-api/internal/logger"
	"github.com/gravadigital/eventsoft-api/internal/response"
	"github.com/gravadigital/eventsoft-api/internal/services"
)

type EnrollmentHandler struct {
	base
	enrollments *services.EnrollmentService
}

func NewEnrollmentHandler(enrollments *services.EnrollmentService, cfg *config.Config) *EnrollmentHandler {
	return &EnrollmentHandler{
		base:        base{config: cfg, log: logger.Handler("enrollment_handler")},
		enrollments: enrollments,
	}
}

type TransitionRequest struct {
	State string `json:"state" binding:"required"`
}

// enrollmentFilter reads the listing filters from the query string
func enrollmentFilter(c *gin.Context) (enrollment.Filter, bool) {
	var f enrollment.Filter

	if v := c.Query("kind"); v != "" {
		kind, ok := common.KindFromString(v)
		if !ok {
			response.BadRequestError(c, "invalid kind")
			return f, false
		}
		f.Kind = kind
	}
	if v := c.Query("state"); v != "" {
		state, ok := enrollment.StateFromString(v)
		if !ok {
			response.BadRequestError(c, "invalid state")
			return f, false
		}
		f.State = &state
	}
	if v := c.Query("confirmed"); v != "" {
		confirmed, err := strconv.ParseBool(v)
		if err != nil {
			response.BadRequestError(c, "confirmed must be true or false")
			return f, false
		}
		f.Confirmed = &confirmed
	}
	f.Name = c.Query("name")
	f.Document = c.Query("document")
	f.Email = c.Query("email")
	return f, true
}

// List handles GET /api/v1/events/:id/enrollments
func (h *EnrollmentHandler) List(c *gin.Context) {
	eventID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	filter, ok := enrollmentFilter(c)
	if !ok {
		return
	}
	filter.EventID = eventID

	members, err := h.enrollments.List(c.Request.Context(), actor(c), filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, gin.H{
		"enrollments": members,
		"count":       len(members),
	})
}

// Transition handles PATCH /api/v1/enrollments/:id/state
func (h *EnrollmentHandler) Transition(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req TransitionRequest
	if !bindJSON(c, &req) {
		return
	}
	to, ok := enrollment.StateFromString(req.State)
	if !ok {
		response.BadRequestError(c, "state must be pending, approved or rejected")
		return
	}

	e, err := h.enrollments.Transition(c.Request.Context(), actor(c), id, to)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SuccessResponse(c, http.StatusOK, "Enrollment updated", e)
}

// Mine handles GET /api/v1/me/enrollments
func (h *EnrollmentHandler) Mine(c *gin.Context) {
	list, err := h.enrollments.Mine(c.Request.Context(), actor(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, list)
}

// QR handles GET /api/v1/enrollments/:id/qr
func (h *EnrollmentHandler) QR(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	data, name, err := h.enrollments.QR(c.Request.Context(), actor(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.File(c, name, "image/png", data)
}

// Document handles GET /api/v1/enrollments/:id/document
func (h *EnrollmentHandler) Document(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	data, name, err := h.enrollments.Document(c.Request.Context(), actor(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.File(c, name, "application/octet-stream", data)
}
