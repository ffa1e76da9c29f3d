package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gravadigital/eventsoft-api/internal/config"
	"github.com/gravadigital/eventsoft-api/internal/domain/common"
	"github.com/gravadigital/eventsoft-api/internal/logger"
	"github.com/gravadigital/eventsoft-api/internal/response"
	"github.com/gravadigital/eventsoft-api/internal/services"
)

type RegistrationHandler struct {
	base
	registration *services.RegistrationService
}

func NewRegistrationHandler(registration *services.RegistrationService, cfg *config.Config) *RegistrationHandler {
	return &RegistrationHandler{
		base:         base{config: cfg, log: logger.Handler("registration_handler")},
		registration: registration,
	}
}

// kindParam parses the :kind path parameter
func kindParam(c *gin.Context) (common.Kind, bool) {
	kind, ok := common.KindFromString(c.Param("kind"))
	if !ok {
		response.BadRequestError(c, "kind must be attendee, participant or evaluator")
		return 0, false
	}
	return kind, true
}

// Register handles POST /api/v1/events/:id/registrations/:kind as a multipart form
// with an optional "document" file
func (h *RegistrationHandler) Register(c *gin.Context) {
	eventID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	kind, ok := kindParam(c)
	if !ok {
		return
	}

	upload, err := readUpload(c, "document", h.config.Upload.MaxFileSize)
	if err != nil {
		response.BadRequestError(c, "invalid document upload")
		return
	}

	in := services.RegisterInput{
		Kind:      kind,
		EventID:   eventID,
		Email:     c.PostForm("email"),
		Document:  c.PostForm("document_number"),
		FirstName: c.PostForm("first_name"),
		LastName:  c.PostForm("last_name"),
		Phone:     c.PostForm("phone"),
		Upload:    upload,
	}

	result, err := h.registration.Register(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Created(c, string(result.Outcome), result)
}

// Confirm handles GET /api/v1/registrations/confirm?token=
func (h *RegistrationHandler) Confirm(c *gin.Context) {
	raw := c.Query("token")
	if raw == "" {
		response.BadRequestError(c, "token is required")
		return
	}

	result, err := h.registration.Confirm(c.Request.Context(), raw)
	if err != nil {
		h.fail(c, err)
		return
	}

	switch result.Outcome {
	case services.OutcomeLinkExpired, services.OutcomeCleanedUp:
		response.Failure(c, http.StatusGone, response.ErrorResponse{
			Error: "the confirmation link is no longer valid",
			Code:  string(result.Outcome),
		})
	default:
		response.SuccessResponse(c, http.StatusOK, string(result.Outcome), result)
	}
}

// Cancel handles DELETE /api/v1/events/:id/registrations/:kind
func (h *RegistrationHandler) Cancel(c *gin.Context) {
	eventID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	kind, ok := kindParam(c)
	if !ok {
		return
	}

	if err := h.registration.Cancel(c.Request.Context(), actor(c), kind, eventID); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
