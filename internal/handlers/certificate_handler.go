package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gravadigital/eventsoft-api/internal/config"
	"github.com/gravadigital/eventsoft-api/internal/domain/certificate"
	"github.com/gravadigital/eventsoft-api/internal/logger"
	"github.com/gravadigital/eventsoft-api/internal/response"
	"github.com/gravadigital/eventsoft-api/internal/services"
)

type CertificateHandler struct {
	base
	certificates *services.CertificateService
}

func NewCertificateHandler(certificates *services.CertificateService, cfg *config.Config) *CertificateHandler {
	return &CertificateHandler{
		base:         base{config: cfg, log: logger.Handler("certificate_handler")},
		certificates: certificates,
	}
}

// target parses the :id and :kind path parameters
func (h *CertificateHandler) target(c *gin.Context) (uuid.UUID, certificate.Kind, bool) {
	eventID, ok := uuidParam(c, "id")
	if !ok {
		return uuid.Nil, 0, false
	}
	kind, ok := certificate.KindFromString(c.Param("kind"))
	if !ok {
		response.BadRequestError(c, "kind must be attendance, participation, evaluation or award")
		return uuid.Nil, 0, false
	}
	return eventID, kind, true
}

// Template handles GET /api/v1/events/:id/certificates/:kind/template
func (h *CertificateHandler) Template(c *gin.Context) {
	eventID, kind, ok := h.target(c)
	if !ok {
		return
	}
	t, err := h.certificates.Template(c.Request.Context(), actor(c), eventID, kind)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, t)
}

// SaveTemplate handles PUT /api/v1/events/:id/certificates/:kind/template
func (h *CertificateHandler) SaveTemplate(c *gin.Context) {
	eventID, kind, ok := h.target(c)
	if !ok {
		return
	}
	var req services.TemplateInput
	if !bindJSON(c, &req) {
		return
	}
	t, err := h.certificates.SaveTemplate(c.Request.Context(), actor(c), eventID, kind, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SuccessResponse(c, http.StatusOK, "Template saved", t)
}

// Preview handles GET /api/v1/events/:id/certificates/:kind/preview
func (h *CertificateHandler) Preview(c *gin.Context) {
	eventID, kind, ok := h.target(c)
	if !ok {
		return
	}
	data, name, err := h.certificates.Preview(c.Request.Context(), actor(c), eventID, kind)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.File(c, name, http.DetectContentType(data), data)
}

// Send handles POST /api/v1/events/:id/certificates/:kind/send
func (h *CertificateHandler) Send(c *gin.Context) {
	eventID, kind, ok := h.target(c)
	if !ok {
		return
	}
	sent, err := h.certificates.Send(c.Request.Context(), actor(c), eventID, kind)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SuccessResponse(c, http.StatusOK, "Certificates sent", gin.H{"sent": sent})
}
