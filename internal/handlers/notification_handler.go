package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/gravadigital/eventsoft-api/internal/config"
	"github.com/gravadigital/eventsoft-api/internal/logger"
	"github.com/gravadigital/eventsoft-api/internal/response"
	"github.com/gravadigital/eventsoft-api/internal/services"
)

type NotificationHandler struct {
	base
	notifications *services.NotificationService
}

func NewNotificationHandler(notifications *services.NotificationService, cfg *config.Config) *NotificationHandler {
	return &NotificationHandler{
		base:          base{config: cfg, log: logger.Handler("notification_handler")},
		notifications: notifications,
	}
}

// Send handles POST /api/v1/events/:id/notifications. The recipients are the enrollments
// matching the query filters, narrowed to enrollment_ids when given.
func (h *NotificationHandler) Send(c *gin.Context) {
	eventID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	filter, ok := enrollmentFilter(c)
	if !ok {
		return
	}
	filter.EventID = eventID

	var req services.SendInput
	if !bindJSON(c, &req) {
		return
	}
	req.Filter = filter

	n, err := h.notifications.Send(c.Request.Context(), actor(c), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Created(c, "Notification sent", n)
}

// History handles GET /api/v1/events/:id/notifications
func (h *NotificationHandler) History(c *gin.Context) {
	eventID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	list, err := h.notifications.History(c.Request.Context(), actor(c), eventID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, list)
}
