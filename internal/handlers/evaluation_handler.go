package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gravadigital/eventsoft-api/internal/config"
	"github.com/gravadigital/eventsoft-api/internal/logger"
	"github.com/gravadigital/eventsoft-api/internal/response"
	"github.com/gravadigital/eventsoft-api/internal/services"
)

// EvaluationHandler serves criteria, scores and rankings
type EvaluationHandler struct {
	base
	evaluation *services.EvaluationService
}

func NewEvaluationHandler(evaluation *services.EvaluationService, cfg *config.Config) *EvaluationHandler {
	return &EvaluationHandler{
		base:       base{config: cfg, log: logger.Handler("evaluation_handler")},
		evaluation: evaluation,
	}
}

// ListCriteria handles GET /api/v1/events/:id/criteria
func (h *EvaluationHandler) ListCriteria(c *gin.Context) {
	eventID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	list, total, err := h.evaluation.Criteria(c.Request.Context(), eventID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, gin.H{
		"criteria":     list,
		"total_weight": total,
	})
}

// AddCriterion handles POST /api/v1/events/:id/criteria
func (h *EvaluationHandler) AddCriterion(c *gin.Context) {
	eventID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req services.CriterionInput
	if !bindJSON(c, &req) {
		return
	}
	created, err := h.evaluation.AddCriterion(c.Request.Context(), actor(c), eventID, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Created(c, "Criterion added", created)
}

// EditCriterion handles PUT /api/v1/criteria/:id
func (h *EvaluationHandler) EditCriterion(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req services.CriterionInput
	if !bindJSON(c, &req) {
		return
	}
	edited, err := h.evaluation.EditCriterion(c.Request.Context(), actor(c), id, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SuccessResponse(c, http.StatusOK, "Criterion updated", edited)
}

// RemoveCriterion handles DELETE /api/v1/criteria/:id
func (h *EvaluationHandler) RemoveCriterion(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.evaluation.RemoveCriterion(c.Request.Context(), actor(c), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SubmitScore handles POST /api/v1/scores
func (h *EvaluationHandler) SubmitScore(c *gin.Context) {
	var req services.ScoreInput
	if !bindJSON(c, &req) {
		return
	}
	aggregate, err := h.evaluation.Submit(c.Request.Context(), actor(c), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.SuccessResponse(c, http.StatusOK, "Score recorded", gin.H{
		"participant_id":  req.ParticipantID,
		"aggregate_score": aggregate,
	})
}

// Progress handles GET /api/v1/events/:id/participants/:participant_id/progress
func (h *EvaluationHandler) Progress(c *gin.Context) {
	eventID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	participantID, ok := uuidParam(c, "participant_id")
	if !ok {
		return
	}
	progress, err := h.evaluation.Progress(c.Request.Context(), actor(c), eventID, participantID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, gin.H{
		"scored":   progress.Scored,
		"total":    progress.Total,
		"complete": progress.Complete(),
	})
}

// Sheet handles GET /api/v1/events/:id/sheet
func (h *EvaluationHandler) Sheet(c *gin.Context) {
	eventID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	rows, err := h.evaluation.Sheet(c.Request.Context(), actor(c), eventID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, rows)
}

// MyScores handles GET /api/v1/events/:id/my-scores
func (h *EvaluationHandler) MyScores(c *gin.Context) {
	eventID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	b, err := h.evaluation.MyScores(c.Request.Context(), actor(c), eventID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, b)
}

// Breakdown handles GET /api/v1/events/:id/scores
func (h *EvaluationHandler) Breakdown(c *gin.Context) {
	eventID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	list, err := h.evaluation.Breakdown(c.Request.Context(), actor(c), eventID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, list)
}

// Ranking handles GET /api/v1/events/:id/ranking
func (h *EvaluationHandler) Ranking(c *gin.Context) {
	eventID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	standings, err := h.evaluation.Ranking(c.Request.Context(), actor(c), eventID)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, gin.H{
		"event_id": eventID,
		"ranking":  standings,
	})
}
