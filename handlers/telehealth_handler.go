package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"webfaq-backend/llm"
	"webfaq-backend/models"
	"webfaq-backend/service"
)

// TelehealthProcessor is the agent dependency of the /ashai endpoint.
type TelehealthProcessor interface {
	Process(ctx context.Context, req models.TelehealthRequest) (*models.TelehealthResponse, error)
}

// ResponseEvaluator is the scoring dependency of the /evaluator endpoint.
type ResponseEvaluator interface {
	Evaluate(ctx context.Context, response, contextText, profile string) (*models.Evaluation, error)
}

// TelehealthHandler handles the /ashai and /evaluator endpoints.
type TelehealthHandler struct {
	agent     TelehealthProcessor
	evaluator ResponseEvaluator
	logger    *zap.Logger
}

// NewTelehealthHandler creates a new telehealth handler.
func NewTelehealthHandler(agent TelehealthProcessor, evaluator ResponseEvaluator, logger *zap.Logger) *TelehealthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TelehealthHandler{agent: agent, evaluator: evaluator, logger: logger}
}

// Ashai handles POST /ashai. Unlike the FAQ endpoints this one fails closed:
// a response is never returned without grounding sources, and completion
// service outages are hard failures.
func (h *TelehealthHandler) Ashai(c *gin.Context) {
	var req models.TelehealthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	result, err := h.agent.Process(c.Request.Context(), req)
	if err != nil {
		h.respondAgentError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Evaluate handles POST /evaluator. When both messages and context are
// present, messages take precedence and context is ignored; context alone is
// treated as a one-line conversation summary.
func (h *TelehealthHandler) Evaluate(c *gin.Context) {
	var req models.EvaluationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	if req.Context == "" && len(req.Messages) == 0 {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "either context or messages is required")
		return
	}

	contextText := service.ConversationContext(req.Messages, req.Context)

	evaluation, err := h.evaluator.Evaluate(c.Request.Context(), req.Response, contextText, req.Profile)
	if err != nil {
		if errors.Is(err, llm.ErrUnavailable) {
			h.logger.Error("evaluation service unavailable", zap.Error(err))
			respondError(c, http.StatusBadGateway, "GENERATION_UNAVAILABLE", "The evaluation service is temporarily unavailable")
			return
		}
		h.logger.Error("evaluation failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "EVALUATION_FAILED", "Error evaluating response")
		return
	}

	c.JSON(http.StatusOK, evaluation)
}

// respondAgentError maps agent failures to client responses without leaking
// upstream payloads.
func (h *TelehealthHandler) respondAgentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNoUserMessage):
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "conversation contains no user message")
	case errors.Is(err, service.ErrNoSources):
		h.logger.Warn("agent request had no grounding sources", zap.Error(err))
		respondError(c, http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE", "No medical literature is available to ground a response right now")
	case errors.Is(err, llm.ErrUnavailable):
		h.logger.Error("completion service unavailable", zap.Error(err))
		respondError(c, http.StatusBadGateway, "GENERATION_UNAVAILABLE", "The response generation service is temporarily unavailable")
	default:
		h.logger.Error("telehealth request failed", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "AGENT_FAILED", "Error processing telehealth request")
	}
}
