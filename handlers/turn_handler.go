package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"webfaq-backend/models"
)

// TurnProcessor is the chat-platform adapter behind the /turn endpoint.
type TurnProcessor interface {
	Handshake() models.HandshakeResponse
	ProcessTurn(ctx context.Context, req models.TurnRequest) (*models.TurnResponse, error)
}

// TurnHandler handles the /turn chat-platform endpoint.
type TurnHandler struct {
	turns  TurnProcessor
	agent  *TelehealthHandler
	logger *zap.Logger
}

// NewTurnHandler creates a new turn handler. The telehealth handler is
// reused for its agent error mapping.
func NewTurnHandler(turns TurnProcessor, agent *TelehealthHandler, logger *zap.Logger) *TurnHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TurnHandler{turns: turns, agent: agent, logger: logger}
}

// Turn handles POST /turn. The handshake query flag selects the capability
// descriptor variant; otherwise the body is a context-variant turn.
func (h *TurnHandler) Turn(c *gin.Context) {
	if c.Query("handshake") == "true" {
		c.JSON(http.StatusOK, h.turns.Handshake())
		return
	}

	var req models.TurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	result, err := h.turns.ProcessTurn(c.Request.Context(), req)
	if err != nil {
		h.agent.respondAgentError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
