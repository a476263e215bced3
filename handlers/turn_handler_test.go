package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webfaq-backend/models"
	"webfaq-backend/service"
)

type stubTurnProcessor struct {
	result *models.TurnResponse
	err    error

	lastReq        models.TurnRequest
	handshakeCalls int
}

func (s *stubTurnProcessor) Handshake() models.HandshakeResponse {
	s.handshakeCalls++
	return models.HandshakeResponse{
		ProtocolVersion:    "1.0",
		ContextObjectTypes: []string{"patient_info", "medical_context"},
		SuggestedResponses: true,
	}
}

func (s *stubTurnProcessor) ProcessTurn(ctx context.Context, req models.TurnRequest) (*models.TurnResponse, error) {
	s.lastReq = req
	return s.result, s.err
}

func turnRouter(turns *stubTurnProcessor) *gin.Engine {
	agent := NewTelehealthHandler(&stubAgent{}, &stubEvaluator{}, nil)
	h := NewTurnHandler(turns, agent, nil)
	r := gin.New()
	r.POST("/turn", h.Turn)
	return r
}

func TestTurnHandshake(t *testing.T) {
	turns := &stubTurnProcessor{}
	r := turnRouter(turns)

	w := performRequest(r, http.MethodPost, "/turn?handshake=true", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, turns.handshakeCalls)

	var hs models.HandshakeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &hs))
	assert.Equal(t, "1.0", hs.ProtocolVersion)
	assert.Equal(t, []string{"patient_info", "medical_context"}, hs.ContextObjectTypes)
	assert.True(t, hs.SuggestedResponses)
}

func TestTurnContextVariant(t *testing.T) {
	turns := &stubTurnProcessor{result: &models.TurnResponse{
		ConversationID: "conv-42",
		ContextObjects: []models.ContextObject{{Type: "medical_context", Title: "Medical Context"}},
		SuggestedResponses: []models.SuggestedResponse{
			{Text: "primary", Confidence: 0.9},
			{Text: "disclaimer", Confidence: 0.5},
		},
	}}
	r := turnRouter(turns)

	body := `{
		"conversation_id": "conv-42",
		"messages": [{"direction": "inbound", "text": "I am pregnant, what should I eat?"}],
		"patient_profile": "Name: Fatima"
	}`
	w := performRequest(r, http.MethodPost, "/turn", body)
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.TurnResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "conv-42", resp.ConversationID)
	require.Len(t, resp.SuggestedResponses, 2)
	assert.Equal(t, 0.9, resp.SuggestedResponses[0].Confidence)

	assert.Equal(t, "Name: Fatima", turns.lastReq.PatientProfile)
	require.Len(t, turns.lastReq.Messages, 1)
	assert.Equal(t, "inbound", turns.lastReq.Messages[0].Direction)
}

func TestTurnInvalidBody(t *testing.T) {
	r := turnRouter(&stubTurnProcessor{})

	for name, body := range map[string]string{
		"no messages":       `{"conversation_id": "c"}`,
		"empty messages":    `{"messages": []}`,
		"bad direction":     `{"messages": [{"direction": "sideways", "text": "hi"}]}`,
		"message no text":   `{"messages": [{"direction": "inbound"}]}`,
		"handshake omitted": ``,
	} {
		t.Run(name, func(t *testing.T) {
			w := performRequest(r, http.MethodPost, "/turn", body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assertErrorEnvelope(t, w, "INVALID_REQUEST")
		})
	}
}

func TestTurnAgentErrorMapping(t *testing.T) {
	turns := &stubTurnProcessor{err: service.ErrNoSources}
	r := turnRouter(turns)

	body := `{"messages": [{"direction": "inbound", "text": "hi"}]}`
	w := performRequest(r, http.MethodPost, "/turn", body)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assertErrorEnvelope(t, w, "UPSTREAM_UNAVAILABLE")
}
