package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webfaq-backend/llm"
	"webfaq-backend/models"
)

func newTestTurnService(searcher *stubSearcher, stub *stubLLM) *TurnService {
	return NewTurnService(newTestAgent(searcher, stub))
}

func TestHandshake(t *testing.T) {
	svc := NewTurnService(nil)

	hs := svc.Handshake()
	assert.Equal(t, "1.0", hs.ProtocolVersion)
	assert.Equal(t, []string{"patient_info", "medical_context"}, hs.ContextObjectTypes)
	assert.True(t, hs.SuggestedResponses)
}

func TestProcessTurn(t *testing.T) {
	searcher := &stubSearcher{articles: []models.Article{nutritionArticle()}}
	stub := &stubLLM{
		responses: []string{"Hello Fatima, eating a balanced diet helps."},
		scores:    []llm.RubricScores{uniformScores(90)},
	}
	svc := newTestTurnService(searcher, stub)

	result, err := svc.ProcessTurn(context.Background(), models.TurnRequest{
		ConversationID: "conv-42",
		Messages: []models.TurnMessage{
			{Direction: "outbound", Text: "How can I help you today?"},
			{Direction: "inbound", Text: "I am pregnant, what should I eat?"},
		},
		PatientProfile: "Name: Fatima\nLocation: Dhaka",
	})
	require.NoError(t, err)

	assert.Equal(t, "conv-42", result.ConversationID)

	require.Len(t, result.ContextObjects, 2)
	patientInfo := result.ContextObjects[0]
	assert.Equal(t, "patient_info", patientInfo.Type)
	assert.Equal(t, "Fatima", patientInfo.Table["name"])
	assert.Equal(t, "Dhaka", patientInfo.Table["location"])

	medical := result.ContextObjects[1]
	assert.Equal(t, "medical_context", medical.Type)
	require.NotEmpty(t, medical.Items)
	assert.Contains(t, medical.Items[0], "Nutrition during pregnancy")
	assert.Contains(t, medical.Items[0], "https://pubmed.ncbi.nlm.nih.gov/18760225/")

	require.Len(t, result.SuggestedResponses, 2)
	assert.Equal(t, "Hello Fatima, eating a balanced diet helps.", result.SuggestedResponses[0].Text)
	assert.Equal(t, 0.9, result.SuggestedResponses[0].Confidence)
	assert.Equal(t, responseDisclaimer, result.SuggestedResponses[1].Text)
	assert.Equal(t, 0.5, result.SuggestedResponses[1].Confidence)
}

func TestProcessTurnEmptyProfileOmitsPatientInfo(t *testing.T) {
	searcher := &stubSearcher{articles: []models.Article{nutritionArticle()}}
	stub := &stubLLM{
		responses: []string{"some reply"},
		scores:    []llm.RubricScores{uniformScores(90)},
	}
	svc := newTestTurnService(searcher, stub)

	result, err := svc.ProcessTurn(context.Background(), models.TurnRequest{
		ConversationID: "conv-43",
		Messages: []models.TurnMessage{
			{Direction: "inbound", Text: "I am pregnant, any advice?"},
		},
	})
	require.NoError(t, err)

	require.Len(t, result.ContextObjects, 1)
	assert.Equal(t, "medical_context", result.ContextObjects[0].Type)
}

func TestProcessTurnNoInboundMessage(t *testing.T) {
	searcher := &stubSearcher{articles: []models.Article{nutritionArticle()}}
	stub := &stubLLM{responses: []string{"x"}, scores: []llm.RubricScores{uniformScores(90)}}
	svc := newTestTurnService(searcher, stub)

	_, err := svc.ProcessTurn(context.Background(), models.TurnRequest{
		ConversationID: "conv-44",
		Messages: []models.TurnMessage{
			{Direction: "outbound", Text: "How can I help?"},
		},
	})
	assert.ErrorIs(t, err, ErrNoUserMessage)
}

func TestMapTurnMessages(t *testing.T) {
	mapped := mapTurnMessages([]models.TurnMessage{
		{Direction: "inbound", Text: "hello"},
		{Direction: "outbound", Text: "hi there"},
	})

	require.Len(t, mapped, 2)
	assert.Equal(t, models.Message{Role: models.RoleUser, Content: "hello"}, mapped[0])
	assert.Equal(t, models.Message{Role: models.RoleAssistant, Content: "hi there"}, mapped[1])
}
