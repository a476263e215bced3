package service

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webfaq-backend/llm"
	"webfaq-backend/models"
)

// stubLLM is a scripted completion client shared by the service tests.
// Generate and Score return their scripted values in order, repeating the
// last one when the script runs out.
type stubLLM struct {
	responses   []string
	scores      []llm.RubricScores
	generateErr error
	scoreErr    error

	generateCalls   int
	scoreCalls      int
	generatePrompts []string
	scorePrompts    []string
}

func (s *stubLLM) Generate(ctx context.Context, prompt string) (string, error) {
	if s.generateErr != nil {
		return "", s.generateErr
	}
	s.generatePrompts = append(s.generatePrompts, prompt)
	idx := s.generateCalls
	s.generateCalls++
	if idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}
	return s.responses[idx], nil
}

func (s *stubLLM) Score(ctx context.Context, prompt string) (llm.RubricScores, error) {
	if s.scoreErr != nil {
		return llm.RubricScores{}, s.scoreErr
	}
	s.scorePrompts = append(s.scorePrompts, prompt)
	idx := s.scoreCalls
	s.scoreCalls++
	if idx >= len(s.scores) {
		idx = len(s.scores) - 1
	}
	return s.scores[idx], nil
}

func uniformScores(v float64) llm.RubricScores {
	return llm.RubricScores{
		MedicalAccuracy: v,
		Precision:       v,
		LanguageClarity: v,
		EmpathyScore:    v,
	}
}

func TestEvaluateWeightedOverall(t *testing.T) {
	stub := &stubLLM{scores: []llm.RubricScores{{
		MedicalAccuracy: 85,
		Precision:       78,
		LanguageClarity: 82,
		EmpathyScore:    88,
	}}}
	svc := NewEvaluatorService(EvaluatorWithLLM(stub))

	eval, err := svc.Evaluate(context.Background(), "Drink plenty of water.", "user: I feel dizzy", "Name: Fatima")
	require.NoError(t, err)

	assert.Equal(t, 85.0, eval.MedicalAccuracy)
	assert.Equal(t, 78.0, eval.Precision)
	assert.Equal(t, 82.0, eval.LanguageClarity)
	assert.Equal(t, 88.0, eval.EmpathyScore)
	assert.InDelta(t, 85*0.40+78*0.25+82*0.20+88*0.15, eval.OverallScore, 1e-9)
	assert.NotEmpty(t, eval.Feedback)

	require.Len(t, stub.scorePrompts, 1)
	assert.Contains(t, stub.scorePrompts[0], "Drink plenty of water.")
	assert.Contains(t, stub.scorePrompts[0], "user: I feel dizzy")
	assert.Contains(t, stub.scorePrompts[0], "Name: Fatima")
}

func TestEvaluateClampsOutOfRangeScores(t *testing.T) {
	stub := &stubLLM{scores: []llm.RubricScores{{
		MedicalAccuracy: 150,
		Precision:       -20,
		LanguageClarity: 82,
		EmpathyScore:    88,
	}}}
	svc := NewEvaluatorService(EvaluatorWithLLM(stub))

	eval, err := svc.Evaluate(context.Background(), "response", "context", "profile")
	require.NoError(t, err)

	assert.Equal(t, 100.0, eval.MedicalAccuracy)
	assert.Equal(t, 0.0, eval.Precision)
	assert.InDelta(t, 100*0.40+0*0.25+82*0.20+88*0.15, eval.OverallScore, 1e-9)
}

func TestEvaluatePropagatesScoringError(t *testing.T) {
	stub := &stubLLM{scoreErr: fmt.Errorf("scoring: %w", llm.ErrUnavailable)}
	svc := NewEvaluatorService(EvaluatorWithLLM(stub))

	_, err := svc.Evaluate(context.Background(), "response", "context", "profile")
	assert.ErrorIs(t, err, llm.ErrUnavailable)
}

func TestOverallScoreIsFixedLinearCombination(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 100; i++ {
		a := rng.Float64() * 100
		p := rng.Float64() * 100
		c := rng.Float64() * 100
		e := rng.Float64() * 100
		want := a*0.40 + p*0.25 + c*0.20 + e*0.15
		assert.InDelta(t, want, OverallScore(a, p, c, e), 1e-9)
	}
}

func TestBuildFeedbackBands(t *testing.T) {
	tests := []struct {
		name   string
		scores float64
		prefix string
	}{
		{"excellent", 90, "Excellent response!"},
		{"good", 75, "Good response with room for improvement."},
		{"adequate", 55, "Adequate response that needs enhancement."},
		{"poor", 30, "This response needs significant improvement."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := buildFeedback(tt.scores, tt.scores, tt.scores, tt.scores, tt.scores)
			assert.True(t, strings.HasPrefix(fb, tt.prefix), "feedback %q should start with %q", fb, tt.prefix)
		})
	}
}

func TestBuildFeedbackSuggestions(t *testing.T) {
	fb := buildFeedback(50, 50, 50, 50, 50)
	assert.Contains(t, fb, "Suggestions for improvement:")
	assert.Contains(t, fb, "Include more specific medical references and safety disclaimers")
	assert.Contains(t, fb, "Add more personalized and supportive language")

	fb = buildFeedback(95, 95, 95, 95, 95)
	assert.NotContains(t, fb, "Suggestions for improvement:")
	assert.Contains(t, fb, "Excellent medical accuracy with appropriate safety warnings.")
}

func TestConversationContext(t *testing.T) {
	messages := []models.Message{
		{Role: models.RoleUser, Content: "I have a headache"},
		{Role: models.RoleAssistant, Content: "How long has it lasted?"},
	}

	got := ConversationContext(messages, "fallback summary")
	assert.Equal(t, "user: I have a headache\nassistant: How long has it lasted?", got)

	// Without messages, the fallback summary is used verbatim.
	assert.Equal(t, "fallback summary", ConversationContext(nil, "fallback summary"))
	assert.Equal(t, "", ConversationContext(nil, ""))
}
