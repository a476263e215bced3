package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"webfaq-backend/llm"
	"webfaq-backend/models"
)

// Rubric weights. OverallScore is always this fixed linear combination of
// the four sub-scores; it is never set independently.
const (
	weightMedicalAccuracy = 0.40
	weightPrecision       = 0.25
	weightLanguageClarity = 0.20
	weightEmpathy         = 0.15
)

// EvaluatorService scores a telehealth response against the four-dimension
// rubric. Judgment is delegated to the completion service; score arithmetic
// and feedback text stay local so evaluation output is deterministic and
// auditable regardless of the model's phrasing.
type EvaluatorService struct {
	llm    llm.Client
	logger *zap.Logger
}

// EvaluatorServiceOption is a functional option for EvaluatorService.
type EvaluatorServiceOption func(*EvaluatorService)

// EvaluatorWithLLM sets the completion-service client.
func EvaluatorWithLLM(client llm.Client) EvaluatorServiceOption {
	return func(s *EvaluatorService) {
		s.llm = client
	}
}

// EvaluatorWithLogger sets the logger.
func EvaluatorWithLogger(l *zap.Logger) EvaluatorServiceOption {
	return func(s *EvaluatorService) {
		s.logger = l
	}
}

// NewEvaluatorService creates a new evaluator service.
func NewEvaluatorService(opts ...EvaluatorServiceOption) *EvaluatorService {
	s := &EvaluatorService{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Evaluate scores response against the rubric. Out-of-range sub-scores from
// the completion service are clamped to [0,100] rather than surfaced.
func (s *EvaluatorService) Evaluate(ctx context.Context, response, contextText, profile string) (*models.Evaluation, error) {
	scores, err := s.llm.Score(ctx, buildRubricPrompt(response, contextText, profile))
	if err != nil {
		return nil, err
	}

	accuracy := clampScore(scores.MedicalAccuracy)
	precision := clampScore(scores.Precision)
	clarity := clampScore(scores.LanguageClarity)
	empathy := clampScore(scores.EmpathyScore)

	if accuracy != scores.MedicalAccuracy || precision != scores.Precision ||
		clarity != scores.LanguageClarity || empathy != scores.EmpathyScore {
		s.logger.Warn("evaluator received out-of-range scores, clamped",
			zap.Float64("medical_accuracy", scores.MedicalAccuracy),
			zap.Float64("precision", scores.Precision),
			zap.Float64("language_clarity", scores.LanguageClarity),
			zap.Float64("empathy_score", scores.EmpathyScore))
	}

	overall := OverallScore(accuracy, precision, clarity, empathy)

	return &models.Evaluation{
		MedicalAccuracy: accuracy,
		Precision:       precision,
		LanguageClarity: clarity,
		EmpathyScore:    empathy,
		OverallScore:    overall,
		Feedback:        buildFeedback(accuracy, precision, clarity, empathy, overall),
	}, nil
}

// OverallScore computes the fixed-weight overall score on the 0-100 scale.
func OverallScore(accuracy, precision, clarity, empathy float64) float64 {
	return accuracy*weightMedicalAccuracy +
		precision*weightPrecision +
		clarity*weightLanguageClarity +
		empathy*weightEmpathy
}

// ConversationContext renders the evaluation context. Messages take
// precedence over the fallback summary when both are supplied.
func ConversationContext(messages []models.Message, fallback string) string {
	if len(messages) == 0 {
		return fallback
	}
	var builder strings.Builder
	for i, m := range messages {
		if i > 0 {
			builder.WriteString("\n")
		}
		builder.WriteString(m.Role)
		builder.WriteString(": ")
		builder.WriteString(m.Content)
	}
	return builder.String()
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func buildRubricPrompt(response, contextText, profile string) string {
	return fmt.Sprintf(`You are a clinical quality reviewer scoring a telehealth response.

PATIENT PROFILE:
%s

CONVERSATION CONTEXT:
%s

RESPONSE TO EVALUATE:
%s

Score the response on each dimension from 0 to 100:
- medical_accuracy: factual correctness, evidence grounding, presence of appropriate safety guidance
- precision: how directly the response addresses the patient's specific question
- language_clarity: plain, accessible wording appropriate for the patient
- empathy_score: warmth, personalization and cultural sensitivity

Reply with ONLY a JSON object of this exact shape, no other text:
{"medical_accuracy": 0, "precision": 0, "language_clarity": 0, "empathy_score": 0}`,
		profile, contextText, response)
}

// buildFeedback produces banded, templated feedback so two identical score
// sets always yield identical prose.
func buildFeedback(accuracy, precision, clarity, empathy, overall float64) string {
	parts := make([]string, 0, 6)

	switch {
	case overall >= 85:
		parts = append(parts, "Excellent response! This is a high-quality telehealth interaction.")
	case overall >= 70:
		parts = append(parts, "Good response with room for improvement.")
	case overall >= 50:
		parts = append(parts, "Adequate response that needs enhancement.")
	default:
		parts = append(parts, "This response needs significant improvement.")
	}

	if accuracy < 70 {
		parts = append(parts, "Medical accuracy could be improved by including more evidence-based information and appropriate disclaimers.")
	} else if accuracy >= 85 {
		parts = append(parts, "Excellent medical accuracy with appropriate safety warnings.")
	}

	if precision < 60 {
		parts = append(parts, "Response could be more precise in addressing the specific patient concerns.")
	} else if precision >= 80 {
		parts = append(parts, "Response precisely addresses the patient's specific questions.")
	}

	if clarity < 65 {
		parts = append(parts, "Language could be clearer and more accessible to patients.")
	} else if clarity >= 85 {
		parts = append(parts, "Clear, accessible language that patients can easily understand.")
	}

	if empathy < 60 {
		parts = append(parts, "Response could be more empathetic and personalized.")
	} else if empathy >= 80 {
		parts = append(parts, "Excellent empathy and personalization in the response.")
	}

	var suggestions []string
	if accuracy < 80 {
		suggestions = append(suggestions, "Include more specific medical references and safety disclaimers")
	}
	if precision < 70 {
		suggestions = append(suggestions, "Address the patient's specific question more directly")
	}
	if clarity < 75 {
		suggestions = append(suggestions, "Use simpler language and avoid medical jargon")
	}
	if empathy < 70 {
		suggestions = append(suggestions, "Add more personalized and supportive language")
	}
	if len(suggestions) > 0 {
		parts = append(parts, fmt.Sprintf("Suggestions for improvement: %s.", strings.Join(suggestions, ", ")))
	}

	return strings.Join(parts, " ")
}
