// Package llm abstracts the external completion service behind a small
// capability interface so the rest of the pipeline can run against
// deterministic stubs in tests.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnavailable is returned when the completion service cannot produce a
// response. It is always a hard failure for callers; no text is fabricated.
var ErrUnavailable = errors.New("completion service unavailable")

// defaultTimeout bounds a completion call when no timeout is configured.
const defaultTimeout = 60 * time.Second

// RubricScores are the four raw sub-scores returned by the scoring prompt.
// Values are as reported by the service; callers clamp to [0,100].
type RubricScores struct {
	MedicalAccuracy float64 `json:"medical_accuracy"`
	Precision       float64 `json:"precision"`
	LanguageClarity float64 `json:"language_clarity"`
	EmpathyScore    float64 `json:"empathy_score"`
}

// Client is the capability interface to the completion service.
type Client interface {
	// Generate returns free text for a prompt.
	Generate(ctx context.Context, prompt string) (string, error)
	// Score runs a rubric prompt and returns the four numeric sub-scores.
	Score(ctx context.Context, prompt string) (RubricScores, error)
}

// withTimeout bounds one completion call. Without it a hung upstream would
// block the request for as long as the client stays connected.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = defaultTimeout
	}
	return context.WithTimeout(ctx, d)
}

// parseScores extracts the first JSON object from a model reply and decodes
// it. Models occasionally wrap JSON in code fences or prose.
func parseScores(text string) (RubricScores, error) {
	var scores RubricScores

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return scores, fmt.Errorf("%w: no JSON object in scoring response", ErrUnavailable)
	}

	if err := json.Unmarshal([]byte(text[start:end+1]), &scores); err != nil {
		return scores, fmt.Errorf("%w: decode scoring response: %v", ErrUnavailable, err)
	}
	return scores, nil
}
