package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"webfaq-backend/llm"
	"webfaq-backend/models"
	"webfaq-backend/pubmed"
)

var (
	// ErrNoUserMessage is returned when the conversation holds no user turn.
	ErrNoUserMessage = errors.New("no user message found in conversation")
	// ErrNoSources is returned when no medical literature could be retrieved
	// to ground the response. The agent never answers ungrounded.
	ErrNoSources = errors.New("no medical sources available to ground the response")
)

// agentState drives the per-request draft/evaluate/retry cycle. The agent
// performs at most one corrective retry: at most 2 generation calls and 2
// evaluation calls per request.
type agentState int

const (
	stateDraft agentState = iota
	stateEvaluated
	stateRetried
	stateAccepted
)

const maxQueriesPerRequest = 3

const responseDisclaimer = "Remember: This information is for educational purposes only. Always consult with your healthcare provider for personalized medical advice."

// TelehealthService is the conversational agent behind /ashai. It retrieves
// PubMed evidence for the conversation, drafts a response with the
// completion service and self-evaluates the draft before returning it.
type TelehealthService struct {
	faq       *FAQService
	llm       llm.Client
	evaluator *EvaluatorService
	logger    *zap.Logger

	snippetLength      int
	maxResultsPerQuery int
	acceptThreshold    float64 // 0-10 scale
}

// TelehealthServiceOption is a functional option for TelehealthService.
type TelehealthServiceOption func(*TelehealthService)

// TelehealthWithFAQService sets the FAQ retrieval service.
func TelehealthWithFAQService(svc *FAQService) TelehealthServiceOption {
	return func(s *TelehealthService) {
		s.faq = svc
	}
}

// TelehealthWithLLM sets the completion-service client.
func TelehealthWithLLM(client llm.Client) TelehealthServiceOption {
	return func(s *TelehealthService) {
		s.llm = client
	}
}

// TelehealthWithEvaluator sets the self-evaluation service.
func TelehealthWithEvaluator(svc *EvaluatorService) TelehealthServiceOption {
	return func(s *TelehealthService) {
		s.evaluator = svc
	}
}

// TelehealthWithLogger sets the logger.
func TelehealthWithLogger(l *zap.Logger) TelehealthServiceOption {
	return func(s *TelehealthService) {
		s.logger = l
	}
}

// TelehealthWithTuning overrides the retrieval and acceptance parameters.
func TelehealthWithTuning(snippetLength, maxResultsPerQuery int, acceptThreshold float64) TelehealthServiceOption {
	return func(s *TelehealthService) {
		s.snippetLength = snippetLength
		s.maxResultsPerQuery = maxResultsPerQuery
		s.acceptThreshold = acceptThreshold
	}
}

// NewTelehealthService creates a new telehealth agent.
func NewTelehealthService(opts ...TelehealthServiceOption) *TelehealthService {
	s := &TelehealthService{
		logger:             zap.NewNop(),
		snippetLength:      DefaultSnippetLength,
		maxResultsPerQuery: 2,
		acceptThreshold:    7.0,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Process runs one agent request: extract queries, retrieve evidence, draft,
// self-evaluate, retry at most once, and return the accepted draft with its
// evaluation attached.
func (s *TelehealthService) Process(ctx context.Context, req models.TelehealthRequest) (*models.TelehealthResponse, error) {
	latest := latestUserMessage(req.Messages)
	if latest == nil {
		return nil, ErrNoUserMessage
	}

	profile := ParseProfile(req.Profile)
	queries := extractQueries(req.Messages, req.Profile)
	if len(queries) == 0 {
		// No keyword bucket matched; fall back to the raw question so the
		// retrieval step still has something to work with.
		queries = []string{latest.Content}
	}

	faqs, sources := s.retrieve(ctx, queries)
	if len(faqs) == 0 {
		return nil, ErrNoSources
	}

	conversationContext := ConversationContext(req.Messages, "")

	var (
		draft      string
		evaluation *models.Evaluation
		feedback   string
		retried    bool
		err        error
	)

	state := stateDraft
	for state != stateAccepted {
		switch state {
		case stateDraft, stateRetried:
			draft, err = s.llm.Generate(ctx, s.buildPrompt(profile, faqs, req.Messages, feedback))
			if err != nil {
				return nil, err
			}
			state = stateEvaluated

		case stateEvaluated:
			evaluation, err = s.evaluator.Evaluate(ctx, draft, conversationContext, req.Profile)
			if err != nil {
				return nil, err
			}
			normalized := evaluation.OverallScore / 10
			if normalized >= s.acceptThreshold || retried {
				state = stateAccepted
				break
			}
			s.logger.Info("draft scored below threshold, retrying once",
				zap.Float64("score", normalized),
				zap.Float64("threshold", s.acceptThreshold))
			feedback = evaluation.Feedback
			retried = true
			state = stateRetried
		}
	}

	return &models.TelehealthResponse{
		Response:   draft,
		Sources:    sources,
		FAQs:       faqs,
		Evaluation: evaluation,
	}, nil
}

// retrieve fetches FAQ evidence for each query, degrading to fewer results
// when the literature service is unavailable for some of them.
func (s *TelehealthService) retrieve(ctx context.Context, queries []string) ([]models.FAQItem, []models.Source) {
	var faqs []models.FAQItem
	var sources []models.Source

	for _, query := range queries {
		results, err := s.faq.SearchRaw(ctx, query, s.maxResultsPerQuery, s.snippetLength)
		if err != nil {
			if errors.Is(err, pubmed.ErrUpstreamUnavailable) {
				s.logger.Warn("literature search unavailable for query",
					zap.String("query", query),
					zap.Error(err))
				continue
			}
			s.logger.Warn("literature search failed for query",
				zap.String("query", query),
				zap.Error(err))
			continue
		}
		faqs = append(faqs, results...)
		for _, item := range results {
			sources = append(sources, item.Sources...)
		}
	}

	return faqs, dedupeSources(sources)
}

// latestUserMessage returns the most recent user turn, or nil.
func latestUserMessage(messages []models.Message) *models.Message {
	for i := len(messages) - 1; i >= 0; i-- {
		if strings.EqualFold(messages[i].Role, models.RoleUser) {
			return &messages[i]
		}
	}
	return nil
}

// queryBucket maps trigger words in user messages to a canned search query.
type queryBucket struct {
	triggers []string
	query    string
}

var messageBuckets = []queryBucket{
	{[]string{"pregnant", "pregnancy", "baby", "fetus"}, "pregnancy health concerns"},
	{[]string{"eat", "food", "diet", "nutrition"}, "pregnancy nutrition guidelines"},
	{[]string{"symptom", "pain", "discomfort", "problem"}, "pregnancy symptoms and complications"},
	{[]string{"medicine", "medication", "drug", "pill"}, "pregnancy medication safety"},
	{[]string{"exercise", "workout", "activity", "fitness"}, "pregnancy exercise guidelines"},
}

// extractQueries derives search queries from the user turns and the profile,
// deduplicated in first-seen order and capped at maxQueriesPerRequest.
func extractQueries(messages []models.Message, profile string) []string {
	var queries []string

	for _, m := range messages {
		if !strings.EqualFold(m.Role, models.RoleUser) {
			continue
		}
		content := strings.ToLower(m.Content)
		for _, bucket := range messageBuckets {
			for _, trigger := range bucket.triggers {
				if strings.Contains(content, trigger) {
					queries = append(queries, bucket.query)
					break
				}
			}
		}
	}

	profileLower := strings.ToLower(profile)
	if strings.Contains(profileLower, "prenatal") || strings.Contains(profileLower, "pregnant") {
		queries = append(queries, "prenatal care guidelines")
	}
	if strings.Contains(profileLower, "itching") {
		queries = append(queries, "pregnancy itching causes and treatment")
	}

	seen := make(map[string]bool, len(queries))
	unique := queries[:0]
	for _, q := range queries {
		if !seen[q] {
			seen[q] = true
			unique = append(unique, q)
		}
	}
	if len(unique) > maxQueriesPerRequest {
		unique = unique[:maxQueriesPerRequest]
	}
	return unique
}

// ParseProfile extracts the labeled lines of a free-text patient profile
// into a typed structure, keeping the raw text as fallback.
func ParseProfile(raw string) models.PatientProfile {
	profile := models.PatientProfile{Raw: raw}

	for _, line := range strings.Split(raw, "\n") {
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "name":
			profile.Name = value
		case "location":
			profile.Location = value
		case "language":
			profile.Language = value
		case "category":
			profile.Category = value
		case "patient history", "history":
			profile.History = value
		}
	}
	return profile
}

// buildPrompt assembles the generation prompt from profile, retrieved
// evidence and conversation. A non-empty feedback block turns the prompt
// into the single corrective retry.
func (s *TelehealthService) buildPrompt(profile models.PatientProfile, faqs []models.FAQItem, messages []models.Message, feedback string) string {
	var evidence strings.Builder
	for i, faq := range faqs {
		evidence.WriteString(fmt.Sprintf("%d. %s\n%s\n", i+1, faq.Question, faq.Answer))
		if len(faq.Sources) > 0 {
			evidence.WriteString("Source: " + faq.Sources[0].URL + "\n")
		}
		evidence.WriteString("\n")
	}

	var transcript strings.Builder
	for _, m := range messages {
		transcript.WriteString(m.Role)
		transcript.WriteString(": ")
		transcript.WriteString(m.Content)
		transcript.WriteString("\n")
	}

	prompt := fmt.Sprintf(`You are a compassionate telehealth assistant for maternal and general health questions.

PATIENT PROFILE:
%s

MEDICAL SOURCES (from PubMed):
%s
CONVERSATION:
%s
TASK:
Write the assistant's next reply to the patient.

REQUIREMENTS:
- Ground every medical statement in the sources above; do not invent findings
- Address the patient's latest question directly
- Greet the patient by name when the profile provides one
- Use plain, warm language a patient can understand; avoid medical jargon
- If the profile lists a preferred language, add a short closing sentence in that language
- End with this exact disclaimer: %q
- Never give a definitive diagnosis or prescribe medication`,
		profile.Raw,
		evidence.String(),
		transcript.String(),
		responseDisclaimer,
	)

	if feedback != "" {
		prompt += fmt.Sprintf(`

A clinical quality reviewer evaluated your previous reply and found it lacking. Revise the reply to address this feedback:
%s`, feedback)
	}

	return prompt
}

// dedupeSources removes duplicate sources by PMID, preserving first-seen
// order.
func dedupeSources(sources []models.Source) []models.Source {
	seen := make(map[string]bool, len(sources))
	unique := make([]models.Source, 0, len(sources))
	for _, src := range sources {
		if seen[src.PMID] {
			continue
		}
		seen[src.PMID] = true
		unique = append(unique, src)
	}
	return unique
}
