package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAIClient implements Client against the OpenAI chat completion API.
type OpenAIClient struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// NewOpenAIClient creates an OpenAI-backed completion client. The timeout
// bounds each completion call; zero applies the default.
func NewOpenAIClient(apiKey, model string, timeout time.Duration, logger *zap.Logger) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key not set")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OpenAIClient{
		client:  openai.NewClient(apiKey),
		model:   model,
		timeout: timeout,
		logger:  logger,
	}, nil
}

// Generate sends the prompt as a single user message and returns the first
// choice.
func (c *OpenAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	return c.complete(ctx, prompt, 0.2)
}

// Score runs the rubric prompt at temperature 0 and decodes the JSON reply.
func (c *OpenAIClient) Score(ctx context.Context, prompt string) (RubricScores, error) {
	text, err := c.complete(ctx, prompt, 0)
	if err != nil {
		return RubricScores{}, err
	}
	return parseScores(text)
}

func (c *OpenAIClient) complete(ctx context.Context, prompt string, temperature float32) (string, error) {
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: temperature,
	})
	if err != nil {
		c.logger.Warn("openai completion failed", zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: openai returned no choices", ErrUnavailable)
	}
	return resp.Choices[0].Message.Content, nil
}
