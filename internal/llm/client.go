package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAI talks to an OpenAI-compatible chat completion endpoint. It has no
// search tool, so sources must come back inside the answer itself.
type OpenAI struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
	timeout     time.Duration
}

// NewOpenAI creates a provider for cfg.BaseURL, or the public API when empty.
func NewOpenAI(cfg Config) *OpenAI {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	return &OpenAI{
		client:      openai.NewClientWithConfig(config),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
	}
}

// Name implements Provider.
func (c *OpenAI) Name() string { return "openai" }

// Grounded implements Provider.
func (c *OpenAI) Grounded() bool { return false }

// Generate sends the system and user messages and returns the first choice.
func (c *OpenAI) Generate(ctx context.Context, req *Request) (*Response, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.User})

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	})
	if err != nil {
		if isTooManyRequests(err) {
			return nil, &RateLimitError{Err: err}
		}
		return nil, fmt.Errorf("llm completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	model := resp.Model
	if model == "" {
		model = c.model
	}
	return &Response{Text: resp.Choices[0].Message.Content, Model: model}, nil
}

func isTooManyRequests(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	return false
}
