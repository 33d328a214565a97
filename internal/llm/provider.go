// Package llm provides the language model providers used for research and
// translation: Gemini with Google Search grounding, and any OpenAI-compatible
// chat completion endpoint.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/blockedby/lexscout/internal/models"
)

// ErrMissingAPIKey is returned by New when no key is configured.
var ErrMissingAPIKey = errors.New("API key is not configured")

// Request is one generation call.
type Request struct {
	System string
	User   string
	// Search enables the provider's web search tool when it has one.
	Search bool
}

// Response is the text the model produced plus any grounding sources the
// provider reported.
type Response struct {
	Text    string
	Sources []models.Source
	Model   string
}

// Provider generates text from a prompt.
type Provider interface {
	Generate(ctx context.Context, req *Request) (*Response, error)
	// Grounded reports whether responses carry sources from a search tool.
	Grounded() bool
	Name() string
}

// RateLimitError marks a rejected call (HTTP 429). RetryAfter is zero when
// the provider gave no hint.
type RateLimitError struct {
	RetryAfter time.Duration
	Err        error
}

func (e *RateLimitError) Error() string {
	return "rate limited: " + e.Err.Error()
}

func (e *RateLimitError) Unwrap() error {
	return e.Err
}

// Config holds the settings shared by all providers.
type Config struct {
	Provider    string
	BaseURL     string
	Model       string
	APIKey      string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration

	// RateLimit is requests per second; zero disables limiting.
	RateLimit float64
	// Backoff is the pause after a 429 without a retry hint.
	Backoff time.Duration
}

// New builds the configured provider, wrapped in a rate limiter when
// RateLimit is positive.
func New(ctx context.Context, cfg Config) (Provider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}

	var (
		p   Provider
		err error
	)
	switch strings.ToLower(cfg.Provider) {
	case "gemini", "":
		p, err = NewGemini(ctx, cfg)
	case "openai":
		p = NewOpenAI(cfg)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	if cfg.RateLimit > 0 {
		p = NewRateLimited(p, NewRateLimiter(cfg.RateLimit, 1), cfg.Backoff)
	}
	return p, nil
}
