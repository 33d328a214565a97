package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/blockedby/lexscout/internal/models"
)

// Gemini calls the Gemini API and reports Google Search grounding chunks as
// sources.
type Gemini struct {
	client      *genai.Client
	model       string
	maxTokens   int32
	temperature float32
	timeout     time.Duration
}

// NewGemini creates the genai client. BaseURL overrides the API endpoint.
func NewGemini(ctx context.Context, cfg Config) (*Gemini, error) {
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &Gemini{
		client:      client,
		model:       cfg.Model,
		maxTokens:   int32(cfg.MaxTokens),
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
	}, nil
}

// Name implements Provider.
func (g *Gemini) Name() string { return "gemini" }

// Grounded implements Provider.
func (g *Gemini) Grounded() bool { return true }

// Generate runs one generateContent call.
func (g *Gemini) Generate(ctx context.Context, req *Request) (*Response, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	conf := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(g.temperature),
	}
	if g.maxTokens > 0 {
		conf.MaxOutputTokens = g.maxTokens
	}
	if req.System != "" {
		conf.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.Search {
		conf.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(req.User), conf)
	if err != nil {
		if isGenAIRateLimit(err) {
			return nil, &RateLimitError{Err: err}
		}
		return nil, fmt.Errorf("genai generate: %w", err)
	}

	model := resp.ModelVersion
	if model == "" {
		model = g.model
	}
	return &Response{
		Text:    resp.Text(),
		Sources: groundingSources(resp),
		Model:   model,
	}, nil
}

// groundingSources collects web chunks from the first candidate.
func groundingSources(resp *genai.GenerateContentResponse) []models.Source {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil
	}
	meta := resp.Candidates[0].GroundingMetadata
	if meta == nil {
		return nil
	}

	var out []models.Source
	for _, chunk := range meta.GroundingChunks {
		if chunk == nil || chunk.Web == nil {
			continue
		}
		out = append(out, models.Source{URI: chunk.Web.URI, Title: chunk.Web.Title})
	}
	return models.CleanSources(out)
}

// isGenAIRateLimit matches quota errors. The message check covers errors
// that reach us without the typed APIError in the chain.
func isGenAIRateLimit(err error) bool {
	var apiErr *genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests
	}
	msg := err.Error()
	return strings.Contains(msg, "Error 429") || strings.Contains(msg, "RESOURCE_EXHAUSTED")
}
