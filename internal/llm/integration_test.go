//go:build integration

package llm_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/require"

	"github.com/blockedby/lexscout/internal/catalog"
	"github.com/blockedby/lexscout/internal/llm"
	"github.com/blockedby/lexscout/internal/parser"
	"github.com/blockedby/lexscout/internal/prompt"
)

func TestIntegration_GroundedRegulationSearch(t *testing.T) {
	_ = godotenv.Load("../../.env")

	apiKey := os.Getenv("LLM_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("API_KEY")
	}
	if apiKey == "" {
		t.Skip("Skipping integration test: LLM_API_KEY not set")
	}

	p, err := llm.New(context.Background(), llm.Config{
		Provider:    os.Getenv("LLM_PROVIDER"),
		BaseURL:     os.Getenv("LLM_BASE_URL"),
		Model:       os.Getenv("LLM_MODEL"),
		APIKey:      apiKey,
		MaxTokens:   8192,
		Temperature: 0.1,
		Timeout:     120 * time.Second,
	})
	require.NoError(t, err)

	style := prompt.StyleInline
	if p.Grounded() {
		style = prompt.StyleGrounded
	}
	b, err := prompt.NewBuilder(style, catalog.Default())
	require.NoError(t, err)

	pr := b.Regulations("overtime pay", "Taiwan", "English", nil)

	t.Logf("Sending request to %s...", p.Name())
	resp, err := p.Generate(context.Background(), &llm.Request{System: pr.System, User: pr.User, Search: true})
	require.NoError(t, err)

	parsed := parser.Regulations(resp.Text)
	t.Logf("records=%d grounding sources=%d inline sources=%d", len(parsed.Records), len(resp.Sources), len(parsed.Sources))
	t.Logf("raw:\n%s", parsed.Raw)
}
