package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		wantErr  error
		wantName string
		grounded bool
	}{
		{"missing key", Config{Provider: "gemini"}, ErrMissingAPIKey, "", false},
		{"blank key", Config{Provider: "openai", APIKey: "   "}, ErrMissingAPIKey, "", false},
		{"openai", Config{Provider: "OpenAI", APIKey: "k", Model: "gpt-4o-mini"}, nil, "openai", false},
		{"gemini default", Config{APIKey: "k", Model: "gemini-2.5-flash"}, nil, "gemini", true},
		{"rate limited", Config{Provider: "openai", APIKey: "k", RateLimit: 2}, nil, "openai", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(context.Background(), tt.cfg)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, p.Name())
			assert.Equal(t, tt.grounded, p.Grounded())
		})
	}
}

func TestNew_RateLimitWraps(t *testing.T) {
	p, err := New(context.Background(), Config{Provider: "openai", APIKey: "k", RateLimit: 1})
	require.NoError(t, err)
	_, ok := p.(*RateLimited)
	assert.True(t, ok)
}

func TestNew_UnknownProvider(t *testing.T) {
	_, err := New(context.Background(), Config{Provider: "carrier-pigeon", APIKey: "k"})
	assert.Error(t, err)
}
