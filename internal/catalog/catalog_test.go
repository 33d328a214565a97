package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_Loads(t *testing.T) {
	c := Default()

	assert.Equal(t, "Taiwan", c.DefaultCountry)
	assert.Equal(t, "Taiwan", c.Countries()[0])
	assert.Len(t, c.Countries(), 12)
	assert.Equal(t, []string{"正體中文", "English"}, c.Languages("Taiwan"))
	assert.Equal(t, []string{"正體中文", "English", "日本語", "Deutsch", "Français"}, c.TranslationLanguages)
}

func TestDefaultLanguage(t *testing.T) {
	c := Default()

	assert.Equal(t, "Bahasa Melayu", c.DefaultLanguage("Malaysia"))
	assert.Equal(t, "English", c.DefaultLanguage("United States"))
	assert.Equal(t, "", c.DefaultLanguage("Atlantis"))
}

func TestInstructions_OnlyTaiwan(t *testing.T) {
	c := Default()

	assert.Contains(t, c.Instructions("Taiwan"), "https://law.moj.gov.tw/")
	assert.Contains(t, c.Instructions("Taiwan"), "細目")
	assert.Empty(t, c.Instructions("Japan"))
}

func TestSupportsLanguage(t *testing.T) {
	c := Default()

	assert.True(t, c.SupportsLanguage("European Union", "Deutsch"))
	assert.False(t, c.SupportsLanguage("United Kingdom", "Deutsch"))
	assert.True(t, c.IsTranslationLanguage("日本語"))
	assert.False(t, c.IsTranslationLanguage("Klingon"))
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"no countries", "countries: []"},
		{"duplicate", "countries:\n  - name: A\n  - name: A\n"},
		{"unnamed", "countries:\n  - languages: [English]\n"},
		{"unknown default", "default_country: B\ncountries:\n  - name: A\n"},
		{"not yaml", "countries: [unclosed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestParse_DefaultsToFirstCountry(t *testing.T) {
	c, err := Parse([]byte("countries:\n  - name: Japan\n    languages: [日本語]\n  - name: France\n"))
	require.NoError(t, err)
	assert.Equal(t, "Japan", c.DefaultCountry)
	assert.Nil(t, c.Languages("France"))
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("countries:\n  - name: Iceland\n    languages: [Íslenska, English]\n"), 0644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.True(t, c.Has("Iceland"))
	assert.Equal(t, "Íslenska", c.DefaultLanguage("Iceland"))

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
