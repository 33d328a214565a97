// Package parser turns free-text model responses into typed records.
//
// Models are told to answer with a bare JSON array but frequently wrap it in
// a markdown fence or surround it with prose. The parser strips a fence,
// slices from the first '[' to the last ']' and decodes that. Anything that
// does not decode yields no records; the caller keeps the raw text.
package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/blockedby/lexscout/internal/models"
)

// ErrNoArray is returned when the text holds no bracketed array.
var ErrNoArray = errors.New("no JSON array in response")

// StripFences removes a leading ```json fence with the whitespace after it
// and a trailing ``` fence. Other text is left untouched.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimLeft(s[len("```json"):], " \t\r\n")
	}
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// ExtractArray decodes the outermost bracketed JSON array in text into []T.
func ExtractArray[T any](text string) ([]T, error) {
	s := StripFences(text)
	start := strings.Index(s, "[")
	end := strings.LastIndex(s, "]")
	if start < 0 || end < start {
		return nil, ErrNoArray
	}

	var out []T
	if err := json.Unmarshal([]byte(s[start:end+1]), &out); err != nil {
		return nil, fmt.Errorf("decode JSON array: %w", err)
	}
	return out, nil
}

// Parsed is the outcome of parsing one response.
type Parsed[T any] struct {
	Records []T
	// Sources are the per-record "sources" lists, flattened and cleaned.
	// Only inline-style prompts ask for them.
	Sources []models.Source
	// Raw is the trimmed response text.
	Raw string
	Err error
}

type inlineSources struct {
	Sources []models.Source `json:"sources"`
}

func parse[T any](text string) Parsed[T] {
	p := Parsed[T]{Raw: strings.TrimSpace(text)}

	records, err := ExtractArray[T](text)
	if err != nil {
		p.Err = err
		return p
	}
	p.Records = records

	if withSources, err := ExtractArray[inlineSources](text); err == nil {
		var all []models.Source
		for _, r := range withSources {
			all = append(all, r.Sources...)
		}
		p.Sources = models.CleanSources(all)
	}
	return p
}

// Regulations parses a regulation search response.
func Regulations(text string) Parsed[models.Regulation] {
	return parse[models.Regulation](text)
}

// Policies parses a policy search response.
func Policies(text string) Parsed[models.Policy] {
	return parse[models.Policy](text)
}

// Classify decides how a finished search is presented. Records are only
// shown when at least one source backs them; otherwise meaningful raw text
// is shown instead.
func Classify(records, sources int, raw string) models.Outcome {
	if records > 0 && sources > 0 {
		return models.OutcomeSuccess
	}
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" && trimmed != "[]" {
		return models.OutcomeRaw
	}
	return models.OutcomeEmpty
}
