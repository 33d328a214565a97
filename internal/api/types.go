package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/blockedby/lexscout/internal/catalog"
	"github.com/blockedby/lexscout/internal/models"
	"github.com/blockedby/lexscout/internal/repository"
)

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error   string `json:"error" description:"Error message"`
	Details string `json:"details,omitempty" description:"Additional error details"`
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status   string `json:"status" example:"ok" description:"Health status, degraded when the history database is unreachable"`
	Version  string `json:"version" example:"dev" description:"Application version"`
	Provider string `json:"provider,omitempty" example:"gemini" description:"Configured language model provider"`
	History  bool   `json:"history" description:"Whether search history is available"`
}

// CatalogResponse lists selectable countries and languages.
type CatalogResponse struct {
	DefaultCountry       string            `json:"defaultCountry" description:"Country selected for new sessions"`
	Countries            []catalog.Country `json:"countries" description:"Countries with their response languages"`
	TranslationLanguages []string          `json:"translationLanguages" description:"Targets offered by the translate menu"`
}

// RegulationSearchRequest is the body of a law and regulation search.
type RegulationSearchRequest struct {
	Query    string                    `json:"query" example:"overtime pay" description:"What to look for"`
	Country  string                    `json:"country" example:"Taiwan" description:"Jurisdiction; defaults to the catalog default"`
	Language string                    `json:"language,omitempty" example:"English" description:"Response language; defaults to the country's first language"`
	Filters  *models.RegulationFilters `json:"filters,omitempty" description:"Optional narrowing criteria"`
}

// PolicySearchRequest is the body of a government policy search.
type PolicySearchRequest struct {
	Query    string                `json:"query" example:"net zero 2050" description:"What to look for"`
	Country  string                `json:"country" example:"Japan" description:"Jurisdiction; defaults to the catalog default"`
	Language string                `json:"language,omitempty" description:"Response language; defaults to the country's first language"`
	Filters  *models.PolicyFilters `json:"filters,omitempty" description:"Optional narrowing criteria"`
}

// TranslateRequest translates free text.
type TranslateRequest struct {
	Text     string `json:"text" description:"Text to translate"`
	Language string `json:"language" example:"English" description:"Target language"`
}

// TranslateResponse carries the translated text.
type TranslateResponse struct {
	Language string `json:"language"`
	Text     string `json:"text"`
}

// RegulationTranslateRequest translates the text fields of one regulation.
type RegulationTranslateRequest struct {
	Regulation models.Regulation `json:"regulation"`
	Language   string            `json:"language" example:"English" description:"Target language"`
}

// PolicyTranslateRequest translates the text fields of one policy.
type PolicyTranslateRequest struct {
	Policy   models.Policy `json:"policy"`
	Language string        `json:"language" example:"English" description:"Target language"`
}

// HistoryItem summarizes a stored search.
type HistoryItem struct {
	ID         uuid.UUID      `json:"id"`
	Kind       models.Kind    `json:"kind" description:"law or policy"`
	Query      string         `json:"query"`
	Country    string         `json:"country"`
	Language   string         `json:"language"`
	Outcome    models.Outcome `json:"outcome" description:"success, raw, empty or error"`
	Records    int            `json:"records" description:"Number of records returned"`
	Sources    int            `json:"sources" description:"Number of distinct sources"`
	DurationMS int64          `json:"durationMs"`
	CreatedAt  time.Time      `json:"createdAt"`
}

// HistoryListResponse contains a page of stored searches.
type HistoryListResponse struct {
	Items []HistoryItem `json:"items" description:"Searches, newest first"`
	Total int64         `json:"total" description:"Total number of matching searches"`
	Page  int           `json:"page" description:"Current page number"`
	Limit int           `json:"limit" description:"Items per page"`
	Pages int           `json:"pages" description:"Total number of pages"`
}

// HistoryDetailResponse is one stored search with the provider error, if any.
type HistoryDetailResponse struct {
	models.Result
	ProviderError string `json:"providerError,omitempty" description:"Underlying provider error for failed searches"`
}

// HistoryItemFromRecord converts a stored record to its list form.
func HistoryItemFromRecord(r *repository.SearchRecord) HistoryItem {
	return HistoryItem{
		ID:         r.ID,
		Kind:       models.Kind(r.Kind),
		Query:      r.Query,
		Country:    r.Country,
		Language:   r.Language,
		Outcome:    models.Outcome(r.Outcome),
		Records:    r.ResultCount,
		Sources:    len(r.Sources),
		DurationMS: r.DurationMS,
		CreatedAt:  r.CreatedAt,
	}
}

// HistoryItemsFromRecords converts a slice of records.
func HistoryItemsFromRecords(records []repository.SearchRecord) []HistoryItem {
	items := make([]HistoryItem, len(records))
	for i := range records {
		items[i] = HistoryItemFromRecord(&records[i])
	}
	return items
}
