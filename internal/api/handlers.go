// Package api provides HTTP handlers for the REST API.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-fuego/fuego"
	"github.com/google/uuid"

	"github.com/blockedby/lexscout/internal/logger"
	"github.com/blockedby/lexscout/internal/models"
	"github.com/blockedby/lexscout/internal/report"
	"github.com/blockedby/lexscout/internal/repository"
	"github.com/blockedby/lexscout/internal/research"
)

// exportLimit caps how many searches one XLSX export contains.
const exportLimit = 5000

const healthPingTimeout = 2 * time.Second

// ============================================================================
// System
// ============================================================================

func (s *Server) healthCheck(c fuego.ContextNoBody) (HealthResponse, error) {
	resp := HealthResponse{
		Status:   "ok",
		Version:  s.version,
		Provider: s.deps.Provider,
		History:  s.deps.History != nil,
	}
	if s.deps.History != nil && s.deps.Database != nil {
		ctx, cancel := context.WithTimeout(c.Context(), healthPingTimeout)
		defer cancel()
		if err := s.deps.Database.Ping(ctx); err != nil {
			logger.Warn("health: database ping failed", err)
			resp.Status = "degraded"
			resp.History = false
		}
	}
	return resp, nil
}

func (s *Server) getCatalog(c fuego.ContextNoBody) (CatalogResponse, error) {
	cat := s.deps.Research.Catalog()
	return CatalogResponse{
		DefaultCountry:       cat.DefaultCountry,
		Countries:            cat.CountryList,
		TranslationLanguages: cat.TranslationLanguages,
	}, nil
}

// ============================================================================
// Research Handlers
// ============================================================================

func (s *Server) searchRegulations(c fuego.ContextWithBody[RegulationSearchRequest]) (*models.Result, error) {
	body, err := c.Body()
	if err != nil {
		return nil, fuego.BadRequestError{Detail: err.Error()}
	}

	res, err := s.deps.Research.Search(c.Context(), models.Query{
		Kind:              models.KindLaw,
		Text:              body.Query,
		Country:           s.countryOrDefault(body.Country),
		Language:          body.Language,
		RegulationFilters: body.Filters,
	})
	if err != nil {
		return nil, researchError(err)
	}
	return res, nil
}

func (s *Server) searchPolicies(c fuego.ContextWithBody[PolicySearchRequest]) (*models.Result, error) {
	body, err := c.Body()
	if err != nil {
		return nil, fuego.BadRequestError{Detail: err.Error()}
	}

	res, err := s.deps.Research.Search(c.Context(), models.Query{
		Kind:          models.KindPolicy,
		Text:          body.Query,
		Country:       s.countryOrDefault(body.Country),
		Language:      body.Language,
		PolicyFilters: body.Filters,
	})
	if err != nil {
		return nil, researchError(err)
	}
	return res, nil
}

func (s *Server) translate(c fuego.ContextWithBody[TranslateRequest]) (TranslateResponse, error) {
	body, err := c.Body()
	if err != nil {
		return TranslateResponse{}, fuego.BadRequestError{Detail: err.Error()}
	}

	text, err := s.deps.Research.Translate(c.Context(), body.Text, body.Language)
	if err != nil {
		return TranslateResponse{}, researchError(err)
	}
	return TranslateResponse{Language: body.Language, Text: text}, nil
}

func (s *Server) translateRegulation(c fuego.ContextWithBody[RegulationTranslateRequest]) (*models.RegulationTranslation, error) {
	body, err := c.Body()
	if err != nil {
		return nil, fuego.BadRequestError{Detail: err.Error()}
	}

	tr, err := s.deps.Research.TranslateRegulation(c.Context(), body.Regulation, body.Language)
	if err != nil {
		return nil, researchError(err)
	}
	return tr, nil
}

func (s *Server) translatePolicy(c fuego.ContextWithBody[PolicyTranslateRequest]) (*models.PolicyTranslation, error) {
	body, err := c.Body()
	if err != nil {
		return nil, fuego.BadRequestError{Detail: err.Error()}
	}

	tr, err := s.deps.Research.TranslatePolicy(c.Context(), body.Policy, body.Language)
	if err != nil {
		return nil, researchError(err)
	}
	return tr, nil
}

func (s *Server) countryOrDefault(country string) string {
	if country == "" {
		return s.deps.Research.Catalog().DefaultCountry
	}
	return country
}

// researchError maps service errors to HTTP errors.
func researchError(err error) error {
	switch {
	case errors.Is(err, research.ErrEmptyQuery),
		errors.Is(err, research.ErrUnknownCountry),
		errors.Is(err, research.ErrUnknownLanguage),
		errors.Is(err, research.ErrInvalidKind),
		errors.Is(err, research.ErrNoTargetLang):
		return fuego.BadRequestError{Detail: err.Error()}
	case errors.Is(err, research.ErrMissingAPIKey):
		return fuego.HTTPError{Status: http.StatusServiceUnavailable, Title: "Service Unavailable", Detail: err.Error()}
	case errors.Is(err, research.ErrProvider), errors.Is(err, research.ErrTranslation):
		return fuego.HTTPError{Status: http.StatusBadGateway, Title: "Bad Gateway", Detail: err.Error()}
	default:
		return fuego.InternalServerError{Detail: err.Error()}
	}
}

// ============================================================================
// History Handlers
// ============================================================================

var errHistoryDisabled = fuego.HTTPError{
	Status: http.StatusServiceUnavailable,
	Title:  "Service Unavailable",
	Detail: "search history is not enabled",
}

func (s *Server) listHistory(c fuego.ContextNoBody) (HistoryListResponse, error) {
	if s.deps.History == nil {
		return HistoryListResponse{}, errHistoryDisabled
	}

	page := parseIntWithDefault(c.QueryParam("page"), 1)
	limit := parseIntWithDefault(c.QueryParam("limit"), 20)
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	filter := repository.HistoryFilter{
		Kind:    c.QueryParam("kind"),
		Country: c.QueryParam("country"),
		Outcome: c.QueryParam("outcome"),
		Query:   c.QueryParam("q"),
		Page:    page,
		Limit:   limit,
	}

	records, total, err := s.deps.History.List(c.Context(), filter)
	if err != nil {
		return HistoryListResponse{}, fuego.InternalServerError{Detail: err.Error()}
	}

	pages := int((total + int64(limit) - 1) / int64(limit))
	if pages < 1 {
		pages = 1
	}

	return HistoryListResponse{
		Items: HistoryItemsFromRecords(records),
		Total: total,
		Page:  page,
		Limit: limit,
		Pages: pages,
	}, nil
}

func (s *Server) getHistory(c fuego.ContextNoBody) (HistoryDetailResponse, error) {
	if s.deps.History == nil {
		return HistoryDetailResponse{}, errHistoryDisabled
	}

	id, err := uuid.Parse(c.PathParam("id"))
	if err != nil {
		return HistoryDetailResponse{}, fuego.BadRequestError{Detail: "Invalid search ID"}
	}

	rec, err := s.deps.History.GetByID(c.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		return HistoryDetailResponse{}, fuego.NotFoundError{Detail: "Search not found"}
	}
	if err != nil {
		return HistoryDetailResponse{}, fuego.InternalServerError{Detail: err.Error()}
	}

	return HistoryDetailResponse{Result: *rec.Result(), ProviderError: rec.Error}, nil
}

func (s *Server) historyReport(w http.ResponseWriter, r *http.Request) {
	if s.deps.History == nil || s.deps.Reports == nil {
		http.Error(w, "reports are not enabled", http.StatusServiceUnavailable)
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "Invalid search ID", http.StatusBadRequest)
		return
	}

	rec, err := s.deps.History.GetByID(r.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		http.Error(w, "Search not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	pdf, err := s.deps.Reports.RenderPDF(r.Context(), rec.Result())
	if err != nil {
		logger.Error("report rendering failed", err)
		http.Error(w, "failed to render report", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="search-%s.pdf"`, id))
	_, _ = w.Write(pdf)
}

func (s *Server) exportHistory(w http.ResponseWriter, r *http.Request) {
	if s.deps.History == nil {
		http.Error(w, "search history is not enabled", http.StatusServiceUnavailable)
		return
	}

	q := r.URL.Query()
	filter := repository.HistoryFilter{
		Kind:    q.Get("kind"),
		Country: q.Get("country"),
		Outcome: q.Get("outcome"),
		Query:   q.Get("q"),
		Limit:   100,
	}

	var results []models.Result
	for filter.Page = 1; len(results) < exportLimit; filter.Page++ {
		records, total, err := s.deps.History.List(r.Context(), filter)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		for i := range records {
			results = append(results, *records[i].Result())
		}
		if len(records) < filter.Limit || int64(len(results)) >= total {
			break
		}
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="history-%s.xlsx"`, time.Now().Format("20060102")))
	if err := report.WriteHistoryXLSX(w, results); err != nil {
		logger.Error("history export failed", err)
	}
}

// ============================================================================
// Stats Handlers
// ============================================================================

func (s *Server) getStats(c fuego.ContextNoBody) (*repository.HistoryStats, error) {
	if s.deps.History == nil {
		return nil, errHistoryDisabled
	}

	stats, err := s.deps.History.Stats(c.Context())
	if err != nil {
		return nil, fuego.InternalServerError{Detail: err.Error()}
	}
	return stats, nil
}

// ============================================================================
// Helpers
// ============================================================================

func parseIntWithDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
