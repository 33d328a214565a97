package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/blockedby/lexscout/internal/logger"
	"github.com/blockedby/lexscout/internal/models"
	"github.com/blockedby/lexscout/internal/research"
	"github.com/blockedby/lexscout/internal/session"
	"github.com/blockedby/lexscout/internal/web"
)

type resultsView struct {
	Tab                  session.TabState
	TranslationLanguages []string
	Reports              bool
}

// SetCountry switches the country; the response language resets.
func (h *UIHandler) SetCountry(w http.ResponseWriter, r *http.Request) {
	ws := web.ResolveWorkspace(w, r, h.sessions)

	if err := ws.SetCountry(r.FormValue("country")); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.renderPartial(w, "settings", h.pageData(ws.State()))
}

// SetLanguage selects the response language.
func (h *UIHandler) SetLanguage(w http.ResponseWriter, r *http.Request) {
	ws := web.ResolveWorkspace(w, r, h.sessions)

	if err := ws.SetLanguage(r.FormValue("language")); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.renderPartial(w, "settings", h.pageData(ws.State()))
}

// SetActive remembers the visible tab.
func (h *UIHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	ws := web.ResolveWorkspace(w, r, h.sessions)

	if err := ws.SetActive(models.Kind(r.FormValue("kind"))); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Results renders the results area of one tab.
func (h *UIHandler) Results(w http.ResponseWriter, r *http.Request) {
	kind, ok := tabParam(w, r)
	if !ok {
		return
	}
	ws := web.ResolveWorkspace(w, r, h.sessions)
	h.renderResults(w, ws, kind)
}

// Search runs a search on a tab and answers with its results area once the
// outcome is known. Progress arrives over the websocket meanwhile. The search
// outlives the request so a reload picks up its outcome; the provider
// timeout bounds it.
func (h *UIHandler) Search(w http.ResponseWriter, r *http.Request) {
	kind, ok := tabParam(w, r)
	if !ok {
		return
	}
	ws := web.ResolveWorkspace(w, r, h.sessions)

	in := session.SearchInput{Query: r.FormValue("query")}
	if kind == models.KindLaw {
		in.RegulationFilters = models.RegulationFilters{
			CompetentAuthority: r.FormValue("authority"),
			DateFrom:           r.FormValue("from"),
			DateTo:             r.FormValue("to"),
		}
	} else {
		in.PolicyFilters = models.PolicyFilters{
			DateFrom:        r.FormValue("from"),
			DateTo:          r.FormValue("to"),
			IncludeKeywords: r.FormValue("include"),
			ExcludeKeywords: r.FormValue("exclude"),
		}
	}

	if err := ws.Search(context.WithoutCancel(r.Context()), kind, in); err != nil {
		if errors.Is(err, session.ErrBusy) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.renderResults(w, ws, kind)
}

// TranslateCard translates one result card. The translation keeps running
// when the browser goes away so the card state is complete on reload.
func (h *UIHandler) TranslateCard(w http.ResponseWriter, r *http.Request) {
	kind, ok := tabParam(w, r)
	if !ok {
		return
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		http.Error(w, "Invalid card index", http.StatusBadRequest)
		return
	}
	language := r.FormValue("language")
	if !h.catalog.IsTranslationLanguage(language) {
		http.Error(w, research.ErrNoTargetLang.Error(), http.StatusBadRequest)
		return
	}

	ws := web.ResolveWorkspace(w, r, h.sessions)
	err = ws.TranslateCard(context.WithoutCancel(r.Context()), kind, index, language)
	switch {
	case errors.Is(err, session.ErrNoSuchCard):
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	case errors.Is(err, session.ErrBusy):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		logger.Get().Error().Err(err).Str("session", ws.ID()).Msg("card translation failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.renderResults(w, ws, kind)
}

func (h *UIHandler) renderResults(w http.ResponseWriter, ws *session.Workspace, kind models.Kind) {
	h.renderPartial(w, "results", resultsView{
		Tab:                  ws.State().Tab(kind),
		TranslationLanguages: h.catalog.TranslationLanguages,
		Reports:              h.reports,
	})
}

func tabParam(w http.ResponseWriter, r *http.Request) (models.Kind, bool) {
	kind := models.Kind(chi.URLParam(r, "tab"))
	if !kind.IsValid() {
		http.Error(w, session.ErrUnknownKind.Error(), http.StatusNotFound)
		return "", false
	}
	return kind, true
}
