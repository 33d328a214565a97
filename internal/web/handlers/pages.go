// Package handlers serves the browser workspace: full pages, htmx partials
// and the JSON state snapshot.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/blockedby/lexscout/internal/catalog"
	"github.com/blockedby/lexscout/internal/session"
	"github.com/blockedby/lexscout/internal/web"
)

// UIHandler handles page and partial requests for one workspace per browser.
type UIHandler struct {
	templates *web.TemplateEngine
	sessions  web.SessionStore
	catalog   *catalog.Catalog
	reports   bool
}

// NewUIHandler creates a UI handler. reports enables the PDF report link.
func NewUIHandler(templates *web.TemplateEngine, sessions web.SessionStore, cat *catalog.Catalog, reports bool) *UIHandler {
	return &UIHandler{
		templates: templates,
		sessions:  sessions,
		catalog:   cat,
		reports:   reports,
	}
}

type pageData struct {
	Title                string
	State                session.State
	Countries            []string
	TranslationLanguages []string
	Reports              bool
}

func (h *UIHandler) pageData(st session.State) pageData {
	return pageData{
		Title:                "Research",
		State:                st,
		Countries:            h.catalog.Countries(),
		TranslationLanguages: h.catalog.TranslationLanguages,
		Reports:              h.reports,
	}
}

// Index renders the workspace page.
func (h *UIHandler) Index(w http.ResponseWriter, r *http.Request) {
	ws := web.ResolveWorkspace(w, r, h.sessions)
	data := h.pageData(ws.State())

	if r.Header.Get("HX-Request") == "true" {
		if err := h.templates.RenderContent(w, "index", data); err != nil {
			http.Error(w, "Template error: "+err.Error(), http.StatusInternalServerError)
		}
		return
	}

	if err := h.templates.Render(w, "index", data); err != nil {
		http.Error(w, "Template error: "+err.Error(), http.StatusInternalServerError)
	}
}

// State returns the workspace snapshot as JSON.
func (h *UIHandler) State(w http.ResponseWriter, r *http.Request) {
	ws := web.ResolveWorkspace(w, r, h.sessions)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(ws.State()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// Settings renders the country and language selectors.
func (h *UIHandler) Settings(w http.ResponseWriter, r *http.Request) {
	ws := web.ResolveWorkspace(w, r, h.sessions)
	h.renderPartial(w, "settings", h.pageData(ws.State()))
}

func (h *UIHandler) renderPartial(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.RenderPartial(w, name, data); err != nil {
		http.Error(w, "Template error: "+err.Error(), http.StatusInternalServerError)
	}
}
