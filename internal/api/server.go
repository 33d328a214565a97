package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-fuego/fuego"
	"github.com/go-fuego/fuego/option"
)

// Server represents the Fuego API server.
type Server struct {
	fuego   *fuego.Server
	deps    *Dependencies
	port    int
	version string
}

// Dependencies contains all service dependencies. History and Reports may be nil.
type Dependencies struct {
	Research ResearchService
	History  HistoryRepository
	Reports  ReportRenderer
	Database Pinger
	Provider string
}

// Config holds API server configuration.
type Config struct {
	Port        int
	Title       string
	Description string
	Version     string
}

// NewServer creates a new Fuego API server.
func NewServer(cfg *Config, deps *Dependencies) *Server {
	s := fuego.NewServer(
		fuego.WithAddr(fmt.Sprintf(":%d", cfg.Port)),
		fuego.WithEngineOptions(
			fuego.WithOpenAPIConfig(fuego.OpenAPIConfig{
				PrettyFormatJSON: true,
				DisableLocalSave: true,
				SwaggerURL:       "/docs",
				SpecURL:          "/openapi.json",
				UIHandler: func(specURL string) http.Handler {
					return ScalarHandler(specURL, cfg.Title, cfg.Description)
				},
			}),
		),
	)

	s.OpenAPI.Description().Info.Title = cfg.Title
	s.OpenAPI.Description().Info.Description = cfg.Description
	s.OpenAPI.Description().Info.Version = cfg.Version

	fuego.Use(s, middleware.RequestID)
	fuego.Use(s, middleware.RealIP)
	fuego.Use(s, middleware.Recoverer)

	srv := &Server{
		fuego:   s,
		deps:    deps,
		port:    cfg.Port,
		version: cfg.Version,
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) registerRoutes() {
	fuego.Get(s.fuego, "/health", s.healthCheck,
		option.Summary("Health Check"),
		option.Description("Returns the health status of the API"),
		option.Tags("System"),
	)

	fuego.Get(s.fuego, "/api/v1/catalog", s.getCatalog,
		option.Summary("Get Catalog"),
		option.Description("Returns the selectable countries, their response languages and the translation targets"),
		option.Tags("System"),
	)

	researchGroup := fuego.Group(s.fuego, "/api/v1",
		option.Tags("Research"),
	)

	fuego.Post(researchGroup, "/regulations/search", s.searchRegulations,
		option.Summary("Search Regulations"),
		option.Description("Looks up laws and regulations of a country with a search-grounded model"),
	)

	fuego.Post(researchGroup, "/policies/search", s.searchPolicies,
		option.Summary("Search Policies"),
		option.Description("Looks up government policies, plans and white papers of a country"),
	)

	fuego.Post(researchGroup, "/translate", s.translate,
		option.Summary("Translate Text"),
		option.Description("Translates free text into the target language"),
		option.Tags("Translation"),
	)

	fuego.Post(researchGroup, "/regulations/translate", s.translateRegulation,
		option.Summary("Translate Regulation"),
		option.Description("Translates the content and penalty of one regulation; all fields succeed or none are returned"),
		option.Tags("Translation"),
	)

	fuego.Post(researchGroup, "/policies/translate", s.translatePolicy,
		option.Summary("Translate Policy"),
		option.Description("Translates the summary and key points of one policy; all fields succeed or none are returned"),
		option.Tags("Translation"),
	)

	historyGroup := fuego.Group(s.fuego, "/api/v1/history",
		option.Tags("History"),
	)

	fuego.Get(historyGroup, "/", s.listHistory,
		option.Summary("List History"),
		option.Description("Returns stored searches, newest first"),
		option.Query("kind", "Filter by kind (law, policy)"),
		option.Query("country", "Filter by country"),
		option.Query("outcome", "Filter by outcome (success, raw, empty, error)"),
		option.Query("q", "Substring of the query text"),
		option.Query("page", "Page number (1-indexed, default: 1)"),
		option.Query("limit", "Items per page (default: 20, max: 100)"),
	)

	fuego.GetStd(historyGroup, "/export.xlsx", s.exportHistory,
		option.Summary("Export History"),
		option.Description("Downloads matching searches as an XLSX workbook"),
		option.Query("kind", "Filter by kind (law, policy)"),
		option.Query("country", "Filter by country"),
		option.Query("outcome", "Filter by outcome"),
	)

	fuego.Get(historyGroup, "/{id}", s.getHistory,
		option.Summary("Get Search"),
		option.Description("Returns one stored search with its records and sources"),
	)

	fuego.GetStd(historyGroup, "/{id}/report.pdf", s.historyReport,
		option.Summary("Search Report"),
		option.Description("Renders one stored search as a PDF report"),
	)

	fuego.Get(s.fuego, "/api/v1/stats", s.getStats,
		option.Summary("Get Statistics"),
		option.Description("Returns outcome counts and latency figures of stored searches"),
		option.Tags("Analytics"),
	)
}

// Start starts the API server.
func (s *Server) Start() error {
	return s.fuego.Run()
}

// Stop gracefully stops the server.
func (s *Server) Stop(ctx context.Context) error {
	return s.fuego.Server.Shutdown(ctx)
}

// Mux returns the underlying ServeMux for mounting additional routes.
func (s *Server) Mux() *http.ServeMux {
	return s.fuego.Mux
}

// MountDocsOn mounts the OpenAPI documentation routes (/docs, /openapi.json)
// on a Chi router.
func (s *Server) MountDocsOn(r interface {
	Get(pattern string, handlerFn http.HandlerFunc)
}, title, description string) {
	scalarHandler := ScalarHandler("/openapi.json", title, description)
	r.Get("/docs", func(w http.ResponseWriter, req *http.Request) {
		scalarHandler.ServeHTTP(w, req)
	})

	r.Get("/openapi.json", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		spec := s.fuego.OpenAPI.Description()
		if err := json.NewEncoder(w).Encode(spec); err != nil {
			http.Error(w, "Failed to encode OpenAPI spec", http.StatusInternalServerError)
		}
	})
}
