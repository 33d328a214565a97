package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/blockedby/lexscout/internal/logger"
)

// DefaultRequestTimeout covers a full search round trip.
const DefaultRequestTimeout = 3 * time.Minute

const healthPingTimeout = 2 * time.Second

// Pinger checks that a backing store is reachable. *database.DB satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config holds server configuration
type Config struct {
	Port           int
	StaticDir      string
	AllowedOrigins []string
	RequestTimeout time.Duration
	Version        string
	// Database, when set, is pinged by /health.
	Database Pinger
}

// Server represents the HTTP server
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	config     *Config
	listener   net.Listener
	hub        *Hub
	sessions   SessionStore
}

// NewServer creates a new HTTP server. hub and sessions may be nil, which
// disables /ws.
func NewServer(cfg *Config, hub *Hub, sessions SessionStore) *Server {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}

	srv := &Server{
		router:   chi.NewRouter(),
		config:   cfg,
		hub:      hub,
		sessions: sessions,
	}

	srv.setupMiddleware()
	srv.setupRoutes()

	return srv
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(s.config.RequestTimeout))
	s.router.Use(middleware.Compress(5))
}

// requestLogger logs one line per request with zerolog.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			logger.Get().Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("took", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("http request")
		}()
		next.ServeHTTP(ww, r)
	})
}

func (s *Server) setupRoutes() {
	if s.config.StaticDir != "" {
		fileServer := http.FileServer(http.Dir(s.config.StaticDir))
		s.router.Handle("/static/*", http.StripPrefix("/static/", fileServer))
	}

	if s.hub != nil && s.sessions != nil {
		s.router.Get("/ws", s.serveWs)
	}

	s.router.Get("/health", s.health)
}

type healthStatus struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Database string `json:"database,omitempty"`
}

// health answers 503 when the database is configured but unreachable.
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	resp := healthStatus{Status: "ok", Version: s.config.Version}
	code := http.StatusOK

	if s.config.Database != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
		defer cancel()
		resp.Database = "ok"
		if err := s.config.Database.Ping(ctx); err != nil {
			logger.Warn("health: database ping failed", err)
			resp.Status, resp.Database = "degraded", "unreachable"
			code = http.StatusServiceUnavailable
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) serveWs(w http.ResponseWriter, r *http.Request) {
	ws, created := s.sessions.GetOrCreate(SessionID(r))
	header := http.Header{}
	if created {
		header.Add("Set-Cookie", SessionCookie(ws.ID(), s.sessions.MaxIdle()).String())
	}
	ServeWs(s.hub, w, r, ws.ID(), header, HelloEvent(ws.State()))
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.listener = listener

	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s.httpServer.Serve(listener)
}

// Stop gracefully stops the server
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// BaseURL returns the server's base URL
func (s *Server) BaseURL() string {
	if s.listener != nil {
		return fmt.Sprintf("http://%s", s.listener.Addr().String())
	}
	return fmt.Sprintf("http://localhost:%d", s.config.Port)
}

// RegisterUIHandler registers the browser workspace routes.
func (s *Server) RegisterUIHandler(handler interface{}) {
	type uiHandler interface {
		Index(w http.ResponseWriter, r *http.Request)
		State(w http.ResponseWriter, r *http.Request)
		Settings(w http.ResponseWriter, r *http.Request)
		SetCountry(w http.ResponseWriter, r *http.Request)
		SetLanguage(w http.ResponseWriter, r *http.Request)
		SetActive(w http.ResponseWriter, r *http.Request)
		Results(w http.ResponseWriter, r *http.Request)
		Search(w http.ResponseWriter, r *http.Request)
		TranslateCard(w http.ResponseWriter, r *http.Request)
	}

	if h, ok := handler.(uiHandler); ok {
		s.router.Get("/", h.Index)
		s.router.Get("/state", h.State)
		s.router.Route("/ui", func(r chi.Router) {
			r.Get("/settings", h.Settings)
			r.Post("/country", h.SetCountry)
			r.Post("/language", h.SetLanguage)
			r.Post("/active", h.SetActive)
			r.Get("/{tab}/results", h.Results)
			r.Post("/{tab}/search", h.Search)
			r.Post("/{tab}/cards/{index}/translate", h.TranslateCard)
		})
	}
}

// MountAPI serves the JSON API under /api/ with CORS.
func (s *Server) MountAPI(api http.Handler) {
	origins := s.config.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	})
	s.router.With(c).Handle("/api/*", api)
}

// Router returns the underlying Chi router for external route mounting.
func (s *Server) Router() *chi.Mux {
	return s.router
}
