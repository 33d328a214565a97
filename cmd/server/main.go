package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/blockedby/lexscout/internal/api"
	"github.com/blockedby/lexscout/internal/catalog"
	"github.com/blockedby/lexscout/internal/config"
	"github.com/blockedby/lexscout/internal/database"
	"github.com/blockedby/lexscout/internal/llm"
	"github.com/blockedby/lexscout/internal/logger"
	"github.com/blockedby/lexscout/internal/nats"
	"github.com/blockedby/lexscout/internal/publisher"
	"github.com/blockedby/lexscout/internal/report"
	"github.com/blockedby/lexscout/internal/repository"
	"github.com/blockedby/lexscout/internal/research"
	"github.com/blockedby/lexscout/internal/session"
	"github.com/blockedby/lexscout/internal/web"
	"github.com/blockedby/lexscout/internal/web/handlers"
)

var version = "dev"

func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// 2. Initialize logger
	if err := logger.Init(cfg.LogLevel, cfg.LogFile); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	log := logger.Get()
	log.Info().Str("version", version).Msg("starting lexscout server")

	// 3. Setup context with graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("received shutdown signal")
		cancel()
	}()

	// 4. Catalog
	cat := catalog.Default()
	if cfg.CatalogFile != "" {
		cat, err = catalog.Load(cfg.CatalogFile)
		if err != nil {
			log.Fatal().Err(err).Str("file", cfg.CatalogFile).Msg("failed to load catalog")
		}
	}
	log.Info().Int("countries", len(cat.CountryList)).Msg("catalog loaded")

	// 5. LLM provider; a missing key keeps the UI up and fails each call
	provider, err := llm.New(ctx, llm.Config{
		Provider:    cfg.LLMProvider,
		BaseURL:     cfg.LLMBaseURL,
		Model:       cfg.LLMModel,
		APIKey:      cfg.LLMAPIKey,
		MaxTokens:   cfg.LLMMaxTokens,
		Temperature: float32(cfg.LLMTemperature),
		Timeout:     time.Duration(cfg.LLMTimeoutSec) * time.Second,
		RateLimit:   cfg.LLMRateLimit,
	})
	switch {
	case errors.Is(err, llm.ErrMissingAPIKey):
		log.Warn().Msg("no API key configured, searches will fail until one is set")
	case err != nil:
		log.Fatal().Err(err).Msg("failed to create llm provider")
	default:
		log.Info().Str("provider", provider.Name()).Str("model", cfg.LLMModel).Msg("llm provider initialized")
	}

	// 6. History database
	var history *repository.HistoryRepository
	db, err := database.New(ctx, cfg.DatabaseURL, repository.Models()...)
	if err != nil {
		log.Warn().Err(err).Msg("failed to open history database, history disabled")
	} else {
		defer db.Close()
		history = repository.NewHistoryRepository(db.GORM, log)
	}

	// 7. NATS; when connected, the recorder service writes history
	deps := research.Dependencies{Provider: provider, Catalog: cat}
	if cfg.NatsURL != "" {
		nc, err := nats.New(ctx, cfg.NatsURL)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to nats, publishing disabled")
		} else {
			defer nc.Close()
			if err := nc.EnsureResearchStream(ctx); err != nil {
				log.Warn().Err(err).Msg("failed to ensure research stream")
			}
			deps.Events = publisher.NewNATSPublisher(nc)
		}
	}
	if deps.Events == nil && history != nil {
		deps.History = history
	}

	svc, err := research.NewService(deps)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create research service")
	}

	// 8. Reports
	renderer, err := report.NewPDFRenderer(cfg.StorageDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create report renderer")
	}

	// 9. WebSocket hub and browser workspaces
	hub := web.NewHub()
	go hub.Run()
	defer hub.Stop()

	sessions := session.NewManager(cat, svc, hub, session.Options{})
	sessions.SetMaxIdle(time.Duration(cfg.SessionMaxIdleMin) * time.Minute)
	go sessions.Run(ctx, time.Duration(cfg.SessionSweepSec)*time.Second)

	tmpl := web.NewTemplateEngine(cfg.TemplatesDir, cfg.TemplatesReload)
	if err := tmpl.Load(); err != nil {
		log.Fatal().Err(err).Msg("failed to load templates")
	}

	// 10. JSON API
	apiDeps := &api.Dependencies{
		Research: svc,
		Provider: cfg.LLMProvider,
	}
	if history != nil {
		apiDeps.History = history
		apiDeps.Reports = renderer
		apiDeps.Database = db
	}
	apiSrv := api.NewServer(&api.Config{
		Port:        cfg.HTTPPort,
		Title:       "LexScout API",
		Description: "Search laws, regulations and government policies, translate results and browse search history.",
		Version:     version,
	}, apiDeps)

	// 11. Web server
	webCfg := &web.Config{
		Port:           cfg.HTTPPort,
		StaticDir:      cfg.StaticDir,
		AllowedOrigins: cfg.AllowedOrigins,
		Version:        version,
	}
	if history != nil {
		webCfg.Database = db
	}
	server := web.NewServer(webCfg, hub, sessions)
	server.RegisterUIHandler(handlers.NewUIHandler(tmpl, sessions, cat, history != nil))
	server.MountAPI(apiSrv.Mux())
	apiSrv.MountDocsOn(server.Router(), "LexScout API", "Research API reference")

	// 12. Start server
	log.Info().Int("port", cfg.HTTPPort).Msg("starting web server")
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server error")
			cancel()
		}
	}()

	// 13. Wait for shutdown
	<-ctx.Done()
	log.Info().Msg("shutting down services...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Stop(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("web server shutdown")
	}

	log.Info().Msg("shutdown complete")
}
