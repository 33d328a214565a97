package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/blockedby/lexscout/internal/config"
	"github.com/blockedby/lexscout/internal/database"
	"github.com/blockedby/lexscout/internal/logger"
	"github.com/blockedby/lexscout/internal/nats"
	"github.com/blockedby/lexscout/internal/recorder"
	"github.com/blockedby/lexscout/internal/repository"
)

func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// 2. Setup Logger
	if err := logger.Init(cfg.LogLevel, cfg.LogFile); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	log := logger.Get()
	log.Info().Msg("starting history recorder")

	if cfg.NatsURL == "" {
		log.Fatal().Msg("NATS_URL is required")
	}

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

	// 4. Database
	db, err := database.New(ctx, cfg.DatabaseURL, repository.Models()...)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()
	log.Info().Msg("connected to database")

	// 5. NATS
	natsClient, err := nats.New(ctx, cfg.NatsURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to nats")
	}
	defer natsClient.Close()
	log.Info().Msg("connected to nats")

	if err := natsClient.EnsureResearchStream(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure stream")
	}

	// 6. Consumer
	history := repository.NewHistoryRepository(db.GORM, log)
	consumer := recorder.NewConsumer(natsClient, history, log.Component("recorder"))
	if err := consumer.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start consumer")
	}
	log.Info().Msg("consumer started")

	<-ctx.Done()
	log.Info().Msg("shutting down")

	// let in-flight acks drain
	time.Sleep(1 * time.Second)
	log.Info().Msg("shutdown complete")
}
