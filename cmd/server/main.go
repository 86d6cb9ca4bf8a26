package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coinwatch/confluence/internal/config"
	"github.com/coinwatch/confluence/internal/di"
	"github.com/coinwatch/confluence/internal/server"
	"github.com/coinwatch/confluence/pkg/logger"
)

func main() {
	log := logger.New(logger.Config{Level: "info", Pretty: true})
	log.Info().Msg("starting confluence")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	log = logger.New(logger.Config{Level: cfg.LogLevel, Pretty: true})

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatal().Err(err).Str("data_dir", cfg.DataDir).Msg("failed to create data directory")
	}

	container, err := di.Wire(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to wire dependencies")
	}

	container.Scheduler.Start()

	srv := server.New(container, log)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err.Error() != "http: Server closed" {
			log.Fatal().Err(err).Msg("status server failed")
		}
	}()

	log.Info().Int("port", cfg.Port).Strs("chains", chainStrings(cfg)).Msg("confluence running")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")

	container.Scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("status server forced to shutdown")
	}

	if err := container.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close store cleanly")
	}

	log.Info().Msg("stopped")
}

func chainStrings(cfg *config.Config) []string {
	out := make([]string, len(cfg.Chains))
	for i, c := range cfg.Chains {
		out[i] = string(c)
	}
	return out
}
