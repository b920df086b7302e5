package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rollout-labs/updatecache/internal/config"
	"github.com/rollout-labs/updatecache/internal/obs"
	"github.com/rollout-labs/updatecache/internal/store"
)

func main() {
	cfg := config.GetConfig()
	logger := config.GetLogger()

	logger.Info().
		Bool("redis_configured", cfg.RedisConfigured()).
		Str("redis_host", cfg.Redis.Host).
		Int("redis_port", cfg.Redis.Port).
		Bool("redis_tls", cfg.Redis.TLSEnabled).
		Dur("cache_ttl", cfg.CacheTTL()).
		Msg("Application started with configuration")

	conn := store.NewConnection(store.OptionsFromConfig(cfg))
	defer func() {
		if err := conn.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close store connection")
		}
	}()

	if !conn.Enabled() {
		logger.Warn().Msg("No Redis host/port configured; caching and adoption metrics are disabled")
	}

	// Start the observability HTTP server (metrics + health)
	if cfg.Obs.Enabled {
		obsServer := obs.NewHTTPServer(cfg.Obs.Address, cfg.Obs.Port, conn)
		go func() {
			logger.Info().Str("address", obsServer.Addr).Msg("Starting observability HTTP server")
			if err := obsServer.ListenAndServe(); err != nil && err.Error() != "http: Server closed" {
				logger.Fatal().Err(err).Msg("Failed to serve observability endpoints")
			}
		}()
		defer func() {
			if err := obsServer.Shutdown(context.Background()); err != nil {
				logger.Error().Err(err).Msg("Failed to shutdown observability server")
			}
		}()
	}

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	sig := <-sigChan
	logger.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
}
