package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andresuchdata/premium-allocation/internal/api"
	"github.com/andresuchdata/premium-allocation/internal/app"
	"github.com/andresuchdata/premium-allocation/internal/cache"
	"github.com/andresuchdata/premium-allocation/internal/config"
	"github.com/andresuchdata/premium-allocation/internal/service"
	"github.com/andresuchdata/premium-allocation/internal/session"
	"github.com/andresuchdata/premium-allocation/pkg/logger"
	"github.com/gin-gonic/gin"
)

const (
	sessionMaxIdle       = 2 * time.Hour
	sessionSweepInterval = 10 * time.Minute
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	logger.SetLevel(cfg.LogLevel)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loadCtx, cancelLoad := context.WithTimeout(ctx, 2*time.Minute)
	ds, warnings, err := app.LoadDataset(loadCtx, cfg)
	cancelLoad()
	if err != nil {
		logger.Log.Fatal().Err(err).Str("source", cfg.Data.Source).Msg("Failed to load dataset")
	}

	simulationCache, err := cache.NewSimulationCache(ctx, cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Redis unavailable, simulation cache disabled")
		simulationCache = cache.NewNoopSimulationCache()
	}

	store := session.NewMemoryStore()
	premiumService := service.NewPremiumService(ds, warnings, store, simulationCache, service.Defaults{
		Target:       cfg.Simulation.Target,
		Seed:         cfg.Simulation.Seed,
		Params:       cfg.Simulation.Params,
		BatchWorkers: cfg.Simulation.BatchWorkers,
	})

	go sweepSessions(ctx, store)

	router := api.NewRouter(&api.Services{PremiumService: premiumService}, cfg.Server.AllowedOrigins)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Int("regions", len(ds.Regions)).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	logger.Log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error().Err(err).Msg("Server forced to shutdown")
		os.Exit(1)
	}

	logger.Log.Info().Msg("Server exiting")
}

func sweepSessions(ctx context.Context, store *session.MemoryStore) {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := store.Sweep(now, sessionMaxIdle); n > 0 {
				logger.Log.Info().Int("sessions", n).Msg("expired idle sessions")
			}
		}
	}
}
