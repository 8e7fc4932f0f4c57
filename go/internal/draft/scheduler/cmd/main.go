package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/openleague/draftroom/go/clients/schedule"
	"github.com/openleague/draftroom/go/internal/dbconfig"
	"github.com/openleague/draftroom/go/internal/draft/bus"
	"github.com/openleague/draftroom/go/internal/draft/engine"
	"github.com/openleague/draftroom/go/internal/draft/scheduler"
	"github.com/openleague/draftroom/go/internal/draft/state"
	"github.com/openleague/draftroom/go/internal/draft/store"
	"github.com/openleague/draftroom/go/internal/leagues"
	"github.com/openleague/draftroom/go/internal/lock"
	"github.com/openleague/draftroom/go/internal/players"
	"github.com/openleague/draftroom/go/internal/rosters"
)

// Standalone tick scheduler. draftd embeds the same loop; this binary exists
// for deployments that scale pick handling and tick handling separately.
// Instances running concurrently are safe, the engine's advisory lock makes
// ticks single-winner.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	natsURL := getEnv("NATS_URL", nats.DefaultURL)
	scheduleURL := getEnv("SCHEDULE_SERVICE_URL", "http://localhost:8090")
	defaultTZ := getEnv("DRAFT_DEFAULT_TIMEZONE", "UTC")
	port := getEnv("SCHEDULER_PORT", "8082")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbCfg := dbconfig.NewConfigFromEnv()
	pool, err := pgxpool.New(ctx, dbCfg.PoolDSN())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create connection pool")
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}

	log.Info().
		Str("database", dbCfg.Database).
		Str("nats_url", natsURL).
		Msg("starting draft scheduler")

	busCfg := bus.DefaultConfig()
	busCfg.URL = natsURL
	eventBus, err := bus.Connect(busCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect event bus")
	}
	defer eventBus.Close()

	runner := lock.NewRunner(pool)
	draftStore := store.NewStore(pool)
	playerStore := players.NewStore(pool)
	rosterStore := rosters.NewStore(pool)
	leagueStore := leagues.NewStore(pool)
	scheduleClient := schedule.NewClient(scheduleURL, getEnv("SCHEDULE_SERVICE_TOKEN", ""))

	stateService := state.NewService(runner, draftStore, playerStore, rosterStore, leagueStore, scheduleClient, eventBus)
	tickEngine := engine.New(runner, draftStore, playerStore, rosterStore, stateService, eventBus, defaultTZ)

	tickScheduler := scheduler.New(draftStore, tickEngine, scheduler.Config{
		BatchSize: int32(getEnvAsInt("SCHEDULER_BATCH_SIZE", 50)),
		Workers:   getEnvAsInt("SCHEDULER_WORKERS", 10),
	})

	listener, err := scheduler.NewDeadlineListener(scheduler.DefaultListenerConfig(dbCfg.DSN()), tickScheduler.Wake)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create deadline listener")
	}

	go func() {
		if err := listener.Start(ctx); err != nil {
			log.Error().Err(err).Msg("deadline listener stopped")
		}
	}()

	go func() {
		if err := tickScheduler.Run(ctx); err != nil {
			log.Error().Err(err).Msg("scheduler failed")
			stop()
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health check server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("health check server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health check server shutdown failed")
	}

	// Let in-flight ticks publish before the bus drains.
	if err := eventBus.Drain(); err != nil {
		log.Error().Err(err).Msg("event bus drain failed")
	}

	log.Info().Msg("draft scheduler shutdown complete")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
