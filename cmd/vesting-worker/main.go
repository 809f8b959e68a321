package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/crowdpad/rewards-api/internal/config"
	"github.com/crowdpad/rewards-api/internal/domain/ledger"
	"github.com/crowdpad/rewards-api/internal/pkg/changefeed"
	"github.com/crowdpad/rewards-api/internal/pkg/database"
	"github.com/crowdpad/rewards-api/internal/pkg/logger"
)

// The sweep worker runs as its own process so deploys of the API never
// interrupt a sweep, and exactly one sweeper is scheduled per environment.
func main() {
	cfg := config.Load()
	logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env})

	log.Info().
		Str("env", cfg.Env).
		Dur("interval", cfg.SweepInterval).
		Msg("Starting vesting worker")

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	redisClient, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(redisClient)

	feed := changefeed.New(redisClient)
	defer feed.Close()

	ledgerSvc := ledger.NewService(ledger.NewRepository(db), feed, ledger.Schedule{
		Cliff:    cfg.VestingCliff,
		Duration: cfg.VestingDuration,
	}, nil)

	worker := ledger.NewWorker(ledgerSvc, cfg.SweepInterval)
	worker.Start()
	defer worker.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Vesting worker exited properly")
}
