package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/crowdpad/rewards-api/internal/config"
	"github.com/crowdpad/rewards-api/internal/domain/analytics"
	"github.com/crowdpad/rewards-api/internal/domain/contribution"
	"github.com/crowdpad/rewards-api/internal/domain/ledger"
	"github.com/crowdpad/rewards-api/internal/domain/notification"
	"github.com/crowdpad/rewards-api/internal/domain/profile"
	"github.com/crowdpad/rewards-api/internal/domain/referral"
	"github.com/crowdpad/rewards-api/internal/domain/reward"
	"github.com/crowdpad/rewards-api/internal/domain/tier"
	"github.com/crowdpad/rewards-api/internal/middleware"
	"github.com/crowdpad/rewards-api/internal/pkg/changefeed"
	"github.com/crowdpad/rewards-api/internal/pkg/database"
	"github.com/crowdpad/rewards-api/internal/pkg/jwt"
	"github.com/crowdpad/rewards-api/internal/pkg/logger"
	pkgresponse "github.com/crowdpad/rewards-api/internal/pkg/response"
)

func main() {
	cfg := config.Load()
	logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env})

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Msg("Starting rewards API")

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

	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL)

	feed := changefeed.New(redisClient)
	defer feed.Close()

	// ---------- Repositories ----------
	tierRepo := tier.NewRepository(db)
	ledgerRepo := ledger.NewRepository(db)
	rewardRepo := reward.NewRepository(db)
	profileRepo := profile.NewRepository(db)
	referralRepo := referral.NewRepository(db)
	contributionRepo := contribution.NewRepository(db)
	analyticsRepo := analytics.NewRepository(db)
	notificationRepo := notification.NewRepository(db)

	// ---------- WebSocket hub ----------
	hub := notification.NewHub(redisClient)
	go hub.Run()
	defer hub.Shutdown()

	// ---------- Services ----------
	notificationSvc := notification.NewService(notificationRepo, hub)
	tierCatalog := tier.NewCatalog(tierRepo, cfg.TierCacheTTL, nil)
	ledgerSvc := ledger.NewService(ledgerRepo, feed, ledger.Schedule{
		Cliff:    cfg.VestingCliff,
		Duration: cfg.VestingDuration,
	}, nil)
	registry := reward.NewRegistry(rewardRepo, cfg.ActionsReloadTTL, nil)
	engine := reward.NewEngine(registry, tierCatalog, ledgerSvc, notificationSvc, cfg.BaseCreditRate)
	rewardSvc := reward.NewService(rewardRepo, engine, feed, nil)
	referralSvc := referral.NewService(referralRepo, profileRepo, engine, feed, notificationSvc)
	contributionSvc := contribution.NewService(contributionRepo, engine, feed)

	// ---------- Analytics mirror ----------
	listener := analytics.NewListener(analyticsRepo, feed, tierCatalog)
	if err := listener.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start analytics listener")
	}
	defer listener.Close()

	// ---------- Handlers ----------
	tierHandler := tier.NewHandler(tierCatalog)
	ledgerHandler := ledger.NewHandler(ledgerSvc)
	rewardHandler := reward.NewHandler(rewardSvc)
	referralHandler := referral.NewHandler(referralSvc)
	contributionHandler := contribution.NewHandler(contributionSvc)
	analyticsHandler := analytics.NewHandler(analyticsRepo)
	notificationHandler := notification.NewHandler(notificationSvc, hub, cfg.AllowedOrigins)

	authMiddleware := middleware.Auth(jwtService)

	// ---------- Router ----------
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))

	// WebSocket endpoint (before Compress)
	r.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token != "" {
			r.Header.Set("Authorization", "Bearer "+token)
		}
		authMiddleware(http.HandlerFunc(notificationHandler.WebSocket)).ServeHTTP(w, r)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		pkgresponse.OK(w, map[string]string{
			"status":  "ok",
			"version": "1.0.0",
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(chimw.Compress(5))

		r.Mount("/tiers", tierHandler.Routes())
		r.Mount("/ledger", ledgerHandler.Routes(authMiddleware))
		r.Mount("/actions", rewardHandler.Routes(authMiddleware))
		r.Mount("/referrals", referralHandler.Routes(authMiddleware))
		r.Mount("/contributions", contributionHandler.Routes(authMiddleware))
		r.Mount("/analytics", analyticsHandler.Routes(authMiddleware))
		r.Mount("/notifications", notificationHandler.Routes(authMiddleware))
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}
