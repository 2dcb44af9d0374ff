package main

import (
	"context"
	"os"

	"github.com/verityapp/verity-server/internal/app"
	"github.com/verityapp/verity-server/internal/cache"
	"github.com/verityapp/verity-server/internal/config"
	"github.com/verityapp/verity-server/internal/db"
	"github.com/verityapp/verity-server/internal/events"
	"github.com/verityapp/verity-server/internal/jobs"
	"github.com/verityapp/verity-server/internal/logger"
	"github.com/verityapp/verity-server/internal/notify"
	"github.com/verityapp/verity-server/internal/ratelimit"
	"github.com/verityapp/verity-server/internal/rooms"
	"github.com/verityapp/verity-server/internal/server"
	"github.com/verityapp/verity-server/internal/service/chat"
	"github.com/verityapp/verity-server/internal/service/dates"
	"github.com/verityapp/verity-server/internal/service/discovery"
	"github.com/verityapp/verity-server/internal/service/feedback"
	"github.com/verityapp/verity-server/internal/service/interest"
	"github.com/verityapp/verity-server/internal/service/profile"
	"github.com/verityapp/verity-server/internal/service/safety"
)

func main() {
	cfg := config.New()
	logger.InitFromConfig(cfg)
	log := logger.L()

	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to connect to database", "err", err)
		os.Exit(1)
	}

	redisCache := cache.NewRedisCache(cfg)
	if err := redisCache.Ping(context.Background()); err != nil {
		// discovery and limiting degrade but the service still comes up
		log.Warn("redis unreachable at boot", "addr", cfg.Redis.Addr, "err", err)
	}

	appCtx := app.New(cfg, database, redisCache, log)

	provisioner := rooms.NewRetryingProvisioner(
		rooms.NewHTTPProvisioner(cfg.Rooms.BaseURL, cfg.Rooms.APIKey, cfg.Rooms.Timeout),
		cfg.Rooms.MaxAttempts,
		log,
	)
	notifier := notify.NewLogNotifier(log)
	bus := events.NewRedisBus(redisCache.Client, log)

	limiter := ratelimit.New(redisCache.Client, cfg.RateLimit.Cap, cfg.RateLimit.Window, log)
	advisory := ratelimit.NewAdvisory(ratelimit.NewMemoryStore(), cfg.RateLimit.Cap, cfg.RateLimit.Window)

	datesSvc := dates.NewService(appCtx, provisioner, notifier, bus)
	feedbackSvc := feedback.NewService(appCtx, notifier, bus)
	interestSvc := interest.NewService(appCtx, limiter, advisory, datesSvc)
	discoverySvc := discovery.NewService(appCtx)
	safetySvc := safety.NewService(appCtx, bus)
	chatSvc := chat.NewService(appCtx, limiter, notifier, bus)
	profileSvc := profile.NewService(appCtx)

	if cfg.App.ENV == "development" {
		if err := profileSvc.SeedGeoIndex(context.Background()); err != nil {
			log.Warn("geo index seed failed", "err", err)
		}
	}

	reconciler := jobs.NewReconciler(appCtx)
	if err := reconciler.Start(); err != nil {
		log.Error("failed to start reconciler", "err", err)
		os.Exit(1)
	}
	defer reconciler.Stop()

	log.Info("starting http server", "host", cfg.HTTP.Host, "port", cfg.HTTP.Port, "env", cfg.App.ENV)
	if err := server.StartHTTPServer(cfg,
		datesSvc,
		feedbackSvc,
		interestSvc,
		discoverySvc,
		safetySvc,
		chatSvc,
		profileSvc,
	); err != nil {
		log.Error("http server exited", "err", err)
		os.Exit(1)
	}
}
