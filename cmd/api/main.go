package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	imobcrm "imobcrm_backend"
	"imobcrm_backend/internal/assignment"
	"imobcrm_backend/internal/auth"
	"imobcrm_backend/internal/events"
	"imobcrm_backend/internal/gateway"
	apphttp "imobcrm_backend/internal/http"
	"imobcrm_backend/internal/http/router"
	"imobcrm_backend/internal/ingestion"
	"imobcrm_backend/internal/instances"
	instservice "imobcrm_backend/internal/instances/service"
	"imobcrm_backend/internal/leads"
	"imobcrm_backend/internal/scoring"
	"imobcrm_backend/internal/users"
	"imobcrm_backend/internal/webhook"
	"imobcrm_backend/platform/config"
	"imobcrm_backend/platform/db"
	"imobcrm_backend/platform/logger"
	"imobcrm_backend/platform/validator"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting api", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := withRetry(ctx, log, "database migration", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, imobcrm.MigrationsFS)
	}); err != nil {
		log.Error("failed to run migrations", "error", err)
		panic("failed to run migrations: " + err.Error())
	}

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()

	// The gateway client is nil when GATEWAY_BASE_URL is not set; modules
	// then serve their degraded paths.
	gwClient := gateway.NewClient(cfg, log)
	var gw instservice.Gateway
	var fetcher ingestion.MessageFetcher
	if gwClient != nil {
		gw = gwClient
		fetcher = gwClient
	} else {
		log.Warn("GATEWAY_BASE_URL not configured; whatsapp features disabled")
	}

	var agentScorer scoring.Scorer
	if cfg.GetMoonshotAPIKey() != "" {
		agent, err := scoring.NewAgent(cfg.GetMoonshotAPIKey(), cfg.GetScoringModel())
		if err != nil {
			log.Warn("failed to initialize scoring agent, using keyword fallback", "error", err)
		} else {
			agentScorer = agent
		}
	} else {
		log.Warn("MOONSHOT_API_KEY not configured; scoring uses keyword fallback")
	}
	scorer := scoring.NewService(agentScorer, log)

	var seen ingestion.SeenCache
	if cfg.GetRedisURL() != "" {
		opt, err := redis.ParseURL(cfg.GetRedisURL())
		if err != nil {
			log.Warn("invalid REDIS_URL, message dedup relies on db constraint", "error", err)
		} else {
			client := redis.NewClient(opt)
			defer func() { _ = client.Close() }()
			seen = ingestion.NewRedisSeenCache(client, cfg.GetMessageSeenTTL())
		}
	}

	usersModule := users.NewModule(pool)
	authModule := auth.NewModule(usersModule.Repository(), cfg, log, val)
	leadsModule := leads.NewModule(pool, usersModule.Service(), eventBus, val, log)
	leadsModule.RegisterHandlers(eventBus)
	instancesModule := instances.NewModule(pool, gw, eventBus, val, log)

	pipeline := ingestion.New(instancesModule.Repository(), fetcher, leadsModule.Repository(),
		scorer, seen, eventBus, log)
	ingestionModule := ingestion.NewModule(pipeline)

	sweep := assignment.New(assignment.NewRepo(pool), eventBus, cfg, log)
	assignmentModule := assignment.NewModule(sweep)

	webhookModule := webhook.NewModule(instancesModule.Repository(), pipeline, cfg, log)

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			authModule,
			usersModule,
			leadsModule,
			instancesModule,
			ingestionModule,
			assignmentModule,
			webhookModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = shutdownCtx
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return fmt.Errorf("%s: %w", name, lastErr)
}
