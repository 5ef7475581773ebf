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

	"imobcrm_backend/internal/assignment"
	"imobcrm_backend/internal/events"
	"imobcrm_backend/internal/gateway"
	"imobcrm_backend/internal/ingestion"
	"imobcrm_backend/internal/instances"
	"imobcrm_backend/internal/leads"
	"imobcrm_backend/internal/scheduler"
	"imobcrm_backend/internal/scoring"
	"imobcrm_backend/internal/users"
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
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	gwClient := gateway.NewClient(cfg, log)
	var fetcher ingestion.MessageFetcher
	if gwClient != nil {
		fetcher = gwClient
	} else {
		log.Warn("GATEWAY_BASE_URL not configured; poll cycles will be empty")
	}

	var agentScorer scoring.Scorer
	if cfg.GetMoonshotAPIKey() != "" {
		agent, err := scoring.NewAgent(cfg.GetMoonshotAPIKey(), cfg.GetScoringModel())
		if err != nil {
			log.Warn("failed to initialize scoring agent, using keyword fallback", "error", err)
		} else {
			agentScorer = agent
		}
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
	leadsModule := leads.NewModule(pool, usersModule.Service(), eventBus, val, log)
	leadsModule.RegisterHandlers(eventBus)
	instancesModule := instances.NewModule(pool, nil, eventBus, val, log)

	pipeline := ingestion.New(instancesModule.Repository(), fetcher, leadsModule.Repository(),
		scorer, seen, eventBus, log)
	sweep := assignment.New(assignment.NewRepo(pool), eventBus, cfg, log)

	periodic, err := scheduler.NewPeriodic(cfg, log)
	if err != nil {
		log.Error("failed to initialize periodic scheduler", "error", err)
		panic("failed to initialize periodic scheduler: " + err.Error())
	}
	go periodic.Run(ctx)

	worker, err := scheduler.NewWorker(cfg, pipeline, sweep, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
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
